package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType is the canonical classification of a statement line.
type TransactionType string

const (
	TypeBuy        TransactionType = "BUY"
	TypeSell       TransactionType = "SELL"
	TypeDividend   TransactionType = "DIVIDEND"
	TypeInterest   TransactionType = "INTEREST"
	TypeTax        TransactionType = "TAX"
	TypeFee        TransactionType = "FEE"
	TypeJournal    TransactionType = "JOURNAL"
	TypeWithdrawal TransactionType = "WITHDRAWAL"
	TypeDeposit    TransactionType = "DEPOSIT"
	TypeTransfer   TransactionType = "TRANSFER"
	TypeSplit      TransactionType = "SPLIT"
	TypeOther      TransactionType = "OTHER"
)

// AllTransactionTypes lists every TransactionType in declaration order.
var AllTransactionTypes = []TransactionType{
	TypeBuy, TypeSell, TypeDividend, TypeInterest, TypeTax, TypeFee,
	TypeJournal, TypeWithdrawal, TypeDeposit, TypeTransfer, TypeSplit, TypeOther,
}

// CashFlowClass groups transaction types by the direction cash moves.
type CashFlowClass int

const (
	// CashFlowNeutral types keep the sign of the leg that was extracted.
	CashFlowNeutral CashFlowClass = iota
	// CashFlowOut types take cash out of the account: amount <= 0.
	CashFlowOut
	// CashFlowIn types bring cash into the account: amount >= 0.
	CashFlowIn
)

// CashFlow returns the cash-flow class of t.
func (t TransactionType) CashFlow() CashFlowClass {
	switch t {
	case TypeBuy, TypeWithdrawal, TypeTax, TypeFee:
		return CashFlowOut
	case TypeSell, TypeDeposit, TypeDividend, TypeInterest, TypeJournal, TypeOther:
		return CashFlowIn
	default:
		return CashFlowNeutral
	}
}

// CarriesSymbol reports whether records of type t may reference a security.
func (t TransactionType) CarriesSymbol() bool {
	switch t {
	case TypeBuy, TypeSell, TypeDividend, TypeSplit:
		return true
	}
	return false
}

// IsTrade reports whether t is a security purchase or sale, for which a
// quantity and price are expected.
func (t TransactionType) IsTrade() bool {
	return t == TypeBuy || t == TypeSell
}

// Valid reports whether t is one of the declared types.
func (t TransactionType) Valid() bool {
	for _, v := range AllTransactionTypes {
		if v == t {
			return true
		}
	}
	return false
}

// NormalizeAmount applies the cash-flow sign rule for t to amount.
func (t TransactionType) NormalizeAmount(amount decimal.Decimal) decimal.Decimal {
	switch t.CashFlow() {
	case CashFlowOut:
		return amount.Abs().Neg()
	case CashFlowIn:
		return amount.Abs()
	default:
		return amount
	}
}

// TransactionRecord is one normalized transaction extracted from a statement.
// Records are built through NewTransactionRecord and are not modified afterwards.
// RealizedGainLoss is the gain (negative for a loss) a broker prints next to
// a sale; it is nil when the statement shows none.
type TransactionRecord struct {
	Date             time.Time        `json:"date"`
	SettleDate       *time.Time       `json:"settleDate,omitempty"`
	Broker           BrokerType       `json:"broker"`
	AccountID        string           `json:"accountId,omitempty"`
	TransactionType  TransactionType  `json:"transactionType"`
	Symbol           *string          `json:"symbol"`
	Quantity         *decimal.Decimal `json:"quantity"`
	Price            *decimal.Decimal `json:"price"`
	Amount           decimal.Decimal  `json:"amount"`
	Fee              decimal.Decimal  `json:"fee"`
	Tax              decimal.Decimal  `json:"tax"`
	NetAmount        *decimal.Decimal `json:"netAmount,omitempty"`
	RealizedGainLoss *decimal.Decimal `json:"realizedGainLoss,omitempty"`
	Currency         string           `json:"currency"`
	OrderID          string           `json:"orderId,omitempty"`
	Description      string           `json:"description"`
	SourceLineRef    []LineRef        `json:"sourceLineRef"`
	Degraded         bool             `json:"degraded,omitempty"`
	ReviewReason     string           `json:"reviewReason,omitempty"`
}

// NewTransactionRecord validates r against the record invariants and returns
// it. tolerance is the relative error allowed between quantity*price and the
// absolute amount. Violations are returned as *ValidationError; nothing is
// corrected.
func NewTransactionRecord(r TransactionRecord, tolerance decimal.Decimal) (TransactionRecord, error) {
	if err := r.Validate(tolerance); err != nil {
		return TransactionRecord{}, err
	}
	return r, nil
}

// Validate checks the record invariants.
func (r TransactionRecord) Validate(tolerance decimal.Decimal) error {
	if !r.TransactionType.Valid() {
		return &ValidationError{Field: "transactionType", Reason: fmt.Sprintf("unknown type %q", r.TransactionType)}
	}
	if r.Date.IsZero() {
		return &ValidationError{Type: r.TransactionType, Field: "date", Reason: "missing"}
	}
	switch r.TransactionType.CashFlow() {
	case CashFlowOut:
		if r.Amount.IsPositive() {
			return &ValidationError{Type: r.TransactionType, Field: "amount", Reason: fmt.Sprintf("%s must not be positive", r.Amount)}
		}
	case CashFlowIn:
		if r.Amount.IsNegative() {
			return &ValidationError{Type: r.TransactionType, Field: "amount", Reason: fmt.Sprintf("%s must not be negative", r.Amount)}
		}
	}
	if r.Symbol != nil && !r.TransactionType.CarriesSymbol() {
		return &ValidationError{Type: r.TransactionType, Field: "symbol", Reason: fmt.Sprintf("%q set on a symbol-less type", *r.Symbol)}
	}
	if r.TransactionType == TypeSplit && (r.Price == nil || !r.Price.IsZero()) {
		return &ValidationError{Type: r.TransactionType, Field: "price", Reason: "split price must be 0"}
	}
	if r.Quantity != nil && r.Price != nil && !r.Quantity.IsZero() && !r.Price.IsZero() {
		if relErr, ok := RelativeError(r.Quantity.Mul(*r.Price), r.Amount); !ok || relErr.GreaterThan(tolerance) {
			return &ValidationError{
				Type:   r.TransactionType,
				Field:  "quantity",
				Reason: fmt.Sprintf("%s x %s does not reconcile with amount %s", r.Quantity, r.Price, r.Amount),
			}
		}
	}
	return nil
}

// RelativeError returns ||product| - |amount|| / |amount|. ok is false when
// amount is zero and the error is undefined.
func RelativeError(product, amount decimal.Decimal) (decimal.Decimal, bool) {
	if amount.IsZero() {
		return decimal.Zero, false
	}
	return product.Abs().Sub(amount.Abs()).Abs().Div(amount.Abs()), true
}

// SymbolString returns the symbol or "" when the record has none.
func (r TransactionRecord) SymbolString() string {
	if r.Symbol == nil {
		return ""
	}
	return *r.Symbol
}

// BrokerType identifies a supported statement issuer.
type BrokerType string

const (
	// BrokerSchwab is the post-merger Charles Schwab brokerage statement.
	BrokerSchwab BrokerType = "SCHWAB"
	// BrokerTDA is the legacy TD Ameritrade statement.
	BrokerTDA BrokerType = "TDA"
	// BrokerCathay is the Cathay Securities (國泰證券) CSV export.
	BrokerCathay BrokerType = "CATHAY"
)

// ParseBrokerType maps user input to a BrokerType.
func ParseBrokerType(s string) (BrokerType, error) {
	switch s {
	case "schwab", "SCHWAB", "Schwab":
		return BrokerSchwab, nil
	case "tda", "TDA", "tdameritrade", "ameritrade":
		return BrokerTDA, nil
	case "cathay", "CATHAY", "Cathay":
		return BrokerCathay, nil
	}
	return "", fmt.Errorf("unknown broker %q (supported: schwab, tda, cathay)", s)
}
