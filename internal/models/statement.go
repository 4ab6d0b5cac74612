package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// LineRef points back at one physical line of a statement.
type LineRef struct {
	StatementID string `json:"statementId"`
	Page        int    `json:"page"`
	Line        int    `json:"line"`
}

func (r LineRef) String() string {
	return fmt.Sprintf("%s:p%d:l%d", r.StatementID, r.Page, r.Line)
}

// RawStatementLine is one line of extracted text, or one CSV row.
// Fields holds the row cells for CSV sources and is nil for PDF text.
type RawStatementLine struct {
	Ref    LineRef
	Broker BrokerType
	Text   string
	Fields map[string]string
}

// LogicalLine is a transaction record reassembled from one or more physical lines.
type LogicalLine struct {
	Text string
	Refs []LineRef
}

// NumericToken is a number recovered from a text line.
type NumericToken struct {
	RawText         string          `json:"rawText"`
	Value           decimal.Decimal `json:"value"`
	IsNegative      bool            `json:"isNegative"`
	HadParens       bool            `json:"hadParens"`
	HadTrailingDash bool            `json:"hadTrailingDash"`
	Position        int             `json:"position"`
	// End is the byte offset just past the token in the line.
	End int `json:"-"`
}

// Abs returns the magnitude of the token.
func (t NumericToken) Abs() decimal.Decimal { return t.Value.Abs() }

// SymbolCandidate is a possible ticker found in a line.
type SymbolCandidate struct {
	Text                string `json:"text"`
	Position            int    `json:"position"`
	IsBeforeFirstNumber bool   `json:"isBeforeFirstNumber"`
}

// LineOutcome records what the parser did with a logical line.
type LineOutcome string

const (
	OutcomeEmitted      LineOutcome = "emitted"
	OutcomeDegraded     LineOutcome = "degraded"
	OutcomeSuppressed   LineOutcome = "suppressed"
	OutcomeUnclassified LineOutcome = "unclassified"
	OutcomeSkipped      LineOutcome = "skipped"
	OutcomeInvalid      LineOutcome = "invalid"
)

// DebugLine captures what the parser did with each logical line.
type DebugLine struct {
	Refs    []LineRef   `json:"refs"`
	Text    string      `json:"text"`
	Outcome LineOutcome `json:"outcome"`
	Rule    string      `json:"rule,omitempty"`
	Detail  string      `json:"detail,omitempty"`
}

// StatementInfo holds metadata and records extracted from one statement.
type StatementInfo struct {
	StatementID   string
	SourcePath    string
	Broker        BrokerType
	AccountID     string
	AccountHolder string
	StatementDate time.Time
	Currency      string
	// Balances is nil when the statement has no summary section.
	Balances     *Balances
	Transactions []TransactionRecord
	DebugLines   []DebugLine
}

// Count returns how many debug lines ended with outcome o.
func (s *StatementInfo) Count(o LineOutcome) int {
	n := 0
	for _, d := range s.DebugLines {
		if d.Outcome == o {
			n++
		}
	}
	return n
}

// BalanceField names one figure of a statement's account summary.
type BalanceField string

const (
	BalanceBeginning   BalanceField = "beginning_account_value"
	BalanceEnding      BalanceField = "total_account_value"
	BalanceCash        BalanceField = "cash_balance"
	BalanceInvestments BalanceField = "total_investments"
	BalanceDeposits    BalanceField = "deposits"
	BalanceWithdrawals BalanceField = "withdrawals"
)

// AllBalanceFields lists every BalanceField in report order.
var AllBalanceFields = []BalanceField{
	BalanceBeginning, BalanceDeposits, BalanceWithdrawals,
	BalanceCash, BalanceInvestments, BalanceEnding,
}

// Balances are the account summary figures printed on a statement. Fields
// the statement does not show are nil.
type Balances struct {
	BeginningValue *decimal.Decimal `json:"beginningAccountValue,omitempty"`
	EndingValue    *decimal.Decimal `json:"totalAccountValue,omitempty"`
	Cash           *decimal.Decimal `json:"cashBalance,omitempty"`
	Investments    *decimal.Decimal `json:"totalInvestments,omitempty"`
	Deposits       *decimal.Decimal `json:"deposits,omitempty"`
	Withdrawals    *decimal.Decimal `json:"withdrawals,omitempty"`
}

func (b *Balances) field(f BalanceField) **decimal.Decimal {
	switch f {
	case BalanceBeginning:
		return &b.BeginningValue
	case BalanceEnding:
		return &b.EndingValue
	case BalanceCash:
		return &b.Cash
	case BalanceInvestments:
		return &b.Investments
	case BalanceDeposits:
		return &b.Deposits
	case BalanceWithdrawals:
		return &b.Withdrawals
	}
	return nil
}

// Set stores v under f. Withdrawals are always stored as a negative
// figure whether or not the statement printed them in parentheses.
func (b *Balances) Set(f BalanceField, v decimal.Decimal) {
	ptr := b.field(f)
	if ptr == nil {
		return
	}
	if f == BalanceWithdrawals {
		v = v.Abs().Neg()
	}
	*ptr = &v
}

// Get returns the figure stored under f, or nil.
func (b *Balances) Get(f BalanceField) *decimal.Decimal {
	if ptr := b.field(f); ptr != nil {
		return *ptr
	}
	return nil
}

// IsZero reports whether no figure is set.
func (b *Balances) IsZero() bool {
	for _, f := range AllBalanceFields {
		if b.Get(f) != nil {
			return false
		}
	}
	return true
}

// ValidationError reports a record that violates a TransactionRecord invariant.
type ValidationError struct {
	Type   TransactionType
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("invalid transaction record: %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s record: %s: %s", e.Type, e.Field, e.Reason)
}
