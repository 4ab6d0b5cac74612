package parser

import (
	"testing"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifier_USBroker(t *testing.T) {
	c := NewClassifier(usBrokerRules)

	tests := []struct {
		input string
		want  models.TransactionType
		rule  string
	}{
		{"Purchase Reinvest Shares VB 0.5890 407.4041", models.TypeDividend, "reinvest"},
		{"Buy REINVEST SHARES SCHD", models.TypeDividend, "reinvest"},
		{"Forward Split NVDA 90.0000", models.TypeSplit, "split"},
		{"FORWARDSPLIT NVDA", models.TypeSplit, "split"},
		{"Stock  Split TSLA", models.TypeSplit, "split"},
		{"stocksplit AAPL", models.TypeSplit, "split"},
		{"Expense ADR Mgmt Fee TSM", models.TypeFee, "expense"},
		{"FEE ON 10 SHARES FOR SELL", models.TypeFee, "expense"},
		{"Other NRA Tax Adj", models.TypeTax, "foreign-tax"},
		{"Journal Foreign Tax Paid", models.TypeTax, "foreign-tax"},
		{"Interest Credit Interest", models.TypeInterest, "interest"},
		{"Qualified Dividend VB", models.TypeDividend, "dividend"},
		{"Sale META META PLATFORMS INC", models.TypeSell, "sell"},
		{"Purchase VB VANGUARD", models.TypeBuy, "buy"},
		{"Purchase BJ BJS WHOLESALE CLUB", models.TypeBuy, "buy"},
		{"Purchase CRM SALESFORCE INC", models.TypeBuy, "buy"},
		{"Bought WHOLESALE sale lot", models.TypeSell, "sell"},
		{"Sold AAPL", models.TypeSell, "sell"},
		{"Withdrawal Funds Paid", models.TypeWithdrawal, "withdrawal"},
		{"Deposit Funds Received", models.TypeDeposit, "deposit"},
		{"Journal Internal", models.TypeJournal, "journal"},
		{"MoneyLink Transfer", models.TypeTransfer, "transfer"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := c.Classify(tt.input)
			assert.Equal(t, tt.want, got.Type)
			assert.Equal(t, tt.rule, got.Rule)
			assert.True(t, got.Matched)
		})
	}
}

func TestClassifier_TDA(t *testing.T) {
	c := NewClassifier(tdaRules)

	tests := []struct {
		input string
		want  models.TransactionType
	}{
		{"Buy - Securities Purchased MICROSOFT CORP MSFT", models.TypeBuy},
		{"Sell - Securities Sold APPLE INC AAPL", models.TypeSell},
		{"Div/Int - Income MICROSOFT CORP MSFT", models.TypeDividend},
		{"Div/Int - Expense MARGIN", models.TypeFee},
		{"Journal - Other FOREIGN TAX WITHHELD", models.TypeTax},
		{"Journal - Other", models.TypeJournal},
		{"Buy - Securities Purchased REINVEST SHARES VTI", models.TypeDividend},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.input).Type)
		})
	}
}

func TestClassifier_Cathay(t *testing.T) {
	c := NewClassifier(cathayRules)
	assert.Equal(t, models.TypeBuy, c.Classify("現買").Type)
	assert.Equal(t, models.TypeSell, c.Classify("現賣").Type)
	assert.Equal(t, models.TypeDividend, c.Classify("現金股利").Type)
}

func TestClassifier_Unmatched(t *testing.T) {
	c := NewClassifier(usBrokerRules)
	got := c.Classify("12/31  Something   unusual")

	assert.Equal(t, models.TypeOther, got.Type)
	assert.False(t, got.Matched)
	assert.Empty(t, got.Rule)
	assert.Equal(t, "Something unusual", got.Description)
}

func TestClassifier_RuleShapes(t *testing.T) {
	c := NewClassifier([]Rule{
		{Name: "empty"},
		{Name: "none", Any: []string{"wire"}, None: []string{"fee"}, Type: models.TypeTransfer},
		{Name: "fee", Any: []string{"wire fee"}, Type: models.TypeFee},
	})

	assert.Equal(t, "none", c.Classify("Wire Out").Rule)
	assert.Equal(t, "fee", c.Classify("Wire Fee").Rule)
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"01/12 Sale META", "Sale META"},
		{"12/08/22 12/08/22 Cash Div/Int", "Cash Div/Int"},
		{"2024/01/15  現買", "現買"},
		{"  Deposit   Funds ", "Deposit Funds"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Describe(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
