package parser

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/insightdelivered/broker-statement-converter/internal/models"
)

// Rule maps phrases in a statement line to a transaction type. Phrases are
// matched as case-insensitive substrings.
type Rule struct {
	Name string
	// All phrases must occur.
	All []string
	// At least one of Any must occur, when set.
	Any []string
	// None of these may occur.
	None []string
	// IgnoreSpace matches with all whitespace removed, so "forward split"
	// also matches "forwardsplit" and "Forward  Split".
	IgnoreSpace bool
	// Words matches phrases as whole words only: "sale" does not match
	// "WHOLESALE".
	Words bool
	Type  models.TransactionType
}

// Classification is the classifier's verdict for one logical line.
type Classification struct {
	Type        models.TransactionType
	Description string
	Rule        string
	// Matched is false when no rule fired and Type defaulted to OTHER.
	Matched bool
}

// Classifier evaluates an ordered rule table; the first matching rule wins.
type Classifier struct {
	rules []Rule
}

// NewClassifier prepares rules for matching. The slice order is the
// evaluation order.
func NewClassifier(rules []Rule) *Classifier {
	prepared := make([]Rule, len(rules))
	for i, r := range rules {
		norm := func(ps []string) []string {
			out := make([]string, len(ps))
			for j, p := range ps {
				p = strings.ToLower(p)
				if r.IgnoreSpace {
					p = stripSpaces(p)
				}
				out[j] = p
			}
			return out
		}
		prepared[i] = Rule{
			Name:        r.Name,
			All:         norm(r.All),
			Any:         norm(r.Any),
			None:        norm(r.None),
			IgnoreSpace: r.IgnoreSpace,
			Words:       r.Words,
			Type:        r.Type,
		}
	}
	return &Classifier{rules: prepared}
}

// Classify returns the type for line plus its normalized description.
func (c *Classifier) Classify(line string) Classification {
	desc := Describe(line)
	lower := strings.ToLower(desc)
	compact := stripSpaces(lower)

	for _, r := range c.rules {
		text := lower
		if r.IgnoreSpace {
			text = compact
		}
		if r.matches(text) {
			return Classification{Type: r.Type, Description: desc, Rule: r.Name, Matched: true}
		}
	}
	return Classification{Type: models.TypeOther, Description: desc}
}

func (r Rule) matches(text string) bool {
	if len(r.All) == 0 && len(r.Any) == 0 {
		return false
	}
	for _, p := range r.All {
		if !r.contains(text, p) {
			return false
		}
	}
	if len(r.Any) > 0 {
		found := false
		for _, p := range r.Any {
			if r.contains(text, p) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for _, p := range r.None {
		if r.contains(text, p) {
			return false
		}
	}
	return true
}

func (r Rule) contains(text, phrase string) bool {
	if !r.Words {
		return strings.Contains(text, phrase)
	}
	return containsWord(text, phrase)
}

// containsWord reports whether phrase occurs in text with no letter
// directly before or after it.
func containsWord(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for off := 0; off <= len(text)-len(phrase); {
		i := strings.Index(text[off:], phrase)
		if i < 0 {
			return false
		}
		start, end := off+i, off+i+len(phrase)
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if (start == 0 || !unicode.IsLetter(before)) && (end == len(text) || !unicode.IsLetter(after)) {
			return true
		}
		off = start + 1
	}
	return false
}

var leadingDates = regexp.MustCompile(`^(?:\d{1,4}[/-]\d{1,2}(?:[/-]\d{2,4})?\s+)+`)

// Describe strips leading dates and collapses whitespace.
func Describe(line string) string {
	line = collapseSpaces(line)
	return leadingDates.ReplaceAllString(line, "")
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// Rule tables. Order matters: narrow phrases come before the generic
// verbs they contain ("reinvest shares" before "purchase", "fee on ... sell"
// before "sell").

var splitRule = Rule{Name: "split", Any: []string{"forward split", "stock split"}, IgnoreSpace: true, Type: models.TypeSplit}

var reinvestRule = Rule{Name: "reinvest", All: []string{"reinvest", "shares"}, Type: models.TypeDividend}

var usBrokerRules = []Rule{
	splitRule,
	reinvestRule,
	{Name: "expense", Any: []string{"expense", "fee on", "adr mgmt fee", "adr fee", "service fee", "wire fee", "margin interest"}, Type: models.TypeFee},
	{Name: "foreign-tax", Any: []string{"nra tax", "foreign tax", "tax withh", "withholding"}, Type: models.TypeTax},
	{Name: "interest", Any: []string{"credit interest", "bank interest", "interest"}, Type: models.TypeInterest},
	{Name: "dividend", Any: []string{"dividend", "div/int", "qual div", "cash div"}, Type: models.TypeDividend},
	{Name: "sell", Any: []string{"sale", "sell", "sold"}, Words: true, Type: models.TypeSell},
	{Name: "buy", Any: []string{"purchase", "purchased", "buy", "bought"}, Words: true, Type: models.TypeBuy},
	{Name: "withdrawal", Any: []string{"withdrawal", "funds paid", "funds disbursed"}, Type: models.TypeWithdrawal},
	{Name: "deposit", Any: []string{"deposit", "funds received"}, Type: models.TypeDeposit},
	{Name: "journal", Any: []string{"journal"}, Type: models.TypeJournal},
	{Name: "transfer", Any: []string{"transfer", "tfrd", "moneylink"}, Type: models.TypeTransfer},
}

// TD Ameritrade prefixes every activity with "<category> - <subcategory>".
var tdaRules = append([]Rule{
	splitRule,
	reinvestRule,
	{Name: "tda-expense", Any: []string{"div/int - expense", "- expense"}, Type: models.TypeFee},
	{Name: "tda-buy", Any: []string{"securities purchased"}, None: []string{"reinvest"}, Type: models.TypeBuy},
	{Name: "tda-sell", Any: []string{"securities sold"}, Type: models.TypeSell},
	{Name: "tda-income", Any: []string{"div/int - income"}, None: []string{"interest"}, Type: models.TypeDividend},
}, usBrokerRules[2:]...)

var cathayRules = []Rule{
	{Name: "cathay-dividend", Any: []string{"股利", "配息"}, Type: models.TypeDividend},
	{Name: "cathay-sell", Any: []string{"現賣", "賣"}, Type: models.TypeSell},
	{Name: "cathay-buy", Any: []string{"現買", "買"}, Type: models.TypeBuy},
}
