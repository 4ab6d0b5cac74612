package parser

import (
	"github.com/insightdelivered/broker-statement-converter/internal/models"
	"github.com/shopspring/decimal"
)

// Thresholds calibrate the quantity/price reconciler.
type Thresholds struct {
	// Tolerance is the largest relative error accepted between
	// quantity*price and |amount|.
	Tolerance decimal.Decimal
	// Below SmallAmount a small share count is preferred.
	SmallAmount decimal.Decimal
	// At or above SmallAmount, prices under PriceCeiling are preferred.
	PriceCeiling decimal.Decimal
	// FractionalQuantity is the share count below which a position is
	// considered fractional-sized.
	FractionalQuantity decimal.Decimal
	// Pairs whose relative errors differ by at most TieEpsilon are tied.
	TieEpsilon decimal.Decimal
}

// DefaultThresholds returns the stock calibration.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Tolerance:          decimal.RequireFromString("0.05"),
		SmallAmount:        decimal.NewFromInt(500),
		PriceCeiling:       decimal.NewFromInt(1000),
		FractionalQuantity: decimal.NewFromInt(10),
		TieEpsilon:         decimal.RequireFromString("0.005"),
	}
}

// Reconciliation is one (quantity, price) assignment of numeric tokens.
// Indexes refer to the token slice passed to the reconciler.
type Reconciliation struct {
	Quantity      decimal.Decimal
	Price         decimal.Decimal
	QuantityIndex int
	PriceIndex    int
	RelativeError decimal.Decimal
	Plausible     bool
	// BalanceIndex is the running balance discarded from the line, or -1.
	BalanceIndex int
}

// Reconciler chooses which tokens of a line are quantity and price.
type Reconciler struct {
	t Thresholds
}

func NewReconciler(t Thresholds) *Reconciler {
	return &Reconciler{t: t}
}

// Thresholds returns the reconciler's calibration.
func (r *Reconciler) Thresholds() Thresholds { return r.t }

// Candidates enumerates every ordered token pair whose product lies within
// tolerance of |amount|, in enumeration order. Zero tokens never take part.
func (r *Reconciler) Candidates(tokens []models.NumericToken, amount decimal.Decimal) []Reconciliation {
	abs := amount.Abs()
	if abs.IsZero() {
		return nil
	}

	var out []Reconciliation
	for i := range tokens {
		for j := range tokens {
			if i == j {
				continue
			}
			q, p := tokens[i].Abs(), tokens[j].Abs()
			if q.IsZero() || p.IsZero() {
				continue
			}
			relErr, _ := models.RelativeError(q.Mul(p), abs)
			if relErr.GreaterThan(r.t.Tolerance) {
				continue
			}
			out = append(out, Reconciliation{
				Quantity:      q,
				Price:         p,
				QuantityIndex: i,
				PriceIndex:    j,
				RelativeError: relErr,
				Plausible:     r.plausible(q, p, abs),
				BalanceIndex:  -1,
			})
		}
	}
	return out
}

// Reconcile returns the best-scoring pair. ok is false when no pair falls
// within tolerance, in which case the caller keeps only the amount.
//
// With three or more tokens the largest one is set aside as a running
// balance before pairing. It takes part only when no pair of the other
// tokens reconciles, in which case there is no balance on the line.
func (r *Reconciler) Reconcile(tokens []models.NumericToken, amount decimal.Decimal) (Reconciliation, bool) {
	if len(tokens) >= 3 {
		bal := largestIndex(tokens)
		rest := make([]models.NumericToken, 0, len(tokens)-1)
		rest = append(rest, tokens[:bal]...)
		rest = append(rest, tokens[bal+1:]...)
		if best, ok := r.best(rest, amount); ok {
			best.QuantityIndex = skipIndex(best.QuantityIndex, bal)
			best.PriceIndex = skipIndex(best.PriceIndex, bal)
			best.BalanceIndex = bal
			return best, true
		}
	}
	return r.best(tokens, amount)
}

func (r *Reconciler) best(tokens []models.NumericToken, amount decimal.Decimal) (Reconciliation, bool) {
	cands := r.Candidates(tokens, amount)
	if len(cands) == 0 {
		return Reconciliation{BalanceIndex: -1}, false
	}

	best := cands[0]
	for _, c := range cands[1:] {
		if r.better(c, best) {
			best = c
		}
	}
	return best, true
}

func (r *Reconciler) plausible(qty, price, absAmount decimal.Decimal) bool {
	if absAmount.LessThan(r.t.SmallAmount) {
		return qty.LessThan(r.t.FractionalQuantity)
	}
	return price.LessThan(r.t.PriceCeiling)
}

// better reports whether a outranks b. Candidates that do not outrank the
// current best keep their earlier enumeration position.
func (r *Reconciler) better(a, b Reconciliation) bool {
	if a.Plausible != b.Plausible {
		return a.Plausible
	}
	if a.RelativeError.Sub(b.RelativeError).Abs().LessThanOrEqual(r.t.TieEpsilon) {
		aWhole, bWhole := a.Quantity.IsInteger(), b.Quantity.IsInteger()
		if aWhole != bWhole {
			return aWhole
		}
	}
	return a.RelativeError.LessThan(b.RelativeError)
}

// largestIndex returns the index of the token with the largest magnitude;
// the first one wins a tie.
func largestIndex(tokens []models.NumericToken) int {
	largest := 0
	for i, t := range tokens {
		if t.Abs().GreaterThan(tokens[largest].Abs()) {
			largest = i
		}
	}
	return largest
}

// skipIndex maps an index into tokens-without-removed back to tokens.
func skipIndex(i, removed int) int {
	if i >= removed {
		return i + 1
	}
	return i
}
