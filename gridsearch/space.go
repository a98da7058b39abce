package gridsearch

import (
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/arima"
)

// Range is a half-open integer range [From, To).
type Range struct {
	From int
	To   int
}

// Len returns the number of values in the range.
func (r Range) Len() int {
	if r.To <= r.From {
		return 0
	}
	return r.To - r.From
}

// Values returns the range as a slice.
func (r Range) Values() []int {
	out := make([]int, 0, r.Len())
	for v := r.From; v < r.To; v++ {
		out = append(out, v)
	}
	return out
}

// Space is the candidate grid and its parameter budget.
type Space struct {
	P, D, Q   Range
	MaxParams int
}

// DefaultSpace returns p in [0,10), d in [0,2), q in [0,10) with the given
// budget.
func DefaultSpace(maxParams int) Space {
	return Space{
		P:         Range{0, 10},
		D:         Range{0, 2},
		Q:         Range{0, 10},
		MaxParams: maxParams,
	}
}

// Size returns the number of combinations, including ones over budget.
func (s Space) Size() int {
	return s.P.Len() * s.D.Len() * s.Q.Len()
}

// Orders enumerates the grid with p outer, d middle and q inner.
func (s Space) Orders() []arima.Order {
	out := make([]arima.Order, 0, s.Size())
	for _, p := range s.P.Values() {
		for _, d := range s.D.Values() {
			for _, q := range s.Q.Values() {
				out = append(out, arima.Order{P: p, D: d, Q: q})
			}
		}
	}
	return out
}

// Admits reports whether order fits within the parameter budget.
func (s Space) Admits(order arima.Order) bool {
	return order.TotalParams() <= s.MaxParams
}

// Budget returns min(limit, floor(ratio*length)), the parameter budget for a
// training series of the given length.
func Budget(length, limit int, ratio float64) int {
	b := int(math.Floor(ratio * float64(length)))
	if b > limit {
		return limit
	}
	return b
}
