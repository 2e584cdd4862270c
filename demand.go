package rivulet

import (
	"math"
	"math/bits"
	"strconv"
)

// Demand is the number of values a subscriber is willing to accept.
//
// The zero value is no demand.
// Demand is additive and saturating:
// any sum that does not fit becomes [Unlimited],
// and Unlimited absorbs every further addition or decrement.
type Demand struct {
	n uint64
}

// None is the zero Demand.
var None Demand

// Unlimited is demand with no upper bound.
var Unlimited = Demand{n: math.MaxUint64}

// Max returns a Demand for at most n values.
// Max(math.MaxUint64) is [Unlimited].
func Max(n uint64) Demand {
	return Demand{n: n}
}

// IsZero reports whether d permits no values.
func (d Demand) IsZero() bool {
	return d.n == 0
}

// IsUnlimited reports whether d has no upper bound.
func (d Demand) IsUnlimited() bool {
	return d.n == math.MaxUint64
}

// Count returns the bounded count of d.
// If d is unlimited, ok is false and n is meaningless.
func (d Demand) Count() (n uint64, ok bool) {
	if d.IsUnlimited() {
		return 0, false
	}
	return d.n, true
}

// Add returns the saturating sum of d and o.
func (d Demand) Add(o Demand) Demand {
	sum, carry := bits.Add64(d.n, o.n, 0)
	if carry != 0 {
		return Unlimited
	}
	return Demand{n: sum}
}

// Decrement returns d reduced by one delivered value.
// Zero and unlimited demand are returned unchanged.
func (d Demand) Decrement() Demand {
	if d.n == 0 || d.IsUnlimited() {
		return d
	}
	return Demand{n: d.n - 1}
}

func (d Demand) String() string {
	if d.IsUnlimited() {
		return "unlimited"
	}
	return strconv.FormatUint(d.n, 10)
}
