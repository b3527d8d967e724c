// Package catalog narrows and orders the marketplace listing. Everything
// here is pure: the same items and options always give the same result.
package catalog

import (
	"net/url"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/erazemk/resale/internal/model"
)

// All disables a selector.
const All = "all"

// DefaultMaxPrice is the top of the price slider.
var DefaultMaxPrice = decimal.NewFromInt(1000)

// Options is the active predicate set. PriceRange is a closed interval.
type Options struct {
	Condition  string
	Category   string
	PriceRange [2]decimal.Decimal
	Location   string
}

// DefaultFilters selects everything priced within the slider range.
func DefaultFilters() Options {
	return Options{
		Condition:  All,
		Category:   All,
		PriceRange: [2]decimal.Decimal{decimal.Zero, DefaultMaxPrice},
		Location:   All,
	}
}

// WithMaxPrice returns o with the upper price bound set to hi.
func (o Options) WithMaxPrice(hi decimal.Decimal) Options {
	o.PriceRange[1] = hi
	return o
}

// Matches reports whether it satisfies every active predicate.
func (o Options) Matches(it model.Item) bool {
	if o.Condition != All && it.Condition != o.Condition {
		return false
	}
	if o.Category != All && it.Category != o.Category {
		return false
	}
	if it.Price.LessThan(o.PriceRange[0]) || it.Price.GreaterThan(o.PriceRange[1]) {
		return false
	}
	if o.Location != All && it.Location != o.Location {
		return false
	}
	return true
}

// Filter returns the items matching opts, in input order. The result is
// never nil.
func Filter(items []model.Item, opts Options) []model.Item {
	out := make([]model.Item, 0, len(items))
	for _, it := range items {
		if opts.Matches(it) {
			out = append(out, it)
		}
	}
	return out
}

// Query converts the active predicates into GET /api/items parameters so
// the backend can narrow the listing before it is sent.
func Query(opts Options) url.Values {
	q := url.Values{}
	if opts.Condition != All && opts.Condition != "" {
		q.Set("condition", opts.Condition)
	}
	if opts.Category != All && opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if opts.Location != All && opts.Location != "" {
		q.Set("location", opts.Location)
	}
	if opts.PriceRange[0].IsPositive() {
		q.Set("minPrice", opts.PriceRange[0].String())
	}
	q.Set("maxPrice", opts.PriceRange[1].String())
	return q
}

// SortOrder selects a listing order.
type SortOrder int

// Sort orders.
const (
	SortNewest SortOrder = iota
	SortPriceLowHigh
	SortPriceHighLow
	SortCondition
)

var sortNames = map[string]SortOrder{
	"newest":     SortNewest,
	"price-asc":  SortPriceLowHigh,
	"price-desc": SortPriceHighLow,
	"condition":  SortCondition,
}

// ParseSort resolves a sort name; ok is false for unknown names.
func ParseSort(name string) (order SortOrder, ok bool) {
	order, ok = sortNames[name]
	return order, ok
}

// conditionRank orders conditions from best to worst.
var conditionRank = map[string]int{
	model.ConditionNew:     0,
	model.ConditionLikeNew: 1,
	model.ConditionOpenBox: 2,
	model.ConditionUsed:    3,
	model.ConditionDamaged: 4,
}

func rank(c string) int {
	if r, ok := conditionRank[c]; ok {
		return r
	}
	return len(conditionRank)
}

// Sort returns a sorted copy of items. Ties keep their input order.
func Sort(items []model.Item, order SortOrder) []model.Item {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b model.Item) int {
		switch order {
		case SortPriceLowHigh:
			return a.Price.Cmp(b.Price)
		case SortPriceHighLow:
			return b.Price.Cmp(a.Price)
		case SortCondition:
			return rank(a.Condition) - rank(b.Condition)
		default:
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	})
	return out
}
