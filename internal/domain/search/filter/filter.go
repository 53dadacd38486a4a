package filter

import (
	"fmt"

	"github.com/campushq/unidex/internal/domain"
)

// MaxConditions is the maximum number of conditions per search request.
const MaxConditions = 32

// Conditions is a conjunction: a document survives only if every
// condition matches.
type Conditions []Condition

// NewConditions validates a conjunction.
func NewConditions(conds []Condition) (Conditions, error) {
	if len(conds) > MaxConditions {
		return nil, fmt.Errorf("too many filter conditions (max %d): %w", MaxConditions, domain.ErrInvalidFilter)
	}
	return Conditions(conds), nil
}

// IsEmpty reports whether there are no conditions.
func (c Conditions) IsEmpty() bool { return len(c) == 0 }

// Condition is a single filter clause: either an exact tag match or a
// numeric range.
type Condition struct {
	key       string
	match     string
	rangeExpr *Range
}

// NewMatch creates an exact tag match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required: %w", domain.ErrInvalidFilter)
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q: %w", key, domain.ErrInvalidFilter)
	}
	return Condition{key: key, match: match}, nil
}

// NewRange creates a numeric range condition.
func NewRange(key string, r Range) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required: %w", domain.ErrInvalidFilter)
	}
	return Condition{key: key, rangeExpr: &r}, nil
}

// Key returns the attribute name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Range returns the numeric range expression.
func (c Condition) Range() *Range { return c.rangeExpr }

// IsMatch reports whether this is a match condition.
func (c Condition) IsMatch() bool { return c.match != "" }

// IsRange reports whether this is a range condition.
func (c Condition) IsRange() bool { return c.rangeExpr != nil }

// MatchesTag evaluates a match condition against a tag value.
func (c Condition) MatchesTag(v string, present bool) bool {
	return present && v == c.match
}

// MatchesNumeric evaluates a range condition against a numeric value.
func (c Condition) MatchesNumeric(v float64, present bool) bool {
	if !present || c.rangeExpr == nil {
		return false
	}
	return c.rangeExpr.Contains(v)
}

// Range is a numeric range with gt/gte/lt/lte boundaries.
type Range struct {
	gt  *float64
	gte *float64
	lt  *float64
	lte *float64
}

// NewRangeExpr validates and creates a Range.
// At least one boundary required. gt/gte and lt/lte are mutually exclusive.
func NewRangeExpr(gt, gte, lt, lte *float64) (Range, error) {
	if gt == nil && gte == nil && lt == nil && lte == nil {
		return Range{}, fmt.Errorf("at least one range boundary is required: %w", domain.ErrInvalidFilter)
	}
	if gt != nil && gte != nil {
		return Range{}, fmt.Errorf("cannot specify both gt and gte: %w", domain.ErrInvalidFilter)
	}
	if lt != nil && lte != nil {
		return Range{}, fmt.Errorf("cannot specify both lt and lte: %w", domain.ErrInvalidFilter)
	}
	return Range{gt: gt, gte: gte, lt: lt, lte: lte}, nil
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v float64) bool {
	if r.gt != nil && !(v > *r.gt) {
		return false
	}
	if r.gte != nil && !(v >= *r.gte) {
		return false
	}
	if r.lt != nil && !(v < *r.lt) {
		return false
	}
	if r.lte != nil && !(v <= *r.lte) {
		return false
	}
	return true
}
