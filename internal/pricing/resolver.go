package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoActivePricing indicates no active course/pricing configuration exists
// for the requested selector.
var ErrNoActivePricing = errors.New("no active pricing configuration")

// CourseReader is the reference-data dependency of the Resolver.
type CourseReader interface {
	GetCourse(ctx context.Context, courseID string) (*CoursePricing, error)
	GetCoupon(ctx context.Context, code string) (*Coupon, error)
}

// Input selects a price. Region must already be server-derived by the caller.
type Input struct {
	CourseID          string
	Region            string
	CouponCode        string
	EarlyBirdOverride *bool // nil means use the course flag
}

// Result is a fully resolved charge.
type Result struct {
	CourseID      string
	CohortID      string
	Region        string
	Currency      string
	Amount        int64 // minor units
	Display       string
	EarlyBird     bool
	CouponApplied string
}

// Resolver computes deterministic charge amounts. Same pricing row, region,
// clock and coupon row always yield the same result.
type Resolver struct {
	store   CourseReader
	nowFunc func() time.Time
}

func NewResolver(store CourseReader) *Resolver {
	return &Resolver{
		store:   store,
		nowFunc: time.Now,
	}
}

// Resolve computes the charge for in. Unknown or inactive coupon codes are
// ignored and pricing proceeds on the base amount.
func (r *Resolver) Resolve(ctx context.Context, in Input) (*Result, error) {
	course, err := r.store.GetCourse(ctx, in.CourseID)
	if err != nil {
		return nil, fmt.Errorf("resolve price: %w", err)
	}
	if course == nil || !course.Active {
		return nil, ErrNoActivePricing
	}

	currency := CurrencyForRegion(in.Region)
	tier, ok := course.Prices[currency]
	if !ok {
		return nil, ErrNoActivePricing
	}

	earlyBird := r.earlyBirdActive(course, in.EarlyBirdOverride)

	major := tier.Regular
	if earlyBird {
		major = tier.EarlyBird
	}
	amount := major * 100 // minor units

	res := &Result{
		CourseID:  course.CourseID,
		CohortID:  course.CohortID,
		Region:    in.Region,
		Currency:  currency,
		Amount:    amount,
		EarlyBird: earlyBird,
	}

	if in.CouponCode != "" {
		coupon, err := r.store.GetCoupon(ctx, in.CouponCode)
		// coupon lookup failures fall through to base pricing
		if err == nil && coupon != nil && coupon.Active {
			res.Amount = applyCoupon(res.Amount, coupon)
			res.CouponApplied = coupon.Code
		}
	}

	res.Display = FormatDisplay(res.Currency, res.Amount)
	return res, nil
}

// earlyBirdActive reproduces the course-flag semantics: with no end date
// configured the discount stays active; with one, it lapses at the cutoff.
func (r *Resolver) earlyBirdActive(course *CoursePricing, override *bool) bool {
	flag := course.EarlyBird
	if override != nil {
		flag = *override
	}
	if !flag {
		return false
	}
	if course.EarlyBirdEndDate == "" {
		return true
	}
	end, err := time.Parse(time.RFC3339, course.EarlyBirdEndDate)
	if err != nil {
		// unparseable cutoff behaves as no cutoff
		return true
	}
	return r.nowFunc().Before(end)
}

// applyCoupon discounts a minor-unit amount, clamped at zero.
func applyCoupon(amount int64, c *Coupon) int64 {
	switch c.Type {
	case CouponTypePercent:
		amount = amount * (100 - c.Value) / 100
	case CouponTypeFlat:
		amount -= c.Value * 100
	}
	if amount < 0 {
		return 0
	}
	return amount
}

// FormatDisplay renders a minor-unit amount for the UI, e.g. ₹6,499 or $79.
func FormatDisplay(currency string, amount int64) string {
	symbol := "$"
	if currency == CurrencyINR {
		symbol = "₹"
	}
	return symbol + groupDigits(amount/100)
}

func groupDigits(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}
