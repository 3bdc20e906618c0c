package pricing

// Supported regions and currencies. Region selection is server-authoritative;
// see handlers for how region is derived.
const (
	RegionIN = "IN"
	RegionUS = "US"

	CurrencyINR = "INR"
	CurrencyUSD = "USD"
)

// Coupon discount types
const (
	CouponTypePercent = "percent"
	CouponTypeFlat    = "flat"
)

// PriceTier holds the two price points for one currency, in major units.
type PriceTier struct {
	Regular   int64 `dynamodbav:"regular"`
	EarlyBird int64 `dynamodbav:"early_bird"`
}

// CoursePricing is the item stored in the courses DynamoDB table.
type CoursePricing struct {
	CourseID         string               `dynamodbav:"course_id"` // PK
	CohortID         string               `dynamodbav:"cohort_id,omitempty"`
	Active           bool                 `dynamodbav:"active"`
	Prices           map[string]PriceTier `dynamodbav:"prices"` // currency -> tier
	EarlyBird        bool                 `dynamodbav:"early_bird"`
	EarlyBirdEndDate string               `dynamodbav:"early_bird_end_date,omitempty"` // RFC3339; empty means no cutoff
}

// Coupon is the item stored in the coupons DynamoDB table, keyed by
// lower-cased code.
type Coupon struct {
	Code   string `dynamodbav:"code"` // PK
	Type   string `dynamodbav:"type"` // percent | flat
	Value  int64  `dynamodbav:"value"`
	Active bool   `dynamodbav:"active"`
}

// CurrencyForRegion maps a region to its charge currency.
func CurrencyForRegion(region string) string {
	if region == RegionIN {
		return CurrencyINR
	}
	return CurrencyUSD
}
