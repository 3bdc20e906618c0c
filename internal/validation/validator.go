package validation

import (
	"regexp"

	validatorv10 "github.com/go-playground/validator/v10"
)

var couponCodeRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// New returns a configured validator with custom rules registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// coupon codes: short alphanumeric tokens, looked up case-insensitively
	_ = v.RegisterValidation("couponcode", func(fl validatorv10.FieldLevel) bool {
		return couponCodeRe.MatchString(fl.Field().String())
	})

	return v
}
