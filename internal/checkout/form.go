// Package checkout validates plan purchases and gates them behind email
// verification.
package checkout

import (
	"regexp"
	"strings"

	"github.com/applywizz/portal/internal/config"
	svcerrors "github.com/applywizz/portal/internal/errors"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[0-9]{7,15}$`)
	codePattern  = regexp.MustCompile(`^[0-9]{6}$`)
)

// Field messages shown next to form inputs.
const (
	MsgEmailFirst   = "Please enter a valid email first"
	MsgVerifyEmail  = "Please verify your email address via OTP"
	MsgCodeRequired = "Please enter the 6-digit code"
)

// Form is the checkout form a customer fills in for a plan.
type Form struct {
	FullName     string `json:"full_name"`
	Email        string `json:"email"`
	CountryCode  string `json:"country_code"`
	MobileNumber string `json:"mobile_number"`
	Gender       string `json:"gender"`
	PromoCode    string `json:"promo_code,omitempty"`
	Location     string `json:"location"`
	Country      string `json:"country"`
	AgreeToTerms bool   `json:"agree_to_terms"`
	PlanID       string `json:"plan_id"`
}

// NewForm returns a form with the defaults the checkout page starts from.
func NewForm(planID string) Form {
	return Form{CountryCode: "+1", Location: "US", Country: "US", PlanID: planID}
}

// ValidEmail reports whether s looks like an email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// ValidCode reports whether s is a six digit code.
func ValidCode(s string) bool {
	return codePattern.MatchString(s)
}

// Validate returns every field problem. A nil catalog skips the plan check.
func (f Form) Validate(cat *config.Catalog) svcerrors.FieldErrors {
	errs := svcerrors.FieldErrors{}

	name := strings.TrimSpace(f.FullName)
	switch {
	case name == "":
		errs["full_name"] = "Full name is required"
	case len([]rune(name)) < 3:
		errs["full_name"] = "Full name must be at least 3 characters"
	}

	switch {
	case strings.TrimSpace(f.Email) == "":
		errs["email"] = "Email is required"
	case !ValidEmail(f.Email):
		errs["email"] = "Please enter a valid email address"
	}

	if f.Gender == "" {
		errs["gender"] = "Gender is required"
	}

	switch {
	case strings.TrimSpace(f.MobileNumber) == "":
		errs["mobile_number"] = "Mobile number is required"
	case !phonePattern.MatchString(f.MobileNumber):
		errs["mobile_number"] = "Please enter a valid mobile number (7-15 digits)"
	}

	if !f.AgreeToTerms {
		errs["agree_to_terms"] = "You must accept the terms and conditions"
	}

	if cat != nil {
		if _, ok := cat.Plan(f.PlanID); !ok {
			errs["plan_id"] = "Please choose a plan"
		}
	}
	return errs
}

// ApplyCountryCode sets the dialling code and, when the catalog knows it,
// the matching country and location.
func (f *Form) ApplyCountryCode(cat *config.Catalog, code string) {
	f.CountryCode = code
	if cat == nil {
		return
	}
	if cc, ok := cat.CountryCode(code); ok {
		f.Country = cc.Country
		f.Location = cc.Location
	}
}
