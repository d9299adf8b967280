package checkout

import (
	"context"
	"errors"

	"github.com/applywizz/portal/internal/config"
	svcerrors "github.com/applywizz/portal/internal/errors"
)

// ErrCodeIncomplete is returned by VerifyCode when no full code was entered.
// No request is made.
var ErrCodeIncomplete = errors.New("otp code incomplete")

// OTPChannel sends and verifies codes. *otp.Service implements it.
type OTPChannel interface {
	Send(ctx context.Context, email string) (string, error)
	Verify(ctx context.Context, email, code, hash string) error
}

// OTPState tracks one customer's progress through email verification.
type OTPState struct {
	Sent     bool   `json:"sent"`
	Verified bool   `json:"verified"`
	Hash     string `json:"-"`
	Value    string `json:"value"`
	Error    string `json:"error,omitempty"`
}

// Flow is the checkout state machine for a single customer session. The
// HTTP API is stateless and hands the same transitions to the client; Flow
// is for callers that hold the state server side.
type Flow struct {
	Form   Form
	OTP    OTPState
	Errors svcerrors.FieldErrors

	channel OTPChannel
	catalog *config.Catalog
}

// NewFlow starts a flow for planID.
func NewFlow(channel OTPChannel, cat *config.Catalog, planID string) *Flow {
	return &Flow{
		Form:    NewForm(planID),
		Errors:  svcerrors.FieldErrors{},
		channel: channel,
		catalog: cat,
	}
}

// SetEmail changes the email. Any verification progress belongs to the old
// address and is discarded.
func (f *Flow) SetEmail(email string) {
	f.Form.Email = email
	f.OTP = OTPState{}
	delete(f.Errors, "email")
}

// SetCountryCode updates the dialling code and derived country/location.
func (f *Flow) SetCountryCode(code string) {
	f.Form.ApplyCountryCode(f.catalog, code)
}

// SendCode requests a code for the current email. An invalid email is
// reported on the field without contacting the channel.
func (f *Flow) SendCode(ctx context.Context) error {
	if !ValidEmail(f.Form.Email) {
		f.Errors["email"] = MsgEmailFirst
		return svcerrors.Validation(svcerrors.FieldErrors{"email": MsgEmailFirst})
	}

	f.OTP.Error = ""
	hash, err := f.channel.Send(ctx, f.Form.Email)
	if err != nil {
		f.OTP.Error = errorMessage(err)
		return err
	}
	f.OTP.Sent = true
	f.OTP.Hash = hash
	delete(f.Errors, "email")
	return nil
}

// SetCode records the code typed by the customer.
func (f *Flow) SetCode(code string) {
	f.OTP.Value = code
}

// VerifyCode checks the entered code.
func (f *Flow) VerifyCode(ctx context.Context) error {
	if !ValidCode(f.OTP.Value) {
		return ErrCodeIncomplete
	}
	f.OTP.Error = ""
	if err := f.channel.Verify(ctx, f.Form.Email, f.OTP.Value, f.OTP.Hash); err != nil {
		f.OTP.Error = errorMessage(err)
		return err
	}
	f.OTP.Verified = true
	return nil
}

// Submit validates the form and requires a verified email.
func (f *Flow) Submit() (Form, error) {
	errs := f.Form.Validate(f.catalog)
	f.Errors = errs
	if len(errs) > 0 {
		return Form{}, svcerrors.Validation(errs)
	}
	if !f.OTP.Verified {
		f.Errors["email"] = MsgVerifyEmail
		return Form{}, svcerrors.Validation(svcerrors.FieldErrors{"email": MsgVerifyEmail})
	}
	return f.Form, nil
}

func errorMessage(err error) string {
	if se := svcerrors.GetServiceError(err); se != nil {
		return se.Message
	}
	return err.Error()
}
