package checkout

import (
	"context"
	"strings"
	"time"

	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/pkg/logger"
)

// GatewaySource provides the live payment settings and prices.
// *admin.Service implements it.
type GatewaySource interface {
	PaymentSettings(ctx context.Context) domain.PaymentSettings
	Pricing(ctx context.Context) domain.Pricing
}

// Intent is everything the payment page needs to start a payment.
type Intent struct {
	Customer Form                   `json:"customer"`
	Plan     config.Plan            `json:"plan"`
	Price    string                 `json:"price"`
	Gateway  domain.PaymentSettings `json:"gateway"`
}

// Service runs the stateless checkout API.
type Service struct {
	otp      OTPChannel
	verifier *Verifier
	gateways GatewaySource
	catalog  *config.Catalog
	log      *logger.Logger
}

// NewService wires a checkout service.
func NewService(channel OTPChannel, verifier *Verifier, gateways GatewaySource, cat *config.Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("checkout")
	}
	if cat == nil {
		cat = config.DefaultCatalog()
	}
	return &Service{otp: channel, verifier: verifier, gateways: gateways, catalog: cat, log: log}
}

// SendOTP validates email and asks the channel for a code.
func (s *Service) SendOTP(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return "", svcerrors.Validation(svcerrors.FieldErrors{"email": MsgEmailFirst})
	}
	return s.otp.Send(ctx, email)
}

// VerifyOTP checks a code and, on success, returns a verification token
// bound to email.
func (s *Service) VerifyOTP(ctx context.Context, email, code, hash string) (string, time.Time, error) {
	email = strings.TrimSpace(email)
	if !ValidEmail(email) {
		return "", time.Time{}, svcerrors.Validation(svcerrors.FieldErrors{"email": MsgEmailFirst})
	}
	if !ValidCode(code) {
		return "", time.Time{}, svcerrors.Validation(svcerrors.FieldErrors{"otp": MsgCodeRequired})
	}
	if err := s.otp.Verify(ctx, email, code, hash); err != nil {
		return "", time.Time{}, err
	}
	token, exp, err := s.verifier.Issue(email)
	if err != nil {
		return "", time.Time{}, svcerrors.Internal("issue verification token", err)
	}
	s.log.WithContext(ctx).Info("email verified for checkout")
	return token, exp, nil
}

// CreateIntent validates form, checks the verification token belongs to
// the form's email, and resolves the plan price and active gateway.
func (s *Service) CreateIntent(ctx context.Context, form Form, token string) (Intent, error) {
	if cc, ok := s.catalog.CountryCode(form.CountryCode); ok {
		form.Country, form.Location = cc.Country, cc.Location
	}
	if errs := form.Validate(s.catalog); len(errs) > 0 {
		return Intent{}, svcerrors.Validation(errs)
	}
	if err := s.verifier.Check(token, form.Email); err != nil {
		return Intent{}, err
	}

	plan, _ := s.catalog.Plan(form.PlanID)
	price := s.gateways.Pricing(ctx)[plan.ID]
	if price == "" {
		price = plan.DefaultPrice
	}
	intent := Intent{
		Customer: form,
		Plan:     plan,
		Price:    price,
		Gateway:  s.gateways.PaymentSettings(ctx),
	}
	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"plan":    plan.ID,
		"method":  intent.Gateway.Method,
		"account": intent.Gateway.Account,
	}).Info("checkout intent created")
	return intent, nil
}
