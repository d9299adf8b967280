package admin

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
)

var pricePattern = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)

// Default gateway used when settings cannot be read.
const (
	DefaultMethod  = "paypal"
	DefaultAccount = "dubai"
)

// GatewayOption is a catalog gateway with its active flag.
type GatewayOption struct {
	config.Gateway
	Active bool `json:"active"`
}

// PaymentSettings returns the active gateway. Read failures fall back to the
// default gateway so checkout keeps working.
func (s *Service) PaymentSettings(ctx context.Context) domain.PaymentSettings {
	out := domain.PaymentSettings{Method: DefaultMethod, Account: DefaultAccount}
	values, err := s.store.GetSettings(ctx, domain.SettingPaymentMethod, domain.SettingPaymentAccount)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("fetch payment settings")
		return out
	}
	if v := values[domain.SettingPaymentMethod]; v != "" {
		out.Method = v
	}
	if v := values[domain.SettingPaymentAccount]; v != "" {
		out.Account = v
	}
	return out
}

// UpdatePaymentSettings switches the active gateway. Both keys are written in
// one atomic store operation; unknown pairs are rejected before any write.
func (s *Service) UpdatePaymentSettings(ctx context.Context, method, account string) (domain.PaymentSettings, error) {
	method = strings.ToLower(strings.TrimSpace(method))
	account = strings.ToLower(strings.TrimSpace(account))
	if !s.catalog.HasGateway(method, account) {
		return domain.PaymentSettings{}, svcerrors.Validation(svcerrors.FieldErrors{
			"gateway": fmt.Sprintf("unknown payment gateway %s/%s", method, account),
		})
	}

	err := s.store.UpsertSettings(ctx, map[string]string{
		domain.SettingPaymentMethod:  method,
		domain.SettingPaymentAccount: account,
	})
	if err != nil {
		return domain.PaymentSettings{}, svcerrors.Upstream("Failed to update payment settings", err)
	}

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"method":  method,
		"account": account,
	}).Info("payment gateway switched")
	return domain.PaymentSettings{Method: method, Account: account}, nil
}

// Gateways lists every configured gateway, marking the active one.
func (s *Service) Gateways(ctx context.Context) []GatewayOption {
	active := s.PaymentSettings(ctx)
	out := make([]GatewayOption, 0, len(s.catalog.Gateways))
	for _, g := range s.catalog.Gateways {
		out = append(out, GatewayOption{
			Gateway: g,
			Active:  g.Method == active.Method && g.Account == active.Account,
		})
	}
	return out
}

// Pricing returns the price of every plan, keyed by plan id. Missing values
// and read failures use the catalog defaults.
func (s *Service) Pricing(ctx context.Context) domain.Pricing {
	out := make(domain.Pricing, len(s.catalog.Plans))
	keys := make([]string, 0, len(s.catalog.Plans))
	for _, p := range s.catalog.Plans {
		out[p.ID] = p.DefaultPrice
		keys = append(keys, p.SettingKey)
	}

	values, err := s.store.GetSettings(ctx, keys...)
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Error("fetch pricing settings")
		return out
	}
	for _, p := range s.catalog.Plans {
		if v := values[p.SettingKey]; v != "" {
			out[p.ID] = v
		}
	}
	return out
}

// validPrice accepts plain decimals with at most two fractional digits.
func validPrice(raw string) bool {
	if !pricePattern.MatchString(raw) {
		return false
	}
	f, err := strconv.ParseFloat(raw, 64)
	return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

// UpdatePricing stores a price for every plan in one atomic write.
func (s *Service) UpdatePricing(ctx context.Context, prices domain.Pricing) (domain.Pricing, error) {
	errs := svcerrors.FieldErrors{}
	for id := range prices {
		if _, ok := s.catalog.Plan(id); !ok {
			errs[id] = "unknown plan"
		}
	}

	values := make(map[string]string, len(s.catalog.Plans))
	out := make(domain.Pricing, len(s.catalog.Plans))
	for _, p := range s.catalog.Plans {
		raw := strings.TrimSpace(prices[p.ID])
		if raw == "" {
			errs[p.ID] = "Price is required"
			continue
		}
		if !validPrice(raw) {
			errs[p.ID] = "Price must be a positive number"
			continue
		}
		values[p.SettingKey] = raw
		out[p.ID] = raw
	}
	if len(errs) > 0 {
		return nil, svcerrors.Validation(errs)
	}

	if err := s.store.UpsertSettings(ctx, values); err != nil {
		return nil, svcerrors.Upstream("Failed to update pricing", err)
	}
	s.log.WithContext(ctx).WithField("prices", out).Info("pricing updated")
	return out, nil
}
