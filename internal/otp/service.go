// Package otp sends and verifies email one-time passcodes through the
// send-otp and verify-otp edge functions.
package otp

import (
	"context"
	"fmt"
	"strings"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/supabase"
	"github.com/applywizz/portal/pkg/logger"
)

const (
	sendFunction   = "send-otp"
	verifyFunction = "verify-otp"

	// MsgSendFailed is used when the channel gives no reason.
	MsgSendFailed = "Failed to send OTP"
	// MsgInvalid is the only message a failed verification ever surfaces.
	MsgInvalid = "Invalid or expired OTP"
)

// Invoker calls an edge function. *supabase.FunctionsClient implements it.
type Invoker interface {
	Invoke(ctx context.Context, name string, body, out any) error
}

type result struct {
	Success bool   `json:"success"`
	Hash    string `json:"hash"`
	Error   string `json:"error"`
}

// Service is the OTP channel.
type Service struct {
	fn  Invoker
	log *logger.Logger
}

// New creates an OTP service.
func New(fn Invoker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("otp")
	}
	return &Service{fn: fn, log: log}
}

// Send asks the channel to email a code to email and returns the opaque hash
// the channel needs back at verification.
func (s *Service) Send(ctx context.Context, email string) (string, error) {
	email = strings.TrimSpace(email)

	var res result
	if err := s.fn.Invoke(ctx, sendFunction, map[string]string{"email": email}, &res); err != nil {
		s.log.WithContext(ctx).WithError(err).Warn("send otp failed")
		msg := MsgSendFailed + ". Please try again."
		if e, ok := supabase.AsError(err); ok && e.Message != "" {
			msg = e.Message
		}
		return "", svcerrors.Upstream(msg, err)
	}
	if !res.Success {
		msg := res.Error
		if msg == "" {
			msg = MsgSendFailed
		}
		return "", svcerrors.Upstream(msg, fmt.Errorf("send-otp rejected"))
	}

	s.log.WithContext(ctx).Info("otp sent")
	return res.Hash, nil
}

// Verify checks code against the hash returned by Send. Every failure,
// including transport errors, reports MsgInvalid.
func (s *Service) Verify(ctx context.Context, email, code, hash string) error {
	body := map[string]string{"email": strings.TrimSpace(email), "otp": code, "hash": hash}

	var res result
	err := s.fn.Invoke(ctx, verifyFunction, body, &res)
	if err == nil && !res.Success {
		err = fmt.Errorf("verify-otp rejected: %s", res.Error)
	}
	if err != nil {
		s.log.WithContext(ctx).WithError(err).Info("otp verification failed")
		return svcerrors.Validation(svcerrors.FieldErrors{"otp": MsgInvalid})
	}
	return nil
}
