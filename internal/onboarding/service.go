package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/applywizz/portal/internal/applywizz"
	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/objectstore"
	"github.com/applywizz/portal/internal/storage"
	"github.com/applywizz/portal/pkg/logger"
)

// User-facing messages.
const (
	MsgClientNotFound = "No client found with this JB ID"
	MsgJBIDRequired   = "Please enter a JB ID"
	MsgResumeRequired = "Please upload a resume file."
)

// TransactionLookup finds the purchase behind a JB id.
type TransactionLookup interface {
	GetTransactionByJBID(ctx context.Context, jbID string) (domain.Transaction, error)
}

// ResumeUploader stores a resume and returns its object key.
type ResumeUploader interface {
	Upload(ctx context.Context, f *objectstore.File, jbID string) (string, error)
}

// Onboarder receives completed profiles.
type Onboarder interface {
	DirectOnboard(ctx context.Context, req applywizz.DirectOnboardRequest) (json.RawMessage, error)
}

// Service prefills and submits onboarding profiles.
type Service struct {
	txs     TransactionLookup
	resumes ResumeUploader
	api     Onboarder
	catalog *config.Catalog
	log     *logger.Logger
	now     func() time.Time

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates the onboarding service.
func NewService(txs TransactionLookup, resumes ResumeUploader, api Onboarder, cat *config.Catalog, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("onboarding")
	}
	if cat == nil {
		cat = config.DefaultCatalog()
	}
	return &Service{
		txs:      txs,
		resumes:  resumes,
		api:      api,
		catalog:  cat,
		log:      log,
		now:      time.Now,
		inflight: make(map[string]struct{}),
	}
}

// Prefill loads the purchase for jbID, decoding link-obfuscated ids first.
// It returns the decoded id alongside the profile.
func (s *Service) Prefill(ctx context.Context, rawJBID string) (string, Profile, error) {
	jbID := strings.TrimSpace(DecodeJBID(strings.TrimSpace(rawJBID)))
	if jbID == "" {
		return "", Profile{}, svcerrors.Validation(svcerrors.FieldErrors{"jb_id": MsgJBIDRequired})
	}

	tx, err := s.txs.GetTransactionByJBID(ctx, jbID)
	if errors.Is(err, storage.ErrNotFound) {
		return jbID, Profile{}, svcerrors.NotFound(MsgClientNotFound)
	}
	if err != nil {
		s.log.WithContext(ctx).WithError(err).WithField("jb_id", jbID).Error("prefill lookup failed")
		return jbID, Profile{}, svcerrors.Internal("Failed to load client details", err)
	}

	s.log.WithContext(ctx).WithField("jb_id", jbID).Info("onboarding prefilled")
	return jbID, Prefill(tx, s.now()), nil
}

// Submit validates p (which includes its JB id), uploads resume when given,
// and posts the profile once.
// A new resume replaces p.ResumeURL; without one p.ResumeURL must already
// point at an uploaded resume.
func (s *Service) Submit(ctx context.Context, p Profile, resume *objectstore.File) (*Submission, error) {
	sub := NewSubmission()
	if err := sub.Edit(p); err != nil {
		return sub, err
	}

	if errs := p.Validate(s.catalog); len(errs) > 0 {
		err := svcerrors.Validation(errs)
		sub.Fail(err)
		return sub, err
	}

	jbID := strings.TrimSpace(p.ApplywizzID)
	if !s.acquire(jbID) {
		err := svcerrors.Conflict("Submission is already in progress")
		sub.Fail(err)
		return sub, err
	}
	defer s.release(jbID)

	if err := sub.Begin(); err != nil {
		return sub, err
	}

	log := s.log.WithContext(ctx).WithField("jb_id", jbID)

	resumeKey := strings.TrimSpace(p.ResumeURL)
	switch {
	case resume != nil:
		key, err := s.resumes.Upload(ctx, resume, jbID)
		if err != nil {
			sub.Fail(err)
			return sub, err
		}
		resumeKey = key
	case resumeKey == "":
		err := svcerrors.Validation(svcerrors.FieldErrors{"resume": MsgResumeRequired})
		sub.Fail(err)
		return sub, err
	}

	result, err := s.api.DirectOnboard(ctx, BuildPayload(p, resumeKey))
	if err != nil {
		log.WithError(err).Warn("onboarding submission failed")
		sub.ResumeKey = resumeKey
		sub.Fail(err)
		return sub, err
	}

	sub.Complete(resumeKey, result)
	log.WithField("resume_key", resumeKey).Info("onboarding submitted")
	return sub, nil
}

func (s *Service) acquire(jbID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[jbID]; busy {
		return false
	}
	s.inflight[jbID] = struct{}{}
	return true
}

func (s *Service) release(jbID string) {
	s.mu.Lock()
	delete(s.inflight, jbID)
	s.mu.Unlock()
}
