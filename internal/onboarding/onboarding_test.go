package onboarding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applywizz/portal/internal/applywizz"
	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/objectstore"
	"github.com/applywizz/portal/internal/storage/memory"
	"github.com/applywizz/portal/pkg/logger"
)

func TestDecodeJBID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"", ""},
		{"74-66-45-50", "JB-2"},
		{"JB-2", "JB-2"},
		{"12345", "〹"},
		{"74--66", "74--66"},
		{"74-66-", "74-66-"},
		{"0-74", "0-74"},
		{"9999999999-74", "9999999999-74"},
		{"55296", "55296"}, // surrogate half
		{"74 66", "74 66"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, DecodeJBID(tt.raw))
		})
	}
}

func TestEncodeJBIDRoundTrip(t *testing.T) {
	for _, id := range []string{"JB-2", "AW_1001", "jb-über"} {
		assert.Equal(t, id, DecodeJBID(EncodeJBID(id)))
	}
	assert.Equal(t, "74-66-45-50", EncodeJBID("JB-2"))
}

func TestNormalizeWorkPreference(t *testing.T) {
	tests := map[string]string{
		"remote":   "Remote",
		"HYBRID":   "Hybrid",
		"on-site":  "On-site",
		" all ":    "All",
		"":         "Remote",
		"onsite":   "Remote",
		"anywhere": "Remote",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeWorkPreference(in), in)
	}
}

func TestSplitRoles(t *testing.T) {
	assert.Equal(t, []string{"Backend Developer", "DevOps Engineer"}, SplitRoles(" Backend Developer, ,DevOps Engineer ,"))
	assert.Equal(t, []string{}, SplitRoles(""))
}

func TestPrefill(t *testing.T) {
	started := time.Date(2024, 5, 1, 22, 30, 0, 0, time.UTC)
	tx := domain.Transaction{
		JBID:         "JB-2",
		FullName:     "Ada Lovelace",
		Email:        "ada@example.com",
		MobileNumber: "5551234567",
		Gender:       "Female",
		Location:     "Dubai",
		Country:      "UAE",
		PlanStarted:  &started,
	}
	now := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)

	p := Prefill(tx, now)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.Equal(t, "ada@example.com", p.CompanyEmail)
	assert.Equal(t, "ada@example.com", p.PersonalEmail)
	assert.Equal(t, "JB-2", p.ApplywizzID)
	assert.Equal(t, "Dubai", p.StateOfResidence)
	assert.Equal(t, "UAE", p.ZipOrCountry)
	assert.Equal(t, "5551234567", p.WhatsappNumber)
	assert.Equal(t, "5551234567", p.CallablePhone)
	assert.Equal(t, "2024-05-01", p.StartDate)
	assert.Equal(t, []string{"job-links"}, p.AddOnsInfo)

	tx.PlanStarted = nil
	assert.Equal(t, "2025-01-09", Prefill(tx, now).StartDate)
}

func validProfile() Profile {
	p := NewProfile()
	p.FullName = "Ada Lovelace"
	p.PersonalEmail = "ada@example.com"
	p.CallablePhone = "5551234567"
	p.Experience = "5"
	p.ApplywizzID = "JB-2"
	p.VisaType = "H1B"
	p.JobRolePreferences = []string{"Data Analyst"}
	return p
}

func TestProfileValidate(t *testing.T) {
	cat := config.DefaultCatalog()
	assert.Empty(t, validProfile().Validate(cat))

	errs := NewProfile().Validate(cat)
	for _, field := range []string{"full_name", "company_email", "whatsapp_number", "experience", "applywizz_id", "visa_type", "job_role_preferences"} {
		assert.Contains(t, errs, field)
	}

	p := validProfile()
	p.VisaType = "Tourist"
	p.JobRolePreferences = []string{"Astronaut"}
	p.CompanyEmail = "not-an-email"
	errs = p.Validate(cat)
	assert.Equal(t, "Please select a valid work authorization", errs["visa_type"])
	assert.Equal(t, "Unknown job role: Astronaut", errs["job_role_preferences"])
	assert.Equal(t, "Please enter a valid email", errs["company_email"])
}

func TestBuildPayload(t *testing.T) {
	p := validProfile()
	p.CompanyEmail = "ada@corp.example"
	p.WhatsappNumber = "+971500000000"
	p.StartDate = ""
	p.DesiredStartDate = "2025-02-01"
	p.WorkPreferences = "hybrid"
	p.LocationPreferences = "New York"
	p.AlternateJobRoles = "Backend Developer, DevOps Engineer"
	p.Sponsorship = true

	req := BuildPayload(p, "clients/resumes/JB-2-20250101/resume.pdf")
	assert.Equal(t, "ada@corp.example", req.Email)
	assert.Equal(t, "+971500000000", req.Phone)
	assert.Equal(t, "2025-02-01", req.StartDate)
	assert.Equal(t, "Hybrid", req.WorkPreferences)
	assert.Equal(t, []string{"New York"}, req.LocationPreferences)
	assert.Equal(t, []string{"Backend Developer", "DevOps Engineer"}, req.AlternateJobRoles)
	assert.Equal(t, "clients/resumes/JB-2-20250101/resume.pdf", req.ResumeS3Path)
	assert.True(t, req.Sponsorship)

	p.LocationPreferences = ""
	p.JobRolePreferences = nil
	req = BuildPayload(p, "k")
	assert.NotNil(t, req.LocationPreferences)
	assert.Empty(t, req.LocationPreferences)
	assert.NotNil(t, req.JobRolePreferences)
}

func TestSubmissionStates(t *testing.T) {
	s := NewSubmission()
	assert.Equal(t, StateIdle, s.State)
	assert.Error(t, s.Begin())

	require.NoError(t, s.Edit(validProfile()))
	assert.Equal(t, StateEditing, s.State)
	require.NoError(t, s.Begin())
	assert.Equal(t, StateSubmitting, s.State)
	assert.True(t, svcerrors.IsCode(s.Begin(), svcerrors.CodeConflict))
	assert.Error(t, s.Edit(validProfile()))

	s.Fail(svcerrors.Upstream("API Error: 500 - boom", nil))
	assert.Equal(t, StateError, s.State)
	assert.Equal(t, "API Error: 500 - boom", s.Error)

	require.NoError(t, s.Begin())
	s.Complete("key", json.RawMessage(`{}`))
	assert.Equal(t, StateDone, s.State)
	assert.Empty(t, s.Error)
}

type fakeResumes struct {
	key   string
	err   error
	calls int
}

func (f *fakeResumes) Upload(_ context.Context, _ *objectstore.File, jbID string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.key + jbID, nil
}

type fakeAPI struct {
	mu    sync.Mutex
	reqs  []applywizz.DirectOnboardRequest
	err   error
	block chan struct{}
}

func (f *fakeAPI) DirectOnboard(_ context.Context, req applywizz.DirectOnboardRequest) (json.RawMessage, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(`{"ok":true}`), nil
}

func newTestService(resumes ResumeUploader, api Onboarder) (*Service, *memory.Store) {
	store := memory.New()
	return NewService(store, resumes, api, config.DefaultCatalog(), logger.Discard()), store
}

func TestServicePrefill(t *testing.T) {
	svc, store := newTestService(&fakeResumes{}, &fakeAPI{})
	store.PutTransaction(domain.Transaction{JBID: "JB-2", FullName: "Ada", Email: "ada@example.com"})

	id, p, err := svc.Prefill(context.Background(), "74-66-45-50")
	require.NoError(t, err)
	assert.Equal(t, "JB-2", id)
	assert.Equal(t, "Ada", p.FullName)

	_, _, err = svc.Prefill(context.Background(), "JB-404")
	require.Error(t, err)
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeNotFound))
	assert.Equal(t, MsgClientNotFound, svcerrors.GetServiceError(err).Message)

	_, _, err = svc.Prefill(context.Background(), " ")
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))
}

func TestServiceSubmitWithResume(t *testing.T) {
	resumes := &fakeResumes{key: "clients/resumes/"}
	api := &fakeAPI{}
	svc, _ := newTestService(resumes, api)

	sub, err := svc.Submit(context.Background(), validProfile(), &objectstore.File{Name: "cv.pdf", Data: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, StateDone, sub.State)
	assert.Equal(t, "clients/resumes/JB-2", sub.ResumeKey)
	require.Len(t, api.reqs, 1)
	assert.Equal(t, "clients/resumes/JB-2", api.reqs[0].ResumeS3Path)
	assert.Equal(t, "Remote", api.reqs[0].WorkPreferences)
}

func TestServiceSubmitUsesExistingResume(t *testing.T) {
	resumes := &fakeResumes{}
	api := &fakeAPI{}
	svc, _ := newTestService(resumes, api)

	p := validProfile()
	p.ResumeURL = "clients/resumes/JB-2-20240101/resume.pdf"
	sub, err := svc.Submit(context.Background(), p, nil)
	require.NoError(t, err)
	assert.Equal(t, StateDone, sub.State)
	assert.Zero(t, resumes.calls)
	assert.Equal(t, p.ResumeURL, api.reqs[0].ResumeS3Path)
}

func TestServiceSubmitRequiresResume(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newTestService(&fakeResumes{}, api)

	sub, err := svc.Submit(context.Background(), validProfile(), nil)
	require.Error(t, err)
	assert.Equal(t, StateError, sub.State)
	assert.Equal(t, MsgResumeRequired, sub.Error)
	assert.Empty(t, api.reqs)
}

func TestServiceSubmitValidatesBeforeUpload(t *testing.T) {
	resumes := &fakeResumes{}
	svc, _ := newTestService(resumes, &fakeAPI{})

	p := validProfile()
	p.ApplywizzID = ""
	_, err := svc.Submit(context.Background(), p, &objectstore.File{Name: "cv.pdf", Data: []byte("x")})
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))
	assert.Zero(t, resumes.calls)
}

func TestServiceSubmitUploadFailureStopsSubmission(t *testing.T) {
	api := &fakeAPI{}
	svc, _ := newTestService(&fakeResumes{err: svcerrors.Config("AWS Configuration missing: AWS_REGION")}, api)

	sub, err := svc.Submit(context.Background(), validProfile(), &objectstore.File{Name: "cv.pdf", Data: []byte("x")})
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeConfig))
	assert.Equal(t, StateError, sub.State)
	assert.Empty(t, api.reqs)
}

func TestServiceSubmitAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Client already onboarded"}`))
	}))
	defer srv.Close()

	svc, _ := newTestService(&fakeResumes{key: "k/"}, applywizz.New(applywizz.Config{URL: srv.URL}, logger.Discard()))
	sub, err := svc.Submit(context.Background(), validProfile(), &objectstore.File{Name: "cv.pdf", Data: []byte("x")})
	require.Error(t, err)
	assert.Equal(t, StateError, sub.State)
	assert.Equal(t, "Client already onboarded", sub.Error)
	assert.Equal(t, "k/JB-2", sub.ResumeKey)
}

func TestServiceSubmitRejectsConcurrentDuplicate(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	svc, _ := newTestService(&fakeResumes{}, api)

	p := validProfile()
	p.ResumeURL = "k"

	done := make(chan error, 1)
	go func() {
		_, err := svc.Submit(context.Background(), p, nil)
		done <- err
	}()

	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		_, busy := svc.inflight["JB-2"]
		return busy
	}, time.Second, 5*time.Millisecond)

	_, err := svc.Submit(context.Background(), p, nil)
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeConflict))

	close(api.block)
	require.NoError(t, <-done)
	assert.Len(t, api.reqs, 1)
}

func TestServiceSubmitNetworkError(t *testing.T) {
	api := &fakeAPI{err: svcerrors.Upstream("Onboarding service is unreachable. Please try again.", errors.New("dial tcp"))}
	svc, _ := newTestService(&fakeResumes{}, api)

	p := validProfile()
	p.ResumeURL = "k"
	sub, err := svc.Submit(context.Background(), p, nil)
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeUpstream))
	assert.Equal(t, StateError, sub.State)
}
