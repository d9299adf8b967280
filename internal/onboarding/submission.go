package onboarding

import (
	"encoding/json"
	"fmt"

	svcerrors "github.com/applywizz/portal/internal/errors"
)

// State is a step of an onboarding submission.
type State string

const (
	StateIdle       State = "idle"
	StateEditing    State = "editing"
	StateSubmitting State = "submitting"
	StateDone       State = "done"
	StateError      State = "error"
)

// Submission tracks one pass through the questionnaire.
type Submission struct {
	State     State           `json:"status"`
	Profile   Profile         `json:"-"`
	ResumeKey string          `json:"resume_s3_path,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// NewSubmission starts in idle.
func NewSubmission() *Submission {
	return &Submission{State: StateIdle, Profile: NewProfile()}
}

// Edit replaces the profile. A finished or failed submission can be edited
// again; one that is in flight cannot.
func (s *Submission) Edit(p Profile) error {
	if s.State == StateSubmitting {
		return svcerrors.Conflict("Submission is already in progress")
	}
	s.Profile = p
	s.State = StateEditing
	s.Error = ""
	return nil
}

// Begin moves an edited profile to submitting.
func (s *Submission) Begin() error {
	switch s.State {
	case StateEditing, StateError:
		s.State = StateSubmitting
		s.Error = ""
		return nil
	case StateSubmitting:
		return svcerrors.Conflict("Submission is already in progress")
	default:
		return svcerrors.BadRequest(fmt.Sprintf("cannot submit from state %q", s.State))
	}
}

// Complete records a successful submission.
func (s *Submission) Complete(resumeKey string, result json.RawMessage) {
	s.State = StateDone
	s.ResumeKey = resumeKey
	s.Result = result
	s.Error = ""
}

// Fail records err and leaves the profile editable.
func (s *Submission) Fail(err error) {
	s.State = StateError
	if se := svcerrors.GetServiceError(err); se != nil {
		s.Error = se.Message
		return
	}
	s.Error = err.Error()
}
