package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/httputil"
	"github.com/applywizz/portal/internal/objectstore"
	"github.com/applywizz/portal/internal/onboarding"
)

// MaxResumeBytes caps an uploaded resume.
const MaxResumeBytes = 10 << 20

func (h *handler) prefill(w http.ResponseWriter, r *http.Request) {
	jbID, profile, err := h.Onboarding.Prefill(r.Context(), r.URL.Query().Get("jb_id"))
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jb_id":   jbID,
		"profile": profile,
	})
}

func (h *handler) submitOnboarding(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxResumeBytes+(1<<20))
	if err := r.ParseMultipartForm(MaxResumeBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, r, svcerrors.Validation(svcerrors.FieldErrors{"resume": "Resume must be 10MB or smaller"}))
			return
		}
		httputil.WriteError(w, r, svcerrors.BadRequest("expected multipart form data"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	profile := onboarding.NewProfile()
	if err := json.Unmarshal([]byte(r.FormValue("profile")), &profile); err != nil {
		httputil.WriteError(w, r, svcerrors.BadRequest("profile must be valid JSON"))
		return
	}

	resume, err := readResume(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}

	sub, err := h.Onboarding.Submit(r.Context(), profile, resume)
	h.Metrics.RecordOnboarding(err)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sub)
}

func readResume(r *http.Request) (*objectstore.File, error) {
	file, header, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, svcerrors.BadRequest("could not read resume upload")
	}
	defer file.Close()

	if header.Size > MaxResumeBytes {
		return nil, svcerrors.Validation(svcerrors.FieldErrors{"resume": "Resume must be 10MB or smaller"})
	}
	data, err := httputil.ReadAllStrict(file, MaxResumeBytes)
	if err != nil {
		return nil, svcerrors.Validation(svcerrors.FieldErrors{"resume": "Resume must be 10MB or smaller"})
	}
	return &objectstore.File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
