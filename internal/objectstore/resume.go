// Package objectstore uploads client resumes to object storage.
package objectstore

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/pkg/logger"
)

// MsgFileAndJBID is returned when either input of an upload is missing.
const MsgFileAndJBID = "File and JB ID are required"

var unsafeKeyChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// File is an uploaded file held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Uploader writes objects to a backend.
type Uploader interface {
	// Ready reports missing configuration without touching the network.
	Ready() error
	// Put stores f at key. Errors are already user-facing.
	Put(ctx context.Context, key string, f File) error
	// Check verifies credentials and that the target bucket exists.
	Check(ctx context.Context) error
	// Target names the bucket for logs.
	Target() string
}

// ResumeKey returns clients/resumes/{jbID}-{YYYYMMDD}/resume.{ext}. Characters
// outside [A-Za-z0-9_-] are dropped from jbID, and ext is whatever follows
// the last dot of filename.
func ResumeKey(jbID, filename string, t time.Time) string {
	sanitized := unsafeKeyChars.ReplaceAllString(jbID, "")
	ext := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		ext = filename[i+1:]
	}
	return fmt.Sprintf("clients/resumes/%s-%s/resume.%s", sanitized, t.Format("20060102"), ext)
}

// Resumes uploads resumes through an Uploader.
type Resumes struct {
	up  Uploader
	log *logger.Logger
	now func() time.Time
}

// NewResumes creates a resume uploader.
func NewResumes(up Uploader, log *logger.Logger) *Resumes {
	if log == nil {
		log = logger.NewDefault("objectstore")
	}
	return &Resumes{up: up, log: log, now: time.Now}
}

// Upload stores f for jbID and returns the object key. Configuration is
// checked before the inputs, and both before any network call.
func (r *Resumes) Upload(ctx context.Context, f *File, jbID string) (string, error) {
	if err := r.up.Ready(); err != nil {
		return "", err
	}
	if f == nil || len(f.Data) == 0 || strings.TrimSpace(jbID) == "" {
		return "", svcerrors.Validation(svcerrors.FieldErrors{"resume": MsgFileAndJBID})
	}

	key := ResumeKey(jbID, f.Name, r.now())
	log := r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"bucket": r.up.Target(),
		"key":    key,
		"size":   len(f.Data),
		"type":   f.ContentType,
	})
	if err := r.up.Put(ctx, key, *f); err != nil {
		log.WithError(err).Error("resume upload failed")
		return "", err
	}
	log.Info("resume uploaded")
	return key, nil
}

// Check verifies the backend configuration end to end.
func (r *Resumes) Check(ctx context.Context) error {
	if err := r.up.Ready(); err != nil {
		return err
	}
	return r.up.Check(ctx)
}
