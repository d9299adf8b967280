package objectstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/supabase"
	"github.com/applywizz/portal/pkg/logger"
)

func TestResumeKey(t *testing.T) {
	day := time.Date(2024, 3, 7, 15, 4, 5, 0, time.UTC)

	tests := []struct {
		name     string
		jbID     string
		filename string
		want     string
	}{
		{"plain", "JB-1001", "cv.pdf", "clients/resumes/JB-1001-20240307/resume.pdf"},
		{"unsafe chars dropped", "JB 10/01!", "cv.docx", "clients/resumes/JB1001-20240307/resume.docx"},
		{"last dot wins", "AW_7", "my.final.cv.PDF", "clients/resumes/AW_7-20240307/resume.PDF"},
		{"no dot keeps whole name", "X", "resume", "clients/resumes/X-20240307/resume.resume"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResumeKey(tt.jbID, tt.filename, day))
		})
	}
}

type fakeUploader struct {
	ready error
	err   error
	mu    sync.Mutex
	keys  []string
}

func (f *fakeUploader) Ready() error                { return f.ready }
func (f *fakeUploader) Check(context.Context) error { return f.err }
func (f *fakeUploader) Target() string              { return "test-bucket" }
func (f *fakeUploader) Put(_ context.Context, key string, _ File) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, key)
	return f.err
}

func TestResumesUpload(t *testing.T) {
	up := &fakeUploader{}
	r := NewResumes(up, logger.Discard())
	r.now = func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC) }

	key, err := r.Upload(context.Background(), &File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, "JB-9")
	require.NoError(t, err)
	assert.Equal(t, "clients/resumes/JB-9-20250102/resume.pdf", key)
	assert.Equal(t, []string{key}, up.keys)
}

func TestResumesUploadRequiresFileAndJBID(t *testing.T) {
	up := &fakeUploader{}
	r := NewResumes(up, logger.Discard())

	for _, tc := range []struct {
		file *File
		jbID string
	}{
		{nil, "JB-1"},
		{&File{Name: "cv.pdf"}, "JB-1"},
		{&File{Name: "cv.pdf", Data: []byte("x")}, "  "},
	} {
		_, err := r.Upload(context.Background(), tc.file, tc.jbID)
		require.Error(t, err)
		assert.True(t, svcerrors.IsCode(err, svcerrors.CodeValidation))
		assert.Equal(t, MsgFileAndJBID, svcerrors.GetServiceError(err).Message)
	}
	assert.Empty(t, up.keys)
}

func TestResumesUploadConfigCheckedFirst(t *testing.T) {
	up := &fakeUploader{ready: svcerrors.Config("missing")}
	r := NewResumes(up, logger.Discard())

	_, err := r.Upload(context.Background(), nil, "")
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeConfig))
	assert.Empty(t, up.keys)
}

func TestS3UploaderMissingConfig(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hits++ }))
	defer srv.Close()

	u := NewS3Uploader(S3Config{Region: "us-east-1", Bucket: "b", Endpoint: srv.URL}, logger.Discard())
	err := u.Ready()
	require.Error(t, err)
	se := svcerrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, svcerrors.CodeConfig, se.Code)
	assert.Contains(t, se.Message, "AWS Configuration missing: AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY")
	assert.NotContains(t, se.Message, "AWS_REGION")

	_, err = NewResumes(u, logger.Discard()).Upload(context.Background(), &File{Name: "a.pdf", Data: []byte("x")}, "JB")
	assert.True(t, svcerrors.IsCode(err, svcerrors.CodeConfig))
	assert.Zero(t, hits)
}

func s3Config(endpoint string) S3Config {
	return S3Config{
		Region:          "us-east-1",
		AccessKeyID:     "AKIATESTKEY0000",
		SecretAccessKey: "secret",
		Bucket:          "resumes",
		Endpoint:        endpoint,
	}
}

func TestS3UploaderPut(t *testing.T) {
	var (
		gotPath, gotType, gotBody string
		gotLength                 int64
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotLength = r.ContentLength
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	u := NewS3Uploader(s3Config(srv.URL), logger.Discard())
	require.NoError(t, u.Ready())

	err := u.Put(context.Background(), "clients/resumes/JB-1-20250102/resume.pdf", File{Name: "cv.pdf", ContentType: "application/pdf", Data: []byte("resume-bytes")})
	require.NoError(t, err)
	assert.Equal(t, "/resumes/clients/resumes/JB-1-20250102/resume.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, int64(len("resume-bytes")), gotLength)
	assert.Equal(t, "resume-bytes", gotBody)
}

func TestS3UploaderPutErrorsAreFriendly(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?>
<Error><Code>InvalidAccessKeyId</Code><Message>The AWS Access Key Id you provided does not exist in our records.</Message></Error>`)
	}))
	defer srv.Close()

	u := NewS3Uploader(s3Config(srv.URL), logger.Discard())
	err := u.Put(context.Background(), "k", File{Data: []byte("x")})
	require.Error(t, err)
	se := svcerrors.GetServiceError(err)
	require.NotNil(t, se)
	assert.Equal(t, svcerrors.CodeUpstream, se.Code)
	assert.Equal(t, "Invalid AWS Access Key ID. Please check your credentials.", se.Message)
	assert.Equal(t, 1, calls, "uploads are attempted once")
}

func TestS3UploaderCheckMissingBucket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	u := NewS3Uploader(s3Config(srv.URL), logger.Discard())
	err := u.Check(context.Background())
	require.Error(t, err)
	assert.Equal(t, `S3 bucket "resumes" does not exist. Please create it first.`, svcerrors.GetServiceError(err).Message)
}

func TestFriendlyError(t *testing.T) {
	api := func(code string) error {
		return &smithy.GenericAPIError{Code: code, Message: "raw"}
	}
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"bad key", api("InvalidAccessKeyId"), "Invalid AWS Access Key ID. Please check your credentials."},
		{"bad secret", api("SignatureDoesNotMatch"), "Invalid AWS Secret Access Key. Please check your credentials."},
		{"no bucket", api("NoSuchBucket"), `S3 bucket "b" does not exist. Please create it first.`},
		{"denied code", api("AccessDenied"), "Access Denied. Please check your IAM permissions (need s3:PutObject)."},
		{"denied text", errors.New("request failed: Access Denied"), "Access Denied. Please check your IAM permissions (need s3:PutObject)."},
		{"cors", errors.New("blocked by CORS policy"), "CORS error. Please configure CORS on your S3 bucket."},
		{"network", errors.New("NetworkingError: socket hang up"), "Network error. Check your AWS credentials and bucket configuration."},
		{"other api", api("SlowDown"), "raw"},
		{"other", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FriendlyError(tt.err, "b"))
		})
	}
	assert.Empty(t, FriendlyError(nil, "b"))
}

func TestSupabaseUploader(t *testing.T) {
	var gotPath, gotUpsert string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUpsert = r.Header.Get("x-upsert")
		if strings.Contains(r.URL.Path, "missing") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Bucket not found"}`)
			return
		}
		_, _ = io.WriteString(w, `{"Key":"resumes/k"}`)
	}))
	defer srv.Close()

	client, err := supabase.New(supabase.Config{URL: srv.URL, APIKey: "service"})
	require.NoError(t, err)

	u := NewSupabaseUploader(client, "resumes")
	require.NoError(t, u.Ready())
	require.NoError(t, u.Put(context.Background(), "clients/resumes/a/resume.pdf", File{Data: []byte("x"), ContentType: "application/pdf"}))
	assert.Equal(t, "/storage/v1/object/resumes/clients/resumes/a/resume.pdf", gotPath)
	assert.Equal(t, "true", gotUpsert)

	missing := NewSupabaseUploader(client, "missing")
	err = missing.Put(context.Background(), "k", File{Data: []byte("x")})
	assert.Equal(t, `Storage bucket "missing" does not exist. Please create it first.`, svcerrors.GetServiceError(err).Message)

	assert.True(t, svcerrors.IsCode(NewSupabaseUploader(client, "").Ready(), svcerrors.CodeConfig))
}
