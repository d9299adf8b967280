// Package applywizz talks to the ApplyWizz ticketing API that receives
// completed client profiles.
package applywizz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	svcerrors "github.com/applywizz/portal/internal/errors"
	"github.com/applywizz/portal/internal/httputil"
	"github.com/applywizz/portal/pkg/logger"
)

// DefaultURL is the production direct-onboard endpoint.
const DefaultURL = "https://ticketingtoolapplywizz.vercel.app/api/direct-onboard"

// DirectOnboardRequest is the profile accepted by the direct-onboard API.
type DirectOnboardRequest struct {
	FullName            string   `json:"full_name"`
	Email               string   `json:"email"`
	Phone               string   `json:"phone"`
	Experience          string   `json:"experience"`
	ApplywizzID         string   `json:"applywizz_id"`
	Gender              string   `json:"gender"`
	StateOfResidence    string   `json:"state_of_residence"`
	ZipOrCountry        string   `json:"zip_or_country"`
	ResumeS3Path        string   `json:"resume_s3_path"`
	StartDate           string   `json:"start_date"`
	JobRolePreferences  []string `json:"job_role_preferences"`
	VisaType            string   `json:"visa_type"`
	LocationPreferences []string `json:"location_preferences"`
	SalaryRange         string   `json:"salary_range"`
	WorkPreferences     string   `json:"work_preferences"`
	Sponsorship         bool     `json:"sponsorship"`

	GithubURL         string   `json:"github_url"`
	LinkedInURL       string   `json:"linked_in_url"`
	EndDate           string   `json:"end_date"`
	WillingToRelocate bool     `json:"willing_to_relocate"`
	AlternateJobRoles []string `json:"alternate_job_roles"`
}

// Client posts profiles to the direct-onboard endpoint.
type Client struct {
	http *httputil.ServiceClient
	log  *logger.Logger
}

// Config configures the client.
type Config struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// New creates a client. An empty URL uses DefaultURL.
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if log == nil {
		log = logger.NewDefault("applywizz")
	}
	return &Client{
		http: httputil.NewServiceClient(httputil.ServiceClientConfig{
			BaseURL:    cfg.URL,
			Timeout:    cfg.Timeout,
			HTTPClient: cfg.HTTPClient,
		}),
		log: log,
	}
}

// DirectOnboard submits req once and returns the API's JSON reply.
func (c *Client) DirectOnboard(ctx context.Context, req DirectOnboardRequest) (json.RawMessage, error) {
	resp, err := c.http.Post(ctx, "", req)
	if err != nil {
		return nil, svcerrors.Upstream("Onboarding service is unreachable. Please try again.", err)
	}

	var result json.RawMessage
	if err := httputil.DecodeResponse(resp, &result); err != nil {
		var se *httputil.StatusError
		if errors.As(err, &se) {
			c.log.WithContext(ctx).WithFields(map[string]interface{}{
				"status":       se.StatusCode,
				"applywizz_id": req.ApplywizzID,
			}).Warn("direct onboard rejected")
			return nil, svcerrors.Upstream(ErrorMessage(se.StatusCode, se.Body), err).WithDetails("status", se.StatusCode)
		}
		return nil, svcerrors.Upstream("Invalid response from onboarding service", err)
	}
	return result, nil
}

// ErrorMessage extracts a message from an error body: JSON detail, then JSON
// message, then the status with the first 200 characters of the body.
func ErrorMessage(status int, body []byte) string {
	if gjson.ValidBytes(body) {
		parsed := gjson.ParseBytes(body)
		for _, field := range []string{"detail", "message"} {
			if v := parsed.Get(field); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	text := string(body)
	if r := []rune(text); len(r) > 200 {
		text = string(r[:200])
	}
	return strings.TrimSpace(fmt.Sprintf("API Error: %d - %s", status, text))
}
