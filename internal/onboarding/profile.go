package onboarding

import (
	"regexp"
	"strings"
	"time"

	"github.com/applywizz/portal/internal/applywizz"
	"github.com/applywizz/portal/internal/config"
	"github.com/applywizz/portal/internal/domain"
	svcerrors "github.com/applywizz/portal/internal/errors"
)

// Work preferences accepted by the onboarding API.
var workPreferences = []string{"Remote", "Hybrid", "On-site", "All"}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Profile is the onboarding questionnaire.
type Profile struct {
	FullName       string `json:"full_name"`
	CompanyEmail   string `json:"company_email"`
	PersonalEmail  string `json:"personal_email"`
	WhatsappNumber string `json:"whatsapp_number"`
	CallablePhone  string `json:"callable_phone"`
	Gender         string `json:"gender"`
	Experience     string `json:"experience"`

	JobRolePreferences []string `json:"job_role_preferences"`
	AlternateJobRoles  string   `json:"alternate_job_roles"`

	HighestEducation string `json:"highest_education"`
	UniversityName   string `json:"university_name"`
	CumulativeGPA    string `json:"cumulative_gpa"`
	GraduationYear   string `json:"graduation_year"`
	MainSubject      string `json:"main_subject"`

	VisaType    string `json:"visa_type"`
	Sponsorship bool   `json:"sponsorship"`

	StateOfResidence    string `json:"state_of_residence"`
	ZipOrCountry        string `json:"zip_or_country"`
	LocationPreferences string `json:"location_preferences"`
	WorkPreferences     string `json:"work_preferences"`
	WillingToRelocate   bool   `json:"willing_to_relocate"`

	AddOnsInfo       []string `json:"add_ons_info"`
	StartDate        string   `json:"start_date"`
	DesiredStartDate string   `json:"desired_start_date"`
	EndDate          string   `json:"end_date"`
	NoOfApplications string   `json:"no_of_applications"`
	ExcludeCompanies string   `json:"exclude_companies"`
	SalaryRange      string   `json:"salary_range"`

	ApplywizzID string `json:"applywizz_id"`
	ResumeURL   string `json:"resume_url"`
	LinkedInURL string `json:"linked_in_url"`
	GithubURL   string `json:"github_url"`
	BadgeValue  string `json:"badge_value"`

	IsOver18                      bool   `json:"is_over_18"`
	EligibleToWorkInUS            bool   `json:"eligible_to_work_in_us"`
	AuthorizedWithoutVisa         bool   `json:"authorized_without_visa"`
	RequireFutureSponsorship      bool   `json:"require_future_sponsorship"`
	CanPerformEssentialFunctions  bool   `json:"can_perform_essential_functions"`
	WorkedForCompanyBefore        bool   `json:"worked_for_company_before"`
	DischargedForPolicyViolation  bool   `json:"discharged_for_policy_violation"`
	ReferredByAgency              bool   `json:"referred_by_agency"`
	CanWork3DaysInOffice          bool   `json:"can_work_3_days_in_office"`
	ConvictedOfFelony             bool   `json:"convicted_of_felony"`
	FelonyExplanation             string `json:"felony_explanation"`
	PendingInvestigation          bool   `json:"pending_investigation"`
	WillingBackgroundCheck        bool   `json:"willing_background_check"`
	WillingDrugScreen             bool   `json:"willing_drug_screen"`
	FailedOrRefusedDrugTest       bool   `json:"failed_or_refused_drug_test"`
	UsesSubstancesAffectingDuties bool   `json:"uses_substances_affecting_duties"`
	SubstancesDescription         string `json:"substances_description"`
	CanProvideLegalDocs           bool   `json:"can_provide_legal_docs"`
	IsHispanicLatino              bool   `json:"is_hispanic_latino"`
	RaceEthnicity                 string `json:"race_ethnicity"`
	VeteranStatus                 string `json:"veteran_status"`
	DisabilityStatus              string `json:"disability_status"`
	HasRelativesInCompany         bool   `json:"has_relatives_in_company"`
	RelativesDetails              string `json:"relatives_details"`
}

// NewProfile returns an empty questionnaire with the default add-ons.
func NewProfile() Profile {
	return Profile{
		JobRolePreferences: []string{},
		AddOnsInfo:         []string{"job-links"},
	}
}

// Prefill fills the contact fields of a new profile from a purchase. The
// start date is the plan start day, or today when the plan has not started.
func Prefill(tx domain.Transaction, now time.Time) Profile {
	p := NewProfile()
	p.FullName = tx.FullName
	p.CompanyEmail = tx.Email
	p.PersonalEmail = tx.Email
	p.ApplywizzID = tx.JBID
	p.Gender = tx.Gender
	p.StateOfResidence = tx.Location
	p.ZipOrCountry = tx.Country
	p.WhatsappNumber = tx.MobileNumber
	p.CallablePhone = tx.MobileNumber
	if tx.PlanStarted != nil {
		p.StartDate = tx.PlanStarted.UTC().Format("2006-01-02")
	} else {
		p.StartDate = now.UTC().Format("2006-01-02")
	}
	return p
}

// NormalizeWorkPreference matches raw against the accepted preferences
// ignoring case and falls back to Remote.
func NormalizeWorkPreference(raw string) string {
	raw = strings.TrimSpace(raw)
	for _, p := range workPreferences {
		if strings.EqualFold(p, raw) {
			return p
		}
	}
	return "Remote"
}

// SplitRoles splits a comma separated list, dropping blanks.
func SplitRoles(text string) []string {
	out := []string{}
	for _, part := range strings.Split(text, ",") {
		if r := strings.TrimSpace(part); r != "" {
			out = append(out, r)
		}
	}
	return out
}

// Email is the address sent to ApplyWizz.
func (p Profile) Email() string {
	if p.CompanyEmail != "" {
		return p.CompanyEmail
	}
	return p.PersonalEmail
}

// Phone is the number sent to ApplyWizz.
func (p Profile) Phone() string {
	if p.WhatsappNumber != "" {
		return p.WhatsappNumber
	}
	return p.CallablePhone
}

// Validate checks the fields the API requires, before anything is uploaded.
func (p Profile) Validate(cat *config.Catalog) svcerrors.FieldErrors {
	errs := svcerrors.FieldErrors{}

	if strings.TrimSpace(p.FullName) == "" {
		errs["full_name"] = "Full name is required"
	}
	switch email := strings.TrimSpace(p.Email()); {
	case email == "":
		errs["company_email"] = "Email is required"
	case !emailPattern.MatchString(email):
		errs["company_email"] = "Please enter a valid email"
	}
	if p.PersonalEmail != "" && !emailPattern.MatchString(strings.TrimSpace(p.PersonalEmail)) {
		errs["personal_email"] = "Please enter a valid email"
	}
	if strings.TrimSpace(p.Phone()) == "" {
		errs["whatsapp_number"] = "Phone number is required"
	}
	if strings.TrimSpace(p.Experience) == "" {
		errs["experience"] = "Years of experience is required"
	}
	if strings.TrimSpace(p.ApplywizzID) == "" {
		errs["applywizz_id"] = "JB ID is required"
	}
	switch {
	case p.VisaType == "":
		errs["visa_type"] = "Work authorization is required"
	case !config.HasOption(cat.WorkAuthorization, p.VisaType):
		errs["visa_type"] = "Please select a valid work authorization"
	}
	if p.Gender != "" && !config.HasOption(cat.Genders, p.Gender) {
		errs["gender"] = "Please select a valid gender"
	}
	if p.HighestEducation != "" && !config.HasOption(cat.Education, p.HighestEducation) {
		errs["highest_education"] = "Please select a valid education level"
	}
	if len(p.JobRolePreferences) == 0 {
		errs["job_role_preferences"] = "Please select at least one job role"
	} else {
		for _, role := range p.JobRolePreferences {
			if !config.HasOption(cat.JobRoles, role) {
				errs["job_role_preferences"] = "Unknown job role: " + role
				break
			}
		}
	}
	return errs
}

// BuildPayload turns a profile and the stored resume key into the API request.
func BuildPayload(p Profile, resumeKey string) applywizz.DirectOnboardRequest {
	startDate := p.StartDate
	if startDate == "" {
		startDate = p.DesiredStartDate
	}
	locations := []string{}
	if loc := strings.TrimSpace(p.LocationPreferences); loc != "" {
		locations = append(locations, loc)
	}
	roles := p.JobRolePreferences
	if roles == nil {
		roles = []string{}
	}

	return applywizz.DirectOnboardRequest{
		FullName:            p.FullName,
		Email:               p.Email(),
		Phone:               p.Phone(),
		Experience:          p.Experience,
		ApplywizzID:         p.ApplywizzID,
		Gender:              p.Gender,
		StateOfResidence:    p.StateOfResidence,
		ZipOrCountry:        p.ZipOrCountry,
		ResumeS3Path:        resumeKey,
		StartDate:           startDate,
		JobRolePreferences:  roles,
		VisaType:            p.VisaType,
		LocationPreferences: locations,
		SalaryRange:         p.SalaryRange,
		WorkPreferences:     NormalizeWorkPreference(p.WorkPreferences),
		Sponsorship:         p.Sponsorship,
		GithubURL:           p.GithubURL,
		LinkedInURL:         p.LinkedInURL,
		EndDate:             p.EndDate,
		WillingToRelocate:   p.WillingToRelocate,
		AlternateJobRoles:   SplitRoles(p.AlternateJobRoles),
	}
}
