package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Gateway is a payment method/account pair that can be made active.
type Gateway struct {
	Method  string `yaml:"method" json:"method"`
	Account string `yaml:"account" json:"account"`
	Label   string `yaml:"label" json:"label"`
}

// Plan is a purchasable subscription and the settings key holding its price.
type Plan struct {
	ID           string `yaml:"id" json:"id"`
	Title        string `yaml:"title" json:"title"`
	Period       string `yaml:"period" json:"period"`
	SettingKey   string `yaml:"setting_key" json:"-"`
	DefaultPrice string `yaml:"default_price" json:"default_price"`
}

// CountryCode maps a dialling prefix to the country/location stored with a
// checkout.
type CountryCode struct {
	Code     string `yaml:"code" json:"code"`
	Country  string `yaml:"country" json:"country"`
	Location string `yaml:"location" json:"location"`
}

// Catalog lists the fixed choices the portal offers.
type Catalog struct {
	Gateways          []Gateway     `yaml:"gateways" json:"gateways"`
	Plans             []Plan        `yaml:"plans" json:"plans"`
	CountryCodes      []CountryCode `yaml:"country_codes" json:"country_codes"`
	Genders           []string      `yaml:"genders" json:"genders"`
	WorkAuthorization []string      `yaml:"work_authorization" json:"work_authorization"`
	WorkPreferences   []string      `yaml:"work_preferences" json:"work_preferences"`
	Education         []string      `yaml:"education" json:"education"`
	JobRoles          []string      `yaml:"job_roles" json:"job_roles"`
}

// LoadCatalog reads the catalog at path. A missing file yields the built-in
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultCatalog(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML and fills unset sections from the defaults.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	def := DefaultCatalog()
	if len(c.Gateways) == 0 {
		c.Gateways = def.Gateways
	}
	if len(c.Plans) == 0 {
		c.Plans = def.Plans
	}
	if len(c.CountryCodes) == 0 {
		c.CountryCodes = def.CountryCodes
	}
	if len(c.Genders) == 0 {
		c.Genders = def.Genders
	}
	if len(c.WorkAuthorization) == 0 {
		c.WorkAuthorization = def.WorkAuthorization
	}
	if len(c.WorkPreferences) == 0 {
		c.WorkPreferences = def.WorkPreferences
	}
	if len(c.Education) == 0 {
		c.Education = def.Education
	}
	if len(c.JobRoles) == 0 {
		c.JobRoles = def.JobRoles
	}
	for i, p := range c.Plans {
		if p.ID == "" || p.SettingKey == "" {
			return nil, fmt.Errorf("plan %d: id and setting_key are required", i)
		}
	}
	return &c, nil
}

// HasGateway reports whether method/account is a known combination.
func (c *Catalog) HasGateway(method, account string) bool {
	for _, g := range c.Gateways {
		if g.Method == method && g.Account == account {
			return true
		}
	}
	return false
}

// Plan looks a plan up by id.
func (c *Catalog) Plan(id string) (Plan, bool) {
	for _, p := range c.Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// CountryCode looks a dialling code up.
func (c *Catalog) CountryCode(code string) (CountryCode, bool) {
	for _, cc := range c.CountryCodes {
		if cc.Code == code {
			return cc, true
		}
	}
	return CountryCode{}, false
}

// HasOption reports whether v is one of options, ignoring case.
func HasOption(options []string, v string) bool {
	for _, o := range options {
		if strings.EqualFold(o, v) {
			return true
		}
	}
	return false
}

// DefaultCatalog is used when no catalog file is deployed.
func DefaultCatalog() *Catalog {
	return &Catalog{
		Gateways: []Gateway{
			{Method: "paypal", Account: "dubai", Label: "PayPal Dubai"},
			{Method: "paypal", Account: "india", Label: "PayPal India"},
			{Method: "stripe", Account: "dubai", Label: "Stripe Dubai"},
			{Method: "stripe", Account: "india", Label: "Stripe India"},
		},
		Plans: []Plan{
			{ID: "monthly", Title: "Monthly", Period: "/month", SettingKey: "price_monthly", DefaultPrice: "45"},
			{ID: "3-months", Title: "3 Months", Period: "/3 months", SettingKey: "price_3_months", DefaultPrice: "119.99"},
			{ID: "6-months", Title: "6 Months", Period: "/6 months", SettingKey: "price_6_months", DefaultPrice: "224"},
		},
		CountryCodes: []CountryCode{
			{Code: "+971", Country: "UAE", Location: "Dubai"},
			{Code: "+91", Country: "India", Location: "India"},
			{Code: "+1", Country: "USA", Location: "USA"},
			{Code: "+44", Country: "UK", Location: "London"},
			{Code: "+61", Country: "Australia", Location: "Australia"},
			{Code: "+65", Country: "Singapore", Location: "Singapore"},
			{Code: "+81", Country: "Japan", Location: "Tokyo"},
			{Code: "+86", Country: "China", Location: "Beijing"},
		},
		Genders:           []string{"Male", "Female", "Other", "Prefer Not to Say"},
		WorkAuthorization: []string{"F1", "H1B", "Green Card", "Citizen", "H4EAD", "Other"},
		WorkPreferences:   []string{"Remote", "Hybrid", "On-site", "All"},
		Education:         []string{"High School", "Associate Degree", "Bachelor's Degree", "Master's Degree", "PhD", "Other"},
		JobRoles: []string{
			"Active Directory", "Anti Money Laundering (AML)", "Biotechnology", "Biotechnology Internship",
			"Business Analyst", "Business Intelligence Engineer", "CLINICAL DATA ANALYST", "Clinical Research Coordinator",
			"Computer Science", "Computer Science Internship", "Construction Management", "CRM Sales", "Cyber security",
			"Cybersecurity for UK", "Data Analyst", "Data Analyst Internships", "Data Engineer", "Data science early grad",
			"Data Science for Germany", "Data Scientist", "Data engineer", "Machine learning Developer", "DevOps",
			"Electrical Engineer", "Electrical Project", "Electronic Health Records (EHR)", "Embedded software",
			"Embedded Software Engineer", "Environmental Health and Safety (EHS)", "Financial analyst",
			"Financial Analyst & KYC Analyst & AML", "Financial Data Analyst", "Full Stack", "Generative AI",
			"Health care data analyst", "Healthcare data analyst", "Health care business analyst",
			"Healthcare data engineer", "Healthcare Data Science", "HR Recruiter", "Java Developer", "Java Full Stack",
			"Manufacturing engineer (Mechanical)", "Mechanical Engineer", "Medical Coding", ".Net", "Network Engineer",
			"Payroll Analyst", "Project Management", "Project Management Internship", "python developer",
			"Quality Engineer", "Regulatory Affairs", "Safety Analyst", "Salesforce Developer", "SAP",
			"Sap basis and security", "SAP MM", "Scrum Master", "ServiceNow Developer", "Software Developer",
			"Software Engineer", "Supply Chain", "Tax analyst", "UX Designer", "Workday Analyst",
		},
	}
}
