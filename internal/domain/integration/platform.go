package integration

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	ErrCompanyNotFound      = errors.New("integration: company not found")
	ErrInvalidCompany       = errors.New("integration: invalid company")
	ErrInvalidPlatform      = errors.New("integration: unknown platform")
	ErrPlatformNotInstalled = errors.New("integration: platform not installed for company")
	ErrPlatformInactive     = errors.New("integration: platform installation is inactive")
	ErrMissingCredential    = errors.New("integration: missing platform credential")
	ErrInvalidPlatformConf  = errors.New("integration: invalid platform configuration")
)

// ---------------------------------------------------------------------------
// PlatformSlug identifies a third-party commerce/logistics system
// ---------------------------------------------------------------------------

// PlatformSlug identifies a third-party commerce/logistics system
type PlatformSlug string

const (
	// PlatformFreightHub is the freight quote aggregator
	PlatformFreightHub PlatformSlug = "freighthub"
)

// IsValid returns true if the platform slug is supported
func (p PlatformSlug) IsValid() bool {
	switch p {
	case PlatformFreightHub:
		return true
	default:
		return false
	}
}

func (p PlatformSlug) String() string {
	return string(p)
}

// ParsePlatformSlug normalizes and validates a slug coming from the CLI or API
func ParsePlatformSlug(s string) (PlatformSlug, error) {
	p := PlatformSlug(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPlatform, s)
	}
	return p, nil
}

// ---------------------------------------------------------------------------
// Company
// ---------------------------------------------------------------------------

// Company is a tenant account
type Company struct {
	ID        int64
	Name      string
	Document  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCompany creates an active company
func NewCompany(name, document string) (*Company, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCompany)
	}
	now := time.Now()
	return &Company{
		Name:      name,
		Document:  strings.TrimSpace(document),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// ---------------------------------------------------------------------------
// CompanyPlatform
// ---------------------------------------------------------------------------

// PlatformConfig is the persisted per-tenant credential/config blob
type PlatformConfig struct {
	// Token authenticates the orders endpoint
	Token string `json:"token,omitempty"`
	// QuoteToken authenticates the quote-detail endpoint
	QuoteToken string `json:"quote_token,omitempty"`
	// BaseURL overrides the configured vendor base URL
	BaseURL string `json:"base_url,omitempty"`
	// OrderDateField selects which vendor date the window filters on
	OrderDateField string `json:"order_date_field,omitempty"`
	// Timezone is the IANA zone used to split timestamps into local date/time
	Timezone string `json:"timezone,omitempty"`
}

// Validate checks the blob shape; credentials are checked lazily by each job
func (c PlatformConfig) Validate() error {
	if c.BaseURL != "" {
		if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
			return fmt.Errorf("%w: base_url: %v", ErrInvalidPlatformConf, err)
		}
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("%w: timezone: %v", ErrInvalidPlatformConf, err)
		}
	}
	switch c.OrderDateField {
	case "", "order_date", "updated_at", "invoice_date":
	default:
		return fmt.Errorf("%w: order_date_field %q", ErrInvalidPlatformConf, c.OrderDateField)
	}
	return nil
}

// CompanyPlatform is a platform installation for one tenant
type CompanyPlatform struct {
	ID        int64
	CompanyID int64
	Platform  PlatformSlug
	Config    PlatformConfig
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewCompanyPlatform creates an active installation
func NewCompanyPlatform(companyID int64, platform PlatformSlug, cfg PlatformConfig) (*CompanyPlatform, error) {
	if companyID <= 0 {
		return nil, fmt.Errorf("%w: company id must be positive", ErrInvalidCompany)
	}
	if !platform.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPlatform, platform)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &CompanyPlatform{
		CompanyID: companyID,
		Platform:  platform,
		Config:    cfg,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// OrdersToken returns the orders credential or ErrMissingCredential
func (cp *CompanyPlatform) OrdersToken() (string, error) {
	if !cp.Active {
		return "", ErrPlatformInactive
	}
	token := strings.TrimSpace(cp.Config.Token)
	if token == "" {
		return "", fmt.Errorf("%w: token for company %d", ErrMissingCredential, cp.CompanyID)
	}
	return token, nil
}

// QuoteToken returns the quote-detail credential; empty means not configured
func (cp *CompanyPlatform) QuoteToken() string {
	return strings.TrimSpace(cp.Config.QuoteToken)
}

// Location resolves the installation timezone, falling back to def
func (cp *CompanyPlatform) Location(def *time.Location) *time.Location {
	if cp.Config.Timezone == "" {
		return def
	}
	loc, err := time.LoadLocation(cp.Config.Timezone)
	if err != nil {
		return def
	}
	return loc
}
