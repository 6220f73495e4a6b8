package ecommerce

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// FreightHubDefaultAPIURL is the production API endpoint
const FreightHubDefaultAPIURL = "https://api.freighthub.com.br/v1"

// FreightHub order date fields accepted by the orders endpoint
const (
	OrderDateFieldOrderDate = "order_date"
	OrderDateFieldUpdatedAt = "updated_at"
)

var (
	ErrFreightHubConfigMissingBaseURL = errors.New("freighthub: base URL is required")
	ErrFreightHubConfigInvalidBaseURL = errors.New("freighthub: base URL is invalid")
	ErrFreightHubConfigMissingToken   = errors.New("freighthub: orders token is required")
)

// FreightHubConfig holds one tenant's view of the FreightHub API
type FreightHubConfig struct {
	// APIBaseURL is the base URL, without trailing slash
	APIBaseURL string
	// Token authenticates the orders endpoint
	Token string
	// QuoteToken authenticates the quote-detail endpoint; may be empty
	QuoteToken string
	// DateField selects which order date the window filters on
	DateField string
	// Location interprets vendor timestamps without an offset
	Location *time.Location
}

// Validate validates the configuration, filling defaults
func (c *FreightHubConfig) Validate() error {
	if c.APIBaseURL == "" {
		return ErrFreightHubConfigMissingBaseURL
	}
	if _, err := url.ParseRequestURI(c.APIBaseURL); err != nil {
		return ErrFreightHubConfigInvalidBaseURL
	}
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	if c.Token == "" {
		return ErrFreightHubConfigMissingToken
	}
	if c.DateField == "" {
		c.DateField = OrderDateFieldOrderDate
	}
	if c.Location == nil {
		c.Location = time.UTC
	}
	return nil
}
