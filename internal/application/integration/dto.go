package integration

import (
	"time"

	"github.com/movmais/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Company DTOs
// ---------------------------------------------------------------------------

// CreateCompanyRequest is the body of POST /companies
type CreateCompanyRequest struct {
	Name     string `json:"name" binding:"required,max=200"`
	Document string `json:"document" binding:"omitempty,max=32"`
}

// CompanyResponse represents a company in API responses
type CompanyResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Document  string    `json:"document,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToCompanyResponse converts a domain company to its response
func ToCompanyResponse(c *integration.Company) CompanyResponse {
	return CompanyResponse{
		ID:        c.ID,
		Name:      c.Name,
		Document:  c.Document,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// ---------------------------------------------------------------------------
// Platform installation DTOs
// ---------------------------------------------------------------------------

// InstallPlatformRequest is the body of PUT /companies/:id/platforms/:platform
type InstallPlatformRequest struct {
	Token          string `json:"token" binding:"omitempty,max=500"`
	QuoteToken     string `json:"quote_token" binding:"omitempty,max=500"`
	BaseURL        string `json:"base_url" binding:"omitempty,url"`
	OrderDateField string `json:"order_date_field" binding:"omitempty,oneof=order_date updated_at invoice_date"`
	Timezone       string `json:"timezone" binding:"omitempty,timezone"`
	Active         *bool  `json:"active"`
}

// PlatformConfig maps the request onto the persisted config blob
func (r InstallPlatformRequest) PlatformConfig() integration.PlatformConfig {
	return integration.PlatformConfig{
		Token:          r.Token,
		QuoteToken:     r.QuoteToken,
		BaseURL:        r.BaseURL,
		OrderDateField: r.OrderDateField,
		Timezone:       r.Timezone,
	}
}

// CompanyPlatformResponse represents an installation in API responses. Credentials are never echoed.
type CompanyPlatformResponse struct {
	ID             int64                    `json:"id"`
	CompanyID      int64                    `json:"company_id"`
	Platform       integration.PlatformSlug `json:"platform"`
	Active         bool                     `json:"active"`
	HasToken       bool                     `json:"has_token"`
	HasQuoteToken  bool                     `json:"has_quote_token"`
	BaseURL        string                   `json:"base_url,omitempty"`
	OrderDateField string                   `json:"order_date_field,omitempty"`
	Timezone       string                   `json:"timezone,omitempty"`
	UpdatedAt      time.Time                `json:"updated_at"`
}

// ToCompanyPlatformResponse converts a domain installation to its response
func ToCompanyPlatformResponse(cp *integration.CompanyPlatform) CompanyPlatformResponse {
	return CompanyPlatformResponse{
		ID:             cp.ID,
		CompanyID:      cp.CompanyID,
		Platform:       cp.Platform,
		Active:         cp.Active,
		HasToken:       cp.Config.Token != "",
		HasQuoteToken:  cp.QuoteToken() != "",
		BaseURL:        cp.Config.BaseURL,
		OrderDateField: cp.Config.OrderDateField,
		Timezone:       cp.Config.Timezone,
		UpdatedAt:      cp.UpdatedAt,
	}
}
