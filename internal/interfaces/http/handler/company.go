package handler

import (
	"github.com/gin-gonic/gin"

	appintegration "github.com/movmais/backend/internal/application/integration"
	"github.com/movmais/backend/internal/interfaces/http/dto"
	"github.com/movmais/backend/internal/interfaces/http/router"
)

// CompanyHandler serves tenant and platform installation registration
type CompanyHandler struct {
	BaseHandler
	service *appintegration.CompanyService
}

// NewCompanyHandler creates a new CompanyHandler
func NewCompanyHandler(service *appintegration.CompanyService) *CompanyHandler {
	return &CompanyHandler{service: service}
}

// Routes returns the company route group
func (h *CompanyHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("companies", "/companies").
		POST("", h.Create).
		GET("/:id", h.GetByID).
		GET("/:id/platforms", h.ListPlatforms).
		PUT("/:id/platforms/:platform", h.InstallPlatform)
}

// Create registers a tenant
// @ID           createCompany
// @Summary      Register a tenant
// @Tags         companies
// @Accept       json
// @Produce      json
// @Param        request body appintegration.CreateCompanyRequest true "Company"
// @Success      201 {object} appintegration.CompanyResponse
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Security     BearerAuth
// @Router       /companies [post]
func (h *CompanyHandler) Create(c *gin.Context) {
	var req appintegration.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	company, err := h.service.CreateCompany(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, company)
}

// GetByID returns a tenant
// @ID           getCompany
// @Summary      Get a tenant
// @Tags         companies
// @Produce      json
// @Param        id path int true "Company ID"
// @Success      200 {object} appintegration.CompanyResponse
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /companies/{id} [get]
func (h *CompanyHandler) GetByID(c *gin.Context) {
	var uri dto.CompanyIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}

	company, err := h.service.GetCompany(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, company)
}

// InstallPlatform creates or replaces a platform installation
// @ID           installPlatform
// @Summary      Create or replace a platform installation
// @Tags         platforms
// @Accept       json
// @Produce      json
// @Param        id path int true "Company ID"
// @Param        platform path string true "Platform slug" Enums(freighthub)
// @Param        request body appintegration.InstallPlatformRequest true "Installation"
// @Success      200 {object} appintegration.CompanyPlatformResponse
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Failure      422 {object} dto.Response
// @Security     BearerAuth
// @Router       /companies/{id}/platforms/{platform} [put]
func (h *CompanyHandler) InstallPlatform(c *gin.Context) {
	var uri dto.CompanyIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}
	var req appintegration.InstallPlatformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	installation, err := h.service.InstallPlatform(c.Request.Context(), uri.ID, c.Param("platform"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, installation)
}

// ListPlatforms lists the installations of a tenant
// @ID           listPlatforms
// @Summary      List the platform installations of a tenant
// @Tags         platforms
// @Produce      json
// @Param        id path int true "Company ID"
// @Success      200 {array} appintegration.CompanyPlatformResponse
// @Failure      401 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Security     BearerAuth
// @Router       /companies/{id}/platforms [get]
func (h *CompanyHandler) ListPlatforms(c *gin.Context) {
	var uri dto.CompanyIDRequest
	if err := c.ShouldBindUri(&uri); err != nil {
		h.ValidationError(c, err)
		return
	}

	list, err := h.service.ListPlatforms(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, list)
}
