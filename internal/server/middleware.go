package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/propline/propline/internal/companyctx"
)

const HeaderCompany = "X-Company-ID"

// CompanyContext resolves the active company from the request header, falling
// back to the configured default for single-tenant installs.
func (s *Server) CompanyContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderCompany))
		if raw == "" {
			if s.cfg.DefaultCompanyID != 0 {
				ctx := companyctx.WithCompanyID(c.Request.Context(), s.cfg.DefaultCompanyID)
				c.Request = c.Request.WithContext(ctx)
			}
			c.Next()
			return
		}

		companyID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("company_id", "invalid_company", "invalid company id"))
			return
		}

		ctx := companyctx.WithCompanyID(c.Request.Context(), int64(companyID))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
