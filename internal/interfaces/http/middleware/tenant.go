package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meterbill/backend/internal/infrastructure/logger"
	"github.com/meterbill/backend/internal/interfaces/http/dto"
)

// TenantHeader is the header carrying the tenant ID
const TenantHeader = "X-Tenant-ID"

// TenantIDKey is the gin context key for the parsed tenant ID
const TenantIDKey = "tenant_id"

// ErrNoTenant is returned when a handler asks for a tenant ID that was
// never extracted
var ErrNoTenant = errors.New("tenant ID not found in request context")

// Tenant extracts and validates the X-Tenant-ID header. Requests without
// a parseable tenant ID are rejected; paths in skipPaths pass through.
func Tenant(skipPaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range skipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		raw := c.GetHeader(TenantHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeNoTenant, "X-Tenant-ID header is required", GetRequestID(c)))
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil || tenantID == uuid.Nil {
			c.AbortWithStatusJSON(http.StatusBadRequest,
				dto.NewErrorResponse(dto.ErrCodeNoTenant, "X-Tenant-ID header is not a valid UUID", GetRequestID(c)))
			return
		}

		c.Set(TenantIDKey, tenantID)

		ctx, _ := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetTenantID returns the tenant ID extracted by the Tenant middleware
func GetTenantID(c *gin.Context) (uuid.UUID, error) {
	value, exists := c.Get(TenantIDKey)
	if !exists {
		return uuid.Nil, ErrNoTenant
	}
	tenantID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil, ErrNoTenant
	}
	return tenantID, nil
}
