package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"clinic-scheduler-backend/internal/domain/entities"
	"clinic-scheduler-backend/internal/http/httpresp"
	"clinic-scheduler-backend/internal/infra/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RequestLogger creates a middleware that logs HTTP requests
func RequestLogger(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		entry := logger.Logger.WithFields(map[string]interface{}{
			"method":      method,
			"path":        path,
			"status_code": statusCode,
			"duration":    duration.String(),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		})

		if len(c.Errors) > 0 {
			entry.Error("Request completed with errors")
		} else {
			entry.Info("Request completed")
		}
	}
}

// Recovery creates a middleware that recovers from panics
func Recovery(logger *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Logger.WithField("panic", recovered).Error("Panic recovered")
		httpresp.Detail(c, http.StatusInternalServerError, "internal server error")
	})
}

// CORS creates a middleware that handles CORS
func CORS(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// RequestID creates a middleware that adds a request ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = generateRequestID()
		}

		c.Header("X-Request-ID", requestID)
		c.Set("request_id", requestID)
		c.Next()
	}
}

func generateRequestID() string {
	return strings.ReplaceAll(time.Now().Format("20060102150405.000000"), ".", "")
}

// callerClaims is the JWT claims shape issued by the (out-of-scope) auth
// layer for both staff (OAuth) and patient (LIFF token exchange) sessions,
// per spec §1: this core consumes a CallerContext, never credentials.
// Grounded on the teacher's SupabaseClaims shape, generalized with the
// clinic/actor/role fields this domain's CallerContext needs instead of a
// Supabase-specific email/roles pair.
type callerClaims struct {
	jwt.RegisteredClaims
	ClinicID  string   `json:"clinic_id"`
	ActorKind string   `json:"actor_kind"` // "patient" or "clinic-staff"
	Roles     []string `json:"roles,omitempty"`
	PatientID string   `json:"patient_id,omitempty"`
}

const callerContextKey = "caller_context"
const tokenTimeLeeway = 5 * time.Second

// CallerAuth validates the bearer JWT and sets the resulting
// entities.CallerContext on the gin context, for CallerFromContext to read.
// Grounded on the teacher's SupabaseAuth middleware shape (bearer
// extraction, HMAC validation with leeway), generalized from a
// Supabase-specific user profile lookup to this domain's clinic-scoped
// CallerContext.
func CallerAuth(logger *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			httpresp.Detail(c, http.StatusUnauthorized, "missing authorization token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			httpresp.Detail(c, http.StatusUnauthorized, "invalid authorization header format")
			c.Abort()
			return
		}

		caller, err := validateCallerToken(tokenString)
		if err != nil {
			logger.Logger.WithError(err).Debug("caller token validation failed")
			httpresp.Detail(c, http.StatusUnauthorized, "invalid token")
			c.Abort()
			return
		}

		c.Set(callerContextKey, caller)
		c.Next()
	}
}

// validateCallerToken parses and validates tokenString, returning the
// CallerContext it carries.
func validateCallerToken(tokenString string) (*entities.CallerContext, error) {
	jwtSecret := os.Getenv("JWT_SIGNING_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SIGNING_SECRET not configured")
	}

	parser := jwt.NewParser(jwt.WithLeeway(tokenTimeLeeway), jwt.WithIssuedAt())
	token, err := parser.ParseWithClaims(tokenString, &callerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*callerClaims)
	if !ok {
		return nil, fmt.Errorf("failed to parse token claims")
	}

	clinicID, err := uuid.Parse(claims.ClinicID)
	if err != nil {
		return nil, fmt.Errorf("invalid clinic_id claim: %w", err)
	}

	caller := &entities.CallerContext{
		ActorKind: entities.ActorKind(claims.ActorKind),
		ClinicID:  clinicID,
	}
	for _, r := range claims.Roles {
		caller.Roles = append(caller.Roles, entities.Role(r))
	}

	switch caller.ActorKind {
	case entities.ActorPatient:
		patientID, err := uuid.Parse(claims.PatientID)
		if err != nil {
			return nil, fmt.Errorf("invalid patient_id claim: %w", err)
		}
		caller.PatientID = &patientID
	default:
		userID, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("invalid subject claim: %w", err)
		}
		caller.UserID = &userID
	}

	return caller, nil
}

// CallerFromContext retrieves the authenticated caller set by CallerAuth.
func CallerFromContext(c *gin.Context) (entities.CallerContext, bool) {
	v, exists := c.Get(callerContextKey)
	if !exists {
		return entities.CallerContext{}, false
	}
	caller, ok := v.(*entities.CallerContext)
	if !ok {
		return entities.CallerContext{}, false
	}
	return *caller, true
}

// RequireRole aborts the request unless the caller is clinic staff carrying
// role. Must run after CallerAuth.
func RequireRole(role entities.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok {
			httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		if caller.ActorKind != entities.ActorClinicStaff || !caller.HasRole(role) {
			httpresp.Detail(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireStaff aborts the request unless the caller is clinic staff of any
// role (admin or practitioner) — the spec's "staff" auth tier.
func RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok || caller.ActorKind != entities.ActorClinicStaff {
			httpresp.Detail(c, http.StatusForbidden, "staff authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireClinicMember aborts the request unless the caller is an
// authenticated clinic staff member or patient belonging to the clinic —
// the spec's "clinic-member" auth tier, which CallerAuth already
// guarantees by construction, so this only rejects the unauthenticated
// case.
func RequireClinicMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CallerFromContext(c); !ok {
			httpresp.Detail(c, http.StatusUnauthorized, "authentication required")
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireSelfOrAdmin aborts the request unless the caller is an admin, or a
// practitioner whose own id matches the practitionerIDParam path parameter
// — the spec's "self or admin" auth tier for a practitioner's own
// availability endpoints.
func RequireSelfOrAdmin(practitionerIDParam string) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := CallerFromContext(c)
		if !ok || caller.ActorKind != entities.ActorClinicStaff {
			httpresp.Detail(c, http.StatusForbidden, "staff authentication required")
			c.Abort()
			return
		}
		if caller.HasRole(entities.RoleAdmin) {
			c.Next()
			return
		}
		practitionerID, err := uuid.Parse(c.Param(practitionerIDParam))
		if err != nil {
			httpresp.Detail(c, http.StatusBadRequest, "invalid practitioner id")
			c.Abort()
			return
		}
		if caller.UserID == nil || *caller.UserID != practitionerID {
			httpresp.Detail(c, http.StatusForbidden, "insufficient permissions")
			c.Abort()
			return
		}
		c.Next()
	}
}

// CustomCORS handles dynamic CORS origins for preview-deployment domains.
func CustomCORS(allowedOrigins []string) gin.HandlerFunc {
	return CORS(allowedOrigins)
}
