package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Constants for context keys
const (
	ContextTenantIDKey = "tenantID"
)

// jwtClaims defines the structure we expect in the JWT payload.
// The uid claim carries the tenant id.
type jwtClaims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for tenantID that expires after ttl.
func IssueToken(secret, tenantID string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("jwt secret is not configured")
	}
	if strings.TrimSpace(tenantID) == "" {
		return "", errors.New("tenant id is required")
	}
	now := time.Now()
	claims := jwtClaims{
		UserID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   tenantID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abortWithError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}

		claims := &jwtClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				abortWithError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				abortWithError(c, http.StatusUnauthorized, fmt.Sprintf("Invalid token: %v", err))
			}
			return
		}

		if !token.Valid || strings.TrimSpace(claims.UserID) == "" {
			abortWithError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}
		if claims.ExpiresAt == nil {
			abortWithError(c, http.StatusUnauthorized, "Token has no expiry")
			return
		}

		c.Set(ContextTenantIDKey, claims.UserID)
		c.Next()
	}
}

// TenantLocks serializes requests of one tenant so that the read-modify-write
// cycle of a service call never interleaves with another for the same tenant.
// An entry lives only while some request holds or waits for it.
type TenantLocks struct {
	mu    sync.Mutex
	locks map[string]*tenantLock
}

type tenantLock struct {
	sync.Mutex
	refs int
}

func NewTenantLocks() *TenantLocks {
	return &TenantLocks{locks: map[string]*tenantLock{}}
}

func (t *TenantLocks) acquire(tenantID string) *tenantLock {
	t.mu.Lock()
	l, ok := t.locks[tenantID]
	if !ok {
		l = &tenantLock{}
		t.locks[tenantID] = l
	}
	l.refs++
	t.mu.Unlock()

	l.Lock()
	return l
}

func (t *TenantLocks) release(tenantID string, l *tenantLock) {
	l.Unlock()
	t.mu.Lock()
	defer t.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(t.locks, tenantID)
	}
}

// Len reports how many tenants currently hold or wait for a lock.
func (t *TenantLocks) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

// Middleware holds the tenant lock for the rest of the chain. Must run AFTER AuthMiddleware.
func (t *TenantLocks) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := getTenantFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		l := t.acquire(tenantID)
		defer t.release(tenantID, l)
		c.Next()
	}
}

// RateLimiter hands out one token bucket per tenant.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows perSecond requests per tenant with the given burst.
// A non-positive perSecond disables limiting.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimiter{limit: limit, burst: burst, limiters: map[string]*rate.Limiter{}}
}

func (r *RateLimiter) allow(tenantID string) bool {
	r.mu.Lock()
	l, ok := r.limiters[tenantID]
	if !ok {
		l = rate.NewLimiter(r.limit, r.burst)
		r.limiters[tenantID] = l
	}
	r.mu.Unlock()
	return l.Allow()
}

// Middleware rejects requests over the tenant's budget with 429. Must run AFTER AuthMiddleware.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tenantID, err := getTenantFromContext(c)
		if err != nil {
			abortWithError(c, http.StatusInternalServerError, err.Error())
			return
		}
		if !r.allow(tenantID) {
			abortWithError(c, http.StatusTooManyRequests, "Rate limit exceeded")
			return
		}
		c.Next()
	}
}

// RequestLogger logs one line per request.
func RequestLogger(log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		fields := logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(started).String(),
		}
		if tenantID, ok := c.Get(ContextTenantIDKey); ok {
			fields["tenant"] = tenantID
		}
		entry := log.WithFields(fields)
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}

// Helper to return JSON error response and abort request
func abortWithError(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, gin.H{"error": message})
}

// Helper function to get the tenant id from context (used by handlers)
func getTenantFromContext(c *gin.Context) (string, error) {
	idRaw, exists := c.Get(ContextTenantIDKey)
	if !exists {
		return "", errors.New("tenant ID not found in context")
	}
	idStr, ok := idRaw.(string)
	if !ok {
		return "", errors.New("invalid tenant ID type in context")
	}
	return idStr, nil
}
