// Package identity resolves who is calling: a bearer token verified by the
// identity provider, or an anonymous per-device cookie when none is configured.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/Rahul-s27/Pace/internal/config"
	"github.com/Rahul-s27/Pace/internal/domain"
	"github.com/Rahul-s27/Pace/internal/store"
)

const (
	AnonCookieName        = "pace_anon_id"
	SessionHeaderName     = "X-Pace-Session-ID"
	DefaultSessionIDValue = "default"
	anonCookieMaxAge      = 30 * 24 * time.Hour
)

type contextKey int

const (
	userKey contextKey = iota
	tokenKey
	sessionIDKey
)

var (
	anonIDPattern    = regexp.MustCompile(`^anon_[a-f0-9]{32}$`)
	sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
)

// UserFromContext returns the caller resolved by Middleware.
func UserFromContext(ctx context.Context) *domain.User {
	if v, ok := ctx.Value(userKey).(*domain.User); ok {
		return v
	}
	return nil
}

// UserIDFromContext extracts the caller's user ID from the request context.
func UserIDFromContext(ctx context.Context) string {
	if u := UserFromContext(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// TokenFromContext returns the caller's bearer token, empty for anonymous callers.
func TokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tokenKey).(string); ok {
		return v
	}
	return ""
}

// SessionIDFromContext extracts the tab session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionIDValue
}

// WithUser returns a context carrying the caller. It is used by tests and by
// callers that resolve identity outside of Middleware.
func WithUser(ctx context.Context, user *domain.User, token, sessionID string) context.Context {
	ctx = context.WithValue(ctx, userKey, user)
	ctx = context.WithValue(ctx, tokenKey, token)
	return context.WithValue(ctx, sessionIDKey, sanitizeSessionID(sessionID))
}

// Options configures Middleware.
type Options struct {
	Mode     string // config.AuthBearer or config.AuthAnonymous
	Repo     store.Repository
	Verifier *CachedVerifier
	IsDev    bool
	Logger   *slog.Logger
}

// Middleware resolves the caller and the per-request tab session ID.
func Middleware(opts Options) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var (
				user  *domain.User
				token string
				err   error
			)

			if opts.Mode == config.AuthBearer {
				token = tokenFromRequest(r)
				if token == "" {
					writeError(w, http.StatusUnauthorized, "missing bearer token")
					return
				}
				var verified *domain.VerifiedUser
				verified, err = opts.Verifier.Verify(r.Context(), token)
				if err != nil {
					logger.Info("Token verification failed", "error", err, "ip", IPFromRequest(r))
					writeError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				user, err = ensureVerifiedUser(r.Context(), opts.Repo, verified)
			} else {
				var userID string
				userID, err = getOrCreateAnonID(w, r, opts.IsDev)
				if err != nil {
					writeError(w, http.StatusInternalServerError, "failed to establish anonymous identity")
					return
				}
				user, err = ensureAnonUser(r.Context(), opts.Repo, userID)
			}
			if err != nil {
				// Storage failures never lock the caller out.
				logger.Warn("Failed to record user", "error", err)
			}

			ctx := WithUser(r.Context(), user, token, sessionIDFromRequest(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// tokenFromRequest reads the Authorization header, falling back to the
// access_token query parameter that browser WebSocket clients must use.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return strings.TrimSpace(r.URL.Query().Get("access_token"))
}

func generateAnonID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate anonymous id: %w", err)
	}
	return "anon_" + hex.EncodeToString(buf), nil
}

func isValidAnonID(id string) bool {
	return anonIDPattern.MatchString(id)
}

func sanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionIDValue
	}
	return id
}

func ensureAnonUser(ctx context.Context, repo store.Repository, userID string) (*domain.User, error) {
	user, err := repo.GetUser(ctx, userID)
	if err != nil {
		return &domain.User{UserID: userID, Anonymous: true}, err
	}
	if user != nil {
		return user, nil
	}

	now := time.Now()
	user = &domain.User{
		UserID:     userID,
		Anonymous:  true,
		LastSeenAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return user, repo.UpsertUser(ctx, user)
}

func ensureVerifiedUser(ctx context.Context, repo store.Repository, v *domain.VerifiedUser) (*domain.User, error) {
	fresh := &domain.User{UserID: v.UID, Email: v.Email, Name: v.Name, Picture: v.Picture}

	user, err := repo.GetUser(ctx, v.UID)
	if err != nil {
		return fresh, err
	}
	if user != nil && user.Email == v.Email && user.Name == v.Name && user.Picture == v.Picture {
		return user, nil
	}

	now := time.Now()
	fresh.LastSeenAt = now
	fresh.CreatedAt = now
	fresh.UpdatedAt = now
	if user != nil {
		fresh.CreatedAt = user.CreatedAt
	}
	return fresh, repo.UpsertUser(ctx, fresh)
}

func getOrCreateAnonID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	var id string
	if c, err := r.Cookie(AnonCookieName); err == nil && isValidAnonID(c.Value) {
		id = c.Value
	} else {
		id, err = generateAnonID()
		if err != nil {
			return "", err
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AnonCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(anonCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
	return id, nil
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get("session_id")
	}
	return sanitizeSessionID(sid)
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
