package middleware

import (
	"context"
	"net/http"
	"strings"

	"gym-backend/internal/auth"
	"gym-backend/internal/config"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"
	"gym-backend/pkg/utils"

	"gym-backend/internal/apperror"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const EmailKey contextKey = "email"
const RoleKey contextKey = "role"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	userRepo   *repositories.UserRepository
	cfg        *config.Config
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, userRepo *repositories.UserRepository, cfg *config.Config) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		userRepo:   userRepo,
		cfg:        cfg,
	}
}

// authenticate validates the bearer token and loads the current user from the
// database so role/suspension changes take effect immediately.
func (m *AuthMiddleware) authenticate(r *http.Request) (*models.User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperror.Unauthorized("authorization header required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, apperror.Unauthorized("invalid authorization format")
	}

	claims, err := m.jwtManager.ValidateToken(parts[1])
	if err != nil {
		return nil, apperror.Unauthorized("invalid or expired token")
	}

	user, err := m.userRepo.Get(r.Context(), claims.UserID)
	if err != nil {
		return nil, apperror.Unauthorized("user not found")
	}

	if !user.IsActive {
		return nil, apperror.Forbidden("account suspended, contact administrator")
	}

	return user, nil
}

func withUser(r *http.Request, user *models.User) *http.Request {
	ctx := context.WithValue(r.Context(), UserIDKey, user.ID)
	ctx = context.WithValue(ctx, EmailKey, user.Email)
	ctx = context.WithValue(ctx, RoleKey, user.Role)
	return r.WithContext(ctx)
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// RequireAdmin ensures the caller is an active admin user
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		if user.Role != models.RoleAdmin {
			utils.Error(w, apperror.Forbidden("admin access required"))
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// RequireSuperAdmin gates bulk destructive actions to the configured
// super-admin principal set. The rejected caller's email is echoed back for
// debuggability.
func (m *AuthMiddleware) RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := m.authenticate(r)
		if err != nil {
			utils.Error(w, err)
			return
		}
		if user.Role != models.RoleAdmin || !m.cfg.IsSuperAdmin(user.Email) {
			utils.Error(w, apperror.Forbidden("super admin access required, %s is not authorized", user.Email))
			return
		}
		next.ServeHTTP(w, withUser(r, user))
	})
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (int, bool) {
	userID, ok := ctx.Value(UserIDKey).(int)
	return userID, ok
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
