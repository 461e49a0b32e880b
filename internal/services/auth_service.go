package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/collegeerp/backend/internal/audit"
	"github.com/collegeerp/backend/internal/auth"
	"github.com/collegeerp/backend/internal/config"
	"github.com/collegeerp/backend/internal/database"
	"github.com/collegeerp/backend/internal/models"
	"github.com/google/uuid"
)

// bootstrapLockKey serialises first-admin registration across instances.
const bootstrapLockKey int64 = 7_310_001

const TokenCookieName = "token"

const adminColumns = `id, username, email, password_hash, role, is_active, login_attempts, lock_until, last_login, created_at, updated_at`

type AuthService struct {
	db           *sql.DB
	store        *database.RedisStore
	tokens       *auth.TokenManager
	validator    *ValidationHelper
	audit        audit.Logger
	policy       models.LockoutPolicy
	cookieSecure bool
	now          func() time.Time
}

// LoginRequest represents the login request payload
// @Description Login request structure
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email" example:"admin@college.com"`
	Password string `json:"password" validate:"required" example:"Admin@123"`
}

// RegisterRequest represents the registration request payload
// @Description First administrator registration
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50" example:"principal"`
	Email    string `json:"email" validate:"required,email" example:"admin@college.com"`
	Password string `json:"password" validate:"required,min=6" example:"Admin@123"`
	Role     string `json:"role,omitempty" validate:"omitempty,oneof=admin superadmin"` // ignored: the first admin is always superadmin
}

// ChangePasswordRequest represents the change password payload
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// AuthResponse represents the authentication response
// @Description Authentication response structure
type AuthResponse struct {
	Token     string        `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	ExpiresAt time.Time     `json:"expiresAt"`
	Admin     *models.Admin `json:"admin"`
}

func NewAuthService(db *sql.DB, store *database.RedisStore, tokens *auth.TokenManager, cfg *config.AuthConfig, auditLogger audit.Logger) *AuthService {
	return &AuthService{
		db:           db,
		store:        store,
		tokens:       tokens,
		validator:    NewValidationHelper(),
		audit:        auditLogger,
		policy:       cfg.LockoutPolicy(),
		cookieSecure: cfg.CookieSecure,
		now:          time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func scanAdmin(row interface{ Scan(...any) error }) (*models.Admin, error) {
	var a models.Admin
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &a.Role, &a.IsActive,
		&a.LoginAttempts, &a.LockUntil, &a.LastLogin, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *AuthService) findAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return scanAdmin(s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE email = $1`, email))
}

// GetAdmin loads an admin by id.
func (s *AuthService) GetAdmin(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	admin, err := scanAdmin(s.db.QueryRowContext(ctx, `SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, newError(ErrNotFound, "Admin not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get admin %s: %w", id, err)
	}
	return admin, nil
}

// Authenticate checks credentials and enforces the lockout policy. Every
// outcome that changes the lockout counters is persisted before returning.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = normalizeEmail(email)

	admin, err := s.findAdminByEmail(ctx, email)
	if errors.Is(err, sql.ErrNoRows) {
		s.audit.LogLogin("", email, "UNKNOWN_ACCOUNT")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find admin: %w", err)
	}

	now := s.now()
	if _, locked := admin.LockState(now).(models.Locked); locked {
		s.audit.LogLogin(admin.ID.String(), email, "LOCKED")
		return nil, ErrAccountLocked
	}

	if !admin.IsActive {
		s.audit.LogLogin(admin.ID.String(), email, "DEACTIVATED")
		return nil, ErrAccountDeactivated
	}

	if !verifyPassword(password, admin.PasswordHash) {
		state, err := s.recordFailedLogin(ctx, admin.ID, now)
		if err != nil {
			return nil, err
		}
		if locked, ok := state.(models.Locked); ok {
			log.Printf("[AUTH] Account %s locked until %s", admin.ID, locked.Until.Format(time.RFC3339))
			s.audit.LogLockout(admin.ID.String(), locked.Until)
		}
		s.audit.LogLogin(admin.ID.String(), email, "INVALID_PASSWORD")
		return nil, ErrInvalidCredentials
	}

	if err := s.recordSuccessfulLogin(ctx, admin, now); err != nil {
		return nil, err
	}

	token, claims, err := s.tokens.Issue(admin)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.audit.LogLogin(admin.ID.String(), email, "SUCCESS")
	return &AuthResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, Admin: admin}, nil
}

// recordFailedLogin applies LockoutPolicy.Fail as one conditional UPDATE so
// concurrent failures against the same account cannot under-count. The
// guard on lock_until keeps a lock set by a concurrent request in place.
func (s *AuthService) recordFailedLogin(ctx context.Context, adminID uuid.UUID, now time.Time) (models.LockState, error) {
	var (
		attempts  int
		lockUntil *time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		UPDATE admins
		SET login_attempts = CASE WHEN login_attempts + 1 >= $2 THEN 0 ELSE login_attempts + 1 END,
			lock_until = CASE WHEN login_attempts + 1 >= $2 THEN $3::timestamptz ELSE NULL END,
			updated_at = $4
		WHERE id = $1 AND (lock_until IS NULL OR lock_until <= $4)
		RETURNING login_attempts, lock_until`,
		adminID, s.policy.MaxAttempts, now.Add(s.policy.LockDuration), now,
	).Scan(&attempts, &lockUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAccountLocked
	}
	if err != nil {
		return nil, fmt.Errorf("record failed login: %w", err)
	}
	return models.LockStateOf(attempts, lockUntil, now), nil
}

func (s *AuthService) recordSuccessfulLogin(ctx context.Context, admin *models.Admin, now time.Time) error {
	attempts, lockUntil := models.Columns(s.policy.Succeed())
	_, err := s.db.ExecContext(ctx, `
		UPDATE admins
		SET login_attempts = $2, lock_until = $3, last_login = $4, updated_at = $4
		WHERE id = $1`,
		admin.ID, attempts, lockUntil, now)
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	admin.LoginAttempts = attempts
	admin.LockUntil = lockUntil
	admin.LastLogin = &now
	return nil
}

// ChangePassword re-verifies the current password and stores a fresh hash.
// Lockout counters are not touched.
func (s *AuthService) ChangePassword(ctx context.Context, adminID uuid.UUID, currentPassword, newPassword string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM admins WHERE id = $1`, adminID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return newError(ErrNotFound, "Admin not found")
	}
	if err != nil {
		return fmt.Errorf("load password hash: %w", err)
	}

	if !verifyPassword(currentPassword, hash) {
		return wrapError(ErrInvalidCredentials, "Current password is incorrect", nil)
	}

	newHash, err := hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE admins SET password_hash = $1, updated_at = $2 WHERE id = $3`,
		newHash, s.now(), adminID); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// RegisterFirstAdmin creates the bootstrap account as superadmin. Once any
// admin exists self-registration is refused.
func (s *AuthService) RegisterFirstAdmin(ctx context.Context, req RegisterRequest) (*models.Admin, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, bootstrapLockKey); err != nil {
		return nil, fmt.Errorf("acquire bootstrap lock: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count); err != nil {
		return nil, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return nil, newError(ErrForbidden, "Admin registration is restricted. Contact system administrator.")
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	admin := &models.Admin{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: hash,
		Role:         models.RoleSuperAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO admins (id, username, email, password_hash, role, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		admin.ID, admin.Username, admin.Email, admin.PasswordHash, admin.Role, admin.IsActive, admin.CreatedAt, admin.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, newError(ErrConflict, "Admin with this email or username already exists")
		}
		return nil, fmt.Errorf("insert admin: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	log.Printf("[AUTH] Bootstrap superadmin created - ID: %s, Email: %s", admin.ID, admin.Email)
	return admin, nil
}

func (s *AuthService) setTokenCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Register handles first administrator registration
// @Summary Register the first admin
// @Description Creates the bootstrap superadmin. Refused once any admin exists.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Registration request"
// @Success 201 {object} Response{data=AuthResponse}
// @Failure 400 {object} Response
// @Failure 403 {object} Response
// @Failure 409 {object} Response
// @Router /auth/register [post]
func (s *AuthService) Register(w http.ResponseWriter, r *http.Request) {
	log.Printf("[AUTH] Registration attempt from IP: %s", r.RemoteAddr)

	var req RegisterRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	admin, err := s.RegisterFirstAdmin(r.Context(), req)
	if err != nil {
		SendServiceError(w, "AUTH", err, "Error registering admin")
		return
	}

	token, claims, err := s.tokens.Issue(admin)
	if err != nil {
		SendServiceError(w, "AUTH", err, "Failed to generate token")
		return
	}

	s.setTokenCookie(w, token, claims.ExpiresAt.Time)
	SendJSON(w, http.StatusCreated, "Admin registered successfully", AuthResponse{Token: token, ExpiresAt: claims.ExpiresAt.Time, Admin: admin})
}

// Login handles admin authentication
// @Summary Login admin
// @Description Authenticate with email and password. Five consecutive failures lock the account.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login request"
// @Success 200 {object} Response{data=AuthResponse}
// @Failure 401 {object} Response "Invalid credentials"
// @Failure 403 {object} Response "Account deactivated"
// @Failure 423 {object} Response "Account locked"
// @Router /auth/login [post]
func (s *AuthService) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	result, err := s.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if StatusCode(err) != http.StatusInternalServerError {
			log.Printf("[AUTH] Login rejected for %s: %v", normalizeEmail(req.Email), err)
		}
		SendServiceError(w, "AUTH", err, "Error logging in")
		return
	}

	log.Printf("[AUTH] Login successful for admin %s", result.Admin.ID)
	s.setTokenCookie(w, result.Token, result.ExpiresAt)
	SendJSON(w, http.StatusOK, "Login successful", result)
}

// Logout revokes the current token
// @Summary Logout admin
// @Description Blacklists the current token until it expires and clears the cookie
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response
// @Router /auth/logout [post]
func (s *AuthService) Logout(w http.ResponseWriter, r *http.Request) {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		if err := s.store.BlacklistToken(r.Context(), claims.ID, claims.TTL(s.now())); err != nil {
			log.Printf("[AUTH] Failed to blacklist token: %v", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "none",
		Path:     "/",
		Expires:  s.now().Add(10 * time.Second),
		HttpOnly: true,
	})
	SendJSON(w, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated admin
// @Summary Current admin
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=models.Admin}
// @Failure 401 {object} Response
// @Router /auth/me [get]
func (s *AuthService) Me(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	admin, err := s.GetAdmin(r.Context(), adminID)
	if err != nil {
		SendServiceError(w, "AUTH", err, "Error fetching admin details")
		return
	}
	SendJSON(w, http.StatusOK, "", admin)
}

// UpdatePassword handles password change
// @Summary Change password
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ChangePasswordRequest true "Password change"
// @Success 200 {object} Response
// @Failure 401 {object} Response
// @Router /auth/change-password [put]
func (s *AuthService) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	adminID, ok := auth.AdminIDFromContext(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req ChangePasswordRequest
	if !s.validator.decodeAndValidate(w, r, &req) {
		return
	}

	if err := s.ChangePassword(r.Context(), adminID, req.CurrentPassword, req.NewPassword); err != nil {
		SendServiceError(w, "AUTH", err, "Error changing password")
		return
	}

	log.Printf("[AUTH] Password changed for admin %s", adminID)
	SendJSON(w, http.StatusOK, "Password changed successfully", nil)
}
