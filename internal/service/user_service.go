package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"bikeservice/internal/auth"
	"bikeservice/internal/config"
	"bikeservice/internal/database"
	"bikeservice/internal/domain"
	"bikeservice/internal/metrics"
	"bikeservice/internal/models"

	"github.com/rs/zerolog"
)

const msgInvalidCredentials = "Invalid email or password"

// RateLimiter counts hits per key in a fixed window.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type RegisterRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// LoginResult carries either a token or the signal that a second factor is pending.
type LoginResult struct {
	Token       string       `json:"token,omitempty"`
	ExpiresAt   *time.Time   `json:"expires_at,omitempty"`
	User        *models.User `json:"user,omitempty"`
	OTPRequired bool         `json:"otp_required,omitempty"`
}

type UserService struct {
	repo     domain.UserRepository
	tokens   *auth.TokenManager
	otp      domain.OTPSender
	limiter  RateLimiter
	security config.SecurityConfig
	adminMap map[string]bool
	now      func() time.Time
	logger   *zerolog.Logger
}

func NewUserService(
	repo domain.UserRepository,
	tokens *auth.TokenManager,
	otp domain.OTPSender,
	limiter RateLimiter,
	cfg *config.Config,
	logger *zerolog.Logger,
) *UserService {
	adminMap := make(map[string]bool)
	for _, email := range cfg.Admins {
		adminMap[normalizeEmail(email)] = true
	}
	security := cfg.Security
	if security.MaxOTPAttempts <= 0 {
		security.MaxOTPAttempts = models.MaxOTPAttempts
	}

	return &UserService{
		repo:     repo,
		tokens:   tokens,
		otp:      otp,
		limiter:  limiter,
		security: security,
		adminMap: adminMap,
		now:      time.Now,
		logger:   logger,
	}
}

func (s *UserService) IsAdminEmail(email string) bool {
	return s.adminMap[normalizeEmail(email)]
}

func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = normalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)

	if req.FullName == "" || req.Email == "" || req.Phone == "" || req.Password == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}
	if n := len([]rune(req.FullName)); n < 3 || n > 50 {
		return nil, domain.Errorf(domain.ErrValidation, "Full name must be between 3 and 50 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "Invalid email address")
	}
	if err := auth.ValidatePasswordStrength(req.Password); err != nil {
		return nil, domain.Errorf(domain.ErrValidation, "%s", err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: hash,
		IsAdmin:      s.IsAdminEmail(req.Email),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, domain.Errorf(domain.ErrValidation, "User already exists")
		}
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Bool("admin", user.IsAdmin).Msg("User registered")
	return user, nil
}

// Login checks the lock, the password and its age, then issues a token or
// emails a login OTP.
func (s *UserService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		metrics.IncLogin("unknown_user")
		return nil, domain.Errorf(domain.ErrUnauthorized, msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if user.IsLocked(now) {
		metrics.IncLogin("locked")
		remaining := int(math.Ceil(user.LockUntil.Sub(now).Minutes()))
		return nil, domain.Errorf(domain.ErrAccountLocked, "Account locked. Try again after %d minute(s).", remaining)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, s.recordFailedLogin(ctx, user, now)
	}

	if s.security.PasswordMaxAge > 0 && now.Sub(user.PasswordChangedAt) > s.security.PasswordMaxAge {
		metrics.IncLogin("password_expired")
		return nil, domain.Errorf(domain.ErrForbidden, "Your password has expired. Please reset your password.")
	}

	if user.FailedLoginAttempts > 0 || user.LockUntil != nil {
		if err := s.repo.UpdateLoginState(ctx, user.ID, 0, nil); err != nil {
			return nil, err
		}
		user.FailedLoginAttempts = 0
		user.LockUntil = nil
	}

	if s.security.LoginOTP {
		if err := s.issueOTP(ctx, user, models.OTPPurposeLogin, user.Email); err != nil {
			return nil, err
		}
		metrics.IncLogin("otp_sent")
		return &LoginResult{OTPRequired: true}, nil
	}

	metrics.IncLogin("success")
	return s.issueToken(user)
}

func (s *UserService) recordFailedLogin(ctx context.Context, user *models.User, now time.Time) error {
	failed := user.FailedLoginAttempts + 1
	var lockUntil *time.Time
	if failed >= s.security.MaxFailedLogins {
		until := now.Add(s.security.LockoutDuration)
		lockUntil = &until
		failed = 0
	}
	if err := s.repo.UpdateLoginState(ctx, user.ID, failed, lockUntil); err != nil {
		return err
	}

	if lockUntil != nil {
		metrics.IncLogin("locked")
		s.logger.Warn().Str("user_id", user.ID).Time("lock_until", *lockUntil).Msg("Account locked after failed logins")
		return domain.Errorf(domain.ErrAccountLocked,
			"Account locked due to too many failed login attempts. Try again after %d minutes.",
			int(s.security.LockoutDuration.Minutes()))
	}
	metrics.IncLogin("bad_password")
	return domain.Errorf(domain.ErrUnauthorized, msgInvalidCredentials)
}

func (s *UserService) VerifyLoginOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if email == "" || code == "" {
		return nil, domain.Errorf(domain.ErrValidation, "Please provide email and OTP.")
	}
	user, err := s.repo.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	if err != nil {
		return nil, err
	}

	if err := s.checkOTP(ctx, user, models.OTPPurposeLogin, code); err != nil {
		return nil, err
	}
	if err := s.repo.SetUserOTP(ctx, user.ID, "", "", nil); err != nil {
		return nil, err
	}

	metrics.IncLogin("success")
	return s.issueToken(user)
}

// RequestPasswordReset sends a reset code to the phone; requests are throttled per phone.
func (s *UserService) RequestPasswordReset(ctx context.Context, phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return domain.Errorf(domain.ErrValidation, "Please enter your phone number")
	}
	if err := s.throttleOTP(ctx, phone); err != nil {
		return err
	}

	user, err := s.findUser(s.repo.GetUserByPhone(ctx, phone))
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, user, models.OTPPurposeReset, user.Phone)
}

// RequestPasswordResetByEmail sends a reset code to the email address.
func (s *UserService) RequestPasswordResetByEmail(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return domain.Errorf(domain.ErrValidation, "Please enter your email")
	}
	if err := s.throttleOTP(ctx, email); err != nil {
		return err
	}

	user, err := s.findUser(s.repo.GetUserByEmail(ctx, email))
	if err != nil {
		return err
	}
	return s.issueOTP(ctx, user, models.OTPPurposeReset, user.Email)
}

func (s *UserService) ResetPassword(ctx context.Context, phone, code, newPassword string) error {
	phone = strings.TrimSpace(phone)
	if err := validateReset(phone, code, newPassword); err != nil {
		return err
	}
	user, err := s.findUser(s.repo.GetUserByPhone(ctx, phone))
	if err != nil {
		return err
	}
	return s.resetWithOTP(ctx, user, code, newPassword)
}

func (s *UserService) ResetPasswordByEmail(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)
	if err := validateReset(email, code, newPassword); err != nil {
		return err
	}
	user, err := s.findUser(s.repo.GetUserByEmail(ctx, email))
	if err != nil {
		return err
	}
	return s.resetWithOTP(ctx, user, code, newPassword)
}

func validateReset(key, code, newPassword string) error {
	if key == "" || code == "" || newPassword == "" {
		return domain.Errorf(domain.ErrValidation, "Please enter all fields")
	}
	if err := auth.ValidatePasswordStrength(newPassword); err != nil {
		return domain.Errorf(domain.ErrValidation, "%s", err.Error())
	}
	return nil
}

func (s *UserService) resetWithOTP(ctx context.Context, user *models.User, code, newPassword string) error {
	if err := s.checkOTP(ctx, user, models.OTPPurposeReset, code); err != nil {
		return err
	}

	history, err := s.repo.GetPasswordHistory(ctx, user.ID, s.security.PasswordHistorySize)
	if err != nil {
		return err
	}
	for _, old := range history {
		if auth.CheckPassword(old, newPassword) {
			return domain.Errorf(domain.ErrValidation, "New password cannot be one of the last %d passwords", s.security.PasswordHistorySize)
		}
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdatePassword(ctx, user.ID, hash, s.security.PasswordHistorySize); err != nil {
		return err
	}
	s.logger.Info().Str("user_id", user.ID).Msg("Password reset")
	return nil
}

// throttleOTP limits code requests per phone or email.
func (s *UserService) throttleOTP(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	allowed, err := s.limiter.CheckRateLimit(ctx, "otp:"+key, s.security.OTPRequestLimit, s.security.OTPRequestWindow)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.Errorf(domain.ErrRateLimited, "Too many OTP requests. Try again later.")
	}
	return nil
}

func (s *UserService) findUser(user *models.User, err error) (*models.User, error) {
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return user, err
}

// Authenticate resolves a bearer token to the caller identity.
func (s *UserService) Authenticate(ctx context.Context, token string) (models.Identity, error) {
	if token == "" {
		return models.Identity{}, domain.Errorf(domain.ErrUnauthorized, "Authorization token is missing")
	}
	id, err := s.tokens.Parse(token)
	if err != nil {
		return models.Identity{}, domain.Errorf(domain.ErrUnauthorized, "Invalid or expired token")
	}
	return id, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.GetUserByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, domain.Errorf(domain.ErrNotFound, "User not found")
	}
	return user, err
}

func (s *UserService) UpdateProfile(ctx context.Context, id, fullName, phone string) (*models.User, error) {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if v := strings.TrimSpace(fullName); v != "" {
		if n := len([]rune(v)); n < 3 || n > 50 {
			return nil, domain.Errorf(domain.ErrValidation, "Full name must be between 3 and 50 characters")
		}
		user.FullName = v
	}
	if v := strings.TrimSpace(phone); v != "" {
		user.Phone = v
	}

	if err := s.repo.UpdateUserProfile(ctx, user); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, domain.Errorf(domain.ErrValidation, "Phone number already in use")
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) ListUsers(ctx context.Context) ([]*models.User, error) {
	return s.repo.GetAllUsers(ctx)
}

func (s *UserService) issueToken(user *models.User) (*LoginResult, error) {
	token, expires, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: &expires, User: user}, nil
}

func (s *UserService) issueOTP(ctx context.Context, user *models.User, purpose, destination string) error {
	code, err := auth.GenerateOTP(models.OTPLength)
	if err != nil {
		return err
	}
	expires := s.now().Add(s.security.OTPTTL)
	if err := s.repo.SetUserOTP(ctx, user.ID, auth.HashOTP(code), purpose, &expires); err != nil {
		return err
	}
	if err := s.otp.SendOTP(ctx, destination, code, purpose); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	return nil
}

// checkOTP validates a pending code. Wrong guesses are counted and the code is
// discarded once MaxOTPAttempts is reached.
func (s *UserService) checkOTP(ctx context.Context, user *models.User, purpose, code string) error {
	if user.OTPHash == "" || user.OTPPurpose != purpose {
		return domain.Errorf(domain.ErrValidation, "Invalid OTP")
	}
	if !auth.CheckOTP(user.OTPHash, code) {
		attempts, err := s.repo.RecordOTPFailure(ctx, user.ID)
		if err != nil {
			return err
		}
		if attempts >= s.security.MaxOTPAttempts {
			if err := s.repo.SetUserOTP(ctx, user.ID, "", "", nil); err != nil {
				return err
			}
			s.logger.Warn().Str("user_id", user.ID).Str("purpose", purpose).Msg("OTP discarded after failed attempts")
			return domain.Errorf(domain.ErrValidation, "Too many invalid OTP attempts. Request a new code.")
		}
		return domain.Errorf(domain.ErrValidation, "Invalid OTP")
	}
	if user.OTPExpiresAt == nil || s.now().After(*user.OTPExpiresAt) {
		return domain.Errorf(domain.ErrValidation, "OTP expired")
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// LogOTPSender writes codes to the log instead of an SMS or mail provider.
type LogOTPSender struct {
	logger *zerolog.Logger
}

func NewLogOTPSender(logger *zerolog.Logger) *LogOTPSender {
	return &LogOTPSender{logger: logger}
}

func (s *LogOTPSender) SendOTP(ctx context.Context, destination, code, purpose string) error {
	s.logger.Info().Str("destination", destination).Str("purpose", purpose).Str("code", code).Msg("OTP issued")
	return nil
}
