// Package auth registers accounts, verifies email ownership and issues
// session tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/infra/metrics"
	"yoga-studio/internal/lib/jwt"
	"yoga-studio/internal/lib/otp"
	"yoga-studio/internal/lib/password"
	"yoga-studio/internal/repository"

	"github.com/sirupsen/logrus"
)

const resetTTL = time.Hour

var (
	ErrInvalidCredentials = apperr.Unauthorized("Invalid email or password")
	ErrNotVerified        = apperr.Forbidden("Please verify your email before logging in")
	ErrInvalidCode        = apperr.Validation("Invalid or expired verification code")
	ErrTooManyAttempts    = apperr.Validation("Too many incorrect attempts; request a new code")
	ErrInvalidResetToken  = apperr.Validation("Invalid or expired reset token")
	ErrAlreadyVerified    = apperr.Validation("Email is already verified")
	ErrWeakPassword       = apperr.Validation("Password must be at least 8 characters long and contain both letters and numbers")
)

type Options struct {
	OTPTTL time.Duration
	AppURL string
}

type Service struct {
	store   *repository.Store
	tokens  *jwt.Maker
	mail    mailer.Mailer
	metrics *metrics.Metrics
	log     *logrus.Logger
	opts    Options
	now     func() time.Time
}

func New(store *repository.Store, tokens *jwt.Maker, mail mailer.Mailer, m *metrics.Metrics, log *logrus.Logger, opts Options) *Service {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	return &Service{
		store:   store,
		tokens:  tokens,
		mail:    mail,
		metrics: m,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// Session is what a successful login hands back to the client.
type Session struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *users.User `json:"user"`
}

type RegisterInput struct {
	Name     string
	Lastname string
	Tel      string
	Email    string
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*users.User, error) {
	const op = "auth.Register"

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperr.Validation("Name is required")
	}
	email, err := parseEmail(in.Email)
	if err != nil {
		return nil, err
	}
	if !password.IsStrong(in.Password) {
		return nil, ErrWeakPassword
	}

	hash, err := password.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("Failed to hash password", err)
	}

	u := &users.User{
		Name:         in.Name,
		Lastname:     strings.TrimSpace(in.Lastname),
		Tel:          strings.TrimSpace(in.Tel),
		Email:        email,
		Password:     &hash,
		AuthProvider: users.ProviderLocal,
		Role:         users.RoleUser,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if apperr.IsKind(err, apperr.KindConflict) {
			return nil, repository.ErrEmailTaken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// The account exists either way; a lost code can be resent.
	if err := s.sendOTP(ctx, u); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Verification email not sent")
	}
	return u, nil
}

func (s *Service) VerifyOTP(ctx context.Context, email, code string) (*Session, error) {
	const op = "auth.VerifyOTP"

	u, err := s.store.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.IsVerified {
		return nil, ErrAlreadyVerified
	}

	tok, err := s.store.Tokens.Get(ctx, u.ID, users.TokenEmailOTP)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrInvalidCode
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tok.Exhausted() {
		return nil, ErrTooManyAttempts
	}
	if tok.Expired(s.now()) {
		return nil, ErrInvalidCode
	}
	if subtle.ConstantTimeCompare([]byte(tok.Code), []byte(strings.TrimSpace(code))) != 1 {
		if err := s.store.Tokens.RecordAttempt(ctx, u.ID, users.TokenEmailOTP); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return nil, ErrInvalidCode
	}

	u.IsVerified = true
	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := s.store.Tokens.Delete(ctx, u.ID, users.TokenEmailOTP); err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to delete used verification code")
	}
	return s.issue(u)
}

func (s *Service) ResendOTP(ctx context.Context, email string) error {
	const op = "auth.ResendOTP"

	u, err := s.store.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return apperr.NotFound("No account with this email")
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	if err := s.sendOTP(ctx, u); err != nil {
		return apperr.Internal("Failed to send verification email", err)
	}
	return nil
}

// Login checks the password before the verified flag so an unverified
// account does not reveal itself to someone without the password.
func (s *Service) Login(ctx context.Context, email, plain string) (*Session, error) {
	const op = "auth.Login"

	u, err := s.store.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !u.HasPassword() {
		return nil, ErrInvalidCredentials
	}
	if err := password.Compare(*u.Password, plain); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !u.IsVerified {
		return nil, ErrNotVerified
	}
	return s.issue(u)
}

// ForgotPassword mails a reset link. Unknown addresses succeed silently.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	u, err := s.store.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	token, err := otp.NewToken()
	if err != nil {
		return apperr.Internal("Failed to create reset token", err)
	}
	err = s.store.Tokens.Upsert(ctx, &users.VerificationToken{
		UserID:    u.ID,
		Type:      users.TokenPasswordReset,
		Code:      token,
		ExpiresAt: s.now().Add(resetTTL),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	link := strings.TrimRight(s.opts.AppURL, "/") + "/reset-password?token=" + token
	err = s.mail.Send(ctx, mailer.PasswordResetEmail(u.Email, u.Name, link))
	s.metrics.Mail("password_reset", err)
	if err != nil {
		s.log.WithError(err).WithField("user_id", u.ID).Warn("Password reset email not sent")
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	const op = "auth.ResetPassword"

	if !password.IsStrong(newPassword) {
		return ErrWeakPassword
	}
	tok, err := s.store.Tokens.GetByCode(ctx, users.TokenPasswordReset, token)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	if tok.Expired(s.now()) {
		return ErrInvalidResetToken
	}

	u, err := s.store.Users.GetByID(ctx, tok.UserID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.setPassword(ctx, u, newPassword); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	// Following the link proves control of the inbox.
	if !u.IsVerified {
		u.IsVerified = true
		if err := s.store.Users.Update(ctx, u); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return s.store.Tokens.Delete(ctx, u.ID, users.TokenPasswordReset)
}

func (s *Service) ChangePassword(ctx context.Context, userID uint, current, next string) error {
	const op = "auth.ChangePassword"

	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if u.HasPassword() {
		if err := password.Compare(*u.Password, current); err != nil {
			return apperr.Unauthorized("Current password is incorrect")
		}
	}
	if !password.IsStrong(next) {
		return ErrWeakPassword
	}
	if err := s.setPassword(ctx, u, next); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Issue signs a session for an already authenticated user.
func (s *Service) Issue(u *users.User) (*Session, error) {
	return s.issue(u)
}

func (s *Service) issue(u *users.User) (*Session, error) {
	token, err := s.tokens.Generate(u.ID, u.Email, u.Role)
	if err != nil {
		return nil, apperr.Internal("Could not create token", err)
	}
	return &Session{Token: token, ExpiresAt: s.now().Add(s.tokens.TTL()), User: u}, nil
}

func (s *Service) setPassword(ctx context.Context, u *users.User, plain string) error {
	hash, err := password.Hash(plain)
	if err != nil {
		return apperr.Internal("Failed to hash password", err)
	}
	u.Password = &hash
	return s.store.Users.Update(ctx, u)
}

func (s *Service) sendOTP(ctx context.Context, u *users.User) error {
	code, err := otp.NewCode()
	if err != nil {
		return err
	}
	err = s.store.Tokens.Upsert(ctx, &users.VerificationToken{
		UserID:    u.ID,
		Type:      users.TokenEmailOTP,
		Code:      code,
		ExpiresAt: s.now().Add(s.opts.OTPTTL),
	})
	if err != nil {
		return err
	}
	err = s.mail.Send(ctx, mailer.OTPEmail(u.Email, u.Name, code, s.opts.OTPTTL))
	s.metrics.Mail("otp", err)
	return err
}

func parseEmail(raw string) (string, error) {
	email := users.NormalizeEmail(raw)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		return "", apperr.Validation("Invalid email format")
	}
	return email, nil
}

var errNoEmail = errors.New("identity has no verified email")
