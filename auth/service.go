// Package auth registers users, verifies their e-mail with one-time codes,
// and issues the bearer tokens the API checks.
package auth

import (
	"context"
	"fmt"
	"strings"

	"github.com/guileen/finledger/codec"
	"github.com/guileen/finledger/config"
	apperrors "github.com/guileen/finledger/errors"
	"github.com/guileen/finledger/idgen"
	"github.com/guileen/finledger/logger"
	"github.com/guileen/finledger/store"
)

const invalidCredentials = "invalid e-mail or password"

// Session is what a successful verification or login hands back.
type Session struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// Service implements the account flows.
type Service struct {
	users      store.UserStore
	ids        idgen.IDGeneratorInterface
	mailer     Mailer
	tokens     *TokenIssuer
	limiter    *AttemptLimiter
	bcryptCost int
	newCode    func() (string, error)
}

func NewService(users store.UserStore, ids idgen.IDGeneratorInterface, mailer Mailer, cfg config.AuthConfig) (*Service, error) {
	tokens, err := NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:      users,
		ids:        ids,
		mailer:     mailer,
		tokens:     tokens,
		limiter:    NewAttemptLimiter(cfg.VerifyMaxAttempts, cfg.VerifyWindow),
		bcryptCost: cfg.BcryptCost,
		newCode:    NewCode,
	}, nil
}

// Tokens exposes the issuer for the auth middleware.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Register creates an unverified account and mails a code. Registering an
// address that exists but was never verified only issues a fresh code.
func (s *Service) Register(ctx context.Context, email, password string) error {
	const op = "auth.Register"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	code, err := s.newCode()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, op)
	}

	existing, err := s.users.UserByEmail(ctx, email)
	switch {
	case err == nil && existing.Verified:
		return apperrors.NewConflictError(op, "e-mail is already registered and verified")
	case err == nil:
		existing.VerificationCode = code
		if err := s.users.UpdateUser(ctx, existing); err != nil {
			return err
		}
		return s.sendCode(ctx, op, email, "Your new verification code", code)
	case !apperrors.IsNotFound(err):
		return err
	}

	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	u := &store.User{
		ID:               s.ids.NewUserID(),
		Email:            email,
		PasswordHash:     hash,
		VerificationCode: code,
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return err
	}

	logger.InfoContext(ctx, "user registered", logger.Component("auth"), logger.String("user_id", u.ID))
	return s.sendCode(ctx, op, email, "Your verification code", code)
}

// Verify checks an e-mail verification code and logs the user in.
func (s *Service) Verify(ctx context.Context, email, code string) (*Session, error) {
	const op = "auth.Verify"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return nil, err
	}
	if !s.limiter.Allow("verify:" + email) {
		return nil, apperrors.NewRateLimitedError(op, "too many attempts, wait a minute and try again")
	}

	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewValidationError(op, "invalid verification code")
		}
		return nil, err
	}
	if !codesEqual(u.VerificationCode, strings.TrimSpace(code)) {
		return nil, apperrors.NewValidationError(op, "invalid verification code")
	}

	u.Verified = true
	u.VerificationCode = ""
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	s.limiter.Reset("verify:" + email)

	return s.session(op, u)
}

// Login checks credentials of a verified user.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	const op = "auth.Login"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return nil, err
	}
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorizedError(op, invalidCredentials)
		}
		return nil, err
	}

	ok, err := CheckPassword(u.PasswordHash, password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, op)
	}
	if !ok {
		return nil, apperrors.NewUnauthorizedError(op, invalidCredentials)
	}
	if !u.Verified {
		return nil, apperrors.NewUnauthorizedError(op, "verify your e-mail first")
	}

	return s.session(op, u)
}

// ForgotPassword mails a reset code to an existing user.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	const op = "auth.ForgotPassword"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFoundError(op, "no user registered with this e-mail")
		}
		return err
	}

	code, err := s.newCode()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnknown, op)
	}
	u.VerificationCode = code
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	return s.sendCode(ctx, op, email, "Your password reset code", code)
}

// ResetPassword replaces the password when code matches the last mailed
// code. Attempts share the verification limit.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	const op = "auth.ResetPassword"

	email, err := normalizeEmail(op, email)
	if err != nil {
		return err
	}
	if !s.limiter.Allow("reset:" + email) {
		return apperrors.NewRateLimitedError(op, "too many attempts, wait a minute and try again")
	}

	u, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewValidationError(op, "invalid reset code")
		}
		return err
	}
	if !codesEqual(u.VerificationCode, strings.TrimSpace(code)) {
		return apperrors.NewValidationError(op, "invalid reset code")
	}

	hash, err := HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, op)
	}
	u.PasswordHash = hash
	u.VerificationCode = ""
	if err := s.users.UpdateUser(ctx, u); err != nil {
		return err
	}
	s.limiter.Reset("reset:" + email)
	return nil
}

// Authenticate resolves a bearer token to its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "auth.Authenticate")
	}
	return claims, nil
}

func (s *Service) session(op string, u *store.User) (*Session, error) {
	token, err := s.tokens.Issue(u.Email, u.ID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeUnknown, op)
	}
	return &Session{Token: token, Username: u.Email}, nil
}

func (s *Service) sendCode(ctx context.Context, op, to, subject, code string) error {
	body := fmt.Sprintf("Your code is %s\n\nEnter it in finledger to continue.\n", code)
	if err := s.mailer.Send(ctx, to, subject, body); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeUnknown, op, "could not send e-mail")
	}
	return nil
}

func normalizeEmail(op, email string) (string, error) {
	email = codec.NormalizeEmail(email)
	at := strings.IndexByte(email, '@')
	if at <= 0 || at == len(email)-1 {
		return "", apperrors.NewValidationError(op, "a valid e-mail address is required")
	}
	return email, nil
}
