package auth

import (
	"context"
	"fmt"
	"strings"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/users"
)

// GoogleIdentity is the verified subset of a Google ID token.
type GoogleIdentity struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// GoogleLogin finds the account by Google subject, then by email (linking
// the subject), and otherwise creates a verified account. Linking onto an
// unverified local account discards its password: whoever chose it never
// proved they own the inbox.
func (s *Service) GoogleLogin(ctx context.Context, id GoogleIdentity) (*Session, error) {
	const op = "auth.GoogleLogin"

	if id.Sub == "" {
		return nil, apperr.Unauthorized("Google token is missing the subject")
	}
	email := users.NormalizeEmail(id.Email)
	if email == "" || !id.EmailVerified {
		return nil, apperr.Unauthorized(errNoEmail.Error())
	}

	u, err := s.store.Users.GetByGoogleSub(ctx, id.Sub)
	if err == nil {
		return s.issue(u)
	}
	if !apperr.IsKind(err, apperr.KindNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err = s.store.Users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		sub := id.Sub
		u.GoogleSub = &sub
		if !u.IsVerified {
			u.Password = nil
			u.AuthProvider = users.ProviderGoogle
			u.IsVerified = true
			if err := s.store.Tokens.Delete(ctx, u.ID, users.TokenEmailOTP); err != nil {
				s.log.WithError(err).WithField("user_id", u.ID).Warn("Failed to delete pending verification code")
			}
		}
		if u.AvatarURL == "" {
			u.AvatarURL = id.Picture
		}
		if err := s.store.Users.Update(ctx, u); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		return s.issue(u)
	case !apperr.IsKind(err, apperr.KindNotFound):
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	sub := id.Sub
	u = &users.User{
		Name:         firstNonEmpty(id.GivenName, id.Name, strings.Split(email, "@")[0]),
		Lastname:     id.FamilyName,
		Email:        email,
		AuthProvider: users.ProviderGoogle,
		GoogleSub:    &sub,
		Role:         users.RoleUser,
		IsVerified:   true,
		AvatarURL:    id.Picture,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	s.log.WithField("user_id", u.ID).Info("Created account from Google sign-in")
	return s.issue(u)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
