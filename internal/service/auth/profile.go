package auth

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/users"
)

const maxBioLength = 1000

var ErrUserNotFound = apperr.NotFound("User not found")

// ProfileInput holds the self-editable fields; nil leaves a field unchanged.
type ProfileInput struct {
	Name      *string
	Lastname  *string
	Tel       *string
	Bio       *string
	AvatarURL *string
}

func (s *Service) Me(ctx context.Context, userID uint) (*users.User, error) {
	u, err := s.store.Users.GetByID(ctx, userID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("auth.Me: %w", err)
	}
	return u, nil
}

func (s *Service) UpdateProfile(ctx context.Context, userID uint, in ProfileInput) (*users.User, error) {
	u, err := s.Me(ctx, userID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperr.Validation("Name cannot be empty")
		}
		u.Name = name
	}
	if in.Lastname != nil {
		u.Lastname = strings.TrimSpace(*in.Lastname)
	}
	if in.Tel != nil {
		u.Tel = strings.TrimSpace(*in.Tel)
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLength {
			return nil, apperr.Validation("Bio is longer than %d characters", maxBioLength)
		}
		u.Bio = strings.TrimSpace(*in.Bio)
	}
	if in.AvatarURL != nil {
		avatar := strings.TrimSpace(*in.AvatarURL)
		if avatar != "" {
			parsed, err := url.Parse(avatar)
			if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
				return nil, apperr.Validation("avatar_url must be an http(s) URL")
			}
		}
		u.AvatarURL = avatar
	}

	if err := s.store.Users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("auth.UpdateProfile: %w", err)
	}
	return u, nil
}
