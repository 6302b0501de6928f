package memstore

import (
	"context"
	"fmt"
	"time"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/repository"
)

type userRepo struct{ s *state }

func (r *userRepo) Create(_ context.Context, u *users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u.Email = users.NormalizeEmail(u.Email)
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
		if u.GoogleSub != nil && existing.GoogleSub != nil && *existing.GoogleSub == *u.GoogleSub {
			return fmt.Errorf("memstore.Users.Create: %w", apperr.ErrConflict)
		}
	}
	if u.Role == "" {
		u.Role = users.RoleUser
	}
	if u.AuthProvider == "" {
		u.AuthProvider = users.ProviderLocal
	}
	u.ID = r.s.nextID()
	u.CreatedAt = r.s.now()
	u.UpdatedAt = u.CreatedAt

	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id uint) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("memstore.Users.GetByID: %w", apperr.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = users.NormalizeEmail(email)
	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore.Users.GetByEmail: %w", apperr.ErrNotFound)
}

func (r *userRepo) GetByGoogleSub(_ context.Context, sub string) (*users.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.GoogleSub != nil && *u.GoogleSub == sub {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore.Users.GetByGoogleSub: %w", apperr.ErrNotFound)
}

func (r *userRepo) Update(_ context.Context, u *users.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; !ok {
		return fmt.Errorf("memstore.Users.Update: %w", apperr.ErrNotFound)
	}
	u.UpdatedAt = r.s.now()
	cp := *u
	r.s.users[u.ID] = &cp
	return nil
}

func (r *userRepo) List(_ context.Context, page repository.Page) ([]users.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	list := make([]users.User, 0, len(r.s.users))
	for _, u := range r.s.users {
		list = append(list, *u)
	}
	sortByCreatedDesc(list, func(u users.User) time.Time { return u.CreatedAt })
	return paginate(list, page), int64(len(list)), nil
}

func (r *userRepo) CountByRole(_ context.Context) (map[string]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := map[string]int64{}
	for _, u := range r.s.users {
		out[u.Role]++
	}
	return out, nil
}

type tokenRepo struct{ s *state }

func (r *tokenRepo) Upsert(_ context.Context, t *users.VerificationToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := tokenKey{userID: t.UserID, typ: t.Type}
	if existing, ok := r.s.tokens[key]; ok {
		t.ID = existing.ID
	} else {
		t.ID = r.s.nextID()
	}
	t.CreatedAt = r.s.now()
	cp := *t
	r.s.tokens[key] = &cp
	return nil
}

func (r *tokenRepo) Get(_ context.Context, userID uint, tokenType string) (*users.VerificationToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[tokenKey{userID: userID, typ: tokenType}]
	if !ok {
		return nil, fmt.Errorf("memstore.Tokens.Get: %w", apperr.ErrNotFound)
	}
	cp := *t
	return &cp, nil
}

func (r *tokenRepo) GetByCode(_ context.Context, tokenType, code string) (*users.VerificationToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for key, t := range r.s.tokens {
		if key.typ == tokenType && t.Code == code {
			cp := *t
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memstore.Tokens.GetByCode: %w", apperr.ErrNotFound)
}

func (r *tokenRepo) RecordAttempt(_ context.Context, userID uint, tokenType string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.tokens[tokenKey{userID: userID, typ: tokenType}]; ok {
		t.Attempts++
	}
	return nil
}

func (r *tokenRepo) Delete(_ context.Context, userID uint, tokenType string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.tokens, tokenKey{userID: userID, typ: tokenType})
	return nil
}
