package community

import (
	"context"
	"testing"

	"yoga-studio/internal/apperr"
	"yoga-studio/internal/domain/access"
	"yoga-studio/internal/domain/community"
	"yoga-studio/internal/domain/users"
	"yoga-studio/internal/logging"
	"yoga-studio/internal/repository"
	"yoga-studio/internal/repository/memstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSanitizes(t *testing.T) {
	svc := New(memstore.New(), logging.Discard())
	ctx := context.Background()

	p, err := svc.Create(ctx, 1, `<p>Morning flow <b>felt great</b></p><script>alert(1)</script>`, "")
	require.NoError(t, err)
	assert.Equal(t, `<p>Morning flow <b>felt great</b></p>`, p.Content)

	_, err = svc.Create(ctx, 1, `<script>alert(1)</script>`, "")
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestAuthorRules(t *testing.T) {
	svc := New(memstore.New(), logging.Discard())
	ctx := context.Background()
	author := access.Actor{UserID: 1, Role: users.RoleUser}
	other := access.Actor{UserID: 2, Role: users.RoleUser}

	p, err := svc.Create(ctx, author.UserID, "Namaste", "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, other, p.ID, "hijack", nil)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	updated, err := svc.Update(ctx, author, p.ID, "Namaste everyone", nil)
	require.NoError(t, err)
	assert.Equal(t, "Namaste everyone", updated.Content)

	liked, err := svc.Like(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, liked.Likes)

	assert.True(t, apperr.IsKind(svc.Delete(ctx, other, p.ID), apperr.KindForbidden))
	require.NoError(t, svc.Delete(ctx, author, p.ID))

	_, err = svc.Like(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = svc.Like(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestFlagAndModerate(t *testing.T) {
	svc := New(memstore.New(), logging.Discard())
	ctx := context.Background()
	page := repository.Page{}

	spam, err := svc.Create(ctx, 1, "Buy followers", "")
	require.NoError(t, err)
	fine, err := svc.Create(ctx, 1, "Great class today", "")
	require.NoError(t, err)

	assert.True(t, apperr.IsKind(svc.Flag(ctx, 2, spam.ID, "  "), apperr.KindValidation))
	require.NoError(t, svc.Flag(ctx, 2, spam.ID, "spam"))
	require.NoError(t, svc.Flag(ctx, 2, fine.ID, "mistake"))

	feed, err := svc.Feed(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, feed)

	flagged, err := svc.Flagged(ctx, page)
	require.NoError(t, err)
	assert.Len(t, flagged, 2)

	assert.True(t, apperr.IsKind(svc.Moderate(ctx, fine.ID, "ignore"), apperr.KindValidation))
	require.NoError(t, svc.Moderate(ctx, fine.ID, community.ModerationApprove))
	require.NoError(t, svc.Moderate(ctx, spam.ID, community.ModerationRemove))

	feed, err = svc.Feed(ctx, page)
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, fine.ID, feed[0].ID)
	assert.Empty(t, feed[0].FlagReason)

	flagged, err = svc.Flagged(ctx, page)
	require.NoError(t, err)
	assert.Empty(t, flagged)
}
