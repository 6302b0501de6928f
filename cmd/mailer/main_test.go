package main

import (
	"context"
	"errors"
	"testing"

	"yoga-studio/internal/infra/mailer"
	"yoga-studio/internal/logging"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sent []mailer.Message
	err  error
}

func (r *recorder) Send(_ context.Context, msg mailer.Message) error {
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	return nil
}

func TestDeliver(t *testing.T) {
	rec := &recorder{}
	handle := deliver(rec, logging.Discard())

	require.NoError(t, handle(context.Background(), []byte(`{"to":"a@example.com","subject":"Hi","body":"Hello"}`)))
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "a@example.com", rec.sent[0].To)

	// malformed bodies are acknowledged and dropped
	require.NoError(t, handle(context.Background(), []byte(`not json`)))
	require.NoError(t, handle(context.Background(), []byte(`{"subject":"no recipient"}`)))
	assert.Len(t, rec.sent, 1)

	rec.err = errors.New("smtp down")
	assert.Error(t, handle(context.Background(), []byte(`{"to":"b@example.com","subject":"Hi","body":"x"}`)))
}
