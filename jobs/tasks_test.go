package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	sent []WelcomeEmailPayload
	err  error
}

func (m *fakeMailer) SendWelcome(_ context.Context, userID, userName string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, WelcomeEmailPayload{UserID: userID, UserName: userName})
	return nil
}

type fakePurger struct {
	cutoff  time.Time
	removed int64
	err     error
}

func (p *fakePurger) PurgeRead(_ context.Context, olderThan time.Time) (int64, error) {
	p.cutoff = olderThan
	return p.removed, p.err
}

func TestWelcomeEmailHandlerDeliversPayload(t *testing.T) {
	mailer := &fakeMailer{}
	handler := NewWelcomeEmailHandler(mailer, nil)

	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{UserID: "u1", UserName: "Ada"})
	require.NoError(t, err)

	require.NoError(t, handler(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "u1", mailer.sent[0].UserID)
	assert.Equal(t, "Ada", mailer.sent[0].UserName)
}

func TestWelcomeEmailHandlerSkipsRetryOnBadPayload(t *testing.T) {
	handler := NewWelcomeEmailHandler(&fakeMailer{}, nil)
	task := asynq.NewTask(TaskTypeWelcomeEmail, []byte("not json"))

	err := handler(context.Background(), task)
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWelcomeEmailHandlerPropagatesMailerError(t *testing.T) {
	wantErr := errors.New("smtp down")
	handler := NewWelcomeEmailHandler(&fakeMailer{err: wantErr}, nil)

	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{UserID: "u1", UserName: "Ada"})
	require.NoError(t, err)

	assert.ErrorIs(t, handler(context.Background(), task), wantErr)
}

func TestNotificationCleanupUsesRetentionCutoff(t *testing.T) {
	purger := &fakePurger{removed: 3}
	retention := 30 * 24 * time.Hour
	handler := NewNotificationCleanupHandler(purger, retention, slog.Default(), nil)

	before := time.Now().UTC().Add(-retention)
	require.NoError(t, handler(context.Background(), NewNotificationCleanupTask()))
	after := time.Now().UTC().Add(-retention)

	assert.False(t, purger.cutoff.Before(before))
	assert.False(t, purger.cutoff.After(after))
}

func TestNotificationCleanupPropagatesError(t *testing.T) {
	wantErr := errors.New("db down")
	handler := NewNotificationCleanupHandler(&fakePurger{err: wantErr}, time.Hour, slog.Default(), nil)
	assert.ErrorIs(t, handler(context.Background(), NewNotificationCleanupTask()), wantErr)
}

func TestWelcomeEmailTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewWelcomeEmailTask(WelcomeEmailPayload{UserID: "u1", UserName: "Ada"})
	require.NoError(t, err)
	assert.Equal(t, TaskTypeWelcomeEmail, task.Type())

	var payload WelcomeEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "u1", payload.UserID)
}
