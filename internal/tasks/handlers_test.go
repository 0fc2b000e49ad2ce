package tasks_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/calum/gatehouse/internal/tasks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMailer struct {
	to, subject, html string
	err               error
}

func (m *fakeMailer) Send(_ context.Context, to, subject, html string) error {
	if m.err != nil {
		return m.err
	}
	m.to, m.subject, m.html = to, subject, html
	return nil
}

func TestHandler_EmailDelivery(t *testing.T) {
	logger := slog.Default()

	t.Run("delivers the payload", func(t *testing.T) {
		mailer := &fakeMailer{}
		h := tasks.NewHandler(logger, mailer)

		task, err := tasks.NewEmailDeliveryTask(tasks.EmailDeliveryPayload{
			To:      "a@x.com",
			Subject: "Activate your account",
			HTML:    `<a href="http://localhost/activate/1">here</a>`,
		})
		require.NoError(t, err)

		require.NoError(t, h.HandleEmailDelivery(context.Background(), task))
		assert.Equal(t, "a@x.com", mailer.to)
		assert.Equal(t, "Activate your account", mailer.subject)
		assert.Contains(t, mailer.html, "<a href=")
	})

	t.Run("returns mailer errors so asynq retries", func(t *testing.T) {
		mailer := &fakeMailer{err: errors.New("connection reset")}
		h := tasks.NewHandler(logger, mailer)

		task, err := tasks.NewEmailDeliveryTask(tasks.EmailDeliveryPayload{To: "a@x.com"})
		require.NoError(t, err)

		assert.Error(t, h.HandleEmailDelivery(context.Background(), task))
	})
}
