// Package notify implements the auth router's Notifier on top of the
// asynq task queue. Delivery happens in the worker; retry policy lives
// there too, never in the router.
package notify

import (
	"context"
	"fmt"

	"github.com/calum/gatehouse/internal/auth"
	"github.com/calum/gatehouse/internal/tasks"
	"github.com/hibiken/asynq"
)

type QueueNotifier struct {
	client *asynq.Client
}

func NewQueueNotifier(client *asynq.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

func (n *QueueNotifier) SendEmail(ctx context.Context, to, subject, html string) error {
	task, err := tasks.NewEmailDeliveryTask(tasks.EmailDeliveryPayload{
		To:      to,
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("building email task: %w", err)
	}

	_, err = n.client.EnqueueContext(ctx, task,
		asynq.Queue("critical"),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueueing email task: %w", err)
	}
	return nil
}

var _ auth.Notifier = (*QueueNotifier)(nil)
