package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Mailer performs the actual delivery of a rendered message.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

type Handler struct {
	logger *slog.Logger
	mailer Mailer
}

func NewHandler(logger *slog.Logger, mailer Mailer) *Handler {
	return &Handler{logger: logger, mailer: mailer}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailDelivery, h.HandleEmailDelivery)
}

func (h *Handler) HandleEmailDelivery(ctx context.Context, t *asynq.Task) error {
	var payload EmailDeliveryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	h.logger.Info("delivering email", "to", payload.To, "subject", payload.Subject)

	if err := h.mailer.Send(ctx, payload.To, payload.Subject, payload.HTML); err != nil {
		h.logger.Error("email delivery failed", "to", payload.To, "error", err)
		return err
	}

	return nil
}
