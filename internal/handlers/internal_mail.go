package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/auth"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/httpx"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/jobs"
	"github.com/baovptse192440/NongSanProject-sub002/internal/platform/requestctx"
	"github.com/baovptse192440/NongSanProject-sub002/internal/services"
)

// MailJobHandlers receives Pub/Sub push deliveries of queued order emails and sends them.
type MailJobHandlers struct {
	dispatcher services.EmailDispatcher
}

// NewMailJobHandlers constructs the push endpoint around a dispatcher that delivers mail directly.
func NewMailJobHandlers(dispatcher services.EmailDispatcher) *MailJobHandlers {
	return &MailJobHandlers{dispatcher: dispatcher}
}

// Routes registers endpoints below the /internal group.
func (h *MailJobHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/mail-jobs", h.deliver)
}

func (h *MailJobHandlers) deliver(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := requestctx.Logger(ctx)
	if h.dispatcher == nil {
		serviceUnavailable(ctx, w, "mail")
		return
	}
	if caller, ok := auth.PushCallerFromContext(ctx); ok {
		logger = logger.With(zap.String("pushCaller", caller.Email))
	}

	job, envelope, err := jobs.DecodeMailPush(r.Body)
	if err != nil {
		// Malformed deliveries are acknowledged so Pub/Sub stops redelivering them.
		logger.Warn("mail job dropped",
			zap.String("messageId", envelope.Message.MessageID),
			zap.Bool("malformed", errors.Is(err, jobs.ErrMalformedPush)),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	fields := []zap.Field{
		zap.String("messageId", envelope.Message.MessageID),
		zap.String("jobId", job.JobID),
		zap.String("kind", string(job.Kind)),
		zap.String("orderNumber", job.Order.Number),
	}
	if err := h.dispatcher.Dispatch(ctx, job); err != nil {
		logger.Error("mail job failed", append(fields, zap.Error(err))...)
		httpx.WriteError(ctx, w, httpx.NewError("mail_delivery_failed", "mail delivery failed", http.StatusServiceUnavailable))
		return
	}

	logger.Info("mail job delivered", fields...)
	w.WriteHeader(http.StatusNoContent)
}
