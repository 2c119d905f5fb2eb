package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"webpush-notification/internal/model"
	"webpush-notification/internal/queue"
	"webpush-notification/internal/webpush"
)

// maxBodyBytes caps a /notify body. Push services accept at most 4 KiB of
// payload, so this leaves room for JSON escaping and the subscription.
const maxBodyBytes = 16 << 10

type NotifyHandler struct {
	queue    queue.Queue
	validate *validator.Validate
	limiter  *rate.Limiter
	logger   zerolog.Logger
}

// NewNotifyHandler returns the POST /notify handler. A nil limiter disables
// rate limiting.
func NewNotifyHandler(q queue.Queue, limiter *rate.Limiter, logger zerolog.Logger) *NotifyHandler {
	validate := validator.New()
	validate.RegisterStructValidation(validateSubscription, webpush.Subscription{})

	return &NotifyHandler{
		queue:    q,
		validate: validate,
		limiter:  limiter,
		logger:   logger.With().Str("handler", "notify").Logger(),
	}
}

func (h *NotifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.limiter != nil && !h.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req model.PushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		http.Error(w, validationMessage(err), http.StatusBadRequest)
		return
	}

	// Decode the keys now so a bad subscription is rejected here rather
	// than dropped by a worker later.
	if _, err := req.Notification(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task := &model.Task{
		ID:        uuid.NewString(),
		Request:   req,
		CreatedAt: time.Now().UTC(),
	}

	if err := h.queue.Enqueue(r.Context(), task); err != nil {
		if errors.Is(err, queue.ErrQueueFull) {
			http.Error(w, "System busy, please try again later", http.StatusServiceUnavailable)
			return
		}
		h.logger.Error().Err(err).Str("task_id", task.ID).Msg("failed to enqueue task")
		http.Error(w, "Failed to enqueue notification", http.StatusInternalServerError)
		return
	}

	h.logger.Debug().Str("task_id", task.ID).Str("endpoint", req.Subscription.Endpoint).Msg("task enqueued")
	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":  "accepted",
		"task_id": task.ID,
	})
}

// validateSubscription checks the browser subscription fields; the type
// comes from webpush-go and carries no validate tags.
func validateSubscription(sl validator.StructLevel) {
	sub := sl.Current().Interface().(webpush.Subscription)

	switch {
	case sub.Endpoint == "":
		sl.ReportError(sub.Endpoint, "Endpoint", "Endpoint", "required", "")
	case sl.Validator().Var(sub.Endpoint, "url") != nil:
		sl.ReportError(sub.Endpoint, "Endpoint", "Endpoint", "url", "")
	}
	if sub.Keys.P256dh == "" {
		sl.ReportError(sub.Keys.P256dh, "Keys.P256dh", "P256dh", "required", "")
	}
	if sub.Keys.Auth == "" {
		sl.ReportError(sub.Keys.Auth, "Keys.Auth", "Auth", "required", "")
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request"
	}
	fe := verrs[0]
	switch fe.Tag() {
	case "required":
		return fe.Namespace() + " is required"
	case "url":
		return fe.Namespace() + " must be an absolute URL"
	}
	return fe.Namespace() + " is invalid"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
