package model

import (
	"time"

	"webpush-notification/internal/webpush"
)

// PushRequest is the body accepted on POST /notify.
type PushRequest struct {
	Subscription webpush.Subscription `json:"subscription"`
	Payload      string               `json:"payload"`
	TTL          *int                 `json:"ttl,omitempty"`
	Urgency      string               `json:"urgency,omitempty"`
}

// Notification builds the push descriptor for this request. TTL and urgency
// fall back to the descriptor defaults when absent.
func (r PushRequest) Notification() (*webpush.Notification, error) {
	var opts []webpush.Option
	if r.TTL != nil {
		opts = append(opts, webpush.WithTTL(*r.TTL))
	}
	if r.Urgency != "" {
		u, err := webpush.ParseUrgency(r.Urgency)
		if err != nil {
			return nil, err
		}
		opts = append(opts, webpush.WithUrgency(u))
	}
	return webpush.FromSubscription(r.Subscription, r.Payload, opts...)
}

// Task wraps a request with queue metadata
type Task struct {
	ID        string      `json:"id"`
	Request   PushRequest `json:"request"`
	CreatedAt time.Time   `json:"created_at"`
}
