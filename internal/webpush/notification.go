// Package webpush models the request descriptor for a single Web Push
// message: where it goes, the client keys needed to encrypt it, the payload
// and the TTL/Urgency delivery hints. Encryption, VAPID signing and the
// HTTP delivery itself live outside this package and only read the
// descriptor.
package webpush

import (
	"crypto/ecdh"
	"net/url"
	"strings"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
)

// DefaultTTL is the retention time, in seconds, used when none is given (28 days).
const DefaultTTL = 2419200

const (
	gcmPrefix = "https://android.googleapis.com/gcm/send"
	fcmPrefix = "https://fcm.googleapis.com/fcm/send"
)

// PushService labels the push service an endpoint belongs to.
type PushService string

const (
	PushServiceGCM   PushService = "gcm"
	PushServiceFCM   PushService = "fcm"
	PushServiceOther PushService = "other"
)

// Notification is an immutable push message request. Build one with New or
// FromSubscription; the zero value is not usable.
type Notification struct {
	endpoint      string
	userPublicKey *ecdh.PublicKey
	userAuth      []byte
	payload       []byte
	ttl           int
	urgency       Urgency
}

type builder struct {
	publicKey    *ecdh.PublicKey
	authSecret   []byte
	b64PublicKey *string
	b64Auth      *string
	payload      []byte
	ttl          int
	urgency      Urgency
}

// Option configures a Notification under construction.
type Option func(*builder)

// WithPublicKey sets the client's P-256 public key.
func WithPublicKey(key *ecdh.PublicKey) Option {
	return func(b *builder) {
		b.publicKey = key
		b.b64PublicKey = nil
	}
}

// WithAuthSecret sets the client's auth secret.
func WithAuthSecret(secret []byte) Option {
	return func(b *builder) {
		b.authSecret = secret
		b.b64Auth = nil
	}
}

// WithBase64Keys sets both client keys from their base64url form, as found
// in a subscription's keys.p256dh and keys.auth. Decoding happens in New.
func WithBase64Keys(p256dh, auth string) Option {
	return func(b *builder) {
		b.publicKey, b.authSecret = nil, nil
		b.b64PublicKey, b.b64Auth = &p256dh, &auth
	}
}

// WithPayload sets the raw message body.
func WithPayload(payload []byte) Option {
	return func(b *builder) { b.payload = payload }
}

// WithTextPayload sets the message body to the UTF-8 bytes of s.
func WithTextPayload(s string) Option {
	return func(b *builder) { b.payload = []byte(s) }
}

// WithTTL overrides DefaultTTL. Values are passed through unchecked.
func WithTTL(seconds int) Option {
	return func(b *builder) { b.ttl = seconds }
}

// WithUrgency sets the Urgency hint. UrgencyUnset leaves it absent.
func WithUrgency(u Urgency) Option {
	return func(b *builder) { b.urgency = u }
}

// New validates the options, decodes any base64 key material and returns
// the finished Notification. Nothing is returned on error.
func New(endpoint string, opts ...Option) (*Notification, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, ErrMissingEndpoint
	}

	b := builder{ttl: DefaultTTL}
	for _, opt := range opts {
		opt(&b)
	}

	if b.urgency != UrgencyUnset && !ValidUrgency(b.urgency) {
		return nil, errors.Wrapf(ErrInvalidUrgency, "value %q", string(b.urgency))
	}

	if b.b64PublicKey != nil {
		key, err := DecodePublicKey(*b.b64PublicKey)
		if err != nil {
			return nil, err
		}
		b.publicKey = key
	}
	if b.b64Auth != nil {
		secret, err := DecodeAuthSecret(*b.b64Auth)
		if err != nil {
			return nil, err
		}
		b.authSecret = secret
	}

	if len(b.payload) > 0 && (b.publicKey == nil || len(b.authSecret) == 0) {
		return nil, ErrMissingKeys
	}

	return &Notification{
		endpoint:      endpoint,
		userPublicKey: b.publicKey,
		userAuth:      cloneBytes(b.authSecret),
		payload:       cloneBytes(b.payload),
		ttl:           b.ttl,
		urgency:       b.urgency,
	}, nil
}

// FromSubscription builds a Notification for sub carrying payload as text.
// Further options (TTL, urgency) are applied after the subscription fields.
func FromSubscription(sub Subscription, payload string, opts ...Option) (*Notification, error) {
	base := []Option{
		WithBase64Keys(sub.Keys.P256dh, sub.Keys.Auth),
		WithTextPayload(payload),
	}
	return New(sub.Endpoint, append(base, opts...)...)
}

func (n *Notification) Endpoint() string { return n.endpoint }

func (n *Notification) UserPublicKey() *ecdh.PublicKey { return n.userPublicKey }

// UserAuth returns a copy of the client auth secret.
func (n *Notification) UserAuth() []byte { return cloneBytes(n.userAuth) }

// Payload returns a copy of the message body.
func (n *Notification) Payload() []byte { return cloneBytes(n.payload) }

func (n *Notification) HasPayload() bool { return len(n.payload) > 0 }

// TTL is the value for the TTL request header, in seconds.
func (n *Notification) TTL() int { return n.ttl }

// Urgency returns UrgencyUnset when no urgency was given.
func (n *Notification) Urgency() Urgency { return n.urgency }

func (n *Notification) HasUrgency() bool { return n.urgency != UrgencyUnset }

// IsGCM reports whether the endpoint is on the legacy GCM service.
func (n *Notification) IsGCM() bool { return strings.HasPrefix(n.endpoint, gcmPrefix) }

// IsFCM reports whether the endpoint is on Firebase Cloud Messaging.
func (n *Notification) IsFCM() bool { return strings.HasPrefix(n.endpoint, fcmPrefix) }

func (n *Notification) PushService() PushService {
	switch {
	case n.IsGCM():
		return PushServiceGCM
	case n.IsFCM():
		return PushServiceFCM
	}
	return PushServiceOther
}

// Origin returns scheme://host of the endpoint, used as the VAPID audience.
// The port, path and query are dropped.
func (n *Notification) Origin() (string, error) {
	u, err := url.Parse(n.endpoint)
	if err != nil {
		return "", &EndpointError{Endpoint: n.endpoint, Err: err}
	}
	if !u.IsAbs() || u.Opaque != "" || u.Host == "" {
		return "", &EndpointError{Endpoint: n.endpoint, Err: errors.New("missing scheme or host")}
	}
	host := u.Hostname()
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return u.Scheme + "://" + host, nil
}

// DeliveryOptions returns the webpush-go options carrying this message's
// TTL and Urgency. The caller adds the VAPID keys and subscriber.
func (n *Notification) DeliveryOptions() *webpushgo.Options {
	return &webpushgo.Options{
		TTL:     n.ttl,
		Urgency: n.urgency,
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
