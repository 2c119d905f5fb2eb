package webpush

import (
	webpushgo "github.com/SherClockHolmes/webpush-go"
)

// Subscription is the JSON a browser returns from PushSubscription.toJSON(),
// shared with webpush-go so callers can pass it straight to its sender.
type Subscription = webpushgo.Subscription

// Keys holds the base64url client keys of a Subscription.
type Keys = webpushgo.Keys
