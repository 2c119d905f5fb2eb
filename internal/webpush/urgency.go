package webpush

import (
	"strings"

	webpushgo "github.com/SherClockHolmes/webpush-go"
	"github.com/pkg/errors"
)

// Urgency is the RFC 8030 delivery priority hint sent in the Urgency header.
type Urgency = webpushgo.Urgency

const (
	UrgencyUnset   Urgency = ""
	UrgencyVeryLow         = webpushgo.UrgencyVeryLow
	UrgencyLow             = webpushgo.UrgencyLow
	UrgencyNormal          = webpushgo.UrgencyNormal
	UrgencyHigh            = webpushgo.UrgencyHigh
)

// ValidUrgency reports whether u is one of the four RFC 8030 values.
func ValidUrgency(u Urgency) bool {
	switch u {
	case UrgencyVeryLow, UrgencyLow, UrgencyNormal, UrgencyHigh:
		return true
	}
	return false
}

// ParseUrgency accepts the header spelling, case-insensitively. An empty
// string parses to UrgencyUnset.
func ParseUrgency(s string) (Urgency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return UrgencyUnset, nil
	}
	u := Urgency(s)
	if !ValidUrgency(u) {
		return UrgencyUnset, errors.Wrapf(ErrInvalidUrgency, "value %q", s)
	}
	return u, nil
}
