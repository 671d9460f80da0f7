package sca

import (
	"fmt"

	"github.com/adorsys/xs2a-consent-engine/internal/errs"
	"github.com/adorsys/xs2a-consent-engine/internal/model"
)

// Event is one authorisation update. Exactly one field group must be set:
// a PSU identifier, a password, a chosen SCA method, SCA authentication
// data, or an explicit cancel. Password and AuthenticationData are transient
// credentials and must never be logged or persisted.
type Event struct {
	PsuData            *model.PsuIDData
	Password           *string
	MethodID           *string
	AuthenticationData *string
	Cancel             bool
}

// IsVerification reports whether the event carries SCA authentication data,
// i.e. it attempts the final verification step.
func (e Event) IsVerification() bool { return e.AuthenticationData != nil }

type eventKind int

const (
	eventIdentify eventKind = iota
	eventAuthenticate
	eventSelectMethod
	eventVerify
	eventCancel
)

// kind validates the exactly-one invariant and classifies the event.
func (e Event) kind() (eventKind, error) {
	var (
		kind eventKind
		n    int
	)
	if e.PsuData != nil {
		kind, n = eventIdentify, n+1
	}
	if e.Password != nil {
		kind, n = eventAuthenticate, n+1
	}
	if e.MethodID != nil {
		kind, n = eventSelectMethod, n+1
	}
	if e.AuthenticationData != nil {
		kind, n = eventVerify, n+1
	}
	if e.Cancel {
		kind, n = eventCancel, n+1
	}
	if n != 1 {
		return 0, fmt.Errorf("%w: update must carry exactly one field, got %d", errs.ErrFormat, n)
	}
	return kind, nil
}
