// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// AuthorisationType discriminates what kind of workflow an authorisation drives.
type AuthorisationType string

const (
	AuthorisationConsent         AuthorisationType = "CONSENT"
	AuthorisationPisCreation     AuthorisationType = "PIS_CREATION"
	AuthorisationPisCancellation AuthorisationType = "PIS_CANCELLATION"
	AuthorisationSigningBasket   AuthorisationType = "SIGNING_BASKET"
)

// ScaApproach is the SCA flow variant negotiated with the TPP.
type ScaApproach string

const (
	ApproachRedirect  ScaApproach = "REDIRECT"
	ApproachEmbedded  ScaApproach = "EMBEDDED"
	ApproachDecoupled ScaApproach = "DECOUPLED"
	ApproachOAuth     ScaApproach = "OAUTH"
)

// PsuIDData identifies the authorising end user. Fields may be empty before
// the identification step of the workflow.
type PsuIDData struct {
	PsuID          string
	PsuIDType      string
	PsuCorporateID string
}

// IsEmpty reports whether no PSU identifier has been supplied yet.
func (p PsuIDData) IsEmpty() bool { return p.PsuID == "" }

// AuthenticationObject describes a single SCA method available to a PSU.
type AuthenticationObject struct {
	MethodID  string
	Type      string // SMS_OTP, CHIP_OTP, PHOTO_OTP, PUSH_OTP
	Name      string
	Decoupled bool
}

// Authorisation is one SCA workflow instance. It is mutated exclusively by
// the engine's transition function and never physically deleted; terminal
// records are retained for audit.
type Authorisation struct {
	ID                uuid.UUID
	ParentID          string // consent/payment being authorised
	Type              AuthorisationType
	Status            ScaStatus
	PsuData           PsuIDData
	ChosenApproach    ScaApproach
	MethodID          string // selected SCA method, once chosen
	ChallengeIssued   bool   // a challenge was dispatched for MethodID
	FailedAttempts    int
	Ver               int64 // optimistic concurrency version
	ReceivedAt        time.Time
	UpdatedAt         time.Time
}

// EncryptedBlob is the persisted, provider-stamped consent/payment working
// data. An empty ciphertext with an empty provider id is the tombstone value.
type EncryptedBlob struct {
	ProviderID string
	Ciphertext []byte
}

// IsEmpty reports whether the blob is the "no data yet" tombstone.
func (b EncryptedBlob) IsEmpty() bool { return len(b.Ciphertext) == 0 }

// TppStopListRecord blocks a TPP on one service instance. A nil BlockedUntil
// with Blocked=true means an indefinite block; absence of a record means
// "not blocked".
type TppStopListRecord struct {
	TppAuthorisationNumber string
	InstanceID             string
	Blocked                bool
	BlockedUntil           *time.Time
	UpdatedAt              time.Time
}

// IsActive reports whether the record blocks access at the given instant.
// A lapsed time-bounded block counts as not blocked without an explicit
// unblock (lazy expiry).
func (r TppStopListRecord) IsActive(now time.Time) bool {
	if !r.Blocked {
		return false
	}
	return r.BlockedUntil == nil || r.BlockedUntil.After(now)
}
