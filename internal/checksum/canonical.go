package checksum

import "sort"

// ReferenceType identifies how an account is referenced.
type ReferenceType string

const (
	RefIBAN      ReferenceType = "IBAN"
	RefBBAN      ReferenceType = "BBAN"
	RefPAN       ReferenceType = "PAN"
	RefMSISDN    ReferenceType = "MSISDN"
	RefMaskedPAN ReferenceType = "MASKED_PAN"
)

// referenceTypeOrder fixes the serialization order of the access map.
var referenceTypeOrder = []ReferenceType{RefIBAN, RefBBAN, RefPAN, RefMSISDN, RefMaskedPAN}

// AccountReference is one entry of a consent's account-access set.
type AccountReference struct {
	Identifier     string // IBAN/BBAN/PAN/... value
	Currency       string // ISO 4217, may be empty
	AccessType     string // ACCOUNT, BALANCE or TRANSACTION
	ReferenceType  ReferenceType
	ResourceID     string // set once the ASPSP has resolved the account
	AspspAccountID string
}

// ConsentView is the canonical, ORM-free projection of a consent that the
// checksum covers. TPP-submitted and ASPSP-stored representations may list
// accounts in any order; canonicalization sorts before hashing.
type ConsentView struct {
	RecurringIndicator       bool
	CombinedServiceIndicator bool
	ValidUntil               string // ISO date
	FrequencyPerDay          int
	TppAccesses              []AccountReference
	AspspAccesses            []AccountReference
}

// Canonical JSON shapes. Field order is wire format within a version.

type consentEntry struct {
	RecurringIndicator       bool             `json:"recurringIndicator"`
	CombinedServiceIndicator bool             `json:"combinedServiceIndicator"`
	ValidUntil               string           `json:"validUntil"`
	TppFrequencyPerDay       int              `json:"tppFrequencyPerDay"`
	Accesses                 []tppAccessEntry `json:"accesses"`
}

type tppAccessEntry struct {
	AccountIdentifier    string `json:"accountIdentifier"`
	Currency             string `json:"currency,omitempty"`
	TypeAccess           string `json:"typeAccess,omitempty"`
	AccountReferenceType string `json:"accountReferenceType,omitempty"`
}

type aspspAccessEntry struct {
	AccountIdentifier    string `json:"accountIdentifier"`
	Currency             string `json:"currency,omitempty"`
	TypeAccess           string `json:"typeAccess,omitempty"`
	AccountReferenceType string `json:"accountReferenceType,omitempty"`
	ResourceID           string `json:"resourceId,omitempty"`
	AspspAccountID       string `json:"aspspAccountId,omitempty"`
}

func newTppAccessEntry(a AccountReference) tppAccessEntry {
	return tppAccessEntry{
		AccountIdentifier:    a.Identifier,
		Currency:             a.Currency,
		TypeAccess:           a.AccessType,
		AccountReferenceType: string(a.ReferenceType),
	}
}

func newAspspAccessEntry(a AccountReference) aspspAccessEntry {
	return aspspAccessEntry{
		AccountIdentifier:    a.Identifier,
		Currency:             a.Currency,
		TypeAccess:           a.AccessType,
		AccountReferenceType: string(a.ReferenceType),
		ResourceID:           a.ResourceID,
		AspspAccountID:       a.AspspAccountID,
	}
}

// lessV2 orders by access type, then identifier, then currency.
func lessV2(a, b AccountReference) bool {
	if a.AccessType != b.AccessType {
		return a.AccessType < b.AccessType
	}
	if a.Identifier != b.Identifier {
		return a.Identifier < b.Identifier
	}
	return a.Currency < b.Currency
}

// lessV3 orders by identifier, then currency.
func lessV3(a, b AccountReference) bool {
	if a.Identifier != b.Identifier {
		return a.Identifier < b.Identifier
	}
	return a.Currency < b.Currency
}

func sortedRefs(refs []AccountReference, less func(a, b AccountReference) bool) []AccountReference {
	out := append([]AccountReference(nil), refs...)
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
