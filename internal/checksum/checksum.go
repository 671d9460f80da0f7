// Package checksum computes and verifies the versioned tamper-detection
// digest over a consent's account-access set. The digest is a string of the
// form
//
//	<version>_%_<base64(sha512(consent fields))>[_%_<base64(access map)>]
//
// where the optional third element is a JSON object mapping account
// reference types to base64 SHA-512 digests of the sorted ASPSP accesses of
// that type. The format is persisted alongside consents, so every element
// of it, including the delimiter and the field order of the canonical JSON,
// is wire format and must not change within a version.
package checksum

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"strings"
)

// delimiter separates the version prefix, the consent digest and the access
// map inside a stored checksum.
const delimiter = "_%_"

// currentVersion is the version used for newly computed checksums. Older
// versions stay registered for verification of historical data.
const currentVersion = "003"

// Service computes checksums under the current version and verifies stored
// checksums under whichever version they were written with. Verifying under
// the stored version, never the latest, is what keeps pre-bump checksums
// valid.
type Service struct {
	byVersion map[string]*calculator
}

// NewService registers all known checksum versions.
func NewService() *Service {
	return &Service{
		byVersion: map[string]*calculator{
			"002": {version: "002", less: lessV2},
			"003": {version: "003", less: lessV3},
		},
	}
}

// Compute returns the checksum of the consent under the current version.
func (s *Service) Compute(c ConsentView) ([]byte, error) {
	return s.byVersion[currentVersion].compute(c)
}

// Verify recomputes the consent's checksum under the version named by the
// stored checksum's prefix and compares. Unknown versions and malformed
// checksums verify as false.
func (s *Service) Verify(c ConsentView, stored []byte) bool {
	elements := strings.Split(string(stored), delimiter)
	if len(elements) < 2 {
		return false
	}
	calc, ok := s.byVersion[elements[0]]
	if !ok {
		return false
	}
	return calc.verify(c, elements)
}

type calculator struct {
	version string
	less    func(a, b AccountReference) bool
}

func (c *calculator) compute(view ConsentView) ([]byte, error) {
	var sb strings.Builder
	sb.WriteString(c.version)
	sb.WriteString(delimiter)

	common, err := c.consentDigest(view)
	if err != nil {
		return nil, err
	}
	sb.WriteString(common)

	accessMap, err := c.accessDigestMap(view.AspspAccesses)
	if err != nil {
		return nil, err
	}
	if len(accessMap) > 0 {
		encoded, err := encodeAccessMap(accessMap)
		if err != nil {
			return nil, err
		}
		sb.WriteString(delimiter)
		sb.WriteString(encoded)
	}
	return []byte(sb.String()), nil
}

func (c *calculator) verify(view ConsentView, elements []string) bool {
	common, err := c.consentDigest(view)
	if err != nil || elements[1] != common {
		return false
	}
	if len(elements) < 3 {
		return true
	}
	storedMap, err := decodeAccessMap(elements[2])
	if err != nil {
		return false
	}
	currentMap, err := c.accessDigestMap(view.AspspAccesses)
	if err != nil {
		return false
	}
	// Every type-level digest stored in the DB must still match; types the
	// stored checksum never covered are ignored.
	for refType, stored := range storedMap {
		if currentMap[refType] != stored {
			return false
		}
	}
	return true
}

// consentDigest hashes the canonical JSON of the consent's semantically
// significant fields plus the TPP-side accesses.
func (c *calculator) consentDigest(view ConsentView) (string, error) {
	accesses := sortedRefs(view.TppAccesses, c.less)
	entries := make([]tppAccessEntry, 0, len(accesses))
	for _, a := range accesses {
		entries = append(entries, newTppAccessEntry(a))
	}
	raw, err := json.Marshal(consentEntry{
		RecurringIndicator:       view.RecurringIndicator,
		CombinedServiceIndicator: view.CombinedServiceIndicator,
		ValidUntil:               view.ValidUntil,
		TppFrequencyPerDay:       view.FrequencyPerDay,
		Accesses:                 entries,
	})
	if err != nil {
		return "", err
	}
	return hashB64(raw), nil
}

// accessDigestMap hashes the sorted ASPSP accesses per reference type.
// Only closed accesses (those carrying a resource or ASPSP account id)
// participate.
func (c *calculator) accessDigestMap(refs []AccountReference) (map[string]string, error) {
	out := make(map[string]string)
	for _, refType := range referenceTypeOrder {
		var filtered []AccountReference
		for _, r := range refs {
			if r.ReferenceType == refType && (r.ResourceID != "" || r.AspspAccountID != "") {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			continue
		}
		filtered = sortedRefs(filtered, c.less)
		entries := make([]aspspAccessEntry, 0, len(filtered))
		for _, a := range filtered {
			entries = append(entries, newAspspAccessEntry(a))
		}
		raw, err := json.Marshal(entries)
		if err != nil {
			return nil, err
		}
		out[string(refType)] = hashB64(raw)
	}
	return out, nil
}

// encodeAccessMap serializes the access map as a JSON object with keys in
// reference-type declaration order, base64-encoded. Verification compares
// entries, not bytes, so the fixed order only matters for byte-stable output.
func encodeAccessMap(m map[string]string) (string, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for _, refType := range referenceTypeOrder {
		v, ok := m[string(refType)]
		if !ok {
			continue
		}
		if !first {
			buf.WriteByte(',')
		}
		first = false
		key, _ := json.Marshal(string(refType))
		val, _ := json.Marshal(v)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func decodeAccessMap(encoded string) (map[string]string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, err
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func hashB64(raw []byte) string {
	sum := sha512.Sum512(raw)
	return base64.StdEncoding.EncodeToString(sum[:])
}
