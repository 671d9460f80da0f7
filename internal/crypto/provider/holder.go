package provider

import "fmt"

// Holder maps provider ids to providers and resolves the configured defaults
// for data and identifier encryption. It is immutable after construction,
// which keeps concurrent lookups lock-free.
type Holder struct {
	providers   map[string]CryptoProvider
	dataDefault CryptoProvider
	idDefault   CryptoProvider
}

// NewHolder registers the given providers and resolves the default ids.
// An unresolvable default would silently corrupt every subsequent write,
// so it is a construction-time failure, not a runtime one.
func NewHolder(providers []CryptoProvider, defaultDataID, defaultIDProviderID string) (*Holder, error) {
	if len(providers) == 0 {
		return nil, fmt.Errorf("crypto holder: no providers registered")
	}
	m := make(map[string]CryptoProvider, len(providers))
	for _, p := range providers {
		if p.ID() == "" {
			return nil, fmt.Errorf("crypto holder: provider with empty id")
		}
		if _, dup := m[p.ID()]; dup {
			return nil, fmt.Errorf("crypto holder: duplicate provider id %q", p.ID())
		}
		m[p.ID()] = p
	}
	dataDefault, ok := m[defaultDataID]
	if !ok {
		return nil, fmt.Errorf("crypto holder: default data provider %q not registered", defaultDataID)
	}
	idDefault, ok := m[defaultIDProviderID]
	if !ok {
		return nil, fmt.Errorf("crypto holder: default identifier provider %q not registered", defaultIDProviderID)
	}
	return &Holder{providers: m, dataDefault: dataDefault, idDefault: idDefault}, nil
}

// ByID resolves a provider by its stable id.
func (h *Holder) ByID(id string) (CryptoProvider, bool) {
	p, ok := h.providers[id]
	return p, ok
}

// Default returns the current default provider for the given kind.
func (h *Holder) Default(kind CryptoKind) CryptoProvider {
	if kind == KindIdentifier {
		return h.idDefault
	}
	return h.dataDefault
}
