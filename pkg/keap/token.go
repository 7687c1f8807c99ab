package keap

import (
	"context"
	"encoding/json"
	"sync"
)

// TokenPair is the credential pair issued by the Keap token endpoint.
// Provider fields without a dedicated struct field are kept in Extra so a
// stored pair round-trips unchanged.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	Scope        string `json:"scope,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`
}

// Empty reports whether the pair represents a logged-out session.
func (p TokenPair) Empty() bool {
	return p.AccessToken == ""
}

var knownTokenFields = map[string]bool{
	"access_token":  true,
	"refresh_token": true,
	"token_type":    true,
	"expires_in":    true,
	"scope":         true,
}

// MarshalJSON writes the known fields followed by Extra.
func (p TokenPair) MarshalJSON() ([]byte, error) {
	type plain TokenPair
	base, err := json.Marshal(plain(p))
	if err != nil {
		return nil, err
	}
	if len(p.Extra) == 0 {
		return base, nil
	}
	merged := make(map[string]json.RawMessage, len(p.Extra)+5)
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range p.Extra {
		if knownTokenFields[k] {
			continue
		}
		merged[k] = v
	}
	return json.Marshal(merged)
}

// UnmarshalJSON accepts any JSON object; `{}` yields an empty pair.
func (p *TokenPair) UnmarshalJSON(b []byte) error {
	type plain TokenPair
	var out plain
	if err := json.Unmarshal(b, &out); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if knownTokenFields[k] {
			continue
		}
		if out.Extra == nil {
			out.Extra = make(map[string]json.RawMessage)
		}
		out.Extra[k] = v
	}
	*p = TokenPair(out)
	return nil
}

// TokenStore is the single slot holding the current session credentials.
// Read returns an empty pair and a nil error when nothing is stored.
type TokenStore interface {
	Read(ctx context.Context) (TokenPair, error)
	Write(ctx context.Context, pair TokenPair) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair TokenPair
}

// NewMemoryStore returns a store seeded with pair (may be empty).
func NewMemoryStore(pair TokenPair) *MemoryStore {
	return &MemoryStore{pair: pair}
}

func (s *MemoryStore) Read(_ context.Context) (TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Write(_ context.Context, pair TokenPair) error {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.pair = TokenPair{}
	s.mu.Unlock()
	return nil
}
