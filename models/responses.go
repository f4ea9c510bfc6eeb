package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/upb/llm-arena/services/providers"
)

// ProviderResponse pairs a provider name with its normalized answer.
type ProviderResponse struct {
	Provider string
	Record   providers.ResponseRecord
}

// ProviderResponses keeps answers in selection order. It encodes as a JSON
// object whose keys appear in that order.
type ProviderResponses []ProviderResponse

// Get returns the record for a provider.
func (r ProviderResponses) Get(provider string) (providers.ResponseRecord, bool) {
	for _, pr := range r {
		if pr.Provider == provider {
			return pr.Record, true
		}
	}
	return providers.ResponseRecord{}, false
}

// Names lists providers in order.
func (r ProviderResponses) Names() []string {
	names := make([]string, len(r))
	for i, pr := range r {
		names[i] = pr.Provider
	}
	return names
}

// MarshalJSON implements json.Marshaler
func (r ProviderResponses) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, pr := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(pr.Provider)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(pr.Record)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, preserving key order.
func (r *ProviderResponses) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*r = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("provider responses: expected object, got %v", tok)
	}

	out := ProviderResponses{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("provider responses: expected string key, got %v", tok)
		}
		var rec providers.ResponseRecord
		if err := dec.Decode(&rec); err != nil {
			return fmt.Errorf("provider responses: %s: %w", name, err)
		}
		out = append(out, ProviderResponse{Provider: name, Record: rec})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*r = out
	return nil
}
