package domain

import "encoding/json"

// Document is an open-ended JSON object column (branding, features, preferences).
type Document map[string]any

// MarshalJSON encodes a nil document as an empty object so NOT NULL jsonb
// columns never receive null.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]any(d))
}
