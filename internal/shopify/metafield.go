package shopify

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

type Metafield struct {
	ID        int64  `json:"id,omitempty"`
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type,omitempty"`
}

// UnmarshalJSON accepts non-string values (booleans, numbers, JSON objects)
// and keeps their literal text, since Shopify serializes typed metafields
// that way.
func (m *Metafield) UnmarshalJSON(b []byte) error {
	var w struct {
		ID        json.Number     `json:"id"`
		Namespace string          `json:"namespace"`
		Key       string          `json:"key"`
		Value     json.RawMessage `json:"value"`
		Type      string          `json:"type"`
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return err
	}

	var id int64
	if w.ID != "" {
		v, err := strconv.ParseInt(w.ID.String(), 10, 64)
		if err != nil {
			return err
		}
		id = v
	}

	*m = Metafield{
		ID:        id,
		Namespace: w.Namespace,
		Key:       w.Key,
		Value:     scalarString(w.Value),
		Type:      w.Type,
	}
	return nil
}

type MetafieldInput struct {
	Namespace string `json:"namespace"`
	Key       string `json:"key"`
	Value     string `json:"value"`
	Type      string `json:"type"`
}

// FindMetafield returns the first metafield matching namespace and key.
func FindMetafield(list []Metafield, namespace, key string) (Metafield, bool) {
	for _, m := range list {
		if m.Namespace == namespace && m.Key == key {
			return m, true
		}
	}
	return Metafield{}, false
}

// scalarString renders a raw JSON value as plain text: strings are unquoted,
// null is empty, everything else keeps its literal form.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return strings.TrimSpace(string(raw))
}
