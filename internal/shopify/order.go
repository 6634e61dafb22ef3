package shopify

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Order is the part of an orders/* webhook payload the stage sync reads.
type Order struct {
	ID        string
	Name      string
	Tags      []string
	UpdatedBy string

	// fields holds custom values carried in the payload, keyed namespace.key.
	fields map[string]string
}

type orderWire struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	Tags       json.RawMessage `json:"tags"`
	Metafields json.RawMessage `json:"metafields"`
	UpdatedBy  json.RawMessage `json:"updated_by"`
}

// DecodeOrder parses a webhook body. It needs a non-empty id (JSON number or
// string); every other field is optional.
func DecodeOrder(raw []byte) (*Order, error) {
	var w orderWire
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&w); err != nil {
		return nil, &PayloadError{Reason: "malformed json", Err: err}
	}

	id := scalarString(w.ID)
	if id == "" || strings.HasPrefix(id, "{") || strings.HasPrefix(id, "[") {
		return nil, &PayloadError{Reason: "missing order id"}
	}

	o := &Order{
		ID:        id,
		Name:      strings.TrimSpace(w.Name),
		Tags:      decodeTags(w.Tags),
		UpdatedBy: decodeActor(w.UpdatedBy),
		fields:    map[string]string{},
	}
	decodeFields(w.Metafields, o.fields)
	return o, nil
}

// HasTag reports whether tag is on the order, ignoring case and whitespace.
func (o *Order) HasTag(tag string) bool {
	tag = strings.TrimSpace(tag)
	for _, t := range o.Tags {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// FieldValue returns a custom value carried in the payload itself.
func (o *Order) FieldValue(namespace, key string) (string, bool) {
	v, ok := o.fields[namespace+"."+key]
	return v, ok
}

func decodeTags(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}

	var parts []string
	if raw[0] == '[' {
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil
		}
	} else {
		parts = strings.Split(scalarString(raw), ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func decodeActor(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	if raw[0] != '{' {
		return strings.TrimSpace(scalarString(raw))
	}

	var a struct {
		Name      string `json:"name"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Email     string `json:"email"`
	}
	if err := json.Unmarshal(raw, &a); err != nil {
		return ""
	}
	if n := strings.TrimSpace(a.Name); n != "" {
		return n
	}
	if n := strings.TrimSpace(a.FirstName + " " + a.LastName); n != "" {
		return n
	}
	return strings.TrimSpace(a.Email)
}

// decodeFields understands both the nested {"custom": {"key": value}} shape
// and a flat array of {namespace, key, value} entries.
func decodeFields(raw json.RawMessage, dst map[string]string) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return
	}

	switch raw[0] {
	case '{':
		var nested map[string]json.RawMessage
		if err := json.Unmarshal(raw, &nested); err != nil {
			return
		}
		for ns, inner := range nested {
			var kv map[string]json.RawMessage
			if err := json.Unmarshal(inner, &kv); err != nil {
				continue
			}
			for k, v := range kv {
				dst[ns+"."+k] = scalarString(v)
			}
		}
	case '[':
		var list []Metafield
		if err := json.Unmarshal(raw, &list); err != nil {
			return
		}
		for _, m := range list {
			if m.Namespace == "" || m.Key == "" {
				continue
			}
			dst[m.Namespace+"."+m.Key] = m.Value
		}
	}
}
