package qrpayload

import (
	"bytes"
	"encoding/json"
	"net/url"
	"strings"
)

// Fields is the loosely-typed result of decoding a scanned string.
type Fields map[string]string

func (f Fields) get(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(f[k]); v != "" {
			return v
		}
	}
	return ""
}

// EventID returns event_id, falling back to the legacy evento_id.
func (f Fields) EventID() string { return f.get(keyEventID, keyLegacyEventID) }

// UserID returns user_id, falling back to the legacy usuario_id.
func (f Fields) UserID() string { return f.get(keyUserID, keyLegacyUserID) }

func (f Fields) Kind() string     { return f.get(keyType) }
func (f Fields) IssuedAt() string { return f.get(keyIssuedAt) }
func (f Fields) Exp() string      { return f.get(keyExp) }
func (f Fields) Nonce() string    { return f.get(keyNonce) }

// Decode turns a scanned string into Fields. JSON objects are tried first,
// then ";" or "&" separated key=value pairs. Input that yields no fields at
// all returns ErrUnrecognized.
func Decode(raw string) (Fields, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, ErrUnrecognized
	}

	if fields, ok := decodeJSON(s); ok {
		if len(fields) == 0 {
			return nil, ErrUnrecognized
		}
		return fields, nil
	}

	fields := decodeKV(s)
	if len(fields) == 0 {
		return nil, ErrUnrecognized
	}
	return fields, nil
}

func decodeJSON(s string) (Fields, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, false
	}
	if dec.More() {
		return nil, false
	}

	fields := make(Fields, len(obj))
	for k, v := range obj {
		switch val := v.(type) {
		case string:
			fields[k] = val
		case json.Number:
			fields[k] = val.String()
		case bool:
			if val {
				fields[k] = "true"
			} else {
				fields[k] = "false"
			}
		}
	}
	return fields, true
}

func decodeKV(s string) Fields {
	fields := Fields{}
	for _, seg := range strings.Split(strings.ReplaceAll(s, ";", "&"), "&") {
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		key, err := url.QueryUnescape(strings.TrimSpace(k))
		if err != nil || key == "" {
			continue
		}
		val, err := url.QueryUnescape(strings.TrimSpace(v))
		if err != nil {
			continue
		}
		fields[key] = val
	}
	return fields
}
