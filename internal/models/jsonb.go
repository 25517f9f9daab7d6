package models

import "time"

// JSONB is a free-form map persisted as a jsonb column.
type JSONB map[string]interface{}

func (j JSONB) String(key string) (string, bool) {
	if j == nil {
		return "", false
	}
	v, ok := j[key].(string)
	return v, ok
}

// Time reads an RFC 3339 timestamp stored under key.
func (j JSONB) Time(key string) (*time.Time, bool) {
	s, ok := j.String(key)
	if !ok {
		return nil, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, false
	}
	return &t, true
}

func (j JSONB) Bool(key string) bool {
	if j == nil {
		return false
	}
	v, _ := j[key].(bool)
	return v
}

// Clone returns a shallow copy so callers can mutate without aliasing.
func (j JSONB) Clone() JSONB {
	out := make(JSONB, len(j))
	for k, v := range j {
		out[k] = v
	}
	return out
}
