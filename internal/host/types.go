package host

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// Project is one host project entry used for display-name lookups.
// Params: identifier and display title.
// Returns: one project record.
type Project struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Tag is one host tag entry used for display-name lookups.
// Params: identifier and display title.
// Returns: one tag record.
type Tag struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Task is one task record as delivered by the host application.
// Params: loosely-typed host payload; numeric and time fields decode
// tolerantly so a malformed field degrades to absent instead of failing
// the whole record.
// Returns: one task record.
type Task struct {
	ID             string     `json:"id"`
	Title          string     `json:"title"`
	ProjectID      string     `json:"projectId"`
	TagIDs         StringList `json:"tagIds"`
	IsDone         Flag       `json:"isDone"`
	TimeSpentMs    Number     `json:"timeSpentMs"`
	TimeEstimateMs Number     `json:"timeEstimateMs"`
	CreatedAt      Timestamp  `json:"createdAt"`
	UpdatedAt      Timestamp  `json:"updatedAt"`
}

// Flag is a tolerant boolean JSON value.
// Params: accepts JSON booleans, "true"/"false" strings, and numbers;
// anything else decodes as false.
// Returns: boolean value.
type Flag bool

// UnmarshalJSON decodes a boolean without failing on junk.
// Params: raw JSON bytes.
// Returns: always nil; malformed input decodes as false.
func (f *Flag) UnmarshalJSON(raw []byte) error {
	*f = false

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var asBool bool
	if err := json.Unmarshal(trimmed, &asBool); err == nil {
		*f = Flag(asBool)
		return nil
	}

	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil {
		if parsed, parseErr := strconv.ParseBool(asString); parseErr == nil {
			*f = Flag(parsed)
		}
		return nil
	}

	var asFloat float64
	if err := json.Unmarshal(trimmed, &asFloat); err == nil {
		*f = asFloat != 0
	}

	return nil
}

// StringList is a tolerant string-slice JSON value.
// Params: accepts string arrays, mixed arrays (non-strings skipped), and a
// bare string (one-element list); anything else decodes as empty.
// Returns: string slice.
type StringList []string

// UnmarshalJSON decodes a string list without failing on junk entries.
// Params: raw JSON bytes.
// Returns: always nil; malformed input decodes as empty.
func (l *StringList) UnmarshalJSON(raw []byte) error {
	*l = nil

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var asStrings []string
	if err := json.Unmarshal(trimmed, &asStrings); err == nil {
		*l = asStrings
		return nil
	}

	var asAny []any
	if err := json.Unmarshal(trimmed, &asAny); err == nil {
		out := make([]string, 0, len(asAny))
		for _, entry := range asAny {
			if text, ok := entry.(string); ok {
				out = append(out, text)
			}
		}
		*l = out
		return nil
	}

	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil && asString != "" {
		*l = []string{asString}
	}

	return nil
}

// Number is a tolerant numeric JSON value.
// Params: accepts JSON numbers and numeric strings; anything else decodes
// as absent.
// Returns: value with validity flag.
type Number struct {
	Value float64
	Valid bool
}

// UnmarshalJSON decodes a number or numeric string without failing on junk.
// Params: raw JSON bytes.
// Returns: always nil; malformed input leaves the value absent.
func (n *Number) UnmarshalJSON(raw []byte) error {
	n.Value = 0
	n.Valid = false

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var asFloat float64
	if err := json.Unmarshal(trimmed, &asFloat); err == nil {
		n.Value = asFloat
		n.Valid = true
		return nil
	}

	var asString string
	if err := json.Unmarshal(trimmed, &asString); err == nil {
		parsed, parseErr := strconv.ParseFloat(asString, 64)
		if parseErr == nil {
			n.Value = parsed
			n.Valid = true
		}
	}

	return nil
}

// Timestamp is a tolerant point-in-time JSON value in epoch milliseconds.
// Params: accepts epoch-millisecond numbers and RFC3339 strings; anything
// else decodes as absent.
// Returns: millisecond value with validity flag.
type Timestamp struct {
	Ms    int64
	Valid bool
}

// UnmarshalJSON decodes epoch milliseconds or an RFC3339 string.
// Params: raw JSON bytes.
// Returns: always nil; unparseable input leaves the timestamp absent.
func (t *Timestamp) UnmarshalJSON(raw []byte) error {
	t.Ms = 0
	t.Valid = false

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var asFloat float64
	if err := json.Unmarshal(trimmed, &asFloat); err == nil {
		t.Ms = int64(asFloat)
		t.Valid = true
		return nil
	}

	var asString string
	if err := json.Unmarshal(trimmed, &asString); err != nil {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339, asString); err == nil {
		t.Ms = parsed.UnixMilli()
		t.Valid = true
		return nil
	}
	if parsed, err := strconv.ParseFloat(asString, 64); err == nil {
		t.Ms = int64(parsed)
		t.Valid = true
	}

	return nil
}
