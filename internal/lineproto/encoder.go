package lineproto

import (
	"strconv"
	"strings"
)

// Tag is one key/value pair in the tag section of a line.
// Params: escaped on encode, insertion order preserved.
// Returns: one tag entry.
type Tag struct {
	Key   string
	Value string
}

// Field is one key/value pair in the field section of a line.
// Params: value is number, bool, or string; nil values are skipped on encode.
// Returns: one field entry.
type Field struct {
	Key   string
	Value any
}

// Point is one structured measurement prior to wire encoding.
// Params: measurement name, ordered tags/fields, and millisecond timestamp.
// Returns: one encodable data point.
type Point struct {
	Measurement string
	Tags        []Tag
	Fields      []Field
	TimestampMs int64
}

// AddTag appends one tag entry preserving insertion order.
// Params: key/value tag pair.
// Returns: none.
func (p *Point) AddTag(key string, value string) {
	p.Tags = append(p.Tags, Tag{Key: key, Value: value})
}

// AddField appends one field entry preserving insertion order.
// Params: key field name; value number, bool, or string payload.
// Returns: none.
func (p *Point) AddField(key string, value any) {
	p.Fields = append(p.Fields, Field{Key: key, Value: value})
}

// Encode renders one point as a single line-protocol line.
// Params: point structured measurement.
// Returns: encoded line, or empty string when no fields survive (the caller
// must drop such points instead of sending them).
func Encode(point Point) string {
	fields := encodeFields(point.Fields)
	if fields == "" {
		return ""
	}

	var builder strings.Builder
	builder.WriteString(escapeKey(point.Measurement))

	tags := encodeTags(point.Tags)
	if tags != "" {
		builder.WriteByte(',')
		builder.WriteString(tags)
	}

	builder.WriteByte(' ')
	builder.WriteString(fields)
	builder.WriteByte(' ')
	builder.WriteString(strconv.FormatInt(point.TimestampMs, 10))

	return builder.String()
}

// encodeTags renders surviving tag entries as a comma-joined section.
// Params: tags ordered entries.
// Returns: tag section without leading comma; empty when no tags survive.
func encodeTags(tags []Tag) string {
	parts := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag.Value == "" {
			continue
		}
		parts = append(parts, escapeKey(tag.Key)+"="+escapeKey(tag.Value))
	}
	return strings.Join(parts, ",")
}

// encodeFields renders surviving field entries as a comma-joined section.
// Params: fields ordered entries.
// Returns: field section; empty when no fields survive.
func encodeFields(fields []Field) string {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		encoded, ok := encodeFieldValue(field.Value)
		if !ok {
			continue
		}
		parts = append(parts, escapeKey(field.Key)+"="+encoded)
	}
	return strings.Join(parts, ",")
}

// encodeFieldValue renders one field value by type.
// Params: value number, bool, string, or nil.
// Returns: wire representation and false when value must be omitted.
func encodeFieldValue(value any) (string, bool) {
	switch typed := value.(type) {
	case nil:
		return "", false
	case bool:
		return strconv.FormatBool(typed), true
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32), true
	case int:
		return strconv.FormatInt(int64(typed), 10), true
	case int8:
		return strconv.FormatInt(int64(typed), 10), true
	case int16:
		return strconv.FormatInt(int64(typed), 10), true
	case int32:
		return strconv.FormatInt(int64(typed), 10), true
	case int64:
		return strconv.FormatInt(typed, 10), true
	case uint:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint8:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint16:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint32:
		return strconv.FormatUint(uint64(typed), 10), true
	case uint64:
		return strconv.FormatUint(typed, 10), true
	case string:
		return quoteStringValue(typed), true
	default:
		return "", false
	}
}

// escapeKey escapes measurement names, tag keys/values, and field keys.
// Params: value raw text.
// Returns: text with space, comma, and '=' preceded by a backslash.
func escapeKey(value string) string {
	if !strings.ContainsAny(value, " ,=") {
		return value
	}

	var builder strings.Builder
	builder.Grow(len(value) + 4)
	for _, r := range value {
		switch r {
		case ' ', ',', '=':
			builder.WriteByte('\\')
		}
		builder.WriteRune(r)
	}
	return builder.String()
}

// quoteStringValue renders a string field value as a double-quoted literal.
// Params: value raw string payload.
// Returns: quoted value with backslashes escaped before double quotes.
func quoteStringValue(value string) string {
	escaped := strings.ReplaceAll(value, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
