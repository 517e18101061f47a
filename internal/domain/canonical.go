package domain

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// HashLength is the truncated hex length of content hashes. Short enough to
// display, long enough to keep collisions out of identity comparisons. These
// hashes are identities, not security signatures.
const HashLength = 16

// HashBytes returns the truncated content hash of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:HashLength]
}

// HashValue canonicalizes any JSON-representable value and hashes it. The
// result depends only on content, never on map iteration or field order.
func HashValue(value any) (string, error) {
	canonical, err := CanonicalJSON(value)
	if err != nil {
		return "", err
	}
	return HashBytes(canonical), nil
}

// CanonicalJSON serializes a value deterministically: object keys sorted
// lexicographically, arrays in order, times as UTC RFC3339, scalars as-is.
// Struct values are first lowered to a generic JSON value so the walk never
// depends on any native type's field layout.
func CanonicalJSON(value any) ([]byte, error) {
	generic, err := toGenericValue(value)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := writeCanonical(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func toGenericValue(value any) (any, error) {
	switch value.(type) {
	case nil, bool, string, json.Number, float64, int, int64:
		return value, nil
	case time.Time:
		return value, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize decode: %w", err)
	}
	return generic, nil
}

func writeCanonical(buf *bytes.Buffer, value any) error {
	switch typed := value.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if typed {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case json.Number:
		buf.WriteString(typed.String())
	case string:
		// Date-like strings normalize to UTC so the same instant always
		// canonicalizes identically regardless of the writer's zone.
		if parsed, err := time.Parse(time.RFC3339Nano, typed); err == nil {
			return writeJSONScalar(buf, parsed.UTC().Format(time.RFC3339Nano))
		}
		return writeJSONScalar(buf, typed)
	case time.Time:
		return writeJSONScalar(buf, typed.UTC().Format(time.RFC3339Nano))
	case []any:
		buf.WriteByte('[')
		for i, item := range typed {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, key); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, typed[key]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return writeJSONScalarAny(buf, typed)
	}
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, value string) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	buf.Write(raw)
	return nil
}

func writeJSONScalarAny(buf *bytes.Buffer, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("canonicalize scalar: %w", err)
	}
	buf.Write(raw)
	return nil
}

// HashSchema hashes a raw JSON schema independent of its key order. Empty
// schemas hash to the empty string.
func HashSchema(schema json.RawMessage) (string, error) {
	if len(schema) == 0 {
		return "", nil
	}
	decoder := json.NewDecoder(bytes.NewReader(schema))
	decoder.UseNumber()
	var generic any
	if err := decoder.Decode(&generic); err != nil {
		return "", fmt.Errorf("decode schema: %w", err)
	}
	return HashValue(generic)
}
