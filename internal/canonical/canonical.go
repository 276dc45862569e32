// Package canonical serializes artifact documents to a single byte form
// and hashes those bytes.
//
// The form is UTF-8 JSON with object keys sorted by code point, two-space
// indentation, ": " after keys and exactly one trailing LF. Strings are
// NFC normalized; <, > and & are written literally, as are U+2028 and
// U+2029. Non-integral numbers are rejected so output never depends on
// float formatting.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// DigestPrefix marks the algorithm of a content digest.
const DigestPrefix = "sha256:"

// Marshal returns the canonical form of v.
//
// Supported values: nil, string, bool, signed integers, float64 holding an
// integer, []any, []string, map[string]any and map[string]string.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := encode(&buf, v, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// Digest returns "sha256:<hex>" over data exactly as given.
func Digest(data []byte) string {
	sum := sha256.Sum256(data)
	return DigestPrefix + hex.EncodeToString(sum[:])
}

func encode(buf *bytes.Buffer, v any, depth int) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case string:
		writeString(buf, val)
	case bool:
		buf.WriteString(strconv.FormatBool(val))
	case int:
		buf.WriteString(strconv.Itoa(val))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float64:
		if val != math.Trunc(val) || math.IsInf(val, 0) || math.Abs(val) > 1<<53 {
			return fmt.Errorf("non-integral number %v is not allowed", val)
		}
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case []string:
		items := make([]any, len(val))
		for i, s := range val {
			items[i] = s
		}
		return encodeArray(buf, items, depth)
	case []any:
		return encodeArray(buf, val, depth)
	case map[string]string:
		obj := make(map[string]any, len(val))
		for k, s := range val {
			obj[k] = s
		}
		return encodeObject(buf, obj, depth)
	case map[string]any:
		return encodeObject(buf, val, depth)
	default:
		return fmt.Errorf("unsupported type %T", v)
	}
	return nil
}

func encodeArray(buf *bytes.Buffer, items []any, depth int) error {
	if len(items) == 0 {
		buf.WriteString("[]")
		return nil
	}
	buf.WriteByte('[')
	for i, item := range items {
		if i > 0 {
			buf.WriteByte(',')
		}
		newline(buf, depth+1)
		if err := encode(buf, item, depth+1); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	newline(buf, depth)
	buf.WriteByte(']')
	return nil
}

func encodeObject(buf *bytes.Buffer, obj map[string]any, depth int) error {
	if len(obj) == 0 {
		buf.WriteString("{}")
		return nil
	}

	// Keys are compared after normalization so sorting matches output.
	keys := make([]string, 0, len(obj))
	byKey := make(map[string]any, len(obj))
	for k, v := range obj {
		nk := norm.NFC.String(k)
		if _, dup := byKey[nk]; dup {
			return fmt.Errorf("duplicate key %q after normalization", nk)
		}
		keys = append(keys, nk)
		byKey[nk] = v
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		newline(buf, depth+1)
		writeString(buf, k)
		buf.WriteString(": ")
		if err := encode(buf, byKey[k], depth+1); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	newline(buf, depth)
	buf.WriteByte('}')
	return nil
}

func newline(buf *bytes.Buffer, depth int) {
	buf.WriteByte('\n')
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}

// writeString quotes s. U+2028 and U+2029 bypass the encoder, which would
// otherwise escape them.
func writeString(buf *bytes.Buffer, s string) {
	s = norm.NFC.String(s)
	buf.WriteByte('"')
	start := 0
	for i, r := range s {
		if r == '\u2028' || r == '\u2029' {
			writeEscaped(buf, s[start:i])
			buf.WriteRune(r)
			start = i + utf8.RuneLen(r)
		}
	}
	writeEscaped(buf, s[start:])
	buf.WriteByte('"')
}

func writeEscaped(buf *bytes.Buffer, s string) {
	if s == "" {
		return
	}
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	out := bytes.TrimSuffix(tmp.Bytes(), []byte("\n"))
	buf.Write(out[1 : len(out)-1])
}
