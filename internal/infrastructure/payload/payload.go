// Package payload extracts typed scalars from loosely typed vendor JSON.
//
// Every function is total: a missing key, a wrong type or a malformed value
// yields "absent" (ok == false or a nil pointer), never an error or a panic.
// Keys are tried in order so callers can list vendor aliases.
package payload

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Record is a decoded JSON object
type Record map[string]any

// AsRecord returns v as a Record when it is a JSON object
func AsRecord(v any) (Record, bool) {
	switch m := v.(type) {
	case map[string]any:
		return Record(m), true
	case Record:
		return m, true
	default:
		return nil, false
	}
}

// Object returns the first nested object found under keys
func (r Record) Object(keys ...string) Record {
	for _, k := range keys {
		if obj, ok := AsRecord(r[k]); ok {
			return obj
		}
	}
	return nil
}

// Array returns the first array found under keys
func (r Record) Array(keys ...string) []any {
	for _, k := range keys {
		if arr, ok := r[k].([]any); ok {
			return arr
		}
	}
	return nil
}

// Records returns the object elements of the first array under keys, skipping non-objects
func (r Record) Records(keys ...string) []Record {
	return Records(r.Array(keys...))
}

// Records keeps the object elements of arr
func Records(arr []any) []Record {
	out := make([]Record, 0, len(arr))
	for _, v := range arr {
		if obj, ok := AsRecord(v); ok {
			out = append(out, obj)
		}
	}
	return out
}

// Raw re-encodes the value under key for storage in a jsonb column
func (r Record) Raw(keys ...string) json.RawMessage {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return MustJSON(v)
		}
	}
	return nil
}

// MustJSON encodes v, returning nil when it cannot be encoded
func MustJSON(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return b
}

// ---------------------------------------------------------------------------
// Strings
// ---------------------------------------------------------------------------

// PickString returns the first non-empty trimmed string under keys.
// Numbers and booleans are rendered as strings.
func PickString(r Record, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := toString(r[k]); ok {
			return s, true
		}
	}
	return "", false
}

func toString(v any) (string, bool) {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case json.Number:
		s = x.String()
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return "", false
		}
		s = strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		s = strconv.Itoa(x)
	case int64:
		s = strconv.FormatInt(x, 10)
	case bool:
		s = strconv.FormatBool(x)
	default:
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// OptString is PickString as a pointer
func OptString(r Record, keys ...string) *string {
	if s, ok := PickString(r, keys...); ok {
		return &s
	}
	return nil
}

// ---------------------------------------------------------------------------
// Numbers
// ---------------------------------------------------------------------------

// PickNumber returns the first finite number under keys, accepting numeric strings
func PickNumber(r Record, keys ...string) (float64, bool) {
	for _, k := range keys {
		if f, ok := toFloat(r[k]); ok {
			return f, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(normalizeNumeric(x), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// normalizeNumeric accepts a decimal comma when the string has no dot
func normalizeNumeric(s string) string {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}

// OptFloat is PickNumber as a pointer
func OptFloat(r Record, keys ...string) *float64 {
	if f, ok := PickNumber(r, keys...); ok {
		return &f
	}
	return nil
}

// OptInt rounds the first finite number under keys
func OptInt(r Record, keys ...string) *int {
	if f, ok := PickNumber(r, keys...); ok {
		n := int(math.Round(f))
		return &n
	}
	return nil
}

// ToNumericString normalizes a number or numeric string to the canonical form stored in decimal columns
func ToNumericString(v any) (string, bool) {
	d, ok := toDecimal(v)
	if !ok {
		return "", false
	}
	return d.String(), true
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch x := v.(type) {
	case string:
		return parseFiniteDecimal(normalizeNumeric(x))
	case json.Number:
		return parseFiniteDecimal(x.String())
	default:
		f, ok := toFloat(v)
		if !ok {
			return decimal.Decimal{}, false
		}
		return decimal.NewFromFloat(f), true
	}
}

// parseFiniteDecimal rejects values outside the float64 range, such as "1e400"
func parseFiniteDecimal(s string) (decimal.Decimal, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// OptDecimal returns the first decimal-convertible value under keys
func OptDecimal(r Record, keys ...string) *decimal.Decimal {
	for _, k := range keys {
		if d, ok := toDecimal(r[k]); ok {
			return &d
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Booleans
// ---------------------------------------------------------------------------

var (
	truthy = map[string]bool{"true": true, "t": true, "yes": true, "y": true, "sim": true, "s": true, "1": true, "verdadeiro": true, "on": true}
	falsy  = map[string]bool{"false": true, "f": true, "no": true, "n": true, "nao": true, "0": true, "falso": true, "off": true}
)

// PickBoolean returns the first boolean-like value under keys: a bool, a
// positive or zero number, or a truthy/falsy token in English or Portuguese.
func PickBoolean(r Record, keys ...string) (bool, bool) {
	for _, k := range keys {
		if b, ok := toBool(r[k]); ok {
			return b, true
		}
	}
	return false, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		token := foldToken(x)
		if truthy[token] {
			return true, true
		}
		if falsy[token] {
			return false, true
		}
		return false, false
	default:
		f, ok := toFloat(v)
		if !ok || f < 0 {
			return false, false
		}
		return f > 0, true
	}
}

// foldToken lowercases and strips accents so "NÃO" matches "nao"
func foldToken(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// OptBool is PickBoolean as a pointer
func OptBool(r Record, keys ...string) *bool {
	if b, ok := PickBoolean(r, keys...); ok {
		return &b
	}
	return nil
}
