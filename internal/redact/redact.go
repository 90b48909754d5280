// Package redact scrubs key material from audit metadata and messages.
package redact

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	neverPersistKey = "never_persist"
	redactedSecret  = "[REDACTED_SECRET]"
)

// Metadata fields that carry recovered key bytes or known plaintext.
var sensitiveFields = map[string]struct{}{
	"key":        {},
	"keys":       {},
	"key_bytes":  {},
	"new_key":    {},
	"crib":       {},
	"seed":       {},
	"plaintext":  {},
	"secret":     {},
	"candidates": {},
}

var (
	kvSecretRe = regexp.MustCompile(`(?i)\b((?:key|crib|seed|plaintext|secret|password)\s*[:=]\s*)(['"]?)([^\s'",]+)(['"]?)`)
	hexRunRe   = regexp.MustCompile(`\b(?:[0-9a-fA-F]{2}){8,}\b`)
)

// String masks key=value style secrets and long hex dumps in a message.
func String(in string) string {
	if strings.TrimSpace(in) == "" {
		return in
	}
	masked := kvSecretRe.ReplaceAllString(in, `$1$2`+redactedSecret+`$4`)
	return hexRunRe.ReplaceAllString(masked, redactedSecret)
}

// Interface redacts recognised sensitive values within nested structures.
func Interface(value any) any {
	switch v := value.(type) {
	case string:
		return String(v)
	case fmt.Stringer:
		return String(v.String())
	case []string:
		return Slice(v)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = Interface(elem)
		}
		return out
	case map[string]string:
		return MapString(v)
	case map[string]any:
		return Map(v)
	default:
		return value
	}
}

// Map redacts a metadata map. Sensitive fields and fields listed under
// never_persist are replaced wholesale; other strings are scanned.
func Map(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	var extra []string
	out := make(map[string]any, len(in))
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			extra = append(extra, collectNeverPersist(v)...)
			continue
		}
		out[k] = v
	}
	mask := maskedFields(extra)
	for k, v := range out {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = redactedSecret
			continue
		}
		out[k] = Interface(v)
	}
	return out
}

// MapString is Map for string-valued maps. A never_persist entry holds a
// comma separated list of field names.
func MapString(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	var extra []string
	out := make(map[string]string, len(in))
	for k, v := range in {
		if strings.EqualFold(k, neverPersistKey) {
			extra = append(extra, splitList(v)...)
			continue
		}
		out[k] = v
	}
	mask := maskedFields(extra)
	for k, v := range out {
		if _, ok := mask[strings.ToLower(k)]; ok {
			out[k] = redactedSecret
			continue
		}
		out[k] = String(v)
	}
	return out
}

// Slice redacts sensitive values within a slice of strings.
func Slice(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = String(v)
	}
	return out
}

func maskedFields(extra []string) map[string]struct{} {
	out := make(map[string]struct{}, len(sensitiveFields)+len(extra))
	for k := range sensitiveFields {
		out[k] = struct{}{}
	}
	for _, k := range extra {
		out[strings.ToLower(k)] = struct{}{}
	}
	return out
}

func collectNeverPersist(value any) []string {
	switch v := value.(type) {
	case string:
		return splitList(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, elem := range v {
			out = append(out, strings.TrimSpace(fmt.Sprint(elem)))
		}
		return out
	default:
		return nil
	}
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
