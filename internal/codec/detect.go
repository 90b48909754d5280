package codec

import (
	"encoding/base64"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

// Auto is the pseudo encoding name that asks for detection.
const Auto = "auto"

// minConfidence is the threshold below which DecodeAuto keeps the input raw.
const minConfidence = 0.5

// Detection is one guess about how a text-encoded ciphertext was written.
type Detection struct {
	Encoding   string  `json:"encoding"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

var (
	hexDigitsRe = regexp.MustCompile(`^[0-9a-fA-F]+$`)
	decimalRe   = regexp.MustCompile(`^[0-9]+$`)
	base64Re    = regexp.MustCompile(`^[A-Za-z0-9+/]+=*$`)
	base64URLRe = regexp.MustCompile(`^[A-Za-z0-9_-]+=*$`)
	binaryRe    = regexp.MustCompile(`^[01]+$`)
)

// Detect guesses the text encoding of data, best guess first. Guesses with
// a confidence below 0.3 are dropped; an empty result means raw bytes.
func Detect(data []byte) []Detection {
	s := strings.TrimSpace(string(data))
	if s == "" {
		return nil
	}

	var results []Detection
	results = append(results, detectHex(s)...)
	results = append(results, detectBase64(s)...)
	results = append(results, detectBinary(s)...)

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	filtered := results[:0]
	for _, r := range results {
		if r.Confidence >= 0.3 {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// DecodeAuto decodes data with the most likely codec. Input that looks like
// none of the known encodings is returned unchanged with the raw codec.
func DecodeAuto(data []byte) ([]byte, Codec, error) {
	for _, d := range Detect(data) {
		if d.Confidence < minConfidence {
			break
		}
		c, err := Get(d.Encoding)
		if err != nil {
			continue
		}
		decoded, err := c.Decode(data)
		if err != nil {
			continue
		}
		return decoded, c, nil
	}
	raw, err := Get("raw")
	if err != nil {
		return nil, nil, err
	}
	decoded, err := raw.Decode(data)
	return decoded, raw, err
}

func detectHex(s string) []Detection {
	cleaned := s
	hasPrefix := strings.HasPrefix(cleaned, "0x")
	cleaned = strings.TrimPrefix(cleaned, "0x")
	cleaned = strings.ReplaceAll(cleaned, `\x`, "")
	cleaned = stripAny(cleaned, " \t\r\n:-")

	if !hexDigitsRe.MatchString(cleaned) || len(cleaned)%2 != 0 {
		return nil
	}
	if _, err := hex.DecodeString(cleaned); err != nil {
		return nil
	}
	confidence := 0.8
	if hasPrefix {
		confidence = 0.95
	}
	// digits only could just as well be decimal or binary
	if decimalRe.MatchString(cleaned) {
		confidence *= 0.6
	}
	return []Detection{{Encoding: "hex", Confidence: confidence, Reason: "hexadecimal digits in whole bytes"}}
}

func detectBase64(s string) []Detection {
	cleaned := stripAny(s, "\r\n")
	var results []Detection

	// hex text is valid base64 too; leave it to detectHex
	allHex := hexDigitsRe.MatchString(cleaned)

	if base64Re.MatchString(cleaned) {
		confidence := 0.0
		if _, err := base64.StdEncoding.DecodeString(cleaned); err == nil {
			confidence = 0.9
		} else if _, err := base64.RawStdEncoding.DecodeString(cleaned); err == nil {
			confidence = 0.7
		}
		if confidence > 0 {
			if allHex {
				confidence = 0.4
			}
			results = append(results, Detection{Encoding: "base64", Confidence: confidence, Reason: "standard base64 alphabet and decodes"})
		}
	}

	if base64URLRe.MatchString(cleaned) && strings.ContainsAny(cleaned, "-_") {
		trimmed := strings.TrimRight(cleaned, "=")
		if _, err := base64.RawURLEncoding.DecodeString(trimmed); err == nil {
			results = append(results, Detection{Encoding: "base64url", Confidence: 0.85, Reason: "URL-safe base64 alphabet and decodes"})
		}
	}
	return results
}

func detectBinary(s string) []Detection {
	cleaned := stripAny(s, " \t\r\n")
	if !binaryRe.MatchString(cleaned) || len(cleaned)%8 != 0 {
		return nil
	}
	confidence := 0.85
	if len(cleaned) < 32 {
		confidence = 0.6
	}
	return []Detection{{Encoding: "binary", Confidence: confidence, Reason: "only 0 and 1 in 8-bit groups"}}
}
