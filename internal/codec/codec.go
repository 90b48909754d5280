// Package codec converts ciphertext, keys and plaintext between raw bytes
// and the textual encodings CTF challenges usually ship them in.
package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Codec is a reversible byte encoding.
type Codec interface {
	Name() string
	Description() string
	Encode(data []byte) []byte
	Decode(data []byte) ([]byte, error)
}

// BaseCodec carries the descriptive fields shared by the built-in codecs.
type BaseCodec struct {
	NameValue        string
	DescriptionValue string
}

func (c *BaseCodec) Name() string        { return c.NameValue }
func (c *BaseCodec) Description() string { return c.DescriptionValue }

// RawCodec passes bytes through untouched.
type RawCodec struct {
	BaseCodec
}

func (c *RawCodec) Encode(data []byte) []byte { return bytes.Clone(data) }

func (c *RawCodec) Decode(data []byte) ([]byte, error) { return bytes.Clone(data), nil }

// HexCodec encodes lowercase hex. Decoding accepts a leading 0x or \x and
// ignores whitespace, colons and dashes.
type HexCodec struct {
	BaseCodec
}

func (c *HexCodec) Encode(data []byte) []byte {
	out := make([]byte, hex.EncodedLen(len(data)))
	hex.Encode(out, data)
	return out
}

func (c *HexCodec) Decode(data []byte) ([]byte, error) {
	s := strings.TrimSpace(string(data))
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, `\x`, "")
	s = stripAny(s, " \t\r\n:-")

	decoded, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("hex decode failed: %w", err)
	}
	return decoded, nil
}

// Base64Codec uses the standard alphabet. Line breaks are ignored on input.
type Base64Codec struct {
	BaseCodec
}

func (c *Base64Codec) Encode(data []byte) []byte {
	out := make([]byte, base64.StdEncoding.EncodedLen(len(data)))
	base64.StdEncoding.Encode(out, data)
	return out
}

func (c *Base64Codec) Decode(data []byte) ([]byte, error) {
	s := stripAny(string(data), " \t\r\n")
	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawStdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("base64 decode failed: %w", err)
		}
	}
	return decoded, nil
}

// Base64URLCodec uses the URL-safe alphabet, with or without padding.
type Base64URLCodec struct {
	BaseCodec
}

func (c *Base64URLCodec) Encode(data []byte) []byte {
	out := make([]byte, base64.URLEncoding.EncodedLen(len(data)))
	base64.URLEncoding.Encode(out, data)
	return out
}

func (c *Base64URLCodec) Decode(data []byte) ([]byte, error) {
	s := stripAny(string(data), " \t\r\n")
	decoded, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("base64url decode failed: %w", err)
		}
	}
	return decoded, nil
}

// BinaryCodec writes each byte as eight 0/1 digits separated by spaces.
type BinaryCodec struct {
	BaseCodec
}

func (c *BinaryCodec) Encode(data []byte) []byte {
	var buf bytes.Buffer
	for i, b := range data {
		if i > 0 {
			buf.WriteByte(' ')
		}
		fmt.Fprintf(&buf, "%08b", b)
	}
	return buf.Bytes()
}

func (c *BinaryCodec) Decode(data []byte) ([]byte, error) {
	s := stripAny(string(data), " \t\r\n")
	if len(s)%8 != 0 {
		return nil, fmt.Errorf("binary decode failed: length %d is not a multiple of 8", len(s))
	}
	out := make([]byte, 0, len(s)/8)
	for i := 0; i < len(s); i += 8 {
		v, err := strconv.ParseUint(s[i:i+8], 2, 8)
		if err != nil {
			return nil, fmt.Errorf("binary decode failed: %w", err)
		}
		out = append(out, byte(v))
	}
	return out, nil
}

func stripAny(s, cutset string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(cutset, r) {
			return -1
		}
		return r
	}, s)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Codec)
)

// Register adds a codec under its lowercase name.
func Register(c Codec) error {
	if c == nil {
		return errors.New("codec cannot be nil")
	}
	name := strings.ToLower(strings.TrimSpace(c.Name()))
	if name == "" {
		return errors.New("codec name cannot be empty")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		return fmt.Errorf("codec %q already registered", name)
	}
	registry[name] = c
	return nil
}

// Get returns the named codec. An empty name selects raw.
func Get(name string) (Codec, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "raw"
	}
	registryMu.RLock()
	defer registryMu.RUnlock()
	c, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown encoding %q (available: %s)", name, strings.Join(namesLocked(), ", "))
	}
	return c, nil
}

// List returns every registered codec sorted by name.
func List() []Codec {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]Codec, 0, len(registry))
	for _, name := range namesLocked() {
		out = append(out, registry[name])
	}
	return out
}

func namesLocked() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	for _, c := range []Codec{
		&RawCodec{BaseCodec{NameValue: "raw", DescriptionValue: "Bytes as-is"}},
		&HexCodec{BaseCodec{NameValue: "hex", DescriptionValue: "Hexadecimal, 0x and separators tolerated"}},
		&Base64Codec{BaseCodec{NameValue: "base64", DescriptionValue: "Standard Base64"}},
		&Base64URLCodec{BaseCodec{NameValue: "base64url", DescriptionValue: "URL-safe Base64, padding optional"}},
		&BinaryCodec{BaseCodec{NameValue: "binary", DescriptionValue: "Space separated 8-bit binary groups"}},
	} {
		if err := Register(c); err != nil {
			panic(err)
		}
	}
}
