package cribdrag

import (
	"fmt"
	"log/slog"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/logging"
)

// Placeholder marks plaintext bytes whose key byte is still unknown.
const Placeholder = '*'

// State is the mutable part of a crib-drag session. It is a plain value:
// Apply never modifies the State it is given.
type State struct {
	Key       cipher.Key `json:"key"`
	Crib      []byte     `json:"crib,omitempty"`
	CribIndex int        `json:"crib_index"`
}

// HasCrib reports whether a non-empty crib is set.
func (s State) HasCrib() bool { return len(s.Crib) > 0 }

func (s State) clone() State {
	return State{
		Key:       s.Key.Clone(),
		Crib:      append([]byte(nil), s.Crib...),
		CribIndex: s.CribIndex,
	}
}

// Preview is the partial decryption obtained by placing the current crib
// over the permanent key.
type Preview struct {
	Plaintext []byte
	Crib      []byte
	CribIndex int
	Key       cipher.Key
	NewKey    cipher.Key
}

// Result describes what a command produced. The REPL renders it; callers
// driving Apply directly can inspect it.
type Result struct {
	Preview   *Preview
	Plaintext []byte
	Message   string
	Help      bool
	Quit      bool
}

// Session holds the immutable inputs of a crib-drag run.
type Session struct {
	ciphertext []byte
	keyLength  int
	combiner   cipher.Combiner

	logger    *slog.Logger
	audit     *logging.AuditLogger
	sessionID string
	highlight func(string) string
}

type Option func(*Session)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithAuditLogger records session lifecycle and committed cribs.
func WithAuditLogger(a *logging.AuditLogger) Option {
	return func(s *Session) { s.audit = a }
}

// WithHighlight styles the crib span in rendered previews.
func WithHighlight(fn func(string) string) Option {
	return func(s *Session) { s.highlight = fn }
}

// NewSession copies ciphertext and prepares a session for a key of
// keyLength bytes. A nil combiner means XOR.
func NewSession(ciphertext []byte, keyLength int, combiner cipher.Combiner, opts ...Option) (*Session, error) {
	if keyLength < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeyLength, keyLength)
	}
	if combiner == nil {
		combiner = cipher.Default()
	}
	s := &Session{
		ciphertext: append([]byte(nil), ciphertext...),
		keyLength:  keyLength,
		combiner:   combiner,
		sessionID:  logging.NewSessionID(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s, nil
}

func (s *Session) KeyLength() int { return s.keyLength }

func (s *Session) ID() string { return s.sessionID }

// NewState returns the initial state: unknown key, no crib.
func (s *Session) NewState() State {
	return State{Key: cipher.NewKey(s.keyLength)}
}

// maxIndex is the last crib offset that still fits in the ciphertext.
func (s *Session) maxIndex(crib []byte) int {
	return len(s.ciphertext) - len(crib)
}

// checkCrib rejects a state whose crib cannot sit at its index, such as one
// decoded from JSON for a different ciphertext.
func (s *Session) checkCrib(state State) error {
	if len(state.Crib) > s.keyLength || len(state.Crib) > len(s.ciphertext) {
		return fmt.Errorf("%w: the crib %s does not fit this session", ErrInvalidCribLength, cipher.QuoteBytes(state.Crib))
	}
	if state.CribIndex < 0 || state.CribIndex > s.maxIndex(state.Crib) {
		return fmt.Errorf("%w: crib index %d, the maximum acceptable index is %d", ErrIndexOutOfRange, state.CribIndex, s.maxIndex(state.Crib))
	}
	return nil
}

// derive places crib at index and returns the key bytes it implies.
func (s *Session) derive(crib []byte, index int) cipher.Key {
	key := cipher.NewKey(s.keyLength)
	for i, p := range crib {
		pos := index + i
		if pos < 0 || pos >= len(s.ciphertext) {
			continue
		}
		key[pos%s.keyLength] = cipher.Known(s.combiner.DeriveKey(s.ciphertext[pos], p))
	}
	return key
}

// Preview merges the key implied by the current crib over the permanent key
// and decrypts the ciphertext with it.
func (s *Session) Preview(state State) *Preview {
	newKey := state.Key.Merge(s.derive(state.Crib, state.CribIndex))
	return &Preview{
		Plaintext: cipher.DecryptPartial(s.ciphertext, newKey, s.combiner, Placeholder),
		Crib:      append([]byte(nil), state.Crib...),
		CribIndex: state.CribIndex,
		Key:       state.Key.Clone(),
		NewKey:    newKey,
	}
}

// Apply executes cmd against state and returns the next state. It performs
// no I/O. On error the returned state equals the input state.
func (s *Session) Apply(state State, cmd Command) (State, Result, error) {
	if state.Key == nil {
		state.Key = cipher.NewKey(s.keyLength)
	}
	if len(state.Key) != s.keyLength {
		return state, Result{}, fmt.Errorf("%w: state key has %d bytes, session expects %d", ErrInvalidKeyLength, len(state.Key), s.keyLength)
	}
	if err := s.checkCrib(state); err != nil {
		return state, Result{}, err
	}
	next := state.clone()

	switch cmd.Op {
	case OpHelp:
		return state, Result{Help: true}, nil

	case OpCrib:
		if len(cmd.Crib) > s.keyLength {
			return state, Result{}, fmt.Errorf("%w: the crib %s is longer than the key, the maximum allowed length is %d",
				ErrInvalidCribLength, cipher.QuoteBytes(cmd.Crib), s.keyLength)
		}
		if len(cmd.Crib) > len(s.ciphertext) {
			return state, Result{}, fmt.Errorf("%w: the crib %s is longer than the ciphertext",
				ErrInvalidCribLength, cipher.QuoteBytes(cmd.Crib))
		}
		next.Crib = append([]byte(nil), cmd.Crib...)
		next.CribIndex = 0
		return next, Result{Preview: s.Preview(next)}, nil

	case OpNext:
		if !state.HasCrib() {
			return state, Result{}, ErrCribNotSet
		}
		if state.CribIndex >= s.maxIndex(state.Crib) {
			return state, Result{}, fmt.Errorf("%w: can't increase the index or the crib won't fit", ErrIndexOutOfRange)
		}
		next.CribIndex++
		return next, Result{Preview: s.Preview(next)}, nil

	case OpPrev:
		if !state.HasCrib() {
			return state, Result{}, ErrCribNotSet
		}
		if state.CribIndex <= 0 {
			return state, Result{}, fmt.Errorf("%w: can't set the index at less than 0", ErrIndexOutOfRange)
		}
		next.CribIndex--
		return next, Result{Preview: s.Preview(next)}, nil

	case OpJump:
		if !state.HasCrib() {
			return state, Result{}, ErrCribNotSet
		}
		if cmd.Index < 0 {
			return state, Result{}, fmt.Errorf("%w: the index must be a positive number", ErrIndexOutOfRange)
		}
		if cmd.Index > s.maxIndex(state.Crib) {
			return state, Result{}, fmt.Errorf("%w: the crib won't fit, the maximum acceptable index is %d",
				ErrIndexOutOfRange, s.maxIndex(state.Crib))
		}
		next.CribIndex = cmd.Index
		return next, Result{Preview: s.Preview(next)}, nil

	case OpOK:
		next.Key = state.Key.Merge(s.derive(state.Crib, state.CribIndex))
		next.Crib = nil
		next.CribIndex = 0
		return next, Result{Message: fmt.Sprintf("Key updated: %s\nCrib reset.", next.Key)}, nil

	case OpKey:
		if len(cmd.Key) != s.keyLength {
			return state, Result{}, fmt.Errorf("%w: the key must be %d characters long", ErrInvalidKeyLength, s.keyLength)
		}
		next.Key = cmd.Key.Clone()
		return next, Result{Message: "Key updated.", Preview: s.Preview(next)}, nil

	case OpShow:
		return state, Result{Plaintext: cipher.DecryptPartial(s.ciphertext, state.Key, s.combiner, Placeholder)}, nil

	case OpReset:
		return s.NewState(), Result{Message: "Crib and key have been reset."}, nil

	case OpQuit:
		return state, Result{Quit: true}, nil

	default:
		return state, Result{}, fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Op)
	}
}
