package cribdrag

import (
	"bytes"
	"testing"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	flagPlain = []byte("THEFLAGIS42")
	flagKey   = []byte("KEY")
)

func newFlagSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := NewSession(cipher.Encrypt(flagPlain, flagKey, nil), len(flagKey), nil, opts...)
	require.NoError(t, err)
	return s
}

func apply(t *testing.T, s *Session, state State, line string) (State, Result) {
	t.Helper()
	cmd, err := ParseCommand(line)
	require.NoError(t, err)
	next, res, err := s.Apply(state, cmd)
	require.NoError(t, err, line)
	return next, res
}

func TestNewSessionRejectsKeyLength(t *testing.T) {
	_, err := NewSession([]byte("abc"), 0, nil)
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestCribRevealsFlag(t *testing.T) {
	s := newFlagSession(t)
	state := s.NewState()

	state, res := apply(t, s, state, "crib 'THE'")
	require.NotNil(t, res.Preview)
	assert.Equal(t, cipher.KeyFromBytes(flagKey), res.Preview.NewKey)
	assert.Equal(t, flagPlain, res.Preview.Plaintext)
	assert.Equal(t, cipher.NewKey(3), state.Key, "permanent key untouched until ok")

	state, res = apply(t, s, state, "ok")
	assert.Equal(t, cipher.KeyFromBytes(flagKey), state.Key)
	assert.False(t, state.HasCrib())
	assert.Equal(t, 0, state.CribIndex)
	assert.Contains(t, res.Message, "Key updated: ['K', 'E', 'Y']")

	_, res = apply(t, s, state, "show")
	assert.Equal(t, flagPlain, res.Plaintext)
}

func TestPartialCribUsesPlaceholder(t *testing.T) {
	s := newFlagSession(t)
	_, res := apply(t, s, s.NewState(), "c 'TH'")
	assert.Equal(t, []byte("TH*FL*GI*42"), res.Preview.Plaintext)
	assert.Equal(t, cipher.Key{cipher.Known('K'), cipher.Known('E'), {}}, res.Preview.NewKey)
}

func TestCribMovement(t *testing.T) {
	s := newFlagSession(t)
	state := s.NewState()

	state, _ = apply(t, s, state, "c 'LAG'")
	state, _ = apply(t, s, state, "n")
	assert.Equal(t, 1, state.CribIndex)
	state, _ = apply(t, s, state, "p")
	assert.Equal(t, 0, state.CribIndex)
	state, res := apply(t, s, state, "j 4")
	assert.Equal(t, 4, state.CribIndex)
	assert.Equal(t, cipher.KeyFromBytes(flagKey), res.Preview.NewKey)

	state, _ = apply(t, s, state, "j 8")
	_, _, err := s.Apply(state, Command{Op: OpNext})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestApplyErrors(t *testing.T) {
	s := newFlagSession(t)
	fresh := s.NewState()
	withCrib, _ := apply(t, s, fresh, "c 'THE'")

	tests := []struct {
		name  string
		state State
		cmd   Command
		want  error
	}{
		{name: "crib longer than key", state: fresh, cmd: Command{Op: OpCrib, Crib: []byte("THEF")}, want: ErrInvalidCribLength},
		{name: "next without crib", state: fresh, cmd: Command{Op: OpNext}, want: ErrCribNotSet},
		{name: "prev without crib", state: fresh, cmd: Command{Op: OpPrev}, want: ErrCribNotSet},
		{name: "jump without crib", state: fresh, cmd: Command{Op: OpJump, Index: 1}, want: ErrCribNotSet},
		{name: "prev at start", state: withCrib, cmd: Command{Op: OpPrev}, want: ErrIndexOutOfRange},
		{name: "jump negative", state: withCrib, cmd: Command{Op: OpJump, Index: -1}, want: ErrIndexOutOfRange},
		{name: "jump past end", state: withCrib, cmd: Command{Op: OpJump, Index: 9}, want: ErrIndexOutOfRange},
		{name: "key wrong length", state: fresh, cmd: Command{Op: OpKey, Key: cipher.Key{cipher.Known('a')}}, want: ErrInvalidKeyLength},
		{name: "state for another session", state: State{Key: cipher.NewKey(5)}, cmd: Command{Op: OpShow}, want: ErrInvalidKeyLength},
		{name: "stored index past end", state: State{Key: cipher.NewKey(3), Crib: []byte("AB"), CribIndex: 50}, cmd: Command{Op: OpOK}, want: ErrIndexOutOfRange},
		{name: "stored negative index", state: State{Key: cipher.NewKey(3), Crib: []byte("AB"), CribIndex: -1}, cmd: Command{Op: OpShow}, want: ErrIndexOutOfRange},
		{name: "stored crib longer than key", state: State{Key: cipher.NewKey(3), Crib: []byte("THEF")}, cmd: Command{Op: OpOK}, want: ErrInvalidCribLength},
		{name: "unknown op", state: fresh, cmd: Command{Op: Op(99)}, want: ErrUnknownCommand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, _, err := s.Apply(tt.state, tt.cmd)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, tt.state, next)
		})
	}
}

func TestPreviewIgnoresCribPastEnd(t *testing.T) {
	s := newFlagSession(t)
	var p *Preview
	require.NotPanics(t, func() {
		p = s.Preview(State{Key: cipher.NewKey(3), Crib: []byte("AB"), CribIndex: 50})
	})
	assert.Equal(t, 0, p.NewKey.KnownCount())
}

func TestEmptyCribCountsAsUnset(t *testing.T) {
	s := newFlagSession(t)
	state, _ := apply(t, s, s.NewState(), "crib ''")
	assert.False(t, state.HasCrib())

	_, _, err := s.Apply(state, Command{Op: OpNext})
	assert.ErrorIs(t, err, ErrCribNotSet)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	s := newFlagSession(t)
	state, _ := apply(t, s, s.NewState(), "c 'THE'")
	before := state.clone()

	_, _, err := s.Apply(state, Command{Op: OpOK})
	require.NoError(t, err)
	assert.Equal(t, before, state)
}

func TestKeyCommandAndReset(t *testing.T) {
	s := newFlagSession(t)
	state, res := apply(t, s, s.NewState(), "key ['K', None, 'Y']")
	assert.Equal(t, "Key updated.", res.Message)
	assert.Equal(t, []byte("T*EF*AG*S4*"), res.Preview.Plaintext)

	state, res = apply(t, s, state, "reset")
	assert.Equal(t, s.NewState(), state)
	assert.NotEmpty(t, res.Message)
}

func TestOkWithoutCribKeepsKey(t *testing.T) {
	s := newFlagSession(t)
	state, _ := apply(t, s, s.NewState(), "key ['K', None, None]")
	state, _ = apply(t, s, state, "ok")
	assert.Equal(t, cipher.Key{cipher.Known('K'), {}, {}}, state.Key)
}

func TestOtherCombiner(t *testing.T) {
	add, err := cipher.LookupCombiner("add")
	require.NoError(t, err)
	s, err := NewSession(cipher.Encrypt(flagPlain, flagKey, add), 3, add)
	require.NoError(t, err)

	_, res := apply(t, s, s.NewState(), "c 'THE'")
	assert.Equal(t, cipher.KeyFromBytes(flagKey), res.Preview.NewKey)
	assert.Equal(t, flagPlain, res.Preview.Plaintext)
}

func TestWritePreview(t *testing.T) {
	s := newFlagSession(t)
	var buf bytes.Buffer

	_, res := apply(t, s, s.NewState(), "c 'THE'")
	s.WritePreview(&buf, res.Preview)
	want := "" +
		"0  [T H E]\n" +
		"3   F L A\n" +
		"6   G I S\n" +
		"9   4 2\n" +
		"Crib: 'THE'\n" +
		"Index: 0\n" +
		"Key: [None, None, None]\n" +
		"New key: ['K', 'E', 'Y']\n"
	assert.Equal(t, want, buf.String())
}

func TestWritePreviewCribAcrossLines(t *testing.T) {
	s := newFlagSession(t)
	state, _ := apply(t, s, s.NewState(), "c 'LAG'")
	_, res := apply(t, s, state, "j 4")

	var buf bytes.Buffer
	s.WritePreview(&buf, res.Preview)
	lines := bytes.Split(buf.Bytes(), []byte("\n"))
	assert.Equal(t, "0   T H E", string(lines[0]))
	assert.Equal(t, "3   F[L A", string(lines[1]))
	assert.Equal(t, "6   G]I S", string(lines[2]))
}

func TestWritePreviewMasksNonPrintable(t *testing.T) {
	s, err := NewSession(cipher.Encrypt([]byte("a\nb\x00"), []byte("k"), nil), 1, nil,
		WithHighlight(func(s string) string { return "<" + s + ">" }))
	require.NoError(t, err)

	_, res := apply(t, s, s.NewState(), "c 'a'")
	var buf bytes.Buffer
	s.WritePreview(&buf, res.Preview)
	lines := bytes.Split(buf.Bytes(), []byte("\n"))
	assert.Equal(t, "0 [<a>]", string(lines[0]))
	assert.Equal(t, "1  .", string(lines[1]))
	assert.Equal(t, "2  b", string(lines[2]))
	assert.Equal(t, "3  .", string(lines[3]))
}
