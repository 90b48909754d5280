package cribdrag

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRecoversKey(t *testing.T) {
	s := newFlagSession(t)
	in := strings.NewReader("c 'THE'\no\ns\nq\n")
	var out bytes.Buffer

	key, err := s.Run(context.Background(), in, &out)
	require.NoError(t, err)
	assert.Equal(t, cipher.KeyFromBytes(flagKey), key)
	assert.Contains(t, out.String(), "> THEFLAGIS42\n")
	assert.Contains(t, out.String(), "Crib reset.")
}

func TestRunEmptyLineRepeatsCommand(t *testing.T) {
	s := newFlagSession(t)
	in := strings.NewReader("c 'T'\nn\n\n\nq\n")
	var out bytes.Buffer

	_, err := s.Run(context.Background(), in, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Index: 3\n")
	assert.NotContains(t, out.String(), "Index: 4\n")
}

func TestRunFirstEmptyLineShowsHelp(t *testing.T) {
	s := newFlagSession(t)
	var out bytes.Buffer

	_, err := s.Run(context.Background(), strings.NewReader("\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Commands:")
}

func TestRunReportsErrorsAndContinues(t *testing.T) {
	s := newFlagSession(t)
	in := strings.NewReader("bogus\nn\nc 'TOOLONG'\ncrib THE\nk ['K', 'E', 'Y']\nq\n")
	var out bytes.Buffer

	key, err := s.Run(context.Background(), in, &out)
	require.NoError(t, err)
	assert.Equal(t, cipher.KeyFromBytes(flagKey), key)

	text := out.String()
	assert.Contains(t, text, `Enter "h" or "help" for a list of available commands.`)
	assert.Contains(t, text, "you need to set a crib")
	assert.Contains(t, text, "longer than the key")
	assert.Contains(t, text, `  crib "as\"df\x10\n jkl"`)
}

func TestRunEndsAtEOF(t *testing.T) {
	s := newFlagSession(t)
	key, err := s.Run(context.Background(), strings.NewReader("c 'TH'\no\n"), io.Discard)
	require.NoError(t, err)
	assert.Equal(t, cipher.Key{cipher.Known('K'), cipher.Known('E'), {}}, key)
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newFlagSession(t)
	pr, pw := io.Pipe()
	defer pw.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := s.Run(ctx, pr, io.Discard)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop after cancel")
	}
}

func TestRunEmitsAuditEvents(t *testing.T) {
	var buf bytes.Buffer
	audit := logging.MustNewAuditLogger("cribdrag", logging.WithoutStdout(), logging.WithWriter(&buf))
	s := newFlagSession(t, WithAuditLogger(audit))

	_, err := s.Run(context.Background(), strings.NewReader("c 'THE'\no\nq\n"), io.Discard)
	require.NoError(t, err)

	var events []logging.EventType
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var ev logging.AuditEvent
		require.NoError(t, json.Unmarshal([]byte(line), &ev))
		assert.Equal(t, s.ID(), ev.SessionID)
		events = append(events, ev.EventType)
	}
	assert.Equal(t, []logging.EventType{
		logging.EventSessionStart,
		logging.EventCribCommitted,
		logging.EventSessionEnd,
	}, events)
	assert.NotContains(t, buf.String(), "THE")
}
