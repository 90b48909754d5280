package cribdrag

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/logging"
)

const prompt = "> "

var usage = map[Op]string{
	OpCrib: `  crib "as\"df\x10\n jkl"`,
	OpKey:  `  key ['a', '\x01', None, '\n']`,
	OpJump: `  jump 42`,
}

func (s *Session) writeError(w io.Writer, line string, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	switch {
	case errors.Is(err, ErrUnknownCommand):
		fmt.Fprintln(w, `Enter "h" or "help" for a list of available commands.`)
	case errors.Is(err, ErrParse):
		name, _ := splitCommand(line)
		if hint, ok := usage[opsByName[name]]; ok {
			fmt.Fprintln(w, "The command should be called like this:")
			fmt.Fprintln(w, hint)
		}
	}
}

func (s *Session) emit(event logging.EventType, metadata map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(logging.AuditEvent{
		EventType: event,
		SessionID: s.sessionID,
		Decision:  logging.DecisionInfo,
		Metadata:  metadata,
	}); err != nil {
		s.logger.Warn("audit emit failed", "event", event, "error", err)
	}
}

// Run drives an interactive session, reading commands from in and writing
// the output to out. An empty line repeats the previous command. The session
// ends on quit, at end of input or when ctx is done, and returns the key
// accumulated so far.
func (s *Session) Run(ctx context.Context, in io.Reader, out io.Writer) (cipher.Key, error) {
	state := s.NewState()
	s.emit(logging.EventSessionStart, map[string]any{
		"key_length":        s.keyLength,
		"ciphertext_length": len(s.ciphertext),
		"combiner":          s.combiner.Name(),
	})
	s.logger.Debug("crib-drag session started", "session_id", s.sessionID, "key_length", s.keyLength)

	done := make(chan struct{})
	defer close(done)
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-done:
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	s.WritePreview(out, s.Preview(state))

	previous := opNames[OpHelp]
	var runErr error
loop:
	for {
		fmt.Fprint(out, prompt)

		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(out)
			break loop
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(out)
			select {
			case runErr = <-scanErr:
			default:
			}
			break
		}

		if strings.TrimSpace(line) == "" {
			line = previous
		} else {
			previous = line
		}

		cmd, err := ParseCommand(line)
		if err != nil {
			s.writeError(out, line, err)
			continue
		}
		next, result, err := s.Apply(state, cmd)
		if err != nil {
			s.writeError(out, line, err)
			continue
		}
		if cmd.Op == OpOK && state.HasCrib() {
			s.emit(logging.EventCribCommitted, map[string]any{
				"crib_length": len(state.Crib),
				"crib_index":  state.CribIndex,
				"known":       next.Key.KnownCount(),
				"key_length":  s.keyLength,
			})
		}
		state = next
		s.WriteResult(out, result)
		if result.Quit {
			break
		}
	}

	s.emit(logging.EventSessionEnd, map[string]any{
		"known":      state.Key.KnownCount(),
		"key_length": s.keyLength,
	})
	return state.Key.Clone(), runErr
}
