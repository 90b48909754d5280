package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/pietroferretti/ctftools/internal/codec"
	"github.com/pietroferretti/ctftools/internal/cribdrag"
)

// readInput reads path ("-" for standard input) and decodes it with the
// --encoding codec, or the detected one for "auto".
func (a *app) readInput(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var decoded []byte
	if strings.EqualFold(strings.TrimSpace(a.encoding), codec.Auto) {
		var c codec.Codec
		if decoded, c, err = codec.DecodeAuto(data); err != nil {
			return nil, fmt.Errorf("decode input: %w", err)
		}
		a.logger.Debug("detected input encoding", "encoding", c.Name())
	} else {
		c, err := codec.Get(a.encoding)
		if err != nil {
			return nil, usageError{err: err}
		}
		if decoded, err = c.Decode(data); err != nil {
			return nil, fmt.Errorf("decode %s input: %w", c.Name(), err)
		}
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("input %s is empty", path)
	}
	return decoded, nil
}

// writeBytes writes data with the --output-encoding codec. Encoded output is
// terminated by a newline, raw output is written as is.
func (a *app) writeBytes(data []byte) error {
	c, err := codec.Get(a.outputEncoding)
	if err != nil {
		return usageError{err: err}
	}
	if _, err := a.out.Write(c.Encode(data)); err != nil {
		return err
	}
	if c.Name() != "raw" {
		_, err = fmt.Fprintln(a.out)
	}
	return err
}

// parseLiteral accepts either a quoted string literal with escapes or plain
// text taken verbatim.
func parseLiteral(s string) ([]byte, error) {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) >= 2 && (trimmed[0] == '\'' || trimmed[0] == '"') {
		b, err := cribdrag.ParseString(trimmed)
		if err != nil {
			return nil, usageError{err: err}
		}
		return b, nil
	}
	return []byte(s), nil
}

// parseByte accepts a single character, a quoted one-byte literal or an
// integer in [0, 255] (decimal, 0x hex or 0o octal).
func parseByte(s string) (byte, error) {
	if len(s) == 1 {
		return s[0], nil
	}
	if n, err := strconv.ParseUint(s, 0, 8); err == nil {
		return byte(n), nil
	}
	b, err := parseLiteral(s)
	if err != nil {
		return 0, err
	}
	if len(b) != 1 {
		return 0, usagef("%q is not a single byte", s)
	}
	return b[0], nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

var (
	headingStyle   = lipgloss.NewStyle().Bold(true)
	highlightStyle = lipgloss.NewStyle().Reverse(true).Bold(true)
)

// heading styles s when output goes to a terminal.
func (a *app) heading(s string) string {
	if !isTerminal(a.out) {
		return s
	}
	return headingStyle.Render(s)
}

// highlighter returns the crib span style for crib-drag previews, or nil
// when output is not a terminal.
func (a *app) highlighter() func(string) string {
	if !isTerminal(a.out) {
		return nil
	}
	return func(s string) string { return highlightStyle.Render(s) }
}
