package cribdrag

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pietroferretti/ctftools/internal/blocks"
	"github.com/pietroferretti/ctftools/internal/cipher"
)

const helpText = `Commands:
  (c)rib <your_crib> -- set the crib (argument is like "asdf\x10\n jkl")
  (n)ext -- move the crib forward by one
  (p)rev -- move the crib back by one
  (j)ump <index> -- move the crib to an index
  (o)k -- update the key using the current crib
  (k)ey <char_list> -- set the key (argument is like ['a', '\x01', None])
  (s)how -- show current decrypted plaintext
  (r)eset -- reset everything from this session
  (q)uit -- exit from the cribdrag tool
  (h)elp -- show this guide
`

// WriteHelp prints the command guide.
func WriteHelp(w io.Writer) {
	fmt.Fprint(w, helpText+"\n")
}

func displayByte(b byte) byte {
	if b >= 0x20 && b < 0x7f {
		return b
	}
	return '.'
}

func decimalWidth(n int) int {
	return len(strconv.Itoa(n))
}

// WritePreview prints the partial plaintext in lines of one key length,
// each prefixed with its offset, with the crib span between brackets,
// followed by the crib and key status lines.
func (s *Session) WritePreview(w io.Writer, p *Preview) {
	rows := blocks.Chunk(p.Plaintext, s.keyLength)
	if len(rows) > 0 {
		pad := decimalWidth(s.keyLength*len(rows)) - 1
		start := p.CribIndex
		end := p.CribIndex + len(p.Crib)
		hasCrib := len(p.Crib) > 0

		for i, row := range rows {
			var sb strings.Builder
			offset := strconv.Itoa(i * s.keyLength)
			sb.WriteString(offset)
			sb.WriteString(strings.Repeat(" ", max(pad-len(offset)+2, 0)))
			for j, b := range row {
				pos := i*s.keyLength + j
				switch {
				case hasCrib && pos == start:
					sb.WriteByte('[')
				case pos != end || j == 0:
					sb.WriteByte(' ')
				}
				ch := string(displayByte(b))
				if hasCrib && s.highlight != nil && pos >= start && pos < end {
					ch = s.highlight(ch)
				}
				sb.WriteString(ch)
				if hasCrib && pos+1 == end {
					sb.WriteByte(']')
				}
			}
			fmt.Fprintln(w, sb.String())
		}
	}

	fmt.Fprintf(w, "Crib: %s\n", cipher.QuoteBytes(p.Crib))
	fmt.Fprintf(w, "Index: %d\n", p.CribIndex)
	fmt.Fprintf(w, "Key: %s\n", p.Key)
	fmt.Fprintf(w, "New key: %s\n", p.NewKey)
}

// WriteResult renders the outcome of a command.
func (s *Session) WriteResult(w io.Writer, r Result) {
	if r.Help {
		WriteHelp(w)
	}
	if r.Message != "" {
		fmt.Fprintln(w, r.Message)
	}
	if r.Preview != nil {
		s.WritePreview(w, r.Preview)
	}
	if r.Plaintext != nil {
		w.Write(r.Plaintext)
		fmt.Fprintln(w)
	}
}
