package analysis

import (
	"log/slog"

	"github.com/pietroferretti/ctftools/internal/cipher"
)

const (
	// DefaultMaxComparisons caps the block pairs compared per key length.
	DefaultMaxComparisons = 100
	// DefaultTopN is the number of best key lengths entering the GCD vote.
	DefaultTopN = 7
)

// Options tunes the analysis pipeline. The zero value is usable.
type Options struct {
	// MaxComparisons caps the block pairs compared per candidate length.
	// Zero selects DefaultMaxComparisons.
	MaxComparisons int
	// TopN is the number of best-scored lengths used in the GCD vote. Zero
	// selects DefaultTopN.
	TopN int
	// MinLength and MaxLength optionally narrow the searched key lengths.
	MinLength int
	MaxLength int
	// KeyLength skips key length estimation when positive.
	KeyLength int
	// Charset is the plaintext alphabet. Nil selects Printable.
	Charset *Charset
	// Combiner defaults to XOR.
	Combiner cipher.Combiner
	// Workers bounds the goroutines used per stage. Values below 2 keep the
	// analysis sequential.
	Workers int
	Logger  *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxComparisons == 0 {
		o.MaxComparisons = DefaultMaxComparisons
	}
	if o.TopN == 0 {
		o.TopN = DefaultTopN
	}
	if o.Charset == nil {
		o.Charset = Printable
	}
	if o.Combiner == nil {
		o.Combiner = cipher.Default()
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	return o
}
