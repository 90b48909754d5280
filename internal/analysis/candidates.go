package analysis

import (
	"context"
	"fmt"
	"sort"

	"github.com/pietroferretti/ctftools/internal/blocks"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"golang.org/x/sync/errgroup"
)

// ColumnCandidates returns every key byte that decrypts all of column into
// charset, ranked by descending EnglishScore of the decrypted column. Equal
// scores rank the higher key byte first.
func ColumnCandidates(column []byte, charset *Charset, combiner cipher.Combiner) []byte {
	if charset == nil {
		charset = Printable
	}
	if combiner == nil {
		combiner = cipher.Default()
	}

	var alive [256]bool
	for k := range alive {
		alive[k] = true
	}
	var seen [256]bool
	for _, c := range column {
		if seen[c] {
			continue
		}
		seen[c] = true
		for k := 0; k < 256; k++ {
			if alive[k] && !charset.Contains(combiner.Decrypt(c, byte(k))) {
				alive[k] = false
			}
		}
	}

	type ranked struct {
		key   byte
		score float64
	}
	survivors := make([]ranked, 0, 256)
	plain := make([]byte, len(column))
	for k := 0; k < 256; k++ {
		if !alive[k] {
			continue
		}
		for i, c := range column {
			plain[i] = combiner.Decrypt(c, byte(k))
		}
		survivors = append(survivors, ranked{key: byte(k), score: EnglishScore(plain)})
	}
	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].key > survivors[j].key
	})

	out := make([]byte, len(survivors))
	for i, s := range survivors {
		out[i] = s.key
	}
	return out
}

// FindKeyCandidates splits ciphertext into keyLength columns and returns the
// ranked candidate key bytes for each one. A column may end up with no
// candidates when the charset is too strict.
func FindKeyCandidates(ctx context.Context, ciphertext []byte, keyLength int, charset *Charset, combiner cipher.Combiner, opts Options) ([][]byte, error) {
	if keyLength < 1 {
		return nil, fmt.Errorf("%w: key length %d", ErrInvalidArgument, keyLength)
	}
	if charset != nil {
		opts.Charset = charset
	}
	if combiner != nil {
		opts.Combiner = combiner
	}
	opts = opts.withDefaults()

	columns := blocks.Columns(ciphertext, keyLength)
	result := make([][]byte, keyLength)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range keyLength {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			var column []byte
			if i < len(columns) {
				column = columns[i]
			}
			result[i] = ColumnCandidates(column, opts.Charset, opts.Combiner)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, cands := range result {
		opts.Logger.Debug("pruned column", "column", i, "candidates", len(cands))
	}
	return result, nil
}
