package analysis

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/pietroferretti/ctftools/internal/blocks"
	"golang.org/x/sync/errgroup"
)

// LengthScore is the normalized Hamming distance measured for one candidate
// key length. Lower scores are more likely.
type LengthScore struct {
	Length int     `json:"length"`
	Score  float64 `json:"score"`
}

// ScoreLength computes the normalized average Hamming distance between the
// full blocks of length bytes in ciphertext. Pairs are taken in block order
// (0,1), (0,2), ... (1,2), ... and counting stops after maxComparisons pairs.
func ScoreLength(ciphertext []byte, length, maxComparisons int) (float64, error) {
	if length < 1 {
		return 0, fmt.Errorf("%w: key length %d", ErrInvalidArgument, length)
	}
	if maxComparisons < 1 {
		return 0, fmt.Errorf("%w: max comparisons %d", ErrInvalidArgument, maxComparisons)
	}

	chunks := blocks.FullBlocks(ciphertext, length)
	if len(chunks) < 2 {
		return 0, fmt.Errorf("%w: %d full blocks of %d bytes", ErrInsufficientData, len(chunks), length)
	}

	total, pairs := 0, 0
compare:
	for i := 0; i < len(chunks); i++ {
		for j := i + 1; j < len(chunks); j++ {
			d, err := blocks.HammingDistance(chunks[i], chunks[j])
			if err != nil {
				return 0, err
			}
			total += d
			pairs++
			if pairs >= maxComparisons {
				break compare
			}
		}
	}

	avg := float64(total) / float64(pairs)
	return avg / float64(length), nil
}

// ScoreAllLengths scores every key length from 1 to len(ciphertext)/2 (or
// the narrower range set in opts) and returns them ordered by ascending
// score. Ties keep ascending length order. Lengths without enough data are
// left out.
func ScoreAllLengths(ctx context.Context, ciphertext []byte, opts Options) ([]LengthScore, error) {
	opts = opts.withDefaults()
	if opts.MaxComparisons < 1 {
		return nil, fmt.Errorf("%w: max comparisons %d", ErrInvalidArgument, opts.MaxComparisons)
	}

	lo, hi := 1, len(ciphertext)/2
	if opts.MinLength > lo {
		lo = opts.MinLength
	}
	if opts.MaxLength > 0 && opts.MaxLength < hi {
		hi = opts.MaxLength
	}
	if hi < lo {
		return []LengthScore{}, nil
	}

	slots := make([]*LengthScore, hi-lo+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for length := lo; length <= hi; length++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			score, err := ScoreLength(ciphertext, length, opts.MaxComparisons)
			if errors.Is(err, ErrInsufficientData) {
				return nil
			}
			if err != nil {
				return err
			}
			slots[length-lo] = &LengthScore{Length: length, Score: score}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]LengthScore, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			results = append(results, *s)
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score < results[j].Score
	})

	opts.Logger.Debug("scored key lengths", "min", lo, "max", hi, "scored", len(results))
	return results, nil
}
