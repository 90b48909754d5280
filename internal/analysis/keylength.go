package analysis

import (
	"context"
	"fmt"
	"sort"
)

// ExtendedGCD returns g = gcd(a, b) together with Bézout coefficients x and
// y such that a*x + b*y = g.
func ExtendedGCD(a, b int) (g, x, y int) {
	oldR, r := a, b
	oldS, s := 1, 0
	oldT, t := 0, 1
	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
		oldT, t = t, oldT-q*t
	}
	return oldR, oldS, oldT
}

// GCDVote is the number of candidate pairs sharing a common divisor.
type GCDVote struct {
	GCD   int `json:"gcd"`
	Votes int `json:"votes"`
}

// GCDVotes takes the first topN entries of scores and counts, for every
// unordered pair, the GCD of their lengths. A GCD of 1 carries no
// information and is not counted. The result is ordered by descending
// votes, then ascending GCD.
func GCDVotes(scores []LengthScore, topN int) []GCDVote {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if topN > len(scores) {
		topN = len(scores)
	}
	top := scores[:topN]

	counts := make(map[int]int)
	for i := 0; i < len(top); i++ {
		for j := i + 1; j < len(top); j++ {
			g, _, _ := ExtendedGCD(top[i].Length, top[j].Length)
			if g > 1 {
				counts[g]++
			}
		}
	}

	votes := make([]GCDVote, 0, len(counts))
	for g, n := range counts {
		votes = append(votes, GCDVote{GCD: g, Votes: n})
	}
	sort.Slice(votes, func(i, j int) bool {
		if votes[i].Votes != votes[j].Votes {
			return votes[i].Votes > votes[j].Votes
		}
		return votes[i].GCD < votes[j].GCD
	})
	return votes
}

// ResolveKeyLength returns the GCD with the most votes among the topN best
// scored lengths. Equal vote counts resolve to the smallest GCD.
func ResolveKeyLength(scores []LengthScore, topN int) (int, error) {
	votes := GCDVotes(scores, topN)
	if len(votes) == 0 {
		return 0, fmt.Errorf("%w: no common divisor among %d scored lengths", ErrNoKeyLengthFound, len(scores))
	}
	return votes[0].GCD, nil
}

// FindKeyLength scores all key lengths of ciphertext and resolves the most
// likely one.
func FindKeyLength(ctx context.Context, ciphertext []byte, opts Options) (int, error) {
	opts = opts.withDefaults()
	scores, err := ScoreAllLengths(ctx, ciphertext, opts)
	if err != nil {
		return 0, err
	}
	length, err := ResolveKeyLength(scores, opts.TopN)
	if err != nil {
		return 0, err
	}
	opts.Logger.Debug("resolved key length", "length", length, "candidates", min(len(scores), opts.TopN))
	return length, nil
}
