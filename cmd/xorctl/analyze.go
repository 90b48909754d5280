package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/spf13/cobra"
)

func exactFile(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return usagef("%s expects exactly one input file (use - for stdin), got %d", cmd.Name(), len(args))
	}
	return nil
}

// alphabetFlags are shared by the commands that prune key candidates.
type alphabetFlags struct {
	charset string
	chars   string
}

func (f *alphabetFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.charset, "charset", "", "named plaintext alphabet (see 'xorctl charsets')")
	cmd.Flags().StringVar(&f.chars, "chars", "", "explicit plaintext alphabet, plain text or a quoted literal")
}

func (f *alphabetFlags) apply(opts *analysis.Options) error {
	if f.chars != "" {
		chars, err := parseLiteral(f.chars)
		if err != nil {
			return err
		}
		opts.Charset = analysis.NewCharset("custom", chars)
		return nil
	}
	if f.charset != "" {
		cs, err := analysis.LookupCharset(f.charset)
		if err != nil {
			return usageError{err: err}
		}
		opts.Charset = cs
	}
	return nil
}

func (a *app) keylenCommand() *cobra.Command {
	var (
		top            int
		maxComparisons int
		minLength      int
		maxLength      int
		all            bool
		votes          bool
	)
	cmd := &cobra.Command{
		Use:   "keylen <file>",
		Short: "Estimate the key length with normalized Hamming distances",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			opts, err := a.options()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("top") {
				opts.TopN = top
			}
			if cmd.Flags().Changed("max-comparisons") {
				opts.MaxComparisons = maxComparisons
			}
			opts.MinLength, opts.MaxLength = minLength, maxLength

			scores, err := analysis.ScoreAllLengths(cmd.Context(), ct, opts)
			if err != nil {
				return err
			}
			if all {
				fmt.Fprintln(a.out, a.heading("Length scores"))
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "LENGTH\tSCORE")
				for _, s := range scores {
					fmt.Fprintf(tw, "%d\t%.4f\n", s.Length, s.Score)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			if votes {
				fmt.Fprintln(a.out, a.heading("GCD votes"))
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "GCD\tVOTES")
				for _, v := range analysis.GCDVotes(scores, opts.TopN) {
					fmt.Fprintf(tw, "%d\t%d\n", v.GCD, v.Votes)
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}

			length, err := analysis.ResolveKeyLength(scores, opts.TopN)
			if err != nil {
				return err
			}
			a.emit(logging.AuditEvent{
				EventType: logging.EventKeyLengthResolved,
				Decision:  logging.DecisionInfo,
				Metadata:  map[string]any{"key_length": length, "input_bytes": len(ct)},
			})
			fmt.Fprintf(a.out, "Key length: %d\n", length)
			return nil
		},
	}
	cmd.Flags().IntVar(&top, "top", analysis.DefaultTopN, "number of best lengths entering the GCD vote")
	cmd.Flags().IntVar(&maxComparisons, "max-comparisons", analysis.DefaultMaxComparisons, "block pairs compared per length")
	cmd.Flags().IntVar(&minLength, "min", 0, "smallest key length to score")
	cmd.Flags().IntVar(&maxLength, "max", 0, "largest key length to score")
	cmd.Flags().BoolVar(&all, "all", false, "print the score of every length")
	cmd.Flags().BoolVar(&votes, "votes", false, "print the GCD vote table")
	return cmd
}

func (a *app) candidatesCommand() *cobra.Command {
	var (
		keyLength int
		alphabet  alphabetFlags
	)
	cmd := &cobra.Command{
		Use:   "candidates <file>",
		Short: "List the key bytes that keep every column inside the plaintext alphabet",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			ct, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			opts, err := a.options()
			if err != nil {
				return err
			}
			if err := alphabet.apply(&opts); err != nil {
				return err
			}
			opts.KeyLength = keyLength
			sessionID := logging.NewSessionID()
			var keys [][]byte
			keyLength, keys, err = analysis.FindKeys(cmd.Context(), ct, count, opts)
			if errors.Is(err, analysis.ErrNotFound) {
				a.emit(logging.AuditEvent{
					EventType: logging.EventKeyRecoveryFailed,
					SessionID: sessionID,
					Decision:  logging.DecisionDeny,
					Metadata:  map[string]any{"key_length": keyLength},
				})
			}
			if err != nil {
				return err
			}
			a.emit(logging.AuditEvent{
				EventType: logging.EventKeyRecovered,
				SessionID: sessionID,
				Decision:  logging.DecisionAllow,
				Metadata:  map[string]any{"key_length": keyLength, "method": "enumeration", "listed": len(keys)},
			})

			fmt.Fprintf(a.out, "Key length: %d\n", keyLength)
			if count > 1 {
				fmt.Fprintln(a.out, a.heading("Ranked keys"))
				tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "RANK\tSCORE\tHEX\tKEY")
				for i, key := range keys {
					score := analysis.EnglishScore(cipher.Decrypt(ct, key, opts.Combiner))
					fmt.Fprintf(tw, "%d\t%.2f\t%x\t%s\n", i, score, key, cipher.QuoteBytes(key))
				}
				if err := tw.Flush(); err != nil {
					return err
				}
			}
			best := keys[0]
			fmt.Fprintf(a.out, "Key (hex): %x\n", best)
			fmt.Fprintf(a.out, "Key: %s\n", cipher.QuoteBytes(best))
			fmt.Fprintln(a.out, a.heading("Plaintext"))
			return a.writeBytes(cipher.Decrypt(ct, best, opts.Combiner))
		},
	}
	cmd.Flags().IntVarP(&keyLength, "keylen", "k", 0, "key length (estimated when omitted)")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ranked keys to list")
	alphabet.register(cmd)
	return cmd
}

func noArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 {
		return usagef("%s takes no arguments, got %q", cmd.Name(), args)
	}
	return nil
}
