package main

import (
	"errors"
	"fmt"

	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/cribdrag"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/spf13/cobra"
)

func (a *app) cribdragCommand() *cobra.Command {
	var keyLength int
	cmd := &cobra.Command{
		Use:   "cribdrag <file>",
		Short: "Interactively place known plaintext to recover the key",
		Long: "cribdrag reads commands from standard input. Enter \"help\" inside the session\n" +
			"for the list of commands. The ciphertext cannot be read from standard input here.",
		Args: exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyLength < 1 {
				return usagef("--keylen is required")
			}
			if args[0] == "-" {
				return usagef("cribdrag reads commands from stdin; pass the ciphertext as a file")
			}
			ct, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			combiner, err := a.combinerValue()
			if err != nil {
				return err
			}

			opts := []cribdrag.Option{
				cribdrag.WithLogger(a.logger),
				cribdrag.WithAuditLogger(a.audit),
			}
			if hl := a.highlighter(); hl != nil {
				opts = append(opts, cribdrag.WithHighlight(hl))
			}
			session, err := cribdrag.NewSession(ct, keyLength, combiner, opts...)
			if err != nil {
				return usageError{err: err}
			}
			key, err := session.Run(cmd.Context(), a.in, a.out)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Final key: %s\n", key)
			if b, ok := key.Bytes(); ok {
				fmt.Fprintf(a.out, "Key (hex): %x\n", b)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&keyLength, "keylen", "k", 0, "key length")
	return cmd
}

func (a *app) embeddedCommand() *cobra.Command {
	var (
		keyLength int
		keyIndex  int
		seed      string
		seedIndex int
	)
	cmd := &cobra.Command{
		Use:   "embedded <file>",
		Short: "Recover a key that appears in its own plaintext",
		Long: "embedded recovers the key of a message that contains the key itself at --key-index,\n" +
			"starting from one known plaintext byte (--seed) at --seed-index.",
		Args: exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyLength < 1 {
				return usagef("--keylen is required")
			}
			if seed == "" {
				return usagef("--seed is required")
			}
			seedByte, err := parseByte(seed)
			if err != nil {
				return err
			}
			ct, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			combiner, err := a.combinerValue()
			if err != nil {
				return err
			}

			key, err := analysis.RecoverEmbeddedKey(ct, keyLength, keyIndex, seedByte, seedIndex, combiner)
			switch {
			case errors.Is(err, analysis.ErrIncompleteKeyRecovery):
				a.emit(logging.AuditEvent{
					EventType: logging.EventKeyRecoveryFailed,
					Decision:  logging.DecisionDeny,
					Reason:    err.Error(),
					Metadata:  map[string]any{"key_length": keyLength, "known": key.KnownCount()},
				})
				fmt.Fprintf(a.out, "Partial key: %s\n", key)
				fmt.Fprintln(a.out, a.heading("Partial plaintext"))
				if werr := a.writeBytes(cipher.DecryptPartial(ct, key, combiner, cribdrag.Placeholder)); werr != nil {
					return werr
				}
				return err
			case errors.Is(err, analysis.ErrInvalidConfiguration), errors.Is(err, analysis.ErrInvalidArgument):
				return usageError{err: err}
			case err != nil:
				return err
			}

			keyBytes, _ := key.Bytes()
			a.emit(logging.AuditEvent{
				EventType: logging.EventKeyRecovered,
				Decision:  logging.DecisionAllow,
				Metadata:  map[string]any{"key_length": keyLength, "method": "embedded"},
			})
			fmt.Fprintf(a.out, "Key (hex): %x\n", keyBytes)
			fmt.Fprintf(a.out, "Key: %s\n", cipher.QuoteBytes(keyBytes))
			fmt.Fprintln(a.out, a.heading("Plaintext"))
			return a.writeBytes(cipher.Decrypt(ct, keyBytes, combiner))
		},
	}
	cmd.Flags().IntVarP(&keyLength, "keylen", "k", 0, "key length")
	cmd.Flags().IntVar(&keyIndex, "key-index", 0, "plaintext offset where the key starts")
	cmd.Flags().StringVar(&seed, "seed", "", "known plaintext byte: a character, a number or a quoted literal")
	cmd.Flags().IntVar(&seedIndex, "seed-index", 0, "plaintext offset of the seed byte")
	return cmd
}
