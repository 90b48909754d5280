package main

import (
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/spf13/cobra"
)

// transformCommand builds the encrypt and decrypt commands, which differ
// only in the direction of the combiner.
func (a *app) transformCommand(direction string) *cobra.Command {
	var key string
	cmd := &cobra.Command{
		Use:   direction + " <file>",
		Short: "Apply a repeating key to the input (" + direction + ")",
		Args:  exactFile,
		RunE: func(cmd *cobra.Command, args []string) error {
			if key == "" {
				return usagef("--key is required")
			}
			keyBytes, err := parseLiteral(key)
			if err != nil {
				return err
			}
			if len(keyBytes) == 0 {
				return usagef("--key must not be empty")
			}
			data, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			combiner, err := a.combinerValue()
			if err != nil {
				return err
			}
			if direction == "encrypt" {
				return a.writeBytes(cipher.Encrypt(data, keyBytes, combiner))
			}
			return a.writeBytes(cipher.Decrypt(data, keyBytes, combiner))
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "key as plain text or a quoted literal such as '\\x01\\x02'")
	return cmd
}
