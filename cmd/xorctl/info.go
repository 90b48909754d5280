package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/pietroferretti/ctftools/internal/analysis"
	"github.com/pietroferretti/ctftools/internal/cipher"
	"github.com/pietroferretti/ctftools/internal/codec"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) configCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved configuration",
	}
	var format string
	printCmd := &cobra.Command{
		Use:   "print",
		Short: "Print the configuration after files, environment and flags are applied",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				data []byte
				err  error
			)
			switch strings.ToLower(format) {
			case "yaml", "yml":
				data, err = yaml.Marshal(a.cfg)
			case "toml":
				data, err = toml.Marshal(a.cfg)
			default:
				return usagef("unknown format %q (yaml or toml)", format)
			}
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = a.out.Write(data)
			return err
		},
	}
	printCmd.Flags().StringVar(&format, "format", "yaml", "output format: yaml or toml")
	cmd.AddCommand(printCmd)
	return cmd
}

func (a *app) combinersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "combiners",
		Short: "List the registered byte combiners",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, c := range cipher.ListCombiners() {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name(), c.Description())
			}
			return tw.Flush()
		},
	}
}

func (a *app) charsetsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "charsets",
		Short: "List the named plaintext alphabets",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, name := range analysis.CharsetNames() {
				cs, err := analysis.LookupCharset(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%d bytes\n", name, cs.Len())
			}
			return tw.Flush()
		},
	}
}

func (a *app) encodingsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encodings",
		Short: "List the input and output encodings",
		Args:  noArgs,
		RunE: func(*cobra.Command, []string) error {
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, c := range codec.List() {
				fmt.Fprintf(tw, "%s\t%s\n", c.Name(), c.Description())
			}
			return tw.Flush()
		},
	}
}
