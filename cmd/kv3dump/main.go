package main

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/resourcekit/kv3"
)

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config
	)

	root := &cobra.Command{
		Use:          "kv3dump",
		Short:        "Inspect and convert binary KV3 blocks",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("max-depth") {
				c.MaxDepth, _ = cmd.Flags().GetInt("max-depth")
			}
			if cmd.Flags().Changed("max-elements") {
				c.MaxElements, _ = cmd.Flags().GetInt("max-elements")
			}
			cfg = c
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file")
	root.PersistentFlags().Int("max-depth", 256, "maximum nesting depth")
	root.PersistentFlags().Int("max-elements", 0, "maximum payload-free typed array elements (0 scales with input)")

	text := &cobra.Command{
		Use:   "text [files...]",
		Short: "Print documents in KV3 text syntax",
		RunE: func(cmd *cobra.Command, args []string) error {
			return each(cmd, cfg, args, func(fname string, doc *kv3.Document) error {
				return doc.WriteText(cmd.OutOrStdout())
			})
		},
	}

	dump := &cobra.Command{
		Use:   "spew [files...]",
		Short: "Dump decoded trees as Go values",
		RunE: func(cmd *cobra.Command, args []string) error {
			return each(cmd, cfg, args, func(fname string, doc *kv3.Document) error {
				spew.Fdump(cmd.OutOrStdout(), kv3.ObjectValue(doc.Root).Interface())
				return nil
			})
		},
	}

	info := &cobra.Command{
		Use:   "info [files...]",
		Short: "Print header information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return each(cmd, cfg, args, func(fname string, doc *kv3.Document) error {
				printInfo(cmd.OutOrStdout(), fname, doc)
				return nil
			})
		},
	}

	var outPath string
	reencode := &cobra.Command{
		Use:   "reencode [file]",
		Short: "Decode a document and write it back in another version or compression",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("version") {
				cfg.Reencode.Version, _ = cmd.Flags().GetString("version")
			}
			if cmd.Flags().Changed("compression") {
				cfg.Reencode.Compression, _ = cmd.Flags().GetString("compression")
			}
			if cmd.Flags().Changed("typed-arrays") {
				cfg.Reencode.TypedArrays, _ = cmd.Flags().GetBool("typed-arrays")
			}

			enc, err := cfg.encoder()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}

			return each(cmd, cfg, args, func(fname string, doc *kv3.Document) error {
				e := *enc
				e.Format = doc.Format
				if err := e.Encode(out, doc.Root); err != nil {
					return fmt.Errorf("error encoding %s: %w", fname, err)
				}
				return nil
			})
		},
	}
	reencode.Flags().StringVarP(&outPath, "output", "o", "", "output file (default stdout)")
	reencode.Flags().String("version", "kv3_01", "output version: vkv3, kv3_01 or kv3_04")
	reencode.Flags().String("compression", "none", "output compression: none, lz4, block or zstd")
	reencode.Flags().Bool("typed-arrays", false, "write homogeneous arrays as typed arrays")

	root.AddCommand(text, dump, info, reencode)
	return root
}

func printInfo(w io.Writer, fname string, doc *kv3.Document) {
	fmt.Fprintf(w, "%s:\n", fname)
	fmt.Fprintf(w, "  version:     %v\n", doc.Version)
	if doc.EncodingName != "" {
		fmt.Fprintf(w, "  encoding:    %s {%s}\n", doc.EncodingName, doc.Encoding)
	} else if doc.Version <= kv3.Version1 {
		fmt.Fprintf(w, "  encoding:    {%s}\n", doc.Encoding)
	}
	fmt.Fprintf(w, "  format:      {%s}\n", doc.Format)
	fmt.Fprintf(w, "  compression: %s\n", doc.Compression)
	fmt.Fprintf(w, "  properties:  %d\n", doc.Root.Len())
}

// each decodes every named file, or stdin when there are none, and hands
// the documents to fn.
func each(cmd *cobra.Command, cfg *config, args []string, fn func(fname string, doc *kv3.Document) error) error {
	d := cfg.decoder()

	process := func(fname string, b []byte) error {
		doc, err := d.Decode(b)
		if err != nil {
			return fmt.Errorf("error processing %s: %w", fname, err)
		}
		return fn(fname, doc)
	}

	if len(args) == 0 {
		b, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("error reading stdin: %w", err)
		}
		return process("stdin", b)
	}

	for _, arg := range args {
		b, err := os.ReadFile(arg)
		if err != nil {
			return fmt.Errorf("error reading %s: %w", arg, err)
		}
		if err := process(arg, b); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
