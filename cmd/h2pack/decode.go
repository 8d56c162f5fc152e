package main

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yourusername/h2stream/pkg/h2stream/hpack"
)

func decodeCmd() *cobra.Command {
	var tableSize uint32
	var maxStringLength int

	cmd := &cobra.Command{
		Use:   "decode hex-block",
		Short: "Decode a hex-encoded HPACK header block into headers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := hex.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid hex input: %w", err)
			}

			dec := hpack.NewDecoder(tableSize, maxStringLength)
			dec.BeginHeaderBlock()
			cur := hpack.NewCursor(raw)

			for !cur.Empty() {
				res, err := dec.Decode(cur)
				if err != nil {
					return fmt.Errorf("decode: %w", err)
				}
				switch res.Kind {
				case hpack.HeaderFieldResult:
					fmt.Printf("%s: %s\n", res.Header.Name, res.Header.Value)
				case hpack.TableSizeUpdateResult:
					fmt.Printf("# dynamic table size update: %d\n", res.NewTableSize)
				}
			}
			return nil
		},
	}

	cmd.Flags().Uint32Var(&tableSize, "table-size", 4096, "dynamic table size limit in octets")
	cmd.Flags().IntVar(&maxStringLength, "max-string-length", 0, "maximum decoded string length, 0 for default")
	return cmd
}
