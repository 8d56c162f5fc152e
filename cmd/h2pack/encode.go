package main

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yourusername/h2stream/pkg/h2stream/hpack"
)

func encodeCmd() *cobra.Command {
	var tableSize uint32
	var huffman string

	cmd := &cobra.Command{
		Use:   "encode name:value [name:value ...]",
		Short: "Encode a list of headers into an HPACK header block",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			headers := make([]hpack.Header, 0, len(args))
			for _, arg := range args {
				name, value, ok := strings.Cut(arg, ":")
				if !ok {
					return fmt.Errorf("invalid header %q, want name:value", arg)
				}
				headers = append(headers, hpack.Header{Name: name, Value: value})
			}

			enc := hpack.NewEncoder(tableSize)
			mode, err := parseHuffmanMode(huffman)
			if err != nil {
				return err
			}
			enc.SetHuffmanMode(mode)

			block := enc.EncodeHeaderBlock(nil, headers)
			fmt.Println(hex.EncodeToString(block))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&tableSize, "table-size", 4096, "dynamic table size limit in octets")
	cmd.Flags().StringVar(&huffman, "huffman", "smallest", "huffman mode: smallest, always, or never")
	return cmd
}

func parseHuffmanMode(s string) (hpack.HuffmanMode, error) {
	switch strings.ToLower(s) {
	case "smallest":
		return hpack.Smallest, nil
	case "always":
		return hpack.Always, nil
	case "never":
		return hpack.Never, nil
	default:
		return 0, fmt.Errorf("unknown huffman mode %q", s)
	}
}
