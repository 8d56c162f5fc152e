// Command h2pack is a small CLI for exercising the hpack encoder and
// decoder without standing up a full HTTP/2 connection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "h2pack",
		Short: "Encode and decode HTTP/2 header blocks with HPACK",
	}

	root.AddCommand(encodeCmd())
	root.AddCommand(decodeCmd())
	return root
}
