package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var catHex bool

func init() {
	cmd := newCatCmd()
	cmd.Flags().BoolVar(&catHex, "hex", false, "Print a hex dump instead of raw bytes")
	rootCmd.AddCommand(cmd)
}

func newCatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cat <heap-id> <offset> <size>",
		Short: "Print the contents of a chunk",
		Long: `The cat command writes the bytes of a chunk to stdout.

Example:
  nvpctl cat 1 0 11
  nvpctl cat 1 0 11 --hex`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCat(args)
		},
	}
	return cmd
}

func runCat(args []string) (err error) {
	c, err := parseChunk(args)
	if err != nil {
		return err
	}
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	if err := requireHeap(d, c.Heap); err != nil {
		return err
	}
	h, err := d.InitHeap(c.Heap, 0)
	if err != nil {
		return err
	}
	allocated, err := h.Allocated(c)
	if err != nil {
		return err
	}
	if !allocated {
		fmt.Fprintf(os.Stderr, "warning: %s is not allocated\n", c.Handle())
	}
	b, err := d.ResolveChunk(c)
	if err != nil {
		return err
	}

	if jsonOut {
		return printJSON(map[string]any{
			"handle":    toHandleJSON(c.Handle()),
			"allocated": allocated,
			"hex":       hex.EncodeToString(b),
		})
	}
	if catHex {
		_, err = fmt.Fprint(os.Stdout, hex.Dump(b))
		return err
	}
	_, err = os.Stdout.Write(b)
	return err
}
