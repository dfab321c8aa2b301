package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newFreeCmd())
}

func newFreeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "free <heap-id> <offset> <size>",
		Short: "Free a chunk",
		Long: `The free command returns a chunk to its heap. Offset and size are the
values printed by alloc. Freeing a chunk twice is reported as an error.

Example:
  nvpctl free 1 256 11`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFree(args)
		},
	}
	return cmd
}

func runFree(args []string) (err error) {
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
	if _, err := d.InitHeap(c.Heap, 0); err != nil {
		return err
	}
	if err := d.Free(c); err != nil {
		return fmt.Errorf("failed to free %s: %w", c.Handle(), err)
	}
	if err := d.Sync(context.Background()); err != nil {
		return err
	}
	printVerbose("Freed %s\n", c.Handle())
	return nil
}
