package main

import (
	"context"
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var initSize datasize.ByteSize

func init() {
	cmd := newInitCmd()
	cmd.Flags().Var(newSizeValue(datasize.MB, &initSize), "size", "Heap size for a new region (raised to 128KB)")
	rootCmd.AddCommand(cmd)
}

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init <heap-id>",
		Short: "Format a heap, or open it if it already exists",
		Long: `The init command formats region <heap-id> as a heap. An existing heap
is validated and left untouched; --size only applies to new regions.

Example:
  nvpctl init 1 --dir ./regions
  nvpctl init 2 --size 4MB`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args)
		},
	}
	return cmd
}

func runInit(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
	}
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	_, existed, err := d.Provider().Exists(id)
	if err != nil {
		return err
	}
	h, err := d.InitHeap(id, int(initSize.Bytes()))
	if err != nil {
		return fmt.Errorf("failed to initialize heap %d: %w", id, err)
	}
	if err := d.Sync(context.Background()); err != nil {
		return fmt.Errorf("failed to sync heap %d: %w", id, err)
	}

	l := h.Layout()
	if jsonOut {
		return printJSON(map[string]any{
			"heap":    id,
			"created": !existed,
			"size":    l.TotalSize,
			"chunks":  l.Chunks,
		})
	}
	verb := "Initialized"
	if existed {
		verb = "Opened existing"
	}
	p := message.NewPrinter(language.English)
	printInfo("%s heap %d: %s, %s\n", verb, id,
		humanize.IBytes(uint64(l.TotalSize)), p.Sprintf("%d chunks", l.Chunks))
	return nil
}
