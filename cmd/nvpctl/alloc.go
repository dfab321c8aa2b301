package main

import (
	"context"
	"fmt"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"

	"github.com/joshuapare/nvpkit/nvp/heap"
	"github.com/joshuapare/nvpkit/pkg/nvp"
)

var allocSize datasize.ByteSize

func init() {
	cmd := newAllocCmd()
	cmd.Flags().Var(newSizeValue(0, &allocSize), "size", "Allocate a zero-filled chunk of this size instead of storing data")
	rootCmd.AddCommand(cmd)
}

func newAllocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alloc <heap-id> [data]",
		Short: "Allocate a chunk and print its handle",
		Long: `The alloc command allocates a chunk in an existing heap. With [data]
the bytes are copied into the chunk; with --size a zero-filled chunk is
reserved. The printed offset and size are what free and cat expect.

Example:
  nvpctl alloc 1 "hello world"
  nvpctl alloc 1 --size 4KB --json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAlloc(args)
		},
	}
	return cmd
}

func runAlloc(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
	}
	if (len(args) == 2) == (allocSize > 0) {
		return fmt.Errorf("give either [data] or --size")
	}

	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	if err := requireHeap(d, id); err != nil {
		return err
	}
	h, err := d.InitHeap(id, 0)
	if err != nil {
		return err
	}

	var c nvp.ChunkHandle
	if len(args) == 2 {
		c, err = h.AllocWithData([]byte(args[1]))
	} else {
		c, err = allocZeroed(h, int(allocSize.Bytes()))
	}
	if err != nil {
		return fmt.Errorf("failed to allocate in heap %d: %w", id, err)
	}
	if err := d.Sync(context.Background()); err != nil {
		return fmt.Errorf("failed to sync heap %d: %w", id, err)
	}

	if jsonOut {
		return printJSON(toHandleJSON(c.Handle()))
	}
	printInfo("%s\n", c.Handle())
	return nil
}

// allocZeroed allocates size bytes and clears them; a reused chunk still
// holds whatever its previous owner wrote.
func allocZeroed(h *heap.Heap, size int) (nvp.ChunkHandle, error) {
	c, err := h.Alloc(size)
	if err != nil {
		return nvp.ChunkHandle{}, err
	}
	if err := h.WriteAt(c, make([]byte, c.Size), 0); err != nil {
		return nvp.ChunkHandle{}, err
	}
	return c, nil
}

// requireHeap fails unless region id exists, so commands that expect a heap
// never format one as a side effect.
func requireHeap(d *nvp.Directory, id nvp.RegionID) error {
	_, ok, err := d.Provider().Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("heap %d: %w (run nvpctl init first)", id, nvp.ErrNotFound)
	}
	return nil
}
