package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/joshuapare/nvpkit/internal/format"
	"github.com/joshuapare/nvpkit/pkg/nvp"
)

func init() {
	rootCmd.AddCommand(newInfoCmd())
}

func newInfoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info <heap-id>",
		Short: "Validate a heap header and report occupancy",
		Long: `The info command validates the header of an existing heap and shows
its layout and chunk occupancy. It never formats a region.

Example:
  nvpctl info 1
  nvpctl info 1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(args)
		},
	}
	return cmd
}

func runInfo(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
	}
	d, err := openDirectory()
	if err != nil {
		return err
	}
	defer closeDirectory(d, &err)

	size, ok, err := d.Provider().Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("region %d: %w", id, nvp.ErrNotFound)
	}
	h, err := d.InitHeap(id, 0)
	if err != nil {
		return fmt.Errorf("region %d is not a usable heap: %w", id, err)
	}

	if jsonOut {
		w := jwriter.NewWriter()
		h.WriteStats(&w)
		if err := w.Error(); err != nil {
			return err
		}
		_, err := fmt.Fprintf(os.Stdout, "%s\n", w.Bytes())
		return err
	}

	st := h.Stats()
	l := h.Layout()
	p := message.NewPrinter(language.English)
	printInfo("\nHeap Information:\n")
	printInfo("  Region: %d\n", id)
	printInfo("  File size: %s\n", humanize.IBytes(uint64(size)))
	printInfo("  Heap size: %s\n", humanize.IBytes(uint64(l.TotalSize)))
	printInfo("  Chunk size: %d bytes\n", format.ChunkSize)
	printInfo("  Bitmap: %d bytes at offset %d\n", l.BitmapLen, l.BitmapOff)
	printInfo("  Data area: %s at offset %d\n", humanize.IBytes(uint64(l.DataLen)), l.DataOff)
	printInfo("  %s\n", p.Sprintf("Chunks: %d total, %d used, %d free", st.TotalChunks, st.UsedChunks, st.FreeChunks))
	printInfo("  %s\n", p.Sprintf("Largest free run: %d chunks", st.LargestFreeRun))
	printVerbose("  Magic: %#08x\n", format.HeapMagic)
	return nil
}
