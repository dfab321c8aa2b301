package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var mapWidth int

func init() {
	cmd := newMapCmd()
	cmd.Flags().IntVar(&mapWidth, "width", 64, "Chunks per output line")
	rootCmd.AddCommand(cmd)
}

func newMapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "map <heap-id>",
		Short: "Show the allocation map of a heap",
		Long: `The map command prints one character per chunk: '#' for allocated
and '.' for free. With --json it prints the runs instead.

Example:
  nvpctl map 1
  nvpctl map 1 --width 128`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(args)
		},
	}
	return cmd
}

type runJSON struct {
	Start int  `json:"start"`
	Count int  `json:"count"`
	Used  bool `json:"used"`
}

func runMap(args []string) (err error) {
	id, err := parseRegionID(args[0])
	if err != nil {
		return err
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

	if jsonOut {
		var runs []runJSON
		err := h.Runs(func(start, count int, used bool) bool {
			runs = append(runs, runJSON{Start: start, Count: count, Used: used})
			return true
		})
		if err != nil {
			return err
		}
		return printJSON(runs)
	}

	width := mapWidth
	if width <= 0 {
		width = 64
	}
	var sb strings.Builder
	col := 0
	err = h.Runs(func(start, count int, used bool) bool {
		ch := byte('.')
		if used {
			ch = '#'
		}
		for range count {
			sb.WriteByte(ch)
			col++
			if col == width {
				sb.WriteByte('\n')
				col = 0
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	if col != 0 {
		sb.WriteByte('\n')
	}
	printInfo("%s", sb.String())
	return nil
}
