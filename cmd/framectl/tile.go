package main

import (
	"fmt"
	"io"

	"github.com/bareboard/pmem/blocksize"
	"github.com/bareboard/pmem/buddy"
	"github.com/bareboard/pmem/phys"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(newTileCmd())
}

func newTileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tile <start> <end>",
		Short: "Show the blocks a range is seeded with",
		Long: `The tile command prints the blocks the allocator would place on its
free lists when seeded with the half-open range [start, end). Both ends
must be page aligned.

Example:
  framectl tile 0x1000 0x5000
  framectl tile 0x80000 0x3F000000 --json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTile(cmd.OutOrStdout(), args)
		},
	}
	return cmd
}

type tileBlock struct {
	addr  phys.PhysAddr
	class blocksize.Class
}

type tileSink []tileBlock

func (s *tileSink) AddBlock(addr phys.PhysAddr, class blocksize.Class) {
	*s = append(*s, tileBlock{addr, class})
}

func runTile(out io.Writer, args []string) error {
	start, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	end, err := parseAddr(args[1])
	if err != nil {
		return err
	}

	var blocks tileSink
	if err := buddy.Tile(start, end, &blocks); err != nil {
		return err
	}

	if jsonOut {
		writer := jwriter.NewWriter()
		arr := writer.Array()
		for _, block := range blocks {
			obj := arr.Object()
			obj.Name("Address").String(block.addr.String())
			obj.Name("Class").String(block.class.String())
			obj.Name("Size").Int(int(block.class.Bytes()))
			obj.End()
		}
		arr.End()

		_, err := fmt.Fprintln(out, string(writer.Bytes()))
		return err
	}

	for _, block := range blocks {
		fmt.Fprintf(out, "%s  %s\n", block.addr, block.class)
	}
	fmt.Fprintf(out, "%d blocks, %#x bytes\n", len(blocks), end.Sub(start))
	return nil
}
