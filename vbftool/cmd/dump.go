/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/davecgh/go-spew/spew"
	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/reader"
	"github.com/indrora/vbf/vbf/record"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// dumpCmd represents the dump command
var dumpCmd = &cobra.Command{
	Use:   "dump <file> [index]",
	Short: "Dump decoded packets",
	Long: `Decode every packet of a file, or just the one at index, and dump
the result. Banks without a decoder are dumped as raw bytes.

With --record-version only array events written in that record layout
(AUG_2004 or AUG_2005) are dumped.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openFile(args[0], reader.WithRegistry(rawRegistry()))
		if err != nil {
			return err
		}
		defer r.Close()

		want, _ := cmd.Flags().GetString("record-version")
		keep, err := versionFilter(want)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(args) == 2 {
			i, err := strconv.ParseUint(args[1], 10, 32)
			if err != nil {
				return errors.Wrapf(err, "bad packet index %q", args[1])
			}
			p, err := r.ReadPacket(uint32(i))
			if err != nil {
				return err
			}
			spew.Fdump(out, p)
			dumpGPS(out, p)
			return nil
		}

		for i := 0; ; i++ {
			p, err := r.ReadNextPacket()
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			if !keep(p) {
				continue
			}
			fmt.Fprintf(out, "====== packet %d ======\n", i)
			spew.Fdump(out, p)
			dumpGPS(out, p)
		}
	},
}

// dumpGPS decodes the clock of every datum in an array event bank.
func dumpGPS(out io.Writer, p *format.Packet) {
	b, ok := p.Get(record.ARRAY_EVENT_BANK)
	if !ok {
		return
	}
	ae, ok := b.(*record.ArrayEvent)
	if !ok {
		return
	}
	if ae.Trigger != nil {
		fmt.Fprintf(out, "trigger GPS: %s\n", ae.Trigger.DecodeGPS())
	}
	for _, ev := range ae.Events {
		fmt.Fprintf(out, "node %d GPS: %s\n", ev.NodeNumber, ev.DecodeGPS())
	}
}

// versionFilter keeps packets whose array event has the named record
// version. An empty name keeps everything.
func versionFilter(name string) (func(*format.Packet) bool, error) {
	if name == "" {
		return func(*format.Packet) bool { return true }, nil
	}
	want, err := record.ParseVersion(name)
	if err != nil {
		return nil, err
	}
	return func(p *format.Packet) bool {
		b, ok := p.Get(record.ARRAY_EVENT_BANK)
		if !ok {
			return false
		}
		return record.Version(b.Version()) == want
	}, nil
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().String("record-version", "", "only dump array events in this record layout")
}
