/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"io"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/reader"
	"github.com/indrora/vbf/vbf/record"
	"github.com/indrora/vbf/vbf/writer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// zipCmd represents the zip command
var zipCmd = &cobra.Command{
	Use:   "zip comp|decomp <in> <out>",
	Short: "Turn sample compression on or off for every event",
	Long: `Copy a file packet by packet, switching the waveform compression of
every telescope event on (comp) or off (decomp). Banks vbftool does not
understand are copied unchanged. Events whose sample count is not a
multiple of four are left uncompressed.`,
	Args:      cobra.ExactArgs(3),
	ValidArgs: []string{"comp", "decomp"},
	RunE: func(cmd *cobra.Command, args []string) error {
		var compress bool
		switch args[0] {
		case "comp":
			compress = true
		case "decomp":
		default:
			return errors.Errorf("expected comp or decomp, got %q", args[0])
		}

		r, err := openFile(args[1], reader.WithRegistry(rawRegistry()))
		if err != nil {
			return err
		}
		defer r.Close()

		w, err := writer.Create(args[2], r.RunNumber(), r.ConfigMask(), writer.RingSize(config.RingSize))
		if err != nil {
			return err
		}
		defer w.Close()

		for {
			p, err := r.ReadNextPacket()
			if err == io.EOF {
				break
			} else if err != nil {
				return err
			}
			skipped := zipPacket(p, compress)
			if skipped > 0 {
				logrus.WithFields(logrus.Fields{
					"packet": w.NextIndex(),
					"events": skipped,
				}).Debug("sample count not a multiple of four, left uncompressed")
			}
			if err = w.WritePacket(p); err != nil {
				return err
			}
		}
		return w.Finish()
	},
}

// zipPacket switches compression on every event in p and returns how many
// events could not be compressed.
func zipPacket(p *format.Packet, compress bool) int {
	var events []*record.Event
	for _, name := range p.Names() {
		b, _ := p.Get(name)
		switch b := b.(type) {
		case *record.ArrayEvent:
			events = append(events, b.Events...)
		case *record.EventOverflow:
			for _, d := range b.Datums {
				if ev, ok := d.(*record.Event); ok {
					events = append(events, ev)
				}
			}
		}
	}
	skipped := 0
	for _, ev := range events {
		if compress && ev.NumSamples%4 != 0 {
			ev.Compressed = false
			skipped++
			continue
		}
		ev.Compressed = compress
	}
	return skipped
}

func init() {
	rootCmd.AddCommand(zipCmd)
}
