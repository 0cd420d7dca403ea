/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"

	"github.com/indrora/vbf/vbf/reader"
	"github.com/indrora/vbf/vbf/record"
	"github.com/spf13/cobra"
)

// summaryCmd represents the summary command
var summaryCmd = &cobra.Command{
	Use:   "summary <file>...",
	Short: "Describe the header, sizes and index of VBF files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, filename := range args {
			r, err := openFile(filename)
			if err != nil {
				return err
			}
			explainFile(cmd.OutOrStdout(), filename, r)
			r.Close()
		}
		return nil
	},
}

func explainFile(w io.Writer, filename string, r *reader.Reader) {
	fmt.Fprintf(w, "====== %s ======\n", filename)
	fmt.Fprintf(w, "Compression: %s\n", r.Compression())
	fmt.Fprintf(w, "Run: %d\n", r.RunNumber())
	mask := r.ConfigMask()
	fmt.Fprintf(w, "Telescopes: %s (%d)\n", mask.String(), mask.Cardinality())

	if gps, ok := firstGPS(r); ok {
		fmt.Fprintf(w, "First event: %s\n", gps)
	}

	if r.IsStreamed() {
		fmt.Fprintf(w, "Sizes, checksum and index are not available for a compressed stream\n")
		return
	}

	size, _ := r.FileSize()
	body, _ := r.BodySize()
	original, _ := r.OriginalBodySize()
	footer, _ := r.FooterSize()
	fmt.Fprintf(w, "File size: %d\n", size)
	fmt.Fprintf(w, "Header size: %d\n", r.HeaderSize())
	fmt.Fprintf(w, "Body size: %d (header says %d)\n", body, original)
	fmt.Fprintf(w, "Footer size: %d\n", footer)

	if sum, err := r.Checksum(); err == nil {
		fmt.Fprintf(w, "Checksum: %08x\n", sum)
	} else {
		fmt.Fprintf(w, "Checksum: none\n")
	}
	if n, err := r.NumPackets(); err == nil {
		fmt.Fprintf(w, "Packets: %d (indexed)\n", n)
	} else {
		fmt.Fprintf(w, "Packets: no index\n")
	}
}

// firstGPS is the clock of the first packet that holds an array event. It
// leaves the reader rewound.
func firstGPS(r *reader.Reader) (record.GPSTime, bool) {
	defer r.ResetSequentialRead()
	for {
		p, err := r.ReadNextPacket()
		if err != nil {
			return record.GPSTime{}, false
		}
		if b, ok := p.Get(record.ARRAY_EVENT_BANK); ok {
			if ae, ok := b.(*record.ArrayEvent); ok {
				return ae.GPS()
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}
