/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"os"

	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// packCmd represents the pack command
var packCmd = &cobra.Command{
	Use:   "pack <in> <out>",
	Short: "Wrap a VBF file in a stream codec",
	Long: `Compress a whole VBF file with gzip, zstd or brotli. The result can
be read sequentially by every command; brotli files need --brotli on
the reading side because brotli has no magic number.`,
	Args:    cobra.ExactArgs(2),
	Example: "vbftool pack --codec zstd run.vbf run.vbf.zst",
	RunE: func(cmd *cobra.Command, args []string) error {
		compressor, err := ioutil.CompressorByName(config.Codec)
		if err != nil {
			return err
		}
		in, err := os.Open(args[0])
		if err != nil {
			return errors.Wrapf(err, "failed to open %s", args[0])
		}
		defer in.Close()
		out, err := os.Create(args[1])
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", args[1])
		}

		n, err := compressor.Copy(out, in)
		if err != nil {
			out.Close()
			return errors.Wrapf(err, "failed to compress %s", args[0])
		}
		logrus.WithFields(logrus.Fields{
			"file":  args[0],
			"codec": config.Codec,
			"bytes": n,
		}).Debug("packed")
		return out.Close()
	},
}

func init() {
	rootCmd.AddCommand(packCmd)
	packCmd.Flags().String("codec", "gzip", "gzip, zstd, brotli or none")
}
