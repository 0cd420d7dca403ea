/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/indrora/vbf/vbf/format"
	"github.com/indrora/vbf/vbf/ioutil"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// followCmd represents the follow command
var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "Decode packets from standard input as they arrive",
	Long: `Read an uncompressed VBF file from standard input while it is being
written, for example through "tail -c +1 -f run.vbf", and print the
banks of each packet as soon as it is complete. Stops at the end of
input or on SIGINT.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		in, err := ioutil.NewInterruptibleInput(os.Stdin, config.RingSize)
		if err != nil {
			return err
		}
		defer in.Close()
		if config.RingLimit > 0 {
			in.SetLimit(config.RingLimit)
		}
		return follow(ctx, in, cmd.OutOrStdout())
	},
}

// follow prints packets from in until it ends or the wait is interrupted.
func follow(ctx context.Context, in *ioutil.InterruptibleInput, out io.Writer) error {
	if err := in.WaitForBytes(ctx, format.HEADER_SIZE); err != nil {
		return followStopped(err)
	}
	raw := make([]byte, format.HEADER_SIZE)
	if err := in.ReadRaw(raw); err != nil {
		return err
	}
	header, err := format.ParseHeader(raw)
	if err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{
		"run":        header.RunNumber,
		"telescopes": header.ConfigMask.String(),
	}).Info("following")

	// a finished file stops before its footer
	left := int64(-1)
	if header.PreFooterSize >= format.HEADER_SIZE {
		left = int64(header.PreFooterSize - format.HEADER_SIZE)
	}

	reg := rawRegistry()
	magic := make([]byte, len(format.PACKET_MAGIC_BYTES))
	for i := int64(0); left != 0; i++ {
		if err := in.WaitForBytes(ctx, len(magic)); err != nil {
			return followStopped(err)
		}
		if err := in.ReadRaw(magic); err != nil {
			return err
		}
		if !bytes.Equal(magic, format.PACKET_MAGIC_BYTES) {
			return errors.Wrapf(format.ErrBadMagic, "packet %d starts with %q", i, magic)
		}
		if err := in.WaitForPacket(ctx); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return followStopped(err)
		}
		if err := in.BeginPacket(); err != nil {
			return err
		}
		body := make([]byte, in.PacketLength())
		if err := in.ReadBytes(body); err != nil {
			return err
		}
		if err := in.EndPacket(); err != nil {
			return err
		}
		if left > 0 {
			left -= format.PACKET_HEADER_SIZE + int64(len(body))
		}

		p, err := format.ParsePacket(body, reg, header.RunNumber, i)
		if err != nil {
			logrus.WithField("packet", i).WithError(err).Warn("failed to decode packet")
			continue
		}
		var banks []string
		for _, name := range p.Names() {
			b, _ := p.Get(name)
			banks = append(banks, fmt.Sprintf("%s/%d", name, b.Version()))
		}
		fmt.Fprintf(out, "%d: %s\n", i, strings.Join(banks, " "))
	}
	return nil
}

func followStopped(err error) error {
	switch {
	case err == io.EOF:
		return nil
	case errors.Is(err, ioutil.ErrInterrupted):
		logrus.Info("interrupted")
		return nil
	}
	return err
}

func init() {
	rootCmd.AddCommand(followCmd)
}
