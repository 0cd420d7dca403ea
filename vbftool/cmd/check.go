/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"strconv"

	"github.com/indrora/vbf/vbf/format"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check <file> [expected]",
	Short: "Verify the checksum of a VBF file",
	Long: `Recalculate the Adler-32 of the header and body and compare it
with the one recorded in the header, or with the hexadecimal checksum
given as the second argument.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openFile(args[0])
		if err != nil {
			return err
		}
		defer r.Close()

		if len(args) == 2 {
			expected, perr := strconv.ParseUint(args[1], 16, 32)
			if perr != nil {
				return errors.Wrapf(perr, "bad checksum %q", args[1])
			}
			err = r.VerifyExpectedChecksum(uint32(expected))
		} else {
			err = r.VerifyChecksum()
		}

		var mismatch *format.ChecksumError
		if errors.As(err, &mismatch) {
			logrus.WithFields(logrus.Fields{
				"file":       args[0],
				"expected":   fmt.Sprintf("%08x", mismatch.Expected),
				"calculated": fmt.Sprintf("%08x", mismatch.Actual),
			}).Error("checksum mismatch")
			return err
		} else if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: OK\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
