/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/blake2b"
)

// digestCmd represents the digest command
var digestCmd = &cobra.Command{
	Use:   "digest <file>...",
	Short: "Print the BLAKE2b-512 digest of whole files",
	Long: `Hash every byte of each file, footer included, for archive
manifests. This is independent of the Adler-32 inside the file.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, filename := range args {
			sum, err := digestFile(filename)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%x  %s\n", sum, filename)
		}
		return nil
	},
}

func digestFile(filename string) ([]byte, error) {
	hash, err := blake2b.New512(nil)
	if err != nil {
		return nil, errors.Wrap(err, "Failed to initialize BLAKE2b hash")
	}
	fileh, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fileh.Close()
	if _, err = io.Copy(hash, fileh); err != nil {
		return nil, errors.Wrapf(err, "failed to hash %s", filename)
	}
	return hash.Sum(nil), nil
}

func init() {
	rootCmd.AddCommand(digestCmd)
}
