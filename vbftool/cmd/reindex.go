/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"

	"github.com/indrora/vbf/vbf/reader"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// reindexCmd represents the reindex command
var reindexCmd = &cobra.Command{
	Use:   "reindex <file>",
	Short: "Rebuild the index and checksum of a VBF file",
	Long: `Walk every packet of a file, write a fresh footer and checksum, and
cut off anything after the footer. Use this on files whose writer never
finished.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := reader.Open(args[0], reader.ReadOnly(false))
		if err != nil {
			return err
		}
		defer r.Close()

		sum, err := r.GenerateIndexAndChecksum()
		if err != nil {
			return err
		}
		n, _ := r.NumPackets()
		logrus.WithFields(logrus.Fields{
			"file":    args[0],
			"packets": n,
		}).Debug("reindexed")
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d packets, checksum %08x\n", args[0], n, sum)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}
