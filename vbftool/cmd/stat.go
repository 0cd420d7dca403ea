/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/pkg/xattr"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// statCmd represents the stat command
var statCmd = &cobra.Command{
	Use:   "stat <file>",
	Short: "Dump file system information and extended attributes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stat, err := os.Stat(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		spew.Fdump(out, stat)
		listXattrs(out, args[0])
		return nil
	},
}

func listXattrs(out io.Writer, file string) {
	fh, err := os.Open(file)
	if err != nil {
		return
	}
	defer fh.Close()
	attrs, err := xattr.FList(fh)
	if err != nil {
		logrus.WithField("file", file).WithError(err).Debug("no extended attributes")
		return
	}
	for _, attrname := range attrs {
		value, err := xattr.FGet(fh, attrname)
		if err != nil {
			fmt.Fprintln(out, attrname, "= ? (couldn't list:", err, ")")
		} else {
			fmt.Fprintln(out, attrname, "=", string(value))
		}
	}
}

func init() {
	rootCmd.AddCommand(statCmd)
}
