/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/indrora/vbf/vbf/reader"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list <file>",
	Short: "List the banks in every packet",
	Long: `Print one line per packet with the name and version of each of its
banks, in the order they are stored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := openFile(args[0], reader.WithRegistry(rawRegistry()))
		if err != nil {
			return err
		}
		defer r.Close()

		out := cmd.OutOrStdout()
		for i := 0; ; i++ {
			p, err := r.ReadNextPacket()
			if err == io.EOF {
				return nil
			} else if err != nil {
				return err
			}
			var banks []string
			for _, name := range p.Names() {
				b, _ := p.Get(name)
				banks = append(banks, fmt.Sprintf("%s/%d", name, b.Version()))
			}
			fmt.Fprintf(out, "%d: %s\n", i, strings.Join(banks, " "))
		}
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
