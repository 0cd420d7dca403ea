/*
Copyright © 2022 Morgan Gangwere <morgan.gangwere@gmail.com>
*/
package cmd

import (
	"context"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

var config = defaultConfig()

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vbftool",
	Short: "vbftool inspects, checks and rewrites VBF files",
	Long: `vbftool is a reference tool for VBF files: a header, a run of
packets of telescope data, and an optional footer with an index and
checksum.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("config")
		loaded, err := loadConfig(path)
		if err != nil {
			return err
		}
		config = loaded
		config.applyFlags(cmd.Flags())

		level, err := logrus.ParseLevel(config.LogLevel)
		if err != nil {
			return err
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = logrus.DebugLevel
		}
		logrus.SetLevel(level)
		logrus.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		os.Exit(1)
	}
}

var docsCmd = &cobra.Command{
	Use:    "docs <dir>",
	Short:  "Write markdown documentation for every command",
	Args:   cobra.ExactArgs(1),
	Hidden: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return GenDocs(args[0])
	},
}

func GenDocs(dir string) error {
	if err := os.MkdirAll(dir, 0775); err != nil {
		return err
	}
	logrus.WithField("dir", dir).Info("writing docs")
	return doc.GenMarkdownTree(rootCmd, dir)
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Write detailed information to the terminal")
	rootCmd.PersistentFlags().String("config", "", "YAML file with default settings")
	rootCmd.PersistentFlags().Int("ring-size", 0, "Starting ring buffer size in bytes")
	rootCmd.PersistentFlags().Int("ring-limit", 0, "Largest ring buffer a single packet may grow it to")
	rootCmd.PersistentFlags().Bool("map-index", false, "Map the footer index when opening files")
	rootCmd.PersistentFlags().Bool("brotli", false, "Read input files as brotli streams")
	rootCmd.AddCommand(docsCmd)
}
