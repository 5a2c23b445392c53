package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pixwap/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "pixwap",
	Short:         "pixwap - convert PNG and WebP images in place",
	Long:          "pixwap scans a directory for PNG and WebP images and converts between the two formats, writing siblings next to the originals.",
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})
	config.InitFlags(rootCmd)
}

// openDir resolves dir into a rooted handle. Every file operation after
// this goes through the handle, so the session cannot escape the chosen
// directory.
func openDir(dir string) (*os.Root, error) {
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}
	return root, nil
}
