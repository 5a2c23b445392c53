package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pixwap/internal/config"
	"pixwap/internal/permit"
	"pixwap/internal/raster"
	"pixwap/internal/session"
	"pixwap/internal/tui"
	"pixwap/internal/watch"
)

var browseCmd = &cobra.Command{
	Use:          "browse <dir>",
	Short:        "Browse a directory and convert images interactively",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isatty.IsTerminal(os.Stdout.Fd()) || !isatty.IsTerminal(os.Stdin.Fd()) {
			return fmt.Errorf("browse needs a terminal")
		}

		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		root, err := openDir(args[0])
		if err != nil {
			return err
		}

		// Consent is collected before the alternate screen comes up;
		// the TUI has no prompt surface. Declining leaves the session
		// read-only and conversion attempts report the denial.
		gate := permit.New(func(dir string, _ permit.Mode) bool {
			ok, err := pterm.DefaultInteractiveConfirm.
				WithDefaultValue(true).
				Show(fmt.Sprintf("Write converted files into %s?", dir))
			if err != nil {
				return false
			}
			return ok
		})
		if !gate.Ensure(root, permit.ReadWrite) {
			pterm.Warning.Println("Write access declined; conversions will be refused this session.")
		}

		var changes <-chan watch.Change
		watcher, err := watch.New(args[0])
		if err == nil {
			defer watcher.Close()
			changes = watcher.Changes()
		}

		updates := make(chan session.Event, 64)
		sess := session.New(root, session.Options{
			Gate:       gate,
			Rasterizer: raster.Select(cfg.Raster),
			Collator:   cfg.Collator(),
			LogLimit:   cfg.LogLimit,
			Updates:    updates,
		})
		defer sess.Close()

		program := tea.NewProgram(tui.NewBrowse(sess, updates, changes), tea.WithAltScreen())
		_, err = program.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
