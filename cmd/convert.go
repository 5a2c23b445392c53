package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pixwap/internal/config"
	"pixwap/internal/permit"
	"pixwap/internal/raster"
	"pixwap/internal/session"
	"pixwap/internal/tui"
	"pixwap/pkg/imgutil"
)

var convertYes bool

var convertCmd = &cobra.Command{
	Use:          "convert <dir> <png-to-webp|webp-to-png>",
	Short:        "Convert every matching image in a directory",
	Long:         "Converted files are written next to their sources with the swapped extension, overwriting any previous converted copy. Sources are never modified.",
	Args:         cobra.ExactArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		direction, err := session.ParseDirection(args[1])
		if err != nil {
			return err
		}
		root, err := openDir(args[0])
		if err != nil {
			return err
		}

		gate := permit.New(writeRequester())
		updates := make(chan session.Event, 64)
		sess := session.New(root, session.Options{
			Gate:       gate,
			Rasterizer: raster.Select(cfg.Raster),
			Collator:   cfg.Collator(),
			LogLimit:   cfg.LogLimit,
			Updates:    updates,
		})
		defer sess.Close()

		if err := sess.Rescan(cmd.Context()); err != nil {
			return err
		}

		snap := sess.Snapshot()
		total := 0
		for _, e := range snap.Entries {
			if imgutil.HasSuffixFold(e.Name, direction.SourceSuffix) {
				total++
			}
		}
		if total == 0 {
			fmt.Fprintf(os.Stdout, "No %s files to convert.\n", direction.SourceSuffix)
			return nil
		}

		// Consent happens here, before the progress UI takes over the
		// terminal. The grant is sticky, so the batch's own gate check
		// passes without prompting again.
		if !gate.Ensure(root, permit.ReadWrite) {
			return session.ErrWriteDenied
		}

		uiDone := make(chan struct{})
		if isatty.IsTerminal(os.Stdout.Fd()) {
			program := tea.NewProgram(tui.NewProgress(updates, total))
			go func() {
				_, _ = program.Run()
				close(uiDone)
			}()
		} else {
			go func() {
				drainPlain(updates)
				close(uiDone)
			}()
		}

		sum, err := sess.Convert(cmd.Context(), direction)
		close(updates)
		<-uiDone
		if err != nil {
			return err
		}

		rows := []tui.SummaryRow{
			{Label: "Direction", Value: direction.Label},
			{Label: "Matched", Value: fmt.Sprintf("%d", sum.Matched)},
			{Label: "Converted", Value: fmt.Sprintf("%d", sum.Converted)},
			{Label: "Failed", Value: fmt.Sprintf("%d", sum.Failed), Warn: sum.Failed > 0},
			{Label: "Bytes written", Value: humanize.Bytes(uint64(sum.BytesOut))},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))

		if sum.Failed > 0 {
			return fmt.Errorf("%d file(s) failed", sum.Failed)
		}
		return nil
	},
}

// writeRequester builds the consent prompt for write access. --yes and
// non-interactive runs never prompt: the former grants, the latter
// refuses with a hint.
func writeRequester() permit.RequestFunc {
	if convertYes {
		return func(string, permit.Mode) bool { return true }
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return func(dir string, _ permit.Mode) bool {
			fmt.Fprintf(os.Stderr, "refusing to write into %s without a terminal; pass --yes to grant\n", dir)
			return false
		}
	}
	return func(dir string, _ permit.Mode) bool {
		ok, err := pterm.DefaultInteractiveConfirm.
			WithDefaultValue(false).
			Show(fmt.Sprintf("Write converted files into %s?", dir))
		if err != nil {
			return false
		}
		return ok
	}
}

// drainPlain prints conversion outcomes without the TUI, one line per
// file plus the closing status.
func drainPlain(updates <-chan session.Event) {
	for ev := range updates {
		switch ev.Kind {
		case session.EventLog:
			if ev.Entry == nil {
				continue
			}
			if ev.Entry.OK {
				fmt.Fprintf(os.Stdout, "ok   %s -> %s (%s)\n", ev.Entry.Source, ev.Entry.Derived, ev.Entry.Detail)
			} else {
				fmt.Fprintf(os.Stdout, "fail %s (%s)\n", ev.Entry.Source, ev.Entry.Detail)
			}
		case session.EventBatchDone:
			fmt.Fprintln(os.Stdout, ev.Status)
		}
	}
}

func init() {
	convertCmd.Flags().BoolVarP(&convertYes, "yes", "y", false, "grant write access without prompting")

	rootCmd.AddCommand(convertCmd)
}
