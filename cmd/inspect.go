package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pixwap/internal/config"
	"pixwap/internal/meta"
	"pixwap/internal/permit"
	"pixwap/internal/scan"
	"pixwap/internal/session"
	"pixwap/internal/tui"
	"pixwap/pkg/imgutil"
)

var inspectCmd = &cobra.Command{
	Use:          "inspect <dir>",
	Short:        "Report embedded metadata that conversion would not carry over",
	Long:         "Conversion re-encodes pixels only. inspect lists the EXIF fields, PNG text chunks and timestamps that would be absent from converted copies.",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd)
		if err != nil {
			return err
		}
		root, err := openDir(args[0])
		if err != nil {
			return err
		}
		defer root.Close()

		gate := permit.New(nil)
		if !gate.Ensure(root, permit.Read) {
			return session.ErrReadDenied
		}

		spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Scanning " + args[0])
		entries, err := scan.Scan(root, cfg.Collator())
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			pterm.Info.Println("No PNG or WebP images found.")
			return nil
		}

		for i, e := range entries {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			fmt.Fprintf(os.Stdout, "%s\n", inspectFileStyle.Render(e.Name))

			details, err := probeEntry(root, e)
			if err != nil {
				fmt.Fprintf(os.Stdout, "  %s %s\n",
					inspectBulletStyle.Render("-"),
					inspectWarnStyle.Render("unreadable: "+err.Error()),
				)
				continue
			}
			if details.Empty() {
				fmt.Fprintf(os.Stdout, "  %s %s\n",
					inspectBulletStyle.Render("-"),
					inspectDimStyle.Render("none"),
				)
				continue
			}
			for _, cat := range details.Categories() {
				fmt.Fprintf(os.Stdout, "  %s %s\n",
					inspectBulletStyle.Render("-"),
					inspectValueStyle.Render(cat),
				)
			}
			if len(details.TextKeys) > 0 {
				fmt.Fprintf(os.Stdout, "    %s\n",
					inspectDimStyle.Render("keys: "+strings.Join(details.TextKeys, ", ")),
				)
			}
		}

		fmt.Fprintln(os.Stdout)
		fmt.Fprintln(os.Stdout, inspectDimStyle.Render("Converted copies carry none of the above."))
		return nil
	},
}

func probeEntry(root *os.Root, e scan.Entry) (meta.Details, error) {
	f, err := root.Open(e.Name)
	if err != nil {
		return meta.Details{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return meta.Details{}, err
	}
	return meta.Probe(data, imgutil.KindForMIME(e.MIME))
}

var (
	inspectFileStyle   = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	inspectValueStyle  = lipgloss.NewStyle().Foreground(tui.ColorInk)
	inspectDimStyle    = lipgloss.NewStyle().Foreground(tui.ColorDim)
	inspectWarnStyle   = lipgloss.NewStyle().Foreground(tui.ColorWarn)
	inspectBulletStyle = lipgloss.NewStyle().Foreground(tui.ColorDim)
)

func init() {
	rootCmd.AddCommand(inspectCmd)
}
