package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"pixwap/internal/config"
	"pixwap/internal/permit"
	"pixwap/internal/session"
	"pixwap/pkg/imgutil"
)

var listCmd = &cobra.Command{
	Use:          "list <dir>",
	Short:        "List the PNG and WebP images in a directory",
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

		sess := session.New(root, session.Options{
			Gate:     permit.New(nil),
			Collator: cfg.Collator(),
			LogLimit: cfg.LogLimit,
		})
		defer sess.Close()

		spinner, _ := pterm.DefaultSpinner.WithRemoveWhenDone(true).Start("Scanning " + args[0])
		err = sess.Rescan(cmd.Context())
		if spinner != nil {
			_ = spinner.Stop()
		}
		if err != nil {
			return err
		}

		snap := sess.Snapshot()
		if len(snap.Entries) == 0 {
			pterm.Info.Println("No PNG or WebP images found.")
			return nil
		}

		data := pterm.TableData{{"Name", "Type", "Size", "Modified"}}
		for _, e := range snap.Entries {
			data = append(data, []string{
				e.Name,
				imgutil.KindForMIME(e.MIME).String(),
				humanize.Bytes(uint64(e.Size)),
				e.ModTime.Format("2006-01-02 15:04"),
			})
		}
		if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "%d images (%d PNG, %d WebP)\n", len(snap.Entries), snap.PNGCount, snap.WebPCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
