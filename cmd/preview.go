package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/utils"
)

var previewWidth int

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Show how a ticket markup file will be rendered",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func init() {
	previewCmd.Flags().IntVarP(&previewWidth, "width", "w", 0, "Paper width in columns (default: printer profile)")
	rootCmd.AddCommand(previewCmd)
}

func runPreview(cmd *cobra.Command, args []string) error {
	cfg, _, err := mustConfig(cmd)
	if err != nil {
		return err
	}

	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	width := previewWidth
	if width <= 0 {
		width = cfg.Printer.Width
	}
	if width <= 0 {
		profile, _ := utils.LookupProfile(cfg.Printer.Profile)
		width = profile.Columns
	}

	out := cmd.OutOrStdout()
	ruler := color.HiBlackString(strings.Repeat("=", width))
	fmt.Fprintln(out, ruler)
	fmt.Fprint(out, highlight(utils.Visualize(utils.Render(string(markup), width))))
	fmt.Fprintln(out)
	fmt.Fprintln(out, ruler)
	return nil
}

var tokenColor = color.New(color.FgCyan, color.Bold).SprintFunc()

func highlight(visual string) string {
	for _, tok := range []string{"<C>", "</C>", "<D>", "</D>", "<B>", "</B>", "<U>", "</U>", "<INIT>", "<CUT>"} {
		visual = strings.ReplaceAll(visual, tok, tokenColor(tok))
	}
	return visual
}
