package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/model"
)

var printCmd = &cobra.Command{
	Use:     "print <file>",
	Short:   "Print a ticket markup file once",
	Example: fmt.Sprintf("  %s print ticket.txt", appName),
	Args:    cobra.ExactArgs(1),
	RunE:    runPrint,
}

func init() {
	rootCmd.AddCommand(printCmd)
}

func runPrint(cmd *cobra.Command, args []string) error {
	cfg, logger, err := mustConfig(cmd)
	if err != nil {
		return err
	}

	markup, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	printer, err := newPrinter(cfg, discardReporter{logger: logger}, logger)
	if err != nil {
		return err
	}
	defer printer.Close()

	job := model.PrintJob{
		Body:   base64.StdEncoding.EncodeToString(markup),
		Source: model.SourceBridge,
	}
	if !printer.Print(cmd.Context(), job) {
		return errors.New("print failed")
	}
	fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("Ticket printed"))
	return nil
}
