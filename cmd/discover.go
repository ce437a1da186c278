package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Riboost-Studio/kiosk-print-agent/internal/services"
)

var discoverPort int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Scan the local network for raw TCP printers",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

func init() {
	discoverCmd.Flags().IntVarP(&discoverPort, "port", "p", services.RawPrintPort, "Port to probe")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanning network for printers on port %d...\n", discoverPort)

	found, err := services.DiscoverPrinters(cmd.Context(), discoverPort)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		fmt.Fprintln(out, color.YellowString("No printers found."))
		return nil
	}
	for _, ip := range found {
		fmt.Fprintf(out, "%s %s:%d\n", color.GreenString("Found printer at"), ip, discoverPort)
	}
	fmt.Fprintf(out, "Set printer.transport=network and printer.address=<ip>:%d to use one.\n", discoverPort)
	return nil
}
