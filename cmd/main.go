package main

import "os"

const (
	appName    = "kiosk-print-agent"
	appVersion = "1.0.0"
)

// --- Main ---

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
