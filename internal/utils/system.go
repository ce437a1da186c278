package utils

import (
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// --------------------------------------
// CHROME CHECK
// --------------------------------------

// FindChrome returns the path of a usable Chrome/Chromium binary. An explicit
// path wins when it exists.
func FindChrome(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("configured chrome path %s: %w", explicit, err)
		}
		return explicit, nil
	}

	binaries := []string{
		"google-chrome",
		"google-chrome-stable",
		"chromium",
		"chromium-browser",
	}
	for _, bin := range binaries {
		if path, err := exec.LookPath(bin); err == nil {
			return path, nil
		}
	}

	for _, path := range commonChromePaths(runtime.GOOS) {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	return "", fmt.Errorf("chrome/chromium is required for the page bridge but was not found; %s", chromeInstallHint(runtime.GOOS))
}

func commonChromePaths(goos string) []string {
	switch goos {
	case "darwin":
		return []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
		}
	case "linux":
		return []string{
			"/usr/bin/google-chrome",
			"/usr/bin/google-chrome-stable",
			"/usr/bin/chromium",
			"/usr/bin/chromium-browser",
			"/snap/bin/chromium",
		}
	case "windows":
		return []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files\Chromium\Application\chromium.exe`,
		}
	default:
		return nil
	}
}

// ChromeVersion asks the binary for its version string.
func ChromeVersion(path string) string {
	output, err := exec.Command(path, "--version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(output))
}

func chromeInstallHint(goos string) string {
	switch goos {
	case "linux":
		return "install it with your package manager (e.g. apt install chromium-browser)"
	case "darwin":
		return "install it with: brew install --cask google-chrome"
	case "windows":
		return "download it from https://www.google.com/chrome/"
	default:
		return "install Chrome or Chromium for your OS"
	}
}
