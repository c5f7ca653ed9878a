// Package capture grabs screenshots into the processing queue. It
// mirrors the companion screen grabber: one timestamped PNG per
// capture, screen selection from config.ini, with optional
// auto-detection of the monitor the game runs on.
package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/kbinani/screenshot"
	"gopkg.in/ini.v1"
)

// QueueDir is the default queue location, relative to the working
// directory.
const QueueDir = "data/queue"

// timeFormat names queued screenshots by capture time.
const timeFormat = "2006-01-02-15-04-05"

// QueuePath returns the queue file path for a capture taken at t.
func QueuePath(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format(timeFormat)+".png")
}

// ScreenID reads the screen index from the [screenshot] section of the
// config file. A missing file or key defaults to screen 0. The special
// value -1 requests auto-detection from the game's own config.
func ScreenID(cfgPath string) int {
	file, err := ini.Load(cfgPath)
	if err != nil {
		return 0
	}
	return file.Section("screenshot").Key("screen").MustInt(0)
}

// GameConfigPath returns the game's production_Config.ini location
// under the user's documents directory.
func GameConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Documents", "My Games", "Path of Exile", "production_Config.ini"), nil
}

// MonitorFromGameConfig parses the monitor index out of the game's
// config, which records the display adapter as e.g.
//
//	adapter_name=AMD Radeon RX 5700 XT(#0)
func MonitorFromGameConfig(path string) (int, bool) {
	file, err := ini.Load(path)
	if err != nil {
		return 0, false
	}

	adapter := file.Section("DISPLAY").Key("adapter_name").MustString("(#0)")

	start := strings.LastIndex(adapter, "(#")
	end := strings.LastIndex(adapter, ")")
	if start < 0 || end <= start+2 {
		return 0, false
	}

	n, err := strconv.Atoi(adapter[start+2 : end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ResolveScreenID turns the configured screen index into a concrete
// one, auto-detecting from the game config when the index is -1.
func ResolveScreenID(cfgPath string) int {
	id := ScreenID(cfgPath)
	if id != -1 {
		return id
	}

	gameCfg, err := GameConfigPath()
	if err != nil {
		return 0
	}
	if n, ok := MonitorFromGameConfig(gameCfg); ok {
		return n
	}
	return 0
}

// Grab captures the given display.
func Grab(screenID int) (*image.RGBA, error) {
	n := screenshot.NumActiveDisplays()
	if screenID < 0 || screenID >= n {
		return nil, fmt.Errorf("cannot use screen %d, only %d screen(s) available", screenID, n)
	}

	img, err := screenshot.CaptureRect(screenshot.GetDisplayBounds(screenID))
	if err != nil {
		return nil, fmt.Errorf("failed to capture screen %d: %w", screenID, err)
	}
	return img, nil
}

// GrabToQueue captures a display and saves it as a timestamped PNG in
// the queue directory, returning the saved path.
func GrabToQueue(dir string, screenID int) (string, error) {
	img, err := Grab(screenID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create queue directory: %w", err)
	}

	path := QueuePath(dir, time.Now())
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create screenshot file: %w", err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		return "", fmt.Errorf("failed to encode screenshot: %w", err)
	}

	return path, f.Close()
}
