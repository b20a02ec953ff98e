package foc

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"tracekit/internal/logging"
)

// viewerCommand returns the command that opens path in the desktop's default
// image viewer on goos.
func viewerCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}

// Show opens the image at path with the platform viewer and returns once the
// viewer has been launched.
func Show(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name, args := viewerCommand(runtime.GOOS, path)
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("no image viewer available: %w", err)
	}
	// Not tied to ctx: the viewer outlives this process.
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch %s: %w", name, err)
	}
	logging.Plot("opened %s with %s", path, name)
	go func() { _ = cmd.Wait() }()
	return nil
}
