package oauth

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
)

// SystemBrowser opens URLs with the platform's default handler.
type SystemBrowser struct{}

func (SystemBrowser) Open(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	_, err := startDetached(cmd)
	return err
}

// startDetached starts cmd and reaps it in the background. The returned
// channel yields the exit result once the process is gone.
func startDetached(cmd *exec.Cmd) (<-chan error, error) {
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return done, nil
}

// PrintBrowser writes the URL for the user to open by hand.
type PrintBrowser struct {
	Out io.Writer
}

func (b PrintBrowser) Open(url string) error {
	_, err := fmt.Fprintf(b.Out, "Open this URL to sign in:\n  %s\n", url)
	return err
}
