// Package spinning handles the terminal lifecycle of the command-line programs: graceful
// interruption, and a spinner shown during long operations (saving, exporting).
package spinning

import (
	"context"
	"fmt"
	"io"
	"k8s.io/klog/v2"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Spinner shows a rotating symbol until Done is called.
type Spinner struct {
	wg     sync.WaitGroup
	cancel func()
}

var (
	ThemeAscii = []rune("|/-\\")
	ThemeDots  = []rune("⠋⠙⠹⠸⠼⠴⠦⠧⠇⠏")

	// Theme used by New.
	Theme = ThemeAscii
)

// SafeInterrupt returns a context cancelled on the first SIGINT (Ctrl+C) or SIGTERM.
// If the program hasn't exited gracePeriod after the signal, the terminal is reset and the
// program exits.
func SafeInterrupt(ctx context.Context, gracePeriod time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigChan:
			fmt.Println()
			klog.Errorf("Got interrupted (signal %q), shutting down... (%s)", s, gracePeriod)
			cancel()
		case <-ctx.Done():
			signal.Stop(sigChan)
			return
		}
		time.Sleep(gracePeriod)
		Reset(os.Stdout)
		klog.Fatalf("Graceful shutting down %s period expired, exiting.", gracePeriod)
	}()
	return ctx, cancel
}

// Reset terminal: make cursor visible, restore default terminal colors.
func Reset(w io.Writer) {
	_, _ = fmt.Fprint(w, "\033[?25h\033[39;49;0m\n")
}

// New starts a spinner on w, in a separate goroutine, preceded by msg.
// It stops when ctx is done or Spinner.Done is called.
func New(ctx context.Context, w io.Writer, msg string) *Spinner {
	s := &Spinner{}
	ctx, s.cancel = context.WithCancel(ctx)
	theme := Theme
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(250 * time.Millisecond)
		defer ticker.Stop()
		_, _ = fmt.Fprintf(w, "\033[?25l%s  ", msg) // Hide cursor.
		defer fmt.Fprint(w, "\033[?25h\n")        // Restore cursor.
		for idx := 0; ; idx = (idx + 1) % len(theme) {
			_, _ = fmt.Fprintf(w, "\b%c", theme[idx])
			select {
			case <-ctx.Done():
				_, _ = fmt.Fprint(w, "\b ")
				return
			case <-ticker.C:
			}
		}
	}()
	return s
}

// Done stops the spinner and waits for it to clean up.
func (s *Spinner) Done() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
}
