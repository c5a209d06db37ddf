package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/srg/blinky/internal/blinky"
	"golang.org/x/term"
)

// connectCmd represents the connect command
var connectCmd = &cobra.Command{
	Use:   "connect <address>",
	Short: "Connect to a Blinky board and drive it interactively",
	Long: `Connect to a Blinky board, print button presses and LED changes as they
happen, and read commands from standard input:

  on      switch the LED on
  off     switch the LED off
  toggle  invert the LED
  read    read LED and button
  status  print the session state
  quit    disconnect and exit`,
	Args: cobra.ExactArgs(1),
	RunE: runConnect,
}

func runConnect(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	obs := newConsoleObserver(out)
	ds, err := openSession(ctx, cfg, logger, args[0], obs)
	if err != nil {
		return err
	}
	defer ds.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))
	return runCommands(ctx, cmd.InOrStdin(), out, ds, interactive)
}

// runCommands executes stdin commands until quit, EOF, disconnection or ctx is done.
func runCommands(ctx context.Context, in io.Reader, out io.Writer, ds *deviceSession, prompt bool) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		if prompt {
			fmt.Fprint(out, "> ")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ds.observer.gone:
			return ErrConnectionLost
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := execCommand(ctx, out, ds, strings.TrimSpace(line))
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

// execCommand runs one command line. It reports whether the session should end.
func execCommand(ctx context.Context, out io.Writer, ds *deviceSession, line string) (bool, error) {
	cmd := strings.ToLower(line)
	switch cmd {
	case "":
		return false, nil
	case "quit", "exit", "q":
		return true, nil
	case "status":
		return false, ds.Do(ctx, func(s *blinky.Session) {
			fmt.Fprintf(out, "State: %s\n", s.State())
			if on, known := s.LEDState(); known {
				fmt.Fprintf(out, "LED: %s\n", ledLabel(on))
			}
			if pressed, known := s.ButtonState(); known {
				fmt.Fprintf(out, "Button pressed: %t\n", pressed)
			}
		})
	case "read":
		return false, ds.Do(ctx, func(s *blinky.Session) {
			s.ReadButton()
			s.ReadLED()
		})
	case "on", "off", "toggle":
		if !ds.observer.ledSupported.Load() {
			warnColor.Fprintln(out, "LED is not supported by this device")
			return false, nil
		}
		if !ds.observer.ledWritable.Load() {
			warnColor.Fprintln(out, "LED is read-only on this device")
			return false, nil
		}
		return false, ds.Do(ctx, func(s *blinky.Session) {
			switch cmd {
			case "on":
				s.TurnOnLED()
			case "off":
				s.TurnOffLED()
			default:
				on, _ := s.LEDState()
				s.WriteLED(blinky.EncodeBool(!on))
			}
		})
	default:
		warnColor.Fprintf(out, "Unknown command %q (on, off, toggle, read, status, quit)\n", line)
		return false, nil
	}
}
