package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/srg/blinky/internal/blinky"
)

// ledCmd represents the led command
var ledCmd = &cobra.Command{
	Use:   "led <address> <on|off>",
	Short: "Switch the LED of a Blinky board",
	Long: `Connect to a Blinky board, switch its LED on or off, wait for the board
to confirm the new state and disconnect.`,
	Args: cobra.ExactArgs(2),
	RunE: runLED,
}

// parseLEDState parses on/off style arguments.
func parseLEDState(arg string) (bool, error) {
	switch strings.ToLower(arg) {
	case "on", "1", "true":
		return true, nil
	case "off", "0", "false":
		return false, nil
	default:
		return false, fmt.Errorf("invalid LED state %q: must be on or off", arg)
	}
}

func runLED(cmd *cobra.Command, args []string) error {
	on, err := parseLEDState(args[1])
	if err != nil {
		return err
	}
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obs := newConsoleObserver(cmd.OutOrStdout())
	ds, err := openSession(ctx, cfg, logger, args[0], obs)
	if err != nil {
		return err
	}
	defer ds.Close()

	return setLED(ctx, ds, on, cfg.OperationTimeout)
}

// setLED writes the LED and waits until the board reports the requested state.
func setLED(ctx context.Context, ds *deviceSession, on bool, timeout time.Duration) error {
	if !ds.observer.ledSupported.Load() {
		return ErrNoLED
	}
	if !ds.observer.ledWritable.Load() {
		return ErrLEDReadOnly
	}

	// drop values reported during discovery
	for drained := false; !drained; {
		select {
		case <-ds.observer.led:
		default:
			drained = true
		}
	}

	if err := ds.Do(ctx, func(s *blinky.Session) { s.WriteLED(blinky.EncodeBool(on)) }); err != nil {
		return err
	}

	deadline := time.After(timeout)
	for {
		select {
		case v := <-ds.observer.led:
			if v == on {
				return nil
			}
		case <-ds.observer.gone:
			return ErrConnectionLost
		case <-deadline:
			return fmt.Errorf("%w: LED did not report %s", blinky.ErrTimeout, ledWord(on))
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func ledWord(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
