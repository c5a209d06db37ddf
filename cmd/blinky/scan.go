package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blinky/internal/blinky"
	"github.com/srg/blinky/internal/transport/goble"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for Blinky boards",
	Long: `Scan for Bluetooth Low Energy peripherals advertising the LED Button Service.

Each board is listed once, in discovery order, with the name it advertised
and the most recent signal strength. Use --all to list every peripheral.`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanDuration time.Duration
	scanAll      bool
)

func init() {
	scanCmd.Flags().DurationVarP(&scanDuration, "duration", "d", 0, "Scan duration (defaults to scan_timeout)")
	scanCmd.Flags().BoolVarP(&scanAll, "all", "a", false, "List peripherals without the LED Button Service too")
}

func runScan(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if scanDuration < 0 {
		return fmt.Errorf("invalid duration %v: must not be negative", scanDuration)
	}

	// All arguments validated - don't show usage on runtime errors
	cmd.SilenceUsage = true

	duration := cfg.ScanTimeout
	if scanDuration > 0 {
		duration = scanDuration
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	fmt.Fprintf(cmd.OutOrStdout(), "Scanning for %v...\n", duration)
	results, err := scan(ctx, logger, scanAll)
	if err != nil {
		return err
	}
	return displayPeripherals(cmd.OutOrStdout(), results)
}

// scan collects peripherals in discovery order.
func scan(ctx context.Context, logger *logrus.Logger, all bool) (*orderedmap.OrderedMap[blinky.PeripheralID, blinky.Peripheral], error) {
	results := orderedmap.New[blinky.PeripheralID, blinky.Peripheral]()

	scanner := goble.NewScanner(logger)
	scanner.IncludeAll = all
	_, err := scanner.Scan(ctx, func(_ goble.ScanEventType, p blinky.Peripheral) {
		results.Set(p.ID, p)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return nil, err
	}
	return results, nil
}

func displayPeripherals(out io.Writer, results *orderedmap.OrderedMap[blinky.PeripheralID, blinky.Peripheral]) error {
	if results.Len() == 0 {
		fmt.Fprintln(out, "No Blinky boards found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tRSSI\tLED BUTTON SERVICE")
	for pair := results.Oldest(); pair != nil; pair = pair.Next() {
		p := pair.Value
		lbs := "no"
		if p.Info.Advertises(blinky.ServiceUUID) {
			lbs = "yes"
		}
		fmt.Fprintf(w, "%s\t%s\t%d dBm\t%s\n", p.Info.Name, p.ID, p.RSSI, lbs)
	}
	return w.Flush()
}
