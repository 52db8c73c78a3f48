// Command x708-power supervises a Geekworm X708 UPS board: it watches
// the mains-power and button GPIO lines, polls the battery fuel gauge
// over I2C, and shuts the Pi down safely when the battery runs out.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sweeney/x708-power/internal/battery"
	"github.com/sweeney/x708-power/internal/gpio"
	"github.com/sweeney/x708-power/internal/power"
)

// The Pi exposes the board's fuel gauge on /dev/i2c-1.
const i2cBusName = "1"

// version is stamped by the build with -ldflags "-X main.version=...".
var version = "dev"

var logLevel = "info"

func main() {
	if err := newCommand().Execute(); err != nil {
		logrus.Fatalf("fatal: %v", err)
	}
}

func newCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "x708-power",
		Short:         "Safe-shutdown daemon for the Geekworm X708 UPS board",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			if err := setupLogger(); err != nil {
				return err
			}
			return run()
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", logLevel, "Log level (debug, info, warn, error)")
	return cmd
}

func setupLogger() error {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})
	return nil
}

// run acquires the hardware, wires the monitors into the controller,
// and drives the evaluation loop until termination. Any hardware setup
// failure aborts before the loop starts; the deferred releases run on
// every exit path.
func run() error {
	lines, err := gpio.NewRealLines()
	if err != nil {
		return fmt.Errorf("init gpio: %w", err)
	}
	defer lines.Close()

	// Boot-OK heartbeat: the board's MCU cuts 5V power if this line
	// never goes high after boot.
	if err := lines.Setup(gpio.PinBootOK, true); err != nil {
		return fmt.Errorf("assert boot-ok pin: %w", err)
	}

	bus, err := battery.NewI2CReader(i2cBusName, battery.DeviceAddr)
	if err != nil {
		return fmt.Errorf("open i2c bus: %w", err)
	}
	defer bus.Close()

	ctrl := power.NewController(battery.NewGauge(bus), lines, power.ExecSystem{})

	monitor := power.NewPowerLossMonitor(lines, gpio.PinPowerLost, ctrl.OnPowerLossChange)
	if err := monitor.Start(); err != nil {
		return fmt.Errorf("start power-loss monitor: %w", err)
	}
	defer monitor.Close()

	button := power.NewButtonPressClassifier(lines, gpio.PinButton, power.ClassifyTimeout, ctrl.OnButtonPress)
	if err := button.Start(); err != nil {
		return fmt.Errorf("start button classifier: %w", err)
	}
	defer button.Close()

	ticker := time.NewTicker(power.PollInterval)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	logrus.Infof("x708-power %s started", version)
	ctrl.Run(ticker.C, sigCh)
	return nil
}
