// Command cxmidi works with the MIDI stream of the organ interface: it lists
// serial ports, dumps and records the stream, bridges it to a virtual MIDI
// port and runs a simulated keyboard.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/cxmidi/pkg/config"
	"github.com/itohio/cxmidi/pkg/link"
)

var (
	configFile string
	portName   string
	debug      bool
	useMock    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cxmidi",
	Short: "Host tools for the organ scan chip MIDI interface",
	Long: `cxmidi talks to the organ MIDI interface over its serial port.

Examples:
  cxmidi ports
  cxmidi dump -p /dev/ttyUSB0
  cxmidi dump --record capture.mid
  cxmidi bridge --out "Organ"
  cxmidi simulate --transpose 12`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
		if debug {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&portName, "port", "p", "", "Serial port override")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(portsCmd, dumpCmd, bridgeCmd, simulateCmd)
}

// loadConfig reads the config file and applies command line overrides. A
// missing file yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if portName != "" {
		cfg.Serial.Port = portName
	}
	return cfg, nil
}

func openDevice(cfg *config.Config, mock bool) link.Device {
	if mock {
		return link.NewMock(cfg)
	}
	return link.New(cfg.Serial.Port, cfg.Serial.BaudRate, link.DefaultBufferSize)
}

// signalContext is cancelled on interrupt.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// stream connects dev and hands every event to fn until ctx is cancelled or
// the device stops.
func stream(ctx context.Context, dev link.Device, fn func(link.Event) error) error {
	if err := dev.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer func() {
		if err := dev.Close(); err != nil {
			log.WithError(err).Warn("closing device")
		}
	}()

	events := dev.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := fn(ev); err != nil {
				return err
			}
		}
	}
}
