package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/itohio/cxmidi/pkg/link"
)

var outPortName string

var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Forward the stream to a MIDI output port",
	Long:  `Opens a virtual MIDI output port (or an existing port of the same name where virtual ports are unsupported) and forwards every message from the interface to it.`,
	Args:  cobra.NoArgs,
	RunE:  runBridge,
}

func init() {
	bridgeCmd.Flags().StringVar(&outPortName, "out", "", "MIDI output port name (default from config)")
	bridgeCmd.Flags().BoolVar(&useMock, "mock", false, "Use a simulated keyboard")
}

func runBridge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if outPortName != "" {
		cfg.MIDI.OutPort = outPortName
	}

	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("failed to open MIDI driver: %w", err)
	}
	defer drv.Close()

	out, err := openOut(drv, cfg.MIDI.OutPort)
	if err != nil {
		return err
	}
	defer out.Close()
	log.WithField("out", out.String()).Info("bridge started")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	return stream(ctx, openDevice(cfg, useMock), func(ev link.Event) error {
		if err := out.Send(ev.Message.Bytes()); err != nil {
			log.WithError(err).WithField("msg", ev.Message.String()).Warn("send failed")
		}
		return nil
	})
}

func openOut(drv *rtmididrv.Driver, name string) (drivers.Out, error) {
	out, err := drv.OpenVirtualOut(name)
	if err == nil {
		return out, nil
	}
	log.WithError(err).Debug("virtual ports unavailable, looking for an existing port")

	outs, err := drv.Outs()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI outputs: %w", err)
	}
	for _, o := range outs {
		if o.String() == name {
			if err := o.Open(); err != nil {
				return nil, fmt.Errorf("open %q: %w", name, err)
			}
			return o, nil
		}
	}
	return nil, fmt.Errorf("output %q not found", name)
}
