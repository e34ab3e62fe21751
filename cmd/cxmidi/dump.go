package main

import (
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/itohio/cxmidi/pkg/keys"
	"github.com/itohio/cxmidi/pkg/link"
	"github.com/itohio/cxmidi/pkg/record"
)

var recordFile string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the MIDI stream",
	Long:  `Prints every message received from the interface until interrupted. With --record the stream is also saved as a Standard MIDI File.`,
	Args:  cobra.NoArgs,
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().StringVar(&recordFile, "record", "", "Save the stream to this .mid file")
	dumpCmd.Flags().BoolVar(&useMock, "mock", false, "Use a simulated keyboard")
}

func runDump(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	var rec *record.Recorder
	if recordFile != "" {
		rec = record.New()
	}
	tracker := keys.New(0)
	out := cmd.OutOrStdout()
	start := time.Now()

	err = stream(ctx, openDevice(cfg, useMock), func(ev link.Event) error {
		tracker.Apply(ev)
		if rec != nil {
			rec.Add(ev)
		}
		printEvent(out, start, ev, tracker.State())
		return nil
	})
	if err != nil {
		return err
	}

	if rec != nil {
		if err := rec.WriteFile(recordFile); err != nil {
			return err
		}
		log.WithField("file", recordFile).WithField("events", rec.Len()).Info("recording saved")
	}
	return nil
}

func printEvent(w io.Writer, start time.Time, ev link.Event, s keys.State) {
	fmt.Fprintf(w, "%10.3f  % X  %-40s held=%d damper=%d\n",
		ev.Timestamp.Sub(start).Seconds(), ev.Message.Bytes(), ev.Message.String(), len(s.HeldNotes()), s.Damper)
}
