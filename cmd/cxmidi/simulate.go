package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/cxmidi/pkg/link"
	"github.com/itohio/cxmidi/pkg/scan"
)

var (
	simTranspose int
	simSeed      uint64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the decoder against a simulated scan chip",
	Long:  `Plays scripted key presses through the scan chip simulator and the decoder, printing the produced messages and the decoder counters.`,
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simTranspose, "transpose", 0, "Transpose in semitones (overrides config)")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "Random seed for the key script (overrides config)")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("transpose") {
		t, err := transposeFlag(simTranspose)
		if err != nil {
			return err
		}
		cfg.Decoder.Transpose = t
	}
	if cmd.Flags().Changed("seed") {
		cfg.Mock.Seed = simSeed
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	mock := link.NewMock(cfg)
	out := cmd.OutOrStdout()
	start := time.Now()

	err = stream(ctx, mock, func(ev link.Event) error {
		fmt.Fprintf(out, "%10.3f  % X  %s\n", ev.Timestamp.Sub(start).Seconds(), ev.Message.Bytes(), ev.Message.String())
		return nil
	})
	if err != nil {
		return err
	}

	st := mock.Stats()
	fmt.Fprintf(out, "frames=%d edges=%d transitions=%d sent=%d dropped=%d sync_timeouts=%d tx_errors=%d\n",
		st.Frames, st.Edges, st.Transitions, st.Sent, st.Dropped, st.SyncTimeouts, st.TxErrors)
	return nil
}

// transposeFlag range checks the flag before it is narrowed to int8.
func transposeFlag(v int) (int8, error) {
	if v < scan.MinTranspose || v > scan.MaxTranspose {
		return 0, fmt.Errorf("transpose %d out of range [%d, %d]", v, scan.MinTranspose, scan.MaxTranspose)
	}
	return int8(v), nil
}
