package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/edvin/civicwatch/internal/triage"
)

var scoreFlags struct {
	trust    float64
	observed string
	age      time.Duration
	tau      time.Duration
	now      string
}

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Compute the decayed intensity of an observation",
	Long:  "Compute trust * exp(-age/tau) for an observation, given either its\ntimestamp or its age.",
	RunE:  runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.Float64Var(&scoreFlags.trust, "trust", 0, "Trust in [0,1] (required)")
	f.StringVar(&scoreFlags.observed, "observed", "", "Observation timestamp")
	f.DurationVar(&scoreFlags.age, "age", 0, "Observation age, used when --observed is omitted")
	f.DurationVar(&scoreFlags.tau, "tau", triage.DefaultTau, "Decay time constant")
	f.StringVar(&scoreFlags.now, "now", "", "Reference time (default: current time)")

	_ = scoreCmd.MarkFlagRequired("trust")
}

func runScore(cmd *cobra.Command, _ []string) error {
	if scoreFlags.trust < 0 || scoreFlags.trust > 1 {
		return errors.New("--trust must be between 0 and 1")
	}
	if scoreFlags.tau <= 0 {
		return errors.New("--tau must be positive")
	}

	now := time.Now().UTC()
	if scoreFlags.now != "" {
		t, err := triage.ParseTimestamp(scoreFlags.now)
		if err != nil {
			return fmt.Errorf("--now: %w", err)
		}
		now = t
	}

	observed := now.Add(-scoreFlags.age)
	if scoreFlags.observed != "" {
		t, err := triage.ParseTimestamp(scoreFlags.observed)
		if err != nil {
			return fmt.Errorf("--observed: %w", err)
		}
		observed = t
	}

	v := triage.Intensity(scoreFlags.trust, observed, now, scoreFlags.tau)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Age:       %s\n", now.Sub(observed).Round(time.Second))
	fmt.Fprintf(out, "Intensity: %.4f\n", v)
	fmt.Fprintf(out, "Heatmap:   %.4f\n", triage.ClampIntensity(v))
	return nil
}
