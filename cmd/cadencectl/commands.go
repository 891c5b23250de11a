package main

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/cadence/internal/plan"
)

func newDecisionCmd(opts *options) *cobra.Command {
	var date, purpose string
	cmd := &cobra.Command{
		Use:   "decision",
		Short: "Show the daily decision",
		Long: `Show the decision for today, or for --date.

Examples:
  cadencectl decision -u u-1
  cadencectl decision -u u-1 --date 2026-03-12 --purpose workout`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := userPath(opts, "decision")
			if err != nil {
				return err
			}
			q := url.Values{}
			if date != "" {
				q.Set("date", date)
			}
			if purpose != "" {
				q.Set("purpose", purpose)
			}
			data, degraded, err := newClient(opts).do(http.MethodGet, path, q, nil)
			if err != nil {
				return err
			}
			if degraded != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "[cadencectl] decision served, but the plan update failed (%s)\n", degraded)
			}
			return printJSON(cmd, data)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "day to decide for (YYYY-MM-DD, default today)")
	cmd.Flags().StringVar(&purpose, "purpose", "", "dashboard, nutrition or workout")
	return cmd
}

func newPlanCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the current weekly plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodGet, nil, "plan")
		},
	}
}

func newRegenerateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "regenerate",
		Short: "Rebuild the plan from today",
		Long:  "Recompute today's decision and rebuild the plan from today. Completed and missed days are kept.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodPost, nil, "plan", "regenerate")
		},
	}
}

func newCompleteCmd(opts *options) *cobra.Command {
	var fb plan.Feedback
	cmd := &cobra.Command{
		Use:   "complete <date>",
		Short: "Mark a day's workout completed",
		Long: `Mark a day's workout completed, with optional feedback.

Examples:
  cadencectl complete 2026-03-10 -u u-1
  cadencectl complete 2026-03-10 -u u-1 --rating 4 --energy 3 --note "legs heavy"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodPost, fb, "days", args[0], "complete")
		},
	}
	cmd.Flags().IntVar(&fb.Rating, "rating", 0, "session rating 1-5")
	cmd.Flags().IntVar(&fb.Energy, "energy", 0, "energy 1-5")
	cmd.Flags().StringVar(&fb.Note, "note", "", "free-text note")
	return cmd
}

func newMissCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "miss <date>",
		Short: "Mark a day's workout missed and replan the following days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, opts, http.MethodPost, nil, "days", args[0], "miss")
		},
	}
}

func newEditCmd(opts *options) *cobra.Command {
	var (
		readiness, workoutType, title, intensity, tip string
		duration, calMin, calMax                      int
	)
	cmd := &cobra.Command{
		Use:   "edit <date>",
		Short: "Edit one planned day",
		Long: `Edit one planned day. Only the flags given are changed. Changing the
workout or readiness marks the day rescheduled.

Examples:
  cadencectl edit 2026-03-12 -u u-1 --readiness Gentle
  cadencectl edit 2026-03-12 -u u-1 --workout-type yoga --duration 40 --intensity low`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var upd plan.DayUpdate
			flags := cmd.Flags()
			if flags.Changed("readiness") {
				r := plan.Readiness(readiness)
				upd.Readiness = &r
			}
			if flags.Changed("workout-type") || flags.Changed("title") || flags.Changed("duration") || flags.Changed("intensity") {
				if workoutType == "" {
					return fmt.Errorf("--workout-type is required when changing the workout")
				}
				upd.Workout = &plan.Workout{
					Title:       title,
					Type:        workoutType,
					DurationMin: duration,
					Intensity:   plan.Intensity(intensity),
				}
			}
			if flags.Changed("calories-min") || flags.Changed("calories-max") {
				upd.CalorieTarget = &plan.CalorieRange{Min: calMin, Max: calMax}
			}
			if flags.Changed("tip") {
				upd.NutritionTip = &tip
			}
			return send(cmd, opts, http.MethodPatch, upd, "days", args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&readiness, "readiness", "", "Push, Maintain, Gentle or Recover")
	f.StringVar(&workoutType, "workout-type", "", "workout type, e.g. yoga, run, strength")
	f.StringVar(&title, "title", "", "workout title")
	f.IntVar(&duration, "duration", 0, "workout duration in minutes")
	f.StringVar(&intensity, "intensity", string(plan.IntensityModerate), "low, moderate or high")
	f.StringVar(&tip, "tip", "", "nutrition tip")
	f.IntVar(&calMin, "calories-min", 0, "calorie target minimum")
	f.IntVar(&calMax, "calories-max", 0, "calorie target maximum")
	return cmd
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check cadenced server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, _, err := newClient(opts).do(http.MethodGet, "/health", nil, nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Server URL: %s\n", opts.server)
			return printJSON(cmd, data)
		},
	}
}

// send calls a user-scoped endpoint and prints the JSON reply.
func send(cmd *cobra.Command, opts *options, method string, body any, parts ...string) error {
	path, err := userPath(opts, parts...)
	if err != nil {
		return err
	}
	data, _, err := newClient(opts).do(method, path, nil, body)
	if err != nil {
		return err
	}
	return printJSON(cmd, data)
}
