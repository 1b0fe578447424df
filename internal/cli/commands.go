package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/armctl/internal/control"
	"github.com/vietddude/armctl/internal/core/domain"
)

func (a *app) initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Move the arm to its start position",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), a.initialize)
		},
	}
}

func (a *app) moveCmd() *cobra.Command {
	var pose domain.Pose

	cmd := &cobra.Command{
		Use:   "move",
		Short: "Move the end effector to an absolute pose",
		Example: `  armctl move --x 25 --y 0 --z 15 --roll 0 --pitch -30 --yaw 0 --grip 50
  armctl --init move --x 0 --y 20 --z 10 --roll 0 --pitch 0 --yaw 90 --grip 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd.Context(), func(ctx context.Context, s *control.Session) error {
				if a.opts.init {
					if err := a.initialize(ctx, s); err != nil {
						return err
					}
				}
				resp, err := s.MoveAbsolute(ctx, pose, nil)
				if err != nil {
					return err
				}
				return a.out.OK("moved to "+pose.String(), resp)
			})
		},
	}

	f := cmd.Flags()
	f.Float64Var(&pose.X, "x", 0, "x position in cm")
	f.Float64Var(&pose.Y, "y", 0, "y position in cm")
	f.Float64Var(&pose.Z, "z", 0, "z position in cm")
	f.Float64Var(&pose.Roll, "roll", 0, "roll in degrees")
	f.Float64Var(&pose.Pitch, "pitch", 0, "pitch in degrees")
	f.Float64Var(&pose.Yaw, "yaw", 0, "yaw in degrees")
	f.Float64Var(&pose.Grip, "grip", 0, "gripper opening, 0 closed to 100 open")
	for _, name := range []string{"x", "y", "z", "roll", "pitch", "yaw", "grip"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func (a *app) runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <sequence.yaml>",
		Short: "Execute a sequence of commands from a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			seq, err := control.LoadSequence(args[0])
			if err != nil {
				return err
			}
			if a.opts.init {
				seq.Steps = append([]control.SequenceStep{{Action: domain.ActionInit}}, seq.Steps...)
			}

			return a.withSession(cmd.Context(), func(ctx context.Context, s *control.Session) error {
				results, err := s.Run(ctx, seq)
				for _, r := range results {
					if r.Err != nil {
						break
					}
					summary := fmt.Sprintf("step %d/%d %s", r.Index+1, len(seq.Steps), r.Action)
					if p := seq.Steps[r.Index].Pose; p != nil {
						summary += " " + p.String()
					}
					if perr := a.out.OK(summary, r.Response); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
}

func (a *app) historyCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent commands from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			journal, err := control.OpenJournal(ctx, a.cfg.Journal, a.logger)
			if err != nil {
				return &domain.Error{Kind: domain.KindConfiguration, Message: "open journal", Err: err}
			}
			defer func() {
				_ = journal.Close()
			}()

			recs, err := journal.Recent(ctx, limit)
			if err != nil {
				return fmt.Errorf("read %s journal: %w", journal.Driver(), err)
			}

			w := tabwriter.NewWriter(a.out.Writer(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "STARTED\tACTION\tOUTCOME\tATTEMPTS\tSTATUS\tDURATION\tPOSE")
			for _, r := range recs {
				pose := "-"
				if r.Pose != nil {
					pose = r.Pose.String()
				}
				status := "-"
				if r.StatusCode != domain.StatusNoResponse {
					status = fmt.Sprint(r.StatusCode)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.RFC3339),
					r.Action,
					r.Outcome,
					r.Attempts,
					status,
					r.Duration.Round(time.Millisecond),
					pose,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of entries to show")
	return cmd
}

func (a *app) limitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "limits",
		Short: "Print the effective safety envelope",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limits, err := a.limits()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(a.out.Writer(), 0, 0, 3, ' ', 0)
			_, _ = fmt.Fprintln(w, "AXIS\tMIN\tMAX\tUNIT")
			for _, axis := range domain.Axes() {
				r, _ := limits.Range(axis)
				_, _ = fmt.Fprintf(w, "%s\t%g\t%g\t%s\n", axis, r.Min, r.Max, axis.Unit())
			}
			return w.Flush()
		},
	}
}
