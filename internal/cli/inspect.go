package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mashaaer/internal/buildconfig"
	"github.com/Harshitk-cp/mashaaer/internal/domain"
	"github.com/Harshitk-cp/mashaaer/internal/service"
)

type ritualRow struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	State       domain.RitualState `json:"state"`
	UsageCount  int                `json:"usage_count"`
	CooldownSec float64            `json:"cooldown_remaining_sec"`
	IsDefault   bool               `json:"is_default"`
}

func newRitualsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "rituals",
		Short: "List rituals with their state and usage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, release, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			svc := engine.Rituals()
			rows := []ritualRow{}
			for _, r := range svc.List() {
				state, err := svc.State(r.ID)
				if err != nil {
					return err
				}
				rows = append(rows, ritualRow{
					ID:          r.ID,
					Name:        r.Name,
					State:       state,
					UsageCount:  r.UsageCount,
					CooldownSec: svc.CooldownRemaining(r.ID).Seconds(),
					IsDefault:   r.IsDefault,
				})
			}

			return opts.emit(cmd.OutOrStdout(), rows, func(w io.Writer) {
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tSTATE\tUSES\tNAME")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.ID, r.State, r.UsageCount, r.Name)
				}
				_ = tw.Flush()
			})
		},
	}
}

type recallOutput struct {
	Memory *domain.NarrativeMemory `json:"memory"`
	Prompt string                  `json:"prompt,omitempty"`
}

func newRecallCmd(opts *options) *cobra.Command {
	var message, emotion string
	cmd := &cobra.Command{
		Use:   "recall",
		Short: "Recall a narrative memory related to a message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, release, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			out := recallOutput{Memory: engine.Narratives().Recall(message, emotion)}
			if out.Memory != nil {
				out.Prompt = engine.Narratives().RecallPrompt(out.Memory)
			}

			return opts.emit(cmd.OutOrStdout(), out, func(w io.Writer) {
				if out.Memory == nil {
					fmt.Fprintln(w, "no narrative memories yet")
					return
				}
				fmt.Fprintf(w, "%s [%s/%s]\n%s\n", out.Memory.ID, out.Memory.Type, out.Memory.Emotion, out.Prompt)
			})
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message to recall against")
	cmd.Flags().StringVarP(&emotion, "emotion", "e", "", "Current emotion")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newReflectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reflect",
		Short: "Run a behaviour reflection over recent conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, release, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			reflection := engine.Behavior().Reflect(service.TriggeredByManual)
			return opts.emit(cmd.OutOrStdout(), reflection, func(w io.Writer) {
				if reflection == nil {
					fmt.Fprintln(w, "nothing to reflect on yet")
					return
				}
				fmt.Fprintf(w, "%s\nmood: %s over %d messages, tone: %s\n",
					reflection.Reflection, reflection.MoodTrend, reflection.Count, reflection.Adjustment.Tone)
			})
		},
	}
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildconfig.Current()
			return opts.emit(cmd.OutOrStdout(), info, func(w io.Writer) {
				fmt.Fprintln(w, info.String())
			})
		},
	}
}
