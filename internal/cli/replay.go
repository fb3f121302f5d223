package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Harshitk-cp/mashaaer/internal/domain"
)

const maxReplayLine = 1 << 20

type replayTrigger struct {
	Line     int    `json:"line"`
	RitualID string `json:"ritual_id"`
	Name     string `json:"name"`
}

type replaySummary struct {
	Events     int                   `json:"events"`
	Triggered  []replayTrigger       `json:"triggered"`
	Adjustment domain.ToneAdjustment `json:"adjustment"`
}

func newReplayCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file.jsonl|->",
		Short: "Feed recorded message events through the engine",
		Long:  "Reads one JSON message event per line and processes each in order. Use - for stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			engine, release, err := opts.openEngine(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			summary := replaySummary{Triggered: []replayTrigger{}}
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 64*1024), maxReplayLine)
			line := 0
			for scanner.Scan() {
				line++
				raw := strings.TrimSpace(scanner.Text())
				if raw == "" || strings.HasPrefix(raw, "#") {
					continue
				}
				var ev domain.MessageEvent
				if err := json.Unmarshal([]byte(raw), &ev); err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				result, err := engine.OnMessageEvent(ev)
				if err != nil {
					return fmt.Errorf("line %d: %w", line, err)
				}
				summary.Events++
				summary.Adjustment = result.Adjustment
				if result.Ritual != nil {
					summary.Triggered = append(summary.Triggered, replayTrigger{
						Line:     line,
						RitualID: result.Ritual.ID,
						Name:     result.Ritual.Name,
					})
				}
			}
			if err := scanner.Err(); err != nil {
				return err
			}

			return opts.emit(cmd.OutOrStdout(), summary, func(w io.Writer) {
				fmt.Fprintf(w, "replayed %d events, %d rituals triggered\n", summary.Events, len(summary.Triggered))
				for _, t := range summary.Triggered {
					fmt.Fprintf(w, "  line %d: %s (%s)\n", t.Line, t.RitualID, t.Name)
				}
				fmt.Fprintf(w, "tone: %s (pitch %.2f)\n", summary.Adjustment.Tone, summary.Adjustment.Pitch)
			})
		},
	}
}
