package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReplayPersistsRitualUsage(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "state.db")
	events := filepath.Join(dir, "events.jsonl")
	lines := strings.Join([]string{
		`# morning session`,
		`{"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4}`,
		``,
		`{"message": "شكرا لك", "role": "assistant"}`,
		`{"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4}`,
	}, "\n")
	require.NoError(t, os.WriteFile(events, []byte(lines), 0o600))

	out, err := run(t, "", "--db", db, "--format", "json", "replay", events)
	require.NoError(t, err)

	var summary replaySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Events)
	require.Len(t, summary.Triggered, 1)
	assert.Equal(t, 2, summary.Triggered[0].Line)
	assert.Equal(t, "feeling_off", summary.Triggered[0].RitualID)

	out, err = run(t, "", "--db", db, "-f", "json", "rituals")
	require.NoError(t, err)
	var rows []ritualRow
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, 6)
	for _, r := range rows {
		if r.ID == "feeling_off" {
			assert.Equal(t, 1, r.UsageCount)
		} else {
			assert.Zero(t, r.UsageCount, r.ID)
		}
	}
}

func TestReplayUsesRecordedTimestamps(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")
	lines := strings.Join([]string{
		`{"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4, "timestamp": "2025-06-01T08:00:00Z"}`,
		`{"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4, "timestamp": "2025-06-01T08:30:00Z"}`,
		`{"message": "أشعر بتعب اليوم", "emotion": "sad", "intensity": 0.4, "timestamp": "2025-06-01T10:00:00Z"}`,
	}, "\n")

	out, err := run(t, lines, "--db", db, "--format", "json", "replay", "-")
	require.NoError(t, err)

	var summary replaySummary
	require.NoError(t, json.Unmarshal([]byte(out), &summary))
	assert.Equal(t, 3, summary.Events)
	require.Len(t, summary.Triggered, 2)
	assert.Equal(t, 1, summary.Triggered[0].Line)
	assert.Equal(t, 3, summary.Triggered[1].Line)
}

func TestReplayFromStdinReportsBadLine(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")
	_, err := run(t, "{\"message\": \"hi\"}\nnot json\n", "--db", db, "replay", "-")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestReflectAndRecallOnEmptyState(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")

	out, err := run(t, "", "--db", db, "reflect")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to reflect on")

	out, err = run(t, "", "--db", db, "recall", "--message", "العمل")
	require.NoError(t, err)
	assert.Contains(t, out, "no narrative memories")

	_, err = run(t, "", "--db", db, "recall")
	assert.Error(t, err)
}

func TestReflectAfterReplay(t *testing.T) {
	db := filepath.Join(t.TempDir(), "state.db")
	_, err := run(t, `{"message": "يوم جميل", "emotion": "happy", "intensity": 0.5}`, "--db", db, "replay", "-")
	require.NoError(t, err)

	out, err := run(t, "", "--db", db, "--format", "json", "reflect")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "manual", got["triggered_by"])
	assert.Equal(t, 1.0, got["count"])
}

func TestVersionAndFormatValidation(t *testing.T) {
	out, err := run(t, "", "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version": "dev"`)

	_, err = run(t, "", "version", "--format", "yaml")
	assert.Error(t, err)
}

func TestDBPathResolution(t *testing.T) {
	t.Setenv("MASHAAER_DB", "")
	assert.Equal(t, defaultDBPath, (&options{}).resolveDBPath())

	t.Setenv("MASHAAER_DB", "/tmp/from-env.db")
	assert.Equal(t, "/tmp/from-env.db", (&options{}).resolveDBPath())
	assert.Equal(t, "flag.db", (&options{dbPath: "flag.db"}).resolveDBPath())
}
