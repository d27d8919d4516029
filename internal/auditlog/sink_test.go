package auditlog

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderdesk-ai/server/internal/agent/model"
)

func TestAppendWritesOneJSONLinePerRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "actions.jsonl")
	s := NewSink(path)

	s.Append(map[string]any{"type": "cancel", "order_id": "o-1"})
	s.AppendAction(model.Action{Type: model.ActionTicket, OrderID: "o-2", TicketID: "TKT-abc123", Issue: "late delivery"})

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		lines = append(lines, rec)
	}
	require.Len(t, lines, 2)
	assert.Equal(t, "cancel", lines[0]["type"])
	assert.NotEmpty(t, lines[0]["ts"])
	assert.Equal(t, "ticket", lines[1]["type"])
	assert.Equal(t, "late delivery", lines[1]["issue"])
}

func TestAppendNeverFails(t *testing.T) {
	// unwritable path: parent is a file, not a directory
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s := NewSink(filepath.Join(blocker, "actions.jsonl"))
	assert.NotPanics(t, func() {
		s.Append(map[string]any{"type": "cancel"})
	})

	var nilSink *Sink
	assert.NotPanics(t, func() { nilSink.Append(nil) })
}
