// Package auditlog appends structured action and handoff records to local
// JSONL files. Appends are best-effort: a failed write is logged and
// swallowed so it can never fail a turn.
package auditlog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/orderdesk-ai/server/internal/agent/model"
	logx "github.com/orderdesk-ai/server/pkg/logger"
)

// Sink is an append-only durable log, one JSON record per line.
type Sink struct {
	mu   sync.Mutex
	path string
}

// NewSink creates a sink writing to the given file path.
func NewSink(path string) *Sink {
	return &Sink{path: path}
}

// Append writes one record as a JSON line, stamping it with a UTC
// timestamp. It never returns an error.
func (s *Sink) Append(record map[string]any) {
	if s == nil || s.path == "" {
		return
	}
	if record == nil {
		record = map[string]any{}
	}
	record["ts"] = time.Now().UTC().Format(time.RFC3339)

	line, err := json.Marshal(record)
	if err != nil {
		logx.Error().Err(err).Str("path", s.path).Msg("failed to marshal audit record")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logx.Warn().Err(err).Str("path", s.path).Msg("failed to create audit log directory")
			return
		}
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		logx.Warn().Err(err).Str("path", s.path).Msg("failed to open audit log")
		return
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		logx.Warn().Err(err).Str("path", s.path).Msg("failed to append audit record")
	}
}

// AppendAction logs one business action.
func (s *Sink) AppendAction(a model.Action) {
	rec := map[string]any{}
	b, err := json.Marshal(a)
	if err == nil {
		_ = json.Unmarshal(b, &rec)
	}
	s.Append(rec)
}

// Logs bundles the three audit sinks the agent writes to.
type Logs struct {
	Actions  *Sink
	Handoffs *Sink
	Metrics  *Sink
}

// NewLogs builds the sinks from configuration.
func NewLogs(cfg model.AuditConfig) *Logs {
	return &Logs{
		Actions:  NewSink(cfg.ActionsPath),
		Handoffs: NewSink(cfg.HandoffsPath),
		Metrics:  NewSink(cfg.MetricsPath),
	}
}
