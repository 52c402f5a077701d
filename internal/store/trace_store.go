package store

import (
	"encoding/json"
	"time"

	"github.com/lookfor-ai/maestro/internal/domain"
	"github.com/lookfor-ai/maestro/internal/trace"
)

// TraceStore is the SQLite-backed trace.Tracer implementation. Events
// are append-only; record order is preserved by rowid.
type TraceStore struct {
	db *DB
}

// NewTraceStore creates a trace store on an open database.
func NewTraceStore(db *DB) *TraceStore {
	return &TraceStore{db: db}
}

var _ trace.Tracer = (*TraceStore)(nil)

func (s *TraceStore) Record(sessionID string, evt domain.TraceEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	var data []byte
	if evt.Data != nil {
		var err error
		data, err = json.Marshal(evt.Data)
		if err != nil {
			s.db.log.Error().Err(err).Str("type", string(evt.Type)).Msg("encoding trace payload")
			return
		}
	}

	_, err := s.db.sql.Exec(
		"INSERT INTO trace_events (session_id, type, timestamp, data) VALUES (?, ?, ?, ?)",
		sessionID, string(evt.Type), fmtTime(evt.Timestamp), nullable(data))
	if err != nil {
		s.db.log.Error().Err(err).Str("session_id", sessionID).Msg("recording trace event")
	}
}

func (s *TraceStore) Get(sessionID string) ([]domain.TraceEvent, bool) {
	rows, err := s.db.sql.Query(
		"SELECT type, timestamp, data FROM trace_events WHERE session_id = ? ORDER BY id", sessionID)
	if err != nil {
		s.db.log.Error().Err(err).Str("session_id", sessionID).Msg("loading trace events")
		return nil, false
	}
	defer rows.Close()

	var out []domain.TraceEvent
	for rows.Next() {
		var (
			typ, ts string
			data    *string
		)
		if err := rows.Scan(&typ, &ts, &data); err != nil {
			s.db.log.Error().Err(err).Msg("scanning trace event")
			return nil, false
		}
		evt := domain.TraceEvent{Type: domain.EventType(typ), Timestamp: parseTime(ts)}
		if data != nil {
			payload, err := decodePayload(evt.Type, []byte(*data))
			if err != nil {
				s.db.log.Error().Err(err).Str("type", typ).Msg("decoding trace payload")
				return nil, false
			}
			evt.Data = payload
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		s.db.log.Error().Err(err).Msg("iterating trace events")
		return nil, false
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

func (s *TraceStore) Clear() {
	if _, err := s.db.sql.Exec("DELETE FROM trace_events"); err != nil {
		s.db.log.Error().Err(err).Msg("clearing trace events")
	}
}

// decodePayload restores the typed event payload so persisted
// timelines read back the same as in-memory ones.
func decodePayload(typ domain.EventType, raw []byte) (any, error) {
	switch typ {
	case domain.EventMessage:
		var d domain.MessageData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case domain.EventRouting:
		var d domain.RoutingData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case domain.EventToolCall:
		var d domain.ToolCallData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	case domain.EventEscalation:
		var d domain.EscalationData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	default:
		var d map[string]any
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		return d, nil
	}
}

func nullable(data []byte) any {
	if data == nil {
		return nil
	}
	return string(data)
}
