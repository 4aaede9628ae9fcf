package validate

import (
	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/parse"
)

// LogConfig holds the semantic rules for log events.
type LogConfig struct {
	Window                   TimestampWindow
	MinLevel                 domain.LogLevel
	MaxMessageLength         int
	TruncateOversizedMessage bool // false = reject instead
	RequireAgentID           bool
}

func DefaultLogConfig() LogConfig {
	return LogConfig{
		Window:                   DefaultTimestampWindow(),
		MinLevel:                 domain.LevelTrace,
		MaxMessageLength:         1024,
		TruncateOversizedMessage: true,
		RequireAgentID:           false,
	}
}

// LogDrop enumerates semantic rejections of parsed logs.
type LogDrop uint8

const (
	LogDropTimestampTooOld LogDrop = iota
	LogDropTimestampInFuture
	LogDropAgentIDEmpty
	LogDropAgentIDTooLong
	LogDropAgentIDInvalidFormat
	LogDropLevelBelowMinimum
	LogDropMessageTooLong
	LogDropMessageEmpty
)

func (d LogDrop) String() string {
	switch d {
	case LogDropTimestampTooOld:
		return "timestamp_too_old"
	case LogDropTimestampInFuture:
		return "timestamp_in_future"
	case LogDropAgentIDEmpty:
		return "agent_id_empty"
	case LogDropAgentIDTooLong:
		return "agent_id_too_long"
	case LogDropAgentIDInvalidFormat:
		return "agent_id_invalid_format"
	case LogDropLevelBelowMinimum:
		return "level_below_minimum"
	case LogDropMessageTooLong:
		return "message_too_long"
	case LogDropMessageEmpty:
		return "message_empty"
	}
	return "unknown"
}

// ValidatedLog carries the post-validation contract. Msg may be a truncated
// prefix view of the parsed message; everything else is passed through.
type ValidatedLog struct {
	AgentID []byte // nil unless supplied (or required)
	TS      uint64
	Level   domain.LogLevel
	Msg     []byte
	Fields  []parse.LogField
}

// Log applies the semantic rules to a parsed record. O(1) beyond the agent-id
// scan, no allocation.
func Log(p *parse.ParsedLog, cfg LogConfig, nowMS uint64) (ValidatedLog, LogDrop, bool) {
	if len(p.AgentID) > 0 {
		if len(p.AgentID) > agentIDMaxLen {
			return ValidatedLog{}, LogDropAgentIDTooLong, false
		}
		if !ValidAgentID(p.AgentID) {
			return ValidatedLog{}, LogDropAgentIDInvalidFormat, false
		}
	} else if cfg.RequireAgentID {
		return ValidatedLog{}, LogDropAgentIDEmpty, false
	}

	if !inWindow(p.TS, nowMS, cfg.Window) {
		var minAllowed uint64
		if nowMS > uint64(cfg.Window.MaxAgeMS) {
			minAllowed = nowMS - uint64(cfg.Window.MaxAgeMS)
		}
		if p.TS < minAllowed {
			return ValidatedLog{}, LogDropTimestampTooOld, false
		}
		return ValidatedLog{}, LogDropTimestampInFuture, false
	}

	if p.Level < cfg.MinLevel {
		return ValidatedLog{}, LogDropLevelBelowMinimum, false
	}

	if len(p.Msg) == 0 {
		return ValidatedLog{}, LogDropMessageEmpty, false
	}

	msg := p.Msg
	if len(msg) > cfg.MaxMessageLength {
		if !cfg.TruncateOversizedMessage {
			return ValidatedLog{}, LogDropMessageTooLong, false
		}
		msg = msg[:cfg.MaxMessageLength]
	}

	return ValidatedLog{
		AgentID: p.AgentID,
		TS:      p.TS,
		Level:   p.Level,
		Msg:     msg,
		Fields:  p.Fields,
	}, 0, true
}
