package parse

import (
	"strconv"

	"github.com/ghalamif/AegisGate/internal/domain"
)

// Log bodies are logfmt, parsed in a single pass with no backtracking:
//
//	line   = field (WS+ field)*
//	field  = key "=" value
//	key    = [a-z_][a-z0-9_]*
//	value  = bare | quoted
//	bare   = [^ \t"=]*
//	quoted = '"' [^"]* '"'        (no escapes)
//
// ts, level, and msg are required; agent is optional. Every field, required
// or not, is also preserved in order for pass-through.

// LogLimits bounds every allocation and iteration count.
type LogLimits struct {
	MaxLineBytes int
	MaxFields    int
	MaxKeyLen    int
	MaxValueLen  int
}

func DefaultLogLimits() LogLimits {
	return LogLimits{
		MaxLineBytes: 2048,
		MaxFields:    16,
		MaxKeyLen:    32,
		MaxValueLen:  1024,
	}
}

// LogDropReason enumerates log parse rejections.
type LogDropReason uint8

const (
	LogDropInputTooLarge LogDropReason = iota
	LogDropEmptyInput
	LogDropTooManyFields
	LogDropKeyTooLong
	LogDropValueTooLong
	LogDropInvalidKeyChar
	LogDropMissingEquals
	LogDropUnterminatedQuote
	LogDropMissingTimestamp
	LogDropMissingLevel
	LogDropMissingMessage
	LogDropInvalidTimestamp
	LogDropInvalidLevel
)

func (r LogDropReason) String() string {
	switch r {
	case LogDropInputTooLarge:
		return "input_too_large"
	case LogDropEmptyInput:
		return "empty_input"
	case LogDropTooManyFields:
		return "too_many_fields"
	case LogDropKeyTooLong:
		return "key_too_long"
	case LogDropValueTooLong:
		return "value_too_long"
	case LogDropInvalidKeyChar:
		return "invalid_key_char"
	case LogDropMissingEquals:
		return "missing_equals"
	case LogDropUnterminatedQuote:
		return "unterminated_quote"
	case LogDropMissingTimestamp:
		return "missing_timestamp"
	case LogDropMissingLevel:
		return "missing_level"
	case LogDropMissingMessage:
		return "missing_message"
	case LogDropInvalidTimestamp:
		return "invalid_timestamp"
	case LogDropInvalidLevel:
		return "invalid_level"
	}
	return "unknown"
}

// LogField is one parsed key/value pair. Both slices are views into the body.
type LogField struct {
	Key   []byte
	Value []byte
}

// ParsedLog is the parse output. All string fields are views into the body.
type ParsedLog struct {
	TS      uint64
	Level   domain.LogLevel
	AgentID []byte // optional, nil if absent
	Msg     []byte
	Fields  []LogField // all fields in input order, required ones included
}

// LogParser owns a reusable output record sized from its limits. Not
// thread-safe; the returned record is valid until the next Parse call.
type LogParser struct {
	limits  LogLimits
	rec     ParsedLog
	storage []LogField
}

func NewLogParser(limits LogLimits) *LogParser {
	return &LogParser{
		limits:  limits,
		storage: make([]LogField, limits.MaxFields),
	}
}

// Parse validates body as one logfmt line. O(len(body)), single pass.
func (p *LogParser) Parse(body []byte) (*ParsedLog, LogDropReason, bool) {
	if len(body) > p.limits.MaxLineBytes {
		return nil, LogDropInputTooLarge, false
	}
	if len(body) == 0 {
		return nil, LogDropEmptyInput, false
	}

	// Strip trailing newline/whitespace.
	for len(body) > 0 {
		switch body[len(body)-1] {
		case '\n', '\r', ' ', '\t':
			body = body[:len(body)-1]
			continue
		}
		break
	}
	if len(body) == 0 {
		return nil, LogDropEmptyInput, false
	}

	p.rec = ParsedLog{Level: domain.LevelInfo}

	s := logfmtScanner{in: body, limits: &p.limits}
	drop, ok := s.parseLine(&p.rec, p.storage)
	if !ok {
		return nil, drop, false
	}
	return &p.rec, 0, true
}

type logfmtScanner struct {
	in     []byte
	pos    int
	limits *LogLimits
}

func (s *logfmtScanner) parseLine(rec *ParsedLog, storage []LogField) (LogDropReason, bool) {
	var hasTS, hasLevel, hasMsg bool
	count := 0

	for s.pos < len(s.in) {
		s.skipSpaces()
		if s.pos >= len(s.in) {
			break
		}

		if count >= s.limits.MaxFields {
			return LogDropTooManyFields, false
		}

		key, drop, ok := s.parseKey()
		if !ok {
			return drop, false
		}
		if len(key) > s.limits.MaxKeyLen {
			return LogDropKeyTooLong, false
		}

		if s.pos >= len(s.in) || s.in[s.pos] != '=' {
			return LogDropMissingEquals, false
		}
		s.pos++ // consume '='

		value, drop, ok := s.parseValue()
		if !ok {
			return drop, false
		}
		if len(value) > s.limits.MaxValueLen {
			return LogDropValueTooLong, false
		}

		storage[count] = LogField{Key: key, Value: value}
		count++

		switch string(key) {
		case "ts":
			ts, err := strconv.ParseUint(string(value), 10, 64)
			if err != nil {
				return LogDropInvalidTimestamp, false
			}
			rec.TS = ts
			hasTS = true
		case "level":
			level, ok := domain.ParseLogLevel(value)
			if !ok {
				return LogDropInvalidLevel, false
			}
			rec.Level = level
			hasLevel = true
		case "msg":
			rec.Msg = value
			hasMsg = true
		case "agent":
			rec.AgentID = value
		}
	}

	if !hasTS {
		return LogDropMissingTimestamp, false
	}
	if !hasLevel {
		return LogDropMissingLevel, false
	}
	if !hasMsg {
		return LogDropMissingMessage, false
	}

	rec.Fields = storage[:count]
	return 0, true
}

func (s *logfmtScanner) skipSpaces() {
	for s.pos < len(s.in) && (s.in[s.pos] == ' ' || s.in[s.pos] == '\t') {
		s.pos++
	}
}

func (s *logfmtScanner) parseKey() ([]byte, LogDropReason, bool) {
	start := s.pos
	if s.pos >= len(s.in) {
		return nil, LogDropMissingEquals, false
	}

	if !isKeyStart(s.in[s.pos]) {
		return nil, LogDropInvalidKeyChar, false
	}
	s.pos++

	for s.pos < len(s.in) && isKeyChar(s.in[s.pos]) {
		s.pos++
	}
	return s.in[start:s.pos], 0, true
}

func (s *logfmtScanner) parseValue() ([]byte, LogDropReason, bool) {
	if s.pos >= len(s.in) {
		// Empty value at end of line.
		return s.in[s.pos:s.pos], 0, true
	}
	if s.in[s.pos] == '"' {
		return s.parseQuotedValue()
	}
	return s.parseBareValue()
}

func (s *logfmtScanner) parseBareValue() ([]byte, LogDropReason, bool) {
	start := s.pos
	for s.pos < len(s.in) {
		switch s.in[s.pos] {
		case ' ', '\t', '"', '=':
			return s.in[start:s.pos], 0, true
		}
		s.pos++
	}
	return s.in[start:s.pos], 0, true
}

func (s *logfmtScanner) parseQuotedValue() ([]byte, LogDropReason, bool) {
	s.pos++ // consume opening quote
	start := s.pos
	for s.pos < len(s.in) {
		if s.in[s.pos] == '"' {
			out := s.in[start:s.pos]
			s.pos++ // consume closing quote
			return out, 0, true
		}
		s.pos++
	}
	return nil, LogDropUnterminatedQuote, false
}

func isKeyStart(c byte) bool { return (c >= 'a' && c <= 'z') || c == '_' }

func isKeyChar(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_'
}
