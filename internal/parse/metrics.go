package parse

import "strconv"

// Metrics bodies are a closed JSON schema parsed in a single forward pass.
// No DOM is built: the scanner validates syntax and extracts fields directly
// into a fixed-capacity record whose string fields are views into the body.
//
// Accepted root object:
//
//	{"agent_id": string, "seq": uint, "ts": uint (optional),
//	 "metrics": [{"n": string, "v": number, "u": string?, "t": {string: string}?}]}
//
// Unknown keys at any level are a drop (additionalProperties: false).

// MetricsLimits bounds every allocation and iteration count. Values are fixed
// at startup; nothing inside a datagram can influence them.
type MetricsLimits struct {
	MaxInputBytes    int
	MaxNestingDepth  int
	MaxMetrics       int
	MaxTags          int
	MaxAgentIDLen    int
	MaxMetricNameLen int
	MaxUnitLen       int
	MaxTagKeyLen     int
	MaxTagValueLen   int
}

// DefaultMetricsLimits returns the schema limits the wire format is specified
// against.
func DefaultMetricsLimits() MetricsLimits {
	return MetricsLimits{
		MaxInputBytes:    65536,
		MaxNestingDepth:  4,
		MaxMetrics:       50,
		MaxTags:          8,
		MaxAgentIDLen:    64,
		MaxMetricNameLen: 128,
		MaxUnitLen:       16,
		MaxTagKeyLen:     64,
		MaxTagValueLen:   64,
	}
}

// MetricsDropReason enumerates metrics parse rejections.
type MetricsDropReason uint8

const (
	MetricsDropInputTooLarge MetricsDropReason = iota
	MetricsDropInvalidJSON
	MetricsDropNestingTooDeep
	MetricsDropMissingRequiredField
	MetricsDropUnexpectedField
	MetricsDropInvalidFieldType
	MetricsDropAgentIDTooLong
	MetricsDropAgentIDInvalidChars
	MetricsDropTooManyMetrics
	MetricsDropMetricMissingName
	MetricsDropMetricMissingValue
	MetricsDropMetricValueNotNumber
	MetricsDropMetricNameTooLong
	MetricsDropUnitTooLong
	MetricsDropTooManyTags
	MetricsDropTagKeyTooLong
	MetricsDropTagValueTooLong
)

func (r MetricsDropReason) String() string {
	switch r {
	case MetricsDropInputTooLarge:
		return "input_too_large"
	case MetricsDropInvalidJSON:
		return "invalid_json"
	case MetricsDropNestingTooDeep:
		return "nesting_too_deep"
	case MetricsDropMissingRequiredField:
		return "missing_required_field"
	case MetricsDropUnexpectedField:
		return "unexpected_field"
	case MetricsDropInvalidFieldType:
		return "invalid_field_type"
	case MetricsDropAgentIDTooLong:
		return "agent_id_too_long"
	case MetricsDropAgentIDInvalidChars:
		return "agent_id_invalid_chars"
	case MetricsDropTooManyMetrics:
		return "too_many_metrics"
	case MetricsDropMetricMissingName:
		return "metric_missing_name"
	case MetricsDropMetricMissingValue:
		return "metric_missing_value"
	case MetricsDropMetricValueNotNumber:
		return "metric_value_not_number"
	case MetricsDropMetricNameTooLong:
		return "metric_name_too_long"
	case MetricsDropUnitTooLong:
		return "unit_too_long"
	case MetricsDropTooManyTags:
		return "too_many_tags"
	case MetricsDropTagKeyTooLong:
		return "tag_key_too_long"
	case MetricsDropTagValueTooLong:
		return "tag_value_too_long"
	}
	return "unknown"
}

// MetricTag is one key/value tag pair. Both slices are views into the body.
type MetricTag struct {
	Key   []byte
	Value []byte
}

// Metric is one entry of the metrics array. Name and Unit are views into the
// body; Tags reuses storage preallocated at parser construction.
type Metric struct {
	Name  []byte
	Value float64
	Unit  []byte
	Tags  []MetricTag
}

// ParsedMetrics is the parse output. All string fields are views into the
// body and stay valid only while the owning datagram is alive.
type ParsedMetrics struct {
	AgentID []byte
	Seq     uint32
	TS      uint64 // 0 when the optional ts field is absent
	Metrics []Metric
}

// MetricsParser owns a reusable output record sized from its limits. It is
// not thread-safe; the returned record is valid until the next Parse call.
type MetricsParser struct {
	limits  MetricsLimits
	rec     ParsedMetrics
	storage []Metric
}

func NewMetricsParser(limits MetricsLimits) *MetricsParser {
	p := &MetricsParser{limits: limits}
	p.storage = make([]Metric, limits.MaxMetrics)
	for i := range p.storage {
		p.storage[i].Tags = make([]MetricTag, 0, limits.MaxTags)
	}
	return p
}

// Parse validates body against the closed schema. O(len(body)), no
// backtracking, no allocation beyond the preallocated record.
func (p *MetricsParser) Parse(body []byte) (*ParsedMetrics, MetricsDropReason, bool) {
	if len(body) > p.limits.MaxInputBytes {
		return nil, MetricsDropInputTooLarge, false
	}

	s := metricsScanner{in: body, limits: &p.limits}
	p.rec = ParsedMetrics{}

	drop, ok := s.parseRoot(&p.rec, p.storage)
	if !ok {
		return nil, drop, false
	}
	return &p.rec, 0, true
}

type metricsScanner struct {
	in     []byte
	pos    int
	depth  int
	limits *MetricsLimits
}

func (s *metricsScanner) peek() byte {
	if s.pos < len(s.in) {
		return s.in[s.pos]
	}
	return 0
}

func (s *metricsScanner) advance() byte {
	if s.pos < len(s.in) {
		c := s.in[s.pos]
		s.pos++
		return c
	}
	return 0
}

func (s *metricsScanner) expect(c byte) bool {
	if s.peek() == c {
		s.pos++
		return true
	}
	return false
}

func (s *metricsScanner) skipWhitespace() {
	for s.pos < len(s.in) {
		switch s.in[s.pos] {
		case ' ', '\t', '\n', '\r':
			s.pos++
		default:
			return
		}
	}
}

func (s *metricsScanner) parseRoot(rec *ParsedMetrics, storage []Metric) (MetricsDropReason, bool) {
	s.skipWhitespace()
	if !s.expect('{') {
		return MetricsDropInvalidJSON, false
	}

	var hasAgentID, hasSeq, hasMetrics bool
	count := 0

	s.skipWhitespace()
	if s.peek() == '}' {
		s.advance()
		// Empty object: the required fields cannot be present.
		return MetricsDropMissingRequiredField, false
	}

	for {
		s.skipWhitespace()

		key, ok := s.parseString()
		if !ok {
			return MetricsDropInvalidJSON, false
		}

		s.skipWhitespace()
		if !s.expect(':') {
			return MetricsDropInvalidJSON, false
		}
		s.skipWhitespace()

		switch string(key) {
		case "agent_id":
			val, ok := s.parseString()
			if !ok {
				return MetricsDropInvalidFieldType, false
			}
			if len(val) > s.limits.MaxAgentIDLen {
				return MetricsDropAgentIDTooLong, false
			}
			if !validAgentIDChars(val) {
				return MetricsDropAgentIDInvalidChars, false
			}
			rec.AgentID = val
			hasAgentID = true
		case "seq":
			val, ok := s.parseInteger()
			if !ok {
				return MetricsDropInvalidFieldType, false
			}
			rec.Seq = uint32(val)
			hasSeq = true
		case "ts":
			val, ok := s.parseInteger()
			if !ok {
				return MetricsDropInvalidFieldType, false
			}
			rec.TS = uint64(val)
		case "metrics":
			drop, n, ok := s.parseMetricsArray(storage)
			if !ok {
				return drop, false
			}
			count = n
			hasMetrics = true
		default:
			// additionalProperties: false
			return MetricsDropUnexpectedField, false
		}

		s.skipWhitespace()
		if s.peek() == '}' {
			s.advance()
			break
		}
		if !s.expect(',') {
			return MetricsDropInvalidJSON, false
		}
	}

	if !hasAgentID || !hasSeq || !hasMetrics {
		return MetricsDropMissingRequiredField, false
	}

	rec.Metrics = storage[:count]
	return 0, true
}

// parseString returns the raw bytes between the quotes as a view. Escaped
// pairs are skipped, not decoded: \\ and \" keep the string's framing intact,
// any other escape passes through as literal bytes.
func (s *metricsScanner) parseString() ([]byte, bool) {
	if !s.expect('"') {
		return nil, false
	}

	start := s.pos
	for s.pos < len(s.in) {
		switch s.in[s.pos] {
		case '"':
			out := s.in[start:s.pos]
			s.advance()
			return out, true
		case '\\':
			s.advance()
			if s.pos < len(s.in) {
				s.advance()
			}
		default:
			s.advance()
		}
	}
	return nil, false // unterminated string
}

func (s *metricsScanner) parseInteger() (int64, bool) {
	start := s.pos
	if s.peek() == '-' {
		s.advance()
	}
	if !isDigit(s.peek()) {
		return 0, false
	}
	for isDigit(s.peek()) {
		s.advance()
	}

	v, err := strconv.ParseInt(string(s.in[start:s.pos]), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// parseNumber scans integer, decimal, and scientific forms.
func (s *metricsScanner) parseNumber() (float64, bool) {
	start := s.pos
	if s.peek() == '-' {
		s.advance()
	}
	if !isDigit(s.peek()) {
		return 0, false
	}
	for isDigit(s.peek()) {
		s.advance()
	}
	if s.peek() == '.' {
		s.advance()
		for isDigit(s.peek()) {
			s.advance()
		}
	}
	if c := s.peek(); c == 'e' || c == 'E' {
		s.advance()
		if c := s.peek(); c == '+' || c == '-' {
			s.advance()
		}
		for isDigit(s.peek()) {
			s.advance()
		}
	}

	v, err := strconv.ParseFloat(string(s.in[start:s.pos]), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *metricsScanner) parseMetricsArray(storage []Metric) (MetricsDropReason, int, bool) {
	if !s.expect('[') {
		return MetricsDropInvalidFieldType, 0, false
	}
	s.depth++
	if s.depth > s.limits.MaxNestingDepth {
		return MetricsDropNestingTooDeep, 0, false
	}

	s.skipWhitespace()
	if s.peek() == ']' {
		s.advance()
		s.depth--
		return 0, 0, true // empty array is valid
	}

	count := 0
	for {
		if count >= s.limits.MaxMetrics {
			return MetricsDropTooManyMetrics, 0, false
		}

		if drop, ok := s.parseMetric(&storage[count]); !ok {
			return drop, 0, false
		}
		count++

		s.skipWhitespace()
		if s.peek() == ']' {
			s.advance()
			s.depth--
			return 0, count, true
		}
		if !s.expect(',') {
			return MetricsDropInvalidJSON, 0, false
		}
		s.skipWhitespace()
	}
}

func (s *metricsScanner) parseMetric(m *Metric) (MetricsDropReason, bool) {
	if !s.expect('{') {
		return MetricsDropInvalidJSON, false
	}
	s.depth++
	if s.depth > s.limits.MaxNestingDepth {
		return MetricsDropNestingTooDeep, false
	}

	m.Name = nil
	m.Value = 0
	m.Unit = nil
	m.Tags = m.Tags[:0]

	var hasName, hasValue bool

	s.skipWhitespace()
	if s.peek() == '}' {
		s.advance()
		s.depth--
		return MetricsDropMetricMissingName, false
	}

	for {
		s.skipWhitespace()

		key, ok := s.parseString()
		if !ok {
			return MetricsDropInvalidJSON, false
		}

		s.skipWhitespace()
		if !s.expect(':') {
			return MetricsDropInvalidJSON, false
		}
		s.skipWhitespace()

		switch string(key) {
		case "n":
			val, ok := s.parseString()
			if !ok {
				return MetricsDropInvalidFieldType, false
			}
			if len(val) > s.limits.MaxMetricNameLen {
				return MetricsDropMetricNameTooLong, false
			}
			m.Name = val
			hasName = true
		case "v":
			val, ok := s.parseNumber()
			if !ok {
				return MetricsDropMetricValueNotNumber, false
			}
			m.Value = val
			hasValue = true
		case "u":
			val, ok := s.parseString()
			if !ok {
				return MetricsDropInvalidFieldType, false
			}
			if len(val) > s.limits.MaxUnitLen {
				return MetricsDropUnitTooLong, false
			}
			m.Unit = val
		case "t":
			if drop, ok := s.parseTags(m); !ok {
				return drop, false
			}
		default:
			// additionalProperties: false
			return MetricsDropUnexpectedField, false
		}

		s.skipWhitespace()
		if s.peek() == '}' {
			s.advance()
			s.depth--
			break
		}
		if !s.expect(',') {
			return MetricsDropInvalidJSON, false
		}
	}

	if !hasName {
		return MetricsDropMetricMissingName, false
	}
	if !hasValue {
		return MetricsDropMetricMissingValue, false
	}
	return 0, true
}

func (s *metricsScanner) parseTags(m *Metric) (MetricsDropReason, bool) {
	if !s.expect('{') {
		return MetricsDropInvalidFieldType, false
	}
	s.depth++
	if s.depth > s.limits.MaxNestingDepth {
		return MetricsDropNestingTooDeep, false
	}

	s.skipWhitespace()
	if s.peek() == '}' {
		s.advance()
		s.depth--
		return 0, true // empty tags
	}

	for {
		if len(m.Tags) >= s.limits.MaxTags {
			return MetricsDropTooManyTags, false
		}

		s.skipWhitespace()
		key, ok := s.parseString()
		if !ok {
			return MetricsDropInvalidJSON, false
		}
		if len(key) > s.limits.MaxTagKeyLen {
			return MetricsDropTagKeyTooLong, false
		}

		s.skipWhitespace()
		if !s.expect(':') {
			return MetricsDropInvalidJSON, false
		}
		s.skipWhitespace()

		val, ok := s.parseString()
		if !ok {
			return MetricsDropInvalidFieldType, false
		}
		if len(val) > s.limits.MaxTagValueLen {
			return MetricsDropTagValueTooLong, false
		}

		m.Tags = append(m.Tags, MetricTag{Key: key, Value: val})

		s.skipWhitespace()
		if s.peek() == '}' {
			s.advance()
			s.depth--
			return 0, true
		}
		if !s.expect(',') {
			return MetricsDropInvalidJSON, false
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// validAgentIDChars is the lexical check at the parse stage: [a-zA-Z0-9_.-]+.
// The validator applies the stricter structural pattern afterwards.
func validAgentIDChars(s []byte) bool {
	if len(s) == 0 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '_' || c == '.' || c == '-':
		default:
			return false
		}
	}
	return true
}
