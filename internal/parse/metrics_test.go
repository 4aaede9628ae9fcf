package parse

import (
	"bytes"
	"fmt"
	"strings"
	"testing"
)

func parseMetricsBody(t *testing.T, body string) (*ParsedMetrics, MetricsDropReason, bool) {
	t.Helper()
	p := NewMetricsParser(DefaultMetricsLimits())
	return p.Parse([]byte(body))
}

func wantMetricsDrop(t *testing.T, body string, want MetricsDropReason) {
	t.Helper()
	_, drop, ok := parseMetricsBody(t, body)
	if ok {
		t.Fatalf("expected drop %s, got success for %q", want, body)
	}
	if drop != want {
		t.Fatalf("expected drop %s, got %s for %q", want, drop, body)
	}
}

func TestParseMetricsHappyPath(t *testing.T) {
	body := `{"agent_id":"web-1","seq":42,"ts":1705689600000,` +
		`"metrics":[{"n":"cpu","v":75.5,"u":"percent"},` +
		`{"n":"rps","v":1.2e3,"t":{"env":"prod"}}]}`

	rec, drop, ok := parseMetricsBody(t, body)
	if !ok {
		t.Fatalf("unexpected drop %s", drop)
	}
	if string(rec.AgentID) != "web-1" {
		t.Fatalf("agent_id = %q", rec.AgentID)
	}
	if rec.Seq != 42 {
		t.Fatalf("seq = %d", rec.Seq)
	}
	if rec.TS != 1705689600000 {
		t.Fatalf("ts = %d", rec.TS)
	}
	if len(rec.Metrics) != 2 {
		t.Fatalf("metric count = %d", len(rec.Metrics))
	}

	m0 := rec.Metrics[0]
	if string(m0.Name) != "cpu" || m0.Value != 75.5 || string(m0.Unit) != "percent" {
		t.Fatalf("metric 0 = %q %v %q", m0.Name, m0.Value, m0.Unit)
	}
	m1 := rec.Metrics[1]
	if string(m1.Name) != "rps" || m1.Value != 1200.0 {
		t.Fatalf("metric 1 = %q %v", m1.Name, m1.Value)
	}
	if len(m1.Tags) != 1 || string(m1.Tags[0].Key) != "env" || string(m1.Tags[0].Value) != "prod" {
		t.Fatalf("metric 1 tags = %+v", m1.Tags)
	}
}

func TestParseMetricsFieldsAreViews(t *testing.T) {
	body := []byte(`{"agent_id":"web-1","seq":1,"metrics":[{"n":"cpu","v":1}]}`)

	p := NewMetricsParser(DefaultMetricsLimits())
	rec, _, ok := p.Parse(body)
	if !ok {
		t.Fatalf("unexpected drop")
	}

	// The record must alias the input buffer, not copy it.
	start := bytes.Index(body, []byte("web-1"))
	if &rec.AgentID[0] != &body[start] {
		t.Fatalf("agent_id is not a view into the body")
	}
}

func TestParseMetricsNumberForms(t *testing.T) {
	cases := map[string]float64{
		"75.5":    75.5,
		"-2":      -2,
		"1.2e3":   1200,
		"1.2E3":   1200,
		"5e-1":    0.5,
		"3e+2":    300,
		"0.001":   0.001,
		"-0.5":    -0.5,
		"1000000": 1000000,
	}
	for lit, want := range cases {
		body := fmt.Sprintf(`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":%s}]}`, lit)
		rec, drop, ok := parseMetricsBody(t, body)
		if !ok {
			t.Fatalf("%s: unexpected drop %s", lit, drop)
		}
		if rec.Metrics[0].Value != want {
			t.Fatalf("%s: value = %v, want %v", lit, rec.Metrics[0].Value, want)
		}
	}
}

func TestParseMetricsEscapedQuoteStaysInString(t *testing.T) {
	body := `{"agent_id":"a","seq":1,"metrics":[{"n":"he\"llo","v":1}]}`

	rec, drop, ok := parseMetricsBody(t, body)
	if !ok {
		t.Fatalf("unexpected drop %s", drop)
	}
	// The escape pair passes through as literal bytes, undecoded.
	if string(rec.Metrics[0].Name) != `he\"llo` {
		t.Fatalf("name = %q", rec.Metrics[0].Name)
	}
}

func TestParseMetricsInputTooLarge(t *testing.T) {
	big := `{"agent_id":"a","seq":1,"metrics":[]}` + strings.Repeat(" ", 65536)
	wantMetricsDrop(t, big, MetricsDropInputTooLarge)
}

func TestParseMetricsInvalidJSON(t *testing.T) {
	for _, body := range []string{
		"",
		"not json",
		"{",
		`{"agent_id"`,
		`{"agent_id":"a" "seq":1}`,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1}}`,
	} {
		_, drop, ok := parseMetricsBody(t, body)
		if ok {
			t.Fatalf("expected drop for %q", body)
		}
		if drop != MetricsDropInvalidJSON {
			t.Fatalf("expected invalid_json for %q, got %s", body, drop)
		}
	}
}

func TestParseMetricsMissingRequiredField(t *testing.T) {
	wantMetricsDrop(t, `{}`, MetricsDropMissingRequiredField)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1}`, MetricsDropMissingRequiredField)
	wantMetricsDrop(t, `{"agent_id":"a","metrics":[]}`, MetricsDropMissingRequiredField)
	wantMetricsDrop(t, `{"seq":1,"metrics":[]}`, MetricsDropMissingRequiredField)
}

func TestParseMetricsUnexpectedField(t *testing.T) {
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[],"extra":1}`, MetricsDropUnexpectedField)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"w":2}]}`, MetricsDropUnexpectedField)
}

func TestParseMetricsInvalidFieldType(t *testing.T) {
	wantMetricsDrop(t, `{"agent_id":7,"seq":1,"metrics":[]}`, MetricsDropInvalidFieldType)
	wantMetricsDrop(t, `{"agent_id":"a","seq":"x","metrics":[]}`, MetricsDropInvalidFieldType)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"ts":"x","metrics":[]}`, MetricsDropInvalidFieldType)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{"n":1,"v":1}]}`, MetricsDropInvalidFieldType)
}

func TestParseMetricsAgentIDLimits(t *testing.T) {
	long := strings.Repeat("a", 65)
	wantMetricsDrop(t, `{"agent_id":"`+long+`","seq":1,"metrics":[]}`, MetricsDropAgentIDTooLong)
	wantMetricsDrop(t, `{"agent_id":"a b","seq":1,"metrics":[]}`, MetricsDropAgentIDInvalidChars)
	wantMetricsDrop(t, `{"agent_id":"","seq":1,"metrics":[]}`, MetricsDropAgentIDInvalidChars)

	// Dots are lexically fine here; the validator applies the stricter pattern.
	if _, drop, ok := parseMetricsBody(t, `{"agent_id":"web.1","seq":1,"metrics":[]}`); !ok {
		t.Fatalf("dotted agent_id should pass the parse stage, got %s", drop)
	}
}

func TestParseMetricsCardinalityLimits(t *testing.T) {
	var metrics []string
	for i := 0; i < 51; i++ {
		metrics = append(metrics, fmt.Sprintf(`{"n":"m%d","v":1}`, i))
	}
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[`+strings.Join(metrics, ",")+`]}`,
		MetricsDropTooManyMetrics)

	var tags []string
	for i := 0; i < 9; i++ {
		tags = append(tags, fmt.Sprintf(`"k%d":"v"`, i))
	}
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"t":{`+strings.Join(tags, ",")+`}}]}`,
		MetricsDropTooManyTags)
}

func TestParseMetricsLengthLimits(t *testing.T) {
	name := strings.Repeat("n", 129)
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"`+name+`","v":1}]}`,
		MetricsDropMetricNameTooLong)

	unit := strings.Repeat("u", 17)
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"u":"`+unit+`"}]}`,
		MetricsDropUnitTooLong)

	key := strings.Repeat("k", 65)
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"t":{"`+key+`":"v"}}]}`,
		MetricsDropTagKeyTooLong)

	val := strings.Repeat("v", 65)
	wantMetricsDrop(t,
		`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"t":{"k":"`+val+`"}}]}`,
		MetricsDropTagValueTooLong)
}

func TestParseMetricsMetricRequiredFields(t *testing.T) {
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{}]}`, MetricsDropMetricMissingName)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{"v":1}]}`, MetricsDropMetricMissingName)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{"n":"x"}]}`, MetricsDropMetricMissingValue)
	wantMetricsDrop(t, `{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":"s"}]}`, MetricsDropMetricValueNotNumber)
}

func TestParseMetricsEmptyArrayIsValid(t *testing.T) {
	rec, drop, ok := parseMetricsBody(t, `{"agent_id":"a","seq":1,"metrics":[]}`)
	if !ok {
		t.Fatalf("unexpected drop %s", drop)
	}
	if len(rec.Metrics) != 0 {
		t.Fatalf("expected no metrics, got %d", len(rec.Metrics))
	}
}

func TestParseMetricsNestingTooDeep(t *testing.T) {
	limits := DefaultMetricsLimits()
	limits.MaxNestingDepth = 2
	p := NewMetricsParser(limits)

	// array (1) + metric (2) + tags (3) exceeds a depth limit of 2.
	_, drop, ok := p.Parse([]byte(`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"t":{"k":"v"}}]}`))
	if ok {
		t.Fatalf("expected drop")
	}
	if drop != MetricsDropNestingTooDeep {
		t.Fatalf("expected nesting_too_deep, got %s", drop)
	}
}

func TestParseMetricsRecordReuse(t *testing.T) {
	p := NewMetricsParser(DefaultMetricsLimits())

	first, _, ok := p.Parse([]byte(`{"agent_id":"a","seq":1,"metrics":[{"n":"x","v":1,"t":{"k":"v"}}]}`))
	if !ok || len(first.Metrics) != 1 {
		t.Fatalf("first parse failed")
	}

	second, _, ok := p.Parse([]byte(`{"agent_id":"b","seq":2,"metrics":[{"n":"y","v":2}]}`))
	if !ok {
		t.Fatalf("second parse failed")
	}
	if string(second.AgentID) != "b" || string(second.Metrics[0].Name) != "y" {
		t.Fatalf("record not reset between parses: %+v", second)
	}
	if len(second.Metrics[0].Tags) != 0 {
		t.Fatalf("tags leaked across parses: %+v", second.Metrics[0].Tags)
	}
}
