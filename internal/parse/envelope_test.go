package parse

import (
	"bytes"
	"testing"
)

func TestParseEnvelopeHello(t *testing.T) {
	payload := []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o'}

	body, _, ok := ParseEnvelope(payload)
	if !ok {
		t.Fatalf("expected success")
	}
	if string(body) != "Hello" {
		t.Fatalf("expected body Hello, got %q", body)
	}
}

func TestParseEnvelopeTrailingJunk(t *testing.T) {
	payload := []byte{0x00, 0x05, 'H', 'e', 'l', 'l', 'o', 0x00}

	_, drop, ok := ParseEnvelope(payload)
	if ok {
		t.Fatalf("expected drop")
	}
	if drop != EnvelopeDropTrailingJunk {
		t.Fatalf("expected trailing_junk, got %s", drop)
	}
}

func TestParseEnvelopeBigEndianLength(t *testing.T) {
	// 0x0100 = 256 confirms the high byte comes first.
	payload := make([]byte, 2+256)
	payload[0] = 0x01
	payload[1] = 0x00

	body, _, ok := ParseEnvelope(payload)
	if !ok {
		t.Fatalf("expected success")
	}
	if len(body) != 256 {
		t.Fatalf("expected 256-byte body, got %d", len(body))
	}
}

func TestParseEnvelopePayloadTooSmall(t *testing.T) {
	for _, payload := range [][]byte{nil, {}, {0x00}} {
		_, drop, ok := ParseEnvelope(payload)
		if ok {
			t.Fatalf("expected drop for %v", payload)
		}
		if drop != EnvelopeDropPayloadTooSmall {
			t.Fatalf("expected payload_too_small, got %s", drop)
		}
	}
}

func TestParseEnvelopeLengthMismatch(t *testing.T) {
	// Claims 5 body bytes, delivers 3.
	payload := []byte{0x00, 0x05, 'a', 'b', 'c'}

	_, drop, ok := ParseEnvelope(payload)
	if ok {
		t.Fatalf("expected drop")
	}
	if drop != EnvelopeDropLengthMismatch {
		t.Fatalf("expected length_mismatch, got %s", drop)
	}
}

func TestParseEnvelopeZeroLengthBody(t *testing.T) {
	body, _, ok := ParseEnvelope([]byte{0x00, 0x00})
	if !ok {
		t.Fatalf("zero-length body must be valid framing")
	}
	if len(body) != 0 {
		t.Fatalf("expected empty body, got %d bytes", len(body))
	}
}

func TestFrameRoundTrip(t *testing.T) {
	bodies := [][]byte{
		{},
		[]byte("Hello"),
		bytes.Repeat([]byte{0xAB}, 1470),
	}

	for _, want := range bodies {
		framed, err := Frame(want)
		if err != nil {
			t.Fatalf("frame: %v", err)
		}
		got, drop, ok := ParseEnvelope(framed)
		if !ok {
			t.Fatalf("round-trip drop %s for %d-byte body", drop, len(want))
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("round-trip mismatch for %d-byte body", len(want))
		}
	}
}

func TestFramePrefixesAreDrops(t *testing.T) {
	framed, err := Frame([]byte("Hello"))
	if err != nil {
		t.Fatalf("frame: %v", err)
	}

	for k := 0; k < len(framed); k++ {
		_, drop, ok := ParseEnvelope(framed[:k])
		if ok {
			t.Fatalf("prefix of length %d must be a drop", k)
		}
		if drop != EnvelopeDropPayloadTooSmall && drop != EnvelopeDropLengthMismatch {
			t.Fatalf("prefix of length %d: unexpected reason %s", k, drop)
		}
	}
}

func TestFrameRejectsOversizedBody(t *testing.T) {
	if _, err := Frame(make([]byte, 0x10000)); err == nil {
		t.Fatalf("expected error for body larger than u16")
	}
}
