package ports

// Sink is the opaque downstream consumer of canonical event payloads.
// Write may block and may fail; the forwarder counts failures and moves on,
// it never retries.
type Sink interface {
	Write(payload []byte) error
	Flush()
	Name() string
}
