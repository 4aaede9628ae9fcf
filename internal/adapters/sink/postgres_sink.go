package sink

import (
	"database/sql"

	"github.com/ghalamif/AegisGate/internal/ports"
)

// PostgresSink stores canonical event payloads as JSONB rows. It is one
// concrete Sink a deployment may select; the forwarder only ever sees the
// ports.Sink capability.
type PostgresSink struct {
	db        *sql.DB
	tableName string
	query     string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{
		db:        db,
		tableName: table,
		query:     "INSERT INTO " + table + " (received_at, payload) VALUES (now(), $1)",
	}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) Write(payload []byte) error {
	_, err := p.db.Exec(p.query, payload)
	return err
}

func (p *PostgresSink) Flush() {}

var _ ports.Sink = (*PostgresSink)(nil)
