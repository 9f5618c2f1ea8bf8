package sink

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/network-observability/network-observability-lab/internal/domain"
	"github.com/network-observability/network-observability-lab/internal/ports"
)

// PostgresSink stores normalized samples in one wide table: measurement,
// tags and fields as JSON columns, timestamp as nanoseconds. The insert is
// idempotent so a replayed WAL batch cannot double-write.
type PostgresSink struct {
	db        *sql.DB
	tableName string
}

func NewPostgresSink(db *sql.DB, table string) *PostgresSink {
	return &PostgresSink{db: db, tableName: table}
}

func (p *PostgresSink) Name() string { return "postgres" }

func (p *PostgresSink) WriteBatch(samples []*domain.Sample) error {
	if len(samples) == 0 {
		return nil
	}

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(p.tableName)
	b.WriteString(" (measurement, tags, fields, ts) VALUES ")

	args := make([]any, 0, len(samples)*4)
	for i, s := range samples {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(fmt.Sprintf("($%d,$%d,$%d,$%d)",
			len(args)+1, len(args)+2, len(args)+3, len(args)+4))

		tags, err := json.Marshal(s.Tags)
		if err != nil {
			return fmt.Errorf("marshal tags: %w", err)
		}
		fields, err := json.Marshal(s.Fields)
		if err != nil {
			return fmt.Errorf("marshal fields: %w", err)
		}
		args = append(args, s.Measurement, tags, fields, s.Timestamp)
	}

	b.WriteString(" ON CONFLICT DO NOTHING")

	_, err := p.db.Exec(b.String(), args...)
	return err
}

var _ ports.Sink = (*PostgresSink)(nil)
