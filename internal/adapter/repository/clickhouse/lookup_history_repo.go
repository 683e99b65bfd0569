package clickhouse

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kr1s57/vigilancex-lookup/internal/entity"
)

const lookupHistorySchema = `
	CREATE TABLE IF NOT EXISTS lookup_history (
		id UUID,
		key String,
		kind LowCardinality(String),
		checked_at DateTime64(3),
		providers Array(String),
		failed Array(String),
		country LowCardinality(String),
		city String,
		asn String,
		confidence Float64,
		threat_count UInt32,
		service_count UInt32
	) ENGINE = MergeTree()
	ORDER BY (key, checked_at)
	TTL toDateTime(checked_at) + INTERVAL 90 DAY
`

// LookupHistoryRepository persists envelope summaries
type LookupHistoryRepository struct {
	conn *Connection
}

// NewLookupHistoryRepository creates a new lookup history repository
func NewLookupHistoryRepository(conn *Connection) *LookupHistoryRepository {
	return &LookupHistoryRepository{conn: conn}
}

// EnsureSchema creates the history table when missing
func (r *LookupHistoryRepository) EnsureSchema(ctx context.Context) error {
	if err := r.conn.Exec(ctx, lookupHistorySchema); err != nil {
		return fmt.Errorf("create lookup_history: %w", err)
	}
	return nil
}

// Save inserts one history row
func (r *LookupHistoryRepository) Save(ctx context.Context, h *entity.LookupHistory) error {
	id, err := uuid.Parse(h.ID)
	if err != nil {
		id = uuid.New()
	}

	batch, err := r.conn.PrepareBatch(ctx, `
		INSERT INTO lookup_history (
			id, key, kind, checked_at, providers, failed,
			country, city, asn, confidence, threat_count, service_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		id,
		h.Key,
		h.Kind,
		h.CheckedAt,
		h.Providers,
		h.Failed,
		h.Country,
		h.City,
		h.ASN,
		h.Confidence,
		h.ThreatCount,
		h.ServiceCount,
	)
	if err != nil {
		return fmt.Errorf("append batch: %w", err)
	}

	return batch.Send()
}

// ListByKey returns the latest rows for a key, newest first
func (r *LookupHistoryRepository) ListByKey(ctx context.Context, key string, limit int) ([]entity.LookupHistory, error) {
	query := `
		SELECT
			toString(id), key, kind, checked_at, providers, failed,
			country, city, asn, confidence, threat_count, service_count
		FROM lookup_history
		WHERE key = ?
		ORDER BY checked_at DESC
		LIMIT ?
	`

	rows, err := r.conn.Query(ctx, query, key, limit)
	if err != nil {
		return nil, fmt.Errorf("query lookup history: %w", err)
	}
	defer rows.Close()

	history := []entity.LookupHistory{}
	for rows.Next() {
		var h entity.LookupHistory
		if err := rows.Scan(
			&h.ID, &h.Key, &h.Kind, &h.CheckedAt, &h.Providers, &h.Failed,
			&h.Country, &h.City, &h.ASN, &h.Confidence, &h.ThreatCount, &h.ServiceCount,
		); err != nil {
			return nil, fmt.Errorf("scan lookup history: %w", err)
		}
		history = append(history, h)
	}

	return history, rows.Err()
}
