package signals

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/af-corp/aegis-modelplan/internal/types"
)

// PostgresStore keeps entries in the model_signals table. A nil pool makes
// it an empty source.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Entries(ctx context.Context) ([]Entry, error) {
	if s.db == nil {
		return nil, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT model_key, source, quality_score, coding_score, latency_seconds,
		       input_price_per_1m, output_price_per_1m
		FROM model_signals
		ORDER BY model_key
	`)
	if err != nil {
		return nil, fmt.Errorf("query model_signals: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.Key,
			&e.Source,
			&e.QualityScore,
			&e.CodingScore,
			&e.LatencySeconds,
			&e.InputPricePer1M,
			&e.OutputPricePer1M,
		); err != nil {
			return nil, fmt.Errorf("scan model_signals: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model_signals: %w", err)
	}
	return out, nil
}

// Upsert stores sig under the normalized key.
func (s *PostgresStore) Upsert(ctx context.Context, key string, sig types.ExternalSignal) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO model_signals (model_key, source, quality_score, coding_score, latency_seconds,
		                           input_price_per_1m, output_price_per_1m, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		ON CONFLICT (model_key) DO UPDATE SET
			source = EXCLUDED.source,
			quality_score = EXCLUDED.quality_score,
			coding_score = EXCLUDED.coding_score,
			latency_seconds = EXCLUDED.latency_seconds,
			input_price_per_1m = EXCLUDED.input_price_per_1m,
			output_price_per_1m = EXCLUDED.output_price_per_1m,
			updated_at = NOW()
	`, NormalizeKey(key), sig.Source, sig.QualityScore, sig.CodingScore, sig.LatencySeconds,
		sig.InputPricePer1M, sig.OutputPricePer1M)
	if err != nil {
		return fmt.Errorf("upsert model_signals %s: %w", key, err)
	}
	return nil
}
