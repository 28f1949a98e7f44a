package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"netgate/internal/constants"
	"netgate/internal/gateway"
	"netgate/internal/validator"
	"netgate/pkg/metrics"
)

// PostgresStore persists decisions to the gateway_decisions table and serves
// the recent-decisions query for the operations API.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Record(ctx context.Context, decision gateway.Decision) error {
	query := `
		INSERT INTO gateway_decisions (id, event_kind, model, device_id, device, validation_required, outcome, forwarded, delivered, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	var outcomeJSON []byte
	if decision.Outcome != nil {
		var err error
		outcomeJSON, err = json.Marshal(decision.Outcome)
		if err != nil {
			return fmt.Errorf("failed to marshal validation outcome: %w", err)
		}
	}

	var deviceID *int64
	if decision.DeviceID != 0 {
		deviceID = &decision.DeviceID
	}

	_, err := s.db.ExecContext(ctx, query,
		decision.ID, decision.EventKind, decision.Model, deviceID, decision.Device,
		decision.ValidationRequired, outcomeJSON,
		decision.Forwarded, decision.Delivered, decision.Reason, decision.CreatedAt,
	)

	if err != nil {
		metrics.IncDatabaseQuery("gateway", "postgres", "insert_decision", "error")
		return fmt.Errorf("failed to insert gateway decision: %w", err)
	}

	metrics.IncDatabaseQuery("gateway", "postgres", "insert_decision", "success")
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]gateway.Decision, error) {
	if limit <= 0 {
		limit = constants.DefaultDecisionLimit
	}
	if limit > constants.MaxDecisionLimit {
		limit = constants.MaxDecisionLimit
	}

	query := `
		SELECT id, event_kind, model, device_id, device, validation_required, outcome, forwarded, delivered, reason, created_at
		FROM gateway_decisions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		metrics.IncDatabaseQuery("gateway", "postgres", "recent_decisions", "error")
		return nil, fmt.Errorf("failed to query gateway decisions: %w", err)
	}
	defer rows.Close()

	decisions := make([]gateway.Decision, 0, limit)
	for rows.Next() {
		var d gateway.Decision
		var deviceID sql.NullInt64
		var outcomeJSON []byte

		if err := rows.Scan(
			&d.ID, &d.EventKind, &d.Model, &deviceID, &d.Device,
			&d.ValidationRequired, &outcomeJSON,
			&d.Forwarded, &d.Delivered, &d.Reason, &d.CreatedAt,
		); err != nil {
			metrics.IncDatabaseQuery("gateway", "postgres", "recent_decisions", "error")
			return nil, fmt.Errorf("failed to scan gateway decision: %w", err)
		}

		if deviceID.Valid {
			d.DeviceID = deviceID.Int64
		}
		if len(outcomeJSON) > 0 {
			d.Outcome = &validator.Outcome{}
			if err := json.Unmarshal(outcomeJSON, d.Outcome); err != nil {
				return nil, fmt.Errorf("failed to unmarshal validation outcome: %w", err)
			}
		}

		decisions = append(decisions, d)
	}

	if err := rows.Err(); err != nil {
		metrics.IncDatabaseQuery("gateway", "postgres", "recent_decisions", "error")
		return nil, fmt.Errorf("failed to read gateway decisions: %w", err)
	}

	metrics.IncDatabaseQuery("gateway", "postgres", "recent_decisions", "success")
	return decisions, nil
}
