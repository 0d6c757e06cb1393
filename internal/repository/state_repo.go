package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"nursecall_bridge/internal/models"
)

// LinkStateRepo persists the last port the operator connected to.
type LinkStateRepo interface {
	Save(ctx context.Context, s models.LinkState) error
	Load(ctx context.Context) (models.LinkState, error)
}

type LinkStateSQLite struct {
	db *sql.DB
}

var _ LinkStateRepo = (*LinkStateSQLite)(nil)

func NewLinkStateSQLite(db *sql.DB) *LinkStateSQLite {
	return &LinkStateSQLite{db: db}
}

const (
	linkStateRowID = 1

	upsertLinkStateSQL = `
		INSERT INTO link_state (id, port, auto_reconnect, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			port=excluded.port,
			auto_reconnect=excluded.auto_reconnect,
			updated_at=excluded.updated_at
	`

	selectLinkStateSQL = `
		SELECT id, port, auto_reconnect, updated_at
		FROM link_state WHERE id=?
	`
)

// Save upserts the single link_state row.
func (r *LinkStateSQLite) Save(ctx context.Context, s models.LinkState) error {
	ts := s.UpdatedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	} else {
		ts = ts.UTC()
	}
	_, err := r.db.ExecContext(ctx, upsertLinkStateSQL,
		linkStateRowID,
		s.Port,
		s.AutoReconnect,
		ts,
	)
	return err
}

// Load returns the link_state row, or a zero value (ID 0) if none was saved yet.
func (r *LinkStateSQLite) Load(ctx context.Context) (models.LinkState, error) {
	row := r.db.QueryRowContext(ctx, selectLinkStateSQL, linkStateRowID)

	var s models.LinkState
	if err := row.Scan(&s.ID, &s.Port, &s.AutoReconnect, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.LinkState{}, nil
		}
		return models.LinkState{}, err
	}
	s.UpdatedAt = s.UpdatedAt.UTC()
	return s, nil
}
