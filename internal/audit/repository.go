// Package audit records administrative changes and sweep runs in the
// audit_logs table.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/coupon-core/internal/infrastructure/database"
)

// Actions recorded in the log.
const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSweep  = "sweep"
)

// timeLayout is fixed-width so created_at sorts lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is a single audit trail record.
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id,omitempty"`
	Actor      string         `json:"actor,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Filter controls which entries List returns.
type Filter struct {
	Action     string
	EntityType string
	Limit      int // default 50, max 200
	Offset     int
}

// ListResult is a page of entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines audit log operations.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository stores entries through the connection pool.
type SQLiteRepository struct {
	pool *database.Pool
}

// NewSQLiteRepository creates an audit repository.
func NewSQLiteRepository(pool *database.Pool) *SQLiteRepository {
	return &SQLiteRepository{pool: pool}
}

// Create inserts e. ID and CreatedAt are filled in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, e *Entry) error {
	if e.ID == "" {
		e.ID = "aud-" + uuid.NewString()[:8]
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var details any
	if e.Details != nil {
		b, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		details = string(b)
	}

	return r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		_, err := conn.ExecContext(ctx,
			`INSERT INTO audit_logs (id, action, entity_type, entity_id, actor, details, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Action, e.EntityType,
			nullableString(e.EntityID), nullableString(e.Actor), details,
			e.CreatedAt.UTC().Format(timeLayout),
		)
		if err != nil {
			return fmt.Errorf("inserting audit entry: %w", err)
		}
		return nil
	})
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// List returns entries matching filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any
	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.EntityType != "" {
		conditions = append(conditions, "entity_type = ?")
		args = append(args, filter.EntityType)
	}
	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	result := &ListResult{Entries: []Entry{}, Limit: filter.Limit, Offset: filter.Offset}
	err := r.pool.Do(ctx, func(ctx context.Context, conn *sql.Conn) error {
		countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE built from parameterised conditions
		if err := conn.QueryRowContext(ctx, countQuery, args...).Scan(&result.Total); err != nil {
			return fmt.Errorf("counting audit entries: %w", err)
		}

		query := "SELECT id, action, entity_type, entity_id, actor, details, created_at FROM audit_logs " + //nolint:gosec // as above
			where + " ORDER BY created_at DESC LIMIT ? OFFSET ?"
		rows, err := conn.QueryContext(ctx, query, append(args, filter.Limit, filter.Offset)...)
		if err != nil {
			return fmt.Errorf("querying audit entries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			e, err := scanEntry(rows)
			if err != nil {
				return err
			}
			result.Entries = append(result.Entries, *e)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func scanEntry(rows *sql.Rows) (*Entry, error) {
	var e Entry
	var entityID, actor, details sql.NullString
	var createdAt string
	if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &entityID, &actor, &details, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning audit entry: %w", err)
	}
	e.EntityID = entityID.String
	e.Actor = actor.String
	if details.Valid && details.String != "" {
		var m map[string]any
		if json.Unmarshal([]byte(details.String), &m) == nil {
			e.Details = m
		}
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing audit timestamp %q: %w", createdAt, err)
	}
	e.CreatedAt = t
	return &e, nil
}
