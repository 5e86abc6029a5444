package store

import (
	"context"
	"fmt"
	"strings"

	"broadoak/internal/model"
	"broadoak/internal/reconcile"
)

// RecordChanges 写入班次变更日志；签名已存在的变更被忽略，返回新写入条数
func (s *Store) RecordChanges(ctx context.Context, importID string, changes []reconcile.ChangeSet) (int, error) {
	if len(changes) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO shift_events (import_id, shift_id, kind, fields, signature)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	recorded := 0
	for _, c := range changes {
		if c.Kind == reconcile.ChangeUnchanged {
			continue
		}
		res, err := stmt.ExecContext(ctx, importID, c.ShiftID, string(c.Kind), strings.Join(c.Fields, ","), c.Signature())
		if err != nil {
			return 0, fmt.Errorf("failed to record shift event: %w", err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			recorded++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit shift events: %w", err)
	}
	return recorded, nil
}

// ListShiftEvents 查询某个班次的变更日志，shiftID 为空时返回最近的全部变更
func (s *Store) ListShiftEvents(ctx context.Context, shiftID string, limit int) ([]model.ShiftEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id, import_id, shift_id, kind, fields, signature, created_at FROM shift_events`
	args := []any{}
	if shiftID != "" {
		query += ` WHERE shift_id = ?`
		args = append(args, shiftID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift events: %w", err)
	}
	defer rows.Close()

	events := []model.ShiftEvent{}
	for rows.Next() {
		var e model.ShiftEvent
		var fields string
		if err := rows.Scan(&e.ID, &e.ImportID, &e.ShiftID, &e.Kind, &fields, &e.Signature, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shift event: %w", err)
		}
		if fields != "" {
			e.Fields = strings.Split(fields, ",")
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
