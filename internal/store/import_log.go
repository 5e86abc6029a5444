package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"broadoak/internal/model"
)

// SaveImportLog 写入或更新导入日志，并以 failures 替换该次导入的失败记录
func (s *Store) SaveImportLog(ctx context.Context, log model.ImportLog, failures []model.Failure) error {
	sheets, err := json.Marshal(log.Sheets)
	if err != nil {
		return fmt.Errorf("failed to encode sheets: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var completed any
	if log.CompletedAt != nil {
		completed = log.CompletedAt.UTC()
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO import_logs (
			id, filename, file_hash, sheets, dry_run, status,
			creates, updates, deletes, failures, error_message, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			dry_run = excluded.dry_run,
			status = excluded.status,
			creates = excluded.creates,
			updates = excluded.updates,
			deletes = excluded.deletes,
			failures = excluded.failures,
			error_message = excluded.error_message,
			completed_at = excluded.completed_at
	`, log.ID, log.Filename, log.FileHash, string(sheets), log.DryRun, string(log.Status),
		log.Creates, log.Updates, log.Deletes, log.Failures, log.Error, log.StartedAt.UTC(), completed)
	if err != nil {
		return fmt.Errorf("failed to save import log: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM import_failures WHERE import_id = ?`, log.ID); err != nil {
		return fmt.Errorf("failed to clear import failures: %w", err)
	}

	if len(failures) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO import_failures (import_id, shift_date, project, cell_text, reason, sheet)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, f := range failures {
			var date sql.NullString
			if f.Date != nil {
				date = sql.NullString{String: f.Date.UTC().Format(model.DateLayout), Valid: true}
			}
			if _, err := stmt.ExecContext(ctx, log.ID, date, f.Project, f.CellText, f.Reason, f.Sheet); err != nil {
				return fmt.Errorf("failed to insert import failure: %w", err)
			}
		}
	}

	return tx.Commit()
}

// GetImportLog 按 ID 查询导入日志
func (s *Store) GetImportLog(ctx context.Context, id string) (model.ImportLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+importLogColumns+` FROM import_logs WHERE id = ?`, id)
	log, err := scanImportLog(row)
	if err == sql.ErrNoRows {
		return model.ImportLog{}, ErrImportNotFound
	}
	return log, err
}

// ListImportLogs 按开始时间倒序列出最近的导入日志
func (s *Store) ListImportLogs(ctx context.Context, limit int) ([]model.ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+importLogColumns+`
		FROM import_logs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query import logs: %w", err)
	}
	defer rows.Close()

	var logs []model.ImportLog
	for rows.Next() {
		log, err := scanImportLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}

// ListImportFailures 查询某次导入的失败记录
func (s *Store) ListImportFailures(ctx context.Context, importID string) ([]model.Failure, error) {
	if _, err := s.GetImportLog(ctx, importID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT shift_date, project, cell_text, reason, sheet
		FROM import_failures
		WHERE import_id = ?
		ORDER BY id
	`, importID)
	if err != nil {
		return nil, fmt.Errorf("failed to query import failures: %w", err)
	}
	defer rows.Close()

	failures := []model.Failure{}
	for rows.Next() {
		var f model.Failure
		var date sql.NullString
		if err := rows.Scan(&date, &f.Project, &f.CellText, &f.Reason, &f.Sheet); err != nil {
			return nil, fmt.Errorf("failed to scan import failure: %w", err)
		}
		if date.Valid {
			if d, err := model.ParseDate(date.String); err == nil {
				f.Date = &d
			}
		}
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

const importLogColumns = `id, filename, file_hash, sheets, dry_run, status, creates, updates, deletes, failures, error_message, started_at, completed_at`

func scanImportLog(r rowScanner) (model.ImportLog, error) {
	var log model.ImportLog
	var sheets, status string
	var completed sql.NullTime
	var started time.Time
	if err := r.Scan(&log.ID, &log.Filename, &log.FileHash, &sheets, &log.DryRun, &status,
		&log.Creates, &log.Updates, &log.Deletes, &log.Failures, &log.Error, &started, &completed); err != nil {
		if err == sql.ErrNoRows {
			return log, err
		}
		return log, fmt.Errorf("failed to scan import log: %w", err)
	}
	if err := json.Unmarshal([]byte(sheets), &log.Sheets); err != nil {
		return log, fmt.Errorf("failed to decode sheets: %w", err)
	}
	log.Status = model.ImportStatus(status)
	log.StartedAt = started
	if completed.Valid {
		t := completed.Time
		log.CompletedAt = &t
	}
	return log, nil
}
