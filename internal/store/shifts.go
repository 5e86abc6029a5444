package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"broadoak/internal/model"
)

const shiftColumns = `id, user_id, user_name, shift_date, address, short_code, task, manager, shift_type, status`

// ListShiftsInRange 查询日期在 [from, to] 内（含两端）的班次
func (s *Store) ListShiftsInRange(ctx context.Context, from, to time.Time) ([]model.Shift, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shiftColumns+`
		FROM shifts
		WHERE shift_date >= ? AND shift_date <= ?
		ORDER BY shift_date, id
	`, from.UTC().Format(model.DateLayout), to.UTC().Format(model.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var shifts []model.Shift
	for rows.Next() {
		sh, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShift(r rowScanner) (model.Shift, error) {
	var sh model.Shift
	var date, typ, status string
	if err := r.Scan(&sh.ID, &sh.UserID, &sh.UserName, &date, &sh.Address, &sh.ShortCode,
		&sh.Task, &sh.Manager, &typ, &status); err != nil {
		if err == sql.ErrNoRows {
			return sh, err
		}
		return sh, fmt.Errorf("failed to scan shift: %w", err)
	}
	d, err := model.ParseDate(date)
	if err != nil {
		return sh, fmt.Errorf("invalid shift date %q: %w", date, err)
	}
	sh.Date = d
	sh.Type = model.ShiftType(typ)
	sh.Status = model.ShiftStatus(status)
	return sh, nil
}

// ApplyBatch 在单个事务中执行一批创建/更新/删除；任一操作失败则整批回滚
// 更新/删除前在事务内重读状态，已进入受保护状态的班次跳过不写；创建项带有新分配的 ID
func (s *Store) ApplyBatch(ctx context.Context, ops []model.ShiftOp, protected model.StatusSet) (model.BatchResult, error) {
	var res model.BatchResult
	if len(ops) == 0 {
		return res, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert, err := tx.PrepareContext(ctx, `
		INSERT INTO shifts (`+shiftColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	update, err := tx.PrepareContext(ctx, `
		UPDATE shifts SET
			manager = COALESCE(?, manager),
			short_code = COALESCE(?, short_code),
			shift_type = COALESCE(?, shift_type),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare update: %w", err)
	}
	defer update.Close()

	del, err := tx.PrepareContext(ctx, `DELETE FROM shifts WHERE id = ?`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer del.Close()

	current, err := tx.PrepareContext(ctx, `SELECT status FROM shifts WHERE id = ?`)
	if err != nil {
		return res, fmt.Errorf("failed to prepare status lookup: %w", err)
	}
	defer current.Close()

	// statusOf 返回班次当前状态；found=false 表示记录已不存在
	statusOf := func(id string) (model.ShiftStatus, bool, error) {
		var st string
		if err := current.QueryRowContext(ctx, id).Scan(&st); err != nil {
			if err == sql.ErrNoRows {
				return "", false, nil
			}
			return "", false, fmt.Errorf("failed to read status of shift %s: %w", id, err)
		}
		return model.ShiftStatus(st), true, nil
	}

	res.Applied = make([]model.ShiftOp, 0, len(ops))
	for _, op := range ops {
		switch op.Kind {
		case model.OpCreate:
			sh := op.Shift
			if sh.ID == "" {
				sh.ID = uuid.NewString()
			}
			if sh.Status == "" {
				sh.Status = model.StatusPendingConfirmation
			}
			if _, err := insert.ExecContext(ctx, sh.ID, sh.UserID, sh.UserName, sh.Date.UTC().Format(model.DateLayout),
				sh.Address, sh.ShortCode, sh.Task, sh.Manager, string(sh.Type), string(sh.Status)); err != nil {
				return model.BatchResult{}, fmt.Errorf("failed to insert shift: %w", err)
			}
			op.Shift = sh

		case model.OpUpdate:
			if op.Update == nil {
				return model.BatchResult{}, fmt.Errorf("update op without field changes")
			}
			u := op.Update
			st, found, err := statusOf(u.ID)
			if err != nil {
				return model.BatchResult{}, err
			}
			if !found {
				return model.BatchResult{}, fmt.Errorf("failed to update shift %s: %w", u.ID, ErrShiftNotFound)
			}
			if protected.Has(st) {
				res.Skipped = append(res.Skipped, op)
				continue
			}
			var typ *string
			if u.Type != nil {
				v := string(*u.Type)
				typ = &v
			}
			if _, err := update.ExecContext(ctx, nullable(u.Manager), nullable(u.ShortCode), nullable(typ), u.ID); err != nil {
				return model.BatchResult{}, fmt.Errorf("failed to update shift %s: %w", u.ID, err)
			}

		case model.OpDelete:
			st, found, err := statusOf(op.Shift.ID)
			if err != nil {
				return model.BatchResult{}, err
			}
			if found && protected.Has(st) {
				res.Skipped = append(res.Skipped, op)
				continue
			}
			if _, err := del.ExecContext(ctx, op.Shift.ID); err != nil {
				return model.BatchResult{}, fmt.Errorf("failed to delete shift %s: %w", op.Shift.ID, err)
			}

		default:
			return model.BatchResult{}, fmt.Errorf("unknown op kind %q", op.Kind)
		}
		res.Applied = append(res.Applied, op)
	}

	if err := tx.Commit(); err != nil {
		return model.BatchResult{}, fmt.Errorf("failed to commit batch: %w", err)
	}
	s.logger.Debug("shift batch applied", zap.Int("ops", len(res.Applied)), zap.Int("skipped", len(res.Skipped)))
	return res, nil
}

func nullable(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
