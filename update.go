package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"golang.org/x/exp/slog"
)

// ErrRowNotFound 主键没有对应的行
var ErrRowNotFound = errors.New("row not found")

// RowError 单行更新失败
type RowError struct {
	Key int64
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("update row %d, %v", e.Key, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Result 已提交的更新统计
type Result struct {
	Rows    int64
	Missing int64
	Commits int64
}

// Add 累加另一个结果
func (r *Result) Add(other Result) {
	r.Rows += other.Rows
	r.Missing += other.Missing
	r.Commits += other.Commits
}

// Updater 逐行执行 blockList = blobName + 2
//
// 失败的语句会回滚当前事务并返回 *RowError。
// skipMissing 为真时，找不到的主键只计数不中断。
type Updater struct {
	db          *DB
	skipMissing bool
}

func newUpdater(db *DB, skipMissing bool) *Updater {
	return &Updater{db: db, skipMissing: skipMissing}
}

// UpdateBatch 整个区间在一个事务内更新，结束时提交一次
func (u *Updater) UpdateBatch(ctx context.Context, keys Range) (result Result, err error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin, %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, rbErr)
			}
		}
	}()

	stmt, err := tx.PreparexContext(ctx, u.db.stmt.update)
	if err != nil {
		return result, fmt.Errorf("prepare update, %w", err)
	}
	defer stmt.Close()

	var pending Result
	for key := keys.Start; key < keys.End; key++ {
		if err = ctx.Err(); err != nil {
			return result, err
		}

		if err = u.exec(ctx, stmt, key, &pending); err != nil {
			return result, err
		}
	}

	if err = tx.Commit(); err != nil {
		return result, fmt.Errorf("commit, %w", err)
	}
	pending.Commits++

	slog.Debug("batch committed", slog.String("range", keys.String()), slog.Int64("rows", pending.Rows))
	return pending, nil
}

// UpdatePerRow 每一行单独开启事务并提交
func (u *Updater) UpdatePerRow(ctx context.Context, keys Range) (Result, error) {
	stmt, err := u.db.PreparexContext(ctx, u.db.stmt.update)
	if err != nil {
		return Result{}, fmt.Errorf("prepare update, %w", err)
	}
	defer stmt.Close()

	var result Result
	for key := keys.Start; key < keys.End; key++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		if err := u.updateOne(ctx, stmt, key, &result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (u *Updater) updateOne(ctx context.Context, stmt *sqlx.Stmt, key int64, result *Result) (err error) {
	tx, err := u.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin, %w", err)
	}

	var pending Result
	if err = u.exec(ctx, tx.StmtxContext(ctx, stmt), key, &pending); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			err = errors.Join(err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return &RowError{Key: key, Err: fmt.Errorf("commit, %w", err)}
	}
	pending.Commits++

	result.Add(pending)
	return nil
}

func (u *Updater) exec(ctx context.Context, stmt *sqlx.Stmt, key int64, pending *Result) error {
	res, err := stmt.ExecContext(ctx, expectedValue(key), key)
	if err != nil {
		return &RowError{Key: key, Err: err}
	}

	n, err := res.RowsAffected()
	if err != nil {
		return &RowError{Key: key, Err: err}
	}

	if n == 0 {
		if !u.skipMissing {
			return &RowError{Key: key, Err: ErrRowNotFound}
		}
		pending.Missing++
		slog.Debug("row not found", slog.Int64("key", key))
		return nil
	}

	pending.Rows += n
	return nil
}
