package main

import (
	"context"
	"fmt"

	"github.com/go-faker/faker/v4"
)

// row Tests表中的一行，blockList 为可变字段
type row struct {
	BlobName      int64  `db:"blobName" faker:"-"`
	BlockList     int64  `db:"blockList" faker:"-"`
	ContainerName string `db:"containerName" faker:"word"`
	AccountName   string `db:"accountName" faker:"username"`
}

// rowValue 校验时只读取主键和可变字段
type rowValue struct {
	BlobName  int64 `db:"blobName"`
	BlockList int64 `db:"blockList"`
}

// expectedValue 更新后 blockList 的值
func expectedValue(key int64) int64 {
	return key + 2
}

// Range 主键区间 [Start, End)
type Range struct {
	Start int64
	End   int64
}

// Len 区间内主键数量
func (r Range) Len() int64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Contains 是否包含指定主键
func (r Range) Contains(key int64) bool {
	return key >= r.Start && key < r.End
}

func (r Range) String() string {
	return fmt.Sprintf("[%d,%d)", r.Start, r.End)
}

// Split 切分为n个连续且不相交的分区
//
// 不能整除时余数分摊到前面的分区，n大于区间长度时按区间长度切分
func (r Range) Split(n int) []Range {
	total := r.Len()
	if n <= 0 || total == 0 {
		return nil
	}
	if int64(n) > total {
		n = int(total)
	}

	size, rest := total/int64(n), total%int64(n)
	parts := make([]Range, 0, n)

	start := r.Start
	for i := 0; i < n; i++ {
		end := start + size
		if int64(i) < rest {
			end++
		}
		parts = append(parts, Range{Start: start, End: end})
		start = end
	}
	return parts
}

func fakeRow(key int64) (*row, error) {
	r := &row{}
	if err := faker.FakeData(r); err != nil {
		return nil, err
	}
	r.BlobName = key
	r.BlockList = 0
	return r, nil
}

// seedRows 清空表并写入 keys 范围内的行，blockList 初始为0
func seedRows(ctx context.Context, db *DB, keys Range) (err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin, %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, db.stmt.clear); err != nil {
		return fmt.Errorf("clear rows, %w", err)
	}

	stmt, err := tx.PrepareNamedContext(ctx, db.stmt.insert)
	if err != nil {
		return fmt.Errorf("prepare insert, %w", err)
	}
	defer stmt.Close()

	for key := keys.Start; key < keys.End; key++ {
		var r *row
		if r, err = fakeRow(key); err != nil {
			return fmt.Errorf("fake row %d, %w", key, err)
		}
		if _, err = stmt.ExecContext(ctx, r); err != nil {
			return fmt.Errorf("insert row %d, %w", key, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit, %w", err)
	}
	return nil
}
