package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/slog"
)

// PartitionError 某个分区更新失败，不影响其它分区已提交的数据
type PartitionError struct {
	Range Range
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s, %v", e.Range, e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// dispatch 每个分区一个goroutine并发执行，全部结束后返回汇总结果
//
// 成功分区的结果照常累加，失败分区的错误合并返回
func dispatch(ctx context.Context, parts []Range, fn func(context.Context, Range) (Result, error)) (Result, error) {
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		total  Result
		result *multierror.Error
	)

	for _, part := range parts {
		wg.Add(1)

		go func(part Range) {
			defer wg.Done()

			res, err := fn(ctx, part)

			mu.Lock()
			defer mu.Unlock()

			total.Add(res)
			if err != nil {
				slog.Warn("partition failed", slog.String("range", part.String()), slog.String("error", err.Error()))
				result = multierror.Append(result, &PartitionError{Range: part, Err: err})
			}
		}(part)
	}
	wg.Wait()

	return total, result.ErrorOrNil()
}

// updatePartition 使用独立连接和独立事务更新一个分区
func updatePartition(connect func(context.Context) (*DB, error), skipMissing bool) func(context.Context, Range) (Result, error) {
	return func(ctx context.Context, keys Range) (Result, error) {
		db, err := connect(ctx)
		if err != nil {
			return Result{}, err
		}
		defer db.Close()

		return newUpdater(db, skipMissing).UpdateBatch(ctx, keys)
	}
}
