package main

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"
)

// Strategy 提交策略
type Strategy string

const (
	// StrategyPerRow 每行一个事务
	StrategyPerRow Strategy = "row"
	// StrategyBatch 单连接单事务
	StrategyBatch Strategy = "batch"
	// StrategyParallel 分区并发，每个分区独立连接和事务
	StrategyParallel Strategy = "parallel"
)

var strategies = []Strategy{StrategyPerRow, StrategyBatch, StrategyParallel}

func parseStrategies(args []string) ([]Strategy, error) {
	if len(args) == 0 {
		return []Strategy{StrategyBatch}, nil
	}

	var result []Strategy
	for _, arg := range args {
		if arg == "all" {
			result = append(result, strategies...)
			continue
		}

		switch s := Strategy(arg); s {
		case StrategyPerRow, StrategyBatch, StrategyParallel:
			result = append(result, s)
		default:
			return nil, fmt.Errorf("unknown strategy %q", arg)
		}
	}
	return result, nil
}

// Bench 按策略计时执行一次全量更新
type Bench struct {
	Connect     func(context.Context) (*DB, error)
	Driver      string
	Keys        Range
	Workers     int
	SkipMissing bool
}

// Run 计时范围包含建立连接
func (b *Bench) Run(ctx context.Context, s Strategy) (*Report, error) {
	report := &Report{
		Strategy: s,
		Driver:   b.Driver,
		Workers:  1,
	}

	var fn func() (Result, error)
	switch s {
	case StrategyPerRow, StrategyBatch:
		fn = func() (Result, error) {
			return b.runSingle(ctx, s)
		}
	case StrategyParallel:
		parts := b.Keys.Split(b.Workers)
		report.Workers = len(parts)
		fn = func() (Result, error) {
			return dispatch(ctx, parts, updatePartition(b.Connect, b.SkipMissing))
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", s)
	}

	slog.Debug("run", slog.String("strategy", string(s)), slog.String("keys", b.Keys.String()), slog.Int("workers", report.Workers))

	var err error
	report.Duration, report.Result, err = measure(fn)
	if err != nil {
		return report, err
	}
	return report, nil
}

func (b *Bench) runSingle(ctx context.Context, s Strategy) (Result, error) {
	db, err := b.Connect(ctx)
	if err != nil {
		return Result{}, err
	}
	defer db.Close()

	u := newUpdater(db, b.SkipMissing)
	if s == StrategyPerRow {
		return u.UpdatePerRow(ctx, b.Keys)
	}
	return u.UpdateBatch(ctx, b.Keys)
}
