package main

import (
	"fmt"
	"time"
)

// Report 一次更新的耗时和结果
type Report struct {
	Strategy Strategy
	Driver   string
	Workers  int
	Duration time.Duration
	Result
}

// Milliseconds 耗时毫秒数
func (r *Report) Milliseconds() int64 {
	return r.Duration.Milliseconds()
}

// RowsPerSecond 每秒更新行数
func (r *Report) RowsPerSecond() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Rows) / r.Duration.Seconds()
}

func (r *Report) String() string {
	return fmt.Sprintf("strategy: %s, driver: %s, worker: %d, elapsed: %dms, rows: %d, missing: %d, commits: %d, rows/s: %.2f",
		r.Strategy, r.Driver, r.Workers, r.Milliseconds(), r.Rows, r.Missing, r.Commits, r.RowsPerSecond())
}

// measure 记录开始和结束时间，返回 fn 的执行耗时
func measure(fn func() (Result, error)) (time.Duration, Result, error) {
	startTime := time.Now()
	result, err := fn()
	return time.Since(startTime), result, err
}
