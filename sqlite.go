package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/exp/slog"
)

func sqliteSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			"blobName" INTEGER PRIMARY KEY,
			"blockList" INTEGER NOT NULL DEFAULT 0,
			"containerName" TEXT,
			"accountName" TEXT
		)`, table),
	}
}

func sqliteDSN(driver, file string, pragma Pragma) string {
	return fmt.Sprintf("%s?%s", file, pragma.encode(driver))
}

// 并行更新时多个连接同时写一个文件，必须立即加写锁并等待
var sqlitePragmas = []Pragma{
	{
		BusyTimeout: 5000,
		TxLock:      "immediate",
	},
	{
		BusyTimeout: 5000,
		TxLock:      "immediate",
		JournalMode: "WAL",
		Synchronous: "NORMAL",
	},
	{
		BusyTimeout: 5000,
		TxLock:      "immediate",
		JournalMode: "WAL",
		Synchronous: "OFF",
		TempStore:   "MEMORY",
		CacheSize:   10000,
	},
}

// sqliteUpdateMatrix 在临时sqlite数据库上对比各驱动、配置和提交策略
func sqliteUpdateMatrix(ctx context.Context, keys Range, workers int) error {
	dirvers := []string{
		"sqlite",
		"sqlite3",
	}

	for _, pragma := range sqlitePragmas {
		for _, driver := range dirvers {
			if err := sqliteUpdateCase(ctx, driver, pragma, keys, workers); err != nil {
				return err
			}
		}
	}
	return nil
}

func sqliteUpdateCase(ctx context.Context, driver string, pragma Pragma, keys Range, workers int) error {
	path, db, err := newTestDB(driver, pragma)
	if err != nil {
		return fmt.Errorf("prepare test database, %w", err)
	}
	defer os.RemoveAll(path)
	defer db.Close()

	if err := seedRows(ctx, db, keys); err != nil {
		return fmt.Errorf("seed rows, %w", err)
	}

	bench := &Bench{
		Driver:  driver,
		Keys:    keys,
		Workers: workers,
		Connect: func(ctx context.Context) (*DB, error) {
			return NewDB(ctx, driver, db.dsn, defaultTable)
		},
	}

	fmt.Println("")
	fmt.Printf("%s:%s\n", driver, db.dsn)
	for _, s := range strategies {
		report, err := bench.Run(ctx, s)
		if err != nil {
			return fmt.Errorf("run %s, %w", s, err)
		}
		fmt.Println(report)

		if vr, err := verifyRows(ctx, db, keys); err != nil {
			return fmt.Errorf("verify %s, %w", s, err)
		} else if !vr.OK() {
			slog.Warn("verify failed", slog.String("strategy", string(s)), slog.String("result", vr.String()))
		}
	}
	return nil
}
