package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute 以命令行参数运行一次，flag 每次都恢复为默认值
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	for _, fs := range []*pflag.FlagSet{rootCmd.PersistentFlags(), runCmd.Flags()} {
		fs.VisitAll(func(f *pflag.Flag) {
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		})
	}

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func sqliteArgs(t *testing.T, rows string, args ...string) []string {
	file := filepath.Join(t.TempDir(), "bench.db")
	return append([]string{"--driver", "sqlite3", "--file", file, "--rows", rows}, args...)
}

func TestCommandSeedRunVerify(t *testing.T) {
	base := sqliteArgs(t, "200")

	out, err := execute(t, append(base, "seed")...)
	require.NoError(t, err)
	assert.Contains(t, out, "seeded 200 rows into Tests")

	out, err = execute(t, append(base, "run", "all", "--verify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: row, driver: sqlite3, worker: 1")
	assert.Contains(t, out, "rows: 200, missing: 0, commits: 200")
	assert.Contains(t, out, "strategy: batch, driver: sqlite3, worker: 1")
	assert.Contains(t, out, "rows: 200, missing: 0, commits: 1,")
	assert.Contains(t, out, "strategy: parallel, driver: sqlite3, worker: 5")
	assert.Contains(t, out, "rows: 200, missing: 0, commits: 5,")
	assert.Contains(t, out, "checked: 200, missing: 0, mismatched: 0")

	out, err = execute(t, append(base, "verify")...)
	require.NoError(t, err)
	assert.Contains(t, out, "checked: 200, missing: 0, mismatched: 0")
}

func TestCommandRunFromEnv(t *testing.T) {
	t.Setenv("UPDATEBENCH_DRIVER", "sqlite")
	t.Setenv("UPDATEBENCH_FILE", filepath.Join(t.TempDir(), "env.db"))
	t.Setenv("UPDATEBENCH_ROWS", "50")

	out, err := execute(t, "run", "batch", "--seed", "--verify")
	require.NoError(t, err)
	assert.Contains(t, out, "strategy: batch, driver: sqlite,")
	assert.Contains(t, out, "rows: 50, missing: 0, commits: 1,")
	assert.Contains(t, out, "checked: 50, missing: 0, mismatched: 0")
}

func TestCommandVerifyFails(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bench.db")
	args := func(rows string, rest ...string) []string {
		return append([]string{"--driver", "sqlite3", "--file", file, "--rows", rows}, rest...)
	}

	_, err := execute(t, args("10", "seed")...)
	require.NoError(t, err)

	// 只写入了初始值
	out, err := execute(t, args("10", "verify")...)
	require.EqualError(t, err, "verify failed")
	assert.Contains(t, out, "checked: 10, missing: 0, mismatched: 10")

	_, err = execute(t, args("10", "run", "batch")...)
	require.NoError(t, err)

	out, err = execute(t, args("12", "verify")...)
	require.EqualError(t, err, "verify failed")
	assert.Contains(t, out, "checked: 10, missing: 2, mismatched: 0")
}

func TestCommandRunReportsPartialFailure(t *testing.T) {
	file := filepath.Join(t.TempDir(), "bench.db")
	base := []string{"--driver", "sqlite3", "--file", file}

	_, err := execute(t, append(base, "--rows", "100", "seed")...)
	require.NoError(t, err)

	out, err := execute(t, append(base, "--rows", "120", "--workers", "6", "run", "parallel")...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRowNotFound)
	assert.Contains(t, err.Error(), "partition [100,120)")

	// 成功分区已提交的结果照常输出
	assert.Contains(t, out, "strategy: parallel, driver: sqlite3, worker: 6")
	assert.Contains(t, out, "rows: 100, missing: 0, commits: 5,")
}

func TestCommandInvalidArgs(t *testing.T) {
	_, err := execute(t, sqliteArgs(t, "10", "run", "bulk")...)
	assert.Error(t, err)

	_, err = execute(t, "--driver", "oracle", "verify")
	assert.Error(t, err)
}
