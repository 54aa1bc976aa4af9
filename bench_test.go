package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStrategies(t *testing.T) {
	list, err := parseStrategies(nil)
	require.NoError(t, err)
	assert.Equal(t, []Strategy{StrategyBatch}, list)

	list, err = parseStrategies([]string{"all"})
	require.NoError(t, err)
	assert.Equal(t, []Strategy{StrategyPerRow, StrategyBatch, StrategyParallel}, list)

	list, err = parseStrategies([]string{"parallel", "row"})
	require.NoError(t, err)
	assert.Equal(t, []Strategy{StrategyParallel, StrategyPerRow}, list)

	_, err = parseStrategies([]string{"bulk"})
	assert.Error(t, err)
}

func TestBenchRun(t *testing.T) {
	keys := Range{Start: 0, End: 500}

	cases := []struct {
		Strategy Strategy
		Workers  int
		Commits  int64
	}{
		{Strategy: StrategyPerRow, Workers: 1, Commits: 500},
		{Strategy: StrategyBatch, Workers: 1, Commits: 1},
		{Strategy: StrategyParallel, Workers: 5, Commits: 5},
	}

	for _, driver := range testDrivers {
		t.Run(driver, func(t *testing.T) {
			for _, c := range cases {
				t.Run(string(c.Strategy), func(t *testing.T) {
					db, connect := openTestDB(t, driver, keys)
					bench := &Bench{
						Connect: connect,
						Driver:  driver,
						Keys:    keys,
						Workers: 5,
					}

					report, err := bench.Run(context.Background(), c.Strategy)
					require.NoError(t, err)
					assert.Equal(t, c.Strategy, report.Strategy)
					assert.Equal(t, c.Workers, report.Workers)
					assert.Equal(t, int64(500), report.Rows)
					assert.Equal(t, c.Commits, report.Commits)
					assert.GreaterOrEqual(t, report.Duration.Nanoseconds(), int64(0))

					vr, err := verifyRows(context.Background(), db, keys)
					require.NoError(t, err)
					assert.True(t, vr.OK(), vr.String())
				})
			}
		})
	}
}

func TestBenchRunConnectError(t *testing.T) {
	connErr := &ConnectError{Driver: "mysql", Addr: "localhost:3306/bench", Err: errors.New("refused")}
	bench := &Bench{
		Connect: func(ctx context.Context) (*DB, error) {
			return nil, connErr
		},
		Keys:    Range{Start: 0, End: 10},
		Workers: 2,
	}

	_, err := bench.Run(context.Background(), StrategyBatch)
	assert.ErrorIs(t, err, connErr)

	_, err = bench.Run(context.Background(), StrategyParallel)
	var target *ConnectError
	require.True(t, errors.As(err, &target))
	assert.Equal(t, "mysql", target.Driver)

	_, err = bench.Run(context.Background(), Strategy("bulk"))
	assert.Error(t, err)
}
