package main

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

const (
	defaultTable   = "Tests"
	defaultRows    = 10000
	defaultWorkers = 5
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Config 运行配置
type Config struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string

	// File sqlite数据库文件
	File   string
	Pragma Pragma

	Table       string
	Rows        int64
	Workers     int
	SkipMissing bool
	Debug       bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("driver", "mysql")
	v.SetDefault("host", "localhost")
	v.SetDefault("port", 0)
	v.SetDefault("user", "root")
	v.SetDefault("password", "")
	v.SetDefault("database", "bench")
	v.SetDefault("file", "updatebench.db")
	v.SetDefault("table", defaultTable)
	v.SetDefault("rows", defaultRows)
	v.SetDefault("workers", defaultWorkers)
	v.SetDefault("skip_missing", false)
	v.SetDefault("debug", false)
	v.SetDefault("sqlite.busy_timeout", 5000)
	v.SetDefault("sqlite.txlock", "immediate")
	v.SetDefault("sqlite.journal_mode", "")
	v.SetDefault("sqlite.synchronous", "")
	v.SetDefault("sqlite.cache_size", 0)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("updatebench")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

// newConfig 从flag、环境变量、配置文件读取并校验
func newConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		Driver:   v.GetString("driver"),
		Host:     v.GetString("host"),
		Port:     v.GetInt("port"),
		User:     v.GetString("user"),
		Password: v.GetString("password"),
		Database: v.GetString("database"),
		File:     v.GetString("file"),
		Pragma: Pragma{
			BusyTimeout: v.GetInt("sqlite.busy_timeout"),
			TxLock:      v.GetString("sqlite.txlock"),
			JournalMode: v.GetString("sqlite.journal_mode"),
			Synchronous: v.GetString("sqlite.synchronous"),
			CacheSize:   v.GetInt("sqlite.cache_size"),
		},
		Table:       v.GetString("table"),
		Rows:        v.GetInt64("rows"),
		Workers:     v.GetInt("workers"),
		SkipMissing: v.GetBool("skip_missing"),
		Debug:       v.GetBool("debug"),
	}

	if dialectOf(cfg.Driver) == "" {
		return cfg, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	if !identPattern.MatchString(cfg.Table) {
		return cfg, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	if cfg.Rows <= 0 {
		return cfg, errors.New("rows must be greater than 0")
	}
	if cfg.Workers <= 0 {
		return cfg, errors.New("workers must be greater than 0")
	}
	return cfg, nil
}

// Keys 需要更新的主键范围 [0, Rows)
func (c Config) Keys() Range {
	return Range{Start: 0, End: c.Rows}
}

func (c Config) port() int {
	if c.Port != 0 {
		return c.Port
	}

	switch dialectOf(c.Driver) {
	case "postgres":
		return 5432
	case "mysql":
		return 3306
	}
	return 0
}

// DSN 按驱动生成连接串
func (c Config) DSN() (string, error) {
	switch dialectOf(c.Driver) {
	case "postgres":
		return pgsqlDSN(c), nil
	case "mysql":
		return mysqlDSN(c), nil
	case "sqlite":
		if c.File == "" {
			return "", errors.New("sqlite file is required")
		}
		return sqliteDSN(c.Driver, c.File, c.Pragma), nil
	}
	return "", fmt.Errorf("unsupported driver %q", c.Driver)
}

// Addr 用于日志和错误信息，不包含密码
func (c Config) Addr() string {
	if dialectOf(c.Driver) == "sqlite" {
		return c.File
	}
	return fmt.Sprintf("%s/%s", net.JoinHostPort(c.Host, strconv.Itoa(c.port())), c.Database)
}
