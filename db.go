package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Pragma sqlite数据库配置
//
// https://www.sqlite.org/pragma.html
type Pragma struct {
	BusyTimeout       int
	Cache             string
	CacheSize         int
	FullSync          bool
	JournalMode       string
	MmapSize          int
	Synchronous       string
	TempStore         string
	TxLock            string
	WALAutoCheckpoint int
}

func (p Pragma) encode(driver string) string {
	switch driver {
	case "sqlite3":
		return p.encodeMattn()
	case "sqlite":
		return p.encodeModernc()
	}
	return ""
}

func (p Pragma) encodeMattn() string {
	val := url.Values{}

	if v := p.JournalMode; v != "" {
		val.Set("_journal_mode", v)
	}
	if v := p.Synchronous; v != "" {
		val.Set("_synchronous", v)
	}
	if v := p.CacheSize; v != 0 {
		val.Set("_cache_size", fmt.Sprintf("%d", v))
	}
	if v := p.BusyTimeout; v != 0 {
		val.Set("_busy_timeout", fmt.Sprintf("%d", v))
	}
	if v := p.FullSync; v {
		val.Set("_fullsync", "1")
	}
	if v := p.TempStore; v != "" {
		val.Set("_temp_store", v)
	}
	if v := p.MmapSize; v != 0 {
		val.Set("_mmap_size", fmt.Sprintf("%d", v))
	}
	if v := p.Cache; v != "" {
		val.Set("cache", v)
	}
	if v := p.TxLock; v != "" {
		val.Set("_txlock", v)
	}
	if v := p.WALAutoCheckpoint; v != 0 {
		val.Set("_wal_autocheckpoint", fmt.Sprintf("%d", v))
	}

	result, _ := url.QueryUnescape(val.Encode())
	return result
}

func (p Pragma) encodeModernc() string {
	val := url.Values{}

	if v := p.JournalMode; v != "" {
		val.Add("_pragma", fmt.Sprintf("journal_mode(%s)", v))
	}
	if v := p.Synchronous; v != "" {
		val.Add("_pragma", fmt.Sprintf("synchronous(%s)", v))
	}
	if v := p.CacheSize; v != 0 {
		val.Add("_pragma", fmt.Sprintf("cache_size(%d)", v))
	}
	if v := p.BusyTimeout; v != 0 {
		val.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", v))
	}
	if v := p.FullSync; v {
		val.Add("_pragma", "fullsync(1)")
	}
	if v := p.TempStore; v != "" {
		val.Add("_pragma", fmt.Sprintf("temp_store(%s)", v))
	}
	if v := p.MmapSize; v != 0 {
		val.Add("_pragma", fmt.Sprintf("mmap_size(%d)", v))
	}
	if v := p.Cache; v != "" {
		val.Set("cache", v)
	}
	if v := p.TxLock; v != "" {
		val.Set("_txlock", v)
	}
	if v := p.WALAutoCheckpoint; v != 0 {
		val.Add("_pragma", fmt.Sprintf("wal_autocheckpoint(%d)", v))
	}

	result, _ := url.QueryUnescape(val.Encode())
	return result
}

// ConnectError 建立连接失败
type ConnectError struct {
	Driver string
	Addr   string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s %s, %v", e.Driver, e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// DB 数据库连接
//
// 连接池限制为一个连接，所有写操作都在显式事务内执行，等同于关闭自动提交
type DB struct {
	*sqlx.DB

	stmt statements
	dsn  string
}

// NewDB 创建数据库连接
//
//	driver=pgx use github.com/jackc/pgx/v4/stdlib
//	driver=postgres use github.com/lib/pq
//	driver=mysql use github.com/go-sql-driver/mysql
//	driver=sqlite3 use github.com/mattn/go-sqlite3
//	driver=sqlite use modernc.org/sqlite
func NewDB(ctx context.Context, driver, dsn, table string) (*DB, error) {
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	return &DB{
		DB:   db.Unsafe(),
		stmt: newStatements(driver, table),
		dsn:  dsn,
	}, nil
}

// Connect 按配置打开一个独立的数据库连接
func Connect(ctx context.Context, cfg Config) (*DB, error) {
	dsn, err := cfg.DSN()
	if err != nil {
		return nil, err
	}

	db, err := NewDB(ctx, cfg.Driver, dsn, cfg.Table)
	if err != nil {
		return nil, &ConnectError{Driver: cfg.Driver, Addr: cfg.Addr(), Err: err}
	}
	return db, nil
}

func dialectOf(driver string) string {
	switch driver {
	case "pgx", "postgres":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	}
	return ""
}

func quoteIdent(driver, name string) string {
	if dialectOf(driver) == "mysql" {
		return "`" + name + "`"
	}
	return `"` + name + `"`
}

type statements struct {
	create []string
	update string
	insert string
	rows   string
	clear  string
}

func newStatements(driver, table string) statements {
	q := func(name string) string {
		return quoteIdent(driver, name)
	}
	bind := sqlx.BindType(driver)

	var create []string
	switch dialectOf(driver) {
	case "postgres":
		create = pgsqlSchema(q(table))
	case "mysql":
		create = mysqlSchema(q(table))
	default:
		create = sqliteSchema(q(table))
	}

	return statements{
		create: create,
		update: sqlx.Rebind(bind, fmt.Sprintf(`UPDATE %s SET %s = ? WHERE %s = ?`,
			q(table), q("blockList"), q("blobName"))),
		insert: fmt.Sprintf(`INSERT INTO %s (%s, %s, %s, %s) VALUES (:blobName, :blockList, :containerName, :accountName)`,
			q(table), q("blobName"), q("blockList"), q("containerName"), q("accountName")),
		rows: sqlx.Rebind(bind, fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s >= ? AND %s < ? ORDER BY %s`,
			q("blobName"), q("blockList"), q(table), q("blobName"), q("blobName"), q("blobName"))),
		clear: fmt.Sprintf(`DELETE FROM %s`, q(table)),
	}
}

func prepareSchema(ctx context.Context, db *DB) error {
	for _, cmd := range db.stmt.create {
		if _, err := db.ExecContext(ctx, cmd); err != nil {
			return err
		}
	}
	return nil
}

func newTestDB(dirver string, pragme Pragma) (path string, db *DB, err error) {
	path, err = os.MkdirTemp("", "sqlite-*")
	if err != nil {
		err = fmt.Errorf("make temp dir, %w", err)
		return
	}

	defer func() {
		if err != nil {
			if removeErr := os.RemoveAll(path); removeErr != nil {
				err = errors.Join(err, removeErr)
			}
		}
	}()

	dsn := sqliteDSN(dirver, filepath.Join(path, "test.db"), pragme)
	db, err = NewDB(context.Background(), dirver, dsn, defaultTable)
	if err != nil {
		err = fmt.Errorf("connect database, %w", err)
		return
	}

	if err = prepareSchema(context.Background(), db); err != nil {
		db.Close()
		err = fmt.Errorf("prepare database, %w", err)
		return
	}
	return
}
