package main

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	_ "github.com/jackc/pgx/v4/stdlib"
	_ "github.com/lib/pq"
)

func pgsqlSchema(table string) []string {
	return []string{
		fmt.Sprintf(`create table if not exists %s(
			"blobName" bigint primary key,
			"blockList" bigint not null default 0,
			"containerName" text,
			"accountName" text
		)`, table),
	}
}

// pgsqlDSN pgx和lib/pq都能识别的URL格式
func pgsqlDSN(cfg Config) string {
	u := &url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.port())),
		Path:     "/" + cfg.Database,
		RawQuery: "sslmode=disable",
	}
	if cfg.Password != "" {
		u.User = url.UserPassword(cfg.User, cfg.Password)
	} else if cfg.User != "" {
		u.User = url.User(cfg.User)
	}
	return u.String()
}
