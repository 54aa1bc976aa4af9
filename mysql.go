package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
)

func mysqlSchema(table string) []string {
	return []string{
		fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s ("+
			"`blobName` BIGINT NOT NULL PRIMARY KEY, "+
			"`blockList` BIGINT NOT NULL DEFAULT 0, "+
			"`containerName` VARCHAR(255), "+
			"`accountName` VARCHAR(255)"+
			") ENGINE=InnoDB", table),
	}
}

func mysqlDSN(cfg Config) string {
	c := mysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.port()))
	c.DBName = cfg.Database
	// 值未变化时也按匹配行数返回 RowsAffected，否则重复执行会被当成找不到行
	c.ClientFoundRows = true
	return c.FormatDSN()
}
