package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"

	"github.com/Konsultn-Engineering/sqlmap/database"
	"github.com/Konsultn-Engineering/sqlmap/dialect"
)

// MySQLProvider opens MySQL-protocol databases (MySQL, TiDB) through
// go-sql-driver/mysql.
type MySQLProvider struct {
	name    string
	dialect dialect.Dialect
}

func (p MySQLProvider) Name() string { return p.name }
func (p MySQLProvider) Dialect() dialect.Dialect { return p.dialect }

func (p MySQLProvider) Open(ctx context.Context, cfg Config) (database.Executor, error) {
	db, err := sql.Open("mysql", MySQLDSN(cfg))
	if err != nil {
		return nil, err
	}
	if cfg.Pool.MaxOpen > 0 {
		db.SetMaxOpenConns(cfg.Pool.MaxOpen)
	}
	if cfg.Pool.MaxIdle > 0 {
		db.SetMaxIdleConns(cfg.Pool.MaxIdle)
	}
	db.SetConnMaxLifetime(cfg.Pool.MaxLifetime)
	db.SetConnMaxIdleTime(cfg.Pool.MaxIdleTime)

	if err := retryConnect(ctx, cfg.Retry, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s %s:%d: %w", p.name, cfg.Host, cfg.Port, err)
	}
	return database.NewSQLExecutor(db), nil
}

// MySQLDSN builds the driver DSN for cfg.
func MySQLDSN(cfg Config) string {
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	mc.DBName = cfg.Database
	mc.ParseTime = true
	mc.Timeout = cfg.ConnectTimeout
	if len(cfg.Params) > 0 {
		mc.Params = make(map[string]string, len(cfg.Params))
		for k, v := range cfg.Params {
			mc.Params[k] = v
		}
	}
	return mc.FormatDSN()
}
