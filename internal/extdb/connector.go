package extdb

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/microsoft/go-mssqldb" // registers "sqlserver"
	go_ora "github.com/sijms/go-ora/v2"

	"askdb.dev/askdb/internal/config"
)

// Connector opens short-lived handles to the external database. Nothing is
// pooled between operations: every Open is paired with a Close by the caller.
type Connector struct {
	vendor         Vendor
	settings       config.DBSettings
	connectTimeout time.Duration
	open           func(driver, dsn string) (*sql.DB, error)
}

func NewConnector(cfg config.ExternalDBConfig) (*Connector, error) {
	vendor, err := ParseVendor(cfg.Type)
	if err != nil {
		return nil, err
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Connector{
		vendor:         vendor,
		settings:       cfg.Settings(),
		connectTimeout: timeout,
		open:           sql.Open,
	}, nil
}

func (c *Connector) Vendor() Vendor { return c.vendor }

// Open returns a single-connection handle that has already answered a ping.
func (c *Connector) Open(ctx context.Context) (*sql.DB, error) {
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}
	db, err := c.open(c.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s connection: %w", c.vendor.DisplayName(), err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, c.connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s: %w", c.vendor.DisplayName(), err)
	}
	return db, nil
}

// driverName honours an explicit Go driver choice for SQL Server ("mssql" or
// "sqlserver"); anything else, such as an ODBC driver name, is ignored.
func (c *Connector) driverName() string {
	if c.vendor == SQLServer && c.settings.Driver == "mssql" {
		return "mssql"
	}
	return c.vendor.DriverName()
}

// DSN renders the vendor specific connection string.
func (c *Connector) DSN() (string, error) {
	s := c.settings
	if s.Host == "" {
		return "", fmt.Errorf("%s host is not configured", c.vendor.DisplayName())
	}
	hostPort := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
	secs := strconv.Itoa(int(c.connectTimeout / time.Second))

	switch c.vendor {
	case MySQL:
		mc := mysql.NewConfig()
		mc.User = s.User
		mc.Passwd = s.Password
		mc.Net = "tcp"
		mc.Addr = hostPort
		mc.DBName = s.Database
		mc.Timeout = c.connectTimeout
		return mc.FormatDSN(), nil

	case PostgreSQL:
		u := &url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.User, s.Password),
			Host:     hostPort,
			Path:     "/" + s.Database,
			RawQuery: url.Values{"connect_timeout": {secs}}.Encode(),
		}
		return u.String(), nil

	case Oracle:
		return go_ora.BuildUrl(s.Host, s.Port, s.Database, s.User, s.Password, map[string]string{
			"CONNECTION TIMEOUT": secs,
		}), nil

	case SQLServer:
		q := url.Values{}
		q.Set("database", s.Database)
		q.Set("connection timeout", secs)
		q.Set("TrustServerCertificate", "true")
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(s.User, s.Password),
			Host:     hostPort,
			RawQuery: q.Encode(),
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("unsupported database type %q", c.vendor)
}
