package storage

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// IsDSN reports whether output names a database sink rather than a file.
func IsDSN(output string) bool {
	scheme, _, ok := strings.Cut(output, "://")
	if !ok {
		return false
	}
	switch strings.ToLower(scheme) {
	case "sqlite", "postgres", "postgresql", "sqlserver", "mysql":
		return true
	}
	return false
}

// ParseTarget turns an -o destination URL into a backend Config.
//
// A "table" query parameter names the target table and is stripped before the
// DSN reaches the driver; defaultTable is used when it is absent.
//
//	sqlite:///abs/path.db   sqlite://rel.db   sqlite://:memory:
//	postgres://user:pw@host:5432/db
//	sqlserver://user:pw@host:1433?database=db
//	mysql://user:pw@host:3306/db
func ParseTarget(output, defaultTable string) (Config, error) {
	if !IsDSN(output) {
		return Config{}, fmt.Errorf("storage: %q is not a database URL", output)
	}
	scheme, rest, _ := strings.Cut(output, "://")
	scheme = strings.ToLower(scheme)

	body, rawQuery, _ := strings.Cut(rest, "?")
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return Config{}, fmt.Errorf("storage: parse query of %q: %w", output, err)
	}
	table := strings.TrimSpace(q.Get("table"))
	q.Del("table")
	if table == "" {
		table = strings.TrimSpace(defaultTable)
	}
	if table == "" {
		return Config{}, fmt.Errorf("storage: no table name for %s sink", scheme)
	}

	cfg := Config{Table: table}
	switch scheme {
	case "sqlite":
		if body == "" {
			return Config{}, fmt.Errorf("storage: sqlite URL needs a path")
		}
		cfg.Kind = "sqlite"
		cfg.DSN = withQuery(body, q)
	case "postgres", "postgresql":
		cfg.Kind = "postgres"
		cfg.DSN = withQuery(scheme+"://"+body, q)
	case "sqlserver":
		cfg.Kind = "mssql"
		cfg.DSN = withQuery(scheme+"://"+body, q)
	case "mysql":
		dsn, err := mysqlDSN(body, q)
		if err != nil {
			return Config{}, err
		}
		cfg.Kind = "mysql"
		cfg.DSN = dsn
	}
	return cfg, nil
}

func withQuery(base string, q url.Values) string {
	if len(q) == 0 {
		return base
	}
	return base + "?" + q.Encode()
}

// mysqlDSN converts user:pw@host:port/db into the driver's native DSN form.
func mysqlDSN(body string, q url.Values) (string, error) {
	u, err := url.Parse("mysql://" + body)
	if err != nil {
		return "", fmt.Errorf("storage: parse mysql URL: %w", err)
	}
	c := mysql.NewConfig()
	if u.User != nil {
		c.User = u.User.Username()
		c.Passwd, _ = u.User.Password()
	}
	host := u.Host
	if host == "" {
		host = "127.0.0.1"
	}
	if u.Port() == "" {
		host = net.JoinHostPort(strings.Trim(host, "[]"), "3306")
	}
	c.Net = "tcp"
	c.Addr = host
	c.DBName = strings.TrimPrefix(u.Path, "/")
	if len(q) > 0 {
		c.Params = make(map[string]string, len(q))
		for k := range q {
			c.Params[k] = q.Get(k)
		}
	}
	return c.FormatDSN(), nil
}
