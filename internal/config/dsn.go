package config

import (
	"net"
	neturl "net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

func orDefault(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}

// DSNValue returns the explicit DSN or builds a MySQL DSN from the parts.
func (c DatabaseRuntimeConfig) DSNValue() string {
	if v := strings.TrimSpace(c.DSN); v != "" {
		return v
	}
	port := c.Port
	if port == 0 {
		port = defaultDBPort
	}

	dsn := mysql.NewConfig()
	dsn.Net = "tcp"
	dsn.Addr = net.JoinHostPort(orDefault(c.Host, defaultDBHost), strconv.Itoa(port))
	dsn.User = orDefault(c.User, defaultDBUser)
	dsn.Passwd = orDefault(c.Password, defaultDBPassword)
	dsn.DBName = orDefault(c.Name, defaultDBName)
	dsn.ParseTime = c.ParseTime
	if loc, err := time.LoadLocation(orDefault(c.Loc, defaultDBLoc)); err == nil {
		dsn.Loc = loc
	}
	dsn.Params = map[string]string{"charset": orDefault(c.Charset, defaultDBCharset)}
	for key, value := range c.Params {
		k, v := strings.TrimSpace(key), strings.TrimSpace(value)
		if k != "" && v != "" {
			dsn.Params[k] = v
		}
	}
	return dsn.FormatDSN()
}

// URLValue returns the explicit URL or builds one from the parts.
func (c RedisRuntimeConfig) URLValue() string {
	if u := normalizeRedisRawURL(c.URL); u != "" {
		return u
	}
	port := c.Port
	if port == 0 {
		port = defaultRedisPort
	}
	db := c.DB
	if db < 0 {
		db = defaultRedisDB
	}

	u := &neturl.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(orDefault(c.Host, defaultRedisHost), strconv.Itoa(port)),
		Path:   "/" + strconv.Itoa(db),
	}
	if c.TLS {
		u.Scheme = "rediss"
	}
	switch user, pass := strings.TrimSpace(c.Username), strings.TrimSpace(c.Password); {
	case pass != "":
		u.User = neturl.UserPassword(user, pass)
	case user != "":
		u.User = neturl.User(user)
	}

	query := neturl.Values{}
	for key, value := range c.Params {
		if k, v := strings.TrimSpace(key), strings.TrimSpace(value); k != "" && v != "" {
			query.Set(k, v)
		}
	}
	u.RawQuery = query.Encode()
	return u.String()
}
