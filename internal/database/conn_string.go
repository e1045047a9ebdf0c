package database

import (
	"net"
	"net/url"
	"strconv"

	"github.com/marcushennig/limit-order-book-simulation-sub000/internal/config"
)

// BuildConnString builds a PostgreSQL URL from config. appName is reported
// as application_name so calibrate and simulate sessions can be told apart
// in pg_stat_activity; empty omits it.
func BuildConnString(cfg config.DBConfig, appName string) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	query := url.Values{}
	query.Set("sslmode", sslMode)
	if appName != "" {
		query.Set("application_name", appName)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(cfg.User, cfg.Password),
		Host:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		Path:     "/" + cfg.Name,
		RawQuery: query.Encode(),
	}
	return u.String()
}
