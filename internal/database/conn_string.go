package database

import (
	"fmt"
	"net/url"

	"github.com/valshi/whalewatch/internal/config"
)

// BuildConnString renders the pool DSN. The password is URL-escaped;
// sslmode and every other field arrive already defaulted and validated
// by the config layer.
func BuildConnString(cfg config.DBConfig) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		cfg.SSLMode,
	)
}
