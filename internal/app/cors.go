package app

import (
	"net/url"
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/hellorun/server/internal/config"
)

// originAllowList matches request origins against configured entries.
// An entry is an exact origin or host ("hellorun.app"), a subdomain wildcard
// ("*.hellorun.app") or any port on a host ("localhost:*").
type originAllowList []string

func (l originAllowList) allows(origin string) bool {
	host := originHost(origin)
	for _, entry := range l {
		entry = originHost(entry)
		switch {
		case entry == "":
			continue
		case entry == host:
			return true
		case strings.HasPrefix(entry, "*."):
			if strings.HasSuffix(host, entry[1:]) {
				return true
			}
		case strings.HasSuffix(entry, ":*"):
			if strings.HasPrefix(host, strings.TrimSuffix(entry, "*")) {
				return true
			}
		}
	}
	return false
}

// originHost reduces "https://a.b:8080" to "a.b:8080"; bare hosts pass through.
func originHost(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return u.Host
	}
	return raw
}

func corsConfig(cfg *config.AppConfig) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "x-idempotence"},
		ExposeHeaders:    []string{"Content-Length", "x-hellorun-cache", "Retry-After"},
		AllowCredentials: true,
	}
	// dev accepts any origin so local frontends on random ports work
	if len(cfg.AllowedOrigins) == 0 || cfg.IsDev() {
		c.AllowOriginFunc = func(string) bool { return true }
		return c
	}
	c.AllowOriginFunc = originAllowList(cfg.AllowedOrigins).allows
	return c
}
