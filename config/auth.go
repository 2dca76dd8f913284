package config

import "time"

// AuthConfig groups session-related configuration.
type AuthConfig struct {
	// SessionTTL is how long a session lives without re-login.
	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"168h"` // 7 days

	// CookieName is the session cookie name.
	CookieName string `env:"AUTH_COOKIE_NAME" envDefault:"lf_session"`

	// CookieSecure marks the session cookie Secure. Disable only for plain
	// HTTP local development.
	CookieSecure bool `env:"AUTH_COOKIE_SECURE" envDefault:"true"`
}
