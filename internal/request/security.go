package request

import (
	"log/slog"
	"net"
	"net/url"
	"strings"

	"github.com/tombee/apirun/internal/log"
)

// SecurityValidator compares built requests against the integration's
// declared host. It never blocks a request.
type SecurityValidator struct {
	logger *slog.Logger
}

// NewSecurityValidator creates a validator that reports to logger.
func NewSecurityValidator(logger *slog.Logger) *SecurityValidator {
	return &SecurityValidator{logger: log.WithComponent(logger, "security")}
}

// Validate logs a WARN when d targets a host other than expectedHost and an
// INFO when d.URL cannot be parsed. An empty expectedHost skips the check.
//
// expectedHost may be a bare hostname, a host:port, or a full URL. Matching
// is case-insensitive and ignores ports and a leading "www.".
func (v *SecurityValidator) Validate(d *Descriptor, expectedHost string) {
	if d == nil || expectedHost == "" {
		return
	}

	u, err := url.Parse(d.URL)
	if err != nil || u.Hostname() == "" {
		v.logger.Info("could not parse request url for host check",
			slog.String("expected_host", expectedHost),
			log.Error(err))
		return
	}

	want := normalizeHost(expectedHost)
	got := normalizeHost(u.Hostname())
	if got == want {
		return
	}

	v.logger.Warn("request host does not match integration host",
		slog.String("event", "security_warning"),
		slog.String("expected_host", want),
		slog.String("actual_host", got))
}

func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	if strings.Contains(host, "://") {
		if u, err := url.Parse(host); err == nil {
			host = u.Host
		}
	}
	if h, _, ok := strings.Cut(host, "/"); ok {
		host = h
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	return strings.TrimPrefix(host, "www.")
}
