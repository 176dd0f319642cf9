package openrouter

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	defaultBaseURL = "https://openrouter.ai"
	chatPath       = "/api/v1/chat/completions"
)

var defaultAllowedHosts = map[string]struct{}{
	"openrouter.ai":     {},
	"api.openrouter.ai": {},
}

// ErrInvalidBaseURL wraps every rejection reported by ValidateBaseURL.
var ErrInvalidBaseURL = errors.New("invalid OPENROUTER_BASE_URL")

func normalizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	// accept a base that already names the API root
	return strings.TrimSuffix(baseURL, "/api/v1")
}

func chatURL(baseURL string) string {
	return normalizeBaseURL(baseURL) + chatPath
}

// ValidateBaseURL rejects endpoints the frame images and API key must not be
// sent to: plain http, embedded credentials, query strings, and hosts outside
// the allow-list (openrouter.allowed_hosts / OPENROUTER_ALLOWED_HOSTS).
func ValidateBaseURL(baseURL string, allowedHosts []string) error {
	baseURL = normalizeBaseURL(baseURL)

	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	reject := func(reason string) error {
		return fmt.Errorf("%w %q: %s", ErrInvalidBaseURL, baseURL, reason)
	}
	switch {
	case !u.IsAbs() || u.Host == "":
		return reject("absolute URL with host is required")
	case u.User != nil:
		return reject("userinfo is not allowed")
	case u.RawQuery != "" || u.Fragment != "":
		return reject("query and fragment are not allowed")
	case u.Hostname() == "":
		return reject("host is required")
	case !strings.EqualFold(u.Scheme, "https"):
		return reject("https is required")
	}

	host := strings.ToLower(u.Hostname())
	if _, ok := normalizeAllowedHosts(allowedHosts)[host]; !ok {
		return reject(fmt.Sprintf("host %q is not in OPENROUTER_ALLOWED_HOSTS", host))
	}
	return nil
}

func normalizeAllowedHosts(allowedHosts []string) map[string]struct{} {
	out := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		v := strings.ToLower(strings.TrimSpace(h))
		v = strings.TrimPrefix(v, "http://")
		v = strings.TrimPrefix(v, "https://")
		v = strings.Trim(v, "/")
		if i := strings.IndexAny(v, ":/"); i >= 0 {
			v = v[:i]
		}
		if v != "" {
			out[v] = struct{}{}
		}
	}
	if len(out) == 0 {
		return defaultAllowedHosts
	}
	return out
}
