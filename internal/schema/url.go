package schema

import (
	"net"
	"net/url"
	"strings"
)

// MaxURLLength mirrors the practical limit browsers accept.
const MaxURLLength = 2083

// URLError explains why a string is not an acceptable http(s) URL.
type URLError struct {
	Type string
	Msg  string
	Ctx  map[string]any
}

func (e *URLError) Error() string { return e.Msg }

// NormalizeURL validates raw as an absolute http(s) URL and returns its
// canonical form: lower-case scheme and host, no default port, and "/" for an
// empty path (https://foo.bar -> https://foo.bar/).
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > MaxURLLength {
		return "", &URLError{
			Type: TypeURLTooLong,
			Msg:  "URL should have at most 2083 characters",
			Ctx:  map[string]any{"max_length": MaxURLLength},
		}
	}
	if raw == "" {
		return "", parsingError("input is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", parsingError("invalid format")
	}
	if u.Scheme == "" {
		return "", parsingError("relative URL without a base")
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", &URLError{
			Type: TypeURLScheme,
			Msg:  "URL scheme should be 'http' or 'https'",
			Ctx:  map[string]any{"expected_schemes": "'http' or 'https'"},
		}
	}
	if u.Opaque != "" || u.Hostname() == "" {
		return "", parsingError("empty host")
	}
	u.Scheme = scheme
	u.Host = canonicalHost(scheme, u.Hostname(), u.Port())
	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

func canonicalHost(scheme, host, port string) string {
	host = strings.ToLower(host)
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port == "" {
		if strings.Contains(host, ":") {
			return "[" + host + "]"
		}
		return host
	}
	return net.JoinHostPort(host, port)
}

func parsingError(reason string) *URLError {
	return &URLError{
		Type: TypeURLParsing,
		Msg:  "Input should be a valid URL, " + reason,
		Ctx:  map[string]any{"error": reason},
	}
}
