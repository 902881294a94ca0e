package submit

import (
	"strings"

	"github.com/studiowebux/formpost/internal/types"
)

// Hint returns a short actionable explanation for a transport error outcome,
// or "" when the outcome carries an HTTP response or nothing is recognized.
// The raw message is still what gets displayed; the hint goes alongside it.
func Hint(outcome *types.Outcome) string {
	if outcome == nil || !outcome.IsError() || outcome.Status != 0 {
		return ""
	}
	return categorizeTransportError(outcome.Detail)
}

// categorizeTransportError analyzes transport error strings
func categorizeTransportError(errStr string) string {
	if errStr == "" || errStr == ErrNoFile.Error() {
		return ""
	}

	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "context deadline exceeded") ||
		strings.Contains(errLower, "client.timeout exceeded") {
		return "Request timeout - the server took too long, try a larger --timeout"
	}

	// Proxy errors (check before connection errors since proxy errors often contain "connection refused")
	if strings.Contains(errLower, "proxy") {
		return "Proxy connection failed - verify HTTP_PROXY/HTTPS_PROXY"
	}

	if strings.Contains(errLower, "no such host") ||
		strings.Contains(errLower, "dial tcp: lookup") {
		return "DNS resolution failed - verify the hostname in --url or baseURL"
	}

	if strings.Contains(errLower, "connection refused") {
		return "Connection refused - check the server is running (formpost serve) and the port is correct"
	}

	if strings.Contains(errLower, "connection reset") {
		return "Connection reset by server - the upload may exceed the server's size limit"
	}

	if strings.Contains(errLower, "network is unreachable") ||
		strings.Contains(errLower, "no route to host") {
		return "Network unreachable - check network connection and firewall settings"
	}

	if strings.Contains(errLower, "x509") ||
		strings.Contains(errLower, "certificate") ||
		strings.Contains(errLower, "tls") {
		return categorizeTLSError(errLower)
	}

	if strings.Contains(errLower, "unsupported protocol") {
		return "Invalid URL - the base URL needs an http:// or https:// scheme"
	}

	if strings.Contains(errLower, "eof") {
		return "Connection closed unexpectedly - server terminated the connection"
	}

	if strings.Contains(errLower, "timeout") || strings.Contains(errLower, "timed out") {
		return "Connection timeout - server took too long to respond"
	}

	return ""
}

func categorizeTLSError(errLower string) string {
	switch {
	case strings.Contains(errLower, "unknown authority"):
		return "TLS certificate is not trusted - set tls.caFile in config or use --insecure"
	case strings.Contains(errLower, "expired"):
		return "TLS certificate has expired"
	case strings.Contains(errLower, "certificate is valid for"):
		return "TLS hostname mismatch - certificate doesn't match the requested hostname"
	case strings.Contains(errLower, "handshake"):
		return "TLS handshake failed - check TLS version compatibility"
	case strings.Contains(errLower, "certificate required"):
		return "TLS client certificate required - set tls.certFile and tls.keyFile in config"
	}
	return "TLS error - check certificate configuration"
}
