package common

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johanforsgren/orgpulse/internal/logger"
)

const maxLoggedBody = 10000

// RequestIDHeader correlates a request with its log lines.
const RequestIDHeader = "X-Request-Id"

var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"x-api-key":     true,
	"api-key":       true,
	"x-auth-token":  true,
	"cookie":        true,
	"set-cookie":    true,
}

// LoggingTransport logs every request and response. Bodies are only dumped
// at debug level.
type LoggingTransport struct {
	Transport http.RoundTripper
}

func NewLoggingTransport(transport http.RoundTripper) *LoggingTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &LoggingTransport{
		Transport: transport,
	}
}

func (t *LoggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	id := req.Header.Get(RequestIDHeader)

	if logger.DebugEnabled() {
		logger.Debug("%s", dumpRequest(req))
	}

	resp, err := t.Transport.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		logger.LogError("HTTP_REQUEST", fmt.Sprintf("%s %s [%s]", req.Method, req.URL.Path, id), err)
		return nil, err
	}

	logger.Log("HTTP: %s %s -> %d (%v) [%s]", req.Method, req.URL.Path, resp.StatusCode, duration.Round(time.Millisecond), id)
	if logger.DebugEnabled() {
		logger.Debug("%s", dumpResponse(resp))
	}

	return resp, nil
}

func dumpRequest(req *http.Request) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "=== HTTP REQUEST ===\n%s %s %s\n", req.Method, req.URL.String(), req.Proto)
	writeHeaders(&buf, req.Header)

	if req.Body != nil && req.GetBody != nil && req.ContentLength > 0 && req.ContentLength < maxLoggedBody {
		if body, err := req.GetBody(); err == nil {
			data, _ := io.ReadAll(body)
			body.Close()
			fmt.Fprintf(&buf, "Body (%d bytes):\n%s\n", len(data), data)
		}
	}

	return buf.String()
}

func dumpResponse(resp *http.Response) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "=== HTTP RESPONSE ===\n%s\n", resp.Status)
	writeHeaders(&buf, resp.Header)

	if resp.Body != nil && resp.ContentLength != 0 {
		data, err := io.ReadAll(resp.Body)
		if err == nil {
			resp.Body = io.NopCloser(bytes.NewReader(data))
			if len(data) > 0 && len(data) < maxLoggedBody {
				fmt.Fprintf(&buf, "Body (%d bytes):\n%s\n", len(data), data)
			} else if len(data) > 0 {
				fmt.Fprintf(&buf, "Body: (%d bytes, too large to log)\n", len(data))
			}
		}
	}

	return buf.String()
}

func writeHeaders(buf *bytes.Buffer, header http.Header) {
	buf.WriteString("Headers:\n")
	for name, values := range header {
		if IsSensitiveHeader(name) {
			fmt.Fprintf(buf, "  %s: [REDACTED]\n", name)
			continue
		}
		for _, value := range values {
			fmt.Fprintf(buf, "  %s: %s\n", name, value)
		}
	}
}

func IsSensitiveHeader(name string) bool {
	return sensitiveHeaders[strings.ToLower(name)]
}
