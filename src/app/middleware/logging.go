package middleware

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
)

// maxLoggedBody bounds how much of each body ends up in a log line.
const maxLoggedBody = 2048

// Logging emits one line per request with its bodies. Bodies of the paths
// listed in redact are replaced by their size, and a token query parameter
// is never written out.
func Logging(log *slog.Logger, redact ...string) gin.HandlerFunc {
	redacted := make(map[string]bool, len(redact))
	for _, p := range redact {
		redacted[p] = true
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		query := redactQuery(c.Request.URL.RawQuery)
		hidden := redacted[c.FullPath()] || redacted[path]

		var reqBodyBytes []byte
		if c.Request.Body != nil {
			var err error
			reqBodyBytes, err = io.ReadAll(c.Request.Body)
			var rest io.Reader = bytes.NewReader(reqBodyBytes)
			if err != nil {
				// the handler sees the same read error, e.g. an exceeded BodyLimit
				rest = io.MultiReader(rest, errReader{err})
			}
			c.Request.Body = io.NopCloser(rest)
		}

		rec := &responseCapture{ResponseWriter: c.Writer}
		c.Writer = rec

		start := time.Now()
		c.Next()

		requestID := GetRequestID(c)
		api := c.Request.Method + " " + path
		if query != "" {
			api = api + "?" + query
		}

		reqBody := truncate(reqBodyBytes)
		respBody := truncate(rec.body.Bytes())
		if hidden {
			reqBody = fmt.Sprintf("[%d bytes]", len(reqBodyBytes))
			respBody = fmt.Sprintf("[%d bytes]", rec.size)
		}

		status := c.Writer.Status()
		logLine := fmt.Sprintf("%s | %s | %s | %s | %d | %s | request: %s | response: %s |",
			time.Now().Format(time.RFC3339Nano),
			levelString(status),
			requestID,
			api,
			status,
			time.Since(start).Round(time.Microsecond),
			reqBody,
			respBody,
		)

		switch {
		case status >= 500:
			log.Error(logLine)
		case status >= 400:
			log.Warn(logLine)
		default:
			log.Info(logLine)
		}
	}
}

// responseCapture keeps the head of the response body while delegating to
// the original writer.
type responseCapture struct {
	gin.ResponseWriter
	body bytes.Buffer
	size int
}

func (r *responseCapture) Write(b []byte) (int, error) {
	r.keep(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseCapture) WriteString(s string) (int, error) {
	r.keep([]byte(s))
	return r.ResponseWriter.WriteString(s)
}

func (r *responseCapture) keep(b []byte) {
	r.size += len(b)
	if room := maxLoggedBody + 1 - r.body.Len(); room > 0 {
		if len(b) > room {
			b = b[:room]
		}
		r.body.Write(b)
	}
}

type errReader struct{ err error }

func (r errReader) Read([]byte) (int, error) { return 0, r.err }

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}

func redactQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return "[unparsable]"
	}
	if values.Has("token") {
		values.Set("token", "REDACTED")
	}
	return values.Encode()
}

func levelString(status int) string {
	switch {
	case status >= 500:
		return "ERROR"
	case status >= 400:
		return "WARN"
	default:
		return "INFO"
	}
}
