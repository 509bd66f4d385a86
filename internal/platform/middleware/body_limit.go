package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// BodyLimit caps request body sizes. defaultLimit applies to most
// endpoints while csvLimit applies to CSV batch uploads (POSTs to paths
// ending in /validate/csv), which carry whole claim files.
//
// Limits are human-readable strings: "1M", "512K", "10G". A bare number
// is bytes.
func BodyLimit(defaultLimit string, csvLimit string) echo.MiddlewareFunc {
	defaultBytes := parseLimit(defaultLimit)
	csvBytes := parseLimit(csvLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			if req.Body == nil || req.Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if req.Method == http.MethodPost && strings.HasSuffix(req.URL.Path, "/validate/csv") {
				limit = csvBytes
			}

			// A declared Content-Length over the limit is rejected before
			// reading anything.
			if req.ContentLength > limit {
				return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{
					"error": fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit),
				})
			}

			// The body is still capped while reading. Chunked uploads have
			// no Content-Length and a declared length is not trusted.
			req.Body = &boundedBody{inner: req.Body, remaining: limit}

			return next(c)
		}
	}
}

// boundedBody fails the read once more than the allowed bytes have been
// consumed.
type boundedBody struct {
	inner     io.ReadCloser
	remaining int64
	exceeded  bool
}

func (b *boundedBody) Read(p []byte) (int, error) {
	if b.exceeded {
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}

	// Reading one byte past the limit detects overflow without waiting
	// for EOF.
	if max := b.remaining + 1; int64(len(p)) > max {
		p = p[:max]
	}

	n, err := b.inner.Read(p)
	b.remaining -= int64(n)
	if b.remaining < 0 {
		b.exceeded = true
		return 0, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "request body too large")
	}
	return n, err
}

func (b *boundedBody) Close() error {
	return b.inner.Close()
}

var limitSuffixes = []struct {
	suffix string
	factor int64
}{
	{"KB", 1 << 10},
	{"MB", 1 << 20},
	{"GB", 1 << 30},
	{"K", 1 << 10},
	{"M", 1 << 20},
	{"G", 1 << 30},
}

// parseLimit converts a size string such as "1M" or "512K" to bytes.
// Unparseable input falls back to 1 MB.
func parseLimit(s string) int64 {
	s = strings.ToUpper(strings.TrimSpace(s))
	factor := int64(1)
	for _, u := range limitSuffixes {
		if strings.HasSuffix(s, u.suffix) {
			factor = u.factor
			s = strings.TrimSuffix(s, u.suffix)
			break
		}
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 1 << 20
	}
	return n * factor
}
