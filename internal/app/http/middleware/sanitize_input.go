package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"yoga-studio/internal/api/response"
	"yoga-studio/internal/lib/sanitize"

	"github.com/gin-gonic/gin"
)

const maxSanitizedBody = 1 << 20

// SanitizeAndCleanInputMiddleware turns every string in a JSON body into
// plain text. Keys listed in raw (secrets, URLs, rich text the services
// clean themselves) are passed through untouched.
func SanitizeAndCleanInputMiddleware(raw ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(raw))
	for _, k := range raw {
		skip[k] = struct{}{}
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch {
			c.Next()
			return
		}
		if !strings.HasPrefix(c.ContentType(), "application/json") {
			c.Next()
			return
		}

		buf, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSanitizedBody+1))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "Invalid body")
			return
		}
		if len(buf) > maxSanitizedBody {
			response.Fail(c, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		if len(bytes.TrimSpace(buf)) == 0 {
			c.Request.Body = io.NopCloser(bytes.NewReader(buf))
			c.Next()
			return
		}

		var body any
		dec := json.NewDecoder(bytes.NewReader(buf))
		dec.UseNumber()
		if err := dec.Decode(&body); err != nil {
			response.Fail(c, http.StatusBadRequest, "Malformed JSON")
			return
		}

		cleaned, err := json.Marshal(clean(skip, "", body))
		if err != nil {
			response.Fail(c, http.StatusBadRequest, "Malformed JSON")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(cleaned))
		c.Request.ContentLength = int64(len(cleaned))

		c.Next()
	}
}

func clean(skip map[string]struct{}, key string, v any) any {
	switch t := v.(type) {
	case string:
		if _, ok := skip[key]; ok {
			return t
		}
		return sanitize.Text(t)
	case map[string]any:
		for k, inner := range t {
			t[k] = clean(skip, k, inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = clean(skip, key, inner)
		}
		return t
	default:
		return v
	}
}
