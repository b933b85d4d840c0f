package validators

import "net/http"

// ParseQueryString returns the sanitized query value for key.
func ParseQueryString(r *http.Request, key string, maxLen int) string {
	return SanitizeString(r.URL.Query().Get(key), maxLen)
}
