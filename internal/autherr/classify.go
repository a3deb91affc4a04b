package autherr

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// apiErrorBody is the error envelope the backend uses. All fields are
// optional; classification falls back to the HTTP status code alone.
type apiErrorBody struct {
	Error  string            `json:"error"`
	Code   string            `json:"code"`
	Fields map[string]string `json:"fields"`
}

// FromResponse classifies a non-2xx HTTP response into the taxonomy.
// The body, when parseable, refines the classification: a 401 whose code
// says the token expired becomes KindTokenExpired rather than the generic
// KindUnauthorized, and 400 responses surface field-level messages.
func FromResponse(op string, resp *http.Response, body []byte) *Error {
	msg, code, fields := parseBody(body)

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		e := New(op, KindValidation, nonEmpty(msg, "invalid request"))
		e.Fields = fields
		return e

	case resp.StatusCode == http.StatusUnauthorized:
		switch code {
		case "token_expired":
			return New(op, KindTokenExpired, nonEmpty(msg, "access token expired"))
		case "token_invalid":
			return New(op, KindTokenInvalid, nonEmpty(msg, "access token invalid"))
		}
		return New(op, KindUnauthorized, nonEmpty(msg, "unauthorized"))

	case resp.StatusCode == http.StatusForbidden:
		return New(op, KindForbidden, nonEmpty(msg, "insufficient permission"))

	case resp.StatusCode == http.StatusTooManyRequests:
		e := New(op, KindRateLimit, nonEmpty(msg, "rate limited"))
		e.RetryAfter = retryAfter(resp)
		return e

	case resp.StatusCode >= 500:
		return New(op, KindServer, nonEmpty(msg, "server error "+strconv.Itoa(resp.StatusCode)))
	}

	return New(op, KindUnknown, nonEmpty(msg, "unexpected status "+strconv.Itoa(resp.StatusCode)))
}

func parseBody(body []byte) (msg, code string, fields map[string]string) {
	if len(body) == 0 {
		return "", "", nil
	}
	var b apiErrorBody
	if err := json.Unmarshal(body, &b); err != nil {
		return "", "", nil
	}
	return b.Error, b.Code, b.Fields
}

// retryAfter parses the Retry-After header, seconds form only. HTTP-date
// values are ignored; the backend emits seconds.
func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
