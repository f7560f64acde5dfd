package middleware

// identity.go holds helpers shared by the rate limiting and caching
// middleware for attributing a request to a caller.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// currentUserID returns a string identifier for the authenticated user,
// or "anon" for unauthenticated requests. JWTAuth stores the sub claim
// under "user_id" with whatever type the JSON decoder produced.
func currentUserID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "anon"
}
