package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
)

// Tracing returns the New Relic middleware chain: nrgin opens the
// transaction, then TransactionAttributes tags it.
func Tracing(app *newrelic.Application) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		nrgin.Middleware(app),
		TransactionAttributes(),
	}
}

// TransactionAttributes adds the request id and the final status class to the
// current New Relic transaction. Without a transaction it does nothing.
func TransactionAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		txn := nrgin.Transaction(c)
		if txn == nil {
			c.Next()
			return
		}

		if requestID := c.GetString(RequestIDKey); requestID != "" {
			txn.AddAttribute("request_id", requestID)
		}

		c.Next()

		txn.AddAttribute("status_class", statusClass(c.Writer.Status()))
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
