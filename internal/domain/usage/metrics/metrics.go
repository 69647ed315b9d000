package metrics

// Metrics holds model consumption for a window.
type Metrics struct {
	requests int
	tokens   int
	errors   int
}

// New creates a Metrics snapshot.
func New(requests, tokens, errors int) Metrics {
	return Metrics{requests: requests, tokens: tokens, errors: errors}
}

// Requests returns the number of model calls.
func (m Metrics) Requests() int { return m.requests }

// Tokens returns total tokens consumed.
func (m Metrics) Tokens() int { return m.tokens }

// Errors returns the number of failed model calls.
func (m Metrics) Errors() int { return m.errors }
