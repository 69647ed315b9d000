// Package plan defines the parameterized query unit handed to the record store.
package plan

// Plan is query text containing only positional placeholders plus its ordered values.
type Plan struct {
	text   string
	values []any
}

// New creates a Plan. The value slice is copied.
func New(text string, values []any) Plan {
	v := make([]any, len(values))
	copy(v, values)
	return Plan{text: text, values: v}
}

// Empty returns a plan that executors treat as producing no rows.
func Empty() Plan { return Plan{} }

// Text returns the query text.
func (p Plan) Text() string { return p.text }

// Values returns a copy of the bound values in placeholder order.
func (p Plan) Values() []any {
	v := make([]any, len(p.values))
	copy(v, p.values)
	return v
}

// Len returns the number of bound values.
func (p Plan) Len() int { return len(p.values) }

// IsEmpty reports whether the plan carries no query.
func (p Plan) IsEmpty() bool { return p.text == "" }
