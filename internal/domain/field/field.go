// Package field holds the declarative validation rules applied to model-extracted
// search parameters.
package field

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind is the value shape a rule accepts.
type Kind string

// Rule kinds.
const (
	List Kind = "list"
	Bool Kind = "bool"
	Date Kind = "date"
	Int  Kind = "int"
)

// DateLayout is the only accepted date format.
const DateLayout = "2006-01-02"

// Rule is an immutable validation rule for a single parameter field.
type Rule struct {
	name       string
	kind       Kind
	nullable   bool
	defaultVal bool
	allowed    map[string]struct{}
}

// Option configures a Rule.
type Option func(*Rule)

// Nullable lets the field resolve to null when absent or invalid.
func Nullable() Option {
	return func(r *Rule) { r.nullable = true }
}

// DefaultTrue makes an absent bool field resolve to true.
func DefaultTrue() Option {
	return func(r *Rule) { r.defaultVal = true }
}

// OneOf restricts list members to a closed vocabulary (compared upper-cased).
func OneOf(values ...string) Option {
	return func(r *Rule) {
		r.allowed = make(map[string]struct{}, len(values))
		for _, v := range values {
			r.allowed[strings.ToUpper(v)] = struct{}{}
		}
	}
}

// New validates and creates a Rule.
func New(name string, kind Kind, opts ...Option) (Rule, error) {
	if name == "" {
		return Rule{}, fmt.Errorf("rule name is required")
	}
	r := Rule{name: name, kind: kind}
	for _, o := range opts {
		o(&r)
	}
	switch kind {
	case List, Date, Int:
		if r.defaultVal {
			return Rule{}, fmt.Errorf("rule %q: only bool rules take a default", name)
		}
	case Bool:
		if r.nullable {
			return Rule{}, fmt.Errorf("rule %q: bool rules are not nullable", name)
		}
	default:
		return Rule{}, fmt.Errorf("rule %q: unknown kind %q", name, kind)
	}
	if r.allowed != nil && kind != List {
		return Rule{}, fmt.Errorf("rule %q: closed vocabulary requires a list rule", name)
	}
	if r.allowed != nil && len(r.allowed) == 0 {
		return Rule{}, fmt.Errorf("rule %q: closed vocabulary is empty", name)
	}
	return r, nil
}

// MustNew is New that panics, for package-level rule tables.
func MustNew(name string, kind Kind, opts ...Option) Rule {
	r, err := New(name, kind, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the field name.
func (r Rule) Name() string { return r.name }

// Kind returns the accepted value shape.
func (r Rule) Kind() Kind { return r.kind }

// IsNullable reports whether the field may resolve to null.
func (r Rule) IsNullable() bool { return r.nullable }

// IsClosed reports whether list members are restricted to a vocabulary.
func (r Rule) IsClosed() bool { return r.allowed != nil }

// Allows reports whether v belongs to the closed vocabulary. Open rules allow anything.
func (r Rule) Allows(v string) bool {
	if r.allowed == nil {
		return true
	}
	_, ok := r.allowed[strings.ToUpper(v)]
	return ok
}

// ListValue normalizes a raw decoded value into an upper-cased list.
// A scalar string is wrapped. Members that are not strings, are blank, or fall outside
// the vocabulary are returned in dropped. A nil result means null.
func (r Rule) ListValue(raw any) (kept, dropped []string) {
	var items []any
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		items = []any{v}
	case []any:
		items = v
	case []string:
		for _, s := range v {
			items = append(items, s)
		}
	default:
		return nil, []string{fmt.Sprint(v)}
	}

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			dropped = append(dropped, fmt.Sprint(it))
			continue
		}
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		if !r.Allows(s) {
			dropped = append(dropped, s)
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		kept = append(kept, s)
	}
	if len(kept) == 0 {
		return nil, dropped
	}
	return kept, dropped
}

// BoolValue resolves a raw decoded value, falling back to the rule default.
func (r Rule) BoolValue(raw any) (val, ok bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b, true
		}
	case nil:
		return r.defaultVal, true
	}
	return r.defaultVal, false
}

// DateValue resolves a raw decoded value into a YYYY-MM-DD string. ok is false when a
// non-null value failed to parse.
func (r Rule) DateValue(raw any) (val *string, ok bool) {
	if raw == nil {
		return nil, true
	}
	s, isStr := raw.(string)
	if !isStr {
		return nil, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, true
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return nil, false
	}
	return &s, true
}

// IntValue resolves a raw decoded number or numeric string into a positive id.
func (r Rule) IntValue(raw any) (val *int64, ok bool) {
	var n int64
	switch v := raw.(type) {
	case nil:
		return nil, true
	case float64:
		if v != float64(int64(v)) {
			return nil, false
		}
		n = int64(v)
	case int64:
		n = v
	case int:
		n = int64(v)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, true
		}
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, false
		}
		n = parsed
	default:
		return nil, false
	}
	if n <= 0 {
		return nil, false
	}
	return &n, true
}
