package field

import "fmt"

// Table is an ordered, immutable set of rules keyed by field name.
type Table struct {
	rules  []Rule
	byName map[string]int
}

// NewTable validates that every rule name is unique.
func NewTable(rules ...Rule) (Table, error) {
	t := Table{rules: make([]Rule, 0, len(rules)), byName: make(map[string]int, len(rules))}
	for _, r := range rules {
		if r.name == "" {
			return Table{}, fmt.Errorf("rule without a name")
		}
		if _, dup := t.byName[r.name]; dup {
			return Table{}, fmt.Errorf("duplicate rule %q", r.name)
		}
		t.byName[r.name] = len(t.rules)
		t.rules = append(t.rules, r)
	}
	return t, nil
}

// Rules returns the rules in declaration order.
func (t Table) Rules() []Rule {
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

// Get returns the rule for name.
func (t Table) Get(name string) (Rule, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Rule{}, false
	}
	return t.rules[i], true
}

// Len returns the number of rules.
func (t Table) Len() int { return len(t.rules) }
