package field

import (
	"reflect"
	"testing"
)

func TestNew_Valid(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		opts []Option
	}{
		{"statuses", List, []Option{Nullable(), OneOf("ALLEGED", "CLEARED")}},
		{"accounts", List, []Option{Nullable()}},
		{"date_from", Date, []Option{Nullable()}},
		{"trade_id", Int, []Option{Nullable()}},
		{"cleared_trades_only", Bool, nil},
		{"flag", Bool, []Option{DefaultTrue()}},
	}
	for _, tc := range tests {
		r, err := New(tc.name, tc.kind, tc.opts...)
		if err != nil {
			t.Fatalf("New(%q): unexpected error: %v", tc.name, err)
		}
		if r.Name() != tc.name || r.Kind() != tc.kind {
			t.Errorf("got %q/%q, want %q/%q", r.Name(), r.Kind(), tc.name, tc.kind)
		}
	}
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		desc string
		name string
		kind Kind
		opts []Option
	}{
		{"empty name", "", List, nil},
		{"unknown kind", "x", Kind("float"), nil},
		{"nullable bool", "x", Bool, []Option{Nullable()}},
		{"default on list", "x", List, []Option{DefaultTrue()}},
		{"vocabulary on date", "x", Date, []Option{OneOf("A")}},
		{"empty vocabulary", "x", List, []Option{OneOf()}},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			if _, err := New(tc.name, tc.kind, tc.opts...); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestListValue_DropsUnsupportedMembers(t *testing.T) {
	r := MustNew("statuses", List, Nullable(), OneOf("ALLEGED", "CLEARED", "REJECTED", "CANCELLED"))

	kept, dropped := r.ListValue([]any{"ALLEGED", "BOGUS"})
	if !reflect.DeepEqual(kept, []string{"ALLEGED"}) {
		t.Errorf("kept = %v, want [ALLEGED]", kept)
	}
	if !reflect.DeepEqual(dropped, []string{"BOGUS"}) {
		t.Errorf("dropped = %v, want [BOGUS]", dropped)
	}
}

func TestListValue_AllDroppedBecomesNull(t *testing.T) {
	r := MustNew("statuses", List, Nullable(), OneOf("ALLEGED"))
	kept, _ := r.ListValue([]any{"BOGUS", "nope"})
	if kept != nil {
		t.Errorf("expected nil, got %v", kept)
	}
}

func TestListValue_OpenVocabularyUpperCases(t *testing.T) {
	r := MustNew("asset_types", List, Nullable())
	kept, dropped := r.ListValue([]any{" fx ", "Irs", "", "FX", 42.0})
	if !reflect.DeepEqual(kept, []string{"FX", "IRS"}) {
		t.Errorf("kept = %v, want [FX IRS]", kept)
	}
	if len(dropped) != 1 {
		t.Errorf("expected the number to be dropped, got %v", dropped)
	}
}

func TestListValue_ScalarWrapped(t *testing.T) {
	r := MustNew("accounts", List, Nullable())
	kept, _ := r.ListValue("acc123")
	if !reflect.DeepEqual(kept, []string{"ACC123"}) {
		t.Errorf("kept = %v", kept)
	}
}

func TestListValue_EmptyListIsNull(t *testing.T) {
	r := MustNew("accounts", List, Nullable())
	if kept, _ := r.ListValue([]any{}); kept != nil {
		t.Errorf("expected nil, got %v", kept)
	}
}

func TestBoolValue(t *testing.T) {
	r := MustNew("flag", Bool)
	tests := []struct {
		raw    any
		want   bool
		wantOK bool
	}{
		{nil, false, true},
		{true, true, true},
		{"true", true, true},
		{"False", false, true},
		{"maybe", false, false},
		{3.0, false, false},
	}
	for _, tc := range tests {
		got, ok := r.BoolValue(tc.raw)
		if got != tc.want || ok != tc.wantOK {
			t.Errorf("BoolValue(%v) = %v,%v want %v,%v", tc.raw, got, ok, tc.want, tc.wantOK)
		}
	}

	withDefault := MustNew("flag", Bool, DefaultTrue())
	if v, _ := withDefault.BoolValue(nil); !v {
		t.Error("expected default true")
	}
}

func TestDateValue(t *testing.T) {
	r := MustNew("date_from", Date, Nullable())

	if v, ok := r.DateValue("2025-06-13"); !ok || v == nil || *v != "2025-06-13" {
		t.Errorf("valid date rejected: %v %v", v, ok)
	}
	if v, ok := r.DateValue(nil); !ok || v != nil {
		t.Errorf("nil date: %v %v", v, ok)
	}
	for _, bad := range []any{"2025-13-01", "13/06/2025", "yesterday", 20250613.0} {
		if v, ok := r.DateValue(bad); ok || v != nil {
			t.Errorf("DateValue(%v) = %v,%v want nil,false", bad, v, ok)
		}
	}
}

func TestIntValue(t *testing.T) {
	r := MustNew("trade_id", Int, Nullable())

	if v, ok := r.IntValue(77194044.0); !ok || v == nil || *v != 77194044 {
		t.Errorf("float id: %v %v", v, ok)
	}
	if v, ok := r.IntValue("77194044"); !ok || v == nil || *v != 77194044 {
		t.Errorf("string id: %v %v", v, ok)
	}
	for _, bad := range []any{-1.0, 0.0, 1.5, "abc", true} {
		if v, ok := r.IntValue(bad); ok || v != nil {
			t.Errorf("IntValue(%v) = %v,%v want nil,false", bad, v, ok)
		}
	}
}

func TestNewTable_Duplicate(t *testing.T) {
	a := MustNew("a", Bool)
	if _, err := NewTable(a, a); err == nil {
		t.Fatal("expected duplicate error")
	}
}

func TestTable_Get(t *testing.T) {
	tbl, err := NewTable(MustNew("a", Bool), MustNew("b", List, Nullable()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tbl.Len() != 2 {
		t.Errorf("Len = %d", tbl.Len())
	}
	if r, ok := tbl.Get("b"); !ok || r.Kind() != List {
		t.Errorf("Get(b) = %v, %v", r, ok)
	}
	if _, ok := tbl.Get("c"); ok {
		t.Error("Get(c) should miss")
	}
}
