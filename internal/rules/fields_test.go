package rules

import (
	"testing"
)

func TestAllowedFields(t *testing.T) {
	fields := AllowedFields()
	if len(fields) != 16 {
		t.Fatalf("len(AllowedFields()) = %d, want 16", len(fields))
	}
	for _, f := range fields {
		if !IsAllowedField(f) {
			t.Errorf("IsAllowedField(%q) = false, want true", f)
		}
	}
	if IsAllowedField("colour") {
		t.Errorf("IsAllowedField(colour) = true, want false")
	}

	fields[0] = "mutated"
	if AllowedFields()[0] != FieldPath {
		t.Errorf("AllowedFields() exposes internal slice")
	}
}

func TestOperatorsFor(t *testing.T) {
	tests := []struct {
		field string
		want  []Operator
	}{
		{FieldRating, []Operator{OpGte, OpLte, OpEq, OpGt, OpLt, OpBetween}},
		{FieldKind, []Operator{OpEq, OpNeq, OpIn, OpNotContains}},
		{FieldTags, []Operator{OpHasTag, OpContains, OpNotContains}},
		{"unlisted", []Operator{OpEq, OpNeq}},
	}

	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got := OperatorsFor(tt.field)
			if len(got) != len(tt.want) {
				t.Fatalf("OperatorsFor(%q) = %v, want %v", tt.field, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("OperatorsFor(%q)[%d] = %q, want %q", tt.field, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestOperatorsFor_EveryAllowedFieldHasKnownOperators(t *testing.T) {
	for _, f := range AllowedFields() {
		ops := OperatorsFor(f)
		if len(ops) == 0 {
			t.Errorf("OperatorsFor(%q) is empty", f)
		}
		for _, op := range ops {
			if !op.Known() {
				t.Errorf("OperatorsFor(%q) offers unknown operator %q", f, op)
			}
		}
	}
}

func TestFields_Resolve(t *testing.T) {
	f := Fields{"kind": "audio", "rating": nil}

	if v, ok := f.Resolve("kind"); !ok || v != "audio" {
		t.Errorf("Resolve(kind) = %v, %v; want audio, true", v, ok)
	}
	if v, ok := f.Resolve("rating"); !ok || v != nil {
		t.Errorf("Resolve(rating) = %v, %v; want nil, true", v, ok)
	}
	if _, ok := f.Resolve("genre"); ok {
		t.Errorf("Resolve(genre) ok = true, want false")
	}
}
