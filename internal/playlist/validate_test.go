package playlist

import (
	"strings"
	"testing"

	"github.com/solatis/smartlist/internal/rules"
)

func TestProblems(t *testing.T) {
	valid := New("ok")
	valid.Rules = []rules.Rule{rules.NewRule(rules.FieldKind, rules.OpEq, "audio")}

	bad := New("bad")
	bad.Limit = IntPtr(-1)
	bad.Sort = "shuffle"
	g := rules.NewGroup("all")
	g.Rules = []rules.Rule{
		rules.NewRule("colour", rules.OpEq, "red"),
		rules.NewRule(rules.FieldTitle, rules.OpRegex, "(unclosed"),
	}
	bad.Group = &g

	if got := Problems(valid); len(got) != 0 {
		t.Errorf("Problems(valid) = %v, want none", got)
	}
	if got := Problems(New("empty")); len(got) != 0 {
		t.Errorf("Problems(empty) = %v, want none", got)
	}

	got := Problems(bad)
	if len(got) != 4 {
		t.Fatalf("Problems(bad) = %v, want 4 problems", got)
	}
	for i, want := range []string{"limit", "sort", "colour", "regex"} {
		if !strings.Contains(got[i], want) {
			t.Errorf("Problems(bad)[%d] = %q, want it to mention %q", i, got[i], want)
		}
	}
}
