package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solatis/smartlist/internal/rules"
)

func TestSignature(t *testing.T) {
	base := deepPlaylist()
	sig := Signature(base)
	assert.Len(t, sig, 16)

	renamed := deepPlaylist()
	renamed.Name = "other"
	renamed.Description = "other"
	assert.Equal(t, sig, Signature(renamed), "uids, name and description must not affect the signature")

	limited := deepPlaylist()
	limited.Limit = IntPtr(10)
	assert.NotEqual(t, sig, Signature(limited))

	changed := deepPlaylist()
	changed.Group.Groups[0].Negate = false
	assert.NotEqual(t, sig, Signature(changed))

	rule := rules.Rule{Field: "kind", Op: rules.OpEq, Value: "audio"}
	legacy := New("legacy")
	legacy.Rules = []rules.Rule{rule}
	grouped := New("grouped")
	grouped.Group = &rules.RuleGroup{Match: "all", Rules: []rules.Rule{rule}, UID: "x"}
	assert.Equal(t, Signature(legacy), Signature(grouped))

	assert.NotEqual(t, Signature(New("a")), Signature(grouped))
}
