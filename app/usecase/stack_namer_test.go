package usecase

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

func TestStackNamer_Format(t *testing.T) {
	n := NewStackNamer("aws-summit-paris", "claude3")
	n.now = func() time.Time { return time.UnixMilli(1712000000123) }
	n.newID = func() string { return "6f1c2a9e-0d3b-4c1e-9a55-0e2f7b1d8c44" }

	assert.Equal(t, "aws-summit-paris-1712000000123-claude3-6f1c2a9e-0d3b-4c1e-9a55-0e2f7b1d8c44", n.Next())
}

func TestStackNamer_Unique(t *testing.T) {
	n := NewStackNamer("", DefaultStackModelTag)
	// a frozen clock leaves only the random part to tell names apart
	n.now = func() time.Time { return time.UnixMilli(42) }

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		name := n.Next()
		_, dup := seen[name]
		assert.False(t, dup, "duplicate stack name %s", name)
		seen[name] = struct{}{}
		assert.Regexp(t, stackNamePattern, name)
	}
}

func TestStackNamer_Sanitizes(t *testing.T) {
	tests := []struct {
		prefix     string
		wantPrefix string
	}{
		{prefix: "", wantPrefix: DefaultStackPrefix + "-"},
		{prefix: "my demo_stack!", wantPrefix: "my-demo-stack-"},
		{prefix: "2024-summit", wantPrefix: "stack-2024-summit-"},
	}
	for _, tt := range tests {
		t.Run(tt.prefix, func(t *testing.T) {
			name := NewStackNamer(tt.prefix, "").Next()
			assert.True(t, strings.HasPrefix(name, tt.wantPrefix), name)
			assert.Regexp(t, stackNamePattern, name)
		})
	}
}

func TestStackNamer_LengthLimit(t *testing.T) {
	n := NewStackNamer(strings.Repeat("p", 200), "claude3")
	n.newID = func() string { return "6f1c2a9e-0d3b-4c1e-9a55-0e2f7b1d8c44" }

	name := n.Next()
	assert.Len(t, name, maxStackNameLength)
	assert.True(t, strings.HasSuffix(name, "-claude3-6f1c2a9e-0d3b-4c1e-9a55-0e2f7b1d8c44"))
}

func TestStackNamer_LongModelTag(t *testing.T) {
	n := NewStackNamer("demo", strings.Repeat("t", 100))
	n.newID = func() string { return "6f1c2a9e-0d3b-4c1e-9a55-0e2f7b1d8c44" }

	var name string
	assert.NotPanics(t, func() { name = n.Next() })
	assert.LessOrEqual(t, len(name), maxStackNameLength)
	assert.Regexp(t, stackNamePattern, name)
	assert.True(t, strings.HasPrefix(name, "demo-"), name)
	assert.Contains(t, name, "-"+strings.Repeat("t", MaxStackModelTagLength)+"-")
	assert.NotContains(t, name, strings.Repeat("t", MaxStackModelTagLength+1))
}

func TestStackNamer_PrefixNeverEmpty(t *testing.T) {
	for tagLen := 0; tagLen <= 100; tagLen++ {
		for _, prefix := range []string{"ab", strings.Repeat("p", 90)} {
			n := NewStackNamer(prefix, strings.Repeat("t", tagLen))
			name := n.Next()
			assert.LessOrEqual(t, len(name), maxStackNameLength, name)
			assert.Regexp(t, stackNamePattern, name)
		}
	}
}
