package multiplex

import (
	"regexp"
	"strings"
	"testing"

	"github.com/rs/xid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounterGenerator(t *testing.T) {
	a := NewCounterGenerator()
	b := NewCounterGenerator()

	first := a.NextID()
	second := a.NextID()
	assert.True(t, strings.HasSuffix(first, "$0"), first)
	assert.True(t, strings.HasSuffix(second, "$1"), second)
	assert.NotEqual(t, first, b.NextID(), "generators of different connections must not collide")

	prefix, _, ok := strings.Cut(first, "$")
	require.True(t, ok)
	_, err := xid.FromString(prefix)
	assert.NoError(t, err)
}

func TestTimestampGenerator(t *testing.T) {
	g := NewTimestampGenerator()
	re := regexp.MustCompile(`^\d+\$\d+$`)
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.NextID()
		assert.Regexp(t, re, id)
		assert.False(t, seen[id])
		seen[id] = true
	}
}

func TestXIDGenerator(t *testing.T) {
	a, b := XIDGenerator.NextID(), XIDGenerator.NextID()
	assert.NotEqual(t, a, b)
	_, err := xid.FromString(a)
	assert.NoError(t, err)
}

func TestNewGenerator(t *testing.T) {
	for _, kind := range []string{"", "counter", "timestamp", "xid"} {
		g, err := NewGenerator(kind)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, g.NextID())
	}
	_, err := NewGenerator("uuid")
	require.Error(t, err)
}
