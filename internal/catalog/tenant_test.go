package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolvePrefersCandidate(t *testing.T) {
	r := NewTenantResolver("primary")

	got := r.Resolve(strPtr("t1"))
	require.NotNil(t, got)
	assert.Equal(t, "t1", *got)
}

func TestResolveFallsBackToDefault(t *testing.T) {
	r := NewTenantResolver("primary")

	got := r.Resolve(nil)
	require.NotNil(t, got)
	assert.Equal(t, "primary", *got)

	empty := ""
	got = r.Resolve(&empty)
	require.NotNil(t, got)
	assert.Equal(t, "primary", *got)
}

func TestResolveNoDefaultYieldsNil(t *testing.T) {
	r := NewTenantResolver("")

	assert.Nil(t, r.Resolve(nil))

	empty := ""
	assert.Nil(t, r.Resolve(&empty))
}

func TestTenantKey(t *testing.T) {
	assert.Equal(t, "global", tenantKey(nil))
	assert.Equal(t, "t1", tenantKey(strPtr("t1")))
}
