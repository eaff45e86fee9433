package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAPIVersion(t *testing.T) {
	v, err := ParseAPIVersion("v1")
	require.NoError(t, err)
	assert.Equal(t, APIVersionV1, v)

	for _, bad := range []string{"", "v0", "V1", "v2"} {
		_, err := ParseAPIVersion(bad)
		assert.Error(t, err, bad)
	}
}

func TestAPIVersionIsAtLeast(t *testing.T) {
	assert.True(t, APIVersionV1.IsAtLeast(APIVersionV1))
	assert.True(t, APIVersionV1.IsAtLeast("v0"), "known beats unknown")
	assert.False(t, APIVersion("v9").IsAtLeast(APIVersionV1), "unknown route version accepts nothing")
	assert.True(t, APIVersion("").IsNil())
}
