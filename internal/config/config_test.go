package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "x", cfg.FreshNamePrefix)
	assert.True(t, cfg.DedupPartialApplicationAdapters)
}

func TestLoadOverridesOnlyMentionedFields(t *testing.T) {
	cfg, err := Load([]byte("fresh_name_prefix: v\n"))
	require.NoError(t, err)
	assert.Equal(t, "v", cfg.FreshNamePrefix)
	assert.True(t, cfg.DedupPartialApplicationAdapters, "unmentioned fields keep their default")
}

func TestMarshalRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Verbosity = 2
	data, err := cfg.Marshal()
	require.NoError(t, err)

	reparsed, err := Load(data)
	require.NoError(t, err)
	assert.Equal(t, cfg, reparsed)
}
