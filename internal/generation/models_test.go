package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDuration(t *testing.T) {
	cases := []struct {
		model   string
		in      int
		want    int
		changed bool
	}{
		{"sora-2", 6, 4, true},
		{"sora-2", 8, 8, false},
		{"sora-2-pro", 0, 4, true},
		{"kling-v2.1", 10, 10, false},
		{"kling-v2.1", 8, 5, true},
		{"veo-3.0-generate-001", 5, 8, true},
		{"veo-2.0-generate-001", 7, 7, false},
	}
	for _, tc := range cases {
		got, changed, err := NormalizeDuration(tc.model, tc.in)
		require.NoError(t, err, tc.model)
		assert.Equal(t, tc.want, got, "%s %d", tc.model, tc.in)
		assert.Equal(t, tc.changed, changed, "%s %d", tc.model, tc.in)
	}

	_, _, err := NormalizeDuration("unknown", 4)
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}

func TestValidateAspectRatio(t *testing.T) {
	got, err := ValidateAspectRatio("kling-v2.1", "")
	require.NoError(t, err)
	assert.Equal(t, "16:9", got)

	got, err = ValidateAspectRatio("kling-v2.1", "1:1")
	require.NoError(t, err)
	assert.Equal(t, "1:1", got)

	_, err = ValidateAspectRatio("sora-2", "1:1")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestVideoModelsReturnsCopy(t *testing.T) {
	ms := VideoModels()
	require.NotEmpty(t, ms)
	ms[0].Durations[0] = 99
	m, err := LookupVideoModel(ms[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, 99, m.Durations[0])
	for _, m := range VideoModels() {
		assert.True(t, m.Supports(m.Default), m.ID)
	}
}
