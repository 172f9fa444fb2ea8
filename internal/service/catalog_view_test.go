package service

import (
	"testing"

	"github.com/ethicalbot/ethicalbot-go/internal/ethics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribeCatalog(t *testing.T) {
	policy := ethics.DefaultPolicy()
	policy.PatternSensitivity["scams"] = "extreme"

	got := DescribeCatalog(ethics.NewCatalog(policy))

	require.Len(t, got.Categories, 6)
	byName := make(map[string]int, len(got.Categories))
	for i, c := range got.Categories {
		byName[c.Name] = i
	}

	harmful := got.Categories[byName["harmful-content"]]
	assert.Equal(t, "critical", harmful.Sensitivity)
	assert.Contains(t, harmful.Phrases, "hack")
	assert.Empty(t, harmful.Issue)

	scams := got.Categories[byName["scam-manipulation"]]
	assert.Empty(t, scams.Sensitivity)
	assert.Contains(t, scams.Issue, "scams")

	assert.Equal(t, "low", got.Categories[byName["positive-indicator"]].Sensitivity)

	assert.Equal(t, 0.7, got.Behavior["confidenceThreshold"])
	assert.Equal(t, true, got.Behavior["appealEnabled"])
	assert.Len(t, got.Behavior, 5)
}
