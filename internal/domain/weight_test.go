package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightFromFloat_RoundsToHundredths(t *testing.T) {
	assert.Equal(t, Weight(93), WeightFromFloat(0.9288))
	assert.Equal(t, Weight(100), WeightFromFloat(0.995))
	assert.Equal(t, Weight(25), WeightFromFloat(0.25))
	assert.Equal(t, Weight(324), WeightFromFloat(3.24))
}

func TestWeight_JSON(t *testing.T) {
	data, err := json.Marshal(struct {
		W Weight `json:"w"`
	}{W: 93})
	require.NoError(t, err)
	assert.JSONEq(t, `{"w":0.93}`, string(data))

	var w Weight
	require.NoError(t, json.Unmarshal([]byte(`1.5`), &w))
	assert.Equal(t, Weight(150), w)

	assert.Error(t, json.Unmarshal([]byte(`"x"`), &w))
}

func TestMultipliers_Product(t *testing.T) {
	m := Multipliers{AccountAge: 1.25, Reputation: 2, Contribution: 1.5, Verification: 1.2}
	assert.InDelta(t, 4.5, m.Product(), 1e-9)
}
