package loadgen

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultStagesValid(t *testing.T) {
	require.NoError(t, ValidateStages(DefaultStages()))
}

func TestValidateStagesRejectsNonIncreasing(t *testing.T) {
	assert.Error(t, ValidateStages(nil))
	assert.Error(t, ValidateStages([]Stage{
		{EndsAt: 30, Users: 10, SpawnRate: 5},
		{EndsAt: 30, Users: 20, SpawnRate: 5},
	}))
	assert.Error(t, ValidateStages([]Stage{
		{EndsAt: 60, Users: 10, SpawnRate: 5},
		{EndsAt: 30, Users: 20, SpawnRate: 5},
	}))
	assert.Error(t, ValidateStages([]Stage{{EndsAt: 10, Users: 0, SpawnRate: 5}}))
	assert.Error(t, ValidateStages([]Stage{{EndsAt: 10, Users: 5, SpawnRate: 0}}))
}

func TestTickSelectsStageByElapsed(t *testing.T) {
	stages := DefaultStages()

	cases := []struct {
		elapsed time.Duration
		users   int
		index   int
	}{
		{0, 10, 0},
		{29 * time.Second, 10, 0},
		{30 * time.Second, 50, 1},
		{59 * time.Second, 50, 1},
		{60 * time.Second, 100, 2},
		{89 * time.Second, 100, 2},
		{90 * time.Second, 10, 3},
		{119 * time.Second, 10, 3},
	}

	for _, c := range cases {
		st, idx, ok := Tick(stages, c.elapsed)
		require.True(t, ok, "elapsed %s", c.elapsed)
		assert.Equal(t, c.users, st.Users, "elapsed %s", c.elapsed)
		assert.Equal(t, c.index, idx, "elapsed %s", c.elapsed)
	}
}

func TestTickTerminatesAtFinalThreshold(t *testing.T) {
	stages := DefaultStages()

	_, _, ok := Tick(stages, 120*time.Second)
	assert.False(t, ok)

	_, _, ok = Tick(stages, time.Hour)
	assert.False(t, ok)
}

func TestTotalDuration(t *testing.T) {
	assert.Equal(t, 120*time.Second, TotalDuration(DefaultStages()))
	assert.Equal(t, time.Duration(0), TotalDuration(nil))
}
