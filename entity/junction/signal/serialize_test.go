package signal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/signalet-oss/entity/junction/signal"
)

func TestPlanJSONRoundTrip(t *testing.T) {
	plan := fourWayPlan(t)
	plan.Offset = 17.5

	data, err := json.Marshal(plan)
	require.NoError(t, err)

	var restored signal.Plan
	require.NoError(t, json.Unmarshal(data, &restored))

	assert.Equal(t, plan.ID, restored.ID)
	assert.Equal(t, plan.Offset, restored.Offset)
	assert.Equal(t, plan.CycleLength(), restored.CycleLength())
	require.Len(t, restored.Phases, len(plan.Phases))
	for i := range plan.Phases {
		assert.Equal(t, plan.Phases[i].SortedProtected(), restored.Phases[i].SortedProtected())
		assert.Equal(t, plan.Phases[i].SortedYield(), restored.Phases[i].SortedYield())
		assert.Equal(t, plan.Phases[i].Duration, restored.Phases[i].Duration)
	}
	assert.NoError(t, restored.Validate())

	// the conflict cache is rebuilt from the restored geometry
	ns := signal.GroupID{From: 1, To: 3, Crosswalk: signal.NoMovement}
	we := signal.GroupID{From: 2, To: 4, Crosswalk: signal.NoMovement}
	sn := signal.GroupID{From: 3, To: 1, Crosswalk: signal.NoMovement}
	assert.True(t, restored.Conflicts(ns, we))
	assert.False(t, restored.Conflicts(ns, sn))
}

func TestPlanJSONDeterministic(t *testing.T) {
	plan := fourWayPlan(t)

	first, err := json.Marshal(plan)
	require.NoError(t, err)
	second, err := json.Marshal(plan)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// a decode/encode cycle is also byte stable
	var restored signal.Plan
	require.NoError(t, json.Unmarshal(first, &restored))
	third, err := json.Marshal(&restored)
	require.NoError(t, err)
	assert.Equal(t, first, third)
}
