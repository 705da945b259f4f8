package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want error
	}{
		{name: "default", plan: DefaultPlan()},
		{name: "zero capacity", plan: Plan{}, want: ErrInvalidCapacity},
		{name: "negative high", plan: Plan{Capacity: 1, HighReceive: -1}, want: ErrInvalidHighCount},
		{name: "negative normal", plan: Plan{Capacity: 1, NormalSend: -2}, want: ErrInvalidPlan},
		{name: "negative burst", plan: Plan{Capacity: 1, Burst: -1}, want: ErrInvalidPlan},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrInvalidPlan)
		})
	}
}

func TestPlan_CountAndTotal(t *testing.T) {
	p := Plan{Capacity: 3, HighSend: 2, HighReceive: 1, NormalSend: 10, NormalReceive: 7}
	assert.Equal(t, 2, p.Count(Send, High))
	assert.Equal(t, 1, p.Count(Receive, High))
	assert.Equal(t, 10, p.Count(Send, Normal))
	assert.Equal(t, 7, p.Count(Receive, Normal))
	assert.Equal(t, 20, p.Total())
}

func TestPlan_DecodesDurationsFromJSONAndYAML(t *testing.T) {
	var fromJSON Plan
	require.NoError(t, json.Unmarshal([]byte(`{"capacity":2,"maxTransfer":"15ms","acquireTimeout":"1s"}`), &fromJSON))
	assert.Equal(t, 15*time.Millisecond, fromJSON.MaxTransfer.Std())
	assert.Equal(t, time.Second, fromJSON.AcquireTimeout.Std())

	var fromYAML Plan
	require.NoError(t, yaml.Unmarshal([]byte("capacity: 4\nhighSend: 1\nmaxTransfer: 2ms\n"), &fromYAML))
	assert.Equal(t, 4, fromYAML.Capacity)
	assert.Equal(t, 1, fromYAML.HighSend)
	assert.Equal(t, 2*time.Millisecond, fromYAML.MaxTransfer.Std())
}

func TestTask_JSONUsesNames(t *testing.T) {
	b, err := json.Marshal(Task{ID: "t1", Direction: Receive, Priority: High})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"t1","direction":"receive","priority":"high"}`, string(b))
}

func TestTask_Validate(t *testing.T) {
	assert.NoError(t, NewTask(Send, Normal).Validate())
	assert.ErrorIs(t, Task{Direction: DirectionNone}.Validate(), ErrInvalidTask)
	assert.ErrorIs(t, Task{Direction: Send, Priority: Priority(7)}.Validate(), ErrInvalidTask)
}

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection(" Sender ")
	require.NoError(t, err)
	assert.Equal(t, Send, d)
	assert.Equal(t, Receive, d.Opposite())

	_, err = ParseDirection("sideways")
	assert.ErrorIs(t, err, ErrInvalidTask)
}

func TestState_GateOpen(t *testing.T) {
	s := State{Capacity: 3, PendingHighSend: 1}
	assert.False(t, s.GateOpen(Send))
	assert.True(t, s.GateOpen(Receive))
}
