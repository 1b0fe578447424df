package control

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/armctl/internal/core/domain"
	"github.com/vietddude/armctl/internal/sim"
)

const demoSequence = `
steps:
  - action: init
  - action: move
    pose: {x_cm: 25, y_cm: 0, z_cm: 15, roll_deg: 0, pitch_deg: -30, yaw_deg: 0, grip: 50}
    pause: 10ms
  - action: move
    pose: {x_cm: 5, y_cm: 5, z_cm: 10, roll_deg: 0, pitch_deg: 0, yaw_deg: 0, grip: 0}
    limits:
      x_cm: {min: -10, max: 10}
      y_cm: {min: -10, max: 10}
      z_cm: {min: 0, max: 20}
      roll_deg: {min: -90, max: 90}
      pitch_deg: {min: -90, max: 90}
      yaw_deg: {min: -90, max: 90}
      grip: {min: 0, max: 100}
`

func TestParseSequence(t *testing.T) {
	seq, err := ParseSequence([]byte(demoSequence))
	require.NoError(t, err)
	require.Len(t, seq.Steps, 3)

	assert.Equal(t, domain.ActionInit, seq.Steps[0].Action)
	assert.Nil(t, seq.Steps[0].Pose)

	require.NotNil(t, seq.Steps[1].Pose)
	assert.Equal(t, home, *seq.Steps[1].Pose)
	assert.Equal(t, 10*time.Millisecond, seq.Steps[1].Pause)
	assert.Nil(t, seq.Steps[1].Limits)

	require.NotNil(t, seq.Steps[2].Limits)
	x, _ := seq.Steps[2].Limits.Range(domain.AxisX)
	assert.Equal(t, domain.Range{Min: -10, Max: 10}, x)
}

func TestParseSequence_JSON(t *testing.T) {
	seq, err := ParseSequence([]byte(`{"steps": [{"action": "init"}]}`))
	require.NoError(t, err)
	assert.Len(t, seq.Steps, 1)
}

func TestParseSequence_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		kind domain.ErrorKind
	}{
		{"not yaml", "steps: [", domain.KindConfiguration},
		{"no steps", "steps: []", domain.KindConfiguration},
		{"unknown key", "steps:\n  - action: init\n    speed: 3", domain.KindConfiguration},
		{"unknown top key", "stepz: []", domain.KindConfiguration},
		{"unknown action", "steps:\n  - action: wave", domain.KindConfiguration},
		{"init with pose", "steps:\n  - action: init\n    pose: {x_cm: 1}", domain.KindConfiguration},
		{"bad pause", "steps:\n  - action: init\n    pause: soon", domain.KindConfiguration},
		{"move without pose", "steps:\n  - action: move", domain.KindInvalidInput},
		{"missing field", "steps:\n  - action: move\n    pose: {x_cm: 1, y_cm: 2}", domain.KindInvalidInput},
		{
			"partial limits",
			"steps:\n  - action: move\n    pose: {x_cm: 0, y_cm: 0, z_cm: 0, roll_deg: 0, pitch_deg: 0, yaw_deg: 0, grip: 0}\n    limits: {x_cm: {min: 0, max: 1}}",
			domain.KindConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSequence([]byte(tt.doc))
			require.Error(t, err)
			kind, ok := domain.KindOf(err)
			require.True(t, ok, "untyped error %v", err)
			assert.Equal(t, tt.kind, kind, err.Error())
		})
	}
}

func TestParseSequence_MissingFieldNamesAxis(t *testing.T) {
	_, err := ParseSequence([]byte("steps:\n  - action: move\n    pose: {x_cm: 1, y_cm: 2}"))
	e, ok := domain.AsError(err)
	require.True(t, ok)
	assert.Equal(t, domain.AxisZ, e.Field)
	assert.Contains(t, e.Message, "step 1")
}

func TestLoadSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(demoSequence), 0o600))

	seq, err := LoadSequence(path)
	require.NoError(t, err)
	assert.Len(t, seq.Steps, 3)

	_, err = LoadSequence(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestSession_Run(t *testing.T) {
	ctrl := sim.NewController(nil)
	s, _ := newSession(t, ctrl, nil)

	seq, err := ParseSequence([]byte(demoSequence))
	require.NoError(t, err)

	results, err := s.Run(context.Background(), seq)
	require.NoError(t, err)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.NoError(t, r.Err)
	}

	assert.Equal(t, 1, ctrl.Inits())
	assert.Len(t, ctrl.Poses(), 2)
}

func TestSession_RunStopsAtFirstFailure(t *testing.T) {
	ctrl := sim.NewController(nil)
	s, _ := newSession(t, ctrl, nil)

	far := home
	far.Z = 500
	seq := &Sequence{Steps: []SequenceStep{
		{Action: domain.ActionInit},
		{Action: domain.ActionMove, Pose: &far},
		{Action: domain.ActionMove, Pose: &home},
	}}

	results, err := s.Run(context.Background(), seq)
	assert.ErrorIs(t, err, domain.ErrOutOfEnvelope)
	require.Len(t, results, 2)
	assert.Error(t, results[1].Err)
	assert.Empty(t, ctrl.Poses())
}

func TestSession_RunPauseHonoursContext(t *testing.T) {
	ctrl := sim.NewController(nil)
	s, _ := newSession(t, ctrl, nil)

	seq := &Sequence{Steps: []SequenceStep{
		{Action: domain.ActionInit, Pause: time.Hour},
		{Action: domain.ActionInit},
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	results, err := s.Run(ctx, seq)
	assert.ErrorIs(t, err, domain.ErrCancelled)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, ctrl.Inits())
}
