package control

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"

	"github.com/vietddude/armctl/internal/core/domain"
)

// Sequence is an ordered list of commands loaded from a file.
type Sequence struct {
	Steps []SequenceStep
}

// SequenceStep is one resolved command of a Sequence.
type SequenceStep struct {
	Action domain.CommandAction
	// Pose is set for move steps.
	Pose *domain.Pose
	// Limits optionally replaces the session envelope for this step.
	Limits *domain.Limits
	// Pause is waited after the step succeeds.
	Pause time.Duration
}

// StepResult is the outcome of one executed step.
type StepResult struct {
	Index    int
	Action   domain.CommandAction
	Response domain.Object
	Err      error
}

type rawSequence struct {
	Steps []rawStep `mapstructure:"steps"`
}

type rawStep struct {
	Action domain.CommandAction    `mapstructure:"action"`
	Pose   *domain.PartialPose     `mapstructure:"pose"`
	Limits map[string]domain.Range `mapstructure:"limits"`
	Pause  time.Duration           `mapstructure:"pause"`
}

// LoadSequence reads and decodes a sequence file.
func LoadSequence(path string) (*Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.Error{
			Kind:    domain.KindConfiguration,
			Message: fmt.Sprintf("read sequence %s", path),
			Err:     err,
		}
	}
	return ParseSequence(data)
}

// ParseSequence decodes a YAML (or JSON) sequence document:
//
//	steps:
//	  - action: init
//	  - action: move
//	    pose: {x_cm: 25, y_cm: 0, z_cm: 15, roll_deg: 0, pitch_deg: -30, yaw_deg: 0, grip: 50}
//	    pause: 500ms
//
// Unknown keys are rejected. A move step missing a pose field is an
// InvalidInput error; every other problem is a ConfigurationError.
func ParseSequence(data []byte) (*Sequence, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.Error{Kind: domain.KindConfiguration, Message: "parse sequence", Err: err}
	}

	var raw rawSequence
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:  mapstructure.StringToTimeDurationHookFunc(),
		ErrorUnused: true,
		Result:      &raw,
	})
	if err != nil {
		return nil, fmt.Errorf("create sequence decoder: %w", err)
	}
	if err := dec.Decode(doc); err != nil {
		return nil, &domain.Error{Kind: domain.KindConfiguration, Message: "decode sequence", Err: err}
	}

	if len(raw.Steps) == 0 {
		return nil, domain.NewConfigError("sequence has no steps")
	}

	seq := &Sequence{Steps: make([]SequenceStep, 0, len(raw.Steps))}
	for i, rs := range raw.Steps {
		step, err := rs.resolve(i + 1)
		if err != nil {
			return nil, err
		}
		seq.Steps = append(seq.Steps, step)
	}
	return seq, nil
}

func (rs rawStep) resolve(n int) (SequenceStep, error) {
	step := SequenceStep{Action: rs.Action, Pause: rs.Pause}

	if rs.Pause < 0 {
		return step, domain.NewConfigError("step %d: pause must not be negative", n)
	}

	switch rs.Action {
	case domain.ActionInit:
		if rs.Pose != nil || rs.Limits != nil {
			return step, domain.NewConfigError("step %d: init takes no pose or limits", n)
		}

	case domain.ActionMove:
		if rs.Pose == nil {
			return step, &domain.Error{
				Kind:    domain.KindInvalidInput,
				Message: fmt.Sprintf("step %d: move requires a pose", n),
			}
		}
		pose, err := rs.Pose.Complete()
		if err != nil {
			e, _ := domain.AsError(err)
			return step, &domain.Error{
				Kind:    domain.KindInvalidInput,
				Field:   e.Field,
				Message: fmt.Sprintf("step %d: %s", n, e.Message),
			}
		}
		step.Pose = &pose

		if rs.Limits != nil {
			limits, err := domain.LimitsFromNames(rs.Limits)
			if err != nil {
				return step, &domain.Error{
					Kind:    domain.KindConfiguration,
					Message: fmt.Sprintf("step %d: limits", n),
					Err:     err,
				}
			}
			step.Limits = &limits
		}

	default:
		return step, domain.NewConfigError("step %d: unknown action %q", n, rs.Action)
	}

	return step, nil
}

// Run executes seq in order and stops at the first failure. Results hold one
// entry per attempted step.
func (s *Session) Run(ctx context.Context, seq *Sequence) ([]StepResult, error) {
	results := make([]StepResult, 0, len(seq.Steps))

	for i, step := range seq.Steps {
		var (
			resp domain.Object
			err  error
		)
		switch step.Action {
		case domain.ActionInit:
			resp, err = s.Initialize(ctx)
		case domain.ActionMove:
			resp, err = s.MoveAbsolute(ctx, *step.Pose, step.Limits)
		default:
			err = domain.NewConfigError("step %d: unknown action %q", i+1, step.Action)
		}

		results = append(results, StepResult{Index: i, Action: step.Action, Response: resp, Err: err})
		if err != nil {
			return results, err
		}

		s.logger.Debug("Sequence step done", "step", i+1, "of", len(seq.Steps), "action", step.Action)

		if step.Pause > 0 {
			if err := pause(ctx, step.Pause); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}

func pause(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return &domain.Error{Kind: domain.KindCancelled, Message: "sequence cancelled", Err: ctx.Err()}
	case <-timer.C:
		return nil
	}
}
