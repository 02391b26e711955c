package taskpacker

import (
	"context"
	"log"
	"time"

	goerrors "github.com/TudorHulban/go-errors"
)

// Solver finds an assignment for a Model within the time limit.
// The returned error is reserved for malformed models, an unsolvable model
// is reported through Solution.Status.
type Solver interface {
	Solve(ctx context.Context, model *Model, params *ParamsSolver) (*Solution, error)
}

type ParamsSolver struct {
	Logger *log.Logger // used only when Verbose, nil means the standard logger

	TimeLimit time.Duration // zero means no limit
	Seed      int64

	Verbose    bool
	Randomized bool
}

func (param *ParamsSolver) IsValid() error {
	if param.TimeLimit < 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsSolver",
			Issue: goerrors.ErrNegativeInput{
				InputName: "TimeLimit",
			},
		}
	}

	return nil
}

func (param *ParamsSolver) logf(format string, args ...any) {
	if !param.Verbose {
		return
	}

	if param.Logger == nil {
		log.Printf(format, args...)

		return
	}

	param.Logger.Printf(format, args...)
}

func validateModel(model *Model) error {
	if model == nil {
		return goerrors.ErrNilInput{
			InputName: "Model",
		}
	}

	n := len(model.Intervals)

	isInterval := func(ix int) bool {
		return ix >= 0 && ix < n
	}

	for _, interval := range model.Intervals {
		if interval.Duration <= 0 {
			return goerrors.ErrValidation{
				Caller: "Solve",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Interval - duration",
					InputValue: interval.Name,
				},
			}
		}
	}

	for _, slot := range model.Slots {
		if !isInterval(slot.Interval) {
			return goerrors.ErrValidation{
				Caller: "Solve",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Slot - interval",
					InputValue: slot.Interval,
				},
			}
		}
	}

	for _, difference := range model.Differences {
		if !isInterval(difference.From) || !isInterval(difference.To) {
			return goerrors.ErrValidation{
				Caller: "Solve",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "Difference",
					InputValue: difference,
				},
			}
		}
	}

	for _, unary := range model.NoOverlaps {
		for _, ix := range unary.Intervals {
			if !isInterval(ix) {
				return goerrors.ErrValidation{
					Caller: "Solve",
					Issue: goerrors.ErrInvalidInput{
						InputName:  "NoOverlap - interval",
						InputValue: ix,
					},
				}
			}
		}
	}

	for _, exclusion := range model.SlotExclusions {
		if !isInterval(exclusion.IntervalA) || !isInterval(exclusion.IntervalB) ||
			exclusion.SlotA < 0 || exclusion.SlotA >= len(model.Slots) ||
			exclusion.SlotB < 0 || exclusion.SlotB >= len(model.Slots) {
			return goerrors.ErrValidation{
				Caller: "Solve",
				Issue: goerrors.ErrInvalidInput{
					InputName:  "SlotExclusion",
					InputValue: exclusion,
				},
			}
		}
	}

	if model.Objective != nil {
		for _, term := range model.Objective.Lateness {
			if !isInterval(term.Interval) {
				return goerrors.ErrValidation{
					Caller: "Solve",
					Issue: goerrors.ErrInvalidInput{
						InputName:  "Objective - lateness interval",
						InputValue: term.Interval,
					},
				}
			}
		}

		for _, ix := range model.Objective.Finish {
			if !isInterval(ix) {
				return goerrors.ErrValidation{
					Caller: "Solve",
					Issue: goerrors.ErrInvalidInput{
						InputName:  "Objective - finish interval",
						InputValue: ix,
					},
				}
			}
		}
	}

	return nil
}
