package taskpacker

import (
	"fmt"

	goerrors "github.com/TudorHulban/go-errors"
	"github.com/asaskevich/govalidator"
)

// CapacityUnbounded marks a resource any number of tasks can use at once.
const CapacityUnbounded = -1

type Resource struct {
	Name     string
	FullName string

	Capacity int
}

type ParamsNewResource struct {
	Name     string `valid:"required"`
	FullName string

	// zero defaults to 1.
	Capacity int
}

func (param *ParamsNewResource) IsValid() error {
	if len(param.Name) == 0 {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewResource",
			Issue: goerrors.ErrNilInput{
				InputName: "Name",
			},
		}
	}

	if param.Capacity < 0 && param.Capacity != CapacityUnbounded {
		return goerrors.ErrValidation{
			Caller: "IsValid - ParamsNewResource",
			Issue: goerrors.ErrNegativeInput{
				InputName: "Capacity",
			},
		}
	}

	return nil
}

func NewResource(params *ParamsNewResource) (*Resource, error) {
	if params == nil {
		return nil,
			goerrors.ErrNilInput{
				InputName: "ParamsNewResource",
			}
	}

	if _, errValidation := govalidator.ValidateStruct(params); errValidation != nil {
		return nil,
			goerrors.ErrServiceValidation{
				ServiceName: "Taskpacker",
				Caller:      "NewResource",
				Issue:       errValidation,
			}
	}

	if errValidation := params.IsValid(); errValidation != nil {
		return nil,
			errValidation
	}

	return &Resource{
			Name:     params.Name,
			FullName: ternary(len(params.FullName) == 0, params.Name, params.FullName),
			Capacity: ternary(params.Capacity == 0, 1, params.Capacity),
		},
		nil
}

func (res *Resource) IsUnbounded() bool {
	return res.Capacity == CapacityUnbounded
}

func (res *Resource) IsUnary() bool {
	return res.Capacity == 1
}

func (res *Resource) String() string {
	if res.IsUnbounded() {
		return fmt.Sprintf("%s (capacity: inf)", res.Name)
	}

	return fmt.Sprintf(
		"%s (capacity: %d)",

		res.Name,
		res.Capacity,
	)
}
