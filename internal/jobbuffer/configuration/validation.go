package configuration

import (
	"github.com/go-playground/validator/v10"
)

func (c Configuration) Validate() error {
	validate := validator.New()
	validate.RegisterStructValidation(RangeValidation, Range{})
	if err := validate.Struct(c); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// RangeValidation rejects ranges whose lower bound exceeds the upper bound.
func RangeValidation(sl validator.StructLevel) {
	r := sl.Current().Interface().(Range)
	if r.Min > r.Max {
		sl.ReportError(r.Max, "Max", "Max", "gtefield", "Min")
	}
}
