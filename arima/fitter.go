package arima

import (
	"errors"
	"fmt"
	"math"

	"github.com/zhengshaocong/Time-Series-Analysis-Project/timeseries"
)

// Reason classifies why a single fit failed.
type Reason string

const (
	ReasonInvalidOrder     Reason = "invalid_order"
	ReasonInsufficientData Reason = "insufficient_data"
	ReasonEmptyDifference  Reason = "empty_difference"
	ReasonNonFinite        Reason = "non_finite"
	ReasonNumerical        Reason = "numerical"
)

// FitError records a failed fit for one order.
type FitError struct {
	Order  Order
	Reason Reason
	Err    error
}

func (e *FitError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Order, e.Reason, e.Err)
}

func (e *FitError) Unwrap() error {
	return e.Err
}

// Outcome is the result of FitOrder. Exactly one of Model and Failure is set.
type Outcome struct {
	Order   Order
	Model   *Model
	Failure *FitError
}

// OK reports whether the fit succeeded.
func (o Outcome) OK() bool {
	return o.Failure == nil && o.Model != nil
}

// FitOrder fits one ARIMA order to values. It never panics; every failure is
// returned as a FitError with a reason.
func FitOrder(values []float64, order Order) (out Outcome) {
	out.Order = order

	fail := func(reason Reason, err error) Outcome {
		return Outcome{Order: order, Failure: &FitError{Order: order, Reason: reason, Err: err}}
	}

	if !order.Valid() {
		return fail(ReasonInvalidOrder, errors.New("orders must be non-negative"))
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(ReasonNumerical, fmt.Errorf("panic during fit: %v", r))
		}
	}()

	model := New(order.P, order.D, order.Q)
	if err := model.Fit(timeseries.New(values)); err != nil {
		switch {
		case errors.Is(err, ErrInsufficientData):
			return fail(ReasonInsufficientData, err)
		case errors.Is(err, ErrEmptyDifference):
			return fail(ReasonEmptyDifference, err)
		default:
			return fail(ReasonNumerical, err)
		}
	}

	if math.IsNaN(model.AIC) || math.IsInf(model.AIC, 0) {
		return fail(ReasonNonFinite, fmt.Errorf("non-finite AIC %v", model.AIC))
	}

	out.Model = model
	return out
}
