package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/mwsobol/SORCER-sub002/core"
	"github.com/mwsobol/SORCER-sub002/exertion"
)

// ArithmeticType is the service type of the built-in providers.
const ArithmeticType = "Arithmetic"

// DefaultResultPath receives a result when the context has no return
// path.
const DefaultResultPath = "result/value"

var errDivideByZero = errors.New("division by zero")

// numbers returns the input values of the context, which must all be
// numbers.
func numbers(c *core.ServiceContext) ([]float64, error) {
	xs, err := c.InValues()
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		return nil, errors.New("no input values")
	}
	acc := make([]float64, len(xs))
	for i, x := range xs {
		f, is := x.(float64)
		if !is {
			return nil, fmt.Errorf("input %d is %T, not a number", i, x)
		}
		acc[i] = f
	}
	return acc, nil
}

func setResult(c *core.ServiceContext, v float64) error {
	if c.ReturnPath() != nil {
		return c.SetReturnValue(v)
	}
	return c.PutOutValue(DefaultResultPath, v)
}

// arithmetic makes a provider that reduces the input values with f.
func arithmetic(f func(xs []float64) (float64, error)) exertion.ProviderFunc {
	return func(ctx context.Context, c *core.ServiceContext) error {
		xs, err := numbers(c)
		if err != nil {
			return err
		}
		v, err := f(xs)
		if err != nil {
			return err
		}
		return setResult(c, v)
	}
}

func fold(op func(acc, x float64) (float64, error)) func([]float64) (float64, error) {
	return func(xs []float64) (float64, error) {
		acc := xs[0]
		for _, x := range xs[1:] {
			var err error
			if acc, err = op(acc, x); err != nil {
				return 0, err
			}
		}
		return acc, nil
	}
}

// registerArithmetic installs the Arithmetic providers.
func registerArithmetic(ex *exertion.LocalExerter) {
	ex.Register(ArithmeticType, "add", arithmetic(fold(func(acc, x float64) (float64, error) {
		return acc + x, nil
	})))
	ex.Register(ArithmeticType, "subtract", arithmetic(fold(func(acc, x float64) (float64, error) {
		return acc - x, nil
	})))
	ex.Register(ArithmeticType, "multiply", arithmetic(fold(func(acc, x float64) (float64, error) {
		return acc * x, nil
	})))
	ex.Register(ArithmeticType, "divide", arithmetic(fold(func(acc, x float64) (float64, error) {
		if x == 0 {
			return 0, errDivideByZero
		}
		return acc / x, nil
	})))
	ex.Register(ArithmeticType, "average", arithmetic(func(xs []float64) (float64, error) {
		var sum float64
		for _, x := range xs {
			sum += x
		}
		return sum / float64(len(xs)), nil
	}))
}
