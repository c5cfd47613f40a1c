package suggest

import (
	"fmt"
	"math"
)

// MaxWeight is the largest weight a completion may carry.
const MaxWeight = math.MaxInt32

// EncodeWeight maps a weight where higher is better onto the automaton's ascending output
// order, so the best completion has the smallest output.
func EncodeWeight(weight int64) (int64, error) {
	if weight < 0 || weight > MaxWeight {
		return 0, fmt.Errorf("%w: cannot encode %d", ErrWeightOutOfRange, weight)
	}
	return MaxWeight - weight, nil
}

// DecodeWeight reverses EncodeWeight. It panics when output is outside [0, MaxWeight],
// which can only happen with an automaton that was not built by this package.
func DecodeWeight(output int64) int64 {
	if output < 0 || output > MaxWeight {
		panic(fmt.Sprintf("suggest: decoded output %d is not within 0 and %d", output, MaxWeight))
	}
	return MaxWeight - output
}
