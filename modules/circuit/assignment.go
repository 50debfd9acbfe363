package circuit

import (
	"fmt"
	"math/big"

	"CheckZKPScript/modules/r1cs"

	"github.com/consensys/gnark/frontend"
)

// AssignFunc is the per-wire value policy for one proving run. It is
// consulted for wires 1..NumWires-1; wire 0 is the implicit constant 1.
// A nil result is an error, not a default.
type AssignFunc func(wire uint32) *big.Int

// ZeroAssign assigns zero to every wire. It satisfies the multiplexer
// fixture.
func ZeroAssign(wire uint32) *big.Int {
	return big.NewInt(0)
}

// SliceAssign adapts a dense witness vector indexed by wire, the layout the
// proving side works with: w[0] = 1, then public wires, then private wires.
func SliceAssign(values []*big.Int) (AssignFunc, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("empty witness vector")
	}
	if values[0] == nil || values[0].Cmp(big.NewInt(1)) != 0 {
		return nil, fmt.Errorf("witness vector w[0] = %v, the constant wire must carry 1", values[0])
	}
	return func(wire uint32) *big.Int {
		if int(wire) >= len(values) {
			return nil
		}
		return values[wire]
	}, nil
}

// Assignment builds the witness instance handed to frontend.NewWitness:
// the same variable shape as New's placeholder, with concrete values.
func Assignment(f *r1cs.File, assign AssignFunc) (*Circuit, error) {
	h := f.Header
	out := &Circuit{
		PublicInputs:  make([]frontend.Variable, h.NumPublicInputs),
		PrivateInputs: make([]frontend.Variable, h.NumPrivateInputs),
		header:        h,
	}
	for wire := uint32(1); wire < h.NumWires; wire++ {
		v := assign(wire)
		if v == nil {
			return nil, fmt.Errorf("no value assigned to wire %d", wire)
		}
		if wire <= h.NumPublicInputs {
			out.PublicInputs[wire-1] = v
		} else {
			out.PrivateInputs[wire-1-h.NumPublicInputs] = v
		}
	}
	return out, nil
}
