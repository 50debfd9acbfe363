// Package circuit maps a decoded R1CS file onto the gnark frontend: one
// variable per wire, one asserted rank-1 relation per decoded constraint.
package circuit

import (
	"errors"
	"fmt"

	"CheckZKPScript/modules/r1cs"

	"github.com/consensys/gnark/frontend"
	"github.com/rs/zerolog"
)

// ErrWireRange reports a term whose wire index lies outside the allocated
// variable range. This is a data-integrity fault in the container; masking
// it by redirecting to the constant wire would make malformed input look
// like a valid circuit.
var ErrWireRange = errors.New("circuit: term wire index outside allocated range")

type Options struct {
	// RedirectOutOfRange restores the legacy behavior of binding
	// out-of-range wire indices to the constant one wire. Every redirected
	// wire is logged at WARN level.
	RedirectOutOfRange bool
	// Logger for the redirect warnings, nil for silence.
	Logger *zerolog.Logger
}

// Circuit holds one gnark variable per R1CS wire. Wire 0 is the in-circuit
// constant 1, wires 1..=NumPublicInputs map to PublicInputs, the remainder
// to PrivateInputs.
type Circuit struct {
	PublicInputs  []frontend.Variable `gnark:",public"`
	PrivateInputs []frontend.Variable

	header      r1cs.Header
	constraints []r1cs.Constraint
	redirect    bool
}

// New validates the constraint list against the header's wire range and
// returns the compile-time placeholder circuit. Constraint order is kept
// exactly as decoded: it determines the reproducibility of circuit-derived
// keys.
func New(f *r1cs.File, opts Options) (*Circuit, error) {
	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	for i := range f.Constraints {
		con := &f.Constraints[i]
		for _, lc := range []r1cs.LinearCombination{con.A, con.B, con.C} {
			for j := range lc {
				wire := lc[j].WireIndex
				if wire < f.Header.NumWires {
					continue
				}
				if !opts.RedirectOutOfRange {
					return nil, fmt.Errorf("constraint %d: %w: wire %d, circuit has %d wires",
						i, ErrWireRange, wire, f.Header.NumWires)
				}
				log.Warn().
					Int("constraint", i).
					Uint32("wire", wire).
					Uint32("num_wires", f.Header.NumWires).
					Msg("redirecting out-of-range wire to the constant one")
			}
		}
	}

	return &Circuit{
		PublicInputs:  make([]frontend.Variable, f.Header.NumPublicInputs),
		PrivateInputs: make([]frontend.Variable, f.Header.NumPrivateInputs),
		header:        f.Header,
		constraints:   f.Constraints,
		redirect:      opts.RedirectOutOfRange,
	}, nil
}

// Define declares one multiplicative assertion per decoded constraint, in
// original file order.
func (c *Circuit) Define(api frontend.API) error {
	for i := range c.constraints {
		con := &c.constraints[i]
		a, err := c.evaluate(api, con.A, 0)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		b, err := c.evaluate(api, con.B, 1)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		rhs, err := c.evaluate(api, con.C, 0)
		if err != nil {
			return fmt.Errorf("constraint %d: %w", i, err)
		}
		api.AssertIsEqual(api.Mul(a, b), rhs)
	}
	return nil
}

// evaluate sums coefficient times variable over the combination. The caller
// passes the value an empty combination stands for under the container
// convention: the constant 1 in the B slot and 0 elsewhere.
func (c *Circuit) evaluate(api frontend.API, lc r1cs.LinearCombination, empty frontend.Variable) (frontend.Variable, error) {
	if len(lc) == 0 {
		return empty, nil
	}
	acc := frontend.Variable(0)
	for j := range lc {
		v, err := c.wire(lc[j].WireIndex)
		if err != nil {
			return nil, err
		}
		acc = api.Add(acc, api.Mul(&lc[j].Coefficient, v))
	}
	return acc, nil
}

func (c *Circuit) wire(idx uint32) (frontend.Variable, error) {
	switch {
	case idx == 0:
		return frontend.Variable(1), nil
	case idx <= c.header.NumPublicInputs:
		return c.PublicInputs[idx-1], nil
	case idx < c.header.NumWires:
		return c.PrivateInputs[idx-1-c.header.NumPublicInputs], nil
	case c.redirect:
		// warned once at construction time
		return frontend.Variable(1), nil
	default:
		return nil, fmt.Errorf("%w: wire %d, circuit has %d wires", ErrWireRange, idx, c.header.NumWires)
	}
}
