package r1cs

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// MultiplexerFixture is the known-good multiplexer circuit used by tests and
// by the explicit --use-fixture development path: 5 wires, 2 public inputs
// (x1, x2), 2 private (x3, x4), 4 constraints over the BLS12-381 scalar
// field. The -1 coefficients are encoded as q-1.
//
//	x4 · x1 = 0
//	(x4 - 1) · x2 = 0
//	0 · 1 = x1 + x2 - x3
//	(x3 - 1) · x3 = 0
//
// The all-zero assignment satisfies it and leaves x4 unconstrained.
func MultiplexerFixture() *File {
	one := big.NewInt(1)
	minusOne := new(big.Int).Sub(fr.Modulus(), big.NewInt(1))
	term := func(wire uint32, coef *big.Int) Term {
		var t Term
		t.WireIndex = wire
		t.Coefficient.Set(coef)
		return t
	}

	return &File{
		Header: Header{
			Version:          VERSION_FLAT,
			FieldElementSize: 32,
			NumWires:         5,
			NumPublicInputs:  2,
			NumPrivateInputs: 2,
			NumConstraints:   4,
		},
		Constraints: []Constraint{
			{
				A: LinearCombination{term(4, one)},
				B: LinearCombination{term(1, one)},
			},
			{
				A: LinearCombination{term(0, minusOne), term(4, one)},
				B: LinearCombination{term(2, one)},
			},
			{
				C: LinearCombination{term(1, one), term(2, one), term(3, minusOne)},
			},
			{
				A: LinearCombination{term(0, minusOne), term(3, one)},
				B: LinearCombination{term(3, one)},
			},
		},
	}
}
