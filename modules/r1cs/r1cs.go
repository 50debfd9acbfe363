// Package r1cs decodes and encodes the binary R1CS container emitted by
// circuit compilers: a magic tag, a fixed-width header, and a stream of
// sparse (A, B, C) linear-combination triples over a prime field.
package r1cs

import (
	"errors"
	"fmt"
	"math/big"
)

const MAGIC_NUM uint32 = 0x73633172 // b'r1cs', little-endian

const (
	// VERSION_FLAT containers carry the header fields right after the
	// version word, followed immediately by the constraint blocks.
	VERSION_FLAT uint32 = 1
	// VERSION_SECTIONED containers carry a typed section table; the header
	// and constraint sections are located by type, never by offset.
	VERSION_SECTIONED uint32 = 2
)

const (
	SECTION_HEADER      uint32 = 1
	SECTION_CONSTRAINTS uint32 = 2
)

// HEADER_FIELD_BYTES is the encoded size of the five u32 header fields.
const HEADER_FIELD_BYTES uint64 = 20

var (
	// ErrFormat reports a malformed container: bad magic, unsupported
	// version, broken section table, or a truncated stream.
	ErrFormat = errors.New("r1cs: malformed container")
	// ErrBounds reports header counts that contradict each other.
	ErrBounds = errors.New("r1cs: header counts out of bounds")
	// ErrOverflow reports a length field above the configured ceiling,
	// treated as parser desynchronization rather than a size to allocate.
	ErrOverflow = errors.New("r1cs: length above configured ceiling")
)

// Header is the fixed-width file header. All fields are little-endian u32
// on the wire. NumPublicInputs + NumPrivateInputs == NumWires - 1 always
// holds for a valid header; wire 0 is the constant one and belongs to
// neither group.
type Header struct {
	Version          uint32
	FieldElementSize uint32
	NumWires         uint32
	NumPublicInputs  uint32
	NumPrivateInputs uint32
	NumConstraints   uint32
}

// Term is one sparse matrix entry: coefficient times the wire at WireIndex.
// The coefficient is kept value-exact as read from the container; reduction
// happens when the constraint is handed to the proving field.
type Term struct {
	WireIndex   uint32
	Coefficient big.Int
}

// LinearCombination is an ordered term list. Order is mathematically
// insignificant but round-trips exactly. An empty combination is a valid
// encoding: it stands for the constant 1 in the B slot and 0 elsewhere.
type LinearCombination []Term

// Constraint is one rank-1 relation A·w × B·w = C·w.
type Constraint struct {
	A LinearCombination
	B LinearCombination
	C LinearCombination
}

// File is a fully decoded container: parsed once, immutable afterwards.
type File struct {
	Header      Header
	Constraints []Constraint
}

// DecodeLimits bounds every length read from untrusted input before any
// buffer is allocated from it.
type DecodeLimits struct {
	MaxTermsPerCombination uint32
	MaxConstraints         uint32
	MaxWires               uint32
	MaxSections            uint32
}

func DefaultLimits() DecodeLimits {
	return DecodeLimits{
		MaxTermsPerCombination: 4096,
		MaxConstraints:         1 << 20,
		MaxWires:               1 << 26,
		MaxSections:            32,
	}
}

func (h *Header) validate(limits DecodeLimits) error {
	if h.FieldElementSize < 1 || h.FieldElementSize > 64 {
		return fmt.Errorf("%w: field element size %d outside 1..64", ErrBounds, h.FieldElementSize)
	}
	if h.NumWires == 0 {
		return fmt.Errorf("%w: zero wires, constant wire 0 must exist", ErrBounds)
	}
	if h.NumPublicInputs > h.NumWires {
		return fmt.Errorf("%w: public input count %d exceeds wire count %d",
			ErrBounds, h.NumPublicInputs, h.NumWires)
	}
	if uint64(h.NumPublicInputs)+uint64(h.NumPrivateInputs) != uint64(h.NumWires)-1 {
		return fmt.Errorf("%w: public %d + private %d != wires %d - 1",
			ErrBounds, h.NumPublicInputs, h.NumPrivateInputs, h.NumWires)
	}
	if h.NumWires > limits.MaxWires {
		return fmt.Errorf("%w: wire count %d exceeds ceiling %d", ErrOverflow, h.NumWires, limits.MaxWires)
	}
	if h.NumConstraints > limits.MaxConstraints {
		return fmt.Errorf("%w: constraint count %d exceeds ceiling %d",
			ErrOverflow, h.NumConstraints, limits.MaxConstraints)
	}
	return nil
}
