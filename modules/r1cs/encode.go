package r1cs

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

type outputBuf struct {
	buf []byte
}

func (o *outputBuf) appendUint32(x uint32) {
	o.buf = binary.LittleEndian.AppendUint32(o.buf, x)
}

func (o *outputBuf) appendUint64(x uint64) {
	o.buf = binary.LittleEndian.AppendUint64(o.buf, x)
}

// appendFieldElement writes x as size little-endian bytes, the exact inverse
// of the decoder's conversion.
func (o *outputBuf) appendFieldElement(x *big.Int, size uint32) error {
	if x.Sign() < 0 {
		return fmt.Errorf("%w: negative coefficient %s has no container encoding", ErrBounds, x)
	}
	b := x.Bytes()
	if uint32(len(b)) > size {
		return fmt.Errorf("%w: coefficient needs %d bytes, field element size is %d",
			ErrBounds, len(b), size)
	}
	zbuf := make([]byte, size)
	for i := 0; i < len(b); i++ {
		zbuf[i] = b[len(b)-1-i]
	}
	o.buf = append(o.buf, zbuf...)
	return nil
}

func (o *outputBuf) appendHeaderFields(h *Header) {
	o.appendUint32(h.FieldElementSize)
	o.appendUint32(h.NumWires)
	o.appendUint32(h.NumPublicInputs)
	o.appendUint32(h.NumPrivateInputs)
	o.appendUint32(h.NumConstraints)
}

func (o *outputBuf) appendCombination(lc LinearCombination, fieldSize uint32) error {
	o.appendUint32(uint32(len(lc)))
	for i := range lc {
		o.appendUint32(lc[i].WireIndex)
		if err := o.appendFieldElement(&lc[i].Coefficient, fieldSize); err != nil {
			return err
		}
	}
	return nil
}

func (o *outputBuf) appendConstraints(f *File) error {
	for i := range f.Constraints {
		c := &f.Constraints[i]
		for _, lc := range []LinearCombination{c.A, c.B, c.C} {
			if err := o.appendCombination(lc, f.Header.FieldElementSize); err != nil {
				return fmt.Errorf("constraint %d: %w", i, err)
			}
		}
	}
	return nil
}

// Serialize encodes the file in the layout selected by Header.Version,
// producing bytes that Decode parses back into an identical File.
func (f *File) Serialize() ([]byte, error) {
	if int(f.Header.NumConstraints) != len(f.Constraints) {
		return nil, fmt.Errorf("%w: header says %d constraints, file holds %d",
			ErrBounds, f.Header.NumConstraints, len(f.Constraints))
	}

	o := &outputBuf{}
	o.appendUint32(MAGIC_NUM)
	o.appendUint32(f.Header.Version)

	switch f.Header.Version {
	case VERSION_FLAT:
		o.appendHeaderFields(&f.Header)
		if err := o.appendConstraints(f); err != nil {
			return nil, err
		}
	case VERSION_SECTIONED:
		body := &outputBuf{}
		if err := body.appendConstraints(f); err != nil {
			return nil, err
		}
		o.appendUint32(2) // header section + constraint section
		o.appendUint32(SECTION_HEADER)
		o.appendUint64(HEADER_FIELD_BYTES)
		o.appendHeaderFields(&f.Header)
		o.appendUint32(SECTION_CONSTRAINTS)
		o.appendUint64(uint64(len(body.buf)))
		o.buf = append(o.buf, body.buf...)
	default:
		return nil, fmt.Errorf("%w: unsupported version %d", ErrFormat, f.Header.Version)
	}
	return o.buf, nil
}
