package r1cs

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/big"
)

type decoder struct {
	r      io.Reader
	limits DecodeLimits
}

func (d *decoder) u32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated u32: %v", ErrFormat, err)
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

func (d *decoder) u64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(d.r, b[:]); err != nil {
		return 0, fmt.Errorf("%w: truncated u64: %v", ErrFormat, err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// fieldElement reads size little-endian bytes and converts them exactly into
// a big.Int (which is big-endian internally), with no modular reduction.
func (d *decoder) fieldElement(size uint32) (big.Int, error) {
	var x big.Int
	buf := make([]byte, size)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return x, fmt.Errorf("%w: truncated field element: %v", ErrFormat, err)
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	x.SetBytes(buf)
	return x, nil
}

func (d *decoder) skip(n uint64) error {
	if n > math.MaxInt64 {
		return fmt.Errorf("%w: absurd section size %d", ErrFormat, n)
	}
	if _, err := io.CopyN(io.Discard, d.r, int64(n)); err != nil {
		return fmt.Errorf("%w: truncated section of declared size %d: %v", ErrFormat, n, err)
	}
	return nil
}

// magicVersion consumes and checks the container preamble shared by both
// layouts.
func (d *decoder) magicVersion() (uint32, error) {
	magic, err := d.u32()
	if err != nil {
		return 0, err
	}
	if magic != MAGIC_NUM {
		return 0, fmt.Errorf("%w: bad magic 0x%08x, want 0x%08x", ErrFormat, magic, MAGIC_NUM)
	}
	version, err := d.u32()
	if err != nil {
		return 0, err
	}
	if version != VERSION_FLAT && version != VERSION_SECTIONED {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrFormat, version)
	}
	return version, nil
}

// headerFields reads the five scalar header fields that follow the version
// word (flat layout) or sit in the header section payload (sectioned layout).
func (d *decoder) headerFields(version uint32) (*Header, error) {
	h := Header{Version: version}
	for _, field := range []*uint32{
		&h.FieldElementSize, &h.NumWires, &h.NumPublicInputs, &h.NumPrivateInputs, &h.NumConstraints,
	} {
		v, err := d.u32()
		if err != nil {
			return nil, err
		}
		*field = v
	}
	if err := h.validate(d.limits); err != nil {
		return nil, err
	}
	return &h, nil
}

func (d *decoder) combination(fieldSize uint32) (LinearCombination, error) {
	n, err := d.u32()
	if err != nil {
		return nil, err
	}
	if n > d.limits.MaxTermsPerCombination {
		return nil, fmt.Errorf("%w: term count %d exceeds ceiling %d, stream is desynchronized",
			ErrOverflow, n, d.limits.MaxTermsPerCombination)
	}
	if n == 0 {
		// valid: the constant 1 in the B slot, 0 in the A and C slots
		return nil, nil
	}
	terms := make(LinearCombination, 0, n)
	for j := uint32(0); j < n; j++ {
		wire, err := d.u32()
		if err != nil {
			return nil, err
		}
		coef, err := d.fieldElement(fieldSize)
		if err != nil {
			return nil, err
		}
		terms = append(terms, Term{WireIndex: wire, Coefficient: coef})
	}
	return terms, nil
}

func (d *decoder) constraints(h *Header) ([]Constraint, error) {
	cons := make([]Constraint, 0, h.NumConstraints)
	for i := uint32(0); i < h.NumConstraints; i++ {
		var c Constraint
		var err error
		if c.A, err = d.combination(h.FieldElementSize); err != nil {
			return nil, fmt.Errorf("constraint %d, combination A: %w", i, err)
		}
		if c.B, err = d.combination(h.FieldElementSize); err != nil {
			return nil, fmt.Errorf("constraint %d, combination B: %w", i, err)
		}
		if c.C, err = d.combination(h.FieldElementSize); err != nil {
			return nil, fmt.Errorf("constraint %d, combination C: %w", i, err)
		}
		cons = append(cons, c)
	}
	return cons, nil
}

// DecodeHeader reads the container preamble and returns the validated header
// without touching the constraint stream. In the sectioned layout it walks
// the section table until the header section is found, skipping unknown
// section types by their declared size.
func DecodeHeader(r io.Reader, limits DecodeLimits) (*Header, error) {
	d := &decoder{r: bufio.NewReader(r), limits: limits}
	version, err := d.magicVersion()
	if err != nil {
		return nil, err
	}
	if version == VERSION_FLAT {
		return d.headerFields(version)
	}

	nSections, err := d.u32()
	if err != nil {
		return nil, err
	}
	if nSections > limits.MaxSections {
		return nil, fmt.Errorf("%w: section count %d exceeds ceiling %d", ErrOverflow, nSections, limits.MaxSections)
	}
	for i := uint32(0); i < nSections; i++ {
		typ, size, err := d.sectionPrefix()
		if err != nil {
			return nil, err
		}
		if typ != SECTION_HEADER {
			if err := d.skip(size); err != nil {
				return nil, err
			}
			continue
		}
		return d.headerSection(version, size)
	}
	return nil, fmt.Errorf("%w: no header section in %d sections", ErrFormat, nSections)
}

func (d *decoder) sectionPrefix() (typ uint32, size uint64, err error) {
	if typ, err = d.u32(); err != nil {
		return 0, 0, err
	}
	if size, err = d.u64(); err != nil {
		return 0, 0, err
	}
	return typ, size, nil
}

// headerSection parses the header fields out of a section payload whose
// declared size may exceed the known fields; the trailing bytes are skipped.
func (d *decoder) headerSection(version uint32, size uint64) (*Header, error) {
	if size < HEADER_FIELD_BYTES {
		return nil, fmt.Errorf("%w: header section size %d, need at least %d", ErrFormat, size, HEADER_FIELD_BYTES)
	}
	h, err := d.headerFields(version)
	if err != nil {
		return nil, err
	}
	if err := d.skip(size - HEADER_FIELD_BYTES); err != nil {
		return nil, err
	}
	return h, nil
}

// Decode parses a complete container into an immutable File. The header is
// always located and validated before any constraint bytes are interpreted,
// and every count is checked against limits before buffers are sized from it.
func Decode(r io.Reader, limits DecodeLimits) (*File, error) {
	d := &decoder{r: bufio.NewReader(r), limits: limits}
	version, err := d.magicVersion()
	if err != nil {
		return nil, err
	}

	if version == VERSION_FLAT {
		h, err := d.headerFields(version)
		if err != nil {
			return nil, err
		}
		cons, err := d.constraints(h)
		if err != nil {
			return nil, err
		}
		return &File{Header: *h, Constraints: cons}, nil
	}

	nSections, err := d.u32()
	if err != nil {
		return nil, err
	}
	if nSections > limits.MaxSections {
		return nil, fmt.Errorf("%w: section count %d exceeds ceiling %d", ErrOverflow, nSections, limits.MaxSections)
	}

	var header *Header
	var cons []Constraint
	seenConstraints := false
	for i := uint32(0); i < nSections; i++ {
		typ, size, err := d.sectionPrefix()
		if err != nil {
			return nil, err
		}
		switch typ {
		case SECTION_HEADER:
			if header != nil {
				return nil, fmt.Errorf("%w: duplicate header section", ErrFormat)
			}
			if header, err = d.headerSection(version, size); err != nil {
				return nil, err
			}
		case SECTION_CONSTRAINTS:
			if header == nil {
				return nil, fmt.Errorf("%w: constraint section precedes header section", ErrFormat)
			}
			if seenConstraints {
				return nil, fmt.Errorf("%w: duplicate constraint section", ErrFormat)
			}
			seenConstraints = true
			if cons, err = d.constraintSection(header, size); err != nil {
				return nil, err
			}
		default:
			// unknown section types are skipped by declared size
			if err := d.skip(size); err != nil {
				return nil, err
			}
		}
	}
	if header == nil {
		return nil, fmt.Errorf("%w: no header section in %d sections", ErrFormat, nSections)
	}
	if !seenConstraints {
		return nil, fmt.Errorf("%w: no constraint section in %d sections", ErrFormat, nSections)
	}
	return &File{Header: *header, Constraints: cons}, nil
}

// constraintSection parses the constraint stream confined to the declared
// section size; a size mismatch in either direction means the writer and
// this parser disagree about the layout, and the file is rejected.
func (d *decoder) constraintSection(h *Header, size uint64) ([]Constraint, error) {
	if size > math.MaxInt64 {
		return nil, fmt.Errorf("%w: absurd constraint section size %d", ErrFormat, size)
	}
	lim := &io.LimitedReader{R: d.r, N: int64(size)}
	sub := &decoder{r: lim, limits: d.limits}
	cons, err := sub.constraints(h)
	if err != nil {
		return nil, err
	}
	if lim.N != 0 {
		return nil, fmt.Errorf("%w: constraint section declared %d bytes, %d left after %d constraints",
			ErrFormat, size, lim.N, h.NumConstraints)
	}
	return cons, nil
}
