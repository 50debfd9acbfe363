// Package packager flattens Groth16 artifacts into the ordered stack item
// list consumed by the OP_CHECKZKP script template.
//
// For mode 0 the canonical item order is the mode byte, the verifying-key
// chunks, the public inputs, then the eight proof coordinates
// A.X, A.Y, B.X.A0, B.X.A1, B.Y.A0, B.Y.A1, C.X, C.Y. The order in which
// a validator consumes the list is a property of the script, not of the
// packager; see Params.Order.
package packager

import (
	"errors"
	"fmt"

	"CheckZKPScript/modules/script"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fp"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16bls "github.com/consensys/gnark/backend/groth16/bls12-381"
	"github.com/rs/zerolog"
)

var (
	// ErrSerializationSize reports a backend-produced element whose byte
	// length differs from the pinned protocol constant. It guards against
	// silent backend or curve changes.
	ErrSerializationSize = errors.New("packager: element byte length differs from protocol constant")
	// ErrProtocolShape reports an artifact whose shape cannot fill the
	// fixed item list: wrong chunk count, wrong K point count, or proof
	// parts the list has no slot for.
	ErrProtocolShape = errors.New("packager: artifact shape differs from pinned protocol")
)

// Params pins one protocol version's wire constants.
type Params struct {
	// Mode is the leading mode byte.
	Mode byte
	// CoordinateBytes is the serialized width of one base-field
	// coordinate.
	CoordinateBytes int
	// PublicInputBytes is the width every public-input scalar is padded
	// to, little-endian with the zero padding at the high-order end.
	PublicInputBytes int
	// VKChunkSize and VKChunkCount fix how the serialized verifying key
	// splits into stack items.
	VKChunkSize  int
	VKChunkCount int
	// PadVKChunks permits appending all-zero chunks when the verifying
	// key fills fewer than VKChunkCount chunks. Each padded chunk is
	// logged. A key needing more chunks than VKChunkCount is always an
	// error; items are never truncated.
	PadVKChunks bool
	// Order is the item iteration order the script assembler must use
	// for this protocol version.
	Order script.ItemOrder
	// Logger for padding warnings, nil for silence.
	Logger *zerolog.Logger
}

// Mode0Params returns the wire constants of DIP-69 mode 0: 48-byte
// coordinates, 32-byte public inputs, six 80-byte verifying-key chunks,
// reverse item iteration.
func Mode0Params() Params {
	return Params{
		Mode:             0x00,
		CoordinateBytes:  48,
		PublicInputBytes: 32,
		VKChunkSize:      80,
		VKChunkCount:     6,
		Order:            script.OrderReverse,
	}
}

// Package serializes the proof, verifying key and public inputs into the
// fixed-order stack item list. The artifacts must come from the BLS12-381
// Groth16 backend; anything else fails the size guards by construction, so
// the curve is checked up front for a clearer report.
func Package(proof groth16.Proof, vk groth16.VerifyingKey, publicInputs fr.Vector, params Params) ([]script.StackItem, error) {
	if params.VKChunkSize <= 0 || params.VKChunkCount <= 0 {
		return nil, fmt.Errorf("%w: chunk geometry %dx%d", ErrProtocolShape, params.VKChunkCount, params.VKChunkSize)
	}
	blsProof, ok := proof.(*groth16bls.Proof)
	if !ok {
		return nil, fmt.Errorf("%w: proof type %T, protocol pins BLS12-381", ErrSerializationSize, proof)
	}
	blsVK, ok := vk.(*groth16bls.VerifyingKey)
	if !ok {
		return nil, fmt.Errorf("%w: verifying key type %T, protocol pins BLS12-381", ErrSerializationSize, vk)
	}
	if len(blsProof.Commitments) != 0 {
		return nil, fmt.Errorf("%w: proof carries %d commitments, the fixed item list has no slot for them",
			ErrProtocolShape, len(blsProof.Commitments))
	}

	items := make([]script.StackItem, 0, 1+params.VKChunkCount+len(publicInputs)+8)
	items = append(items, script.StackItem{params.Mode})

	chunks, err := VerifyingKeyItems(blsVK, len(publicInputs), params)
	if err != nil {
		return nil, err
	}
	items = append(items, chunks...)

	pubs, err := PublicInputItems(publicInputs, params)
	if err != nil {
		return nil, err
	}
	items = append(items, pubs...)

	coords, err := ProofItems(blsProof, params)
	if err != nil {
		return nil, err
	}
	return append(items, coords...), nil
}

// ProofItems serializes the eight proof coordinates, one item each, in the
// pinned A, B, C order. Every coordinate is the canonical big-endian form
// of one base-field element.
func ProofItems(proof *groth16bls.Proof, params Params) ([]script.StackItem, error) {
	coords := []struct {
		name string
		e    *fp.Element
	}{
		{"A.X", &proof.Ar.X},
		{"A.Y", &proof.Ar.Y},
		{"B.X.A0", &proof.Bs.X.A0},
		{"B.X.A1", &proof.Bs.X.A1},
		{"B.Y.A0", &proof.Bs.Y.A0},
		{"B.Y.A1", &proof.Bs.Y.A1},
		{"C.X", &proof.Krs.X},
		{"C.Y", &proof.Krs.Y},
	}
	items := make([]script.StackItem, 0, len(coords))
	for _, c := range coords {
		raw := c.e.Marshal()
		if len(raw) != params.CoordinateBytes {
			return nil, fmt.Errorf("%w: coordinate %s is %d bytes, want %d",
				ErrSerializationSize, c.name, len(raw), params.CoordinateBytes)
		}
		items = append(items, raw)
	}
	return items, nil
}

// PublicInputItems serializes each scalar little-endian, zero-padded at the
// high-order end to the pinned width. Scalars are never truncated: a width
// narrower than the field element is a protocol mismatch.
func PublicInputItems(publicInputs fr.Vector, params Params) ([]script.StackItem, error) {
	if fr.Bytes > params.PublicInputBytes {
		return nil, fmt.Errorf("%w: public input scalars are %d bytes, pinned width is %d",
			ErrSerializationSize, fr.Bytes, params.PublicInputBytes)
	}
	items := make([]script.StackItem, 0, len(publicInputs))
	for i := range publicInputs {
		be := publicInputs[i].Bytes()
		item := make(script.StackItem, params.PublicInputBytes)
		for j := 0; j < len(be); j++ {
			item[j] = be[len(be)-1-j]
		}
		items = append(items, item)
	}
	return items, nil
}

// VerifyingKeyItems serializes the key in the fixed order alpha, beta,
// gamma, delta, K[0..nbPublic], each point in its canonical compressed
// encoding, then splits the buffer into VKChunkCount chunks of VKChunkSize
// bytes. A partial final chunk is zero-padded on the right.
func VerifyingKeyItems(vk *groth16bls.VerifyingKey, nbPublic int, params Params) ([]script.StackItem, error) {
	if len(vk.G1.K) != nbPublic+1 {
		return nil, fmt.Errorf("%w: verifying key carries %d K points, want %d for %d public inputs",
			ErrProtocolShape, len(vk.G1.K), nbPublic+1, nbPublic)
	}

	alpha := vk.G1.Alpha.Bytes()
	buf := append([]byte{}, alpha[:]...)
	for _, p := range []*bls12381.G2Affine{&vk.G2.Beta, &vk.G2.Gamma, &vk.G2.Delta} {
		raw := p.Bytes()
		buf = append(buf, raw[:]...)
	}
	for i := range vk.G1.K {
		raw := vk.G1.K[i].Bytes()
		buf = append(buf, raw[:]...)
	}

	realized := (len(buf) + params.VKChunkSize - 1) / params.VKChunkSize
	if realized > params.VKChunkCount {
		return nil, fmt.Errorf("%w: verifying key needs %d chunks of %d bytes, protocol pins %d, refusing to truncate",
			ErrProtocolShape, realized, params.VKChunkSize, params.VKChunkCount)
	}
	if realized < params.VKChunkCount && !params.PadVKChunks {
		return nil, fmt.Errorf("%w: verifying key fills %d of %d pinned chunks (set PadVKChunks to pad explicitly)",
			ErrProtocolShape, realized, params.VKChunkCount)
	}

	items := make([]script.StackItem, 0, params.VKChunkCount)
	for start := 0; start < len(buf); start += params.VKChunkSize {
		chunk := make(script.StackItem, params.VKChunkSize)
		copy(chunk, buf[start:])
		items = append(items, chunk)
	}
	log := nopLogger(params.Logger)
	for len(items) < params.VKChunkCount {
		log.Warn().
			Int("chunk", len(items)).
			Int("pinned_count", params.VKChunkCount).
			Msg("padding verifying key with an all-zero chunk")
		items = append(items, make(script.StackItem, params.VKChunkSize))
	}
	return items, nil
}

func nopLogger(l *zerolog.Logger) zerolog.Logger {
	if l != nil {
		return *l
	}
	return zerolog.Nop()
}
