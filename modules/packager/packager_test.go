package packager

import (
	"bytes"
	"math/big"
	"testing"

	"CheckZKPScript/modules/script"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark/backend/groth16"
	groth16bls "github.com/consensys/gnark/backend/groth16/bls12-381"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// testArtifactsHelper builds deterministic artifacts from small scalar
// multiples of the curve generators. The points are arbitrary but valid,
// which is all the packager looks at.
func testArtifactsHelper(t *testing.T, nbPublic int) (*groth16bls.Proof, *groth16bls.VerifyingKey, fr.Vector) {
	t.Helper()
	_, _, g1, g2 := bls12381.Generators()

	var proof groth16bls.Proof
	proof.Ar.ScalarMultiplication(&g1, big.NewInt(2))
	proof.Krs.ScalarMultiplication(&g1, big.NewInt(3))
	proof.Bs.ScalarMultiplication(&g2, big.NewInt(5))

	var vk groth16bls.VerifyingKey
	vk.G1.Alpha.ScalarMultiplication(&g1, big.NewInt(7))
	vk.G2.Beta.ScalarMultiplication(&g2, big.NewInt(11))
	vk.G2.Gamma.ScalarMultiplication(&g2, big.NewInt(13))
	vk.G2.Delta.ScalarMultiplication(&g2, big.NewInt(17))
	vk.G1.K = make([]bls12381.G1Affine, nbPublic+1)
	for i := range vk.G1.K {
		vk.G1.K[i].ScalarMultiplication(&g1, big.NewInt(int64(19+2*i)))
	}

	pub := make(fr.Vector, nbPublic)
	for i := range pub {
		pub[i].SetUint64(uint64(100 + i))
	}
	return &proof, &vk, pub
}

func TestPackageMode0Shape(t *testing.T) {
	proof, vk, pub := testArtifactsHelper(t, 2)
	items, err := Package(proof, vk, pub, Mode0Params())
	require.NoError(t, err)
	require.Len(t, items, 17, "mode byte + 6 vk chunks + 2 public inputs + 8 coordinates")

	require.Equal(t, script.StackItem{0x00}, items[0])
	for i := 1; i <= 6; i++ {
		require.Len(t, items[i], 80, "vk chunk %d", i)
	}
	for i := 7; i <= 8; i++ {
		require.Len(t, items[i], 32, "public input %d", i)
	}
	for i := 9; i <= 16; i++ {
		require.Len(t, items[i], 48, "proof coordinate %d", i)
	}

	require.Equal(t, script.StackItem(proof.Ar.X.Marshal()), items[9])
	require.Equal(t, script.StackItem(proof.Ar.Y.Marshal()), items[10])
	require.Equal(t, script.StackItem(proof.Bs.X.A0.Marshal()), items[11])
	require.Equal(t, script.StackItem(proof.Bs.X.A1.Marshal()), items[12])
	require.Equal(t, script.StackItem(proof.Bs.Y.A0.Marshal()), items[13])
	require.Equal(t, script.StackItem(proof.Bs.Y.A1.Marshal()), items[14])
	require.Equal(t, script.StackItem(proof.Krs.X.Marshal()), items[15])
	require.Equal(t, script.StackItem(proof.Krs.Y.Marshal()), items[16])

	prog, err := script.Assemble(items, Mode0Params().Order)
	require.NoError(t, err)
	require.Equal(t, script.OP_CHECKZKP, prog[len(prog)-1])
	require.Equal(t, script.OP_0, prog[len(prog)-2], "reverse order ends on the mode byte push")
}

func TestVerifyingKeyBufferLayout(t *testing.T) {
	proof, vk, pub := testArtifactsHelper(t, 2)
	items, err := Package(proof, vk, pub, Mode0Params())
	require.NoError(t, err)

	var joined []byte
	for _, chunk := range items[1:7] {
		joined = append(joined, chunk...)
	}
	require.Len(t, joined, 480, "two public inputs fill the six chunks exactly")

	alpha := vk.G1.Alpha.Bytes()
	beta := vk.G2.Beta.Bytes()
	gamma := vk.G2.Gamma.Bytes()
	delta := vk.G2.Delta.Bytes()
	require.Equal(t, alpha[:], joined[0:48])
	require.Equal(t, beta[:], joined[48:144])
	require.Equal(t, gamma[:], joined[144:240])
	require.Equal(t, delta[:], joined[240:336])
	for i := 0; i < 3; i++ {
		k := vk.G1.K[i].Bytes()
		require.Equal(t, k[:], joined[336+48*i:336+48*(i+1)], "K[%d]", i)
	}
}

func TestPackageIdempotent(t *testing.T) {
	proof, vk, pub := testArtifactsHelper(t, 2)
	before := proof.Ar.X.Marshal()

	first, err := Package(proof, vk, pub, Mode0Params())
	require.NoError(t, err)
	second, err := Package(proof, vk, pub, Mode0Params())
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, before, proof.Ar.X.Marshal(), "packaging must not mutate the proof")

	progA, err := script.Assemble(first, Mode0Params().Order)
	require.NoError(t, err)
	progB, err := script.Assemble(second, Mode0Params().Order)
	require.NoError(t, err)
	require.Equal(t, progA, progB)
}

func TestPublicInputLittleEndianPadding(t *testing.T) {
	pub := make(fr.Vector, 2)
	pub[0].SetUint64(0x0102)

	items, err := PublicInputItems(pub, Mode0Params())
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, byte(0x02), items[0][0], "low-order byte first")
	require.Equal(t, byte(0x01), items[0][1])
	require.Equal(t, bytes.Repeat([]byte{0x00}, 30), []byte(items[0][2:]), "zero padding at the high-order end")
	require.Equal(t, make(script.StackItem, 32), items[1], "zero scalar keeps the full pinned width")
}

func TestPublicInputWidthGuard(t *testing.T) {
	pub := make(fr.Vector, 1)
	params := Mode0Params()
	params.PublicInputBytes = 16

	_, err := PublicInputItems(pub, params)
	require.ErrorIs(t, err, ErrSerializationSize)
}

func TestCoordinateWidthGuard(t *testing.T) {
	proof, _, _ := testArtifactsHelper(t, 0)
	params := Mode0Params()
	params.CoordinateBytes = 47

	_, err := ProofItems(proof, params)
	require.ErrorIs(t, err, ErrSerializationSize)
	require.ErrorContains(t, err, "A.X", "first offending coordinate is named")
}

func TestVerifyingKeyFinalChunkRightPadded(t *testing.T) {
	// No public inputs: 48 + 3*96 + 48 = 384 bytes, five 80-byte chunks
	// with 64 payload bytes in the last one.
	_, vk, _ := testArtifactsHelper(t, 0)
	params := Mode0Params()
	params.VKChunkCount = 5

	items, err := VerifyingKeyItems(vk, 0, params)
	require.NoError(t, err)
	require.Len(t, items, 5)
	last := items[4]
	require.Len(t, last, 80)
	require.Equal(t, bytes.Repeat([]byte{0x00}, 16), []byte(last[64:]), "partial chunk is zero-padded on the right")

	delta := vk.G2.Delta.Bytes()
	k := vk.G1.K[0].Bytes()
	require.Equal(t, delta[80:], []byte(last[:16]), "chunk starts where the fourth chunk stopped")
	require.Equal(t, k[:], []byte(last[16:64]), "payload bytes precede the padding")
}

func TestVerifyingKeyChunkCountMismatch(t *testing.T) {
	_, vk, _ := testArtifactsHelper(t, 0)

	// 384 bytes realize five chunks, one short of the mode 0 constant.
	_, err := VerifyingKeyItems(vk, 0, Mode0Params())
	require.ErrorIs(t, err, ErrProtocolShape)
	require.ErrorContains(t, err, "PadVKChunks")
}

func TestVerifyingKeyExplicitPaddingIsLogged(t *testing.T) {
	_, vk, _ := testArtifactsHelper(t, 0)
	var logBuf bytes.Buffer
	logger := zerolog.New(&logBuf)
	params := Mode0Params()
	params.PadVKChunks = true
	params.Logger = &logger

	items, err := VerifyingKeyItems(vk, 0, params)
	require.NoError(t, err)
	require.Len(t, items, 6)
	require.Equal(t, make(script.StackItem, 80), items[5], "sixth chunk is all padding")
	require.Contains(t, logBuf.String(), "padding verifying key")
}

func TestVerifyingKeyChunkOverflowAlwaysFatal(t *testing.T) {
	// Five public inputs need 624 bytes, eight chunks. Padding never
	// authorizes truncation.
	_, vk, pub := testArtifactsHelper(t, 5)
	params := Mode0Params()
	params.PadVKChunks = true

	_, err := VerifyingKeyItems(vk, len(pub), params)
	require.ErrorIs(t, err, ErrProtocolShape)
	require.ErrorContains(t, err, "refusing to truncate")
}

func TestVerifyingKeyKCountMismatch(t *testing.T) {
	_, vk, _ := testArtifactsHelper(t, 2)

	_, err := VerifyingKeyItems(vk, 1, Mode0Params())
	require.ErrorIs(t, err, ErrProtocolShape)
	require.ErrorContains(t, err, "K points")
}

func TestPackageRejectsForeignCurve(t *testing.T) {
	_, blsVK, pub := testArtifactsHelper(t, 2)

	_, err := Package(groth16.NewProof(ecc.BN254), blsVK, pub, Mode0Params())
	require.ErrorIs(t, err, ErrSerializationSize)

	blsProof, _, _ := testArtifactsHelper(t, 2)
	_, err = Package(blsProof, groth16.NewVerifyingKey(ecc.BN254), pub, Mode0Params())
	require.ErrorIs(t, err, ErrSerializationSize)
}

func TestPackageRejectsCommitments(t *testing.T) {
	proof, vk, pub := testArtifactsHelper(t, 2)
	proof.Commitments = make([]bls12381.G1Affine, 1)

	_, err := Package(proof, vk, pub, Mode0Params())
	require.ErrorIs(t, err, ErrProtocolShape)
}

func TestPackageRejectsBadChunkGeometry(t *testing.T) {
	proof, vk, pub := testArtifactsHelper(t, 2)
	params := Mode0Params()
	params.VKChunkSize = 0

	_, err := Package(proof, vk, pub, params)
	require.ErrorIs(t, err, ErrProtocolShape)
}
