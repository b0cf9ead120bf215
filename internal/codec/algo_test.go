package codec_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/northfork-instruments/logicap/internal/codec"
)

func TestCompressDecompressRoundTrip(t *testing.T) {
	for _, algo := range []codec.Algorithm{codec.AlgoNone, codec.AlgoRLE, codec.AlgoDelta} {
		rng := rand.New(rand.NewSource(1))
		buf := make([]byte, 10_000)

		for i := range buf {
			buf[i] = byte(rng.Intn(2))
		}

		compressed, err := codec.Compress(buf, algo)
		require.NoError(t, err)

		decompressed, err := codec.Decompress(compressed, algo, len(buf))
		require.NoError(t, err)

		assert.True(t, bytes.Equal(buf, decompressed))
	}
}

func TestCompressAdaptiveRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 2000).Draw(t, "n")
		buf := make([]byte, n)

		for i := range buf {
			buf[i] = byte(rapid.IntRange(0, 1).Draw(t, "bit"))
		}

		algo, compressed := codec.CompressAdaptive(buf)

		decompressed, err := codec.Decompress(compressed, algo, len(buf))
		require.NoError(t, err)
		assert.True(t, bytes.Equal(buf, decompressed))
	})
}

func TestCompressAdaptivePicksSmallest(t *testing.T) {
	// A long run of zeros: rle should win decisively over none.
	buf := make([]byte, 1000)

	algo, compressed := codec.CompressAdaptive(buf)
	assert.Equal(t, codec.AlgoRLE, algo)
	assert.Less(t, len(compressed), len(buf))
}

func TestCompressAdaptiveTiesBreakTowardRLE(t *testing.T) {
	// Empty input: none, rle and delta all produce zero-length output.
	algo, compressed := codec.CompressAdaptive(nil)
	assert.Equal(t, codec.AlgoRLE, algo)
	assert.Empty(t, compressed)
}

func TestDeltaDecompressRejectsTruncatedBitstream(t *testing.T) {
	_, err := codec.Decompress([]byte{1}, codec.AlgoDelta, 100)
	assert.Error(t, err)
}

func TestRLEDecompressRejectsSizeMismatch(t *testing.T) {
	compressed, err := codec.Compress([]byte{0, 0, 0, 1, 1}, codec.AlgoRLE)
	require.NoError(t, err)

	_, err = codec.Decompress(compressed, codec.AlgoRLE, 999)
	assert.Error(t, err)
}
