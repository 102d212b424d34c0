package reference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestInitArray_Deterministic(t *testing.T) {
	for _, n := range []int{1, 4, 17, 64} {
		A1, B1 := make([]float32, n*n), make([]float32, n*n)
		A2, B2 := make([]float32, n*n), make([]float32, n*n)

		require.NoError(t, InitArray(A1, B1, n))
		require.NoError(t, InitArray(A2, B2, n))

		assert.Equal(t, A1, A2, "A differs for n=%d", n)
		assert.Equal(t, B1, B2, "B differs for n=%d", n)
	}
}

func TestInitArray_Pattern(t *testing.T) {
	n := 8
	A, B := make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, InitArray(A, B, n))

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			assert.Equal(t, float32(i*j)/float32(n), A[i*n+j])
			assert.Equal(t, float32(i*(j+1))/float32(n), B[i*n+j])
		}
	}
	assert.Equal(t, float32(0), A[0])
	assert.Equal(t, float32(7*8)/8, B[7*n+7])
}

func TestInitArray_Errors(t *testing.T) {
	assert.Error(t, InitArray(nil, nil, 0))
	assert.Error(t, InitArray(make([]float32, 3), make([]float32, 4), 2))
}

// N=4 has closed form C[i][j] = i*(j+1)*14/16 and every intermediate is
// exactly representable, so the loop must reproduce it bit for bit
func TestMM1CPU_N4Scenario(t *testing.T) {
	n := 4
	A, B, C := make([]float32, n*n), make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, InitArray(A, B, n))
	require.NoError(t, MM1CPU(A, B, C, n))

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			expected := float32(i*(j+1)) * 14 / 16
			assert.Equal(t, expected, C[i*n+j], "C[%d][%d]", i, j)
		}
	}
	assert.Equal(t, float32(10.5), C[3*n+3])
	assert.Equal(t, float32(0.875), C[1*n+0])
}

func TestMM1CPU_Repeatable(t *testing.T) {
	n := 32
	A, B := make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, InitArray(A, B, n))

	C1, C2 := make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, MM1CPU(A, B, C1, n))
	require.NoError(t, MM1CPU(A, B, C2, n))

	for i := range C1 {
		if math.Float32bits(C1[i]) != math.Float32bits(C2[i]) {
			t.Fatalf("element %d differs between runs: %v vs %v", i, C1[i], C2[i])
		}
	}
}

func TestMM1CPU_Accumulates(t *testing.T) {
	n := 4
	A, B := make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, InitArray(A, B, n))

	C := make([]float32, n*n)
	Fill(C, 1)
	require.NoError(t, MM1CPU(A, B, C, n))
	assert.Equal(t, float32(1+10.5), C[3*n+3])
}

func TestMM1CPU_MatchesGonum(t *testing.T) {
	n := 48
	A, B, C := make([]float32, n*n), make([]float32, n*n), make([]float32, n*n)
	require.NoError(t, InitArray(A, B, n))
	require.NoError(t, MM1CPU(A, B, C, n))

	toDense := func(x []float32) *mat.Dense {
		data := make([]float64, len(x))
		for i, v := range x {
			data[i] = float64(v)
		}
		return mat.NewDense(n, n, data)
	}

	var want mat.Dense
	want.Mul(toDense(A), toDense(B))

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			w := want.At(i, j)
			got := float64(C[i*n+j])
			if w == 0 {
				assert.Zero(t, got)
				continue
			}
			assert.InDelta(t, 0, math.Abs(got-w)/math.Abs(w), 1e-5, "C[%d][%d]", i, j)
		}
	}
}

func TestVectorAdd(t *testing.T) {
	n := 100
	a, b, c := make([]float32, n), make([]float32, n), make([]float32, n)
	Fill(a, VectorA)
	Fill(b, VectorB)
	require.NoError(t, VectorAdd(a, b, c))
	for i := range c {
		assert.Equal(t, VectorExpected, c[i])
	}

	assert.Error(t, VectorAdd(a, b, make([]float32, n-1)))
}
