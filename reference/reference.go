// Package reference holds the host-side ground truth for the benchmark
// kernels. Every routine is deterministic and single threaded.
package reference

import (
	"fmt"
)

// InitArray fills the n x n row-major inputs of the matrix multiply:
//
//	A[i][j] = i*j / n
//	B[i][j] = i*(j+1) / n
//
// The products are converted to float32 before the division.
func InitArray(A, B []float32, n int) error {
	if err := checkSquare(n, A, B); err != nil {
		return fmt.Errorf("init array: %w", err)
	}
	fn := float32(n)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			A[i*n+j] = float32(i*j) / fn
		}
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			B[i*n+j] = float32(i*(j+1)) / fn
		}
	}

	return nil
}

// MM1CPU accumulates A*B into C with the naive i, j, k loop nest. C is not
// cleared; callers pass a zeroed slice.
func MM1CPU(A, B, C []float32, n int) error {
	if err := checkSquare(n, A, B, C); err != nil {
		return fmt.Errorf("mm1 cpu: %w", err)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				C[i*n+j] += A[i*n+k] * B[k*n+j]
			}
		}
	}

	return nil
}

// Fill sets every element of x to v
func Fill(x []float32, v float32) {
	for i := range x {
		x[i] = v
	}
}

// VectorAdd computes c = a + b element-wise
func VectorAdd(a, b, c []float32) error {
	if len(a) != len(b) || len(a) != len(c) {
		return fmt.Errorf("vector add: length mismatch a=%d b=%d c=%d", len(a), len(b), len(c))
	}
	for i := range a {
		c[i] = a[i] + b[i]
	}
	return nil
}

func checkSquare(n int, arrays ...[]float32) error {
	if n <= 0 {
		return fmt.Errorf("size must be positive, got %d", n)
	}
	for idx, a := range arrays {
		if len(a) < n*n {
			return fmt.Errorf("array %d has %d elements, need %d", idx, len(a), n*n)
		}
	}
	return nil
}
