package reference

// Vector addition ground truth
const (
	VectorA        float32 = 5.0
	VectorB        float32 = 4.0
	VectorExpected float32 = 9.0
)
