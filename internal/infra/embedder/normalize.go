package embedder

import "math"

// normalize scales the vector to unit L2 norm in place. A zero vector gets a
// fixed unit direction so distance math downstream stays well defined.
func normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		if len(vector) > 0 {
			vector[0] = 1
		}
		return
	}
	norm := math.Sqrt(sum)
	for i, v := range vector {
		vector[i] = float32(float64(v) / norm)
	}
}
