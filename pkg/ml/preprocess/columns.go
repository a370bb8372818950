package preprocess

// Columns projects every sample onto the given column indices, in order.
func Columns(samples [][]float64, cols []int) [][]float64 {
	out := make([][]float64, len(samples))
	for i, row := range samples {
		p := make([]float64, len(cols))
		for j, c := range cols {
			p[j] = row[c]
		}
		out[i] = p
	}
	return out
}

// Rows picks samples by index.
func Rows(samples [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, r := range idx {
		out[i] = samples[r]
	}
	return out
}

// Labels picks labels by index.
func Labels(labels []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, r := range idx {
		out[i] = labels[r]
	}
	return out
}
