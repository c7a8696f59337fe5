package tensor

import "math"

// Raw kernels operating on flat row-major buffers. The Tensor-level wrappers
// in ops.go validate shapes before dispatching here; kernels assume their
// inputs are well formed.

// transposeBlock is the tile edge for the blocked transpose. Small enough
// that a src tile and a dst tile fit in L1 together.
const transposeBlock = 64

// matmul computes res = m1 (r1 x c1) * m2 (c1 x c2). The inner loop is
// unrolled four-wide over the shared dimension with independent accumulators.
func matmul(m1, m2, res []float32, r1, c1, c2 int) {
	for i := 0; i < r1; i++ {
		row := m1[i*c1 : (i+1)*c1]
		out := res[i*c2 : (i+1)*c2]
		for j := 0; j < c2; j++ {
			var s0, s1, s2, s3 float32
			k := 0
			b := j
			for ; k+3 < c1; k += 4 {
				s0 += row[k] * m2[b]
				s1 += row[k+1] * m2[b+c2]
				s2 += row[k+2] * m2[b+2*c2]
				s3 += row[k+3] * m2[b+3*c2]
				b += 4 * c2
			}
			sum := s0 + s1 + s2 + s3
			for ; k < c1; k++ {
				sum += row[k] * m2[b]
				b += c2
			}
			out[j] = sum
		}
	}
}

// transpose writes the c x r transpose of m (r x c) into res using a blocked
// traversal so both buffers are walked in cache-sized tiles.
func transpose(m, res []float32, r, c int) {
	for ii := 0; ii < r; ii += transposeBlock {
		iMax := min(ii+transposeBlock, r)
		for jj := 0; jj < c; jj += transposeBlock {
			jMax := min(jj+transposeBlock, c)
			for i := ii; i < iMax; i++ {
				for j := jj; j < jMax; j++ {
					res[j*r+i] = m[i*c+j]
				}
			}
		}
	}
}

// Elementwise binary kernels. The broadcast variants replicate m2 across the
// rows (m2 is a single row) or across the columns (m2 is a single column).

func addElem(m1, m2, res []float32) {
	for i := range res {
		res[i] = m1[i] + m2[i]
	}
}

func addRowBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		for j := range out {
			out[j] = row[j] + m2[j]
		}
	}
}

func addColBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		v := m2[i]
		for j := range out {
			out[j] = row[j] + v
		}
	}
}

func subElem(m1, m2, res []float32) {
	for i := range res {
		res[i] = m1[i] - m2[i]
	}
}

func subRowBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		for j := range out {
			out[j] = row[j] - m2[j]
		}
	}
}

func subColBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		v := m2[i]
		for j := range out {
			out[j] = row[j] - v
		}
	}
}

func divElem(m1, m2, res []float32) {
	for i := range res {
		res[i] = m1[i] / m2[i]
	}
}

func divRowBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		for j := range out {
			out[j] = row[j] / m2[j]
		}
	}
}

func divColBroadcast(m1, m2, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m1[i*c : (i+1)*c]
		out := res[i*c : (i+1)*c]
		v := m2[i]
		for j := range out {
			out[j] = row[j] / v
		}
	}
}

func expElem(m, res []float32) {
	for i := range res {
		res[i] = float32(math.Exp(float64(m[i])))
	}
}

// Reductions. Colwise collapses the rows (result length c), rowwise
// collapses the columns (result length r).

func sumColwise(m, res []float32, r, c int) {
	for j := 0; j < c; j++ {
		res[j] = 0
	}
	for i := 0; i < r; i++ {
		row := m[i*c : (i+1)*c]
		for j, v := range row {
			res[j] += v
		}
	}
}

func sumRowwise(m, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m[i*c : (i+1)*c]
		var sum float32
		for _, v := range row {
			sum += v
		}
		res[i] = sum
	}
}

func maxColwise(m, res []float32, r, c int) {
	copy(res, m[:c])
	for i := 1; i < r; i++ {
		row := m[i*c : (i+1)*c]
		for j, v := range row {
			if v > res[j] {
				res[j] = v
			}
		}
	}
}

func maxRowwise(m, res []float32, r, c int) {
	for i := 0; i < r; i++ {
		row := m[i*c : (i+1)*c]
		best := row[0]
		for _, v := range row[1:] {
			if v > best {
				best = v
			}
		}
		res[i] = best
	}
}

// In-place scalar and clamp kernels.

func scale(m []float32, alpha float32) {
	for i := range m {
		m[i] *= alpha
	}
}

func shift(m []float32, beta float32) {
	for i := range m {
		m[i] += beta
	}
}

func clampMin(m []float32, lo float32) {
	for i := range m {
		if m[i] < lo {
			m[i] = lo
		}
	}
}

func clampMax(m []float32, hi float32) {
	for i := range m {
		if m[i] > hi {
			m[i] = hi
		}
	}
}
