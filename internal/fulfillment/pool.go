package fulfillment

import "math"

// maxBatch keeps a single batch inside the INT column of the pool table.
const maxBatch = math.MaxInt32

// ClampQty turns raw staff input into a batch size. Negative, NaN and
// infinite input count as zero; fractions are floored.
func ClampQty(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	v = math.Floor(v)
	if v > maxBatch {
		return maxBatch
	}
	return int(v)
}
