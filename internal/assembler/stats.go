package assembler

import "gonum.org/v1/gonum/stat"

// bodyLengthStats summarizes the distribution of body sub-token counts
// (segment id length) across rows. Useful for picking a max sequence length
// downstream.
func bodyLengthStats(rows []Row) (mean, stddev float64, max int) {
	if len(rows) == 0 {
		return 0, 0, 0
	}
	lengths := make([]float64, len(rows))
	for i := range rows {
		n := len(rows[i].SegmentIDs)
		lengths[i] = float64(n)
		if n > max {
			max = n
		}
	}
	mean = stat.Mean(lengths, nil)
	if len(lengths) > 1 {
		stddev = stat.StdDev(lengths, nil)
	}
	return mean, stddev, max
}
