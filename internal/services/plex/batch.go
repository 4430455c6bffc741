package plex

// MaxBatchSize is the largest number of rating keys requested in one
// metadata call.
const MaxBatchSize = 50

// Batch splits keys into consecutive groups of at most size keys, keeping
// listing order. A non-positive size uses MaxBatchSize.
func Batch(keys []string, size int) [][]string {
	if size <= 0 || size > MaxBatchSize {
		size = MaxBatchSize
	}
	if len(keys) == 0 {
		return nil
	}
	batches := make([][]string, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := min(start+size, len(keys))
		batches = append(batches, keys[start:end:end])
	}
	return batches
}
