package utils

// RankWeight converts a 1-based rank among total words into a weight.
// Rank 1 gets the highest weight, total; anything outside [1, total] gets 0.
func RankWeight(rank, total int) int64 {
	if rank < 1 || rank > total {
		return 0
	}
	return int64(total - rank + 1)
}

// RankWeights returns the weights for count words listed best first.
func RankWeights(count int) []int64 {
	if count <= 0 {
		return []int64{}
	}
	weights := make([]int64, count)
	for i := range weights {
		weights[i] = RankWeight(i+1, count)
	}
	return weights
}
