package rank

// DefaultDecayBase is the branching factor used by Weight when none is given.
const DefaultDecayBase = 4

// Weight maps a 1-based result rank to a multiplicative weight of 1/d^L,
// where layer L is the largest integer with d^L <= rank. Ranks in the same
// layer share a weight: with d=4, ranks 1-3 get 1, ranks 4-15 get 1/4,
// ranks 16-63 get 1/16. Ranks <= 0 get 1. A base below 2 falls back to
// DefaultDecayBase.
func Weight(rank, d int) float64 {
	if rank <= 0 {
		return 1.0
	}
	if d < 2 {
		d = DefaultDecayBase
	}

	// L = floor(log_d(rank)), counted by integer division so exact powers
	// of d land in their own layer.
	weight := 1.0
	for r := rank; r >= d; r /= d {
		weight /= float64(d)
	}
	return weight
}
