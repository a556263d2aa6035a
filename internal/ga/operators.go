package ga

import "math/rand"

// TournamentSelector picks the better of k randomly-drawn members, repeated
// until n parents are returned. This is the selection pressure knob both
// reuse sites tune independently (spec.md §4.3, §4.7).
type TournamentSelector[S Solution, F Numeric] struct {
	K int
}

func (t TournamentSelector[S, F]) Select(pool *Pool[S, F], n int, rng *rand.Rand) []Candidate[S, F] {
	k := t.K
	if k < 1 {
		k = 1
	}
	out := make([]Candidate[S, F], 0, n)
	for i := 0; i < n; i++ {
		best := pool.Members[rng.Intn(len(pool.Members))]
		for j := 1; j < k; j++ {
			c := pool.Members[rng.Intn(len(pool.Members))]
			if c.Score > best.Score {
				best = c
			}
		}
		out = append(out, best)
	}
	return out
}
