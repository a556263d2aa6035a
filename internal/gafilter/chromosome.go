package gafilter

import (
	"math/rand"

	"examtt/internal/domain"
	"examtt/internal/ga"
	"examtt/internal/gafilter/gptree"
)

// Chromosome is "a vector of priority trees... one tree per exam"
// (spec.md §4.3). ExamOrder is shared by every chromosome in a run so
// crossover always pairs the same exam's tree against the same exam's tree.
type Chromosome struct {
	ExamOrder []domain.ID
	Trees     map[domain.ID]*gptree.Node
}

func (c Chromosome) Copy() any {
	trees := make(map[domain.ID]*gptree.Node, len(c.Trees))
	for id, t := range c.Trees {
		trees[id] = t.Copy()
	}
	order := make([]domain.ID, len(c.ExamOrder))
	copy(order, c.ExamOrder)
	return Chromosome{ExamOrder: order, Trees: trees}
}

// newChromosomeInitializer returns a ga.InitializerFunc building one
// ramped-half-and-half tree per exam (spec.md §4.3 step 1).
func newChromosomeInitializer(examOrder []domain.ID, minDepth, maxDepth int) func(rng *rand.Rand, _ int) Chromosome {
	return func(rng *rand.Rand, _ int) Chromosome {
		trees := make(map[domain.ID]*gptree.Node, len(examOrder))
		for _, id := range examOrder {
			trees[id] = gptree.RampedHalfAndHalf(rng, minDepth, maxDepth)
		}
		return Chromosome{ExamOrder: examOrder, Trees: trees}
	}
}

// chromosomeCombiner performs subtree crossover independently per exam's
// tree, since each exam's priority function is an independent gene.
type chromosomeCombiner struct{}

func (chromosomeCombiner) Combine(parents []ga.Candidate[Chromosome, float64], rng *rand.Rand) []Chromosome {
	a, b := parents[0].Data, parents[1].Data
	childTrees := make(map[domain.ID]*gptree.Node, len(a.ExamOrder))
	for _, id := range a.ExamOrder {
		ta, oka := a.Trees[id]
		tb, okb := b.Trees[id]
		if !oka || !okb {
			continue
		}
		childA, _ := gptree.Crossover(ta, tb, rng)
		childTrees[id] = childA
	}
	return []Chromosome{{ExamOrder: a.ExamOrder, Trees: childTrees}}
}

// chromosomePerturbator mutates a single randomly chosen exam's tree per
// call (spec.md §4.3's subtree mutation, applied gene-wise).
type chromosomePerturbator struct {
	maxDepth int
}

func (p chromosomePerturbator) Perturb(c *Chromosome, strength float64, rng *rand.Rand) {
	if len(c.ExamOrder) == 0 {
		return
	}
	id := c.ExamOrder[rng.Intn(len(c.ExamOrder))]
	c.Trees[id] = gptree.Mutate(c.Trees[id], p.maxDepth, rng)
}
