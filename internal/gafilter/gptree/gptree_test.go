package gptree

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleContext() Context {
	return Context{
		ES: 2, PT: 3, W: 1, DD: 10, WL: 4, MaxWL: 8,
		NPrec: 2, NSucc: 1, WLPrec: 5, WLSucc: 6,
	}
}

func TestProtectedDivisionByZero(t *testing.T) {
	tree := NewFunction(ProtDiv, NewTerminal(ES), NewFunction(Sub, NewTerminal(ES), NewTerminal(ES)))
	require.Equal(t, float64(1), tree.Eval(sampleContext()))
}

func TestGrowRespectsMaxDepth(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		tree := Grow(rng, 4)
		require.LessOrEqual(t, depth(tree), 5)
	}
}

func depth(n *Node) int {
	if n == nil || n.isLeaf() {
		return 1
	}
	l, r := depth(n.Left), depth(n.Right)
	if l > r {
		return l + 1
	}
	return r + 1
}

func TestCrossoverPreservesParents(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	a := RampedHalfAndHalf(rng, 1, 3)
	b := RampedHalfAndHalf(rng, 1, 3)
	aBefore := a.String()
	bBefore := b.String()

	childA, childB := Crossover(a, b, rng)

	require.Equal(t, aBefore, a.String())
	require.Equal(t, bBefore, b.String())
	require.NotNil(t, childA)
	require.NotNil(t, childB)
}

func TestMutateLeavesOriginalUntouched(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	root := Full(rng, 3)
	before := root.String()
	mutant := Mutate(root, 2, rng)
	require.Equal(t, before, root.String()) // original untouched
	require.NotNil(t, mutant)
}

func TestCopyIsIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	root := Grow(rng, 3)
	clone := root.Copy()
	clone.Terminal = "mutated"
	require.NotEqual(t, root.String(), clone.String())
}
