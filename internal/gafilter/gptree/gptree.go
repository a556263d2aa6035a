// Package gptree implements genetic-programming priority trees: small
// arithmetic expression trees over per-exam scheduling terminals, evolved
// by internal/ga to rank exams for the GA front-filter's retention pass
// (spec.md §4.3). Grounded on the chromosome/priority-gene design in the
// distilled engine's chromosome.py, reexpressed as a Go expression tree
// instead of a Python AST.
package gptree

import (
	"fmt"
	"math/rand"
)

// Terminal names the leaves a priority tree can read. These mirror the
// distilled engine's GP terminal set: Earliest Start, exam duration
// ("processing time"), exam Weight, Due Date pressure, Workload (the
// exam's expected enrollment), the maximum workload across exams,
// predecessor/successor counts in the prerequisite graph (NPREC/NSUC), and
// their workload sums (WLPREC/WLSUC).
type Terminal string

const (
	ES     Terminal = "ES"
	PT     Terminal = "PT"
	W      Terminal = "W"
	DD     Terminal = "DD"
	WL     Terminal = "WL"
	MaxWL  Terminal = "maxWL"
	NPrec  Terminal = "NPREC"
	NSucc  Terminal = "NSUC"
	WLPrec Terminal = "WLPREC"
	WLSucc Terminal = "WLSUC"
)

// TerminalSet is the full alphabet ramped half-and-half samples leaves from.
var TerminalSet = []Terminal{ES, PT, W, DD, WL, MaxWL, NPrec, NSucc, WLPrec, WLSucc}

// Op names an internal node's arithmetic function.
type Op string

const (
	Add      Op = "+"
	Sub      Op = "-"
	Mul      Op = "*"
	ProtDiv  Op = "%" // protected division: x % 0 == 1, per the distilled engine
	Max      Op = "max"
	Min      Op = "min"
)

// FunctionSet is the full alphabet ramped half-and-half samples internal
// nodes from. Every operator here is binary.
var FunctionSet = []Op{Add, Sub, Mul, ProtDiv, Max, Min}

// Context supplies terminal values for one exam during tree evaluation.
type Context map[Terminal]float64

// Node is a priority-tree expression node: either a Terminal leaf or a
// binary Function node.
type Node struct {
	Terminal Terminal // non-empty for leaves
	Op       Op       // non-empty for internal nodes
	Left     *Node
	Right    *Node
}

func (n *Node) isLeaf() bool { return n.Left == nil && n.Right == nil }

// Eval recursively evaluates the tree against ctx.
func (n *Node) Eval(ctx Context) float64 {
	if n.isLeaf() {
		return ctx[n.Terminal]
	}
	l := n.Left.Eval(ctx)
	r := n.Right.Eval(ctx)
	switch n.Op {
	case Add:
		return l + r
	case Sub:
		return l - r
	case Mul:
		return l * r
	case ProtDiv:
		if r == 0 {
			return 1
		}
		return l / r
	case Max:
		if l > r {
			return l
		}
		return r
	case Min:
		if l < r {
			return l
		}
		return r
	default:
		return 0
	}
}

// Copy deep-copies the subtree rooted at n.
func (n *Node) Copy() *Node {
	if n == nil {
		return nil
	}
	return &Node{
		Terminal: n.Terminal,
		Op:       n.Op,
		Left:     n.Left.Copy(),
		Right:    n.Right.Copy(),
	}
}

// Size returns the node count of the subtree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}
	return 1 + n.Left.Size() + n.Right.Size()
}

func (n *Node) String() string {
	if n.isLeaf() {
		return string(n.Terminal)
	}
	return fmt.Sprintf("(%s %s %s)", n.Left, n.Op, n.Right)
}

// NewTerminal builds a leaf node.
func NewTerminal(t Terminal) *Node { return &Node{Terminal: t} }

// NewFunction builds a binary internal node.
func NewFunction(op Op, left, right *Node) *Node { return &Node{Op: op, Left: left, Right: right} }

// Grow builds a tree using the "grow" method: at every node with depth
// remaining, a fixed 0.3 chance emits a leaf instead of an internal node,
// so branches can terminate before maxDepth.
func Grow(rng *rand.Rand, maxDepth int) *Node {
	if maxDepth <= 0 || rng.Float64() < 0.3 {
		return NewTerminal(TerminalSet[rng.Intn(len(TerminalSet))])
	}
	op := FunctionSet[rng.Intn(len(FunctionSet))]
	return NewFunction(op, Grow(rng, maxDepth-1), Grow(rng, maxDepth-1))
}

// Full builds a tree using the "full" method: every branch extends to
// exactly maxDepth before terminating in a leaf.
func Full(rng *rand.Rand, maxDepth int) *Node {
	if maxDepth <= 0 {
		return NewTerminal(TerminalSet[rng.Intn(len(TerminalSet))])
	}
	op := FunctionSet[rng.Intn(len(FunctionSet))]
	return NewFunction(op, Full(rng, maxDepth-1), Full(rng, maxDepth-1))
}

// RampedHalfAndHalf generates one tree, choosing Grow or Full with equal
// probability and a depth drawn uniformly from [minDepth, maxDepth], the
// initialization scheme the distilled engine's chromosome population uses
// to keep early generations structurally diverse.
func RampedHalfAndHalf(rng *rand.Rand, minDepth, maxDepth int) *Node {
	depth := minDepth
	if maxDepth > minDepth {
		depth = minDepth + rng.Intn(maxDepth-minDepth+1)
	}
	if rng.Float64() < 0.5 {
		return Full(rng, depth)
	}
	return Grow(rng, depth)
}

// collectNodes flattens the subtree into a slice, used by crossover and
// mutation to pick a uniformly random attachment point.
func collectNodes(n *Node, out *[]*Node) {
	if n == nil {
		return
	}
	*out = append(*out, n)
	collectNodes(n.Left, out)
	collectNodes(n.Right, out)
}

// randomNode returns a uniformly random node from the tree.
func randomNode(root *Node, rng *rand.Rand) *Node {
	var nodes []*Node
	collectNodes(root, &nodes)
	return nodes[rng.Intn(len(nodes))]
}

// Crossover swaps a randomly chosen subtree of a copy of a with a randomly
// chosen subtree of a copy of b, and returns the two children.
func Crossover(a, b *Node, rng *rand.Rand) (*Node, *Node) {
	childA := a.Copy()
	childB := b.Copy()

	pointA := randomNode(childA, rng)
	pointB := randomNode(childB, rng)

	*pointA, *pointB = *pointB.Copy(), *pointA.Copy()
	return childA, childB
}

// Mutate replaces a randomly chosen subtree of a copy of root with a
// freshly grown subtree, bounded by maxDepth.
func Mutate(root *Node, maxDepth int, rng *rand.Rand) *Node {
	clone := root.Copy()
	point := randomNode(clone, rng)
	replacement := Grow(rng, maxDepth)
	*point = *replacement
	return clone
}
