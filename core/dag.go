package core

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// DefaultMinimalDegree is the confirmation threshold: a block is confirmed
// the first time that many later blocks name it as a parent.
const DefaultMinimalDegree = 3

// unconfirmedDegree bounds the in-degree below which a block is reported by
// the unconfirmed-blocks query.
const unconfirmedDegree = 2

// AddStatus reports what AddBlock did with a structurally acceptable block.
type AddStatus int

const (
	// BlockAdded means the block entered the DAG.
	BlockAdded AddStatus = iota
	// BlockExists means an identical block was already present; insertion
	// was a no-op.
	BlockExists
	// BlockRejected means the block was refused (or rolled back) and is
	// not part of the DAG.
	BlockRejected
)

// DAG is the directed acyclic graph of blocks, keyed by content hash.
// Edges run child to parent: a new block points at the prior blocks it
// extends, and a block's in-degree counts the later blocks confirming it.
//
// The zero value is not usable; call NewDAG. Access is serialized by the
// owning Node.
type DAG struct {
	blocks    map[string]*Block
	parents   map[string][]string // out-edges: block -> blocks it extends
	children  map[string][]string // in-edges: block -> blocks extending it
	confirmed map[string]bool
	order     []string // insertion order, for deterministic iteration

	minimalDegree int
}

// NewDAG returns an empty DAG with the given confirmation threshold
// (DefaultMinimalDegree when <= 0).
func NewDAG(minimalDegree int) *DAG {
	if minimalDegree <= 0 {
		minimalDegree = DefaultMinimalDegree
	}
	return &DAG{
		blocks:        make(map[string]*Block),
		parents:       make(map[string][]string),
		children:      make(map[string][]string),
		confirmed:     make(map[string]bool),
		minimalDegree: minimalDegree,
	}
}

// Len returns the number of blocks.
func (d *DAG) Len() int { return len(d.blocks) }

// MinimalDegree returns the confirmation threshold.
func (d *DAG) MinimalDegree() int { return d.minimalDegree }

// Has reports whether a block with the given hash is present.
func (d *DAG) Has(hash string) bool {
	_, ok := d.blocks[hash]
	return ok
}

// BlockByHash returns the block with the given hash.
func (d *DAG) BlockByHash(hash string) (*Block, error) {
	b, ok := d.blocks[hash]
	if !ok {
		return nil, ErrUnknownBlock
	}
	return b, nil
}

// IsConfirmed reports whether the block's transactions have been applied.
func (d *DAG) IsConfirmed(hash string) bool { return d.confirmed[hash] }

// InDegree returns how many blocks name hash as a parent.
func (d *DAG) InDegree(hash string) int { return len(d.children[hash]) }

// Frontier returns, in insertion order, the hashes of blocks still short of
// the confirmation threshold. These are the blocks a new block should
// extend. When every block is confirmed the most recent block is returned
// so a nonempty DAG always yields at least one parent.
func (d *DAG) Frontier() []string {
	var out []string
	for _, h := range d.order {
		if len(d.children[h]) < d.minimalDegree {
			out = append(out, h)
		}
	}
	if out == nil && len(d.order) > 0 {
		out = []string{d.order[len(d.order)-1]}
	}
	return out
}

// UnconfirmedBlocks returns blocks with fewer than two confirming children,
// in insertion order.
func (d *DAG) UnconfirmedBlocks() []*Block {
	var out []*Block
	for _, h := range d.order {
		if len(d.children[h]) < unconfirmedDegree {
			out = append(out, d.blocks[h])
		}
	}
	return out
}

// AddBlock admits b into the DAG.
//
// Duplicates are a no-op. Every parent must already be known, insertion
// must keep the graph acyclic, and any parent crossing the confirmation
// threshold for the first time has its transactions applied to led exactly
// once. A parent whose batch fails is abandoned: removed from the DAG while
// still pending, with ErrParentInvalid returned.
//
// The returned slice lists blocks confirmed by this insertion; the caller
// snapshots and gossips them.
func (d *DAG) AddBlock(b *Block, led *Ledger) (AddStatus, []*Block, error) {
	hash := b.Hash()
	if d.Has(hash) {
		return BlockExists, nil, nil
	}

	parents := dedupe(b.ParentHashes)
	for _, p := range parents {
		if !d.Has(p) {
			return BlockRejected, nil, fmt.Errorf("%w: %s", ErrMissingParent, p)
		}
	}

	d.insert(hash, b, parents)

	if d.hasCycle() {
		d.remove(hash)
		return BlockRejected, nil, ErrCycleRejected
	}

	var confirmedNow []*Block
	for _, p := range parents {
		if d.confirmed[p] || len(d.children[p]) < d.minimalDegree {
			continue
		}
		parent := d.blocks[p]
		if err := led.ApplyBatch(parent.Transactions); err != nil {
			d.remove(p)
			logrus.Warnf("dag: abandoned block %.12s at confirmation: %v", p, err)
			return BlockAdded, confirmedNow, fmt.Errorf("%w: %s: %v", ErrParentInvalid, p, err)
		}
		d.confirmed[p] = true
		confirmedNow = append(confirmedNow, parent)
		logrus.Infof("dag: block %.12s confirmed (%d transactions)", p, len(parent.Transactions))
	}
	return BlockAdded, confirmedNow, nil
}

// BuildBlock assembles the next block from the pool contents: index is the
// current node count, nonce is reserved, parents come from the frontier.
// The caller checks the pool's byte threshold before calling.
func (d *DAG) BuildBlock(pool *TxPool) *Block {
	return &Block{
		Index:        uint64(len(d.blocks)),
		Transactions: pool.Snapshot(),
		Nonce:        0,
		ParentHashes: d.Frontier(),
		Timestamp:    Now(),
	}
}

// insert tentatively places the node and its edges.
func (d *DAG) insert(hash string, b *Block, parents []string) {
	d.blocks[hash] = b
	d.parents[hash] = parents
	d.order = append(d.order, hash)
	for _, p := range parents {
		d.children[p] = append(d.children[p], hash)
	}
}

// remove deletes a node and every edge touching it.
func (d *DAG) remove(hash string) {
	for _, p := range d.parents[hash] {
		d.children[p] = without(d.children[p], hash)
	}
	for _, c := range d.children[hash] {
		d.parents[c] = without(d.parents[c], hash)
	}
	delete(d.blocks, hash)
	delete(d.parents, hash)
	delete(d.children, hash)
	delete(d.confirmed, hash)
	d.order = without(d.order, hash)
}

// hasCycle runs a three-color DFS over the parent edges.
func (d *DAG) hasCycle() bool {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int, len(d.blocks))
	var visit func(string) bool
	visit = func(h string) bool {
		color[h] = gray
		for _, p := range d.parents[h] {
			switch color[p] {
			case gray:
				return true
			case white:
				if visit(p) {
					return true
				}
			}
		}
		color[h] = black
		return false
	}
	for h := range d.blocks {
		if color[h] == white && visit(h) {
			return true
		}
	}
	return false
}

func dedupe(hashes []string) []string {
	seen := make(map[string]bool, len(hashes))
	out := make([]string, 0, len(hashes))
	for _, h := range hashes {
		if !seen[h] {
			seen[h] = true
			out = append(out, h)
		}
	}
	return out
}

func without(list []string, v string) []string {
	out := list[:0]
	for _, x := range list {
		if x != v {
			out = append(out, x)
		}
	}
	return out
}
