package core

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"tangle-network/pkg/utils"
)

// The snapshot is the DAG in node-link form, the shape legacy tooling and
// the visualization consumers expect:
//
//	{"nodes": [{"id": hash, "block": {...}}, ...],
//	 "links": [{"source": child, "target": parent}, ...],
//	 "directed": true, "multigraph": false, "graph": {}}

// NodeLinkNode carries one block keyed by its hash.
type NodeLinkNode struct {
	ID    string `json:"id"`
	Block *Block `json:"block"`
}

// NodeLinkEdge is a directed child-to-parent reference.
type NodeLinkEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// NodeLinkGraph is the serialized DAG.
type NodeLinkGraph struct {
	Directed   bool           `json:"directed"`
	Multigraph bool           `json:"multigraph"`
	Graph      map[string]any `json:"graph"`
	Nodes      []NodeLinkNode `json:"nodes"`
	Links      []NodeLinkEdge `json:"links"`
}

// Export renders the DAG in node-link form, nodes and edges in insertion
// order.
func (d *DAG) Export() *NodeLinkGraph {
	g := &NodeLinkGraph{
		Directed:   true,
		Multigraph: false,
		Graph:      map[string]any{},
		Nodes:      make([]NodeLinkNode, 0, len(d.order)),
		Links:      []NodeLinkEdge{},
	}
	for _, h := range d.order {
		g.Nodes = append(g.Nodes, NodeLinkNode{ID: h, Block: d.blocks[h]})
	}
	for _, h := range d.order {
		for _, p := range d.parents[h] {
			g.Links = append(g.Links, NodeLinkEdge{Source: h, Target: p})
		}
	}
	return g
}

// SaveSnapshot writes the graph to path. Failures are reported, not fatal;
// the caller logs and carries on serving.
func SaveSnapshot(path string, g *NodeLinkGraph) error {
	data, err := json.MarshalIndent(g, "", "    ")
	if err != nil {
		return utils.Wrap(err, "marshal snapshot")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return utils.Wrap(err, "snapshot dir")
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return utils.Wrap(err, "write snapshot")
	}
	return nil
}

// LoadSnapshot reads a node-link file. A missing file is not an error; the
// node starts empty.
func LoadSnapshot(path string) (*NodeLinkGraph, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.Wrap(err, "read snapshot")
	}
	var g NodeLinkGraph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, utils.Wrap(err, "parse snapshot")
	}
	return &g, nil
}

// replayGraph deterministically rebuilds a DAG and ledger from node-link
// data. The ledger is reset to genesis first. Blocks are processed in
// topological order (parents before children); a cyclic graph aborts the
// replay and leaves both empty, matching a cold start.
//
// Edges are rederived from each block's parent references rather than the
// stored link list, so files written under the legacy edge direction
// replay to the same in-degrees live insertion would produce. A block is
// applied only once its in-degree inside the loaded graph reaches the
// confirmation threshold, the same gate used live; within a confirmed
// block each transaction is validated and applied individually, and the
// first invalid transaction skips the remainder of its block.
func replayGraph(g *NodeLinkGraph, d *DAG, led *Ledger) error {
	led.Reset()

	blocks := make(map[string]*Block, len(g.Nodes))
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.Block == nil || blocks[n.ID] != nil {
			continue
		}
		blocks[n.ID] = n.Block
		ids = append(ids, n.ID)
	}

	// Kahn's ordering over child->parent references.
	remaining := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		for _, p := range dedupe(blocks[id].ParentHashes) {
			if _, known := blocks[p]; known {
				remaining[id]++
				dependents[p] = append(dependents[p], id)
			}
		}
	}
	queue := make([]string, 0, len(ids))
	for _, id := range ids {
		if remaining[id] == 0 {
			queue = append(queue, id)
		}
	}
	topo := make([]string, 0, len(ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		topo = append(topo, id)
		for _, dep := range dependents[id] {
			remaining[dep]--
			if remaining[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}
	if len(topo) != len(ids) {
		return ErrCycleRejected
	}

	for _, id := range topo {
		b := blocks[id]
		parents := make([]string, 0, len(b.ParentHashes))
		for _, p := range dedupe(b.ParentHashes) {
			if d.Has(p) {
				parents = append(parents, p)
			}
		}
		d.insert(id, b, parents)
	}

	for _, id := range topo {
		if len(d.children[id]) < d.minimalDegree {
			continue
		}
		b := blocks[id]
		for i := range b.Transactions {
			tx := &b.Transactions[i]
			if err := led.Validate(tx); err != nil {
				logrus.Warnf("replay: block %.12s tx %d rejected: %v", id, i, err)
				break
			}
			led.applyTx(tx)
		}
		d.confirmed[id] = true
	}
	logrus.Infof("replay: rebuilt %d blocks, %d accounts", d.Len(), len(led.Balances))
	return nil
}
