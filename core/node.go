package core

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// NodeConfig carries the tunables the node reads at startup.
type NodeConfig struct {
	APIName          string
	ExternalURL      string
	GenesisPublicKey string
	SnapshotPath     string

	MinimalDegree    int
	DecimalPlaces    int
	BlockMBSizeLimit int

	// SeedNeighbors populate the neighbor set before any handshake.
	SeedNeighbors []string
}

// blockSizeLimit returns the block trigger in bytes.
func (c NodeConfig) blockSizeLimit() int {
	mb := c.BlockMBSizeLimit
	if mb <= 0 {
		mb = 1
	}
	return mb * 1024 * 1024
}

// poolCapMultiple bounds the pool at a multiple of the block trigger so a
// stalled builder cannot grow it without limit.
const poolCapMultiple = 16

// Node owns the process-wide replica: DAG, ledger, pool and neighbor set
// under one coarse lock. All mutations serialize through mu; outbound
// gossip and snapshots are captured under the lock and dispatched after it
// is released, so a slow peer never blocks admission.
type Node struct {
	ID  string
	cfg NodeConfig

	blockLimit int

	mu     sync.RWMutex
	dag    *DAG
	ledger *Ledger
	pool   *TxPool
	peers  *NeighborSet
	gossip *Gossiper
}

// NewNode assembles a node at genesis and, when a snapshot exists at the
// configured path, recovers the DAG and ledger from it.
func NewNode(cfg NodeConfig) (*Node, error) {
	n := &Node{
		ID:         uuid.NewString(),
		cfg:        cfg,
		blockLimit: cfg.blockSizeLimit(),
		dag:        NewDAG(cfg.MinimalDegree),
		ledger:     NewLedger(cfg.GenesisPublicKey, cfg.DecimalPlaces),
		pool:       NewTxPool(cfg.blockSizeLimit() * poolCapMultiple),
		peers:      NewNeighborSet(cfg.SeedNeighbors),
		gossip:     NewGossiper(cfg.APIName),
	}
	if cfg.SnapshotPath != "" {
		g, err := LoadSnapshot(cfg.SnapshotPath)
		if err != nil {
			return nil, err
		}
		if g != nil {
			if err := replayGraph(g, n.dag, n.ledger); err != nil {
				logrus.Warnf("node: snapshot replay failed, starting empty: %v", err)
				n.dag = NewDAG(cfg.MinimalDegree)
				n.ledger.Reset()
			}
		}
	}
	logrus.Infof("node %s up: %d blocks, %d neighbors", n.ID, n.dag.Len(), n.peers.Len())
	return n, nil
}

// outcome accumulates the side effects of a mutation performed under the
// lock, for dispatch after it is released.
type outcome struct {
	gossipTx     *Transaction
	gossipBlocks []*Block
	snapshot     *NodeLinkGraph
}

// dispatch ships gossip and writes the snapshot outside the critical
// section.
func (n *Node) dispatch(out outcome) {
	if out.snapshot != nil && n.cfg.SnapshotPath != "" {
		if err := SaveSnapshot(n.cfg.SnapshotPath, out.snapshot); err != nil {
			logrus.Errorf("node: snapshot save failed: %v", err)
		}
	}
	neighbors := n.Neighbors()
	if out.gossipTx != nil {
		go n.gossip.BroadcastTransaction(neighbors, out.gossipTx)
	}
	for _, b := range out.gossipBlocks {
		go n.gossip.BroadcastBlock(neighbors, b)
	}
}

// SubmitTransaction stamps, admits and (for locally originated submissions)
// gossips a transaction, cutting a block when the pool crosses its byte
// threshold. The admitted transaction, with its timestamp, is returned.
func (n *Node) SubmitTransaction(txc TransactionCreate, local bool) (*Transaction, error) {
	tx := Transaction{TransactionCreate: txc, Timestamp: Now()}

	n.mu.Lock()
	if err := n.pool.Submit(tx, n.ledger); err != nil {
		n.mu.Unlock()
		return nil, err
	}
	out := n.maybeCutBlockLocked()
	if local {
		out.gossipTx = &tx
	}
	n.mu.Unlock()

	n.dispatch(out)
	return &tx, nil
}

// ReceiveTransaction handles inbound gossip: same admission path, no
// re-broadcast of the transaction itself.
func (n *Node) ReceiveTransaction(tx Transaction) error {
	n.mu.Lock()
	if err := n.pool.Submit(tx, n.ledger); err != nil {
		n.mu.Unlock()
		return err
	}
	out := n.maybeCutBlockLocked()
	n.mu.Unlock()

	n.dispatch(out)
	return nil
}

// ReceiveBlock inserts a gossiped block, confirming and re-gossiping
// parents that cross the threshold.
func (n *Node) ReceiveBlock(b *Block) error {
	n.mu.Lock()
	status, confirmed, err := n.dag.AddBlock(b, n.ledger)
	var out outcome
	if len(confirmed) > 0 {
		n.pool.Reconcile(n.ledger)
		out.gossipBlocks = confirmed
		out.snapshot = n.dag.Export()
	}
	n.mu.Unlock()

	n.dispatch(out)
	if err != nil {
		return err
	}
	if status == BlockExists {
		logrus.Debugf("node: block %.12s already known", b.Hash())
	}
	return nil
}

// maybeCutBlockLocked builds and inserts a block once the pool crosses the
// byte threshold, draining exactly the included transactions. Must run with
// the write lock held.
func (n *Node) maybeCutBlockLocked() outcome {
	var out outcome
	if n.pool.ByteSize() < n.blockLimit {
		return out
	}
	block := n.dag.BuildBlock(n.pool)
	status, confirmed, err := n.dag.AddBlock(block, n.ledger)
	if status == BlockRejected {
		logrus.Warnf("node: block cut failed: %v", err)
		return out
	}
	if err != nil {
		// The block entered the DAG; only a parent failed confirmation.
		logrus.Warnf("node: block cut: %v", err)
	}
	n.pool.Drain(block.Transactions)
	logrus.Infof("node: cut block %.12s with %d transactions", block.Hash(), len(block.Transactions))
	if len(confirmed) > 0 {
		n.pool.Reconcile(n.ledger)
		out.gossipBlocks = confirmed
		out.snapshot = n.dag.Export()
	}
	return out
}

// adoptGraph replaces the local replica with g, replaying it from genesis.
// The pool is reset: its nonce chains are meaningless against the adopted
// state.
func (n *Node) adoptGraph(g *NodeLinkGraph) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	dag := NewDAG(n.cfg.MinimalDegree)
	led := NewLedger(n.cfg.GenesisPublicKey, n.cfg.DecimalPlaces)
	if err := replayGraph(g, dag, led); err != nil {
		return err
	}
	n.dag = dag
	n.ledger = led
	n.pool = NewTxPool(n.cfg.blockSizeLimit() * poolCapMultiple)
	return nil
}

// Read-side accessors. Each takes the shared lock and copies out.

// Nonce returns the last confirmed nonce for publicKey.
func (n *Node) Nonce(publicKey string) uint64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.ExpectedNonce(publicKey)
}

// DisplayBalance returns the decimal balance for publicKey.
func (n *Node) DisplayBalance(publicKey string) float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.ledger.DisplayBalance(publicKey)
}

// UnconfirmedTransactions returns the pool contents.
func (n *Node) UnconfirmedTransactions() []Transaction {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pool.Snapshot()
}

// UnconfirmedBlocks returns blocks still short of two confirmations.
func (n *Node) UnconfirmedBlocks() []*Block {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dag.UnconfirmedBlocks()
}

// BlockByHash looks a block up by hash.
func (n *Node) BlockByHash(hash string) (*Block, error) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dag.BlockByHash(hash)
}

// ExportDAG returns the DAG in node-link form.
func (n *Node) ExportDAG() *NodeLinkGraph {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dag.Export()
}

// BlockCount returns the number of blocks in the replica.
func (n *Node) BlockCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.dag.Len()
}

// Neighbors returns a copy of the neighbor URL list.
func (n *Node) Neighbors() []string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.peers.List()
}

// AddNeighbor records a neighbor URL if not already present.
func (n *Node) AddNeighbor(url string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.peers.Add(url)
}

// HasNeighbor reports whether url is already a neighbor.
func (n *Node) HasNeighbor(url string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.peers.Contains(url)
}
