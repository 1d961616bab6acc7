package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// peerServer exposes a node the way the HTTP layer would, just enough for
// the connect handshake: dag, neighbor list and the reciprocal connect.
type peerServer struct {
	node *Node

	mu         sync.Mutex
	reciprocal []string
}

func newPeerServer(t *testing.T, node *Node) (*peerServer, *httptest.Server) {
	t.Helper()
	p := &peerServer{node: node}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tangle/dag/", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, "DAG.", p.node.ExportDAG())
	})
	mux.HandleFunc("/api/v1/tangle/nodes/neighbors/", func(w http.ResponseWriter, _ *http.Request) {
		writeEnvelope(w, "Neighbors.", p.node.Neighbors())
	})
	mux.HandleFunc("/api/v1/tangle/nodes/connect/", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			AddressURL string `json:"address_url"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		p.mu.Lock()
		p.reciprocal = append(p.reciprocal, body.AddressURL)
		p.mu.Unlock()
		writeEnvelope(w, "Connected.", body.AddressURL)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return p, srv
}

func writeEnvelope(w http.ResponseWriter, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"message": message, "data": data})
}

// populate feeds blocks into a node via the gossip path.
func populate(t *testing.T, n *Node, blocks []*Block) {
	t.Helper()
	for _, b := range blocks {
		if err := n.ReceiveBlock(b); err != nil {
			t.Fatalf("populate: %v", err)
		}
	}
}

// ledgerBlocks builds a 12-block history: a funded root confirmed by three
// children, then a chain of fillers.
func ledgerBlocks(t *testing.T) []*Block {
	t.Helper()
	g, s := identities(t)
	root := &Block{
		Index:        0,
		Transactions: []Transaction{signedTx(t, g, s.PublicKey, 1000, 1)},
		Timestamp:    Now(),
	}
	blocks := []*Block{root}
	rh := root.Hash()
	for i := uint64(1); i <= 3; i++ {
		blocks = append(blocks, emptyBlock(i, rh))
	}
	prev := blocks[3].Hash()
	for i := uint64(4); i < 12; i++ {
		b := emptyBlock(i, prev)
		blocks = append(blocks, b)
		prev = b.Hash()
	}
	return blocks
}

// A connects to B, which holds a strict superset; A adopts B's DAG and its
// replayed ledger matches, picks up B's neighbors, and registers itself.
func TestConnectAdoptsLargerDAG(t *testing.T) {
	g, s := identities(t)
	blocks := ledgerBlocks(t)

	nodeB := testNode(t, "")
	populate(t, nodeB, blocks)
	nodeB.AddNeighbor("http://third-party:8000/")
	if nodeB.BlockCount() != 12 {
		t.Fatalf("peer has %d blocks, want 12", nodeB.BlockCount())
	}

	nodeA := testNode(t, "")
	populate(t, nodeA, blocks[:5])
	if nodeA.BlockCount() != 5 {
		t.Fatalf("local has %d blocks, want 5", nodeA.BlockCount())
	}

	peer, srv := newPeerServer(t, nodeB)
	if err := nodeA.Connect(srv.URL + "/"); err != nil {
		t.Fatalf("connect: %v", err)
	}

	if nodeA.BlockCount() != 12 {
		t.Fatalf("adopted %d blocks, want 12", nodeA.BlockCount())
	}
	if got, want := nodeA.DisplayBalance(s.PublicKey), nodeB.DisplayBalance(s.PublicKey); got != want {
		t.Fatalf("balance %v, want %v", got, want)
	}
	if got := nodeA.Nonce(g.PublicKey); got != nodeB.Nonce(g.PublicKey) {
		t.Fatalf("nonce %d, want %d", got, nodeB.Nonce(g.PublicKey))
	}
	exportA, _ := json.Marshal(nodeA.ExportDAG())
	exportB, _ := json.Marshal(nodeB.ExportDAG())
	if string(exportA) != string(exportB) {
		t.Fatal("adopted DAG differs from peer DAG")
	}

	// Neighbor union plus the peer itself.
	if !nodeA.HasNeighbor("http://third-party:8000/") {
		t.Fatal("peer neighbors not merged")
	}
	if !nodeA.HasNeighbor(srv.URL + "/") {
		t.Fatal("peer itself not recorded")
	}

	// Reciprocal connect carried our external URL.
	peer.mu.Lock()
	defer peer.mu.Unlock()
	if len(peer.reciprocal) != 1 || peer.reciprocal[0] != "http://localhost:8000/" {
		t.Fatalf("reciprocal = %v", peer.reciprocal)
	}
}

// A peer with fewer blocks is recorded but not adopted.
func TestConnectKeepsLargerLocalDAG(t *testing.T) {
	blocks := ledgerBlocks(t)

	nodeB := testNode(t, "")
	populate(t, nodeB, blocks[:3])

	nodeA := testNode(t, "")
	populate(t, nodeA, blocks)

	_, srv := newPeerServer(t, nodeB)
	if err := nodeA.Connect(srv.URL + "/"); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if nodeA.BlockCount() != 12 {
		t.Fatalf("local DAG shrank to %d", nodeA.BlockCount())
	}
	if !nodeA.HasNeighbor(srv.URL + "/") {
		t.Fatal("smaller peer not recorded")
	}
}

func TestConnectRejectsBadURL(t *testing.T) {
	n := testNode(t, "")
	if err := n.Connect("ftp://not-a-peer"); err == nil {
		t.Fatal("expected invalid URL error")
	}
}

// The transaction gossip endpoint receives a locally admitted transaction.
func TestGossipFanOut(t *testing.T) {
	g, s := identities(t)

	var mu sync.Mutex
	var gotTx, gotBlocks int
	done := make(chan struct{}, 8)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/tangle/nodes/transaction/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotTx++
		mu.Unlock()
		writeEnvelope(w, "ok", nil)
		done <- struct{}{}
	})
	mux.HandleFunc("/api/v1/tangle/nodes/block/", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotBlocks++
		mu.Unlock()
		writeEnvelope(w, "ok", nil)
		done <- struct{}{}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	n := testNode(t, "")
	n.AddNeighbor(srv.URL + "/")

	if _, err := n.SubmitTransaction(signedTx(t, g, s.PublicKey, 10, 1).TransactionCreate, true); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-done
	mu.Lock()
	if gotTx != 1 {
		t.Fatalf("transaction gossip count = %d", gotTx)
	}
	mu.Unlock()
}
