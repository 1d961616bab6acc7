package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// peerTimeout bounds every call to a neighbor. Cancellation of an in-flight
// call never rolls back state already committed locally.
const peerTimeout = 5 * time.Second

// NeighborSet is the deduplicated list of peer base URLs. Cooperating peers
// only; there is no authentication.
type NeighborSet struct {
	urls []string
}

// NewNeighborSet seeds the set, dropping duplicates and blanks.
func NewNeighborSet(seed []string) *NeighborSet {
	s := &NeighborSet{}
	for _, u := range seed {
		s.Add(u)
	}
	return s
}

// Add records url unless already present. Returns true when added.
func (s *NeighborSet) Add(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" || s.Contains(url) {
		return false
	}
	s.urls = append(s.urls, url)
	return true
}

// Contains reports membership.
func (s *NeighborSet) Contains(url string) bool {
	for _, u := range s.urls {
		if u == url {
			return true
		}
	}
	return false
}

// List returns a copy of the URLs.
func (s *NeighborSet) List() []string {
	out := make([]string, len(s.urls))
	copy(out, s.urls)
	return out
}

// Len returns the number of neighbors.
func (s *NeighborSet) Len() int { return len(s.urls) }

// apiEnvelope is the wire wrapper every peer response carries.
type apiEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// neighborBody is the connect request payload.
type neighborBody struct {
	AddressURL string `json:"address_url"`
}

// Gossiper fans node events out to neighbors over HTTP. No retries, no
// backoff, no fan-out caps; failures are logged and dropped.
type Gossiper struct {
	client  *http.Client
	apiName string
}

// NewGossiper returns a gossiper with the bounded peer timeout.
func NewGossiper(apiName string) *Gossiper {
	return &Gossiper{
		client:  &http.Client{Timeout: peerTimeout},
		apiName: apiName,
	}
}

// apiURL joins a neighbor base URL with an API route.
func (g *Gossiper) apiURL(base, route string) string {
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return fmt.Sprintf("%sapi/v1/%s/%s", base, g.apiName, route)
}

// post sends a JSON body and closes the response unread; a 4xx/5xx status
// is reported as an error.
func (g *Gossiper) post(url string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := g.client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("peer returned %s", resp.Status)
	}
	return nil
}

// get fetches and unwraps an enveloped response into data.
func (g *Gossiper) get(url string, data any) error {
	resp, err := g.client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("peer returned %s", resp.Status)
	}
	var env apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return err
	}
	return json.Unmarshal(env.Data, data)
}

// BroadcastTransaction posts tx to every neighbor.
func (g *Gossiper) BroadcastTransaction(neighbors []string, tx *Transaction) {
	for _, peer := range neighbors {
		if err := g.post(g.apiURL(peer, "nodes/transaction/"), tx); err != nil {
			logrus.Warnf("gossip: tx to %s failed: %v", peer, err)
		}
	}
}

// BroadcastBlock posts a confirmed block to every neighbor.
func (g *Gossiper) BroadcastBlock(neighbors []string, b *Block) {
	for _, peer := range neighbors {
		if err := g.post(g.apiURL(peer, "nodes/block/"), b); err != nil {
			logrus.Warnf("gossip: block to %s failed: %v", peer, err)
		}
	}
}

// Connect performs the neighbor handshake with addressURL:
//
//  1. fetch the peer's DAG and adopt it when it holds strictly more blocks;
//  2. union the peer's neighbor list into the local set;
//  3. when the peer is new, post a reciprocal connect carrying this node's
//     external URL, then record the peer.
//
// Peer I/O runs outside the node's critical section.
func (n *Node) Connect(addressURL string) error {
	if !strings.HasPrefix(addressURL, "http") {
		return fmt.Errorf("invalid neighbor URL %q", addressURL)
	}

	var peerGraph NodeLinkGraph
	if err := n.gossip.get(n.gossip.apiURL(addressURL, "dag/"), &peerGraph); err != nil {
		return fmt.Errorf("fetch neighbor DAG: %w", err)
	}
	if len(peerGraph.Nodes) > n.BlockCount() {
		if err := n.adoptGraph(&peerGraph); err != nil {
			return fmt.Errorf("adopt neighbor DAG: %w", err)
		}
		logrus.Infof("sync: adopted DAG from %s (%d blocks)", addressURL, len(peerGraph.Nodes))
	}

	var peerNeighbors []string
	if err := n.gossip.get(n.gossip.apiURL(addressURL, "nodes/neighbors/"), &peerNeighbors); err != nil {
		return fmt.Errorf("fetch neighbor list: %w", err)
	}
	for _, u := range peerNeighbors {
		if u != n.cfg.ExternalURL {
			n.AddNeighbor(u)
		}
	}

	if !n.HasNeighbor(addressURL) {
		body := neighborBody{AddressURL: n.cfg.ExternalURL}
		if err := n.gossip.post(n.gossip.apiURL(addressURL, "nodes/connect/"), body); err != nil {
			logrus.Warnf("sync: reciprocal connect to %s failed: %v", addressURL, err)
		}
		n.AddNeighbor(addressURL)
	}
	return nil
}
