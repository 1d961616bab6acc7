package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	core "tangle-network/core"
)

// NodeController exposes the ledger node over HTTP. Validation errors map
// to 400, unknown hashes to 404; inbound gossip failures are logged and
// dropped so a bad peer cannot poison the connection.
type NodeController struct {
	node *core.Node
}

// NewNodeController wires the controller to a node.
func NewNodeController(n *core.Node) *NodeController {
	return &NodeController{node: n}
}

type publicKeyBody struct {
	PublicKey string `json:"public_key"`
}

type neighborBody struct {
	AddressURL string `json:"address_url"`
}

// UnconfirmedBlocks returns blocks with fewer than two confirmations.
func (c *NodeController) UnconfirmedBlocks(w http.ResponseWriter, _ *http.Request) {
	blocks := c.node.UnconfirmedBlocks()
	writeData(w, fmt.Sprintf("%d Unconfirmed blocks.", len(blocks)), blocks)
}

// BlockByHash returns a single block or 404.
func (c *NodeController) BlockByHash(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]
	block, err := c.node.BlockByHash(hash)
	if err != nil {
		writeError(w, http.StatusNotFound, "Block not found.")
		return
	}
	writeData(w, "Block.", block)
}

// GetDAG returns the DAG in node-link form.
func (c *NodeController) GetDAG(w http.ResponseWriter, _ *http.Request) {
	writeData(w, "DAG.", c.node.ExportDAG())
}

// PostTransaction admits a wallet-submitted transaction and gossips it.
func (c *NodeController) PostTransaction(w http.ResponseWriter, r *http.Request) {
	var body core.TransactionCreate
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := c.node.SubmitTransaction(body, true)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Transaction could not be added: %v.", err))
		return
	}
	writeData(w, "Transaction posted.", tx)
}

// UnconfirmedTransactions returns the pool contents.
func (c *NodeController) UnconfirmedTransactions(w http.ResponseWriter, _ *http.Request) {
	txs := c.node.UnconfirmedTransactions()
	writeData(w, fmt.Sprintf("%d Unconfirmed transactions.", len(txs)), txs)
}

// WalletNonce returns the confirmed nonce for a public key.
func (c *NodeController) WalletNonce(w http.ResponseWriter, r *http.Request) {
	var body publicKeyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, "Wallet nonce.", c.node.Nonce(body.PublicKey))
}

// WalletBalance returns the decimal balance for a public key.
func (c *NodeController) WalletBalance(w http.ResponseWriter, r *http.Request) {
	var body publicKeyBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeData(w, "Wallet balance.", c.node.DisplayBalance(body.PublicKey))
}

// GetNeighbors lists the neighbor URLs.
func (c *NodeController) GetNeighbors(w http.ResponseWriter, _ *http.Request) {
	neighbors := c.node.Neighbors()
	writeData(w, fmt.Sprintf("%d Neighbors.", len(neighbors)), neighbors)
}

// Connect runs the neighbor handshake.
func (c *NodeController) Connect(w http.ResponseWriter, r *http.Request) {
	var body neighborBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.node.Connect(body.AddressURL); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid neighbor: %v.", err))
		return
	}
	writeData(w, fmt.Sprintf("Connected to neighbor %s.", body.AddressURL), body.AddressURL)
}

// ReceiveTransaction handles gossiped transactions. Rejections are silent.
func (c *NodeController) ReceiveTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := json.NewDecoder(r.Body).Decode(&tx); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.node.ReceiveTransaction(tx); err != nil {
		logrus.Warnf("gossip: dropped neighbor transaction: %v", err)
	}
	writeData(w, "Received neighbor transaction.", tx)
}

// ReceiveBlock handles gossiped blocks. Rejections are silent.
func (c *NodeController) ReceiveBlock(w http.ResponseWriter, r *http.Request) {
	var block core.Block
	if err := json.NewDecoder(r.Body).Decode(&block); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := c.node.ReceiveBlock(&block); err != nil {
		if !errors.Is(err, core.ErrMissingParent) {
			logrus.Warnf("gossip: dropped neighbor block: %v", err)
		} else {
			logrus.Debugf("gossip: neighbor block missing ancestors: %v", err)
		}
	}
	writeData(w, "Received neighbor block.", block)
}
