package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"tangle-network/nodeserver/controllers"
	"tangle-network/nodeserver/middleware"
)

// Register mounts the node API under /api/v1/<apiName>/ with the standard
// middleware stack.
func Register(r *mux.Router, c *controllers.NodeController, apiName string, ratePerSecond float64, rateBurst int) {
	api := r.PathPrefix("/api/v1/" + apiName).Subrouter()
	api.Use(middleware.Logger)
	api.Use(middleware.JSONHeaders)
	api.Use(middleware.RateLimit(ratePerSecond, rateBurst))

	api.HandleFunc("/unconfirmed_blocks/", c.UnconfirmedBlocks).Methods(http.MethodGet)
	api.HandleFunc("/block/{hash}/", c.BlockByHash).Methods(http.MethodGet)
	api.HandleFunc("/dag/", c.GetDAG).Methods(http.MethodGet)

	api.HandleFunc("/transactions/post/", c.PostTransaction).Methods(http.MethodPost)
	api.HandleFunc("/transactions/unconfirmed/", c.UnconfirmedTransactions).Methods(http.MethodGet)

	api.HandleFunc("/wallets/nonce/", c.WalletNonce).Methods(http.MethodPost)
	api.HandleFunc("/wallets/balance/", c.WalletBalance).Methods(http.MethodPost)

	api.HandleFunc("/nodes/neighbors/", c.GetNeighbors).Methods(http.MethodGet)
	api.HandleFunc("/nodes/connect/", c.Connect).Methods(http.MethodPost)
	api.HandleFunc("/nodes/transaction/", c.ReceiveTransaction).Methods(http.MethodPost)
	api.HandleFunc("/nodes/block/", c.ReceiveBlock).Methods(http.MethodPost)
}
