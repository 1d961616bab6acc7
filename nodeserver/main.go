package main

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	core "tangle-network/core"
	"tangle-network/nodeserver/config"
	"tangle-network/nodeserver/controllers"
	"tangle-network/nodeserver/routes"
)

func main() {
	if err := config.Load(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	cfg := config.AppConfig

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	node, err := core.NewNode(core.NodeConfig{
		APIName:          cfg.APIName,
		ExternalURL:      cfg.ExternalURL,
		GenesisPublicKey: cfg.GenesisPublicKey,
		SnapshotPath:     cfg.SnapshotPath,
		MinimalDegree:    cfg.MinimalDegree,
		DecimalPlaces:    cfg.DecimalPlaces,
		BlockMBSizeLimit: cfg.BlockMBSizeLimit,
		SeedNeighbors:    cfg.Neighbors,
	})
	if err != nil {
		logrus.Fatalf("node init: %v", err)
	}

	ctrl := controllers.NewNodeController(node)
	r := mux.NewRouter()
	routes.Register(r, ctrl, cfg.APIName, cfg.RateLimitPerSecond, cfg.RateLimitBurst)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	logrus.Infof("tangle node %s listening on %s (api /api/v1/%s/)", node.ID, cfg.ListenAddr, cfg.APIName)
	if err := srv.ListenAndServe(); err != nil {
		logrus.Fatal(err)
	}
}
