// Command cote-mon is a runnable MON example: a passive observer that
// connects to nothing and simply logs the peers discovery sees come
// and go on the network, regardless of role or topic. Key and namespace
// checks still apply, so peers advertising a namespace are not logged.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joelguittet/go-cote"
	"github.com/joelguittet/go-cote/internal/config"
	"github.com/joelguittet/go-cote/internal/logging"
)

func main() {
	logger := logging.FromEnv("[cote-mon]")

	cfg, err := config.Load(config.Defaults{Name: "mon"})
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded", "name", cfg.Name)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	node, err := cote.Create(cote.RoleMon, cfg.Name)
	if err != nil {
		logger.Error("create node", "error", err)
		os.Exit(1)
	}
	defer node.Release()

	_ = node.On("added", cote.AddedFunc(func(_ *cote.Node, peer cote.Peer, _ any) {
		logger.Info("peer added", "instance", peer.Instance, "address", peer.Address, "advertisement", string(peer.Advertisement))
	}), nil)
	_ = node.On("removed", cote.RemovedFunc(func(_ *cote.Node, peer cote.Peer, _ any) {
		logger.Info("peer removed", "instance", peer.Instance, "address", peer.Address)
	}), nil)
	_ = node.On("error", cote.ErrorFunc(func(_ *cote.Node, errText string, _ any) {
		logger.Error("node error", "error", errText)
	}), nil)

	if err := node.Start(); err != nil {
		logger.Error("start node", "error", err)
		os.Exit(1)
	}
	logger.Info("monitor ready", "name", cfg.Name)

	<-ctx.Done()
	logger.Info("monitor stopped")
}
