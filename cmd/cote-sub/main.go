// Command cote-sub is a runnable SUB example: it connects to any
// discovered PUB whose broadcast topics intersect its subscription
// patterns and logs every message it receives.
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
	logger := logging.FromEnv("[cote-sub]")

	cfg, err := config.Load(config.Defaults{Name: "sub", Topics: []string{"hello"}})
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if len(cfg.Topics) == 0 {
		logger.Error("at least one topic is required")
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"name", cfg.Name, "namespace", cfg.Namespace, "topics", cfg.Topics,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	node, err := cote.Create(cote.RoleSub, cfg.Name)
	if err != nil {
		logger.Error("create node", "error", err)
		os.Exit(1)
	}
	defer node.Release()

	_ = node.On("added", cote.AddedFunc(func(_ *cote.Node, peer cote.Peer, _ any) {
		logger.Info("peer added", "instance", peer.Instance, "address", peer.Address)
	}), nil)
	_ = node.On("removed", cote.RemovedFunc(func(_ *cote.Node, peer cote.Peer, _ any) {
		logger.Info("peer removed", "instance", peer.Instance, "address", peer.Address)
	}), nil)
	_ = node.On("error", cote.ErrorFunc(func(_ *cote.Node, errText string, _ any) {
		logger.Error("node error", "error", errText)
	}), nil)

	if cfg.Namespace != "" {
		if err := node.SetOption("namespace", cfg.Namespace); err != nil {
			logger.Error("set namespace", "error", err)
			os.Exit(1)
		}
	}
	if cfg.UseHostNames {
		_ = node.SetOption("useHostNames", true)
	}
	if err := node.SetOption("subscribesTo", cfg.Topics); err != nil {
		logger.Error("set subscribesTo", "error", err)
		os.Exit(1)
	}

	for _, t := range cfg.Topics {
		topic := t
		if err := node.Subscribe(topic, func(_ *cote.Node, gotTopic string, msg cote.Message, _ any) *cote.Message {
			logger.Info("message received", "topic", gotTopic, "fields", len(msg.Fields))
			for _, f := range msg.Fields {
				if f.Type == cote.FieldString {
					logger.Info("payload", "topic", gotTopic, "value", f.Str)
				}
			}
			return nil
		}, nil); err != nil {
			logger.Error("subscribe", "topic", topic, "error", err)
			os.Exit(1)
		}
	}

	if err := node.Start(); err != nil {
		logger.Error("start node", "error", err)
		os.Exit(1)
	}
	logger.Info("subscriber ready", "name", cfg.Name)

	<-ctx.Done()
	logger.Info("subscriber stopped")
}
