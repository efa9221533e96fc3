// Command cote-pub is a runnable PUB example: it binds a transport
// listener, advertises its broadcast topics over mDNS, and sends an
// incrementing counter on each configured topic until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelguittet/go-cote"
	"github.com/joelguittet/go-cote/internal/config"
	"github.com/joelguittet/go-cote/internal/logging"
)

func main() {
	logger := logging.FromEnv("[cote-pub]")

	cfg, err := config.Load(config.Defaults{Name: "pub", Topics: []string{"hello"}})
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}
	if len(cfg.Topics) == 0 {
		logger.Error("at least one topic is required")
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"name", cfg.Name, "namespace", cfg.Namespace, "topics", cfg.Topics, "port", cfg.Port,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	node, err := cote.Create(cote.RolePub, cfg.Name)
	if err != nil {
		logger.Error("create node", "error", err)
		os.Exit(1)
	}
	defer node.Release()

	_ = node.On("error", cote.ErrorFunc(func(_ *cote.Node, errText string, _ any) {
		logger.Error("node error", "error", errText)
	}), nil)

	if cfg.Namespace != "" {
		if err := node.SetOption("namespace", cfg.Namespace); err != nil {
			logger.Error("set namespace", "error", err)
			os.Exit(1)
		}
	}
	if cfg.Address != "" {
		_ = node.SetOption("address", cfg.Address)
	}
	if cfg.Port != 0 {
		_ = node.SetOption("port", cfg.Port)
	}
	if err := node.SetOption("broadcasts", cfg.Topics); err != nil {
		logger.Error("set broadcasts", "error", err)
		os.Exit(1)
	}

	if err := node.Start(); err != nil {
		logger.Error("start node", "error", err)
		os.Exit(1)
	}
	logger.Info("publisher ready", "name", cfg.Name)

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	var count int64
	for {
		select {
		case <-ctx.Done():
			logger.Info("publisher stopped")
			return
		case <-ticker.C:
			count++
			for _, topic := range cfg.Topics {
				payload := fmt.Sprintf("tick %d from %s", count, cfg.Name)
				if err := node.Send(topic, cote.StringField(payload)); err != nil {
					logger.Error("send", "topic", topic, "error", err)
					continue
				}
				logger.Debug("sent", "topic", topic, "payload", payload)
			}
		}
	}
}
