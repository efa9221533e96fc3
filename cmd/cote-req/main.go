// Command cote-req is a runnable REQ example: it connects to any
// discovered REP whose responded-to topics intersect its request
// patterns and sends a JSON request on each configured topic on a
// fixed interval, logging the reply or timeout.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joelguittet/go-cote"
	"github.com/joelguittet/go-cote/internal/config"
	"github.com/joelguittet/go-cote/internal/logging"
)

const requestTimeout = 5 * time.Second

func main() {
	logger := logging.FromEnv("[cote-req]")

	cfg, err := config.Load(config.Defaults{Name: "req", Topics: []string{"hello"}})
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

	node, err := cote.Create(cote.RoleReq, cfg.Name)
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
	if cfg.UseHostNames {
		_ = node.SetOption("useHostNames", true)
	}
	if err := node.SetOption("requests", cfg.Topics); err != nil {
		logger.Error("set requests", "error", err)
		os.Exit(1)
	}

	if err := node.Start(); err != nil {
		logger.Error("start node", "error", err)
		os.Exit(1)
	}
	logger.Info("requester ready", "name", cfg.Name)

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()
	var count int64
	for {
		select {
		case <-ctx.Done():
			logger.Info("requester stopped")
			return
		case <-ticker.C:
			count++
			for _, topic := range cfg.Topics {
				body, _ := json.Marshal(map[string]any{"seq": count, "from": cfg.Name})
				reply, err := node.Request(topic, body, requestTimeout)
				if err != nil {
					logger.Error("request", "topic", topic, "error", err)
					continue
				}
				logger.Info("reply received", "topic", topic, "fields", len(reply.Fields))
				for _, f := range reply.Fields {
					if f.Type == cote.FieldJSON {
						logger.Info("reply payload", "topic", topic, "value", fmt.Sprintf("%s", f.JSON))
					}
				}
			}
		}
	}
}
