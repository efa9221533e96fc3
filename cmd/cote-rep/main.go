// Command cote-rep is a runnable REP example: it binds a transport
// listener, advertises the topics it responds to, and answers every
// request with a JSON echo of the request body plus a sequence number.
package main

import (
	"encoding/json"
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/joelguittet/go-cote"
	"github.com/joelguittet/go-cote/internal/config"
	"github.com/joelguittet/go-cote/internal/logging"
)

func main() {
	logger := logging.FromEnv("[cote-rep]")

	cfg, err := config.Load(config.Defaults{Name: "rep", Topics: []string{"hello"}})
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

	node, err := cote.Create(cote.RoleRep, cfg.Name)
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
	if err := node.SetOption("respondsTo", cfg.Topics); err != nil {
		logger.Error("set respondsTo", "error", err)
		os.Exit(1)
	}

	var served atomic.Int64
	for _, t := range cfg.Topics {
		topic := t
		if err := node.Subscribe(topic, func(_ *cote.Node, gotTopic string, msg cote.Message, _ any) *cote.Message {
			seq := served.Add(1)
			var body map[string]json.RawMessage
			if first, ok := msg.First(); ok && first.Type == cote.FieldJSON {
				_ = json.Unmarshal(first.JSON, &body)
			}
			logger.Info("request received", "topic", gotTopic, "seq", seq)
			out, _ := json.Marshal(map[string]any{"echo": body, "seq": seq})
			return cote.Reply(cote.JSONField(out))
		}, nil); err != nil {
			logger.Error("subscribe", "topic", topic, "error", err)
			os.Exit(1)
		}
	}

	if err := node.Start(); err != nil {
		logger.Error("start node", "error", err)
		os.Exit(1)
	}
	logger.Info("replier ready", "name", cfg.Name)

	<-ctx.Done()
	logger.Info("replier stopped")
}
