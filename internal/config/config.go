// Package config loads the flag/env-driven run parameters the cote
// example programs (cmd/cote-pub, cmd/cote-sub, ...) accept. The node
// package itself takes no file/env configuration — spec.md is explicit
// that persisted/dynamic reconfiguration of identity is a non-goal —
// this package only configures the *examples* that wrap a node.
package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
)

// Config captures the common runtime parameters every cote example
// program accepts: identity, namespace, the topic list meaningful for
// its role, and discovery/network tuning forwarded verbatim to
// Node.SetOption.
type Config struct {
	Name         string
	Namespace    string
	Topics       []string
	Address      string
	Port         int
	UseHostNames bool
	NodeTimeout  int // milliseconds; 0 means "use the node's own default"
}

// Defaults seeds Load with the values that differ from one example
// program to the next (default instance name, default topic list).
type Defaults struct {
	Name   string
	Topics []string
}

// Load parses flags, falling back to environment variables and then
// defaults, in that precedence order.
func Load(defaults Defaults) (Config, error) {
	var cfg Config

	defaultName := defaults.Name
	if env := strings.TrimSpace(os.Getenv("COTE_NAME")); env != "" {
		defaultName = env
	}

	defaultNamespace := strings.TrimSpace(os.Getenv("COTE_NAMESPACE"))

	defaultTopics := strings.Join(defaults.Topics, ",")
	if env := strings.TrimSpace(os.Getenv("COTE_TOPICS")); env != "" {
		defaultTopics = env
	}

	defaultAddress := strings.TrimSpace(os.Getenv("COTE_ADDRESS"))

	defaultUseHostNames := false
	if env := strings.TrimSpace(os.Getenv("COTE_USE_HOSTNAMES")); env != "" {
		if v, err := strconv.ParseBool(env); err == nil {
			defaultUseHostNames = v
		}
	}

	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	nameFlag := fs.String("name", defaultName, "node name advertised over mDNS")
	namespaceFlag := fs.String("namespace", defaultNamespace, "topic namespace isolating this node from same-topic peers in other namespaces")
	topicsFlag := fs.String("topics", defaultTopics, "comma-separated list of topics/patterns for this node's role")
	addressFlag := fs.String("address", defaultAddress, "address to bind the transport listener to (emitter roles only)")
	portFlag := fs.Int("port", 0, "transport listener port, 0 = OS-assigned (emitter roles only)")
	useHostNamesFlag := fs.Bool("use-hostnames", defaultUseHostNames, "connect to peers by advertised hostname instead of address")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return cfg, err
	}

	cfg.Name = strings.TrimSpace(*nameFlag)
	if cfg.Name == "" {
		cfg.Name = defaultName
	}
	cfg.Namespace = strings.TrimSpace(*namespaceFlag)
	cfg.Topics = splitTopics(*topicsFlag)
	cfg.Address = strings.TrimSpace(*addressFlag)
	cfg.Port = *portFlag
	cfg.UseHostNames = *useHostNamesFlag

	return cfg, nil
}

func splitTopics(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
