package discovery

import (
	"fmt"
	"os"
	"sync"

	"github.com/grandcat/zeroconf"
)

// txtChunkSize keeps each TXT entry comfortably under the 255-byte
// per-string limit DNS-SD imposes, after accounting for the "advNN="
// key prefix.
const txtChunkSize = 200

// AnnounceOptions define what a node publishes over mDNS: its instance
// name, the service/domain pair peers browse, the bound port, and the
// raw advertisement JSON built by the advertisement package.
type AnnounceOptions struct {
	Instance      string
	Service       string
	Domain        string
	Port          int
	Advertisement []byte
}

// Announcer manages the lifetime of an mDNS advertisement.
type Announcer struct {
	server *zeroconf.Server
	once   sync.Once
}

// NewAnnouncer publishes an mDNS record for the node and returns a
// controller. The advertisement is chunked across one or more "advN"
// TXT entries so it survives the per-string DNS-SD size limit.
func NewAnnouncer(opts AnnounceOptions) (*Announcer, error) {
	opts = opts.withDefaults()
	if opts.Port < 0 {
		return nil, fmt.Errorf("invalid port %d", opts.Port)
	}

	text := chunkAdvertisement(opts.Advertisement)

	server, err := zeroconf.Register(opts.Instance, opts.Service, opts.Domain, opts.Port, text, nil)
	if err != nil {
		return nil, err
	}
	return &Announcer{server: server}, nil
}

// Stop removes the advertisement. Safe to call more than once.
func (a *Announcer) Stop() {
	a.once.Do(func() {
		if a.server != nil {
			a.server.Shutdown()
		}
	})
}

func chunkAdvertisement(adv []byte) []string {
	if len(adv) == 0 {
		return []string{"adv="}
	}
	s := string(adv)
	var out []string
	for i := 0; i < len(s); i += txtChunkSize {
		end := i + txtChunkSize
		if end > len(s) {
			end = len(s)
		}
		out = append(out, fmt.Sprintf("adv%d=%s", i/txtChunkSize, s[i:end]))
	}
	return out
}

func (o AnnounceOptions) withDefaults() AnnounceOptions {
	if o.Service == "" {
		o.Service = defaultService
	}
	if o.Domain == "" {
		o.Domain = defaultDomain
	}
	if o.Instance == "" {
		if hostname, _ := os.Hostname(); hostname != "" {
			o.Instance = hostname
		} else {
			o.Instance = "cote-node"
		}
	}
	return o
}
