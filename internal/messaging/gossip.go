package messaging

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	libp2p "github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	mdns "github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	ma "github.com/multiformats/go-multiaddr"
	"github.com/rs/zerolog"
)

// GossipOptions configures the libp2p transport.
type GossipOptions struct {
	ListenAddrs     []string
	Bootstrap       []string
	Rendezvous      string
	EnableMDNS      bool
	IdentityKeyFile string
}

// gossipEnvelope is the wire form of a message on a gossip topic.
type gossipEnvelope struct {
	ID         string            `json:"id"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Data       json.RawMessage   `json:"data"`
	Timestamp  time.Time         `json:"timestamp"`
}

// GossipPubSub publishes over libp2p gossipsub. Each topic is joined once.
type GossipPubSub struct {
	ctx    context.Context
	cancel context.CancelFunc

	host    host.Host
	ps      *pubsub.PubSub
	handles *Handles[*pubsub.Topic]
	log     zerolog.Logger

	subsMu sync.Mutex
	nextID int
	subs   map[int]func()
}

func NewGossipPubSub(parent context.Context, opts GossipOptions, log zerolog.Logger) (*GossipPubSub, error) {
	ctx, cancel := context.WithCancel(parent)
	log = log.With().Str("transport", "gossip").Logger()

	listenAddrs := make([]ma.Multiaddr, 0, len(opts.ListenAddrs))
	for _, s := range opts.ListenAddrs {
		if s == "" {
			continue
		}
		a, err := ma.NewMultiaddr(s)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid listen multiaddr %q: %w", s, err)
		}
		listenAddrs = append(listenAddrs, a)
	}
	if len(listenAddrs) == 0 {
		a, _ := ma.NewMultiaddr("/ip4/0.0.0.0/tcp/0")
		listenAddrs = append(listenAddrs, a)
	}

	hostOpts := []libp2p.Option{libp2p.ListenAddrs(listenAddrs...)}
	if opts.IdentityKeyFile != "" {
		key, err := loadOrCreateIdentityKey(opts.IdentityKeyFile)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("load identity key: %w", err)
		}
		hostOpts = append(hostOpts, libp2p.Identity(key))
	}

	h, err := libp2p.New(hostOpts...)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create host: %w", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		cancel()
		return nil, fmt.Errorf("create gossipsub: %w", err)
	}

	g := &GossipPubSub{
		ctx:    ctx,
		cancel: cancel,
		host:   h,
		ps:     ps,
		log:    log,
		subs:   make(map[int]func()),
	}
	g.handles = NewHandles("gossip", func(ctx context.Context, name string) (*pubsub.Topic, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return g.ps.Join(name)
	})

	if opts.EnableMDNS {
		service := mdns.NewMdnsService(h, opts.Rendezvous, &mdnsNotifee{host: h, log: log})
		if err := service.Start(); err != nil {
			log.Warn().Err(err).Msg("mdns start failed")
		}
	}

	for _, raw := range opts.Bootstrap {
		if raw == "" {
			continue
		}
		addr, err := ma.NewMultiaddr(raw)
		if err != nil {
			log.Warn().Err(err).Str("addr", raw).Msg("skip bootstrap addr")
			continue
		}
		info, err := peer.AddrInfoFromP2pAddr(addr)
		if err != nil {
			log.Warn().Err(err).Str("addr", raw).Msg("skip bootstrap addr")
			continue
		}
		if err := h.Connect(ctx, *info); err != nil {
			log.Warn().Err(err).Str("peer", info.ID.String()).Msg("bootstrap connect failed")
		} else {
			log.Info().Str("peer", info.ID.String()).Msg("connected bootstrap peer")
		}
	}

	log.Info().Str("peer_id", h.ID().String()).Msg("gossip host started")
	return g, nil
}

func (g *GossipPubSub) Name() string { return "gossip" }

func (g *GossipPubSub) Publish(ctx context.Context, topic string, data []byte, attrs map[string]string) (string, error) {
	t, err := g.handles.Get(ctx, topic)
	if err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}

	id := uuid.NewString()
	raw, err := encodeEnvelope(id, data, attrs)
	if err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}
	if err := t.Publish(ctx, raw); err != nil {
		return "", &PublishError{Topic: topic, Err: err}
	}
	return id, nil
}

func (g *GossipPubSub) Subscribe(ctx context.Context, topic string) (<-chan Delivery, func(), error) {
	t, err := g.handles.Get(ctx, topic)
	if err != nil {
		return nil, nil, err
	}
	sub, err := t.Subscribe()
	if err != nil {
		return nil, nil, err
	}

	out := make(chan Delivery, 64)
	subCtx, subCancel := context.WithCancel(g.ctx)
	go func() {
		defer close(out)
		for {
			msg, err := sub.Next(subCtx)
			if err != nil {
				return
			}
			d, err := decodeEnvelope(topic, msg.Data)
			if err != nil {
				g.log.Warn().Err(err).Str("topic", topic).Msg("dropping malformed envelope")
				continue
			}
			select {
			case out <- d:
			case <-subCtx.Done():
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	g.subsMu.Lock()
	id := g.nextID
	g.nextID++
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.subsMu.Lock()
			delete(g.subs, id)
			g.subsMu.Unlock()
			subCancel()
			sub.Cancel()
		})
	}
	g.subs[id] = cancel
	g.subsMu.Unlock()
	return out, cancel, nil
}

func (g *GossipPubSub) Ping(context.Context) error {
	if g.ctx.Err() != nil {
		return errors.New("gossip host closed")
	}
	return nil
}

func (g *GossipPubSub) PeerID() string {
	return g.host.ID().String()
}

// Addrs returns the dialable /p2p/ addresses of this host, usable as
// bootstrap entries for other peers.
func (g *GossipPubSub) Addrs() []string {
	info := peer.AddrInfo{ID: g.host.ID(), Addrs: g.host.Addrs()}
	addrs, err := peer.AddrInfoToP2pAddrs(&info)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.String())
	}
	return out
}

// Close cancels subscriptions before leaving topics; pubsub refuses to close
// a topic that still has subscribers or whose router has stopped.
func (g *GossipPubSub) Close() error {
	g.subsMu.Lock()
	cancels := make([]func(), 0, len(g.subs))
	for _, c := range g.subs {
		cancels = append(cancels, c)
	}
	g.subsMu.Unlock()
	for _, c := range cancels {
		c()
	}

	err := g.handles.Close(func(_ string, t *pubsub.Topic) error {
		return t.Close()
	})
	g.cancel()
	return errors.Join(err, g.host.Close())
}

func encodeEnvelope(id string, data []byte, attrs map[string]string) ([]byte, error) {
	if !json.Valid(data) {
		return nil, errors.New("gossip payload must be JSON")
	}
	return json.Marshal(gossipEnvelope{
		ID:         id,
		Attributes: attrs,
		Data:       json.RawMessage(data),
		Timestamp:  time.Now().UTC(),
	})
}

func decodeEnvelope(topic string, raw []byte) (Delivery, error) {
	var env gossipEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Delivery{}, err
	}
	if env.ID == "" {
		return Delivery{}, errors.New("envelope without id")
	}
	return Delivery{
		ID:         env.ID,
		Topic:      topic,
		Attributes: env.Attributes,
		Data:       []byte(env.Data),
		Timestamp:  env.Timestamp,
	}, nil
}

type mdnsNotifee struct {
	host host.Host
	log  zerolog.Logger
}

func (n *mdnsNotifee) HandlePeerFound(info peer.AddrInfo) {
	if err := n.host.Connect(context.Background(), info); err != nil {
		n.log.Warn().Err(err).Str("peer", info.ID.String()).Msg("mdns connect failed")
	}
}

func loadOrCreateIdentityKey(path string) (crypto.PrivKey, error) {
	if b, err := os.ReadFile(path); err == nil && len(b) > 0 {
		key, err := crypto.UnmarshalPrivateKey(b)
		if err != nil {
			return nil, fmt.Errorf("unmarshal private key: %w", err)
		}
		return key, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir key dir: %w", err)
	}
	key, _, err := crypto.GenerateEd25519Key(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate ed25519 key: %w", err)
	}
	raw, err := crypto.MarshalPrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("marshal private key: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return nil, fmt.Errorf("write private key: %w", err)
	}
	return key, nil
}
