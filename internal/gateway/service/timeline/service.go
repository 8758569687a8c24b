package timeline

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"storyweave/internal/canvas"
	"storyweave/internal/gateway/repository/universe"
	tl "storyweave/internal/timeline"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Contract is one timeline contract as seen by the gateway.
type Contract interface {
	GetFullGraph(ctx context.Context) (tl.Snapshot, error)
	GetLeaves(ctx context.Context) ([]uint64, error)
	CreateNode(ctx context.Context, link, plot string, previousID uint64) (uint64, error)
	Creator() string
}

// Dialer binds a Contract to an address.
type Dialer func(address string) (Contract, error)

type Universes interface {
	Get(ctx context.Context, id string) (universe.Universe, error)
}

type Config struct {
	SnapshotTTL time.Duration
	MaxCached   int
}

func DefaultConfig() Config {
	return Config{SnapshotTTL: 15 * time.Second, MaxCached: 128}
}

// Service resolves universes to contracts and serves their graphs. Snapshots
// are cached per contract and dropped after every write through this service.
type Service struct {
	universes Universes
	dial      Dialer

	mu        sync.Mutex
	contracts map[string]Contract
	snapshots *expirable.LRU[string, tl.Snapshot]
	// creators records nodes written through this gateway, keyed by
	// address/id.
	creators *expirable.LRU[string, string]
}

func New(universes Universes, dial Dialer, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = def.SnapshotTTL
	}
	if cfg.MaxCached <= 0 {
		cfg.MaxCached = def.MaxCached
	}
	return &Service{
		universes: universes,
		dial:      dial,
		contracts: make(map[string]Contract),
		snapshots: expirable.NewLRU[string, tl.Snapshot](cfg.MaxCached, nil, cfg.SnapshotTTL),
		creators:  expirable.NewLRU[string, string](4096, nil, 24*time.Hour),
	}
}

func (s *Service) contract(ctx context.Context, universeID string) (string, Contract, error) {
	u, err := s.universes.Get(ctx, strings.TrimSpace(universeID))
	if err != nil {
		return "", nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contracts[u.Contract]; ok {
		return u.Contract, c, nil
	}
	c, err := s.dial(u.Contract)
	if err != nil {
		return "", nil, fmt.Errorf("bind contract %s: %w", u.Contract, err)
	}
	s.contracts[u.Contract] = c
	return u.Contract, c, nil
}

// Snapshot returns the contract graph of a universe, from cache when fresh.
func (s *Service) Snapshot(ctx context.Context, universeID string) (tl.Snapshot, error) {
	addr, c, err := s.contract(ctx, universeID)
	if err != nil {
		return tl.Snapshot{}, err
	}
	if snap, ok := s.snapshots.Get(addr); ok {
		return snap, nil
	}
	snap, err := c.GetFullGraph(ctx)
	if err != nil {
		return tl.Snapshot{}, err
	}
	for i := range snap.Nodes {
		if who, ok := s.creators.Get(creatorKey(addr, snap.Nodes[i].ID)); ok {
			snap.Nodes[i].Creator = who
		}
	}
	s.snapshots.Add(addr, snap)
	return snap, nil
}

// Graph builds the flow graph of a universe. An empty contract yields the
// placeholder graph and placeholder=true.
func (s *Service) Graph(ctx context.Context, universeID string, opts tl.Options) (tl.Graph, bool, error) {
	snap, err := s.Snapshot(ctx, universeID)
	if err != nil {
		return tl.Graph{}, false, err
	}
	g, placeholder := tl.BuildOrPlaceholder(snap, opts)
	for _, is := range g.Issues {
		log.Printf("timeline: universe=%s issue=%s node=%d index=%d %s", universeID, is.Kind, is.NodeID, is.Index, is.Detail)
	}
	return g, placeholder, nil
}

func (s *Service) Leaves(ctx context.Context, universeID string) ([]uint64, error) {
	_, c, err := s.contract(ctx, universeID)
	if err != nil {
		return nil, err
	}
	return c.GetLeaves(ctx)
}

// CreateNode appends a node and invalidates the cached snapshot.
func (s *Service) CreateNode(ctx context.Context, universeID, link, plot string, previousID uint64) (uint64, error) {
	addr, c, err := s.contract(ctx, universeID)
	if err != nil {
		return 0, err
	}
	id, err := c.CreateNode(ctx, link, plot, previousID)
	s.snapshots.Remove(addr)
	if err != nil {
		return 0, err
	}
	if who := c.Creator(); who != "" {
		s.creators.Add(creatorKey(addr, id), who)
	}
	log.Printf("timeline: universe=%s created node=%d parent=%d", universeID, id, previousID)
	return id, nil
}

// Writer binds CreateNode to one universe.
func (s *Service) Writer(universeID string) *Writer {
	return &Writer{svc: s, universe: universeID}
}

type Writer struct {
	svc      *Service
	universe string
}

func (w *Writer) CreateNode(ctx context.Context, link, plot string, previousID uint64) (uint64, error) {
	return w.svc.CreateNode(ctx, w.universe, link, plot, previousID)
}

// SubmitCanvas writes every draft of state in parent-first order. Draft
// parents are resolved to the ids returned by earlier writes. On failure the
// ids written so far are returned with the error.
func (s *Service) SubmitCanvas(ctx context.Context, universeID string, state canvas.State) (map[string]uint64, error) {
	writes, err := state.PendingWrites()
	if err != nil {
		return nil, err
	}
	created := make(map[string]uint64, len(writes))
	for _, w := range writes {
		parent := w.ParentNodeID
		if w.ParentDraftID != "" {
			id, ok := created[w.ParentDraftID]
			if !ok {
				return created, fmt.Errorf("%w: parent draft %s not written", canvas.ErrUnknownNode, w.ParentDraftID)
			}
			parent = id
		}
		id, err := s.CreateNode(ctx, universeID, w.Link, w.Plot, parent)
		if err != nil {
			return created, fmt.Errorf("draft %s: %w", w.DraftID, err)
		}
		created[w.DraftID] = id
	}
	return created, nil
}

func creatorKey(addr string, id uint64) string {
	return addr + "/" + tl.Key(id)
}
