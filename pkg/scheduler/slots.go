package scheduler

import (
	"context"
	"sync"

	"github.com/openveritas/veritas/pkg/store"
)

// ExclusiveSlots are slot pairs that cannot run concurrently on the same
// worker pool — a gpu job and a browser_headful job contend for the same
// machine-level resource (a GPU-backed browser render).
var ExclusiveSlots = [][2]store.JobSlot{
	{store.SlotGPU, store.SlotBrowserHeadful},
}

// singleHolderSlots have exactly one concurrent holder at a time, not just
// mutual exclusion against their exclusive-pair partner.
var singleHolderSlots = map[store.JobSlot]bool{
	store.SlotGPU:            true,
	store.SlotBrowserHeadful: true,
}

// SlotGate tracks in-flight slot usage for mutual exclusion and per-domain
// budgeting, backed by the store's live job counts so it stays correct
// across process restarts without its own persisted state.
type SlotGate struct {
	mu                 sync.Mutex
	store              *store.Store
	perDomainLimit     int
	networkClientLimit int
}

// NewSlotGate builds a SlotGate with the configured per-domain and overall
// concurrency limits for the network_client slot.
func NewSlotGate(s *store.Store, perDomainLimit, networkClientLimit int) *SlotGate {
	if perDomainLimit <= 0 {
		perDomainLimit = 1
	}
	if networkClientLimit <= 0 {
		networkClientLimit = 1
	}
	return &SlotGate{store: s, perDomainLimit: perDomainLimit, networkClientLimit: networkClientLimit}
}

// CanClaim reports whether a job in the given slot (and, for network_client,
// targeting the given domain) may be claimed right now.
func (g *SlotGate) CanClaim(ctx context.Context, slot store.JobSlot, domain string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if singleHolderSlots[slot] {
		active, err := g.store.CountActiveJobsBySlot(ctx, slot)
		if err != nil {
			return false, err
		}
		if active > 0 {
			return false, nil
		}
	}

	for _, pair := range ExclusiveSlots {
		var other store.JobSlot
		switch slot {
		case pair[0]:
			other = pair[1]
		case pair[1]:
			other = pair[0]
		default:
			continue
		}
		active, err := g.store.CountActiveJobsBySlot(ctx, other)
		if err != nil {
			return false, err
		}
		if active > 0 {
			return false, nil
		}
	}

	if slot == store.SlotNetworkClient {
		active, err := g.store.CountActiveJobsBySlot(ctx, store.SlotNetworkClient)
		if err != nil {
			return false, err
		}
		if active >= g.networkClientLimit {
			return false, nil
		}
		if domain != "" {
			activeDomain, err := g.store.CountActiveJobsByDomain(ctx, domain)
			if err != nil {
				return false, err
			}
			if activeDomain >= g.perDomainLimit {
				return false, nil
			}
		}
	}

	return true, nil
}
