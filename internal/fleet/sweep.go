package fleet

import (
	"context"
	"time"
)

// Run drives the periodic sweeps until ctx is cancelled, then winds the
// whole fleet down.
func (m *Manager) Run(ctx context.Context) {
	dead := time.NewTicker(m.cfg.DeadSweepInterval)
	defer dead.Stop()
	near := time.NewTicker(m.cfg.NearMissInterval)
	defer near.Stop()

	m.log.Info("fleet sweeps up",
		"deadSweep", m.cfg.DeadSweepInterval,
		"nearMissSweep", m.cfg.NearMissInterval)

	for {
		select {
		case <-ctx.Done():
			m.shutdown()
			return
		case <-dead.C:
			m.sweepDead()
		case <-near.C:
			m.sweepNearMiss()
		}
	}
}

// sweepDead reaps devices whose engine loop has exited underneath us,
// so their ports and coordinator entries are not left dangling.
func (m *Manager) sweepDead() {
	m.mu.Lock()
	var gone []string
	for id, rec := range m.devices {
		select {
		case <-rec.engine.Done():
			gone = append(gone, id)
		default:
		}
	}
	m.mu.Unlock()

	for _, id := range gone {
		m.log.Warn("device engine died, reaping", "device", id)
		if err := m.Remove(id); err != nil {
			m.log.Error("failed to reap dead device", "device", id, "error", err)
		}
	}
}

// sweepNearMiss flags every airborne pair closer than the minimum
// separation. Pairs parked on the ground are left alone.
func (m *Manager) sweepNearMiss() {
	snaps := m.deps.Store.All()
	flagged := make(map[string]bool, len(snaps))
	for i := 0; i < len(snaps); i++ {
		for j := i + 1; j < len(snaps); j++ {
			a, b := snaps[i], snaps[j]
			if !a.IsFlying && !b.IsFlying {
				continue
			}
			if a.Position.Distance(b.Position) < m.deps.Sim.MinSeparation {
				flagged[a.ID] = true
				flagged[b.ID] = true
			}
		}
	}

	m.mu.Lock()
	for id, rec := range m.devices {
		rec.engine.SetNearMiss(flagged[id])
	}
	m.mu.Unlock()
}

// shutdown stops every device and waits for its socket to release. No
// withdraw events are sent; the coordinator keeps its last state.
func (m *Manager) shutdown() {
	m.mu.Lock()
	recs := make([]*record, 0, len(m.devices))
	for _, rec := range m.devices {
		recs = append(recs, rec)
	}
	m.devices = make(map[string]*record)
	m.ports = make(map[int]string)
	m.mu.Unlock()

	for _, rec := range recs {
		rec.cancel()
		<-rec.engine.Done()
		<-rec.listener.Done()
	}
	m.log.Info("fleet down")
}
