package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/telemetry"
)

// Broadcaster pushes the state line of every device to the last
// controller that commanded it, on the fixed state port. Devices nobody
// has commanded yet stream to loopback so local tools can listen in.
type Broadcaster struct {
	store     *cache.SnapshotStore
	book      *cache.AddrBook
	conn      *net.UDPConn
	statePort int
	interval  time.Duration
	sent      cache.SafeCounter
	log       *slog.Logger
}

// NewBroadcaster opens the shared send socket on an ephemeral port.
func NewBroadcaster(store *cache.SnapshotStore, book *cache.AddrBook, statePort int, rateHz float64, log *slog.Logger) (*Broadcaster, error) {
	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open state socket: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	interval := 100 * time.Millisecond
	if rateHz > 0 {
		interval = time.Duration(float64(time.Second) / rateHz)
	}
	return &Broadcaster{
		store:     store,
		book:      book,
		conn:      conn,
		statePort: statePort,
		interval:  interval,
		log:       log,
	}, nil
}

// Run broadcasts until the context is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	defer b.conn.Close()
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	b.log.Info("state broadcaster up", "state_port", b.statePort, "interval", b.interval)
	for {
		select {
		case <-ctx.Done():
			b.log.Info("state broadcaster down")
			return
		case <-ticker.C:
			for _, s := range b.store.All() {
				pkt := []byte(telemetry.StatePacket(s))
				if _, err := b.conn.WriteToUDP(pkt, b.target(s.ID)); err != nil {
					b.log.Error("state send failed", "device", s.ID, "error", err)
					continue
				}
				b.sent.Inc()
			}
		}
	}
}

// Sent returns the total number of state packets sent.
func (b *Broadcaster) Sent() int {
	return b.sent.Value()
}

func (b *Broadcaster) target(id string) *net.UDPAddr {
	if addr, ok := b.book.Get(id); ok {
		return &net.UDPAddr{IP: addr.IP, Port: b.statePort}
	}
	return &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: b.statePort}
}
