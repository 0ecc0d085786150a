// Package transport serves the device-facing UDP protocol: one command
// listener per device plus a shared state broadcaster.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/tellofleet/sim/internal/cache"
	"github.com/tellofleet/sim/internal/device"
	"github.com/tellofleet/sim/internal/protocol"
)

const maxDatagram = 2048

// Listener serves one device's command port. Each datagram carries one
// command line and gets exactly one response datagram back.
type Listener struct {
	engine  *device.Engine
	conn    *net.UDPConn
	book    *cache.AddrBook
	handled *cache.SafeCounter
	log     *slog.Logger
	done    chan struct{}
}

// NewListener binds the device command port. Port 0 picks a free one.
func NewListener(e *device.Engine, port int, book *cache.AddrBook, handled *cache.SafeCounter, log *slog.Logger) (*Listener, error) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
	if err != nil {
		return nil, fmt.Errorf("failed to bind udp port %d: %w", port, err)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		engine:  e,
		conn:    conn,
		book:    book,
		handled: handled,
		log:     log.With("device", e.ID().ID, "port", port),
		done:    make(chan struct{}),
	}, nil
}

// Port returns the bound command port.
func (l *Listener) Port() int {
	return l.conn.LocalAddr().(*net.UDPAddr).Port
}

// Done is closed once Run has exited and the port is released.
func (l *Listener) Done() <-chan struct{} {
	return l.done
}

// Run serves datagrams until the context is cancelled, then closes the
// socket.
func (l *Listener) Run(ctx context.Context) {
	defer close(l.done)
	defer l.conn.Close()
	go func() {
		<-ctx.Done()
		l.conn.Close()
	}()

	l.log.Info("command listener up")
	buf := make([]byte, maxDatagram)
	for {
		n, raddr, err := l.conn.ReadFromUDP(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.log.Info("command listener down")
				return
			}
			l.log.Error("datagram read failed", "error", err)
			continue
		}

		line := strings.TrimSpace(string(buf[:n]))
		// Controllers on the same host sometimes loop our own state
		// packets back at the command port. Drop them silently.
		if line == "" || protocol.IsStateEcho(line) {
			continue
		}

		l.book.Set(l.engine.ID().ID, raddr)
		l.handled.Inc()

		resp, err := l.engine.HandleCommand(ctx, line, raddr.String())
		if err != nil {
			// Only shutdown paths land here; the fleet sweep reaps us.
			continue
		}
		if _, err := l.conn.WriteToUDP([]byte(resp), raddr); err != nil {
			l.log.Error("response write failed", "error", err)
		}
	}
}
