package worker

import (
	"fmt"

	"github.com/tellofleet/sim/internal/dispatcher"
	"github.com/tellofleet/sim/internal/model"
)

// Fleet lifecycle keywords handled by the publisher.
const (
	EventAnnounce = "announce"
	EventWithdraw = "withdraw"
)

// RegisterHandlers registers the fleet lifecycle handlers with the
// dispatcher. Both are buffered so fleet operations never block on a
// slow coordinator.
func (p *Publisher) RegisterHandlers(d *dispatcher.Dispatcher) {
	d.Register(EventAnnounce, p.handleAnnounce, dispatcher.Buffered(64), dispatcher.Logged())
	d.Register(EventWithdraw, p.handleWithdraw, dispatcher.Buffered(64), dispatcher.Logged())
}

func (p *Publisher) handleAnnounce(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(model.Snapshot)
	if !ok {
		return nil, fmt.Errorf("announce payload is %T, want model.Snapshot", e.Payload)
	}

	if err := p.backend.AddDevice(s); err != nil {
		return nil, fmt.Errorf("failed to announce %s: %w", s.ID, err)
	}
	return nil, nil
}

func (p *Publisher) handleWithdraw(e dispatcher.Event) (any, error) {
	id, ok := e.Payload.(string)
	if !ok {
		return nil, fmt.Errorf("withdraw payload is %T, want string", e.Payload)
	}

	if err := p.backend.RemoveDevice(id); err != nil {
		return nil, fmt.Errorf("failed to withdraw %s: %w", id, err)
	}
	return nil, nil
}
