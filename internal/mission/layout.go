package mission

import (
	"sync"

	"github.com/tellofleet/sim/internal/model"
)

// Layout holds the mission pad arrangement shared by every simulated
// device.
type Layout struct {
	mu   sync.RWMutex
	pads []model.Pad
}

// NewLayout creates a Layout with the given pads. An empty layout means
// no pads exist in the scene and detection never fires.
func NewLayout(pads []model.Pad) *Layout {
	l := &Layout{}
	l.SetPads(pads)
	return l
}

// Pads returns a copy of the current pad arrangement.
func (l *Layout) Pads() []model.Pad {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.Pad, len(l.pads))
	copy(out, l.pads)
	return out
}

// PadAt looks a pad up by id.
func (l *Layout) PadAt(id int) (model.Pad, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, p := range l.pads {
		if p.ID == id {
			return p, true
		}
	}
	return model.Pad{}, false
}

// SetPads replaces the pad arrangement.
func (l *Layout) SetPads(pads []model.Pad) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pads = make([]model.Pad, len(pads))
	copy(l.pads, pads)
}

// Empty reports whether the scene has no pads at all.
func (l *Layout) Empty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.pads) == 0
}

// ReferenceLayout is the eight pad grid used by the example config and the
// tests: four pads on the ±100 corners, four on the ±200 axes.
func ReferenceLayout() []model.Pad {
	return []model.Pad{
		{ID: 1, Position: model.Vec3{X: 100, Y: 100}},
		{ID: 2, Position: model.Vec3{X: -100, Y: 100}},
		{ID: 3, Position: model.Vec3{X: 100, Y: -100}},
		{ID: 4, Position: model.Vec3{X: -100, Y: -100}},
		{ID: 5, Position: model.Vec3{Y: 200}},
		{ID: 6, Position: model.Vec3{X: 200}},
		{ID: 7, Position: model.Vec3{Y: -200}},
		{ID: 8, Position: model.Vec3{X: -200}},
	}
}
