// Package dnd translates raw pointer and touch input into the three intents
// the coordinator understands: move, reorder and bulk-move. Activation is
// device-appropriate: pointers need a small travel distance, touches need a
// hold so the gesture can still become a scroll.
package dnd

import (
	"math"
	"time"
)

// Activation defaults.
const (
	DefaultActivationDistance = 8.0                    // px of pointer travel
	DefaultHoldDelay          = 400 * time.Millisecond // touch long-press
	DefaultTouchTolerance     = 5.0                    // px of drift allowed during hold
)

// PointerKind distinguishes the input device.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
)

// Point is a screen coordinate in pixels.
type Point struct {
	X, Y float64
}

func distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DragItem identifies the task card a gesture started on.
type DragItem struct {
	TaskID  string
	StageID string
	Index   int
}

type sensorState int

const (
	stateIdle sensorState = iota
	statePending
	stateActive
)

// SensorConfig tunes activation heuristics. Zero values fall back to the
// defaults above.
type SensorConfig struct {
	ActivationDistance float64
	HoldDelay          time.Duration
	TouchTolerance     float64
	// Haptic, when set, fires on touch activation.
	Haptic func()
	// Now is the clock; tests inject a fake.
	Now func() time.Time
}

func (c SensorConfig) withDefaults() SensorConfig {
	if c.ActivationDistance <= 0 {
		c.ActivationDistance = DefaultActivationDistance
	}
	if c.HoldDelay <= 0 {
		c.HoldDelay = DefaultHoldDelay
	}
	if c.TouchTolerance <= 0 {
		c.TouchTolerance = DefaultTouchTolerance
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Sensor is the activation state machine for a single gesture. The host
// feeds it Begin/Move/Tick/End and asks Active to know whether a drag is in
// progress. Hosts with touch input call Tick periodically during the hold.
type Sensor struct {
	cfg   SensorConfig
	lock  *ScrollLock
	state sensorState

	kind    PointerKind
	item    DragItem
	origin  Point
	current Point
	started time.Time
}

// NewSensor creates a sensor. lock may be nil when the host manages scroll
// itself.
func NewSensor(cfg SensorConfig, lock *ScrollLock) *Sensor {
	return &Sensor{cfg: cfg.withDefaults(), lock: lock}
}

// Begin starts tracking a gesture on the given item. Gestures starting on
// interactive child elements (buttons, inputs, links) never activate.
func (s *Sensor) Begin(kind PointerKind, item DragItem, at Point, interactive bool) {
	if s.state != stateIdle {
		s.cancel()
	}
	if interactive {
		return
	}
	s.state = statePending
	s.kind = kind
	s.item = item
	s.origin = at
	s.current = at
	s.started = s.cfg.Now()
}

// Move updates the gesture position. For pointers it activates once travel
// exceeds the activation distance. For touches, drift beyond the tolerance
// during the hold cancels the pending drag so the page scrolls instead.
func (s *Sensor) Move(at Point) {
	s.current = at
	switch s.state {
	case statePending:
		travel := distance(s.origin, at)
		if s.kind == PointerMouse {
			if travel >= s.cfg.ActivationDistance {
				s.activate()
			}
			return
		}
		if travel > s.cfg.TouchTolerance {
			s.cancel()
			return
		}
		s.tickTouch()
	case stateActive:
		// position only; drop targets are resolved by the host
	}
}

// Tick gives the sensor a chance to complete a touch hold. Hosts call it on
// their frame timer while a touch is pending.
func (s *Sensor) Tick() {
	if s.state != statePending || s.kind != PointerTouch {
		return
	}
	s.tickTouch()
}

func (s *Sensor) tickTouch() {
	if s.cfg.Now().Sub(s.started) >= s.cfg.HoldDelay {
		s.activate()
		if s.cfg.Haptic != nil {
			s.cfg.Haptic()
		}
	}
}

func (s *Sensor) activate() {
	s.state = stateActive
	if s.lock != nil {
		s.lock.Acquire()
	}
}

// End finishes the gesture. It returns the dragged item and true when a
// drag was active; a pending (never-activated) gesture ends as a no-op.
func (s *Sensor) End() (DragItem, bool) {
	active := s.state == stateActive
	item := s.item
	s.cancel()
	return item, active
}

// Cancel aborts the gesture with no state change.
func (s *Sensor) Cancel() {
	s.cancel()
}

func (s *Sensor) cancel() {
	if s.state == stateActive && s.lock != nil {
		s.lock.Release()
	}
	s.state = stateIdle
	s.item = DragItem{}
}

// Active reports whether a drag is in progress.
func (s *Sensor) Active() bool { return s.state == stateActive }

// Pending reports whether a gesture is tracked but not yet activated.
func (s *Sensor) Pending() bool { return s.state == statePending }

// Position returns the gesture's latest coordinate.
func (s *Sensor) Position() Point { return s.current }
