package ecs

import (
	"sync"

	"github.com/phanxgames/reverie"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// SceneEvent is a scene lifecycle event as seen by the ECS world.
type SceneEvent struct {
	Scene   string // scene name
	SceneID string
	Event   string // reverie event name, e.g. "event:scene.mount"
	Payload any    // Transition, Background, MusicChange or nil
}

// SceneEventType is the Donburi event type scene events are published on.
var SceneEventType = events.NewEventType[SceneEvent]()

// Bridge republishes scene events into a Donburi world.
type Bridge struct {
	world donburi.World

	mu      sync.Mutex
	handles map[string][]reverie.CallbackHandle
}

// NewDonburiBridge creates a bridge publishing into world.
func NewDonburiBridge(world donburi.World) *Bridge {
	return &Bridge{world: world, handles: make(map[string][]reverie.CallbackHandle)}
}

// Attach subscribes to every event of s. Attaching twice is a no-op.
func (b *Bridge) Attach(s *reverie.Scene) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.handles[s.ID()]; ok {
		return
	}
	d := s.Events()
	b.handles[s.ID()] = []reverie.CallbackHandle{
		forward(b, s, d, reverie.EventSceneSetTransition),
		forward(b, s, d, reverie.EventSceneApplyTransition),
		forward(b, s, d, reverie.EventSceneRemove),
		forward(b, s, d, reverie.EventSceneLoad),
		forward(b, s, d, reverie.EventSceneUnload),
		forward(b, s, d, reverie.EventSceneMount),
		forward(b, s, d, reverie.EventSceneUnmount),
		forward(b, s, d, reverie.EventScenePreUnmount),
		forward(b, s, d, reverie.EventSceneImageLoaded),
		forward(b, s, d, reverie.EventSceneSetBackground),
		forward(b, s, d, reverie.EventSceneSetBackgroundMusic),
	}
}

// Detach removes the bridge's listeners from s.
func (b *Bridge) Detach(s *reverie.Scene) {
	b.mu.Lock()
	hs := b.handles[s.ID()]
	delete(b.handles, s.ID())
	b.mu.Unlock()
	for _, h := range hs {
		h.Remove()
	}
}

// Attached returns the number of attached scenes.
func (b *Bridge) Attached() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handles)
}

func forward[P any](b *Bridge, s *reverie.Scene, d *reverie.Dispatcher, ev reverie.EventType[P]) reverie.CallbackHandle {
	name, id := s.Name(), s.ID()
	return reverie.On(d, ev, func(p P) {
		e := SceneEvent{Scene: name, SceneID: id, Event: ev.Name()}
		if _, empty := any(p).(struct{}); !empty {
			e.Payload = p
		}
		SceneEventType.Publish(b.world, e)
	})
}
