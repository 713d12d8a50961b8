package reverie

import (
	"fmt"
	"sync"
)

// SceneRegistry resolves SceneRefs to live scenes. Actions only carry refs,
// so the registry is the single place that holds scenes strongly.
type SceneRegistry struct {
	mu     sync.RWMutex
	byID   map[string]*Scene
	byName map[string]*Scene
}

// NewSceneRegistry creates an empty registry.
func NewSceneRegistry() *SceneRegistry {
	return &SceneRegistry{
		byID:   make(map[string]*Scene),
		byName: make(map[string]*Scene),
	}
}

// Add registers s. A later scene with the same name shadows the earlier one
// for name lookups.
func (r *SceneRegistry) Add(s *Scene) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[s.id] = s
	r.byName[s.name] = s
}

// Remove unregisters s and fires its remove event. Actions still referring
// to s no longer resolve.
func (r *SceneRegistry) Remove(s *Scene) bool {
	r.mu.Lock()
	_, ok := r.byID[s.id]
	delete(r.byID, s.id)
	if r.byName[s.name] == s {
		delete(r.byName, s.name)
	}
	r.mu.Unlock()
	if ok {
		Emit(s.Events(), EventSceneRemove, struct{}{})
	}
	return ok
}

// Lookup resolves ref by id.
func (r *SceneRegistry) Lookup(ref SceneRef) (*Scene, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: %q (no registry)", ErrUnknownScene, ref.Name)
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %q (id %s)", ErrUnknownScene, ref.Name, ref.ID)
	}
	return s, nil
}

// ByName returns the scene registered under name.
func (r *SceneRegistry) ByName(name string) (*Scene, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byName[name]
	return s, ok
}

// Len returns the number of registered scenes.
func (r *SceneRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Each calls fn for every scene, in no particular order.
func (r *SceneRegistry) Each(fn func(*Scene)) {
	r.mu.RLock()
	scenes := make([]*Scene, 0, len(r.byID))
	for _, s := range r.byID {
		scenes = append(scenes, s)
	}
	r.mu.RUnlock()
	for _, s := range scenes {
		fn(s)
	}
}
