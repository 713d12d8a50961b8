package reverie

import (
	"context"
	"time"
)

// ActionKind is the closed vocabulary of things a scene can ask the host
// runtime to do.
type ActionKind string

const (
	ActionInit               ActionKind = "scene:init"
	ActionSetBackground      ActionKind = "scene:setBackground"
	ActionJumpTo             ActionKind = "scene:jumpTo"
	ActionSleep              ActionKind = "scene:sleep"
	ActionSetTransition      ActionKind = "scene:setTransition"
	ActionApplyTransition    ActionKind = "scene:applyTransition"
	ActionSetBackgroundMusic ActionKind = "scene:setBackgroundMusic"
	ActionPreUnmount         ActionKind = "scene:preUnmount"
	ActionExit               ActionKind = "scene:exit"
)

var actionKinds = map[ActionKind]bool{
	ActionInit:               true,
	ActionSetBackground:      true,
	ActionJumpTo:             true,
	ActionSleep:              true,
	ActionSetTransition:      true,
	ActionApplyTransition:    true,
	ActionSetBackgroundMusic: true,
	ActionPreUnmount:         true,
	ActionExit:               true,
}

// Valid reports whether k belongs to the vocabulary.
func (k ActionKind) Valid() bool { return actionKinds[k] }

// ContentNode holds an action's arguments under a unique id, so every
// action is addressable for save and rollback replay.
type ContentNode struct {
	id      string
	content []any
}

// NewContentNode creates a node holding a copy of content.
func NewContentNode(id string, content ...any) *ContentNode {
	return &ContentNode{id: id, content: append([]any(nil), content...)}
}

// ID returns the node id.
func (n *ContentNode) ID() string { return n.id }

// Content returns a copy of the argument list.
func (n *ContentNode) Content() []any {
	return append([]any(nil), n.content...)
}

// Arg returns argument i, or nil when out of range.
func (n *ContentNode) Arg(i int) any {
	if i < 0 || i >= len(n.content) {
		return nil
	}
	return n.content[i]
}

// SceneRef is a non-owning reference to a scene. Resolve it through a
// SceneRegistry.
type SceneRef struct {
	ID   string
	Name string
}

// Action is an immutable unit of narrative effect.
type Action struct {
	callee  SceneRef
	kind    ActionKind
	content *ContentNode
}

// NewAction builds an action for callee.
func NewAction(callee SceneRef, kind ActionKind, content *ContentNode) Action {
	return Action{callee: callee, kind: kind, content: content}
}

// Callee returns the owning scene reference.
func (a Action) Callee() SceneRef { return a.callee }

// Kind returns the action kind.
func (a Action) Kind() ActionKind { return a.kind }

// Content returns the argument node.
func (a Action) Content() *ContentNode { return a.content }

// ID returns the content node id, or "" for an action without content.
func (a Action) ID() string {
	if a.content == nil {
		return ""
	}
	return a.content.id
}

// --- Payload types ---

// Awaitable is anything a sleep can wait on.
type Awaitable interface {
	Wait(ctx context.Context) error
}

// SleepContent is the payload of scene:sleep: exactly one of a duration, a
// channel that closes when done, or an Awaitable.
type SleepContent struct {
	Duration  time.Duration
	Signal    <-chan struct{}
	Awaitable Awaitable
}

// Wait blocks until the sleep condition is met or ctx is done.
func (s SleepContent) Wait(ctx context.Context) error {
	switch {
	case s.Awaitable != nil:
		return s.Awaitable.Wait(ctx)
	case s.Signal != nil:
		select {
		case <-s.Signal:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	case s.Duration > 0:
		t := time.NewTimer(s.Duration)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return ctx.Err()
}

// MusicChange is the payload of scene:setBackgroundMusic.
type MusicChange struct {
	Sound *Sound // nil stops the music
	Fade  time.Duration
}

// --- Flattening ---

// FlattenActions flattens Action, []Action and [][]Action arguments into
// one list, preserving order. Deeper nesting is not supported, matching the
// two-level branch arrays produced by conditions and menus.
func FlattenActions(items ...any) []Action {
	out := []Action{}
	for _, it := range items {
		switch v := it.(type) {
		case Action:
			out = append(out, v)
		case []Action:
			out = append(out, v...)
		case [][]Action:
			for _, inner := range v {
				out = append(out, inner...)
			}
		}
	}
	return out
}
