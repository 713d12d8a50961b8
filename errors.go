package reverie

import (
	"errors"
	"fmt"
)

var (
	// ErrSceneExited is raised when a builder method mutates a scene that
	// already queued its exit action.
	ErrSceneExited = errors.New("scene already exited")

	// ErrNoElement means an animation was started against a host element
	// that is not attached.
	ErrNoElement = errors.New("no element to animate")

	// ErrNoDriver means an animation was started without a host driver.
	ErrNoDriver = errors.New("no animation driver")

	// ErrNoActiveScene means scene-relative transform math was requested
	// before any scene was activated.
	ErrNoActiveScene = errors.New("no active scene, call Scene.Activate first")

	// ErrInvalidPosition is returned for position descriptors that match no
	// recognized shape.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrUnknownSrcType is returned when registering a resource with a type
	// tag outside image, video, audio.
	ErrUnknownSrcType = errors.New("unknown src type")

	// ErrUnknownAction is returned by the runtime for an action kind outside
	// the closed vocabulary.
	ErrUnknownAction = errors.New("unknown action kind")

	// ErrUnknownScene is returned when an action's callee cannot be resolved.
	ErrUnknownScene = errors.New("unknown scene")
)

// SceneError reports a misuse of a specific scene.
type SceneError struct {
	Scene string // scene name
	Op    string // builder method
	Err   error
}

func (e *SceneError) Error() string {
	return fmt.Sprintf("reverie: %s on scene %q: %v", e.Op, e.Scene, e.Err)
}

func (e *SceneError) Unwrap() error { return e.Err }

// SrcError reports a rejected resource registration.
type SrcError struct {
	Type SrcType
	Err  error
}

func (e *SrcError) Error() string {
	return fmt.Sprintf("reverie: register src %q: %v", e.Type, e.Err)
}

func (e *SrcError) Unwrap() error { return e.Err }

// ErrSelfJump is raised when a scene jumps to itself.
var ErrSelfJump = errors.New("scene cannot jump to itself")

// ErrActionContent is returned when an action's content does not carry the
// argument its kind requires.
var ErrActionContent = errors.New("malformed action content")
