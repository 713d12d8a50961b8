package reverie

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugMode_PanicsOnUnknownAction(t *testing.T) {
	SetDebugMode(true)
	defer SetDebugMode(false)
	require.True(t, DebugMode())

	reg := NewSceneRegistry()
	s := newTestScene(reg, "s", SceneConfig{})
	rt := NewRuntime(reg)
	rt.Load([]Action{NewAction(s.Ref(), ActionKind("scene:dance"), NewContentNode("x"))})

	assert.PanicsWithValue(t,
		`reverie debug: unknown action "scene:dance" from scene "s" (node x)`,
		func() { _ = rt.Run(context.Background()) })
}

func TestActionKind_Valid(t *testing.T) {
	for _, k := range []ActionKind{ActionInit, ActionExit, ActionJumpTo, ActionSetBackgroundMusic} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, ActionKind("scene:dance").Valid())
}

func TestLoggerFrom_DefaultsToDiscard(t *testing.T) {
	assert.NotNil(t, LoggerFrom(context.Background()))
	l := discardLogger.With("k", "v")
	assert.Same(t, l, LoggerFrom(WithLogger(context.Background(), l)))
}
