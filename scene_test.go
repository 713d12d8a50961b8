package reverie

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Construction ---

func TestNewScene_RegistersConfigResources(t *testing.T) {
	reg := NewSceneRegistry()
	music := NewSound("theme.ogg")
	s := newTestScene(reg, "intro", SceneConfig{
		Background:      ImageBackground("/bg/intro.png"),
		BackgroundMusic: music,
	})

	assert.Equal(t, "intro-1", s.ID())
	assert.True(t, s.SrcManager().IsSrcRegistered("/bg/intro.png"))
	assert.True(t, s.SrcManager().IsSrcRegistered("theme.ogg"))
	assert.Same(t, music, s.BackgroundMusic())

	got, err := reg.Lookup(s.Ref())
	require.NoError(t, err)
	assert.Same(t, s, got)
}

func TestNewScene_DefaultIDsAreUnique(t *testing.T) {
	a := NewScene("a", SceneConfig{})
	b := NewScene("b", SceneConfig{})
	assert.NotEqual(t, a.ID(), b.ID())
}

// --- Builders ---

func TestScene_ToActionsIsIdempotent(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	s.Activate().Sleep(time.Second)

	first := s.ToActions()
	assert.Equal(t, []string{"s:scene:init", "s:scene:sleep"}, kinds(first))

	second := s.ToActions()
	assert.NotNil(t, second)
	assert.Empty(t, second)
}

func TestScene_ActionIDsAreUnique(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	s.Activate().
		SetBackground(ColorBackground(ColorBlack)).
		Sleep(time.Millisecond).
		SetBackgroundMusic(NewSound("a.ogg"), 0).
		ApplyTransition(Dissolve{Duration: 100})

	seen := map[string]bool{}
	for _, a := range s.ToActions() {
		assert.False(t, seen[a.ID()], "duplicate id %s", a.ID())
		seen[a.ID()] = true
	}
	assert.Len(t, seen, 6)
}

func TestScene_BuildersDoNotTouchState(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	bg := ColorBackground(Color{R: 1, A: 1})
	s.SetBackground(bg).SetBackgroundMusic(NewSound("x.ogg"), time.Second)

	assert.Equal(t, Background{}, s.State().Background)
	assert.Nil(t, s.BackgroundMusic())

	actions := s.ToActions()
	require.Len(t, actions, 2)
	assert.Equal(t, bg, actions[0].Content().Arg(0))
	mc, ok := actions[1].Content().Arg(0).(MusicChange)
	require.True(t, ok)
	assert.Equal(t, "x.ogg", mc.Sound.Src)
	assert.Equal(t, time.Second, mc.Fade)
}

func TestScene_SetBackgroundRegistersImage(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	s.SetBackground(ImageBackground("/a.png")).SetBackground(ImageBackground("/a.png"))
	assert.Len(t, s.SrcManager().SrcByType(SrcImage), 1)
}

func TestScene_SleepVariants(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	ch := make(chan struct{})
	s.Sleep(time.Second).SleepUntil(ch)

	actions := s.ToActions()
	require.Len(t, actions, 2)
	assert.Equal(t, SleepContent{Duration: time.Second}, actions[0].Content().Arg(0))
	sc := actions[1].Content().Arg(0).(SleepContent)
	assert.NotNil(t, sc.Signal)
}

func TestScene_ApplyTransitionQueuesPair(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	s.ApplyTransition(Dissolve{Duration: 300})
	assert.Equal(t, []string{"s:scene:setTransition", "s:scene:applyTransition"}, kinds(s.ToActions()))
}

// --- Jumps ---

func TestScene_JumpToOrdering(t *testing.T) {
	tests := []struct {
		name       string
		transition Transition
		want       []string
	}{
		{
			name: "no transition",
			want: []string{
				"a:scene:setBackground",
				"a:scene:sleep",
				"a:scene:preUnmount",
				"b:scene:init",
				"b:scene:sleep",
				"a:scene:exit",
			},
		},
		{
			name:       "dissolve",
			transition: Dissolve{Duration: 200},
			want: []string{
				"a:scene:setBackground",
				"a:scene:sleep",
				"a:scene:preUnmount",
				"a:scene:setTransition",
				"a:scene:applyTransition",
				"b:scene:init",
				"b:scene:sleep",
				"a:scene:exit",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewSceneRegistry()
			a := newTestScene(reg, "a", SceneConfig{})
			b := newTestScene(reg, "b", SceneConfig{})

			a.SetBackground(ColorBackground(ColorBlack)).Sleep(time.Millisecond)
			b.Sleep(time.Millisecond)
			a.JumpTo(b, JumpConfig{Transition: tt.transition})

			assert.Equal(t, tt.want, kinds(a.ToActions()))
			assert.Empty(t, b.ToActions(), "target's pending actions were spliced")
			assert.True(t, a.Exited())
			assert.False(t, b.Exited())
		})
	}
}

func TestScene_JumpToRegistersFuture(t *testing.T) {
	reg := NewSceneRegistry()
	a := newTestScene(reg, "a", SceneConfig{})
	b := newTestScene(reg, "b", SceneConfig{})
	a.JumpTo(b, JumpConfig{})
	assert.True(t, a.SrcManager().HasFuture(b.SrcManager()))
	assert.False(t, b.SrcManager().HasFuture(a.SrcManager()))
}

func TestScene_MutationAfterExitPanics(t *testing.T) {
	reg := NewSceneRegistry()
	a := newTestScene(reg, "a", SceneConfig{})
	b := newTestScene(reg, "b", SceneConfig{})
	a.JumpTo(b, JumpConfig{})
	before := len(a.ToActions())

	builders := map[string]func(){
		"Sleep":         func() { a.Sleep(time.Second) },
		"SetBackground": func() { a.SetBackground(ColorBackground(ColorBlack)) },
		"Deactivate":    func() { a.Deactivate() },
		"JumpTo":        func() { a.JumpTo(b, JumpConfig{}) },
		"Music":         func() { a.SetBackgroundMusic(nil, 0) },
	}
	for name, fn := range builders {
		t.Run(name, func(t *testing.T) {
			err := scenePanic(t, fn)
			assert.True(t, isSceneError(err, ErrSceneExited), "got %v", err)
		})
	}
	assert.NotZero(t, before)
	assert.Empty(t, a.ToActions(), "no action queued after exit")
}

func TestScene_ActivateRearms(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	s.Deactivate()
	require.True(t, s.Exited())

	s.Activate().Sleep(time.Millisecond)
	assert.False(t, s.Exited())
	assert.Equal(t, []string{"s:scene:exit", "s:scene:init", "s:scene:sleep"}, kinds(s.ToActions()))
}

func TestScene_SelfJumpPanics(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	err := scenePanic(t, func() { s.JumpTo(s, JumpConfig{}) })
	assert.True(t, isSceneError(err, ErrSelfJump))
	assert.Empty(t, s.ToActions())
}

func TestScene_JumpToActions(t *testing.T) {
	t.Run("resolved target", func(t *testing.T) {
		reg := NewSceneRegistry()
		a := newTestScene(reg, "a", SceneConfig{})
		b := newTestScene(reg, "b", SceneConfig{})
		prepared := b.Sleep(time.Millisecond).ToActions()

		a.JumpToActions(prepared, JumpConfig{Transition: Dissolve{}})
		got := a.ToActions()
		assert.Equal(t, []string{
			"a:scene:preUnmount",
			"a:scene:setTransition",
			"a:scene:applyTransition",
			"b:scene:init",
			"a:scene:exit",
			"a:scene:jumpTo",
		}, kinds(got))
		assert.Equal(t, prepared, got[len(got)-1].Content().Arg(0))
		assert.True(t, a.Exited())
		assert.True(t, a.SrcManager().HasFuture(b.SrcManager()))
	})

	t.Run("unresolved target", func(t *testing.T) {
		a := newTestScene(NewSceneRegistry(), "a", SceneConfig{})
		stray := NewScene("stray", SceneConfig{}, WithIDs(NewCounterIDs("x")))
		prepared := stray.Sleep(time.Millisecond).ToActions()

		a.JumpToActions(prepared, JumpConfig{})
		assert.Equal(t, []string{"a:scene:preUnmount", "a:scene:jumpTo"}, kinds(a.ToActions()))
	})
}

func TestScene_TransitionSceneBackground(t *testing.T) {
	reg := NewSceneRegistry()
	a := newTestScene(reg, "a", SceneConfig{})
	b := newTestScene(reg, "b", SceneConfig{})
	a.TransitionSceneBackground(b, FadeIn{Direction: FadeFromLeft, Offset: 10})
	assert.Equal(t, []string{
		"a:scene:setTransition",
		"a:scene:applyTransition",
		"b:scene:init",
		"a:scene:exit",
	}, kinds(a.ToActions()))
}

func TestFlattenActions(t *testing.T) {
	s := newTestScene(NewSceneRegistry(), "s", SceneConfig{})
	one := s.Sleep(time.Millisecond).ToActions()
	two := s.Sleep(time.Millisecond).Sleep(time.Millisecond).ToActions()

	flat := FlattenActions(one[0], two, [][]Action{one, two}, "ignored")
	assert.Len(t, flat, 6)
	assert.NotNil(t, FlattenActions())
}

// --- Events ---

func TestScene_EventsArePerScene(t *testing.T) {
	reg := NewSceneRegistry()
	a := newTestScene(reg, "a", SceneConfig{})
	b := newTestScene(reg, "b", SceneConfig{})

	var got []string
	On(a.Events(), EventSceneMount, func(struct{}) { got = append(got, "a") })
	On(b.Events(), EventSceneMount, func(struct{}) { got = append(got, "b") })

	Emit(a.Events(), EventSceneMount, struct{}{})
	assert.Equal(t, []string{"a"}, got)
}
