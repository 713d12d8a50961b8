// Package reverie is the scene and action core of a visual-novel runtime.
//
// Story code never acts directly. Builder methods on a [Scene] append
// [Action] values to a pending buffer; [Scene.ToActions] drains it and a
// [Runtime] executes the list: it updates scene state, fires scene events,
// plays transitions on the stage element and switches background music.
//
// # Quick start
//
//	reg := reverie.NewSceneRegistry()
//	intro := reverie.NewScene("intro", reverie.SceneConfig{
//		Background: reverie.ColorBackground(reverie.ColorBlack),
//	}, reverie.WithRegistry(reg))
//	hall := reverie.NewScene("hall", reverie.SceneConfig{}, reverie.WithRegistry(reg))
//
//	hall.SetBackground(reverie.ImageBackground("hall.png")).Sleep(2 * time.Second)
//	intro.Activate().Sleep(time.Second).JumpTo(hall, reverie.JumpConfig{
//		Transition: reverie.Dissolve{Duration: 500},
//	})
//
//	rt := reverie.NewRuntime(reg)
//	rt.Load(intro.ToActions())
//	err := rt.Run(ctx)
//
// [Scene.JumpTo] splices the target's script into the source's stream, so the
// runtime sees one flat list: preUnmount, the transition pair, the target's
// init and actions, and finally the source's exit.
//
// # Hosting
//
// [Game] runs a runtime inside an [Ebitengine] window, driving transitions
// with [TweenDriver] (via [gween]) and background music with [MusicDeck]
// (via [beep]). Stories can also be written as YAML scripts, see
// [LoadStory].
//
// # Resources and saves
//
// Each scene owns a [SrcManager] listing the images, audio and video it
// references, plus the managers of scenes it may jump to so a host can
// prefetch ahead. [Runtime.Snapshot] and [Runtime.Restore] persist scene
// state as YAML through [WriteSave] and [ReadSave].
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [beep]: https://github.com/gopxl/beep
package reverie
