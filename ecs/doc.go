// Package ecs bridges reverie scene events into a [Donburi] world.
//
// Attach scenes to a [Bridge] and every lifecycle event they fire is
// published as a [SceneEvent] on [SceneEventType]. Subscribe in your ECS
// systems and drain the queue with ProcessEvents each tick:
//
//	bridge := ecs.NewDonburiBridge(world)
//	bridge.Attach(scene)
//	ecs.SceneEventType.Subscribe(world, onSceneEvent)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
