// Package reactive provides the small set of reactive primitives the
// resource layer publishes its state through.
//
// Signal[T] is a value container that notifies listeners when it changes:
//
//	state := reactive.NewSignal(0)
//	unsubscribe := state.Subscribe(func() {
//	    fmt.Println("now", state.Get())
//	})
//	state.Set(5)
//
// Notifications follow a mark-dirty model: listeners are told that the value
// changed and read the latest value themselves. Concurrent writers never
// deliver a stale value to a listener that reads on notification.
//
// Owner groups cleanups so that everything acquired in a scope is released
// together, and Interval returns a repeating timer as an owned Cleanup:
//
//	owner := reactive.NewOwner(nil)
//	owner.OnCleanup(reactive.Interval(clock.Real(), time.Second, tick))
//	defer owner.Dispose()
//
// All primitives are safe for concurrent use.
package reactive
