package actorloop

// startTrampoline launches a's entry function on its own goroutine and
// blocks that goroutine immediately on the first resume signal — mirroring
// context_init's "arrange for the next context_switch to begin executing
// entry_fn" without actually running any user code until the scheduler first
// dispatches this actor.
//
// The trampoline is the "actor function returned = crash" enforcement point
// of spec.md §4.1/§9: a plain return from fn is indistinguishable, from the
// trampoline's point of view, from any other way of not calling Exit, so
// both are folded into the same ExitCrash path.
func startTrampoline(rt *Runtime, a *Actor) {
	go func() {
		<-a.resumeCh

		ctx := &ActorContext{actor: a, rt: rt}
		func() {
			defer func() {
				if rec := recover(); rec != nil {
					if eu, ok := rec.(exitUnwind); ok {
						a.exitReason = eu.reason
						a.exitValue = eu.value
						return
					}
					a.exitReason = ExitCrash
					a.exitValue = rec
					return
				}
			}()
			a.fn(ctx, a.arg)
			// fn returned without panicking and without calling Exit: crash.
			a.exitReason = ExitCrash
			a.exitValue = nil
		}()

		a.state.Store(uint64(ActorDead))
		a.yieldCh <- yieldReason{kind: yieldDead}
	}()
}
