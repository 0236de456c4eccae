package demo

import (
	"context"
	"time"

	"github.com/marmos91/cachecore/pkg/vc"
)

// pollInterval bounds how long Drive waits on a wake notification before
// re-checking ctx.Done(), so a cancelled request unwinds promptly even if
// the Scheduler never fires (e.g. the writer it's waiting on was itself
// cancelled through a code path that forgot to WakeUp it).
const pollInterval = 500 * time.Millisecond

// Stepper is the common shape of ReadVC.Step and WriteVC.Step.
type Stepper func(ctx context.Context) vc.Effect

// Drive repeatedly calls step until it reports EffectDone, sleeping on
// EffectRetry's delay and blocking on the Scheduler's wake channel for
// EffectYield/EffectReadReady -- this is the external driver loop
// pkg/vc's package doc describes ("a Driver repeatedly calls Step until an
// Effect tells it to stop"), generalized from pkg/vc's test-only
// runToEffect into something a real request handler can use against a
// live Scheduler instead of stepping in a tight loop.
func Drive(ctx context.Context, id string, sched *Scheduler, step Stepper) error {
	wake := sched.Wait(id)
	defer sched.Forget(id)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		eff := step(ctx)
		switch eff.Kind {
		case vc.EffectDone:
			return eff.Err
		case vc.EffectContinue:
			continue
		case vc.EffectRetry:
			select {
			case <-time.After(time.Duration(eff.RetryDelay) * time.Millisecond):
			case <-ctx.Done():
				return ctx.Err()
			}
		case vc.EffectYield, vc.EffectReadReady:
			select {
			case <-wake:
			case <-time.After(pollInterval):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
