package ledger

import (
	"context"
	"time"
)

// AcquireLeaseLockForTest grabs the processor's per-lease settlement lock so
// tests can stage contention without a second in-flight settlement.
func AcquireLeaseLockForTest(p *Processor, ctx context.Context, id LeaseID) (func(), error) {
	return p.locks.acquire(ctx, id, time.Second)
}
