package specsadapter

import (
	"context"
	"errors"
	"time"
)

// GRPCAdapter is a contract-only stub: spec.md lists a gRPC streaming
// specs adapter as an explicit Non-goal beyond the general adapter
// contract ("only the general 'adapter' contract" is in scope), so this
// satisfies the Adapter interface without a transport implementation.
// Wiring a real streaming client (grpc-go + a .proto-generated stub) is
// future work once the Non-goal is lifted.
type GRPCAdapter struct {
	Target string
}

func (a *GRPCAdapter) TypeName() string { return "GRPCAdapter" }

func (a *GRPCAdapter) Start(ctx context.Context, listener Listener) error {
	return errors.New("specsadapter: GRPCAdapter is a contract stub, not implemented")
}

func (a *GRPCAdapter) ScheduleBackgroundSync(ctx context.Context, listener Listener, spawn func(tag string, f func(ctx context.Context))) {
}

func (a *GRPCAdapter) Shutdown(timeout time.Duration) error { return nil }
