package nirum

import "context"

// DispatchHook provides observability callpoints around RPC dispatch.
// Implementations must be safe for concurrent use.
type DispatchHook interface {
	OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken)
	OnDispatchEnd(ctx context.Context, token HookToken, info DispatchInfo, stats CallStats, err error)
}

// HookToken is an opaque value returned by OnDispatchStart and passed
// back to OnDispatchEnd. Only meaningful to the DispatchHook that
// created it.
type HookToken any

// DispatchInfo describes an inbound call.
type DispatchInfo struct {
	Service    string            // Service behind name
	Method     string            // Method behind name
	RemoteAddr string            // Network address of the caller
	UserAgent  string            // Caller's User-Agent header
	Header     map[string]string // Request headers by lower-case name, first value of each
}

// CallStats holds the outcome of a dispatched call.
type CallStats struct {
	Status        int
	RequestBytes  int64
	ResponseBytes int64
}

// nopHook is the DispatchHook used when none is configured.
type nopHook struct{}

func (nopHook) OnDispatchStart(ctx context.Context, info DispatchInfo) (context.Context, HookToken) {
	return ctx, nil
}

func (nopHook) OnDispatchEnd(context.Context, HookToken, DispatchInfo, CallStats, error) {}
