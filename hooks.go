package concache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths, sometimes while holding a stripe lock.
type Hooks interface {
	// A caller parked behind another goroutine's producer for the same key.
	ComputeWait(key any)

	// A producer ran to completion. err is nil on success; otherwise the
	// key was released back to absent.
	ComputeDone(key any, err error)

	// A producer panicked. The key was released; the panic is re-raised.
	ComputePanicked(key any, recovered any)

	// The backend failed. op ∈ {"get", "set", "set_if_absent", "del", "range", "clear", "close"}
	BackendError(op string, err error)

	// An unreadable entry was dropped on read.
	SelfHeal(key any)

	// Clear completed. removed is the size observed just before clearing.
	Cleared(removed int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) ComputeWait(any)            {}
func (NopHooks) ComputeDone(any, error)     {}
func (NopHooks) ComputePanicked(any, any)   {}
func (NopHooks) BackendError(string, error) {}
func (NopHooks) SelfHeal(any)               {}
func (NopHooks) Cleared(int)                {}
