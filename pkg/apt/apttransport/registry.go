package apttransport

import (
	"context"
	"sync"
)

// DefaultRegistry is the process-wide transport registry used by callers that don't
// need a dedicated one. The acquisition pipeline (pkg/apt) takes its default transport
// from here: apt.NewSystem selects this registry's "https" transport.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(NewHTTPTransport())
	DefaultRegistry.Register(NewFileTransport())
}

// Registry dispatches an Acquire to the Transport registered for the request URI's
// scheme. Content-addressed storage and conditional-GET freshness are handled by the
// callers of Registry (pkg/apt/lists, pkg/apt/release), not by the registry itself:
// apt-look only ever has one copy of a given file worth keeping, named by its content
// hash, which makes a second opaque byte-cache in front of Transport pure overhead.
type Registry struct {
	mu         sync.RWMutex
	transports map[string]Transport
}

func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]Transport),
	}
}

// Register adds a transport for every scheme it declares.
func (r *Registry) Register(transport Transport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, scheme := range transport.Schemes() {
		r.transports[scheme] = transport
	}
}

func (r *Registry) Select(scheme string) (Transport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.transports[scheme]
	if !ok {
		return nil, &UnsupportedSchemeError{Scheme: scheme}
	}
	return t, nil
}

func (r *Registry) Acquire(ctx context.Context, req *AcquireRequest) (*AcquireResponse, error) {
	transport, err := r.Select(req.URI.Scheme)
	if err != nil {
		return nil, err
	}
	return transport.Acquire(ctx, req)
}
