package rpc

import "sync"

// router matches responses to pending requests by id.
type router struct {
	mu      sync.Mutex
	pending map[string]chan Response
	fatal   *Error
}

func newRouter() *router {
	return &router{pending: map[string]chan Response{}}
}

// register returns the channel the response for id will arrive on. Once the
// router has failed, the channel is already resolved with that failure.
func (r *router) register(id string) chan Response {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan Response, 1)
	if r.fatal != nil {
		ch <- Response{JSONRPC: Version, Error: r.fatal}
		close(ch)
		return ch
	}
	r.pending[id] = ch
	return ch
}

// deliver resolves the pending request id. Unknown ids are ignored and
// reported false.
func (r *router) deliver(id string, resp Response) bool {
	r.mu.Lock()
	ch, ok := r.pending[id]
	if ok {
		delete(r.pending, id)
	}
	r.mu.Unlock()

	if ok {
		ch <- resp
		close(ch)
	}
	return ok
}

// cancel forgets id without resolving it.
func (r *router) cancel(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// failAll resolves every pending request with err and fails all later
// registrations the same way.
func (r *router) failAll(err *Error) {
	r.mu.Lock()
	r.fatal = err
	pending := r.pending
	r.pending = map[string]chan Response{}
	r.mu.Unlock()

	for _, ch := range pending {
		ch <- Response{JSONRPC: Version, Error: err}
		close(ch)
	}
}

// size returns the number of pending requests.
func (r *router) size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}
