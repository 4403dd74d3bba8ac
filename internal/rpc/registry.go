package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// StatusCode is the integer result the cloud receives for a call.
// Handlers return StatusOK or their own negative codes; the transport
// codes below are reserved.
type StatusCode int

const (
	StatusOK            StatusCode = 1
	StatusAccessDenied  StatusCode = -403
	StatusUnknownName   StatusCode = -404
	StatusHandlerFailed StatusCode = -500
)

// ResultKind tags a GET result.
type ResultKind int

const (
	KindString ResultKind = iota
	KindJSON
)

func (k ResultKind) String() string {
	if k == KindJSON {
		return "json"
	}
	return "string"
}

// AccessPolicy controls who may invoke a handler.
type AccessPolicy int

const (
	AllowAll AccessPolicy = iota
	OwnerOnly
)

// Caller describes who issued a request.
type Caller struct {
	IsOwner bool
}

// Owner is the caller used by trusted local dispatch.
var Owner = Caller{IsOwner: true}

// PostHandler performs an action and returns a status code.
type PostHandler func(arg string) StatusCode

// GetHandler computes a value. The returned bytes must not be retained by
// the handler after it returns.
type GetHandler func(arg string) ([]byte, error)

// Result is a tagged GET result.
type Result struct {
	Kind ResultKind
	Body []byte
}

// Endpoint describes a registered handler for the local API.
type Endpoint struct {
	Name      string `json:"name"`
	Direction string `json:"direction"`
	Kind      string `json:"kind,omitempty"`
	OwnerOnly bool   `json:"owner_only"`
}

type postEntry struct {
	handler PostHandler
	policy  AccessPolicy
}

type getEntry struct {
	handler GetHandler
	kind    ResultKind
	policy  AccessPolicy
}

// Registry maps names to remote-callable handlers. POST and GET names are
// separate namespaces. Handlers are registered at startup and never removed.
//
// All public methods are thread-safe.
type Registry struct {
	mu    sync.RWMutex
	posts map[string]postEntry
	gets  map[string]getEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		posts: make(map[string]postEntry),
		gets:  make(map[string]getEntry),
	}
}

// RegisterPost adds a POST handler.
func (r *Registry) RegisterPost(name string, h PostHandler, policy AccessPolicy) error {
	if name == "" || h == nil {
		return fmt.Errorf("%w: post %q", ErrInvalidHandler, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.posts[name]; exists {
		return fmt.Errorf("%w: post %s", ErrDuplicateName, name)
	}
	r.posts[name] = postEntry{handler: h, policy: policy}
	return nil
}

// RegisterGet adds a GET handler whose result is tagged with kind.
func (r *Registry) RegisterGet(name string, h GetHandler, kind ResultKind, policy AccessPolicy) error {
	if name == "" || h == nil {
		return fmt.Errorf("%w: get %q", ErrInvalidHandler, name)
	}
	if kind != KindString && kind != KindJSON {
		return fmt.Errorf("%w: get %s has unknown result kind %d", ErrInvalidHandler, name, kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.gets[name]; exists {
		return fmt.Errorf("%w: get %s", ErrDuplicateName, name)
	}
	r.gets[name] = getEntry{handler: h, kind: kind, policy: policy}
	return nil
}

// DispatchPost invokes a POST handler as the owner.
func (r *Registry) DispatchPost(name, arg string) (StatusCode, error) {
	return r.DispatchPostAs(Owner, name, arg)
}

// DispatchPostAs invokes a POST handler on behalf of caller.
//
// Returns the handler's status code, or a transport code with an error:
// ErrUnknownName (-404), ErrAccessDenied (-403), ErrHandlerFailed (-500)
// when the handler panicked.
func (r *Registry) DispatchPostAs(caller Caller, name, arg string) (code StatusCode, err error) {
	r.mu.RLock()
	entry, ok := r.posts[name]
	r.mu.RUnlock()

	if !ok {
		return StatusUnknownName, fmt.Errorf("%w: post %s", ErrUnknownName, name)
	}
	if entry.policy == OwnerOnly && !caller.IsOwner {
		return StatusAccessDenied, fmt.Errorf("%w: post %s", ErrAccessDenied, name)
	}

	defer func() {
		if p := recover(); p != nil {
			code = StatusHandlerFailed
			err = fmt.Errorf("%w: post %s panicked: %v", ErrHandlerFailed, name, p)
		}
	}()
	return entry.handler(arg), nil
}

// DispatchGet invokes a GET handler as the owner.
func (r *Registry) DispatchGet(name, arg string) (Result, error) {
	return r.DispatchGetAs(Owner, name, arg)
}

// DispatchGetAs invokes a GET handler on behalf of caller and tags the
// result. JSON results are validated.
func (r *Registry) DispatchGetAs(caller Caller, name, arg string) (res Result, err error) {
	r.mu.RLock()
	entry, ok := r.gets[name]
	r.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: get %s", ErrUnknownName, name)
	}
	if entry.policy == OwnerOnly && !caller.IsOwner {
		return Result{}, fmt.Errorf("%w: get %s", ErrAccessDenied, name)
	}

	defer func() {
		if p := recover(); p != nil {
			res = Result{}
			err = fmt.Errorf("%w: get %s panicked: %v", ErrHandlerFailed, name, p)
		}
	}()

	body, herr := entry.handler(arg)
	if herr != nil {
		return Result{}, fmt.Errorf("%w: get %s: %w", ErrHandlerFailed, name, herr)
	}
	if entry.kind == KindJSON && !json.Valid(body) {
		return Result{}, fmt.Errorf("%w: get %s returned invalid JSON", ErrInvalidResult, name)
	}

	// Copy so the caller owns a stable buffer until the transport consumes it.
	return Result{Kind: entry.kind, Body: append([]byte(nil), body...)}, nil
}

// Endpoints lists every handler sorted by direction then name.
func (r *Registry) Endpoints() []Endpoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Endpoint, 0, len(r.posts)+len(r.gets))
	for name, e := range r.gets {
		out = append(out, Endpoint{Name: name, Direction: "get", Kind: e.kind.String(), OwnerOnly: e.policy == OwnerOnly})
	}
	for name, e := range r.posts {
		out = append(out, Endpoint{Name: name, Direction: "post", OwnerOnly: e.policy == OwnerOnly})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Direction != out[j].Direction {
			return out[i].Direction < out[j].Direction
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Status maps a dispatch error to the code returned to the cloud.
// A nil error maps to StatusOK.
func Status(err error) StatusCode {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrUnknownName):
		return StatusUnknownName
	case errors.Is(err, ErrAccessDenied):
		return StatusAccessDenied
	default:
		return StatusHandlerFailed
	}
}
