package adapter

import (
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnregistered is returned when no prototype exists for a reuse identifier.
	ErrUnregistered = errors.New("no prototype registered")
)

// Size is a measured width and height.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Prototype measures models for layout before any real cell exists.
type Prototype interface {
	Measure(model any, width float64) Size
}

// PrototypeFunc adapts a function to Prototype.
type PrototypeFunc func(model any, width float64) Size

func (f PrototypeFunc) Measure(model any, width float64) Size {
	return f(model, width)
}

// Reusable is implemented by elements that name the prototype used to display them.
type Reusable interface {
	ReuseIdentifier() string
}

// Registry holds prototypes keyed by reuse identifier.
// The zero Registry is ready to use.
type Registry struct {
	lock       sync.RWMutex
	prototypes map[string]Prototype
}

// Register adds a prototype for the given reuse identifier.
// Returns false if one was already registered, which is kept.
func (r *Registry) Register(reuseID string, p Prototype) bool {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.prototypes[reuseID]; ok {
		return false
	}
	if r.prototypes == nil {
		r.prototypes = map[string]Prototype{}
	}
	r.prototypes[reuseID] = p
	return true
}

// Registered returns true if there's a prototype for the given reuse identifier.
func (r *Registry) Registered(reuseID string) bool {
	r.lock.RLock()
	defer r.lock.RUnlock()
	_, ok := r.prototypes[reuseID]
	return ok
}

// Measure sizes the model with the prototype for reuseID.
// It returns ErrUnregistered if there is none.
func (r *Registry) Measure(reuseID string, model any, width float64) (Size, error) {
	r.lock.RLock()
	p, ok := r.prototypes[reuseID]
	r.lock.RUnlock()

	if !ok {
		return Size{}, fmt.Errorf("%w: %q", ErrUnregistered, reuseID)
	}
	return p.Measure(model, width), nil
}

// SizeAt measures the published element at row, which must be Reusable.
func (a *Adapter[T]) SizeAt(r *Registry, row int, width float64) (Size, error) {
	v := a.Displayed(row)
	reusable, ok := any(v).(Reusable)
	if !ok {
		return Size{}, fmt.Errorf("%w: %T has no reuse identifier", ErrUnregistered, v)
	}
	return r.Measure(reusable.ReuseIdentifier(), v, width)
}
