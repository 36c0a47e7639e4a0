// Package notify provides a small synchronous publish/subscribe registry.
//
// Subscribers are called in registration order on the publishing goroutine.
// Handlers may subscribe, unsubscribe or publish again while a delivery is in
// progress; each Publish works from a snapshot of the subscriber list taken
// when it starts, and skips subscribers that were removed before their turn.
package notify

// Registry delivers values of type T to its subscribers. The zero value is
// ready to use. A Registry is not safe for concurrent use.
type Registry[T any] struct {
	subs []*entry[T]
}

type entry[T any] struct {
	fn     func(T)
	active bool
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Subscribe registers fn and returns a handle that removes it again.
func (r *Registry[T]) Subscribe(fn func(T)) *Subscription {
	e := &entry[T]{fn: fn, active: true}
	r.subs = append(r.subs, e)
	return &Subscription{cancel: func() { r.remove(e) }}
}

func (r *Registry[T]) remove(target *entry[T]) {
	target.active = false
	for i, e := range r.subs {
		if e == target {
			r.subs = append(r.subs[:i:i], r.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with v.
func (r *Registry[T]) Publish(v T) {
	if len(r.subs) == 0 {
		return
	}
	snapshot := make([]*entry[T], len(r.subs))
	copy(snapshot, r.subs)
	for _, e := range snapshot {
		if e.active {
			e.fn(v)
		}
	}
}

// Len reports the number of registered subscribers.
func (r *Registry[T]) Len() int {
	return len(r.subs)
}
