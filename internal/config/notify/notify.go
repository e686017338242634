// Package notify delivers configuration changes to observers.
//
// A config File owns one Notifier. Observers subscribe to every change or to
// a path prefix; subscribing to "logging" receives "logging.level" and
// "logging.file". Reload events carry no path and reach every observer.
package notify

import (
	"slices"
	"strings"
	"sync"
)

// ChangeType represents the type of configuration change.
type ChangeType int

const (
	// ChangeSet indicates a value was set or updated.
	ChangeSet ChangeType = iota

	// ChangeReset indicates a value returned to its default.
	ChangeReset

	// ChangeReload indicates the whole file was read again.
	ChangeReload
)

// String returns the change type name.
func (c ChangeType) String() string {
	switch c {
	case ChangeSet:
		return "set"
	case ChangeReset:
		return "reset"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change represents a configuration change event.
type Change struct {
	// File is the path of the config file that changed.
	File string

	// Path is the "section.key" of the changed setting. Empty for reloads.
	Path string

	Type     ChangeType
	OldValue any
	NewValue any
}

// Observer is called when configuration changes occur.
type Observer func(change Change)

type subscriber struct {
	prefix   string
	observer Observer
}

// Notifier fans changes out to observers. Delivery is synchronous, in
// subscription order, with no Notifier lock held.
type Notifier struct {
	mu          sync.RWMutex
	subscribers map[uint64]subscriber
	nextID      uint64
	onPanic     func(recovered any)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithPanicHandler receives values recovered from panicking observers.
func WithPanicHandler(fn func(recovered any)) Option {
	return func(n *Notifier) {
		n.onPanic = fn
	}
}

// New creates a new Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{subscribers: make(map[uint64]subscriber)}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Subscription represents an active observer subscription.
type Subscription struct {
	id       uint64
	notifier *Notifier
}

// Unsubscribe removes this subscription. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.notifier.mu.Lock()
	defer s.notifier.mu.Unlock()
	delete(s.notifier.subscribers, s.id)
}

// Subscribe registers an observer for all changes.
func (n *Notifier) Subscribe(observer Observer) *Subscription {
	return n.SubscribePath("", observer)
}

// SubscribePath registers an observer for a path and everything below it.
func (n *Notifier) SubscribePath(prefix string, observer Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.nextID
	n.nextID++
	n.subscribers[id] = subscriber{prefix: prefix, observer: observer}
	return &Subscription{id: id, notifier: n}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.subscribers)
}

// Notify sends a change to all matching observers.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	ids := make([]uint64, 0, len(n.subscribers))
	for id, sub := range n.subscribers {
		if matches(sub.prefix, change.Path) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	observers := make([]Observer, len(ids))
	for i, id := range ids {
		observers[i] = n.subscribers[id].observer
	}
	n.mu.RUnlock()

	for _, obs := range observers {
		n.deliver(obs, change)
	}
}

func (n *Notifier) deliver(obs Observer, change Change) {
	defer func() {
		if r := recover(); r != nil && n.onPanic != nil {
			n.onPanic(r)
		}
	}()
	obs(change)
}

// matches reports whether a subscription prefix covers path. An empty path
// (reload) matches every prefix.
func matches(prefix, path string) bool {
	if prefix == "" || path == "" || path == prefix {
		return true
	}
	return strings.HasPrefix(path, prefix+".")
}

// Batch collects changes made under a lock and delivers them afterwards.
type Batch struct {
	notifier *Notifier
	changes  []Change
}

// NewBatch creates a new batch for collecting changes.
func (n *Notifier) NewBatch() *Batch {
	return &Batch{notifier: n}
}

// Add adds a change to the batch.
func (b *Batch) Add(change Change) {
	b.changes = append(b.changes, change)
}

// Len returns the number of pending changes.
func (b *Batch) Len() int {
	return len(b.changes)
}

// Commit sends all batched changes in the order they were added.
func (b *Batch) Commit() {
	changes := b.changes
	b.changes = nil
	for _, change := range changes {
		b.notifier.Notify(change)
	}
}
