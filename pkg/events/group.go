package events

import "sync"

var _ Subscriber = (*Group)(nil)

// Group scopes subscriptions to one owner, typically a mounted view.
// Close releases every subscription made through the group, so an unmounted
// view never keeps receiving events.
type Group struct {
	parent Subscriber

	mu     sync.Mutex
	subs   map[string][]Subscription
	closed bool
}

func NewGroup(parent Subscriber) *Group {
	return &Group{parent: parent, subs: make(map[string][]Subscription)}
}

// On subscribes through the parent. After Close it registers nothing.
func (g *Group) On(name string, h Handler) Subscription {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed || g.parent == nil {
		return nopSubscription{}
	}
	s := g.parent.On(name, h)
	g.subs[name] = append(g.subs[name], s)
	return s
}

// Off removes only this group's handlers, leaving other owners untouched.
func (g *Group) Off(names ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(names) == 0 {
		for n := range g.subs {
			names = append(names, n)
		}
	}
	for _, n := range names {
		for _, s := range g.subs[n] {
			s.Unsubscribe()
		}
		delete(g.subs, n)
	}
}

// Close unsubscribes everything and disables the group.
func (g *Group) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.Off()
}

type nopSubscription struct{}

func (nopSubscription) Unsubscribe() {}
