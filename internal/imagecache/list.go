package imagecache

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// A zero Options.Timeout falls back to DefaultTimeout. A zero Cooldown
// disables the gate, so callers pass DefaultCooldown explicitly.
const (
	DefaultTimeout  = 30 * time.Second
	DefaultCooldown = 5 * time.Second
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrListClosed   = errors.New("list is closed")
)

// Options wires a List to its collaborators.
type Options struct {
	Store    Store
	Renderer Renderer
	Timeout  time.Duration
	Cooldown time.Duration

	// Now is the cooldown clock; time.Now when nil.
	Now func() time.Time

	// OnChange is called with the list mutex held after every state change.
	// It must not call back into the List.
	OnChange func(day string, v ItemView)
}

// List owns the image state of every item in one day card, plus the card's
// shared cooldown clock. All mutations are serialized by mu.
type List struct {
	day  string
	opts Options

	mu          sync.Mutex
	items       []slot
	lastSuccess time.Time
	closed      bool

	// storeMu orders store writes against Regenerate's delete. It is taken
	// before mu and never while mu is held.
	storeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewList mounts a list: every item is seeded from the store, and a cache hit
// starts the item in StatusReady without any network call.
func NewList(ctx context.Context, opts Options, day string, items []Item) *List {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &List{
		day:   day,
		opts:  opts,
		items: make([]slot, len(items)),
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())

	for i, it := range items {
		s := slot{item: it, key: Key(day, it.Name), status: StatusIdle}

		handle, ok, err := opts.Store.Get(ctx, s.key)
		if err != nil {
			log.Warn().Err(err).Str("cache_key", s.key).Msg("image cache lookup failed, treating as miss")
		} else if ok {
			s.status = StatusReady
			s.image = handle
		}
		l.items[i] = s
	}

	return l
}

func (l *List) Day() string {
	return l.day
}

func (l *List) Len() int {
	return len(l.items)
}

// Snapshot returns a copy of every item's state.
func (l *List) Snapshot() []ItemView {
	l.mu.Lock()
	defer l.mu.Unlock()

	views := make([]ItemView, len(l.items))
	for i := range l.items {
		views[i] = l.items[i].view(i)
	}
	return views
}

func (l *List) Item(idx int) (ItemView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if idx < 0 || idx >= len(l.items) {
		return ItemView{}, ErrItemNotFound
	}
	return l.items[idx].view(idx), nil
}

// Toggle expands or collapses an item. The first expansion of an idle item
// triggers a fetch; collapsing a failed item dismisses its error.
func (l *List) Toggle(idx int) (ItemView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.slotLocked(idx)
	if err != nil {
		return ItemView{}, err
	}

	wasOpen := s.open
	s.open = !wasOpen

	switch {
	case !wasOpen && s.status == StatusIdle:
		l.triggerLocked(idx)
	case wasOpen && s.status == StatusFailed:
		s.status = StatusAttemptedEmpty
		s.err = ""
	}

	l.notifyLocked(idx)
	return s.view(idx), nil
}

// Generate is the explicit "generate" / "try again" action. Items that are
// already loading or ready are left alone.
func (l *List) Generate(idx int) (ItemView, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.slotLocked(idx)
	if err != nil {
		return ItemView{}, err
	}

	s.open = true
	switch s.status {
	case StatusIdle, StatusAttemptedEmpty, StatusFailed:
		l.triggerLocked(idx)
	}

	l.notifyLocked(idx)
	return s.view(idx), nil
}

// Regenerate deletes the item's persistent entry, clears its image and error,
// and re-enters the fetch path under the same cooldown gate. Any fetch still
// in flight for the item is invalidated.
func (l *List) Regenerate(idx int) (ItemView, error) {
	l.storeMu.Lock()
	defer l.storeMu.Unlock()

	l.mu.Lock()
	s, err := l.slotLocked(idx)
	if err != nil {
		l.mu.Unlock()
		return ItemView{}, err
	}
	s.seq++
	seq := s.seq
	s.open = true
	s.image = ""
	s.err = ""
	s.status = StatusIdle
	key, prompt := s.key, s.item.Prompt
	l.mu.Unlock()

	delErr := l.opts.Store.Delete(l.ctx, key)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ItemView{}, ErrListClosed
	}
	if s.seq != seq {
		// Another action took the item over while the entry was being cleared.
		return s.view(idx), nil
	}

	if delErr != nil {
		log.Error().Err(delErr).Str("cache_key", key).Msg("failed to clear cached image")
		s.status = StatusFailed
		s.err = "Could not clear the cached image. Please try again."
		l.notifyLocked(idx)
		return s.view(idx), nil
	}

	if f, ok := l.opts.Renderer.(Forgetter); ok {
		f.Forget(prompt)
	}
	l.triggerLocked(idx)
	l.notifyLocked(idx)
	return s.view(idx), nil
}

// Wait blocks until every fetch issued so far has completed.
func (l *List) Wait() {
	l.wg.Wait()
}

// Close cancels in-flight fetches and discards their results.
func (l *List) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.mu.Unlock()

	l.cancel()
	l.wg.Wait()
}

func (l *List) slotLocked(idx int) (*slot, error) {
	if l.closed {
		return nil, ErrListClosed
	}
	if idx < 0 || idx >= len(l.items) {
		return nil, ErrItemNotFound
	}
	return &l.items[idx], nil
}

// triggerLocked applies the cooldown gate and, when it passes, starts a fetch.
// The gate measures from the list's last successful fetch only.
func (l *List) triggerLocked(idx int) {
	s := &l.items[idx]

	if l.opts.Cooldown > 0 && !l.lastSuccess.IsZero() {
		elapsed := l.opts.Now().Sub(l.lastSuccess)
		if elapsed < l.opts.Cooldown {
			remaining := int(math.Ceil((l.opts.Cooldown - elapsed).Seconds()))
			s.status = StatusFailed
			s.err = fmt.Sprintf("Rate limit: Wait %ds.", remaining)
			return
		}
	}

	s.seq++
	s.status = StatusLoading
	s.err = ""
	s.image = ""

	l.wg.Add(1)
	go l.fetch(idx, s.seq, s.item.Prompt)
}

func (l *List) fetch(idx int, seq uint64, prompt string) {
	defer l.wg.Done()

	handle, err := Fetch(l.ctx, l.opts.Renderer, prompt, l.opts.Timeout)

	if err != nil {
		l.mu.Lock()
		defer l.mu.Unlock()

		if !l.currentLocked(idx, seq) {
			return
		}
		s := &l.items[idx]
		log.Warn().Err(err).Str("day", l.day).Str("item", s.item.Name).Msg("image generation failed")
		s.status = StatusFailed
		s.err = err.Error()
		l.notifyLocked(idx)
		return
	}

	// The write happens outside mu so a slow backend only holds up
	// Regenerate, not the other items of the card.
	l.storeMu.Lock()
	defer l.storeMu.Unlock()

	l.mu.Lock()
	current := l.currentLocked(idx, seq)
	key := l.items[idx].key
	l.mu.Unlock()
	if !current {
		return
	}

	if err := l.opts.Store.Set(l.ctx, key, handle); err != nil {
		log.Error().Err(err).Str("cache_key", key).Msg("failed to persist generated image")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.currentLocked(idx, seq) {
		return
	}
	s := &l.items[idx]
	s.image = handle
	s.status = StatusReady
	l.lastSuccess = l.opts.Now()
	l.notifyLocked(idx)
}

// currentLocked reports whether a completion for seq may still be applied.
func (l *List) currentLocked(idx int, seq uint64) bool {
	if l.closed {
		return false
	}
	s := &l.items[idx]
	if s.seq != seq {
		log.Debug().Str("cache_key", s.key).Uint64("seq", seq).Uint64("current", s.seq).Msg("discarding stale image result")
		return false
	}
	return true
}

func (l *List) notifyLocked(idx int) {
	if l.opts.OnChange != nil {
		l.opts.OnChange(l.day, l.items[idx].view(idx))
	}
}
