package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"fitcoach/internal/imagecache"
	"fitcoach/internal/models"
	"fitcoach/internal/narration"
)

// Tab selects the workout or diet half of a plan.
type Tab string

const (
	TabWorkout Tab = "workout"
	TabDiet    Tab = "diet"
)

func ParseTab(s string) (Tab, error) {
	switch Tab(strings.ToLower(s)) {
	case TabWorkout:
		return TabWorkout, nil
	case TabDiet:
		return TabDiet, nil
	}
	return "", fmt.Errorf("%w: tab %q", ErrNotFound, s)
}

// ItemUpdate is pushed to the session's client on every item state change.
type ItemUpdate struct {
	Type  string              `json:"type"`
	Tab   Tab                 `json:"tab"`
	Day   int                 `json:"day"`
	Item  int                 `json:"item"`
	State imagecache.ItemView `json:"state"`
}

// Card is one day of a tab together with its item states.
type Card struct {
	Index            int                   `json:"index"`
	Day              string                `json:"day"`
	Focus            string                `json:"focus,omitempty"`
	ImageDescription string                `json:"imageDescription"`
	Items            []imagecache.ItemView `json:"items"`
}

// SessionOptions are shared by every session of a process.
type SessionOptions struct {
	Generator Generator
	Store     imagecache.Store
	Renderer  imagecache.Renderer
	Timeout   time.Duration
	Cooldown  time.Duration
	Now       func() time.Time
	Engine    narration.Engine

	// Notify receives item updates. It runs with a list lock held and must
	// not block.
	Notify func(sessionID string, u ItemUpdate)
}

// Session bundles everything one browser session owns: the orchestrator, the
// narrator, and the image lists mounted for the displayed plan.
type Session struct {
	ID string

	opts     SessionOptions
	orch     *Orchestrator
	narrator *narration.Narrator

	mu      sync.RWMutex
	workout []*imagecache.List
	diet    []*imagecache.List
}

func NewSession(id string, opts SessionOptions) *Session {
	return &Session{
		ID:       id,
		opts:     opts,
		orch:     NewOrchestrator(opts.Generator),
		narrator: narration.NewNarrator(opts.Engine),
	}
}

// Submit generates a plan and, on success, mounts one image list per day card.
func (s *Session) Submit(ctx context.Context, profile models.UserProfile) (Snapshot, error) {
	snap, err := s.orch.Submit(ctx, profile)
	if err != nil {
		return Snapshot{}, err
	}

	// The plan is already accepted; the store lookups must not be cut short
	// by the request going away.
	workout, diet, err := s.mount(context.WithoutCancel(ctx), snap.Plan)
	if err != nil {
		s.orch.Reset()
		return Snapshot{}, fmt.Errorf("failed to mount plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A reset may have landed while the lists were being seeded.
	if cur, err := s.orch.Snapshot(); err != nil || cur.Plan != snap.Plan {
		closeLists(workout)
		closeLists(diet)
		return Snapshot{}, ErrNoPlan
	}

	closeLists(s.workout)
	closeLists(s.diet)
	s.workout, s.diet = workout, diet
	return snap, nil
}

// mount seeds all 14 lists from the store concurrently.
func (s *Session) mount(ctx context.Context, plan *models.FitnessPlan) ([]*imagecache.List, []*imagecache.List, error) {
	workout := make([]*imagecache.List, len(plan.WorkoutPlan))
	diet := make([]*imagecache.List, len(plan.DietPlan))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range plan.WorkoutPlan {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			workout[i] = imagecache.NewList(gctx, s.listOptions(TabWorkout, i), d.Day, imagecache.WorkoutItems(d))
			return nil
		})
	}
	for i, d := range plan.DietPlan {
		i, d := i, d
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diet[i] = imagecache.NewList(gctx, s.listOptions(TabDiet, i), d.Day, imagecache.DietItems(d))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		closeLists(workout)
		closeLists(diet)
		return nil, nil, err
	}

	log.Debug().Str("session_id", s.ID).Int("lists", len(workout)+len(diet)).Msg("plan lists mounted")
	return workout, diet, nil
}

func (s *Session) listOptions(tab Tab, day int) imagecache.Options {
	// The session id is the device's identity, so its cache entries are its own.
	opts := imagecache.Options{
		Store:    imagecache.Scoped(s.opts.Store, s.ID),
		Renderer: s.opts.Renderer,
		Timeout:  s.opts.Timeout,
		Cooldown: s.opts.Cooldown,
		Now:      s.opts.Now,
	}
	if notify := s.opts.Notify; notify != nil {
		id := s.ID
		opts.OnChange = func(_ string, v imagecache.ItemView) {
			notify(id, ItemUpdate{Type: "ITEM_UPDATE", Tab: tab, Day: day, Item: v.Index, State: v})
		}
	}
	return opts
}

// Reset stops narration, unmounts every list, and returns to the form.
func (s *Session) Reset() {
	s.narrator.Stop()
	s.orch.Reset()
	s.unmount()
}

// Close releases the session's lists; in-flight fetches are cancelled.
func (s *Session) Close() {
	s.narrator.Stop()
	s.unmount()
}

func (s *Session) unmount() {
	s.mu.Lock()
	workout, diet := s.workout, s.diet
	s.workout, s.diet = nil, nil
	s.mu.Unlock()

	closeLists(workout)
	closeLists(diet)
}

func (s *Session) Status() Status {
	return s.orch.Status()
}

func (s *Session) Snapshot() (Snapshot, error) {
	return s.orch.Snapshot()
}

// Cards returns the day cards of tab with current item states.
func (s *Session) Cards(tab Tab) ([]Card, error) {
	snap, err := s.orch.Snapshot()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	lists := s.listsLocked(tab)
	if lists == nil {
		return nil, ErrNoPlan
	}

	cards := make([]Card, len(lists))
	for i, l := range lists {
		cards[i] = Card{Index: i, Day: l.Day(), Items: l.Snapshot()}
		switch tab {
		case TabWorkout:
			cards[i].Focus = snap.Plan.WorkoutPlan[i].Focus
			cards[i].ImageDescription = snap.Plan.WorkoutPlan[i].ImageDescription
		case TabDiet:
			cards[i].ImageDescription = snap.Plan.DietPlan[i].ImageDescription
		}
	}
	return cards, nil
}

func (s *Session) Toggle(tab Tab, day, item int) (imagecache.ItemView, error) {
	return s.itemAction(tab, day, item, (*imagecache.List).Toggle)
}

func (s *Session) Generate(tab Tab, day, item int) (imagecache.ItemView, error) {
	return s.itemAction(tab, day, item, (*imagecache.List).Generate)
}

func (s *Session) Regenerate(tab Tab, day, item int) (imagecache.ItemView, error) {
	return s.itemAction(tab, day, item, (*imagecache.List).Regenerate)
}

func (s *Session) itemAction(tab Tab, day, item int, act func(*imagecache.List, int) (imagecache.ItemView, error)) (imagecache.ItemView, error) {
	s.mu.RLock()
	lists := s.listsLocked(tab)
	s.mu.RUnlock()

	if lists == nil {
		return imagecache.ItemView{}, ErrNoPlan
	}
	if day < 0 || day >= len(lists) {
		return imagecache.ItemView{}, fmt.Errorf("%w: day %d", ErrNotFound, day)
	}

	v, err := act(lists[day], item)
	switch {
	case errors.Is(err, imagecache.ErrItemNotFound):
		return imagecache.ItemView{}, fmt.Errorf("%w: item %d", ErrNotFound, item)
	case errors.Is(err, imagecache.ErrListClosed):
		return imagecache.ItemView{}, ErrNoPlan
	}
	return v, err
}

// Narrate toggles read-aloud of a section of the displayed plan.
func (s *Session) Narrate(section narration.Section) (narration.Result, error) {
	snap, err := s.orch.Snapshot()
	if err != nil {
		return narration.Result{}, err
	}
	return s.narrator.Toggle(section, snap.Plan)
}

func (s *Session) NarrationFinished(section narration.Section) {
	s.narrator.Finished(section)
}

// Wait blocks until every fetch issued so far has completed.
func (s *Session) Wait() {
	s.mu.RLock()
	lists := append(append([]*imagecache.List(nil), s.workout...), s.diet...)
	s.mu.RUnlock()

	for _, l := range lists {
		l.Wait()
	}
}

func (s *Session) listsLocked(tab Tab) []*imagecache.List {
	switch tab {
	case TabWorkout:
		return s.workout
	case TabDiet:
		return s.diet
	}
	return nil
}

func closeLists(lists []*imagecache.List) {
	for _, l := range lists {
		if l != nil {
			l.Close()
		}
	}
}
