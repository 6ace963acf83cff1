package planner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitcoach/internal/imagecache"
	"fitcoach/internal/models"
	"fitcoach/internal/narration"
	"fitcoach/internal/testutil"
)

type fakeGenerator struct {
	calls atomic.Int32
	plan  *models.FitnessPlan
	err   error
	gate  chan struct{}
}

func (g *fakeGenerator) GeneratePlan(ctx context.Context, profile models.UserProfile) (*models.FitnessPlan, error) {
	g.calls.Add(1)
	if g.gate != nil {
		<-g.gate
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.plan, nil
}

type promptRecorder struct {
	mu      sync.Mutex
	prompts []string
}

func (r *promptRecorder) Render(ctx context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return "data:image/jpeg;base64,AAAA", nil
}

func (r *promptRecorder) Prompts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.prompts...)
}

func testOptions(gen Generator, r imagecache.Renderer) SessionOptions {
	return SessionOptions{
		Generator: gen,
		Store:     imagecache.NewMemoryStore(),
		Renderer:  r,
		Timeout:   time.Second,
		Cooldown:  imagecache.DefaultCooldown,
	}
}

func TestSubmitInvalidProfileSkipsGenerator(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan()}
	o := NewOrchestrator(gen)

	p := testutil.AlexProfile()
	p.Age = 10
	_, err := o.Submit(context.Background(), p)

	var verrs models.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Contains(t, verrs, "age")
	assert.Equal(t, int32(0), gen.calls.Load())
	assert.Equal(t, StateForm, o.Status().State)
}

func TestSubmitCallsGeneratorOnce(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan()}
	o := NewOrchestrator(gen)

	snap, err := o.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)
	assert.Equal(t, int32(1), gen.calls.Load())
	assert.Equal(t, "Alex", snap.Profile.Name)

	st := o.Status()
	assert.Equal(t, StateDisplay, st.State)
	require.NotNil(t, st.Snapshot)

	_, err = o.Submit(context.Background(), testutil.AlexProfile())
	assert.ErrorIs(t, err, ErrPlanExists)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestSubmitFailureEntersErrorState(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("Failed to generate plan from AI. Check Gemini key/quota.")}
	o := NewOrchestrator(gen)

	_, err := o.Submit(context.Background(), testutil.AlexProfile())
	require.Error(t, err)
	assert.Equal(t, "An error occurred: Failed to generate plan from AI. Check Gemini key/quota.", err.Error())

	st := o.Status()
	assert.Equal(t, StateError, st.State)
	assert.Equal(t, err.Error(), st.Error)
	assert.Nil(t, st.Snapshot)

	_, err = o.Snapshot()
	assert.ErrorIs(t, err, ErrNoPlan)

	o.Reset()
	assert.Equal(t, StateForm, o.Status().State)
	assert.Empty(t, o.Status().Error)
}

func TestSubmitRejectsInvalidPlan(t *testing.T) {
	plan := testutil.SevenDayPlan()
	plan.WorkoutPlan = plan.WorkoutPlan[:3]
	o := NewOrchestrator(&fakeGenerator{plan: plan})

	_, err := o.Submit(context.Background(), testutil.AlexProfile())
	assert.ErrorIs(t, err, models.ErrInvalidPlan)
	assert.Equal(t, StateError, o.Status().State)
}

func TestSubmitWhileLoadingIsBusy(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan(), gate: make(chan struct{})}
	o := NewOrchestrator(gen)

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), testutil.AlexProfile())
		done <- err
	}()
	require.Eventually(t, func() bool { return o.Status().State == StateLoading }, time.Second, 5*time.Millisecond)

	_, err := o.Submit(context.Background(), testutil.AlexProfile())
	assert.ErrorIs(t, err, ErrBusy)

	close(gen.gate)
	require.NoError(t, <-done)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestResetDuringLoadingDropsResult(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan(), gate: make(chan struct{})}
	o := NewOrchestrator(gen)

	done := make(chan error, 1)
	go func() {
		_, err := o.Submit(context.Background(), testutil.AlexProfile())
		done <- err
	}()
	require.Eventually(t, func() bool { return o.Status().State == StateLoading }, time.Second, 5*time.Millisecond)

	o.Reset()
	close(gen.gate)

	assert.ErrorIs(t, <-done, ErrNoPlan)
	assert.Equal(t, StateForm, o.Status().State)
}

func TestSessionAlexScenario(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan()}
	r := &promptRecorder{}

	var mu sync.Mutex
	var updates []ItemUpdate
	opts := testOptions(gen, r)
	opts.Notify = func(id string, u ItemUpdate) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, "s1", id)
		updates = append(updates, u)
	}

	s := NewSession("s1", opts)
	t.Cleanup(s.Close)

	_, err := s.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)

	workout, err := s.Cards(TabWorkout)
	require.NoError(t, err)
	diet, err := s.Cards(TabDiet)
	require.NoError(t, err)
	assert.Len(t, workout, 7)
	assert.Len(t, diet, 7)
	assert.Equal(t, "Upper Body", workout[0].Focus)
	assert.Empty(t, r.Prompts(), "mounting must not fetch")

	v, err := s.Toggle(TabWorkout, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, imagecache.StatusLoading, v.Status)
	s.Wait()

	assert.Equal(t, []string{"Push Ups, Upper Body exercise form, photorealistic, gym background"}, r.Prompts())

	mu.Lock()
	require.Len(t, updates, 2)
	assert.Equal(t, "ITEM_UPDATE", updates[1].Type)
	assert.Equal(t, TabWorkout, updates[1].Tab)
	assert.Equal(t, 0, updates[1].Day)
	assert.Equal(t, imagecache.StatusReady, updates[1].State.Status)
	mu.Unlock()

	_, err = s.Toggle(TabWorkout, 7, 0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Toggle(TabWorkout, 0, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRemountUsesDeviceCache(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan()}
	r := &promptRecorder{}
	opts := testOptions(gen, r)

	first := NewSession("device-a", opts)
	_, err := first.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)
	_, _ = first.Toggle(TabDiet, 0, 0)
	first.Wait()
	first.Close()

	// Same device coming back after its session was evicted.
	again := NewSession("device-a", opts)
	t.Cleanup(again.Close)
	_, err = again.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)

	cards, err := again.Cards(TabDiet)
	require.NoError(t, err)
	assert.Equal(t, imagecache.StatusReady, cards[0].Items[0].Status)
	assert.Len(t, r.Prompts(), 1)
}

func TestSessionCacheIsPerDevice(t *testing.T) {
	gen := &fakeGenerator{plan: testutil.SevenDayPlan()}
	r := &promptRecorder{}
	opts := testOptions(gen, r)

	a := NewSession("device-a", opts)
	t.Cleanup(a.Close)
	_, err := a.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)
	_, _ = a.Toggle(TabWorkout, 0, 0)
	a.Wait()

	b := NewSession("device-b", opts)
	t.Cleanup(b.Close)
	_, err = b.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)

	cards, err := b.Cards(TabWorkout)
	require.NoError(t, err)
	assert.Equal(t, imagecache.StatusIdle, cards[0].Items[0].Status)

	_, err = b.Regenerate(TabWorkout, 0, 0)
	require.NoError(t, err)
	b.Wait()

	_, ok, err := imagecache.Scoped(opts.Store, "device-a").Get(context.Background(), imagecache.Key("Day 1", "Push Ups"))
	require.NoError(t, err)
	assert.True(t, ok, "device B's regenerate must not clear device A's image")

	cards, err = a.Cards(TabWorkout)
	require.NoError(t, err)
	assert.Equal(t, imagecache.StatusReady, cards[0].Items[0].Status)
}

type cancellingGenerator struct {
	plan   *models.FitnessPlan
	cancel context.CancelFunc
}

func (g *cancellingGenerator) GeneratePlan(ctx context.Context, profile models.UserProfile) (*models.FitnessPlan, error) {
	g.cancel()
	return g.plan, nil
}

func TestSubmitMountsAfterRequestIsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gen := &cancellingGenerator{plan: testutil.SevenDayPlan(), cancel: cancel}
	s := NewSession("s", testOptions(gen, &promptRecorder{}))
	t.Cleanup(s.Close)

	_, err := s.Submit(ctx, testutil.AlexProfile())
	require.NoError(t, err)
	assert.Equal(t, StateDisplay, s.Status().State)

	cards, err := s.Cards(TabWorkout)
	require.NoError(t, err)
	assert.Len(t, cards, 7)

	_, err = s.Toggle(TabWorkout, 0, 0)
	assert.NoError(t, err)
}

func TestSessionResetUnmounts(t *testing.T) {
	s := NewSession("s", testOptions(&fakeGenerator{plan: testutil.SevenDayPlan()}, &promptRecorder{}))

	_, err := s.Submit(context.Background(), testutil.AlexProfile())
	require.NoError(t, err)
	_, err = s.Narrate(narration.SectionWorkout)
	require.NoError(t, err)

	s.Reset()

	assert.Equal(t, StateForm, s.Status().State)
	_, err = s.Cards(TabWorkout)
	assert.ErrorIs(t, err, ErrNoPlan)
	_, err = s.Toggle(TabWorkout, 0, 0)
	assert.ErrorIs(t, err, ErrNoPlan)
	assert.Equal(t, narration.Section(""), s.narrator.Speaking())
}

func TestNarrateRequiresPlan(t *testing.T) {
	s := NewSession("s", testOptions(&fakeGenerator{}, &promptRecorder{}))
	_, err := s.Narrate(narration.SectionDiet)
	assert.ErrorIs(t, err, ErrNoPlan)
}

func TestParseTab(t *testing.T) {
	tab, err := ParseTab("Workout")
	require.NoError(t, err)
	assert.Equal(t, TabWorkout, tab)

	_, err = ParseTab("cardio")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRegistry(t *testing.T) {
	reg, err := NewRegistry(2, testOptions(&fakeGenerator{plan: testutil.SevenDayPlan()}, &promptRecorder{}))
	require.NoError(t, err)
	t.Cleanup(reg.Close)

	a := reg.Get("")
	require.NotEmpty(t, a.ID)
	assert.Same(t, a, reg.Get(a.ID))

	// Unknown non-uuid ids are replaced.
	b := reg.Get("not-a-uuid")
	assert.NotEqual(t, "not-a-uuid", b.ID)

	c := reg.Get("")
	_, ok := reg.Lookup(a.ID)
	assert.False(t, ok, "least recently used session is evicted")
	_, ok = reg.Lookup(c.ID)
	assert.True(t, ok)
	assert.Equal(t, 2, reg.Len())
}
