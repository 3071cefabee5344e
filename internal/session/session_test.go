package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jehaby/smarthomebot/internal/chat"
	"github.com/jehaby/smarthomebot/internal/chat/chattest"
	"github.com/jehaby/smarthomebot/internal/media"
	"github.com/jehaby/smarthomebot/internal/settings"
	"github.com/jehaby/smarthomebot/internal/state"
	"github.com/jehaby/smarthomebot/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice int64 = 100
	bob   int64 = 200
	eve   int64 = 666
)

var cams = []media.Camera{{Name: "door"}, {Name: "garden"}}

type fakeQueue struct {
	mu       sync.Mutex
	tasks    []*media.Task
	disabled map[media.Category]bool
}

func (q *fakeQueue) Enqueue(_ context.Context, t *media.Task) error {
	if q.disabled[t.Category] {
		return worker.ErrDisabled
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, t)
	return nil
}

func (q *fakeQueue) Enabled(c media.Category) bool { return !q.disabled[c] }

func (q *fakeQueue) all() []*media.Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*media.Task(nil), q.tasks...)
}

type fakeScheduler struct {
	mu        sync.Mutex
	jobs      map[int64]int
	cams      map[int64][]media.Camera
	cancelled []int64
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: map[int64]int{}, cams: map[int64][]media.Camera{}}
}

func (f *fakeScheduler) Set(chatID int64, secs int, cameras []media.Camera) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.jobs, chatID)
	if secs > 0 {
		f.jobs[chatID] = secs
		f.cams[chatID] = cameras
	}
}

func (f *fakeScheduler) Cancel(chatID int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[chatID]; ok {
		f.cancelled = append(f.cancelled, chatID)
	}
	delete(f.jobs, chatID)
}

func (f *fakeScheduler) count(chatID int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jobs[chatID]; ok {
		return 1
	}
	return 0
}

type fixture struct {
	m     *Manager
	rec   *chattest.Recorder
	q     *fakeQueue
	sched *fakeScheduler
	st    *state.Shared
	set   *settings.Map
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		rec:   &chattest.Recorder{},
		q:     &fakeQueue{disabled: map[media.Category]bool{}},
		sched: newFakeScheduler(),
		st:    state.New(true),
		set:   settings.NewMap(nil),
	}
	opt := Options{Authorized: []int64{alice, bob}, Cameras: cams, AudioEnabled: true}
	if mutate != nil {
		mutate(&opt)
	}
	f.m = NewManager(opt, Deps{Sender: f.rec, State: f.st, Queue: f.q, Scheduler: f.sched, Settings: f.set})
	return f
}

func (f *fixture) text(chatID int64, text string) {
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: chatID, Kind: chat.KindText, Text: text, From: "Alice"})
}

func (f *fixture) lastText(t *testing.T, chatID int64) string {
	t.Helper()
	var last string
	for _, s := range f.rec.OfKind("text") {
		if s.ChatID == chatID {
			last = s.Text
		}
	}
	require.NotEmpty(t, last, "no text sent to %d", chatID)
	return last
}

func TestUnauthorizedChatGetsNothing(t *testing.T) {
	f := newFixture(t, nil)
	f.text(eve, "/snapshot")
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: eve, Kind: chat.KindCallback, Data: cbCameraAll})
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: eve, Kind: chat.KindVoice, FileID: "x"})

	require.Empty(t, f.q.all())
	require.False(t, f.m.Active(eve))
	require.Zero(t, f.sched.count(eve))
	for _, s := range f.rec.All() {
		require.Equal(t, eve, s.ChatID)
		require.Equal(t, msgUnauthorized, s.Text)
	}
}

func TestSnapshotIntervalRoundTrip(t *testing.T) {
	f := newFixture(t, nil)

	f.text(alice, "/snapshot interval")
	assert.Equal(t, "Snapshot interval not set.", f.lastText(t, alice))

	f.text(alice, "/snapshot interval 30")
	f.text(alice, "/snapshot interval")
	assert.Contains(t, f.lastText(t, alice), "30")
	assert.Equal(t, 1, f.sched.count(alice))
	assert.Equal(t, 30, f.set.Get(alice).SnapshotIntervalSecs)

	f.text(alice, "/snapshot interval 0")
	assert.Zero(t, f.sched.count(alice))
	assert.Equal(t, "Snapshot interval not set.", f.lastText(t, alice))

	f.text(alice, "/snapshot interval soon")
	assert.Contains(t, f.lastText(t, alice), "Invalid interval")
}

func TestSnapshotIntervalOutOfRange(t *testing.T) {
	f := newFixture(t, nil)

	f.text(alice, "/snapshot interval 30")
	for _, v := range []string{"10000000000", "604801", "99999999999999999999"} {
		f.text(alice, "/snapshot interval "+v)
		assert.Contains(t, f.lastText(t, alice), msgIntervalUse)
	}
	// the previous job and setting stay in place
	assert.Equal(t, 1, f.sched.count(alice))
	assert.Equal(t, 30, f.set.Get(alice).SnapshotIntervalSecs)

	f.text(alice, "/snapshot interval 604800")
	assert.Equal(t, 604800, f.set.Get(alice).SnapshotIntervalSecs)
}

func TestOpenReinstallsPersistedJob(t *testing.T) {
	f := newFixture(t, nil)
	f.set.Put(settings.ChatSettings{ChatID: bob, SnapshotIntervalSecs: 60, Cameras: []string{"garden"}})

	f.text(bob, "/help")
	require.Equal(t, 1, f.sched.count(bob))
	require.Equal(t, []media.Camera{{Name: "garden"}}, f.sched.cams[bob])
	require.Equal(t, helpText, f.lastText(t, bob))
}

func TestAlertingCommandsBroadcast(t *testing.T) {
	cases := []struct {
		text string
		want bool
	}{
		{"/disable", false},
		{"/enable", true},
		{"OFF", false},
		{"Ein", true},
		{"stop", false},
		{"1", true},
		{"aus", false},
		{"go", true},
		{"0", false},
		{"on", true},
	}
	f := newFixture(t, nil)
	for _, tc := range cases {
		f.rec.Reset()
		f.text(alice, tc.text)
		require.Equal(t, tc.want, f.st.Alerting(), tc.text)
		texts := f.rec.OfKind("text")
		require.Len(t, texts, 2, tc.text)
		require.ElementsMatch(t, []int64{alice, bob}, []int64{texts[0].ChatID, texts[1].ChatID})
	}

	f.text(alice, "/toggle")
	require.False(t, f.st.Alerting())
	f.text(alice, "/toggle")
	require.True(t, f.st.Alerting())
}

func TestSynonymsNeedSingleWord(t *testing.T) {
	f := newFixture(t, nil)
	f.text(alice, "stop that")
	require.True(t, f.st.Alerting())
	require.Equal(t, msgFallback, f.lastText(t, alice))
}

func TestCommands(t *testing.T) {
	f := newFixture(t, nil)

	f.text(alice, "/uptime")
	assert.Contains(t, f.lastText(t, alice), "Up for")

	f.text(alice, "/frobnicate")
	assert.Contains(t, f.lastText(t, alice), "Unknown command /frobnicate")

	f.text(alice, "/Start")
	assert.Contains(t, f.lastText(t, alice), "Unknown command")

	f.text(alice, "hello there")
	assert.Equal(t, msgFallback, f.lastText(t, alice))

	f.rec.Reset()
	f.text(alice, "/start@HomeBot")
	menus := f.rec.OfKind("menu")
	require.Len(t, menus, 1)
	assert.Equal(t, cbAlertOff, menus[0].Menu[0][0].Data)
	assert.Contains(t, f.lastText(t, alice), "Alerting is on")
}

func TestSnapshotMenuAndCallback(t *testing.T) {
	f := newFixture(t, nil)
	f.text(alice, "/snapshot")
	menus := f.rec.OfKind("menu")
	require.Len(t, menus, 1)
	require.Len(t, menus[0].Menu, len(cams)+2)

	f.rec.Reset()
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindCallback, Data: "cam:1"})
	tasks := f.q.all()
	require.Len(t, tasks, 1)
	require.Equal(t, media.CategorySnapshot, tasks[0].Category)
	require.Equal(t, alice, tasks[0].ChatID)
	require.Equal(t, []media.Camera{{Name: "garden"}}, tasks[0].Cameras)

	require.NotNil(t, tasks[0].Done)
	tasks[0].Done(context.Background())
	require.Len(t, f.rec.OfKind("menu"), 1, "menu re-rendered after delivery")

	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindCallback, Data: cbCameraAll})
	require.Len(t, f.q.all()[1].Cameras, 2)

	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindCallback, Data: "cam:9"})
	require.Len(t, f.q.all(), 2)
}

func TestAlertCallbackRerendersMainMenu(t *testing.T) {
	f := newFixture(t, nil)
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindCallback, Data: cbAlertOff})
	require.False(t, f.st.Alerting())
	menus := f.rec.OfKind("menu")
	require.Len(t, menus, 1)
	require.Equal(t, cbAlertOn, menus[0].Menu[0][0].Data)
}

func TestSnapshotCameras(t *testing.T) {
	f := newFixture(t, nil)
	f.text(alice, "/snapshot interval 10")
	f.text(alice, "/snapshot cameras door")
	require.Equal(t, []media.Camera{{Name: "door"}}, f.sched.cams[alice])

	f.text(alice, "/snapshot cameras attic")
	require.Contains(t, f.lastText(t, alice), "Unknown camera")

	f.text(alice, "/snapshot cameras")
	require.Equal(t, cams, f.sched.cams[alice])
}

func TestSnapshotDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.q.disabled[media.CategorySnapshot] = true
	f.text(alice, "/snapshot interval 30")
	require.Equal(t, msgNoSnapshots, f.lastText(t, alice))
	require.Zero(t, f.sched.count(alice))
}

func TestVoice(t *testing.T) {
	f := newFixture(t, nil)
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindVoice, FileID: "abc"})
	tasks := f.q.all()
	require.Len(t, tasks, 1)
	require.Equal(t, media.CategoryVoice, tasks[0].Category)
	require.Equal(t, "abc", tasks[0].FileID)

	g := newFixture(t, func(o *Options) { o.AudioEnabled = false })
	g.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindVoice, FileID: "abc"})
	require.Empty(t, g.q.all())
	require.Equal(t, msgNoVoice, g.lastText(t, alice))
}

func TestOtherContentFallbacks(t *testing.T) {
	f := newFixture(t, nil)
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindSticker})
	require.Contains(t, f.lastText(t, alice), "sticker")
	f.m.Dispatch(context.Background(), chat.Inbound{ChatID: alice, Kind: chat.KindOther, OtherType: "video_note"})
	require.Contains(t, f.lastText(t, alice), "video_note")
	require.Empty(t, f.q.all())
}

func TestIdleTimeoutCancelsJob(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.IdleTimeout = 30 * time.Millisecond })
	f.text(alice, "/snapshot interval 30")
	require.Equal(t, 1, f.sched.count(alice))

	require.Eventually(t, func() bool { return !f.m.Active(alice) }, time.Second, 5*time.Millisecond)
	require.Zero(t, f.sched.count(alice))
	require.Equal(t, msgExpired, f.lastText(t, alice))

	// the interval survives in settings and comes back with the next session
	f.text(alice, "/uptime")
	require.Equal(t, 1, f.sched.count(alice))
}

func TestCloseAll(t *testing.T) {
	f := newFixture(t, nil)
	f.text(alice, "/snapshot interval 5")
	f.text(bob, "/snapshot interval 7")
	f.m.CloseAll()
	require.False(t, f.m.Active(alice))
	require.False(t, f.m.Active(bob))
	require.ElementsMatch(t, []int64{alice, bob}, f.sched.cancelled)
}
