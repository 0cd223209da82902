package progression

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/trial"
)

type recordingSubmitter struct {
	mu      sync.Mutex
	results []domain.SessionResult
	err     error
}

func (s *recordingSubmitter) Submit(_ context.Context, r domain.SessionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, r)
	return s.err
}

func (s *recordingSubmitter) calls() []domain.SessionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.SessionResult(nil), s.results...)
}

type recordingObserver struct {
	snaps []domain.Snapshot
}

func (o *recordingObserver) Publish(s domain.Snapshot) { o.snaps = append(o.snaps, s) }

type stubPreloader struct {
	warmed [][]string
}

func (p *stubPreloader) Warm(_ context.Context, urls []string) { p.warmed = append(p.warmed, urls) }

func (p *stubPreloader) Resolve(assets map[string]string) map[string]string {
	out := make(map[string]string, len(assets))
	for k := range assets {
		out[k] = "resolved:" + k
	}
	return out
}

type fixture struct {
	clock     *ManualClock
	submitter *recordingSubmitter
	observer  *recordingObserver
	preloader *stubPreloader
	ctrl      *Controller
}

func newFixture(t *testing.T, policy UnlockPolicy) *fixture {
	t.Helper()
	f := &fixture{
		clock:     NewManualClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		submitter: &recordingSubmitter{},
		observer:  &recordingObserver{},
		preloader: &stubPreloader{},
	}
	f.ctrl = NewController(Options{
		SessionID: "s-1",
		Catalog:   trial.Default(),
		Clock:     f.clock,
		Unlock:    policy,
		Submitter: f.submitter,
		Preloader: f.preloader,
		Observer:  f.observer,
	})
	if _, err := f.ctrl.Login("Alpha"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	return f
}

func (f *fixture) must(t *testing.T, snap domain.Snapshot, err error) domain.Snapshot {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return snap
}

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 1000},
		{50 * time.Second, 950},
		{1500 * time.Millisecond, 999},
		{900 * time.Second, 100},
		{901 * time.Second, 100},
		{2 * time.Hour, 100},
	}
	for _, tc := range cases {
		if got := Score(tc.elapsed); got != tc.want {
			t.Fatalf("Score(%v) = %d; want %d", tc.elapsed, got, tc.want)
		}
	}
}

func TestLogin(t *testing.T) {
	ctrl := NewController(Options{Clock: NewManualClock(time.Now())})

	if _, err := ctrl.Login("   "); !errors.Is(err, ErrEmptyTeamName) {
		t.Fatalf("blank login error = %v", err)
	}
	snap, err := ctrl.Login("  Alpha ")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if snap.TeamName != "Alpha" || snap.Screen != domain.ScreenMap {
		t.Fatalf("after login: team=%q screen=%s", snap.TeamName, snap.Screen)
	}
	if _, err := ctrl.Login("Beta"); !errors.Is(err, ErrAlreadyLoggedIn) {
		t.Fatalf("second login error = %v", err)
	}
	if got := ctrl.Snapshot().TeamName; got != "Alpha" {
		t.Fatalf("team name changed to %q", got)
	}
}

func TestLoginWarmsTerminalAssets(t *testing.T) {
	f := newFixture(t, Sequential)
	if len(f.preloader.warmed) != 1 {
		t.Fatalf("warm calls = %d; want 1", len(f.preloader.warmed))
	}
	want := trial.Default().Terminal().AssetURLs()
	if len(f.preloader.warmed[0]) != len(want) {
		t.Fatalf("warmed %v; want %v", f.preloader.warmed[0], want)
	}
}

func TestActionsBeforeLogin(t *testing.T) {
	ctrl := NewController(Options{Clock: NewManualClock(time.Now())})
	ops := map[string]func() (domain.Snapshot, error){
		"enter":  func() (domain.Snapshot, error) { return ctrl.EnterTrial(trial.Prologue) },
		"fail":   func() (domain.Snapshot, error) { return ctrl.Fail("x") },
		"answer": func() (domain.Snapshot, error) { return ctrl.SaveAnswer("x") },
		"map":    ctrl.ReturnToMap,
		"guide":  ctrl.OpenGuide,
	}
	for name, op := range ops {
		if _, err := op(); !errors.Is(err, ErrNotLoggedIn) {
			t.Fatalf("%s before login: error = %v", name, err)
		}
	}
}

func TestTrapScenario(t *testing.T) {
	f := newFixture(t, Open)

	f.must(t, f.ctrl.EnterTrial(trial.Trap))
	f.clock.Advance(50 * time.Second)
	snap := f.must(t, f.ctrl.Complete())

	if snap.Scores[trial.Trap] != 950 {
		t.Fatalf("scores[trap] = %d; want 950", snap.Scores[trial.Trap])
	}
	if !snap.Completion[trial.Trap] {
		t.Fatalf("trap not completed")
	}

	f.must(t, f.ctrl.ReturnToMap())
	f.must(t, f.ctrl.EnterTrial(trial.Trap))
	f.clock.Advance(300 * time.Second)
	snap = f.must(t, f.ctrl.Complete())

	if snap.Scores[trial.Trap] != 950 {
		t.Fatalf("replayed scores[trap] = %d; want 950", snap.Scores[trial.Trap])
	}
	if snap.TotalScore != 950 {
		t.Fatalf("total = %d; want 950", snap.TotalScore)
	}
}

func TestScoreFloorOnComplete(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.River))
	f.clock.Advance(901 * time.Second)
	if snap := f.must(t, f.ctrl.Complete()); snap.Scores[trial.River] != MinScore {
		t.Fatalf("score = %d; want %d", snap.Scores[trial.River], MinScore)
	}

	f.must(t, f.ctrl.ReturnToMap())
	f.must(t, f.ctrl.EnterTrial(trial.Dye))
	if snap := f.must(t, f.ctrl.Complete()); snap.Scores[trial.Dye] != MaxScore {
		t.Fatalf("instant score = %d; want %d", snap.Scores[trial.Dye], MaxScore)
	}
}

func TestPrologueIsNotScored(t *testing.T) {
	f := newFixture(t, Sequential)
	f.must(t, f.ctrl.EnterTrial(trial.Prologue))
	snap := f.must(t, f.ctrl.Complete())

	if _, ok := snap.Scores[trial.Prologue]; ok {
		t.Fatalf("prologue scored: %v", snap.Scores)
	}
	if !snap.Completion[trial.Prologue] {
		t.Fatalf("prologue not completed")
	}
}

func TestEducationOpensOnceAfterFeedbackCloses(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.SuccessMessage("ok"))

	f.clock.Advance(time.Second)
	if f.ctrl.Snapshot().Education.Open {
		t.Fatalf("education opened while feedback still open")
	}

	f.must(t, f.ctrl.CloseFeedback())
	if f.ctrl.Snapshot().Education.Open {
		t.Fatalf("education opened without the delay")
	}
	f.must(t, f.ctrl.CloseFeedback())
	if n := f.clock.Pending(); n != 1 {
		t.Fatalf("pending timers = %d; want 1", n)
	}

	f.clock.Advance(DefaultEducationDelay)
	snap := f.ctrl.Snapshot()
	if !snap.Education.Open || snap.Education.Trial != trial.Taxonomy || snap.Education.Lesson == nil {
		t.Fatalf("education = %+v", snap.Education)
	}

	opens := 0
	for _, s := range f.observer.snaps {
		if s.Education.Open {
			opens++
			if s.Feedback.Open {
				t.Fatalf("education shown over an open feedback modal")
			}
		}
	}
	if opens != 1 {
		t.Fatalf("education published open %d times; want 1", opens)
	}

	snap = f.must(t, f.ctrl.CloseEducation())
	if snap.Screen != domain.ScreenMap || snap.ActiveTrial != nil || snap.Education.Open {
		t.Fatalf("after education close: screen=%s active=%v education=%v", snap.Screen, snap.ActiveTrial, snap.Education.Open)
	}
}

func TestEducationNeedsCompletion(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Dye))
	f.must(t, f.ctrl.SuccessMessage("stage one cleared"))
	f.must(t, f.ctrl.CloseFeedback())
	f.clock.Advance(time.Second)

	snap := f.ctrl.Snapshot()
	if snap.Education.Open {
		t.Fatalf("education opened for an incomplete trial")
	}
	if snap.Screen != domain.ScreenTrial {
		t.Fatalf("screen = %s; want trial", snap.Screen)
	}
}

func TestFailureFeedbackNeverAdvances(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.River))
	f.must(t, f.ctrl.Complete())
	for i := 0; i < 3; i++ {
		f.must(t, f.ctrl.Fail("wrong material"))
		f.must(t, f.ctrl.CloseFeedback())
	}
	f.clock.Advance(time.Second)

	snap := f.ctrl.Snapshot()
	if snap.Education.Open || snap.Screen != domain.ScreenTrial {
		t.Fatalf("failure feedback advanced: education=%v screen=%s", snap.Education.Open, snap.Screen)
	}
	if snap.Feedback.Title != FailureTitle {
		t.Fatalf("title = %q", snap.Feedback.Title)
	}
}

func TestNoEducationWithoutActiveTrial(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.SuccessMessage("ok"))
	f.must(t, f.ctrl.CloseFeedback())
	f.clock.Advance(time.Second)

	if f.ctrl.Snapshot().Education.Open {
		t.Fatalf("education opened with no active trial")
	}
}

func TestTrapSkipsEducation(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Trap))
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.SuccessMessage("ok"))
	snap := f.must(t, f.ctrl.CloseFeedback())

	if snap.Screen != domain.ScreenMap || snap.ActiveTrial != nil {
		t.Fatalf("screen=%s active=%v; want map with no active trial", snap.Screen, snap.ActiveTrial)
	}
	f.clock.Advance(time.Second)
	for _, s := range f.observer.snaps {
		if s.Education.Open {
			t.Fatalf("education opened for trap")
		}
	}
}

func TestTrialWithoutLessonReturnsToMap(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Kuba))
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.SuccessMessage("secret found"))
	snap := f.must(t, f.ctrl.CloseFeedback())

	if snap.Screen != domain.ScreenMap || snap.Education.Open {
		t.Fatalf("screen=%s education=%v", snap.Screen, snap.Education.Open)
	}
}

func TestStaleEducationTimerIsDropped(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.SuccessMessage("ok"))
	f.must(t, f.ctrl.CloseFeedback())

	f.must(t, f.ctrl.ReturnToMap())
	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
	f.clock.Advance(time.Second)

	snap := f.ctrl.Snapshot()
	if snap.Education.Open {
		t.Fatalf("stale education modal opened")
	}
	if snap.Screen != domain.ScreenTrial {
		t.Fatalf("screen = %s; want trial", snap.Screen)
	}
}

func TestSaveAnswerOverwrites(t *testing.T) {
	f := newFixture(t, Open)
	if _, err := f.ctrl.SaveAnswer("too early"); !errors.Is(err, ErrNoActiveTrial) {
		t.Fatalf("SaveAnswer without trial: %v", err)
	}

	f.must(t, f.ctrl.EnterTrial(trial.Final))
	f.must(t, f.ctrl.SaveAnswer("draft one"))
	snap := f.must(t, f.ctrl.SaveAnswer("draft two"))
	if snap.Answers[trial.Final] != "draft two" {
		t.Fatalf("answer = %q", snap.Answers[trial.Final])
	}

	f.must(t, f.ctrl.ReturnToMap())
	snap = f.must(t, f.ctrl.EnterTrial(trial.Final))
	if snap.ActiveTrial.InitialAnswer != "draft two" {
		t.Fatalf("initial answer = %q", snap.ActiveTrial.InitialAnswer)
	}
}

func TestFinalSubmitsOnce(t *testing.T) {
	f := newFixture(t, Open)

	f.must(t, f.ctrl.EnterTrial(trial.Trap))
	f.clock.Advance(50 * time.Second)
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.ReturnToMap())

	f.must(t, f.ctrl.EnterTrial(trial.Final))
	f.must(t, f.ctrl.SaveAnswer("proposal"))
	f.clock.Advance(10 * time.Second)
	snap := f.must(t, f.ctrl.Complete())

	if !snap.Feedback.Open || !snap.Feedback.Success {
		t.Fatalf("final completion message not shown: %+v", snap.Feedback)
	}
	if len(f.submitter.calls()) != 0 {
		t.Fatalf("submitted before the delay")
	}

	f.clock.Advance(DefaultSubmissionDelay)
	calls := f.submitter.calls()
	if len(calls) != 1 {
		t.Fatalf("submissions = %d; want 1", len(calls))
	}
	got := calls[0]
	if got.TotalScore != 950+990 {
		t.Fatalf("total = %d; want %d", got.TotalScore, 950+990)
	}
	if got.TeamName != "Alpha" || got.Answers[trial.Final] != "proposal" || !got.Progress[trial.Final] {
		t.Fatalf("result = %+v", got)
	}

	f.clock.Advance(time.Minute)
	if n := len(f.submitter.calls()); n != 1 {
		t.Fatalf("submissions after wait = %d; want 1", n)
	}
}

func TestSubmissionFailureLeavesSessionFinished(t *testing.T) {
	f := newFixture(t, Open)
	f.submitter.err = errors.New("connection refused")

	f.must(t, f.ctrl.EnterTrial(trial.Final))
	f.must(t, f.ctrl.Complete())
	f.clock.Advance(DefaultSubmissionDelay)
	f.must(t, f.ctrl.CloseFeedback())
	f.clock.Advance(DefaultEducationDelay)

	snap := f.ctrl.Snapshot()
	if !snap.Completion[trial.Final] {
		t.Fatalf("final not completed")
	}
	if !snap.Education.Open || snap.Education.Trial != trial.Final {
		t.Fatalf("final lesson not shown after failed submission: %+v", snap.Education)
	}
}

func TestSequentialUnlock(t *testing.T) {
	f := newFixture(t, Sequential)

	if _, err := f.ctrl.EnterTrial(trial.Taxonomy); !errors.Is(err, ErrTrialLocked) {
		t.Fatalf("taxonomy before prologue: %v", err)
	}
	if _, err := f.ctrl.EnterTrial(trial.Pharmacy); !errors.Is(err, ErrTrialLocked) {
		t.Fatalf("pharmacy before prologue: %v", err)
	}

	f.must(t, f.ctrl.EnterTrial(trial.Prologue))
	f.must(t, f.ctrl.Complete())
	snap := f.must(t, f.ctrl.ReturnToMap())

	states := map[trial.ID]domain.NodeState{}
	for _, n := range snap.Map {
		states[n.ID] = n.State
	}
	if states[trial.Prologue] != domain.NodeCompleted || states[trial.Taxonomy] != domain.NodeAvailable || states[trial.Final] != domain.NodeLocked {
		t.Fatalf("map states = %v", states)
	}
	if _, ok := states[trial.Granary]; ok {
		t.Fatalf("practice trial listed on the map")
	}

	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
}

func TestEnterTrialErrors(t *testing.T) {
	f := newFixture(t, Open)
	if _, err := f.ctrl.EnterTrial("volcano"); !errors.Is(err, trial.ErrUnknownTrial) {
		t.Fatalf("unknown trial: %v", err)
	}
	f.must(t, f.ctrl.OpenGuide())
	if _, err := f.ctrl.EnterTrial(trial.Dye); !errors.Is(err, ErrWrongScreen) {
		t.Fatalf("enter from guide: %v", err)
	}
	f.must(t, f.ctrl.CloseGuide())
	f.must(t, f.ctrl.EnterTrial(trial.Dye))
	if _, err := f.ctrl.EnterTrial(trial.River); !errors.Is(err, ErrWrongScreen) {
		t.Fatalf("enter from trial: %v", err)
	}
}

func TestEnterTrialResolvesAssets(t *testing.T) {
	f := newFixture(t, Open)
	snap := f.must(t, f.ctrl.EnterTrial(trial.Dye))

	dye, _ := trial.Default().Get(trial.Dye)
	for name := range dye.Assets {
		if snap.ActiveTrial.Assets[name] != "resolved:"+name {
			t.Fatalf("asset %s = %q", name, snap.ActiveTrial.Assets[name])
		}
	}
	if len(f.preloader.warmed) != 2 {
		t.Fatalf("warm calls = %d; want 2", len(f.preloader.warmed))
	}
}

func TestVersionIncreasesOnEveryChange(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Dye))
	f.must(t, f.ctrl.Fail("no"))
	f.must(t, f.ctrl.CloseFeedback())

	var last uint64
	for _, s := range f.observer.snaps {
		if s.Version <= last {
			t.Fatalf("version %d after %d", s.Version, last)
		}
		last = s.Version
	}
	if len(f.observer.snaps) != 4 {
		t.Fatalf("published %d snapshots; want 4", len(f.observer.snaps))
	}
}

func TestCloseStopsPendingEducation(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
	f.must(t, f.ctrl.Complete())
	f.must(t, f.ctrl.SuccessMessage("ok"))
	f.must(t, f.ctrl.CloseFeedback())

	f.ctrl.Close()
	if n := f.clock.Pending(); n != 0 {
		t.Fatalf("pending timers after Close = %d", n)
	}
}

func TestClosedControllerRejectsEvents(t *testing.T) {
	f := newFixture(t, Open)
	f.must(t, f.ctrl.EnterTrial(trial.Final))
	f.ctrl.Close()

	version := f.ctrl.Snapshot().Version
	if _, err := f.ctrl.Complete(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("Complete after Close = %v; want ErrSessionClosed", err)
	}
	if _, err := f.ctrl.SaveAnswer("late"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("SaveAnswer after Close = %v; want ErrSessionClosed", err)
	}
	if _, err := f.ctrl.ReturnToMap(); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("ReturnToMap after Close = %v; want ErrSessionClosed", err)
	}

	f.clock.Advance(time.Second)
	if n := len(f.submitter.calls()); n != 0 {
		t.Fatalf("submissions after Close = %d; want 0", n)
	}
	if got := f.ctrl.Snapshot().Version; got != version {
		t.Fatalf("version moved after Close: %d -> %d", version, got)
	}
}

func TestSaveTerminalAnswer(t *testing.T) {
	f := newFixture(t, Open)
	draft := func(answers map[trial.ID]string) (string, error) {
		return "draft:" + answers[trial.Taxonomy], nil
	}

	if _, _, err := f.ctrl.SaveTerminalAnswer(draft); !errors.Is(err, ErrNoActiveTrial) {
		t.Fatalf("outside a trial = %v; want ErrNoActiveTrial", err)
	}

	f.must(t, f.ctrl.EnterTrial(trial.Taxonomy))
	f.must(t, f.ctrl.SaveAnswer("fibre"))
	if _, _, err := f.ctrl.SaveTerminalAnswer(draft); !errors.Is(err, ErrWrongScreen) {
		t.Fatalf("in taxonomy = %v; want ErrWrongScreen", err)
	}
	if got := f.ctrl.Snapshot().Answers[trial.Taxonomy]; got != "fibre" {
		t.Fatalf("taxonomy answer overwritten: %q", got)
	}

	f.must(t, f.ctrl.ReturnToMap())
	f.must(t, f.ctrl.EnterTrial(trial.Final))
	text, snap, err := f.ctrl.SaveTerminalAnswer(draft)
	if err != nil {
		t.Fatalf("SaveTerminalAnswer: %v", err)
	}
	if text != "draft:fibre" || snap.Answers[trial.Final] != text {
		t.Fatalf("text = %q, final answer = %q", text, snap.Answers[trial.Final])
	}

	failing := func(map[trial.ID]string) (string, error) { return "", errors.New("template broken") }
	if _, _, err := f.ctrl.SaveTerminalAnswer(failing); err == nil {
		t.Fatalf("draft error was swallowed")
	}
	if got := f.ctrl.Snapshot().Answers[trial.Final]; got != "draft:fibre" {
		t.Fatalf("failed draft changed the answer to %q", got)
	}
}
