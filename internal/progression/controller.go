package progression

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"hunter_trials/internal/domain"
	"hunter_trials/internal/logger"
	"hunter_trials/internal/metrics"
	"hunter_trials/internal/session"
	"hunter_trials/internal/trial"
)

var (
	ErrNotLoggedIn     = errors.New("not logged in")
	ErrAlreadyLoggedIn = errors.New("already logged in")
	ErrEmptyTeamName   = errors.New("team name is empty")
	ErrWrongScreen     = errors.New("action not allowed on this screen")
	ErrTrialLocked     = errors.New("trial is locked")
	ErrNoActiveTrial   = errors.New("no active trial")
	ErrSessionClosed   = errors.New("session closed")
)

const (
	FailureTitle = "試煉失敗"
	SuccessTitle = "試煉通過"

	DefaultEducationDelay    = 300 * time.Millisecond
	DefaultSubmissionDelay   = 100 * time.Millisecond
	DefaultSubmissionTimeout = 10 * time.Second
)

// Submitter receives the final result of a session. Errors are logged by the
// controller and never reach the team.
type Submitter interface {
	Submit(ctx context.Context, result domain.SessionResult) error
}

// Preloader warms trial media. Warm must return without waiting for the
// probes to finish.
type Preloader interface {
	Warm(ctx context.Context, urls []string)
	Resolve(assets map[string]string) map[string]string
}

// Observer is notified of every state change. Publish is called with the
// controller lock held, so it must not block or call back into the controller.
type Observer interface {
	Publish(snap domain.Snapshot)
}

type Options struct {
	SessionID         string
	Catalog           *trial.Catalog
	Clock             Clock
	Unlock            UnlockPolicy
	Submitter         Submitter
	Preloader         Preloader
	Observer          Observer
	EducationDelay    time.Duration
	SubmissionDelay   time.Duration
	SubmissionTimeout time.Duration
}

type run struct {
	id        trial.ID
	startedAt time.Time
}

// Controller owns the session state of one team and serializes every event
// that reaches it: navigation, trial callbacks and modal dismissals.
type Controller struct {
	opts Options

	ctx    context.Context
	cancel context.CancelFunc

	mu           sync.Mutex
	state        *session.State
	screen       domain.Screen
	active       *run
	feedback     domain.FeedbackModal
	education    domain.EducationModal
	pending      Timer
	closed       bool
	navGen       uint64
	version      uint64
	lastActivity time.Time
}

func NewController(opts Options) *Controller {
	if opts.Catalog == nil {
		opts.Catalog = trial.Default()
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock()
	}
	if opts.EducationDelay <= 0 {
		opts.EducationDelay = DefaultEducationDelay
	}
	if opts.SubmissionDelay <= 0 {
		opts.SubmissionDelay = DefaultSubmissionDelay
	}
	if opts.SubmissionTimeout <= 0 {
		opts.SubmissionTimeout = DefaultSubmissionTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		opts:         opts,
		ctx:          ctx,
		cancel:       cancel,
		screen:       domain.ScreenLogin,
		lastActivity: opts.Clock.Now(),
	}
}

func (c *Controller) SessionID() string { return c.opts.SessionID }

func (c *Controller) Catalog() *trial.Catalog { return c.opts.Catalog }

// Close stops pending timers and in-flight preloads. Every later event fails
// with ErrSessionClosed. A submission scheduled before Close still runs.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.navGen++
	c.stopPending()
	c.cancel()
}

func (c *Controller) LastActivity() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastActivity
}

func (c *Controller) Snapshot() domain.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Login starts the session for a team and moves to the map.
func (c *Controller) Login(teamName string) (domain.Snapshot, error) {
	name := strings.TrimSpace(teamName)
	return c.mutate(func() error {
		if c.state != nil {
			return ErrAlreadyLoggedIn
		}
		if name == "" {
			return ErrEmptyTeamName
		}
		c.state = session.New(name, c.opts.Catalog.Counted())
		c.screen = domain.ScreenMap
		c.warm(c.opts.Catalog.Terminal().AssetURLs())
		return nil
	})
}

// EnterTrial starts a run of an unlocked trial from the map.
func (c *Controller) EnterTrial(id trial.ID) (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		t, ok := c.opts.Catalog.Get(id)
		if !ok {
			return trial.ErrUnknownTrial
		}
		if c.screen != domain.ScreenMap {
			return ErrWrongScreen
		}
		if !c.opts.Unlock.Unlocked(t, c.state.Completed) {
			return ErrTrialLocked
		}

		c.navGen++
		c.stopPending()
		c.feedback = domain.FeedbackModal{}
		c.education = domain.EducationModal{}
		c.active = &run{id: id, startedAt: c.opts.Clock.Now()}
		c.screen = domain.ScreenTrial
		c.warm(t.AssetURLs())
		metrics.TrialsEntered.WithLabelValues(string(id)).Inc()
		return nil
	})
}

// ReturnToMap leaves the current trial. A pending education modal for that
// trial is dropped.
func (c *Controller) ReturnToMap() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		c.returnToMap()
		return nil
	})
}

func (c *Controller) OpenGuide() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if c.screen != domain.ScreenMap {
			return ErrWrongScreen
		}
		c.screen = domain.ScreenGuide
		return nil
	})
}

func (c *Controller) CloseGuide() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if c.screen != domain.ScreenGuide {
			return ErrWrongScreen
		}
		c.screen = domain.ScreenMap
		return nil
	})
}

// Fail shows a failure message. Progress is untouched and the trial stays active.
func (c *Controller) Fail(message string) (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		c.openFeedback(false, message)
		return nil
	})
}

// SuccessMessage shows a success message. It does not complete the trial.
func (c *Controller) SuccessMessage(message string) (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		c.openFeedback(true, message)
		return nil
	})
}

// Complete scores and completes the active trial. Completing the terminal
// trial also shows its completion message and schedules the submission.
func (c *Controller) Complete() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if c.active == nil {
			return ErrNoActiveTrial
		}
		id := c.active.id
		t, _ := c.opts.Catalog.Get(id)

		if t.Scored() {
			score := Score(c.opts.Clock.Now().Sub(c.active.startedAt))
			if c.state.RecordScore(id, score) {
				metrics.TrialScores.WithLabelValues(string(id)).Observe(float64(score))
			}
		}
		c.state.MarkComplete(id)
		metrics.TrialsCompleted.WithLabelValues(string(id)).Inc()

		if t.Terminal {
			if t.CompletionMessage != "" {
				c.openFeedback(true, t.CompletionMessage)
			}
			c.scheduleSubmission(c.resultLocked())
		}
		return nil
	})
}

// SaveAnswer stores text as the active trial's answer.
func (c *Controller) SaveAnswer(text string) (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if c.active == nil {
			return ErrNoActiveTrial
		}
		c.state.RecordAnswer(c.active.id, text)
		return nil
	})
}

// SaveTerminalAnswer drafts an answer for the terminal trial and saves it in
// one step. draft sees the answers recorded so far.
func (c *Controller) SaveTerminalAnswer(draft func(answers map[trial.ID]string) (string, error)) (string, domain.Snapshot, error) {
	var text string
	snap, err := c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if c.active == nil {
			return ErrNoActiveTrial
		}
		if c.active.id != c.opts.Catalog.Terminal().ID {
			return ErrWrongScreen
		}
		t, err := draft(c.state.Answers())
		if err != nil {
			return err
		}
		c.state.RecordAnswer(c.active.id, t)
		text = t
		return nil
	})
	return text, snap, err
}

// CloseFeedback dismisses the feedback modal. Closing a success message of a
// completed trial leads to its lesson, or straight back to the map for trials
// without one.
func (c *Controller) CloseFeedback() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		wasOpen := c.feedback.Open
		c.feedback.Open = false
		if wasOpen {
			c.afterFeedbackClosed()
		}
		return nil
	})
}

// CloseEducation dismisses the lesson and returns to the map.
func (c *Controller) CloseEducation() (domain.Snapshot, error) {
	return c.mutate(func() error {
		if c.state == nil {
			return ErrNotLoggedIn
		}
		if !c.education.Open {
			return nil
		}
		c.returnToMap()
		return nil
	})
}

func (c *Controller) mutate(fn func() error) (domain.Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return c.snapshotLocked(), ErrSessionClosed
	}
	if err := fn(); err != nil {
		return c.snapshotLocked(), err
	}
	return c.commitLocked(), nil
}

func (c *Controller) commitLocked() domain.Snapshot {
	c.version++
	c.lastActivity = c.opts.Clock.Now()
	snap := c.snapshotLocked()
	if c.opts.Observer != nil {
		c.opts.Observer.Publish(snap)
	}
	return snap
}

func (c *Controller) openFeedback(success bool, message string) {
	title := FailureTitle
	if success {
		title = SuccessTitle
	}
	c.feedback = domain.FeedbackModal{Open: true, Success: success, Title: title, Message: message}
}

func (c *Controller) afterFeedbackClosed() {
	if !c.feedback.Success || c.active == nil || c.education.Open || c.pending != nil {
		return
	}
	id := c.active.id
	if !c.state.Completed(id) {
		return
	}

	t, _ := c.opts.Catalog.Get(id)
	if _, ok := c.opts.Catalog.Lesson(id); t.SkipsEducation || !ok {
		c.returnToMap()
		return
	}

	gen := c.navGen
	c.pending = c.opts.Clock.AfterFunc(c.opts.EducationDelay, func() {
		c.openEducation(gen, id)
	})
}

func (c *Controller) openEducation(gen uint64, id trial.ID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.navGen {
		return
	}
	c.pending = nil
	if c.active == nil || c.active.id != id || c.feedback.Open || c.education.Open {
		logger.Debug("education modal dropped", "session_id", c.opts.SessionID, "trial", id)
		return
	}

	lesson, ok := c.opts.Catalog.Lesson(id)
	if !ok {
		return
	}
	c.education = domain.EducationModal{Open: true, Trial: id, Lesson: &lesson}
	c.commitLocked()
}

func (c *Controller) returnToMap() {
	c.navGen++
	c.stopPending()
	c.education = domain.EducationModal{}
	c.active = nil
	c.screen = domain.ScreenMap
}

func (c *Controller) stopPending() {
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) warm(urls []string) {
	if c.opts.Preloader == nil || len(urls) == 0 {
		return
	}
	c.opts.Preloader.Warm(c.ctx, urls)
}

func (c *Controller) resultLocked() domain.SessionResult {
	return domain.SessionResult{
		SessionID:   c.opts.SessionID,
		TeamName:    c.state.TeamName(),
		SubmittedAt: c.opts.Clock.Now().UTC(),
		Scores:      c.state.Scores(),
		Progress:    c.state.Completion(),
		Answers:     c.state.Answers(),
		TotalScore:  c.state.TotalScore(),
	}
}

// scheduleSubmission hands the result to the submitter after a short delay.
// The submission outcome never affects the session.
func (c *Controller) scheduleSubmission(result domain.SessionResult) {
	if c.opts.Submitter == nil {
		return
	}
	submitter := c.opts.Submitter
	timeout := c.opts.SubmissionTimeout
	c.opts.Clock.AfterFunc(c.opts.SubmissionDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := submitter.Submit(ctx, result); err != nil {
			logger.Warn("result submission failed", "session_id", result.SessionID, "team", result.TeamName, "error", err)
		}
	})
}

func (c *Controller) snapshotLocked() domain.Snapshot {
	snap := domain.Snapshot{
		SessionID: c.opts.SessionID,
		Version:   c.version,
		Screen:    c.screen,
		Feedback:  c.feedback,
		Education: c.education,
	}
	if c.education.Lesson != nil {
		lesson := *c.education.Lesson
		snap.Education.Lesson = &lesson
	}
	if c.state == nil {
		return snap
	}

	snap.TeamName = c.state.TeamName()
	snap.Completion = c.state.Completion()
	snap.Scores = c.state.Scores()
	snap.Answers = c.state.Answers()
	snap.TotalScore = c.state.TotalScore()
	snap.Progress = c.state.ProgressPercent()
	snap.Map = c.mapLocked()

	if c.active != nil {
		t, _ := c.opts.Catalog.Get(c.active.id)
		answer, _ := c.state.Answer(c.active.id)
		assets := t.Assets
		if c.opts.Preloader != nil {
			assets = c.opts.Preloader.Resolve(assets)
		}
		snap.ActiveTrial = &domain.ActiveTrial{
			ID:            t.ID,
			Title:         t.Title,
			InitialAnswer: answer,
			Assets:        assets,
			StartedAt:     c.active.startedAt,
		}
	}
	return snap
}

func (c *Controller) mapLocked() []domain.MapNode {
	var nodes []domain.MapNode
	for _, t := range c.opts.Catalog.All() {
		if !t.OnMap() {
			continue
		}
		state := domain.NodeLocked
		switch {
		case c.state.Completed(t.ID):
			state = domain.NodeCompleted
		case c.opts.Unlock.Unlocked(t, c.state.Completed):
			state = domain.NodeAvailable
		}
		nodes = append(nodes, domain.MapNode{
			ID:       t.ID,
			Title:    t.Title,
			Subtitle: t.Subtitle,
			Kind:     t.Kind,
			State:    state,
		})
	}
	return nodes
}
