// internal/game/session.go
package game

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DOYOUNG-0314/kissingyou/internal/cache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OnSessionEndFunc is called once when a session reaches PhaseFinished, after the
// final events have been broadcast. The room uses it to clear readiness.
type OnSessionEndFunc func(roomID, sessionID uuid.UUID, ranking []Standing)

// ActionPublisher receives the session's action stream. *cache.Publisher satisfies it.
type ActionPublisher interface {
	PublishSessionAction(ctx context.Context, record cache.SessionActionRecord) error
}

const (
	inboxSize      = 32
	publishTimeout = 2 * time.Second
)

type message interface{}

type commandMsg struct {
	ev    Event
	reply chan error
}

type timerMsg struct {
	phase Phase
	round int
}

type verdictMsg struct {
	round   int
	verdict Verdict
}

// Session runs one game. All state changes happen on a single goroutine that
// feeds events through Apply; other goroutines only see Snapshot copies.
type Session struct {
	ID     uuid.UUID
	RoomID uuid.UUID

	// Scheduler drives phase timers. Defaults to the system clock.
	Scheduler Scheduler
	// BroadcastFn is used to send events to the room. If nil, no broadcast is done.
	// It is called from the session goroutine and must not block.
	BroadcastFn func(ev SessionEvent)
	// OnSessionEnd is invoked once at PhaseFinished.
	OnSessionEnd OnSessionEndFunc
	// Publisher, if set, receives every accepted action.
	Publisher ActionPublisher

	log    *logrus.Entry
	oracle Oracle
	pool   *KeywordPool

	snapMu   sync.RWMutex
	snapshot Snapshot

	inbox      chan message
	quit       chan struct{}
	done       chan struct{}
	started    atomic.Bool
	closeOnce  sync.Once
	finishOnce sync.Once

	// owned by the run goroutine
	state        State
	timer        Stopper
	deadline     time.Time
	judgeCancel  context.CancelFunc
	delayElapsed bool
	verdict      *Verdict
	actionIndex  int
}

// NewSession wraps an initial state. Call Start to begin processing.
func NewSession(state State, oracle Oracle, pool *KeywordPool, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Session{
		ID:        state.ID,
		RoomID:    state.RoomID,
		Scheduler: NewSystemScheduler(),
		log:       logger.WithFields(logrus.Fields{"session": state.ID, "room": state.RoomID}),
		oracle:    oracle,
		pool:      pool,
		inbox:     make(chan message, inboxSize),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		state:     state,
	}
	s.snapshot = snapshotOf(state, time.Time{})
	return s
}

// Start broadcasts the opening state and launches the session goroutine.
// Calling it more than once has no effect.
func (s *Session) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	select {
	case <-s.quit:
		s.finishOnce.Do(func() { close(s.done) })
		return
	default:
	}

	snap := s.Snapshot()
	s.fireEvent(phaseEvent(EventSessionStart, snap, ""))
	s.logAction(uuid.Nil, "session_start", map[string]interface{}{
		"totalRounds": s.state.TotalRounds,
		"performers":  len(s.state.TurnOrder),
		"keyword":     s.state.ActiveKeyword.Word,
	})
	go s.run()
}

// Close stops the session without finishing it. Pending timers and oracle calls
// are cancelled and no further events are broadcast.
func (s *Session) Close() {
	s.closeOnce.Do(func() { close(s.quit) })
	if s.started.Load() {
		<-s.done
		return
	}
	s.finishOnce.Do(func() { close(s.done) })
}

// Done is closed when the session has finished or been closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Snapshot returns the latest published view of the session.
func (s *Session) Snapshot() Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snapshot
}

// BeginPerformance asks the engine to start the caller's performance.
func (s *Session) BeginPerformance(ctx context.Context, playerID uuid.UUID) error {
	return s.Submit(ctx, BeginPerformance{PlayerID: playerID})
}

// AdvanceRound moves past the result screen. The next keyword is drawn by the session.
func (s *Session) AdvanceRound(ctx context.Context, playerID uuid.UUID) error {
	return s.Submit(ctx, AdvanceRound{PlayerID: playerID})
}

// Submit delivers a player event and waits for the engine's answer.
func (s *Session) Submit(ctx context.Context, ev Event) error {
	reply := make(chan error, 1)
	select {
	case s.inbox <- commandMsg{ev: ev, reply: reply}:
	case <-s.done:
		return s.overError(ev)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-reply:
		return err
	case <-s.done:
		// the command may have been the one that finished the session
		select {
		case err := <-reply:
			return err
		default:
			return s.overError(ev)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) overError(ev Event) error {
	snap := s.Snapshot()
	name := "event"
	if ev != nil {
		name = ev.eventName()
	}
	return &ActionError{
		Err:        ErrInvalidPhaseTransition,
		Action:     name,
		Phase:      snap.Phase,
		Round:      snap.Round,
		TurnHolder: snap.TurnHolder.ID,
	}
}

// post hands an internal message to the run loop unless the session is over.
func (s *Session) post(msg message) {
	select {
	case s.inbox <- msg:
	case <-s.done:
	}
}

func (s *Session) run() {
	for {
		select {
		case <-s.quit:
			s.stopTimer()
			s.cancelJudge()
			s.finishOnce.Do(func() { close(s.done) })
			return
		case msg := <-s.inbox:
			if finished := s.handle(msg); finished {
				return
			}
		}
	}
}

// handle processes one message and reports whether the session has finished.
func (s *Session) handle(msg message) bool {
	switch m := msg.(type) {
	case commandMsg:
		ev := m.ev
		if adv, ok := ev.(AdvanceRound); ok && s.pool != nil && s.state.Phase == PhaseResult {
			adv.NextKeyword = s.pool.Draw()
			ev = adv
		}
		finished, err := s.step(ev, actorOf(ev))
		m.reply <- err
		return finished

	case timerMsg:
		if m.round != s.state.CurrentRound || m.phase != s.state.Phase {
			s.log.WithField("round", m.round).Debugf("dropping stale %s timer", m.phase)
			return false
		}
		if m.phase == PhaseJudging {
			s.timer = nil
			s.delayElapsed = true
			return s.tryVerdict()
		}
		finished, err := s.step(TimerExpired{Phase: m.phase, Round: m.round}, uuid.Nil)
		if err != nil {
			s.log.WithError(err).Warn("timer rejected")
		}
		return finished

	case verdictMsg:
		if m.round != s.state.CurrentRound || s.state.Phase != PhaseJudging {
			s.log.WithField("round", m.round).Debug("dropping stale verdict")
			return false
		}
		v := m.verdict
		s.verdict = &v
		return s.tryVerdict()
	}
	return false
}

// tryVerdict applies the oracle's answer once both it and the judging delay are in.
func (s *Session) tryVerdict() bool {
	if !s.delayElapsed || s.verdict == nil {
		return false
	}
	v := *s.verdict
	finished, err := s.step(VerdictReceived{Round: s.state.CurrentRound, Verdict: v}, uuid.Nil)
	if err != nil {
		s.log.WithError(err).Warn("verdict rejected")
	}
	return finished
}

func actorOf(ev Event) uuid.UUID {
	switch e := ev.(type) {
	case BeginPerformance:
		return e.PlayerID
	case AdvanceRound:
		return e.PlayerID
	}
	return uuid.Nil
}

// step applies ev, carries out the resulting effects and publishes the new state.
func (s *Session) step(ev Event, actor uuid.UUID) (bool, error) {
	prev := s.state
	next, effects, err := Apply(prev, ev)
	if err != nil {
		return false, err
	}
	s.state = next

	finished := false
	var ranking []Standing
	for _, eff := range effects {
		switch e := eff.(type) {
		case PhaseChanged:
			if !e.From.CanTransitionTo(e.To) {
				s.log.Errorf("engine produced illegal transition %s -> %s", e.From, e.To)
			}
			s.stopTimer()
			s.deadline = time.Time{}
			if e.From == PhaseJudging {
				s.cancelJudge()
				s.delayElapsed = false
				s.verdict = nil
			}
		case ScheduleTimer:
			s.schedule(e.Phase, e.Round, e.After)
		case RequestVerdict:
			s.requestVerdict(e)
		case SessionFinished:
			finished = true
			ranking = e.Ranking
		}
	}

	payload := map[string]interface{}{
		"from":  prev.Phase,
		"to":    next.Phase,
		"round": next.CurrentRound,
	}
	if next.LastRoundResult != nil {
		payload["success"] = next.LastRoundResult.Success
		payload["score"] = next.LastRoundResult.Score
	}
	s.logAction(actor, ev.eventName(), payload)

	snap := snapshotOf(next, s.deadline)
	s.publish(snap)
	s.fireEvent(phaseEvent(EventPhaseChange, snap, prev.Phase))

	if finished {
		s.finish(snap, ranking)
	}
	return finished, nil
}

func (s *Session) schedule(phase Phase, round int, after time.Duration) {
	s.stopTimer()
	s.deadline = time.Now().Add(after)
	s.timer = s.Scheduler.AfterFunc(after, func() {
		s.post(timerMsg{phase: phase, round: round})
	})
}

// requestVerdict starts the judging delay and asks the oracle in parallel.
// An oracle error or timeout counts as a failed round.
func (s *Session) requestVerdict(req RequestVerdict) {
	s.delayElapsed = false
	s.verdict = nil
	s.schedule(PhaseJudging, req.Round, req.MinDelay)

	if s.oracle == nil {
		s.verdict = &Verdict{}
		return
	}

	var ctx context.Context
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), req.Timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	s.judgeCancel = cancel
	go func() {
		defer cancel()
		type result struct {
			v   Verdict
			err error
		}
		out := make(chan result, 1)
		go func() {
			v, err := s.oracle.Judge(ctx, req.Keyword, req.PerformerID)
			out <- result{v: v, err: err}
		}()

		var v Verdict
		select {
		case r := <-out:
			if r.err != nil {
				s.log.WithField("round", req.Round).WithError(r.err).Warn("oracle failed, scoring as a miss")
			} else {
				v = r.v
			}
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return
			}
			s.log.WithField("round", req.Round).Warn("oracle timed out, scoring as a miss")
		}
		if !v.Success {
			v.RewardScore = 0
		}
		s.post(verdictMsg{round: req.Round, verdict: v})
	}()
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

func (s *Session) cancelJudge() {
	if s.judgeCancel != nil {
		s.judgeCancel()
		s.judgeCancel = nil
	}
}

func (s *Session) publish(snap Snapshot) {
	s.snapMu.Lock()
	s.snapshot = snap
	s.snapMu.Unlock()
}

// finish emits the terminal ranking and releases everything the session holds.
func (s *Session) finish(snap Snapshot, ranking []Standing) {
	s.stopTimer()
	s.cancelJudge()

	holder := snap.TurnHolder
	s.fireEvent(SessionEvent{
		Type:        EventSessionEnd,
		SessionID:   s.ID,
		RoomID:      s.RoomID,
		To:          PhaseFinished,
		Round:       snap.Round,
		TotalRounds: snap.TotalRounds,
		TurnHolder:  &holder,
		Scores:      snap.Scores,
		Ranking:     ranking,
	})

	rankPayload := make([]map[string]interface{}, 0, len(ranking))
	for _, st := range ranking {
		rankPayload = append(rankPayload, map[string]interface{}{
			"rank": st.Rank, "userId": st.Player.ID.String(), "score": st.Score,
		})
	}
	s.logAction(uuid.Nil, "session_end", map[string]interface{}{"ranking": rankPayload})
	s.log.WithField("round", snap.Round).Info("session finished")

	s.finishOnce.Do(func() { close(s.done) })
	if s.OnSessionEnd != nil {
		s.OnSessionEnd(s.RoomID, s.ID, ranking)
	}
}

func (s *Session) fireEvent(ev SessionEvent) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
		return
	}
	s.log.Debugf("no BroadcastFn, dropping %s", ev.Type)
}

// logAction pushes one record to the action stream asynchronously.
func (s *Session) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if s.Publisher == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.SessionActionRecord{
		SessionID:     s.ID,
		RoomID:        s.RoomID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	pub := s.Publisher
	go func(rec cache.SessionActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := pub.PublishSessionAction(ctx, rec); err != nil && !errors.Is(err, cache.ErrNoClient) {
			s.log.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(record)
}
