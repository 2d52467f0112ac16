// Package command contains write operations (CQRS - Commands).
//
// Every command runs through the same profile transition:
// load → mutate → award badges → update streak → save, serialized per
// learner and retried when a concurrent writer bumped the stored version.
package command

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/learner"
	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
	"github.com/ecoquest/eco-explorer-hub/pkg/retry"
	"github.com/ecoquest/eco-explorer-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PIPELINE
// ══════════════════════════════════════════════════════════════════════════════

// Effect describes what a mutation did to the profile.
type Effect struct {
	// ExternalBadges are granted before the rule-based evaluation.
	ExternalBadges []string

	// Events are published after the transition is saved.
	Events []shared.Event

	// Skip ends the transition without badges, streak or save.
	Skip bool

	// SkipBadges leaves badge evaluation out of the transition.
	SkipBadges bool
}

// Mutation applies one operation to a freshly loaded profile.
// It may run more than once when the save loses a version race.
type Mutation func(p *learner.Profile, at time.Time) (Effect, error)

// Transition is the outcome of one pipeline run.
type Transition struct {
	Profile   *learner.Profile
	NewBadges []string
	Streak    learner.StreakChange
	Skipped   bool
	Attempts  int
}

// PipelineConfig configures a Pipeline.
type PipelineConfig struct {
	// RetryAttempts is how many times a conflicting transition is tried.
	RetryAttempts int

	// DefaultLearnerID is used when a command carries no learner ID.
	DefaultLearnerID string

	// DefaultName is the display name of fresh profiles.
	DefaultName string
}

// DefaultPipelineConfig returns default configuration.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		RetryAttempts:    3,
		DefaultLearnerID: learner.DefaultLearnerID,
		DefaultName:      learner.DefaultDisplayName,
	}
}

// Pipeline runs profile transitions.
type Pipeline struct {
	repo      learner.Repository
	clock     timeutil.Clock
	publisher shared.EventPublisher
	log       *logger.Logger
	retrier   *retry.Retrier
	locks     *keyedMutex
	config    PipelineConfig
}

// NewPipeline creates a new Pipeline.
func NewPipeline(
	repo learner.Repository,
	clock timeutil.Clock,
	publisher shared.EventPublisher,
	log *logger.Logger,
	config PipelineConfig,
) *Pipeline {
	defaults := DefaultPipelineConfig()
	if config.RetryAttempts <= 0 {
		config.RetryAttempts = defaults.RetryAttempts
	}
	if config.DefaultLearnerID == "" {
		config.DefaultLearnerID = defaults.DefaultLearnerID
	}
	if config.DefaultName == "" {
		config.DefaultName = defaults.DefaultName
	}
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}

	return &Pipeline{
		repo:      repo,
		clock:     clock,
		publisher: publisher,
		log:       log.With(logger.Component("progress_pipeline")),
		retrier: retry.ConflictRetrier(config.RetryAttempts, func(err error) bool {
			return errors.Is(err, shared.ErrProfileConflict)
		}),
		locks:  newKeyedMutex(),
		config: config,
	}
}

// Clock returns the pipeline's clock.
func (p *Pipeline) Clock() timeutil.Clock {
	return p.clock
}

// DefaultName returns the display name used for fresh profiles.
func (p *Pipeline) DefaultName() string {
	return p.config.DefaultName
}

// ResolveLearnerID validates a learner ID, substituting the default for an empty one.
func (p *Pipeline) ResolveLearnerID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return p.config.DefaultLearnerID, nil
	}
	lid, err := shared.NewLearnerID(id)
	if err != nil {
		return "", err
	}
	return lid.String(), nil
}

// Run executes one transition for a learner.
//
// Storage failures never surface: the repository absorbs them, and when
// every attempt loses a version race the last computed profile is returned
// unsaved. Only mutation errors and context cancellation are returned.
func (p *Pipeline) Run(ctx context.Context, learnerID, op string, mutate Mutation) (*Transition, error) {
	unlock := p.locks.Lock(learnerID)
	defer unlock()

	log := p.log.With(logger.LearnerID(learnerID), logger.Operation(op))

	var (
		tr     *Transition
		effect Effect
		tries  int
	)
	err := p.retrier.Do(ctx, func(ctx context.Context) error {
		tries++
		now := p.clock.Now()

		profile := p.repo.Load(ctx, learnerID)

		eff, err := mutate(profile, now)
		if err != nil {
			return retry.Permanent(err)
		}
		effect = eff

		tr = &Transition{Profile: profile, Attempts: tries}
		if eff.Skip {
			tr.Skipped = true
			return nil
		}

		if !eff.SkipBadges {
			tr.NewBadges = learner.AwardBadges(profile, eff.ExternalBadges...)
		}
		tr.Streak = profile.UpdateStreak(timeutil.FormatDate(now))

		return p.repo.Save(ctx, profile)
	})

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrProfileConflict) && tr != nil:
		log.Warn("profile transition lost every version race, result not persisted",
			logger.Attempt(tries),
		)
	default:
		return nil, err
	}

	if !tr.Skipped {
		p.publish(log, learnerID, tr, effect)
	}

	log.Debug("profile transition finished",
		logger.Points(tr.Profile.Points),
		logger.Attempt(tries),
		logger.Bool("skipped", tr.Skipped),
	)
	return tr, nil
}

// Touch records today's activity: the streak is updated and the profile saved.
func (p *Pipeline) Touch(ctx context.Context, learnerID string) (*Transition, error) {
	return p.Run(ctx, learnerID, "touch", func(*learner.Profile, time.Time) (Effect, error) {
		return Effect{SkipBadges: true}, nil
	})
}

// publish emits the mutation's events followed by badge and streak events.
func (p *Pipeline) publish(log *logger.Logger, learnerID string, tr *Transition, effect Effect) {
	at := p.clock.Now()

	events := append([]shared.Event{}, effect.Events...)
	for _, id := range tr.NewBadges {
		name := id
		if b, ok := learner.BadgeByID(id); ok {
			name = b.Name
		}
		events = append(events, shared.NewBadgeEarnedEvent(learnerID, id, name, at))
	}
	if tr.Streak.Changed() {
		events = append(events, shared.NewStreakUpdatedEvent(learnerID, tr.Streak.Previous, tr.Streak.Current, at))
	}

	for _, e := range events {
		if err := p.publisher.Publish(e); err != nil {
			log.Warn("event publish failed",
				logger.String("event_type", string(e.EventType())),
				logger.Err(err),
			)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PER-LEARNER LOCKS
// ══════════════════════════════════════════════════════════════════════════════

// keyedMutex hands out one mutex per key and forgets it once unused.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

// Lock acquires the key's mutex and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()

	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

// size reports how many keys currently hold a mutex.
func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
