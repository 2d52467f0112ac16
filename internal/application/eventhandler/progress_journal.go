// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"fmt"
	"sync"
	"time"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/shared"
	"github.com/ecoquest/eco-explorer-hub/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// PROGRESS JOURNAL
// Слушает события прогресса и ведёт ленту недавних достижений ученика:
// "+150 очков за викторину", "новый значок Quiz Whiz", "серия 3 дня".
// Каждое событие также пишется в структурированный лог.
// ═══════════════════════════════════════════════════════════════════════════

// JournalEntry - одна строка ленты.
type JournalEntry struct {
	Type       shared.EventType `json:"type"`
	Message    string           `json:"message"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// JournalConfig содержит конфигурацию журнала.
type JournalConfig struct {
	// EntriesPerLearner - сколько последних записей хранить на ученика.
	EntriesPerLearner int

	// MaxLearners - сколько учеников держать в памяти; самые давние вытесняются.
	MaxLearners int
}

// DefaultJournalConfig возвращает конфигурацию по умолчанию.
func DefaultJournalConfig() JournalConfig {
	return JournalConfig{
		EntriesPerLearner: 20,
		MaxLearners:       1000,
	}
}

// ProgressJournal обрабатывает события прогресса.
type ProgressJournal struct {
	mu      sync.Mutex
	entries map[string][]JournalEntry
	order   []string
	counts  map[shared.EventType]int
	log     *logger.Logger
	config  JournalConfig
}

// NewProgressJournal создаёт журнал.
func NewProgressJournal(log *logger.Logger, config JournalConfig) *ProgressJournal {
	defaults := DefaultJournalConfig()
	if config.EntriesPerLearner <= 0 {
		config.EntriesPerLearner = defaults.EntriesPerLearner
	}
	if config.MaxLearners <= 0 {
		config.MaxLearners = defaults.MaxLearners
	}
	if log == nil {
		log = logger.Nop()
	}
	return &ProgressJournal{
		entries: make(map[string][]JournalEntry),
		counts:  make(map[shared.EventType]int),
		log:     log.With(logger.Component("progress_journal")),
		config:  config,
	}
}

// Register подписывает журнал на все события шины.
func (j *ProgressJournal) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(j.Handle)
}

// Handle обрабатывает одно событие. Неизвестные типы событий пропускаются.
func (j *ProgressJournal) Handle(event shared.Event) error {
	learnerID, message, fields, ok := describe(event)
	if !ok {
		return nil
	}

	j.log.Info(message, append(fields,
		logger.LearnerID(learnerID),
		logger.String("event_type", string(event.EventType())),
	)...)

	j.append(learnerID, JournalEntry{
		Type:       event.EventType(),
		Message:    message,
		OccurredAt: event.OccurredAt(),
	})
	return nil
}

// Recent возвращает записи ученика, новые первыми.
func (j *ProgressJournal) Recent(learnerID string) []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()

	list := j.entries[learnerID]
	out := make([]JournalEntry, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		out = append(out, list[i])
	}
	return out
}

// Counts возвращает количество обработанных событий по типам.
func (j *ProgressJournal) Counts() map[shared.EventType]int {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make(map[shared.EventType]int, len(j.counts))
	for k, v := range j.counts {
		out[k] = v
	}
	return out
}

// Forget удаляет ленту ученика.
func (j *ProgressJournal) Forget(learnerID string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.forgetLocked(learnerID)
}

func (j *ProgressJournal) append(learnerID string, e JournalEntry) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.counts[e.Type]++

	// после сброса лента начинается заново
	if e.Type == shared.EventProgressReset {
		j.forgetLocked(learnerID)
	}

	list, known := j.entries[learnerID]
	if !known {
		if len(j.order) >= j.config.MaxLearners {
			j.forgetLocked(j.order[0])
		}
		j.order = append(j.order, learnerID)
	}

	list = append(list, e)
	if over := len(list) - j.config.EntriesPerLearner; over > 0 {
		list = append([]JournalEntry(nil), list[over:]...)
	}
	j.entries[learnerID] = list
}

func (j *ProgressJournal) forgetLocked(learnerID string) {
	if _, ok := j.entries[learnerID]; !ok {
		return
	}
	delete(j.entries, learnerID)
	for i, id := range j.order {
		if id == learnerID {
			j.order = append(j.order[:i], j.order[i+1:]...)
			break
		}
	}
}

// describe превращает событие в строку ленты.
func describe(event shared.Event) (string, string, []logger.Field, bool) {
	switch e := event.(type) {
	case shared.PointsEarnedEvent:
		return e.LearnerID,
			fmt.Sprintf("+%d eco points from %s", e.Amount, e.Source),
			[]logger.Field{logger.Points(e.NewTotal), logger.Int("amount", e.Amount)},
			true
	case shared.ModuleCompletedEvent:
		return e.LearnerID,
			fmt.Sprintf("completed module %s", e.ModuleID),
			[]logger.Field{logger.ModuleID(e.ModuleID), logger.Int("score", e.Score)},
			true
	case shared.BadgeEarnedEvent:
		return e.LearnerID,
			fmt.Sprintf("earned badge %s", e.BadgeName),
			[]logger.Field{logger.BadgeID(e.BadgeID)},
			true
	case shared.ChallengeCompletedEvent:
		return e.LearnerID,
			fmt.Sprintf("completed daily challenge #%d", e.Total),
			[]logger.Field{logger.ChallengeID(e.ChallengeID), logger.Int("amount", e.Points)},
			true
	case shared.StreakUpdatedEvent:
		msg := fmt.Sprintf("streak is now %d days", e.NewStreak)
		if e.Broken() {
			msg = "streak started over"
		}
		return e.LearnerID, msg,
			[]logger.Field{logger.Int("previous_streak", e.PreviousStreak), logger.Int("streak", e.NewStreak)},
			true
	case shared.ProgressResetEvent:
		return e.LearnerID,
			"progress was reset",
			[]logger.Field{logger.Int("previous_points", e.PreviousPoints)},
			true
	default:
		return "", "", nil, false
	}
}
