package learner

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем профилей.
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository хранит профили учеников, по одному документу на ученика.
type Repository interface {
	// Load возвращает профиль ученика. Никогда не завершается ошибкой:
	// если записи нет или она не читается, возвращается профиль по
	// умолчанию, а проблема логируется.
	Load(ctx context.Context, learnerID string) *Profile

	// Save записывает профиль целиком. Сбои хранилища логируются и
	// поглощаются. Единственная ошибка - ErrProfileConflict, если запись
	// изменилась после Load (profile.Version устарела). После успешной
	// записи profile.Version обновляется.
	Save(ctx context.Context, profile *Profile) error
}
