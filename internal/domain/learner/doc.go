// Package learner содержит доменную модель прогресса ученика Eco Explorer.
//
// Это ядро движка наград. Пакет определяет:
//
//   - Сущность Profile: очки, значки, пройденные модули, лучшие результаты,
//     выполненные ежедневные задания, серия дней и "эко-счётчики"
//   - Калькулятор серии (streak): чистая функция от профиля и "сегодня"
//   - Правила значков: явный вариант правила для каждого значка и
//     тотальный вычислитель
//   - Выбор ежедневного задания: детерминированная функция от даты
//   - Формулы начисления очков и эко-счётчиков
//   - Порт репозитория профилей (реализации в infrastructure/persistence)
//
// # Архитектурные принципы
//
//  1. Никакого ввода-вывода - только чистые функции и методы сущности
//  2. "Сегодня" всегда передаётся извне, пакет не читает системные часы
//  3. Dependency Inversion - репозиторий объявлен здесь, реализован снаружи
//
// # Жизненный цикл профиля
//
// Профиль создаётся со значениями по умолчанию при первом чтении,
// изменяется только через операции прогресса и перезаписывается
// свежим профилем при сбросе:
//
//	p := NewDefaultProfile("guest-user", DefaultDisplayName, "2024-03-15")
//
//	outcome, _ := ScoreQuiz(4, 4)
//	newlyCompleted := p.RecordQuizResult("climate", 4, outcome)
//
//	granted := p.GrantBadges(ExternalBadges(outcome)...)
//	granted = append(granted, p.GrantBadges(EvaluateBadges(p)...)...)
//
//	change := p.UpdateStreak("2024-03-16")
//
// # Инварианты
//
//   - Модуль попадает в CompletedModules ровно тогда, когда лучший результат
//     хотя бы раз достиг 70%, и никогда оттуда не уходит
//   - ModuleScores[id] никогда не уменьшается
//   - Значки только добавляются
//   - На каждый календарный день не больше одного выполненного задания,
//     повторное выполнение ничего не начисляет
package learner
