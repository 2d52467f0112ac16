package query

import (
	"context"
	"fmt"

	"github.com/ecoquest/eco-explorer-hub/internal/domain/curriculum"
)

// ══════════════════════════════════════════════════════════════════════════════
// CURRICULUM QUERIES
// Модули отдаются без правильных ответов: викторину проверяет сервер.
// ══════════════════════════════════════════════════════════════════════════════

// ModuleSummaryDTO - модуль в списке.
type ModuleSummaryDTO struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Emoji         string `json:"emoji"`
	Description   string `json:"description"`
	SectionCount  int    `json:"sectionCount"`
	QuestionCount int    `json:"questionCount"`
}

// SectionDTO - экран текста модуля.
type SectionDTO struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Emoji string `json:"emoji"`
}

// QuestionDTO - вопрос викторины без правильного ответа.
type QuestionDTO struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Options []string `json:"options"`
}

// ModuleDTO - модуль целиком.
type ModuleDTO struct {
	ModuleSummaryDTO
	Sections []SectionDTO  `json:"sections"`
	Quiz     []QuestionDTO `json:"quiz"`
}

// GetModuleQuery - запрос одного модуля.
type GetModuleQuery struct {
	ModuleID string
}

// GetModulesHandler обрабатывает запросы каталога модулей.
type GetModulesHandler struct {
	catalog *curriculum.Catalog
}

// NewGetModulesHandler создаёт обработчик.
func NewGetModulesHandler(catalog *curriculum.Catalog) *GetModulesHandler {
	return &GetModulesHandler{catalog: catalog}
}

// Handle возвращает все модули в порядке каталога.
func (h *GetModulesHandler) Handle(ctx context.Context) ([]ModuleSummaryDTO, error) {
	modules := h.catalog.Modules()
	out := make([]ModuleSummaryDTO, 0, len(modules))
	for _, m := range modules {
		out = append(out, summarize(m))
	}
	return out, nil
}

// GetModule возвращает модуль с текстом и вопросами.
func (h *GetModulesHandler) GetModule(ctx context.Context, q GetModuleQuery) (*ModuleDTO, error) {
	m, err := h.catalog.Module(q.ModuleID)
	if err != nil {
		return nil, fmt.Errorf("get_module: module %q: %w", q.ModuleID, err)
	}

	dto := &ModuleDTO{
		ModuleSummaryDTO: summarize(m),
		Sections:         make([]SectionDTO, 0, len(m.Sections)),
		Quiz:             make([]QuestionDTO, 0, len(m.Quiz)),
	}
	for _, s := range m.Sections {
		dto.Sections = append(dto.Sections, SectionDTO{Title: s.Title, Text: s.Text, Emoji: s.Emoji})
	}
	for _, q := range m.Quiz {
		dto.Quiz = append(dto.Quiz, QuestionDTO{
			ID:      q.ID,
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
		})
	}
	return dto, nil
}

func summarize(m curriculum.Module) ModuleSummaryDTO {
	return ModuleSummaryDTO{
		ID:            m.ID,
		Title:         m.Title,
		Emoji:         m.Emoji,
		Description:   m.Description,
		SectionCount:  len(m.Sections),
		QuestionCount: m.QuestionCount(),
	}
}
