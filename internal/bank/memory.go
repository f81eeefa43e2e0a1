// Package bank provides starter phrase sets that can be imported into a
// phrase store.
package bank

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/hammamikhairi/distype/internal/domain"
	"github.com/hammamikhairi/distype/internal/logger"
)

// Summary is a lightweight listing entry for a bank.
type Summary struct {
	Name       string
	Categories int
	Statements int
}

// MemorySource holds phrase banks in memory. Safe for concurrent reads.
type MemorySource struct {
	mu    sync.RWMutex
	banks map[string]*domain.Bank
	log   *logger.Logger
}

// NewMemorySource creates a source preloaded with the built-in banks.
func NewMemorySource(log *logger.Logger) *MemorySource {
	src := &MemorySource{
		banks: make(map[string]*domain.Bank),
		log:   log,
	}
	src.seed()
	return src
}

// List returns summaries of all banks, sorted by name.
func (s *MemorySource) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, 0, len(s.banks))
	for _, b := range s.banks {
		sum := Summary{Name: b.Name, Categories: len(b.Categories)}
		for _, c := range b.Categories {
			sum.Statements += len(c.Statements)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Get returns a bank by name, case-insensitively.
func (s *MemorySource) Get(ctx context.Context, name string) (*domain.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.banks[strings.ToLower(name)]
	if !ok {
		s.log.Debug("bank not found: %s", name)
		return nil, domain.ErrNotFound
	}
	return b, nil
}

// Add registers a bank, replacing any bank with the same name.
func (s *MemorySource) Add(b *domain.Bank) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.banks[strings.ToLower(b.Name)] = b
	s.log.Debug("bank registered: %s (%d categories)", b.Name, len(b.Categories))
}

// LoadFile reads a JSON bank file:
//
//	{"name": "...", "categories": [{"label": "...", "statements": ["..."]}]}
func LoadFile(path string) (*domain.Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bank: %w", err)
	}
	var b domain.Bank
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse bank %s: %w", path, err)
	}
	if b.Name == "" {
		b.Name = strings.TrimSuffix(filepath.Base(path), ".json")
	}
	return &b, nil
}

// seed populates the source with built-in banks.
func (s *MemorySource) seed() {
	for _, b := range []*domain.Bank{essentials(), basicRu()} {
		s.banks[strings.ToLower(b.Name)] = b
	}
	s.log.Debug("seeded %d banks", len(s.banks))
}

func essentials() *domain.Bank {
	return &domain.Bank{
		Name: "essentials",
		Categories: []domain.BankCategory{
			{Label: "Greetings", Statements: []string{
				"Hello",
				"Good morning",
				"Good night",
				"Nice to meet you",
				"See you later",
			}},
			{Label: "Needs", Statements: []string{
				"I would like some water",
				"I am hungry",
				"I need to use the bathroom",
				"I am tired, I need a rest",
				"Please call my family",
			}},
			{Label: "Conversation", Statements: []string{
				"Yes",
				"No",
				"Thank you",
				"Please wait, I am typing",
				"Could you repeat that?",
				"I don't understand",
			}},
			{Label: "Health", Statements: []string{
				"I am in pain",
				"Please call a doctor",
				"I need my medication",
				"I feel fine",
			}},
		},
	}
}

func basicRu() *domain.Bank {
	return &domain.Bank{
		Name: "basic-ru",
		Categories: []domain.BankCategory{
			{Label: "Приветствия", Statements: []string{
				"Здравствуйте",
				"Доброе утро",
				"Спокойной ночи",
				"До свидания",
			}},
			{Label: "Просьбы", Statements: []string{
				"Дайте, пожалуйста, воды",
				"Мне нужно в туалет",
				"Подождите, я печатаю",
				"Позовите, пожалуйста, врача",
			}},
			{Label: "Ответы", Statements: []string{
				"Да",
				"Нет",
				"Спасибо",
				"Повторите, пожалуйста",
			}},
		},
	}
}
