//go:build !integration

package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/domain/ports/repository"
)

// ---------------------- UserRepository ----------------------

// memUserRepo is an in-memory repository.UserRepository. AdjustTokens keeps
// the same balance-guard semantics as the SQL implementation, so ledger
// concurrency tests run against realistic behavior.
type memUserRepo struct {
	mu    sync.Mutex
	users map[int64]*model.User

	SaveFunc   func(ctx context.Context, u *model.User) error
	AdjustFunc func(ctx context.Context, tgID int64, delta int) (int, error)
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: map[int64]*model.User{}}
}

func (m *memUserRepo) seed(tgID int64, tokens int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, _ := model.NewUser(tgID, fmt.Sprintf("user%d", tgID), tokens)
	m.users[tgID] = u
}

func (m *memUserRepo) balance(tgID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[tgID]; ok {
		return u.TokenCount
	}
	return -1
}

func (m *memUserRepo) Save(ctx context.Context, u *model.User) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, u)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *u
	m.users[u.TelegramID] = &cp
	return nil
}

func (m *memUserRepo) FindByTelegramID(ctx context.Context, tgID int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) AdjustTokens(ctx context.Context, tgID int64, delta int) (int, error) {
	if m.AdjustFunc != nil {
		return m.AdjustFunc(ctx, tgID, delta)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return 0, domain.ErrNotFound
	}
	if u.TokenCount+delta < 0 {
		return 0, domain.ErrInsufficientTokens
	}
	u.TokenCount += delta
	return u.TokenCount, nil
}

func (m *memUserRepo) UpdatePhoneNumber(ctx context.Context, tgID int64, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[tgID]
	if !ok {
		return domain.ErrNotFound
	}
	u.PhoneNumber = phone
	return nil
}

func (m *memUserRepo) CountUsers(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users), nil
}

// ---------------------- SessionStore ----------------------

type memSessionStore struct {
	mu       sync.Mutex
	sessions map[int64]repository.Session
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: map[int64]repository.Session{}}
}

func (m *memSessionStore) Load(ctx context.Context, tgID int64) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[tgID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := s
	return &cp, nil
}

func (m *memSessionStore) Save(ctx context.Context, tgID int64, s *repository.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[tgID] = *s
	return nil
}

func (m *memSessionStore) Clear(ctx context.Context, tgID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, tgID)
	return nil
}

// ---------------------- PaymentGateway ----------------------

// mockGateway scripts gateway responses per intent. The default is a pending
// intent with a deterministic ID.
type mockGateway struct {
	mu       sync.Mutex
	seq      int
	statuses map[string]adapter.IntentState
	calls    int

	CreateIntentFunc func(ctx context.Context, amount int64, description string, meta map[string]string) (adapter.CreatedIntent, error)
	GetStatusFunc    func(ctx context.Context, intentID string) (adapter.IntentState, error)
}

func newMockGateway() *mockGateway {
	return &mockGateway{statuses: map[string]adapter.IntentState{}}
}

func (g *mockGateway) Name() string { return "mock" }

func (g *mockGateway) CreateIntent(ctx context.Context, amount int64, description string, meta map[string]string) (adapter.CreatedIntent, error) {
	if g.CreateIntentFunc != nil {
		return g.CreateIntentFunc(ctx, amount, description, meta)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seq++
	id := fmt.Sprintf("pay-%d", g.seq)
	g.statuses[id] = adapter.IntentState{Status: "pending", Amount: amount}
	return adapter.CreatedIntent{ID: id, RedirectURL: "https://pay.test/" + id, Status: "pending"}, nil
}

func (g *mockGateway) GetStatus(ctx context.Context, intentID string) (adapter.IntentState, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	if g.GetStatusFunc != nil {
		return g.GetStatusFunc(ctx, intentID)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.statuses[intentID]
	if !ok {
		return adapter.IntentState{}, fmt.Errorf("mock: intent %s not found", intentID)
	}
	return s, nil
}

func (g *mockGateway) setStatus(intentID, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := g.statuses[intentID]
	s.Status = status
	s.Paid = status == "succeeded"
	g.statuses[intentID] = s
}

func (g *mockGateway) statusCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// ---------------------- TelegramBotAdapter ----------------------

type mockNotifier struct {
	mu       sync.Mutex
	messages []string

	SendMessageFunc func(ctx context.Context, tgID int64, text string) error
}

func (m *mockNotifier) SendMessage(ctx context.Context, tgID int64, text string) error {
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, tgID, text)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, text)
	return nil
}

func (m *mockNotifier) SendButtons(ctx context.Context, tgID int64, text string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, tgID, text)
}

func (m *mockNotifier) SendPhoto(ctx context.Context, tgID int64, image []byte, caption string, rows [][]adapter.InlineButton) error {
	return m.SendMessage(ctx, tgID, caption)
}

func (m *mockNotifier) sent() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.messages))
	copy(out, m.messages)
	return out
}

// ---------------------- PhotoFetcher / ImageTransformAdapter ----------------------

type mockPhotoFetcher struct {
	mu    sync.Mutex
	calls int

	DownloadFunc func(ctx context.Context, fileID string) ([]byte, error)
}

func (m *mockPhotoFetcher) DownloadPhoto(ctx context.Context, fileID string) ([]byte, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.DownloadFunc != nil {
		return m.DownloadFunc(ctx, fileID)
	}
	return []byte("photo:" + fileID), nil
}

func (m *mockPhotoFetcher) downloadCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockImageAdapter struct {
	TransformFunc func(ctx context.Context, image []byte, styleID, customPrompt string) ([]byte, error)
}

func (m *mockImageAdapter) Name() string { return "mock" }

func (m *mockImageAdapter) Transform(ctx context.Context, image []byte, styleID, customPrompt string) ([]byte, error) {
	if m.TransformFunc != nil {
		return m.TransformFunc(ctx, image, styleID, customPrompt)
	}
	return append([]byte("styled:"), image...), nil
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
