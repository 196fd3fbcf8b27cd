package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/sakif/toolhub/internal/apperror"
	"github.com/sakif/toolhub/internal/model"
	"github.com/sakif/toolhub/internal/repository"
)

// ===== IN-MEMORY REPOSITORIES =====
//
// Hand-written fakes that behave like the real stores closely enough for
// the service rules: ids ascend, URLs and emails are unique, and missing
// rows come back as apperror.NotFound.

type mockToolRepo struct {
	mu     sync.Mutex
	tools  map[int64]model.Tool
	nextID int64

	// set to simulate a database failure
	err error
}

func newMockToolRepo() *mockToolRepo {
	return &mockToolRepo{tools: make(map[int64]model.Tool)}
}

func (m *mockToolRepo) urlTaken(url string, except int64) bool {
	for id, t := range m.tools {
		if t.URL == url && id != except {
			return true
		}
	}
	return false
}

func (m *mockToolRepo) sorted() []model.Tool {
	out := make([]model.Tool, 0, len(m.tools))
	for _, t := range m.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *mockToolRepo) Create(_ context.Context, tool *model.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.urlTaken(tool.URL, 0) {
		return apperror.Conflict("tool", "url "+tool.URL)
	}
	m.nextID++
	tool.ID = m.nextID
	m.tools[tool.ID] = *tool
	return nil
}

func (m *mockToolRepo) GetByID(_ context.Context, id int64) (*model.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tools[id]
	if !ok {
		return nil, apperror.NotFound("tool", strconv.FormatInt(id, 10))
	}
	return &t, nil
}

func (m *mockToolRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return paginate(m.sorted(), opts), nil
}

func (m *mockToolRepo) Search(_ context.Context, opts repository.SearchOptions) ([]model.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var hits []model.Tool
	for _, t := range m.sorted() {
		if opts.Name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(opts.Name)) {
			continue
		}
		if opts.Category != "" && !strings.Contains(strings.ToLower(t.Category), strings.ToLower(opts.Category)) {
			continue
		}
		hits = append(hits, t)
	}
	return paginate(hits, opts.ListOptions), nil
}

func (m *mockToolRepo) Update(_ context.Context, tool *model.Tool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tools[tool.ID]; !ok {
		return apperror.NotFound("tool", strconv.FormatInt(tool.ID, 10))
	}
	if m.urlTaken(tool.URL, tool.ID) {
		return apperror.Conflict("tool", "url "+tool.URL)
	}
	m.tools[tool.ID] = *tool
	return nil
}

func (m *mockToolRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tools[id]; !ok {
		return apperror.NotFound("tool", strconv.FormatInt(id, 10))
	}
	delete(m.tools, id)
	return nil
}

func (m *mockToolRepo) All(context.Context) ([]model.Tool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.sorted(), nil
}

func paginate(tools []model.Tool, opts repository.ListOptions) []model.Tool {
	if opts.Offset >= len(tools) {
		return []model.Tool{}
	}
	tools = tools[opts.Offset:]
	if opts.Limit < len(tools) {
		tools = tools[:opts.Limit]
	}
	return tools
}

type mockUserRepo struct {
	mu     sync.Mutex
	users  map[int64]model.User
	nextID int64

	updates int
	// createConflictOnce makes the next CreateUser behave as if another
	// request inserted the same email first.
	createConflictOnce bool
	err                error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]model.User)}
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id int64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
	}
	return &u, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, apperror.NotFound("user", email)
}

func (m *mockUserRepo) insert(u *model.User) {
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = *u
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createConflictOnce {
		m.createConflictOnce = false
		winner := model.User{Email: user.Email, Name: model.StringPtr("Winner")}
		m.insert(&winner)
		return apperror.Conflict("user", "email "+user.Email)
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return apperror.Conflict("user", "email "+user.Email)
		}
	}
	m.insert(user)
	return nil
}

func (m *mockUserRepo) UpdateUserProfile(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return apperror.NotFound("user", strconv.FormatInt(user.ID, 10))
	}
	m.updates++
	m.users[user.ID] = *user
	return nil
}

func testLogger() *zap.Logger {
	return zap.NewNop()
}
