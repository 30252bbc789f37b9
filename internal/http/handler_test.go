package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"techservice/internal/auth"
	"techservice/internal/http/middleware"
	"techservice/internal/lock"
	"techservice/internal/model"
	"techservice/internal/repository"
	"techservice/internal/service"
	"techservice/internal/session"
)

type memTickets struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Ticket
}

func (m *memTickets) Create(_ context.Context, t *model.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	m.rows[t.ID] = *t
	return nil
}

func (m *memTickets) GetByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (m *memTickets) UpdateDetails(_ context.Context, t *model.Ticket, unchangedSince time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.rows[t.ID]
	if !ok || !stored.UpdatedAt.Equal(unchangedSince) {
		return repository.ErrPreconditionFailed
	}
	m.rows[t.ID] = *t
	return nil
}

func (m *memTickets) ApplyPatch(_ context.Context, id uuid.UUID, cond model.TicketPrecondition, patch model.TicketPatch) (*model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.rows[id]
	if !ok || !cond.Holds(t) {
		return nil, repository.ErrPreconditionFailed
	}
	updated := patch.Apply(t)
	m.rows[id] = updated
	return &updated, nil
}

func (m *memTickets) List(context.Context, repository.TicketListFilter) ([]model.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Ticket, 0, len(m.rows))
	for _, t := range m.rows {
		out = append(out, t)
	}
	return out, nil
}

type memNotes struct {
	err error
}

func (n *memNotes) Create(context.Context, *model.Note) error { return n.err }

func (n *memNotes) ListByTicket(context.Context, uuid.UUID) ([]model.Note, error) { return nil, nil }

type noDevices struct{}

func (noDevices) Create(context.Context, *model.Device) error { return nil }
func (noDevices) GetByID(context.Context, uuid.UUID) (*model.Device, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noDevices) List(context.Context) ([]model.Device, error) { return []model.Device{}, nil }
func (noDevices) Delete(context.Context, uuid.UUID) error      { return gorm.ErrRecordNotFound }

type noTechnicians struct{}

func (noTechnicians) Create(context.Context, *model.Technician) error { return nil }
func (noTechnicians) GetByID(context.Context, uuid.UUID) (*model.Technician, error) {
	return nil, gorm.ErrRecordNotFound
}
func (noTechnicians) List(context.Context, bool) ([]model.Technician, error) { return nil, nil }
func (noTechnicians) UsernameTaken(context.Context, string) (bool, error)    { return false, nil }
func (noTechnicians) SetActive(context.Context, uuid.UUID, bool) error       { return gorm.ErrRecordNotFound }
func (noTechnicians) Delete(context.Context, uuid.UUID) error                { return gorm.ErrRecordNotFound }

type testServer struct {
	router   *gin.Engine
	tickets  *memTickets
	notes    *memNotes
	sessions *session.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	tickets := &memTickets{rows: map[uuid.UUID]model.Ticket{}}
	notes := &memNotes{}
	sessions := session.NewManager(auth.NewIssuer("test-secret", time.Hour), auth.NewParser("test-secret"), session.NewMemoryRevocations())
	log := zerolog.Nop()

	handler := NewHandler(
		service.NewTicketService(tickets, notes, noDevices{}, noTechnicians{}, log),
		service.NewTransitionService(tickets, notes, lock.NewMemoryGuard(), nil, log),
		service.NewCatalogService(noDevices{}, noTechnicians{}, nil, log),
		service.NewAuthService(nil, sessions, noTechnicians{}, log),
		service.NewAnalyticsService(tickets, noTechnicians{}, time.UTC),
		log,
	)
	return &testServer{
		router:   NewRouter(handler, middleware.Auth(sessions), "test"),
		tickets:  tickets,
		notes:    notes,
		sessions: sessions,
	}
}

func (s *testServer) token(t *testing.T, role model.Role) string {
	t.Helper()
	sess, err := s.sessions.Save(model.Principal{UserID: uuid.New(), Role: role, Name: "Tester"})
	require.NoError(t, err)
	return sess.Token
}

func (s *testServer) seed(status model.TicketStatus) uuid.UUID {
	id := uuid.New()
	s.tickets.rows[id] = model.Ticket{ID: id, Title: "washer", Status: status}
	return id
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var decoded map[string]interface{}
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])

	rec, _ = s.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuthMiddleware(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, model.RoleStaff)

	tests := []struct {
		name   string
		header string
		path   string
		want   int
		err    string
	}{
		{name: "missing header", path: "/me", want: http.StatusUnauthorized, err: "authorization header missing"},
		{name: "wrong scheme", header: "Basic abc", path: "/me", want: http.StatusUnauthorized, err: "invalid authorization header"},
		{name: "bad token", header: "Bearer nope", path: "/me", want: http.StatusUnauthorized, err: "invalid token"},
		{name: "staff on admin route", header: "Bearer " + staff, path: "/admin/tickets", want: http.StatusForbidden, err: "permission denied"},
		{name: "staff on staff route", header: "Bearer " + staff, path: "/staff/board", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.err != "" {
				assert.Contains(t, rec.Body.String(), tt.err)
			}
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, model.RoleAdmin)

	rec, _ := s.do(t, http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTransitionEndpoint(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, model.RoleStaff)

	t.Run("single step", func(t *testing.T) {
		id := s.seed(model.StatusUnderRepair)
		rec, body := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/transition", staff,
			gin.H{"target": "ready_for_delivery"})

		require.Equal(t, http.StatusOK, rec.Code)
		data := body["data"].(map[string]interface{})
		assert.Equal(t, "under_repair", data["previous_status"])
		assert.Equal(t, model.StatusReadyForDelivery, s.tickets.rows[id].Status)
	})

	t.Run("skip is rejected with reason", func(t *testing.T) {
		id := s.seed(model.StatusAcceptedPending)
		rec, body := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/transition", staff,
			gin.H{"target": "under_repair"})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "not_single_step", body["reason"])
	})

	t.Run("gate field missing", func(t *testing.T) {
		id := s.seed(model.StatusFaultDiagnosis)
		rec, _ := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/transition", staff,
			gin.H{"target": "customer_approval", "approved_labor_cost": 100})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, model.StatusFaultDiagnosis, s.tickets.rows[id].Status)
	})

	t.Run("numeric and text amounts", func(t *testing.T) {
		id := s.seed(model.StatusFaultDiagnosis)
		rec, _ := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/transition", staff,
			gin.H{"target": "customer_approval", "approved_labor_cost": 100, "approved_service_cost": "25,5"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.InDelta(t, 25.5, *s.tickets.rows[id].ApprovedServiceCost, 1e-9)
	})

	t.Run("note failure is a warning", func(t *testing.T) {
		s.notes.err = errors.New("insert failed")
		defer func() { s.notes.err = nil }()
		id := s.seed(model.StatusAcceptedPending)

		rec, body := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/transition", staff,
			gin.H{"target": "fault_diagnosis", "note": "pump cracked"})

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, body["warning"], "insert diagnosis note")
		assert.Equal(t, model.StatusFaultDiagnosis, s.tickets.rows[id].Status)
	})

	t.Run("bad id", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/staff/tickets/42/transition", staff, gin.H{"target": "delivery"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown ticket", func(t *testing.T) {
		rec, _ := s.do(t, http.MethodPost, "/staff/tickets/"+uuid.NewString()+"/transition", staff, gin.H{"target": "delivery"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestWonEndpoints(t *testing.T) {
	s := newTestServer(t)
	staff := s.token(t, model.RoleStaff)
	admin := s.token(t, model.RoleAdmin)
	id := s.seed(model.StatusDelivery)

	rec, _ := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/won", staff, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.tickets.rows[id].Won)

	rec, body := s.do(t, http.MethodPost, "/staff/tickets/"+id.String()+"/won", staff, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "already_won", body["reason"])

	rec, _ = s.do(t, http.MethodPost, "/admin/tickets/"+id.String()+"/clear-won", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, s.tickets.rows[id].WonHidden)

	notWon := s.seed(model.StatusDelivery)
	rec, body = s.do(t, http.MethodPost, "/admin/tickets/"+notWon.String()+"/clear-won", admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "not_won", body["reason"])
}

func TestActivityReportDates(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, model.RoleAdmin)

	rec, _ := s.do(t, http.MethodGet, "/admin/reports/activity?start_date=2026-03-01&end_date=2026-03-10", admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/admin/reports/activity?start_date=yesterday", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/admin/reports/activity?start_date=2026-03-10&end_date=2026-03-01", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
