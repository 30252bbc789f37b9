package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"techservice/internal/client"
	"techservice/internal/model"
	"techservice/internal/repository"
)

type fakeTicketStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Ticket

	gets    int
	patches int
	updates int
	filters []repository.TicketListFilter

	// beforePatch runs inside ApplyPatch before the precondition check.
	beforePatch func(t *model.Ticket)
	// corruptReturned alters the row ApplyPatch returns, not the stored one.
	corruptReturned func(t *model.Ticket)
	// corruptRead alters rows returned by GetByID.
	corruptRead func(t *model.Ticket)
	// beforeUpdate runs inside UpdateDetails before the precondition check.
	beforeUpdate func(rows map[uuid.UUID]model.Ticket)
	patchErr     error
}

func newFakeTicketStore(tickets ...model.Ticket) *fakeTicketStore {
	s := &fakeTicketStore{rows: map[uuid.UUID]model.Ticket{}}
	for _, t := range tickets {
		if t.ID == uuid.Nil {
			t.ID = uuid.New()
		}
		s.rows[t.ID] = t
	}
	return s
}

func (s *fakeTicketStore) Create(_ context.Context, ticket *model.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == uuid.Nil {
		ticket.ID = uuid.New()
	}
	s.rows[ticket.ID] = *ticket
	return nil
}

func (s *fakeTicketStore) GetByID(_ context.Context, id uuid.UUID) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets++
	t, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	if s.corruptRead != nil {
		s.corruptRead(&t)
	}
	return &t, nil
}

func (s *fakeTicketStore) UpdateDetails(_ context.Context, ticket *model.Ticket, unchangedSince time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.beforeUpdate != nil {
		s.beforeUpdate(s.rows)
	}
	stored, ok := s.rows[ticket.ID]
	if !ok || !stored.UpdatedAt.Equal(unchangedSince) {
		return repository.ErrPreconditionFailed
	}
	s.updates++
	edited := *ticket
	edited.Status = stored.Status
	edited.Won = stored.Won
	edited.WonAt = stored.WonAt
	edited.WonHidden = stored.WonHidden
	edited.CreatedAt = stored.CreatedAt
	s.rows[ticket.ID] = edited
	return nil
}

func (s *fakeTicketStore) ApplyPatch(_ context.Context, id uuid.UUID, cond model.TicketPrecondition, patch model.TicketPatch) (*model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches++
	if s.patchErr != nil {
		return nil, s.patchErr
	}
	t, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrPreconditionFailed
	}
	if s.beforePatch != nil {
		s.beforePatch(&t)
		s.rows[id] = t
	}
	if !cond.Holds(t) {
		return nil, repository.ErrPreconditionFailed
	}
	updated := patch.Apply(t)
	s.rows[id] = updated
	if s.corruptReturned != nil {
		s.corruptReturned(&updated)
	}
	return &updated, nil
}

func (s *fakeTicketStore) List(_ context.Context, f repository.TicketListFilter) ([]model.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = append(s.filters, f)
	var out []model.Ticket
	for _, t := range s.rows {
		if matches(t, f) {
			out = append(out, t)
		}
	}
	return out, nil
}

func matches(t model.Ticket, f repository.TicketListFilter) bool {
	switch {
	case f.Status != nil && t.Status != *f.Status:
		return false
	case f.AssignedTo != nil && !t.IsAssignedTo(*f.AssignedTo):
		return false
	case f.Unassigned && t.AssignedTo != nil:
		return false
	case f.Won != nil && t.Won != *f.Won:
		return false
	case f.ExcludeHidden && t.WonHidden:
		return false
	case f.HasCustomer && t.CustomerFullName == nil:
		return false
	case f.CreatedFrom != nil && t.CreatedAt.Before(*f.CreatedFrom):
		return false
	case f.UpdatedFrom != nil && t.UpdatedAt.Before(*f.UpdatedFrom):
		return false
	case f.UpdatedTo != nil && t.UpdatedAt.After(*f.UpdatedTo):
		return false
	case (f.WonFrom != nil || f.WonTo != nil) && t.WonAt == nil:
		return false
	case f.WonFrom != nil && t.WonAt.Before(*f.WonFrom):
		return false
	case f.WonTo != nil && t.WonAt.After(*f.WonTo):
		return false
	case f.Search != nil && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(*f.Search)):
		return false
	}
	return true
}

func (s *fakeTicketStore) row(id uuid.UUID) model.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[id]
}

type fakeNoteStore struct {
	mu    sync.Mutex
	notes []model.Note
	err   error
}

func (s *fakeNoteStore) Create(_ context.Context, note *model.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	note.ID = uuid.New()
	s.notes = append(s.notes, *note)
	return nil
}

func (s *fakeNoteStore) ListByTicket(_ context.Context, ticketID uuid.UUID) ([]model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Note
	for _, n := range s.notes {
		if n.TicketID == ticketID {
			out = append(out, n)
		}
	}
	return out, nil
}

type fakeDeviceStore struct {
	rows map[uuid.UUID]model.Device
}

func newFakeDeviceStore(devices ...model.Device) *fakeDeviceStore {
	s := &fakeDeviceStore{rows: map[uuid.UUID]model.Device{}}
	for _, d := range devices {
		s.rows[d.ID] = d
	}
	return s
}

func (s *fakeDeviceStore) Create(_ context.Context, d *model.Device) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	s.rows[d.ID] = *d
	return nil
}

func (s *fakeDeviceStore) GetByID(_ context.Context, id uuid.UUID) (*model.Device, error) {
	d, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &d, nil
}

func (s *fakeDeviceStore) List(context.Context) ([]model.Device, error) {
	out := make([]model.Device, 0, len(s.rows))
	for _, d := range s.rows {
		out = append(out, d)
	}
	return out, nil
}

func (s *fakeDeviceStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.rows, id)
	return nil
}

type fakeTechnicianStore struct {
	rows      map[uuid.UUID]model.Technician
	createErr error
	deleted   []uuid.UUID
}

func newFakeTechnicianStore(techs ...model.Technician) *fakeTechnicianStore {
	s := &fakeTechnicianStore{rows: map[uuid.UUID]model.Technician{}}
	for _, t := range techs {
		s.rows[t.ID] = t
	}
	return s
}

func (s *fakeTechnicianStore) Create(_ context.Context, t *model.Technician) error {
	if s.createErr != nil {
		return s.createErr
	}
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	s.rows[t.ID] = *t
	return nil
}

func (s *fakeTechnicianStore) GetByID(_ context.Context, id uuid.UUID) (*model.Technician, error) {
	t, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &t, nil
}

func (s *fakeTechnicianStore) List(_ context.Context, activeOnly bool) ([]model.Technician, error) {
	var out []model.Technician
	for _, t := range s.rows {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *fakeTechnicianStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	for _, t := range s.rows {
		if t.Username != nil && *t.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeTechnicianStore) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	t, ok := s.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	t.Active = active
	s.rows[id] = t
	return nil
}

func (s *fakeTechnicianStore) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.rows[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(s.rows, id)
	s.deleted = append(s.deleted, id)
	return nil
}

type publishedEvent struct {
	name    string
	payload map[string]interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *fakePublisher) ProduceTicketEvent(_ context.Context, event string, payload map[string]interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{name: event, payload: payload})
}

func (p *fakePublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.name)
	}
	return out
}

type fakePasswords struct {
	err   error
	calls map[string]string
}

func (p *fakePasswords) SetPassword(_ context.Context, technicianID, password string) error {
	if p.calls == nil {
		p.calls = map[string]string{}
	}
	p.calls[technicianID] = password
	return p.err
}

type fakeAuthenticator struct {
	identity *client.Identity
	err      error
	gotType  string
}

func (a *fakeAuthenticator) Login(_ context.Context, _, _, userType string) (*client.Identity, error) {
	a.gotType = userType
	if a.err != nil {
		return nil, a.err
	}
	return a.identity, nil
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }
