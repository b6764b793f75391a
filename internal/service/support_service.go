package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

const supportPageSize = 10

// SupportService runs the helpdesk: user tickets, anonymous tickets and the
// admin inbox over both.
type SupportService struct {
	tickets    repository.SupportRepository
	public     repository.PublicSupportRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	now        func() time.Time
}

// SupportDependencies bundles collaborators for the support service.
type SupportDependencies struct {
	SupportRepo       repository.SupportRepository
	PublicSupportRepo repository.PublicSupportRepository
	UserRepo          repository.UserRepository
	Dispatcher        events.Dispatcher
	Clock             func() time.Time
}

// SupportCreateInput describes a user ticket.
type SupportCreateInput struct {
	Subject     string
	Description string
	Priority    domain.TicketPriority
	Category    domain.SupportCategory
}

// PublicSupportInput describes a contact-form submission.
type PublicSupportInput struct {
	Name      string
	Email     string
	Message   string
	IPAddress string
	UserAgent string
}

// SupportListInput carries listing filters. Kind is only honoured by the
// admin inbox.
type SupportListInput struct {
	Kind   string
	Status string
	Page   int
	Limit  int
}

// SupportPage is one page of a user's tickets.
type SupportPage struct {
	Tickets     []domain.SupportTicket
	Total       int
	TotalPages  int
	CurrentPage int
}

// SupportEntry is one row of the admin inbox; exactly one of Ticket or
// Public is set, selected by Kind.
type SupportEntry struct {
	Kind   domain.SupportKind
	Ticket *domain.SupportTicket
	Public *domain.PublicSupportTicket
}

// LastReply is the inbox sort key.
func (e SupportEntry) LastReply() time.Time {
	if e.Kind == domain.SupportKindPublic {
		return e.Public.LastReplyAt()
	}
	return e.Ticket.LastReply
}

// SupportInbox is one page of the merged admin inbox.
type SupportInbox struct {
	Entries     []SupportEntry
	Total       int
	TotalPages  int
	CurrentPage int
}

// NewSupportService constructs the service.
func NewSupportService(deps SupportDependencies) *SupportService {
	svc := &SupportService{
		tickets:    deps.SupportRepo,
		public:     deps.PublicSupportRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		now:        deps.Clock,
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

func errTicketNotFound() error {
	return apperrors.NewNotFoundMessage("Ticket not found")
}

func parseSupportStatus(raw string) (domain.SupportStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return "", nil
	}
	status := domain.SupportStatus(raw)
	if !status.Valid() {
		return "", apperrors.NewValidationError("invalid status filter", map[string]any{"field": "status"})
	}
	return status, nil
}

// List returns the user's tickets, latest reply first.
func (s *SupportService) List(ctx context.Context, user *domain.User, input SupportListInput) (*SupportPage, error) {
	status, err := parseSupportStatus(input.Status)
	if err != nil {
		return nil, err
	}
	p := paginate(input.Page, input.Limit, supportPageSize)
	tickets, total, err := s.tickets.List(ctx, repository.SupportFilter{
		UserID: user.ID,
		Status: status,
		Limit:  p.Limit,
		Offset: p.Offset,
	})
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.SupportTicket{}
	}
	return &SupportPage{Tickets: tickets, Total: total, TotalPages: totalPages(total, p.Limit), CurrentPage: p.Page}, nil
}

// ownTicket loads a ticket owned by user; anything else is not found.
func (s *SupportService) ownTicket(ctx context.Context, user *domain.User, id string) (*domain.SupportTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, errTicketNotFound())
	}
	if ticket.UserID != user.ID {
		return nil, errTicketNotFound()
	}
	return ticket, nil
}

// Get returns one of the user's tickets and marks admin replies read.
func (s *SupportService) Get(ctx context.Context, user *domain.User, id string) (*domain.SupportTicket, error) {
	ticket, err := s.ownTicket(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.tickets.MarkMessagesRead(ctx, ticket.ID, domain.SupportSenderAdmin); err != nil {
		return nil, err
	}
	markSupportRead(ticket, domain.SupportSenderAdmin)
	return ticket, nil
}

func markSupportRead(ticket *domain.SupportTicket, sender domain.SupportSender) {
	for i := range ticket.Messages {
		if ticket.Messages[i].Sender == sender {
			ticket.Messages[i].Read = true
		}
	}
}

// Create opens a ticket whose first message is the description.
func (s *SupportService) Create(ctx context.Context, user *domain.User, input SupportCreateInput) (*domain.SupportTicket, error) {
	subject := strings.TrimSpace(input.Subject)
	description := strings.TrimSpace(input.Description)
	if subject == "" || description == "" {
		return nil, apperrors.NewValidationError("subject and description are required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}
	category := input.Category
	if category == "" {
		category = domain.SupportCategoryOther
	}
	if !category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"field": "category"})
	}

	now := s.now()
	ticket := &domain.SupportTicket{
		UserID:      user.ID,
		Subject:     subject,
		Description: description,
		Status:      domain.SupportStatusOpen,
		Priority:    priority,
		Category:    category,
		LastReply:   now,
		Messages: []domain.SupportMessage{
			{Sender: domain.SupportSenderUser, Body: description, Timestamp: now},
		},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventSupportCreated, ticket.ID, userActor(user), nil,
		events.SupportPayload{Subject: subject, BodyPreview: events.Preview(description, 80)}))
	return ticket, nil
}

// Reply appends a user message and puts the ticket back to open.
func (s *SupportService) Reply(ctx context.Context, user *domain.User, id, body string) (*domain.SupportTicket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}
	ticket, err := s.ownTicket(ctx, user, id)
	if err != nil {
		return nil, err
	}

	ticket.Status = domain.SupportStatusOpen
	msg := &domain.SupportMessage{Sender: domain.SupportSenderUser, Body: body, Timestamp: s.now()}
	if err := s.tickets.AppendMessage(ctx, ticket, msg); err != nil {
		return nil, translate(err, errTicketNotFound())
	}

	publish(ctx, s.dispatcher, events.New(events.EventSupportUserReplied, ticket.ID, userActor(user), nil,
		events.SupportPayload{Subject: ticket.Subject, BodyPreview: events.Preview(body, 80)}))
	return ticket, nil
}

// Close marks one of the user's tickets closed.
func (s *SupportService) Close(ctx context.Context, user *domain.User, id string) error {
	ticket, err := s.ownTicket(ctx, user, id)
	if err != nil {
		return err
	}
	ticket.Status = domain.SupportStatusClosed
	return translate(s.tickets.Update(ctx, ticket), errTicketNotFound())
}

// SendAdminMessage opens a ticket on a user's behalf whose first message comes
// from an admin, so the user can answer in the same thread.
func (s *SupportService) SendAdminMessage(ctx context.Context, admin *domain.GlobalAdmin, userID, subject, body string) (*domain.SupportTicket, error) {
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(body)
	if subject == "" || body == "" {
		return nil, apperrors.NewValidationError("subject and message are required", nil)
	}
	user, err := s.users.GetByID(ctx, strings.TrimSpace(userID))
	if err != nil {
		return nil, translate(err, errUserNotFound())
	}
	if user.IsDeleted {
		return nil, errUserNotFound()
	}

	now := s.now()
	ticket := &domain.SupportTicket{
		UserID:      user.ID,
		Subject:     subject,
		Description: body,
		Status:      domain.SupportStatusOpen,
		Priority:    domain.TicketPriorityMedium,
		Category:    domain.SupportCategoryOther,
		LastReply:   now,
		Messages: []domain.SupportMessage{
			{Sender: domain.SupportSenderAdmin, Body: body, Timestamp: now},
		},
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventAdminDirectMessage, ticket.ID, adminActor(admin),
		[]string{user.ID}, events.SupportPayload{Subject: subject, BodyPreview: events.Preview(body, 80)}))
	return ticket, nil
}

// CreatePublic stores a contact-form ticket. No credential is involved.
func (s *SupportService) CreatePublic(ctx context.Context, input PublicSupportInput) (*domain.PublicSupportTicket, error) {
	email := strings.TrimSpace(input.Email)
	message := strings.TrimSpace(input.Message)
	if email == "" || message == "" {
		return nil, apperrors.NewValidationError("Email and message are required", nil)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "Anonymous"
	}

	ticket := &domain.PublicSupportTicket{
		Name:      name,
		Email:     email,
		Message:   message,
		Status:    domain.SupportStatusOpen,
		Priority:  domain.TicketPriorityMedium,
		Category:  domain.SupportCategoryGeneral,
		Source:    "public-form",
		IPAddress: optional(input.IPAddress),
		UserAgent: optional(input.UserAgent),
	}
	if err := s.public.Create(ctx, ticket); err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventSupportCreated, ticket.ID,
		events.Actor{Name: name}, nil, events.SupportPayload{Subject: "Public Support: " + events.Preview(message, 50)}))
	return ticket, nil
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Inbox merges user and public tickets, latest reply first.
func (s *SupportService) Inbox(ctx context.Context, input SupportListInput) (*SupportInbox, error) {
	status, err := parseSupportStatus(input.Status)
	if err != nil {
		return nil, err
	}
	kind := domain.SupportKind(strings.ToLower(strings.TrimSpace(input.Kind)))
	switch kind {
	case "", "all", domain.SupportKindUser, domain.SupportKindPublic:
	default:
		return nil, apperrors.NewValidationError("type must be user or public", map[string]any{"field": "type"})
	}

	p := paginate(input.Page, input.Limit, adminPageSize)
	// The top offset+limit rows of the merge are always within the top
	// offset+limit rows of each source.
	window := p.Offset + p.Limit
	var entries []SupportEntry
	total := 0

	if kind != domain.SupportKindPublic {
		tickets, n, err := s.tickets.List(ctx, repository.SupportFilter{Status: status, Limit: window})
		if err != nil {
			return nil, err
		}
		if err := s.populateOwners(ctx, tickets); err != nil {
			return nil, err
		}
		total += n
		for i := range tickets {
			entries = append(entries, SupportEntry{Kind: domain.SupportKindUser, Ticket: &tickets[i]})
		}
	}
	if kind != domain.SupportKindUser {
		tickets, n, err := s.public.List(ctx, status, window, 0)
		if err != nil {
			return nil, err
		}
		total += n
		for i := range tickets {
			entries = append(entries, SupportEntry{Kind: domain.SupportKindPublic, Public: &tickets[i]})
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastReply().After(entries[j].LastReply())
	})
	if p.Offset >= len(entries) {
		entries = []SupportEntry{}
	} else {
		end := p.Offset + p.Limit
		if end > len(entries) {
			end = len(entries)
		}
		entries = entries[p.Offset:end]
	}

	return &SupportInbox{Entries: entries, Total: total, TotalPages: totalPages(total, p.Limit), CurrentPage: p.Page}, nil
}

func (s *SupportService) populateOwners(ctx context.Context, tickets []domain.SupportTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	ids := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.UserID)
	}
	users, err := s.users.ListByIDs(ctx, ids)
	if err != nil {
		return err
	}
	profiles := make(map[string]domain.UserProfile, len(users))
	for i := range users {
		profiles[users[i].ID] = users[i].Profile()
	}
	for i := range tickets {
		if p, ok := profiles[tickets[i].UserID]; ok {
			profile := p
			tickets[i].User = &profile
		}
	}
	return nil
}

// lookup resolves id against user tickets first, then public tickets.
func (s *SupportService) lookup(ctx context.Context, id string) (SupportEntry, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err == nil {
		return SupportEntry{Kind: domain.SupportKindUser, Ticket: ticket}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return SupportEntry{}, err
	}
	public, err := s.public.GetByID(ctx, id)
	if err != nil {
		return SupportEntry{}, translate(err, errTicketNotFound())
	}
	return SupportEntry{Kind: domain.SupportKindPublic, Public: public}, nil
}

// AdminGet returns a ticket of either kind. Viewing a user ticket marks the
// user's messages read.
func (s *SupportService) AdminGet(ctx context.Context, id string) (*SupportEntry, error) {
	entry, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry.Kind == domain.SupportKindUser {
		if _, err := s.tickets.MarkMessagesRead(ctx, entry.Ticket.ID, domain.SupportSenderUser); err != nil {
			return nil, err
		}
		markSupportRead(entry.Ticket, domain.SupportSenderUser)
		tickets := []domain.SupportTicket{*entry.Ticket}
		if err := s.populateOwners(ctx, tickets); err != nil {
			return nil, err
		}
		entry.Ticket.User = tickets[0].User
	}
	return &entry, nil
}

// AdminReply answers a ticket and moves it to in-progress. The owner of a
// user ticket is notified while the account is still usable.
func (s *SupportService) AdminReply(ctx context.Context, admin *domain.GlobalAdmin, id, body string) (*SupportEntry, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}
	entry, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if entry.Kind == domain.SupportKindPublic {
		entry.Public.Status = domain.SupportStatusInProgress
		response := &domain.PublicResponse{Message: body, RespondedBy: respondent(admin), RespondedAt: now}
		if err := s.public.AddResponse(ctx, entry.Public, response); err != nil {
			return nil, translate(err, errTicketNotFound())
		}
		return &entry, nil
	}

	entry.Ticket.Status = domain.SupportStatusInProgress
	msg := &domain.SupportMessage{Sender: domain.SupportSenderAdmin, Body: body, Timestamp: now}
	if err := s.tickets.AppendMessage(ctx, entry.Ticket, msg); err != nil {
		return nil, translate(err, errTicketNotFound())
	}
	s.notifyOwner(ctx, admin, entry.Ticket, events.EventSupportAdminReplied,
		events.SupportPayload{Subject: entry.Ticket.Subject, BodyPreview: events.Preview(body, 80)})
	return &entry, nil
}

func respondent(admin *domain.GlobalAdmin) string {
	if admin == nil || admin.Email == "" {
		return "global-admin"
	}
	return admin.Email
}

func (s *SupportService) notifyOwner(ctx context.Context, admin *domain.GlobalAdmin, ticket *domain.SupportTicket, eventType events.EventType, payload events.SupportPayload) {
	owner, err := s.users.GetByID(ctx, ticket.UserID)
	if err != nil || owner.IsDeleted {
		return
	}
	publish(ctx, s.dispatcher, events.New(eventType, ticket.ID, adminActor(admin), []string{owner.ID}, payload))
}

// AdminUpdateStatus assigns a status to a ticket of either kind.
func (s *SupportService) AdminUpdateStatus(ctx context.Context, admin *domain.GlobalAdmin, id string, status domain.SupportStatus) (*SupportEntry, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"field":   "status",
			"allowed": []string{"open", "in-progress", "resolved", "closed"},
		})
	}
	entry, err := s.lookup(ctx, id)
	if err != nil {
		return nil, err
	}

	if entry.Kind == domain.SupportKindPublic {
		entry.Public.Status = status
		if err := s.public.Update(ctx, entry.Public); err != nil {
			return nil, translate(err, errTicketNotFound())
		}
		return &entry, nil
	}

	entry.Ticket.Status = status
	if err := s.tickets.Update(ctx, entry.Ticket); err != nil {
		return nil, translate(err, errTicketNotFound())
	}
	s.notifyOwner(ctx, admin, entry.Ticket, events.EventSupportStatusChanged,
		events.SupportPayload{Subject: entry.Ticket.Subject, Status: status})
	return &entry, nil
}

// AdminReopen puts a ticket of either kind back to open. Any global admin
// may reopen, as with escrow tickets.
func (s *SupportService) AdminReopen(ctx context.Context, admin *domain.GlobalAdmin, id string) (*SupportEntry, error) {
	return s.AdminUpdateStatus(ctx, admin, id, domain.SupportStatusOpen)
}

// AdminDelete soft-deletes a ticket of either kind. Only the original global
// admin may delete.
func (s *SupportService) AdminDelete(ctx context.Context, admin *domain.GlobalAdmin, id string) (domain.SupportKind, error) {
	if admin == nil || !admin.IsOriginal {
		return "", apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original Global Admin can delete support tickets")
	}
	entry, err := s.lookup(ctx, id)
	if err != nil {
		return "", err
	}

	now := s.now()
	deletedBy := admin.Email
	if entry.Kind == domain.SupportKindPublic {
		entry.Public.IsDeleted = true
		entry.Public.DeletedAt = &now
		entry.Public.DeletedBy = &deletedBy
		return entry.Kind, translate(s.public.Update(ctx, entry.Public), errTicketNotFound())
	}
	entry.Ticket.IsDeleted = true
	entry.Ticket.DeletedAt = &now
	entry.Ticket.DeletedBy = &deletedBy
	return entry.Kind, translate(s.tickets.Update(ctx, entry.Ticket), errTicketNotFound())
}
