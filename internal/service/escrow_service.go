package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/marketbook/marketbook-api/internal/auth"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

const (
	partyPageSize   = 10
	adminPageSize   = 20
	userSearchLimit = 20
)

// EscrowService coordinates the escrow ticket state machine.
type EscrowService struct {
	tickets    repository.EscrowRepository
	users      repository.UserRepository
	dispatcher events.Dispatcher
	metrics    ActionRecorder
	now        func() time.Time
}

// EscrowDependencies bundles collaborators for the escrow service.
type EscrowDependencies struct {
	EscrowRepo repository.EscrowRepository
	UserRepo   repository.UserRepository
	Dispatcher events.Dispatcher
	Metrics    ActionRecorder
	Clock      func() time.Time
}

// EscrowCreateInput describes an invitation.
type EscrowCreateInput struct {
	RecipientID       string
	Title             string
	Description       string
	TransactionAmount float64
	Currency          string
	Category          domain.EscrowCategory
	Priority          domain.TicketPriority
	Metadata          domain.EscrowMetadata
}

// EscrowListInput carries listing filters. Type narrows a party listing to
// "initiated" or "received" and then takes precedence over Status.
type EscrowListInput struct {
	Status string
	Type   string
	Search string
	Page   int
	Limit  int
}

// EscrowPage is one page of tickets.
type EscrowPage struct {
	Tickets     []domain.EscrowTicket
	Total       int
	TotalPages  int
	CurrentPage int
}

// NewEscrowService constructs the service.
func NewEscrowService(deps EscrowDependencies) *EscrowService {
	svc := &EscrowService{
		tickets:    deps.EscrowRepo,
		users:      deps.UserRepo,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		now:        deps.Clock,
	}
	if svc.metrics == nil {
		svc.metrics = noopRecorder{}
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

func errEscrowNotFound() error {
	return apperrors.NewNotFoundMessage("Escrow ticket not found")
}

// SearchUsers finds candidate recipients. Queries shorter than two characters
// yield an empty result.
func (s *EscrowService) SearchUsers(ctx context.Context, callerID, query string) ([]domain.User, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return []domain.User{}, nil
	}
	users, err := s.users.Search(ctx, repository.UserSearch{Query: query, ExcludeID: callerID, Limit: userSearchLimit})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// Create opens a ticket in pending/pending and invites the recipient.
func (s *EscrowService) Create(ctx context.Context, initiator *domain.User, input EscrowCreateInput) (*domain.EscrowTicket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}
	if input.TransactionAmount < 0 {
		return nil, apperrors.NewValidationError("transaction amount cannot be negative", map[string]any{"field": "transactionAmount"})
	}
	if input.RecipientID == initiator.ID {
		return nil, apperrors.NewBadRequest("SELF_TARGET", "Cannot create escrow with yourself")
	}

	recipient, err := s.users.GetByID(ctx, input.RecipientID)
	if err != nil {
		return nil, translate(err, errInvalidRecipient())
	}
	if !recipient.Usable() {
		return nil, errInvalidRecipient()
	}

	category := input.Category
	if category == "" {
		category = domain.EscrowCategoryOther
	}
	if !category.Valid() {
		return nil, apperrors.NewValidationError("invalid category", map[string]any{"field": "category"})
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"field": "priority"})
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = "USD"
	}
	metadata := input.Metadata
	if metadata.Source == "" {
		metadata.Source = "web"
	}

	now := s.now()
	ticket := &domain.EscrowTicket{
		Title:             title,
		Description:       description,
		InitiatorID:       initiator.ID,
		RecipientID:       recipient.ID,
		Status:            domain.EscrowStatusPending,
		InvitationStatus:  domain.InvitationPending,
		TransactionAmount: input.TransactionAmount,
		Currency:          currency,
		Category:          category,
		Priority:          priority,
		LastActivity:      now,
		InvitationSentAt:  now,
		Metadata:          metadata,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	initiatorProfile := initiator.Profile()
	recipientProfile := recipient.Profile()
	ticket.Initiator = &initiatorProfile
	ticket.Recipient = &recipientProfile

	s.metrics.RecordEscrowAction("create")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowInvitation, ticket.ID, userActor(initiator),
		[]string{recipient.ID}, events.EscrowPayload{Title: ticket.Title}))
	return ticket, nil
}

func errInvalidRecipient() error {
	return apperrors.NewDomainError("INVALID_RECIPIENT", "Recipient not found or inactive", http.StatusNotFound, nil)
}

// Respond records the recipient's answer. Tickets the caller does not
// receive and invitations already answered are reported identically.
func (s *EscrowService) Respond(ctx context.Context, caller *domain.User, ticketID, action string) (*domain.EscrowTicket, error) {
	accept := false
	switch strings.ToLower(strings.TrimSpace(action)) {
	case "accept":
		accept = true
	case "decline":
	default:
		return nil, apperrors.NewBadRequest("INVALID_ACTION", `Invalid action. Use "accept" or "decline"`)
	}

	notFound := apperrors.NewNotFoundMessage("Escrow invitation not found or already responded")
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, notFound)
	}
	if ticket.ResolveRole(caller.ID) != domain.EscrowRoleRecipient || ticket.InvitationStatus != domain.InvitationPending {
		return nil, notFound
	}

	if accept {
		now := s.now()
		ticket.InvitationStatus = domain.InvitationAccepted
		ticket.Status = domain.EscrowStatusActive
		ticket.AcceptedAt = &now
	} else {
		ticket.InvitationStatus = domain.InvitationDeclined
		ticket.Status = domain.EscrowStatusCancelled
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, notFound)
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	if accept {
		s.metrics.RecordEscrowAction("accept")
	} else {
		s.metrics.RecordEscrowAction("decline")
	}
	publish(ctx, s.dispatcher, events.New(events.EventEscrowResponded, ticket.ID, userActor(caller),
		[]string{ticket.InitiatorID}, events.EscrowPayload{Title: ticket.Title, Accepted: accept}))
	return ticket, nil
}

// partyTicket loads a ticket the caller is a party of.
func (s *EscrowService) partyTicket(ctx context.Context, callerID, ticketID string, notFound error) (*domain.EscrowTicket, domain.EscrowRole, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, domain.EscrowRoleNone, translate(err, notFound)
	}
	role := ticket.ResolveRole(callerID)
	if role == domain.EscrowRoleNone {
		return nil, domain.EscrowRoleNone, notFound
	}
	return ticket, role, nil
}

func errNotOpen(ticket *domain.EscrowTicket, message string) error {
	return apperrors.NewDomainError("INVALID_STATUS", message, http.StatusBadRequest, map[string]any{"status": string(ticket.Status)})
}

// Message appends a party message and notifies the counterparty.
func (s *EscrowService) Message(ctx context.Context, caller *domain.User, ticketID, body string) (*domain.EscrowTicket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}

	notFound := apperrors.NewNotFoundMessage("Escrow ticket not found or not accessible")
	ticket, role, err := s.partyTicket(ctx, caller.ID, ticketID, notFound)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.Open() {
		return nil, errNotOpen(ticket, "Escrow ticket is no longer open for messages")
	}

	senderID := caller.ID
	msg := &domain.EscrowMessage{Sender: role, SenderID: &senderID, Body: body, Timestamp: s.now()}
	if err := s.tickets.AppendMessage(ctx, ticket, msg); err != nil {
		return nil, translate(err, notFound)
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("message")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowMessage, ticket.ID, userActor(caller),
		[]string{ticket.CounterpartyOf(role)}, events.EscrowPayload{Title: ticket.Title, BodyPreview: events.Preview(body, 80)}))
	return ticket, nil
}

// Close ends a pending or active ticket on behalf of a party.
func (s *EscrowService) Close(ctx context.Context, caller *domain.User, ticketID string) (*domain.EscrowTicket, error) {
	notFound := apperrors.NewNotFoundMessage("Escrow ticket not found or cannot be closed")
	ticket, role, err := s.partyTicket(ctx, caller.ID, ticketID, notFound)
	if err != nil {
		return nil, err
	}
	if !ticket.Status.Open() {
		return nil, errNotOpen(ticket, "Escrow ticket cannot be closed")
	}

	s.markClosed(ticket, role)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, notFound)
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("close")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowClosed, ticket.ID, userActor(caller),
		[]string{ticket.CounterpartyOf(role)}, events.EscrowPayload{Title: ticket.Title, ClosedBy: role}))
	return ticket, nil
}

func (s *EscrowService) markClosed(ticket *domain.EscrowTicket, by domain.EscrowRole) {
	now := s.now()
	ticket.Status = domain.EscrowStatusClosed
	ticket.ClosedAt = &now
	ticket.ClosedBy = &by
}

// Get returns a ticket to one of its parties and marks the counterparty's
// messages read. Non-parties get the same error as for a missing ticket.
func (s *EscrowService) Get(ctx context.Context, caller *domain.User, ticketID string) (*domain.EscrowTicket, error) {
	ticket, role, err := s.partyTicket(ctx, caller.ID, ticketID, errEscrowNotFound())
	if err != nil {
		return nil, err
	}

	counterparty := domain.EscrowRoleRecipient
	if role == domain.EscrowRoleRecipient {
		counterparty = domain.EscrowRoleInitiator
	}
	if _, err := s.tickets.MarkMessagesRead(ctx, ticket.ID, []domain.EscrowRole{counterparty}); err != nil {
		return nil, err
	}
	for i := range ticket.Messages {
		if ticket.Messages[i].Sender == counterparty {
			ticket.Messages[i].Read = true
		}
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// List returns the caller's tickets, newest activity first.
func (s *EscrowService) List(ctx context.Context, caller *domain.User, input EscrowListInput) (*EscrowPage, error) {
	filter := repository.EscrowFilter{PartyID: caller.ID, Search: strings.TrimSpace(input.Search)}

	status, err := parseStatusFilter(input.Status)
	if err != nil {
		return nil, err
	}
	filter.Status = status

	switch strings.ToLower(strings.TrimSpace(input.Type)) {
	case "", "all":
	case string(repository.EscrowScopeInitiated):
		filter.Scope = repository.EscrowScopeInitiated
		filter.Status = ""
	case string(repository.EscrowScopeReceived):
		filter.Scope = repository.EscrowScopeReceived
		filter.Status = ""
	default:
		return nil, apperrors.NewValidationError("type must be initiated or received", map[string]any{"field": "type"})
	}

	return s.list(ctx, filter, paginate(input.Page, input.Limit, partyPageSize))
}

// ListAll returns every non-deleted ticket for mediation.
func (s *EscrowService) ListAll(ctx context.Context, input EscrowListInput) (*EscrowPage, error) {
	status, err := parseStatusFilter(input.Status)
	if err != nil {
		return nil, err
	}
	filter := repository.EscrowFilter{Status: status, Search: strings.TrimSpace(input.Search)}
	return s.list(ctx, filter, paginate(input.Page, input.Limit, adminPageSize))
}

func parseStatusFilter(raw string) (domain.EscrowStatus, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" || raw == "all" {
		return "", nil
	}
	status := domain.EscrowStatus(raw)
	if !status.Valid() {
		return "", apperrors.NewValidationError("invalid status filter", map[string]any{"field": "status"})
	}
	return status, nil
}

func (s *EscrowService) list(ctx context.Context, filter repository.EscrowFilter, p Pagination) (*EscrowPage, error) {
	filter.Limit = p.Limit
	filter.Offset = p.Offset
	tickets, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if err := s.populateAll(ctx, tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.EscrowTicket{}
	}
	return &EscrowPage{
		Tickets:     tickets,
		Total:       total,
		TotalPages:  totalPages(total, p.Limit),
		CurrentPage: p.Page,
	}, nil
}

// AdminGet returns any non-deleted ticket without touching read flags.
func (s *EscrowService) AdminGet(ctx context.Context, ticketID string) (*domain.EscrowTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}
	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// AdminMessage appends a mediator message regardless of status and notifies
// both parties.
func (s *EscrowService) AdminMessage(ctx context.Context, admin *domain.GlobalAdmin, ticketID, body string) (*domain.EscrowTicket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("message is required", map[string]any{"field": "message"})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	msg := &domain.EscrowMessage{Sender: domain.EscrowRoleAdmin, Body: body, Timestamp: s.now()}
	if err := s.tickets.AppendMessage(ctx, ticket, msg); err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("admin_message")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowMessage, ticket.ID, adminActor(admin),
		ticket.PartyIDs(), events.EscrowPayload{Title: ticket.Title, FromAdmin: true, BodyPreview: events.Preview(body, 80)}))
	return ticket, nil
}

// AdminClose ends a pending or active ticket as mediator.
func (s *EscrowService) AdminClose(ctx context.Context, admin *domain.GlobalAdmin, ticketID string) (*domain.EscrowTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}
	if !ticket.Status.Open() {
		return nil, errNotOpen(ticket, "Escrow ticket cannot be closed")
	}

	s.markClosed(ticket, domain.EscrowRoleAdmin)
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("admin_close")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowClosed, ticket.ID, adminActor(admin),
		ticket.PartyIDs(), events.EscrowPayload{Title: ticket.Title, ClosedBy: domain.EscrowRoleAdmin}))
	return ticket, nil
}

// Reopen moves a ticket back to active from any status. It is the only path
// from closed to active.
func (s *EscrowService) Reopen(ctx context.Context, admin *domain.GlobalAdmin, ticketID string) (*domain.EscrowTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	ticket.Status = domain.EscrowStatusActive
	ticket.ClosedAt = nil
	ticket.ClosedBy = nil
	ticket.LastActivity = s.now()
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("reopen")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowReopened, ticket.ID, adminActor(admin),
		ticket.PartyIDs(), events.EscrowPayload{Title: ticket.Title}))
	return ticket, nil
}

// UpdateStatus assigns a status directly, bypassing the transition table.
func (s *EscrowService) UpdateStatus(ctx context.Context, admin *domain.GlobalAdmin, ticketID string, status domain.EscrowStatus) (*domain.EscrowTicket, error) {
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{
			"field":   "status",
			"allowed": []string{"pending", "active", "closed", "cancelled"},
		})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	previous := ticket.Status
	ticket.Status = status
	switch {
	case status == domain.EscrowStatusClosed && previous != domain.EscrowStatusClosed:
		s.markClosed(ticket, domain.EscrowRoleAdmin)
	case status != domain.EscrowStatusClosed:
		ticket.ClosedAt = nil
		ticket.ClosedBy = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	s.metrics.RecordEscrowAction("status_override")
	publish(ctx, s.dispatcher, events.New(events.EventEscrowStatusChanged, ticket.ID, adminActor(admin),
		ticket.PartyIDs(), events.EscrowPayload{Title: ticket.Title, Status: status}))
	return ticket, nil
}

// SetAdminNotes stores internal notes; parties are not notified. Blank notes
// clear the field.
func (s *EscrowService) SetAdminNotes(ctx context.Context, ticketID, notes string) (*domain.EscrowTicket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if trimmed := strings.TrimSpace(notes); trimmed != "" {
		ticket.AdminNotes = &trimmed
	} else {
		ticket.AdminNotes = nil
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, translate(err, errEscrowNotFound())
	}

	if err := s.populate(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// SoftDelete hides a ticket from every listing. Only the original global
// admin may delete.
func (s *EscrowService) SoftDelete(ctx context.Context, admin *domain.GlobalAdmin, ticketID string) error {
	if admin == nil || !admin.IsOriginal {
		return apperrors.NewPrivilegeRequired(auth.PrivilegeOriginalAdmin, "Only the original global admin can delete escrow tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return translate(err, errEscrowNotFound())
	}

	now := s.now()
	deletedBy := admin.Email
	ticket.IsDeleted = true
	ticket.DeletedAt = &now
	ticket.DeletedBy = &deletedBy
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return translate(err, errEscrowNotFound())
	}
	s.metrics.RecordEscrowAction("delete")
	return nil
}

func (s *EscrowService) populate(ctx context.Context, ticket *domain.EscrowTicket) error {
	tickets := []domain.EscrowTicket{*ticket}
	if err := s.populateAll(ctx, tickets); err != nil {
		return err
	}
	ticket.Initiator = tickets[0].Initiator
	ticket.Recipient = tickets[0].Recipient
	return nil
}

// populateAll attaches public party profiles. A party whose account row is
// gone is left nil.
func (s *EscrowService) populateAll(ctx context.Context, tickets []domain.EscrowTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	seen := map[string]struct{}{}
	var ids []string
	for _, t := range tickets {
		for _, id := range t.PartyIDs() {
			if _, ok := seen[id]; !ok && id != "" {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
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
		if p, ok := profiles[tickets[i].InitiatorID]; ok {
			profile := p
			tickets[i].Initiator = &profile
		}
		if p, ok := profiles[tickets[i].RecipientID]; ok {
			profile := p
			tickets[i].Recipient = &profile
		}
	}
	return nil
}
