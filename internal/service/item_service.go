package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/repository"
	apperrors "github.com/marketbook/marketbook-api/pkg/util/errorutil"
)

const (
	itemPageSize          = 10
	invoiceCreateAttempts = 3
	invoiceSuffixLength   = 5
	base36Alphabet        = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ItemService manages listings and their invoice payment flow.
type ItemService struct {
	items      repository.ItemRepository
	dispatcher events.Dispatcher
	now        func() time.Time
	invoiceNo  func(time.Time) (string, error)
}

// ItemDependencies bundles collaborators for the item service.
type ItemDependencies struct {
	ItemRepo   repository.ItemRepository
	Dispatcher events.Dispatcher
	Clock      func() time.Time
}

// ItemInput describes a new listing.
type ItemInput struct {
	Name        string
	Description string
	Price       float64
	Status      domain.ItemStatus
	Category    string
	Tags        []string
	ImageURL    string
}

// ItemUpdateInput carries optional replacements; nil fields are kept.
type ItemUpdateInput struct {
	Name        *string
	Description *string
	Price       *float64
	Status      *domain.ItemStatus
	Category    *string
	Tags        []string
	ImageURL    *string
}

// ItemListInput carries listing filters.
type ItemListInput struct {
	Status string
	Search string
	Page   int
	Limit  int
}

// ItemPage is one page of listings.
type ItemPage struct {
	Items       []domain.Item
	Total       int
	TotalPages  int
	CurrentPage int
}

// NewItemService constructs the service.
func NewItemService(deps ItemDependencies) *ItemService {
	svc := &ItemService{
		items:      deps.ItemRepo,
		dispatcher: deps.Dispatcher,
		now:        deps.Clock,
		invoiceNo:  newInvoiceNumber,
	}
	if svc.now == nil {
		svc.now = systemClock
	}
	return svc
}

func errItemNotFound() error {
	return apperrors.NewNotFoundMessage("Item not found")
}

// newInvoiceNumber renders INV-<base36 millis>-<5 random base36>, uppercased.
func newInvoiceNumber(at time.Time) (string, error) {
	var suffix strings.Builder
	radix := big.NewInt(int64(len(base36Alphabet)))
	for i := 0; i < invoiceSuffixLength; i++ {
		n, err := rand.Int(rand.Reader, radix)
		if err != nil {
			return "", err
		}
		suffix.WriteByte(base36Alphabet[n.Int64()])
	}
	return strings.ToUpper("INV-" + strconv.FormatInt(at.UnixMilli(), 36) + "-" + suffix.String()), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func itemPayload(item *domain.Item) events.ItemPayload {
	return events.ItemPayload{ItemName: item.Name, InvoiceNumber: item.InvoiceNumber, Amount: item.Price}
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// List returns the user's listings, newest first.
func (s *ItemService) List(ctx context.Context, user *domain.User, input ItemListInput) (*ItemPage, error) {
	filter := repository.ItemFilter{UserID: user.ID, Search: strings.TrimSpace(input.Search)}
	if raw := strings.ToLower(strings.TrimSpace(input.Status)); raw != "" && raw != "all" {
		status := domain.ItemStatus(raw)
		if !status.Valid() {
			return nil, apperrors.NewValidationError("invalid status filter", map[string]any{"field": "status"})
		}
		filter.Status = status
	}

	p := paginate(input.Page, input.Limit, itemPageSize)
	filter.Limit = p.Limit
	filter.Offset = p.Offset
	items, total, err := s.items.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.Item{}
	}
	return &ItemPage{Items: items, Total: total, TotalPages: totalPages(total, p.Limit), CurrentPage: p.Page}, nil
}

// Stats summarises the user's listings.
func (s *ItemService) Stats(ctx context.Context, user *domain.User) (*domain.ItemStats, error) {
	return s.items.Stats(ctx, user.ID)
}

// Get returns one of the user's listings.
func (s *ItemService) Get(ctx context.Context, user *domain.User, id string) (*domain.Item, error) {
	item, err := s.items.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, errItemNotFound())
	}
	if item.UserID != user.ID {
		return nil, errItemNotFound()
	}
	return item, nil
}

// Create stores a listing under a fresh invoice number.
func (s *ItemService) Create(ctx context.Context, user *domain.User, input ItemInput) (*domain.Item, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", map[string]any{"field": "name"})
	}
	if input.Price < 0 {
		return nil, apperrors.NewValidationError("price cannot be negative", map[string]any{"field": "price"})
	}
	status := input.Status
	if status == "" {
		status = domain.ItemStatusPending
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
	}

	item := &domain.Item{
		UserID:      user.ID,
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Price:       input.Price,
		Status:      status,
		Category:    strings.TrimSpace(input.Category),
		Tags:        cleanTags(input.Tags),
		Image:       optional(input.ImageURL),
	}

	var err error
	for attempt := 0; attempt < invoiceCreateAttempts; attempt++ {
		if item.InvoiceNumber, err = s.invoiceNo(s.now()); err != nil {
			return nil, err
		}
		if err = s.items.Create(ctx, item); err == nil || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	publish(ctx, s.dispatcher, events.New(events.EventItemCreated, item.ID, userActor(user), []string{user.ID}, itemPayload(item)))
	return item, nil
}

// Update replaces the supplied fields of one of the user's listings.
func (s *ItemService) Update(ctx context.Context, user *domain.User, id string, input ItemUpdateInput) (*domain.Item, error) {
	item, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil && strings.TrimSpace(*input.Name) != "" {
		item.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil && strings.TrimSpace(*input.Description) != "" {
		item.Description = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.NewValidationError("price cannot be negative", map[string]any{"field": "price"})
		}
		item.Price = *input.Price
	}
	if input.Status != nil && *input.Status != "" {
		if !input.Status.Valid() {
			return nil, apperrors.NewValidationError("invalid status", map[string]any{"field": "status"})
		}
		item.Status = *input.Status
	}
	if input.Category != nil && strings.TrimSpace(*input.Category) != "" {
		item.Category = strings.TrimSpace(*input.Category)
	}
	if input.Tags != nil {
		item.Tags = cleanTags(input.Tags)
	}
	if input.ImageURL != nil && strings.TrimSpace(*input.ImageURL) != "" {
		item.Image = optional(*input.ImageURL)
	}

	if err := s.items.Update(ctx, item); err != nil {
		return nil, translate(err, errItemNotFound())
	}
	publish(ctx, s.dispatcher, events.New(events.EventItemUpdated, item.ID, userActor(user), []string{user.ID}, itemPayload(item)))
	return item, nil
}

// Delete soft-deletes one of the user's listings.
func (s *ItemService) Delete(ctx context.Context, user *domain.User, id string) error {
	item, err := s.Get(ctx, user, id)
	if err != nil {
		return err
	}
	now := s.now()
	item.IsDeleted = true
	item.DeletedAt = &now
	if err := s.items.Update(ctx, item); err != nil {
		return translate(err, errItemNotFound())
	}
	publish(ctx, s.dispatcher, events.New(events.EventItemDeleted, item.ID, userActor(user), []string{user.ID}, itemPayload(item)))
	return nil
}

// MarkPaid records an anonymous "I paid" claim against an invoice and asks
// the owner to review it.
func (s *ItemService) MarkPaid(ctx context.Context, invoiceNumber string) error {
	item, err := s.items.GetByInvoiceNumber(ctx, strings.TrimSpace(invoiceNumber))
	if err != nil {
		return translate(err, apperrors.NewNotFoundMessage("Invoice not found"))
	}
	if item.Status == domain.ItemStatusPaid {
		return apperrors.NewBadRequest("ALREADY_PAID", "Invoice is already marked as paid")
	}

	item.PaymentRequest = &domain.PaymentRequest{Status: domain.PaymentRequestPending, RequestedAt: s.now()}
	if err := s.items.Update(ctx, item); err != nil {
		return translate(err, apperrors.NewNotFoundMessage("Invoice not found"))
	}
	publish(ctx, s.dispatcher, events.New(events.EventItemPaymentRequested, item.ID, events.Actor{}, []string{item.UserID}, itemPayload(item)))
	return nil
}

// ReviewPayment approves or rejects a pending payment claim. Approval moves
// the item to paid; rejection keeps the claim for audit.
func (s *ItemService) ReviewPayment(ctx context.Context, user *domain.User, id string, approve bool) (*domain.Item, error) {
	item, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	if item.PaymentRequest == nil {
		return nil, apperrors.NewBadRequest("NO_PAYMENT_REQUEST", "No payment request found")
	}

	now := s.now()
	if approve {
		paidBy := "customer"
		item.Status = domain.ItemStatusPaid
		item.MarkedAsPaidBy = &paidBy
		item.MarkedAsPaidAt = &now
		item.PaymentRequest = nil
	} else {
		item.PaymentRequest.Status = domain.PaymentRequestRejected
		item.PaymentRequest.RejectedAt = &now
	}
	if err := s.items.Update(ctx, item); err != nil {
		return nil, translate(err, errItemNotFound())
	}

	payload := itemPayload(item)
	payload.Approved = approve
	publish(ctx, s.dispatcher, events.New(events.EventItemPaymentReviewed, item.ID, userActor(user), []string{user.ID}, payload))
	return item, nil
}
