package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/repository"
)

func openTicket(t *testing.T, f *fixture, initiator, recipient *domain.User) *domain.EscrowTicket {
	t.Helper()
	ticket, err := f.escrow.Create(context.Background(), initiator, EscrowCreateInput{
		RecipientID:       recipient.ID,
		Title:             "Vintage camera",
		Description:       "Leica M3 with lens",
		TransactionAmount: 5000,
		Category:          domain.EscrowCategoryGoods,
	})
	require.NoError(t, err)
	return ticket
}

func acceptedTicket(t *testing.T, f *fixture, initiator, recipient *domain.User) *domain.EscrowTicket {
	t.Helper()
	ticket := openTicket(t, f, initiator, recipient)
	ticket, err := f.escrow.Respond(context.Background(), recipient, ticket.ID, "accept")
	require.NoError(t, err)
	return ticket
}

func TestEscrowCreateInvitesRecipient(t *testing.T) {
	f := newFixture(t)
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")

	ticket := openTicket(t, f, a, b)

	require.Equal(t, domain.EscrowStatusPending, ticket.Status)
	require.Equal(t, domain.InvitationPending, ticket.InvitationStatus)
	require.Equal(t, 5000.0, ticket.TransactionAmount)
	require.Equal(t, "USD", ticket.Currency)
	require.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	require.NotNil(t, ticket.Initiator)
	require.NotNil(t, ticket.Recipient)
	require.Equal(t, b.Email, ticket.Recipient.Email)
	require.NotEqual(t, ticket.InitiatorID, ticket.RecipientID)

	inbox := f.store.Notifications.ForUser(b.ID)
	require.Len(t, inbox, 1)
	require.Equal(t, "New Escrow Invitation", inbox[0].Title)
	require.Equal(t, ticket.ID, inbox[0].Data["escrowTicketId"])
	require.Equal(t, "escrow-invitation", inbox[0].Data["action"])
	require.Empty(t, f.store.Notifications.ForUser(a.ID))
	require.Len(t, f.pusher.to(b.ID), 1)
	require.Equal(t, 1, f.actions.count("create"))
}

func TestEscrowCreateRejectsSelfAndUnusableRecipients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "ann", "lee")

	_, err := f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: a.ID, Title: "t", Description: "d"})
	requireCode(t, err, "SELF_TARGET", http.StatusBadRequest)

	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: "2b1f6f4e-0000-4000-8000-000000000000", Title: "t", Description: "d"})
	requireCode(t, err, "INVALID_RECIPIENT", http.StatusNotFound)

	inactive := f.user(t, "ina", "ctive")
	inactive.IsActive = false
	require.NoError(t, f.store.Users.Update(ctx, inactive))
	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: inactive.ID, Title: "t", Description: "d"})
	requireCode(t, err, "INVALID_RECIPIENT", http.StatusNotFound)

	deleted := f.user(t, "del", "eted")
	deleted.IsDeleted = true
	require.NoError(t, f.store.Users.Update(ctx, deleted))
	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: deleted.ID, Title: "t", Description: "d"})
	requireCode(t, err, "INVALID_RECIPIENT", http.StatusNotFound)

	b := f.user(t, "bob", "ray")
	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: b.ID, Title: "t", Description: "d", Category: "cars"})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: b.ID, Title: "t", Description: "d", TransactionAmount: -1})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestEscrowDeclineCancelsAndBlocksParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	ticket := openTicket(t, f, a, b)

	declined, err := f.escrow.Respond(ctx, b, ticket.ID, "decline")
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusCancelled, declined.Status)
	require.Equal(t, domain.InvitationDeclined, declined.InvitationStatus)
	require.Nil(t, declined.AcceptedAt)

	inbox := f.store.Notifications.ForUser(a.ID)
	require.Len(t, inbox, 1)
	require.Equal(t, "Escrow Invitation Declined", inbox[0].Title)
	require.Equal(t, domain.NotificationWarning, inbox[0].Level)

	_, err = f.escrow.Message(ctx, a, ticket.ID, "still there?")
	requireCode(t, err, "INVALID_STATUS", http.StatusBadRequest)
	_, err = f.escrow.Close(ctx, b, ticket.ID)
	requireCode(t, err, "INVALID_STATUS", http.StatusBadRequest)

	_, err = f.escrow.Respond(ctx, b, ticket.ID, "accept")
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
	stored, _ := f.store.Escrow.Raw(ticket.ID)
	require.Equal(t, domain.InvitationDeclined, stored.InvitationStatus)
	require.Equal(t, domain.EscrowStatusCancelled, stored.Status)
}

func TestEscrowRespondHidesState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "ann", "lee"), f.user(t, "bob", "ray"), f.user(t, "cat", "kim")
	ticket := openTicket(t, f, a, b)

	_, err := f.escrow.Respond(ctx, b, ticket.ID, "maybe")
	requireCode(t, err, "INVALID_ACTION", http.StatusBadRequest)

	_, strangerErr := f.escrow.Respond(ctx, c, ticket.ID, "accept")
	_, initiatorErr := f.escrow.Respond(ctx, a, ticket.ID, "accept")
	_, missingErr := f.escrow.Respond(ctx, b, "3c4e2a7b-0000-4000-8000-000000000000", "accept")
	require.Equal(t, strangerErr.Error(), initiatorErr.Error())
	require.Equal(t, strangerErr.Error(), missingErr.Error())

	_, err = f.escrow.Respond(ctx, b, ticket.ID, "accept")
	require.NoError(t, err)
	_, answeredErr := f.escrow.Respond(ctx, b, ticket.ID, "decline")
	require.Equal(t, strangerErr.Error(), answeredErr.Error())
}

func TestEscrowAcceptAndMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	ticket := openTicket(t, f, a, b)

	accepted, err := f.escrow.Respond(ctx, b, ticket.ID, "accept")
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusActive, accepted.Status)
	require.Equal(t, domain.InvitationAccepted, accepted.InvitationStatus)
	require.NotNil(t, accepted.AcceptedAt)
	require.Equal(t, "Escrow Invitation Accepted", f.store.Notifications.ForUser(a.ID)[0].Title)

	updated, err := f.escrow.Message(ctx, a, ticket.ID, "shipped")
	require.NoError(t, err)
	require.Len(t, updated.Messages, 1)
	msg := updated.Messages[0]
	require.Equal(t, domain.EscrowRoleInitiator, msg.Sender)
	require.NotNil(t, msg.SenderID)
	require.Equal(t, a.ID, *msg.SenderID)
	require.Equal(t, "shipped", msg.Body)
	require.Equal(t, msg.Timestamp, updated.LastActivity)

	stored, _ := f.store.Escrow.Raw(ticket.ID)
	require.Equal(t, msg.Timestamp, stored.LastActivity)

	bInbox := f.store.Notifications.ForUser(b.ID)
	require.Equal(t, "New Escrow Message", bInbox[0].Title)
	require.Equal(t, "escrow-message", bInbox[0].Data["action"])
	for _, n := range f.store.Notifications.ForUser(a.ID) {
		require.NotEqual(t, "New Escrow Message", n.Title)
	}

	reply, err := f.escrow.Message(ctx, b, ticket.ID, "received")
	require.NoError(t, err)
	require.Len(t, reply.Messages, 2)
	require.Equal(t, domain.EscrowRoleRecipient, reply.Messages[1].Sender)
	require.Equal(t, reply.Messages[1].Timestamp, reply.LastActivity)
	require.True(t, reply.LastActivity.After(updated.LastActivity))
}

func TestEscrowMessageRejectsStrangersAndBlankText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "ann", "lee"), f.user(t, "bob", "ray"), f.user(t, "cat", "kim")
	ticket := acceptedTicket(t, f, a, b)

	_, err := f.escrow.Message(ctx, c, ticket.ID, "hello")
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)

	_, err = f.escrow.Message(ctx, a, ticket.ID, "   ")
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestEscrowCloseIsOneWayForParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	ticket := acceptedTicket(t, f, a, b)

	closed, err := f.escrow.Close(ctx, a, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
	require.NotNil(t, closed.ClosedBy)
	require.Equal(t, domain.EscrowRoleInitiator, *closed.ClosedBy)
	require.Equal(t, "Escrow Ticket Closed", f.store.Notifications.ForUser(b.ID)[0].Title)

	_, err = f.escrow.Message(ctx, b, ticket.ID, "wait")
	requireCode(t, err, "INVALID_STATUS", http.StatusBadRequest)
	_, err = f.escrow.Close(ctx, b, ticket.ID)
	requireCode(t, err, "INVALID_STATUS", http.StatusBadRequest)
	_, err = f.escrow.Respond(ctx, b, ticket.ID, "accept")
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)

	stored, _ := f.store.Escrow.Raw(ticket.ID)
	require.Equal(t, domain.EscrowStatusClosed, stored.Status)
}

func TestEscrowAdminReopenNotifiesBothParties(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	ticket := acceptedTicket(t, f, a, b)
	_, err := f.escrow.Close(ctx, a, ticket.ID)
	require.NoError(t, err)

	reopened, err := f.escrow.Reopen(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusActive, reopened.Status)
	require.Nil(t, reopened.ClosedAt)
	require.Nil(t, reopened.ClosedBy)

	for _, party := range []*domain.User{a, b} {
		inbox := f.store.Notifications.ForUser(party.ID)
		require.Equal(t, "Escrow Ticket Reopened", inbox[0].Title)
		require.Equal(t, "escrow-reopened", inbox[0].Data["action"])
	}

	_, err = f.escrow.Message(ctx, b, ticket.ID, "back on")
	require.NoError(t, err)
}

func TestEscrowSoftDeleteRequiresOriginalAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	created := f.globalAdmin(t, "mod@marketbook.test", false)
	original := f.globalAdmin(t, "root@marketbook.test", true)
	ticket := openTicket(t, f, a, b)

	err := f.escrow.SoftDelete(ctx, created, ticket.ID)
	requireCode(t, err, "PRIVILEGE_REQUIRED", http.StatusForbidden)
	stored, _ := f.store.Escrow.Raw(ticket.ID)
	require.False(t, stored.IsDeleted)

	require.NoError(t, f.escrow.SoftDelete(ctx, original, ticket.ID))
	stored, ok := f.store.Escrow.Raw(ticket.ID)
	require.True(t, ok)
	require.True(t, stored.IsDeleted)
	require.NotNil(t, stored.DeletedAt)
	require.Equal(t, original.Email, *stored.DeletedBy)

	_, err = f.escrow.Get(ctx, a, ticket.ID)
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
	_, err = f.escrow.AdminGet(ctx, ticket.ID)
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
	page, err := f.escrow.List(ctx, a, EscrowListInput{})
	require.NoError(t, err)
	require.Zero(t, page.Total)
	all, err := f.escrow.ListAll(ctx, EscrowListInput{})
	require.NoError(t, err)
	require.Zero(t, all.Total)
}

func TestEscrowGetHidesTicketsFromStrangers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "ann", "lee"), f.user(t, "bob", "ray"), f.user(t, "cat", "kim")
	ticket := openTicket(t, f, a, b)

	_, strangerErr := f.escrow.Get(ctx, c, ticket.ID)
	_, missingErr := f.escrow.Get(ctx, c, "4d5e6f70-0000-4000-8000-000000000000")
	require.Equal(t, strangerErr, missingErr)
	requireCode(t, strangerErr, "NOT_FOUND", http.StatusNotFound)
}

func TestEscrowGetMarksCounterpartyMessagesRead(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	ticket := acceptedTicket(t, f, a, b)

	_, err := f.escrow.Message(ctx, a, ticket.ID, "from ann")
	require.NoError(t, err)
	_, err = f.escrow.AdminMessage(ctx, admin, ticket.ID, "from admin")
	require.NoError(t, err)
	_, err = f.escrow.Message(ctx, b, ticket.ID, "from bob")
	require.NoError(t, err)

	viewed, err := f.escrow.Get(ctx, b, ticket.ID)
	require.NoError(t, err)
	require.Len(t, viewed.Messages, 3)

	stored, _ := f.store.Escrow.Raw(ticket.ID)
	read := map[domain.EscrowRole]bool{}
	for _, m := range stored.Messages {
		read[m.Sender] = m.Read
	}
	require.True(t, read[domain.EscrowRoleInitiator])
	require.False(t, read[domain.EscrowRoleAdmin])
	require.False(t, read[domain.EscrowRoleRecipient])

	_, err = f.escrow.AdminGet(ctx, ticket.ID)
	require.NoError(t, err)
	stored, _ = f.store.Escrow.Raw(ticket.ID)
	for _, m := range stored.Messages {
		if m.Sender == domain.EscrowRoleRecipient {
			require.False(t, m.Read)
		}
	}
}

func TestEscrowAdminMediation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	ticket := openTicket(t, f, a, b)
	_, err := f.escrow.Respond(ctx, b, ticket.ID, "decline")
	require.NoError(t, err)

	withNote, err := f.escrow.AdminMessage(ctx, admin, ticket.ID, "please reconsider")
	require.NoError(t, err)
	last := withNote.Messages[len(withNote.Messages)-1]
	require.Equal(t, domain.EscrowRoleAdmin, last.Sender)
	require.Nil(t, last.SenderID)
	for _, party := range []*domain.User{a, b} {
		require.Equal(t, "Admin Message in Escrow", f.store.Notifications.ForUser(party.ID)[0].Title)
	}

	before := len(f.store.Notifications.ForUser(a.ID))
	noted, err := f.escrow.SetAdminNotes(ctx, ticket.ID, "buyer unresponsive")
	require.NoError(t, err)
	require.Equal(t, "buyer unresponsive", *noted.AdminNotes)
	require.Len(t, f.store.Notifications.ForUser(a.ID), before)

	overridden, err := f.escrow.UpdateStatus(ctx, admin, ticket.ID, domain.EscrowStatusClosed)
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusClosed, overridden.Status)
	require.Equal(t, domain.EscrowRoleAdmin, *overridden.ClosedBy)
	require.Equal(t, domain.InvitationDeclined, overridden.InvitationStatus)
	require.Equal(t, "Your escrow ticket status has been updated to: closed", f.store.Notifications.ForUser(b.ID)[0].Message)

	_, err = f.escrow.UpdateStatus(ctx, admin, ticket.ID, "archived")
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestEscrowAdminClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	ticket := acceptedTicket(t, f, a, b)

	closed, err := f.escrow.AdminClose(ctx, admin, ticket.ID)
	require.NoError(t, err)
	require.Equal(t, domain.EscrowRoleAdmin, *closed.ClosedBy)
	for _, party := range []*domain.User{a, b} {
		require.Equal(t, "Escrow Ticket Closed", f.store.Notifications.ForUser(party.ID)[0].Title)
	}

	_, err = f.escrow.AdminClose(ctx, admin, ticket.ID)
	requireCode(t, err, "INVALID_STATUS", http.StatusBadRequest)
}

func TestEscrowStatusOverrideClearsCloseStamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	ticket := acceptedTicket(t, f, a, b)
	_, err := f.escrow.Close(ctx, a, ticket.ID)
	require.NoError(t, err)

	active, err := f.escrow.UpdateStatus(ctx, admin, ticket.ID, domain.EscrowStatusActive)
	require.NoError(t, err)
	require.Equal(t, domain.EscrowStatusActive, active.Status)
	require.Nil(t, active.ClosedAt)
	require.Nil(t, active.ClosedBy)

	stored, _ := f.store.Escrow.Raw(ticket.ID)
	require.Nil(t, stored.ClosedAt)
	require.Nil(t, stored.ClosedBy)
}

func TestEscrowListScopesAndFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b, c := f.user(t, "ann", "lee"), f.user(t, "bob", "ray"), f.user(t, "cat", "kim")

	first := openTicket(t, f, a, b)
	second := acceptedTicket(t, f, c, a)
	openTicket(t, f, b, c)

	page, err := f.escrow.List(ctx, a, EscrowListInput{})
	require.NoError(t, err)
	require.Equal(t, 2, page.Total)
	require.Equal(t, 1, page.TotalPages)
	require.Equal(t, 1, page.CurrentPage)
	require.Equal(t, second.ID, page.Tickets[0].ID)
	require.NotNil(t, page.Tickets[0].Initiator)

	initiated, err := f.escrow.List(ctx, a, EscrowListInput{Type: "initiated", Status: "active"})
	require.NoError(t, err)
	require.Equal(t, 1, initiated.Total)
	require.Equal(t, first.ID, initiated.Tickets[0].ID)

	received, err := f.escrow.List(ctx, a, EscrowListInput{Type: "received"})
	require.NoError(t, err)
	require.Equal(t, 1, received.Total)
	require.Equal(t, second.ID, received.Tickets[0].ID)

	active, err := f.escrow.List(ctx, a, EscrowListInput{Status: "active"})
	require.NoError(t, err)
	require.Equal(t, 1, active.Total)

	_, err = f.escrow.List(ctx, a, EscrowListInput{Type: "sent"})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
	_, err = f.escrow.List(ctx, a, EscrowListInput{Status: "archived"})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)

	all, err := f.escrow.ListAll(ctx, EscrowListInput{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	require.Equal(t, 2, all.TotalPages)
	require.Len(t, all.Tickets, 2)

	searched, err := f.escrow.ListAll(ctx, EscrowListInput{Search: "leica"})
	require.NoError(t, err)
	require.Equal(t, 3, searched.Total)
}

func TestEscrowSearchUsers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "ann", "lee")
	f.user(t, "anna", "bell")

	short, err := f.escrow.SearchUsers(ctx, a.ID, "a")
	require.NoError(t, err)
	require.Empty(t, short)

	found, err := f.escrow.SearchUsers(ctx, a.ID, "ann")
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "anna", found[0].FirstName)
}

func TestEscrowStaleWriteConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	ticket := acceptedTicket(t, f, a, b)

	stale, err := f.store.Escrow.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	_, err = f.escrow.Message(ctx, a, ticket.ID, "first")
	require.NoError(t, err)

	stale.Status = domain.EscrowStatusClosed
	require.ErrorIs(t, f.store.Escrow.Update(ctx, stale), repository.ErrVersionConflict)
	requireCode(t, translate(repository.ErrVersionConflict, nil), "CONFLICT", http.StatusConflict)
}
