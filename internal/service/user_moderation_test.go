package service

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/notify"
)

func TestToggleUserStatusBlocksEscrowInvitations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, b := f.user(t, "ann", "lee"), f.user(t, "bob", "ray")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)

	disabled, err := f.admins.ToggleUserStatus(ctx, admin, b.ID)
	require.NoError(t, err)
	require.False(t, disabled.IsActive)
	require.Equal(t, "Account Disabled", f.store.Notifications.ForUser(b.ID)[0].Title)

	_, err = f.escrow.Create(ctx, a, EscrowCreateInput{RecipientID: b.ID, Title: "Desk", Description: "Oak desk"})
	requireCode(t, err, "INVALID_RECIPIENT", http.StatusNotFound)

	enabled, err := f.admins.ToggleUserStatus(ctx, admin, b.ID)
	require.NoError(t, err)
	require.True(t, enabled.IsActive)
	require.Equal(t, "Account Enabled", f.store.Notifications.ForUser(b.ID)[0].Title)

	openTicket(t, f, a, b)
}

func TestToggleRecommendationRanksSearchResults(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	caller := f.user(t, "eve", "lin")
	ada, zoe := f.user(t, "ada", "kim"), f.user(t, "zoe", "kim")

	found, err := f.escrow.SearchUsers(ctx, caller.ID, "kim")
	require.NoError(t, err)
	require.Equal(t, []string{ada.ID, zoe.ID}, []string{found[0].ID, found[1].ID})

	marked, err := f.admins.ToggleUserRecommendation(ctx, zoe.ID)
	require.NoError(t, err)
	require.True(t, marked.IsRecommended)

	found, err = f.escrow.SearchUsers(ctx, caller.ID, "kim")
	require.NoError(t, err)
	require.Equal(t, []string{zoe.ID, ada.ID}, []string{found[0].ID, found[1].ID})

	_, err = f.admins.ToggleUserRecommendation(ctx, "missing")
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
}

func TestDeleteAndRecoverUserRequireOriginalAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "ann", "lee")
	mod := f.globalAdmin(t, "mod@marketbook.test", false)
	root := f.globalAdmin(t, "root@marketbook.test", true)

	err := f.admins.DeleteUser(ctx, mod, a.ID)
	requireCode(t, err, "PRIVILEGE_REQUIRED", http.StatusForbidden)
	_, err = f.admins.RecoverUser(ctx, mod, a.ID)
	requireCode(t, err, "PRIVILEGE_REQUIRED", http.StatusForbidden)

	require.NoError(t, f.admins.DeleteUser(ctx, root, a.ID))
	stored, err := f.store.Users.GetByID(ctx, a.ID)
	require.NoError(t, err)
	require.True(t, stored.IsDeleted)
	require.False(t, stored.IsActive)
	require.NotNil(t, stored.DeletedAt)

	page, err := f.admins.ListUsers(ctx, UserListInput{})
	require.NoError(t, err)
	require.Empty(t, page.Users)

	err = f.admins.DeleteUser(ctx, root, a.ID)
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
	_, err = f.admins.ToggleUserStatus(ctx, mod, a.ID)
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)

	recovered, err := f.admins.RecoverUser(ctx, root, a.ID)
	require.NoError(t, err)
	require.True(t, recovered.Usable())
	require.Nil(t, recovered.DeletedAt)
	require.Equal(t, "Account Recovered", f.store.Notifications.ForUser(a.ID)[0].Title)
}

func TestListUsersFiltersByStatusAndSearch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	f.user(t, "ann", "lee")
	f.user(t, "bob", "ray")
	carl := f.user(t, "carl", "ray")
	_, err := f.admins.ToggleUserStatus(ctx, admin, carl.ID)
	require.NoError(t, err)

	all, err := f.admins.ListUsers(ctx, UserListInput{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 3, all.Total)
	require.Equal(t, 2, all.TotalPages)
	require.Len(t, all.Users, 2)
	require.Equal(t, carl.ID, all.Users[0].ID)

	inactive, err := f.admins.ListUsers(ctx, UserListInput{Status: "inactive"})
	require.NoError(t, err)
	require.Equal(t, 1, inactive.Total)
	require.Equal(t, carl.ID, inactive.Users[0].ID)

	active, err := f.admins.ListUsers(ctx, UserListInput{Status: "active", Search: "RAY"})
	require.NoError(t, err)
	require.Equal(t, 1, active.Total)
	require.Equal(t, "bob", active.Users[0].FirstName)

	_, err = f.admins.ListUsers(ctx, UserListInput{Status: "banned"})
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestBroadcastReachesActiveUsersOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.globalAdmin(t, "mod@marketbook.test", false)
	a, b, c := f.user(t, "ann", "lee"), f.user(t, "bob", "ray"), f.user(t, "cat", "fox")
	_, err := f.admins.ToggleUserStatus(ctx, admin, c.ID)
	require.NoError(t, err)

	count, err := f.admins.Broadcast(ctx, admin, "Maintenance", "Escrow is read-only tonight")
	require.NoError(t, err)
	require.Equal(t, 2, count)

	for _, u := range []*domain.User{a, b} {
		latest := f.store.Notifications.ForUser(u.ID)[0]
		require.Equal(t, "Maintenance", latest.Title)
		require.Equal(t, "Escrow is read-only tonight", latest.Message)
		require.Len(t, f.pusher.to(u.ID), 1)
	}
	require.Equal(t, "Account Disabled", f.store.Notifications.ForUser(c.ID)[0].Title)
	require.Empty(t, f.pusher.to(notify.AudienceAdmins))

	_, err = f.admins.Broadcast(ctx, admin, "", "body")
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}

func TestBroadcastWithoutRecipientsIsSilent(t *testing.T) {
	f := newFixture(t)
	admin := f.globalAdmin(t, "mod@marketbook.test", false)

	count, err := f.admins.Broadcast(context.Background(), admin, "Hello", "Anyone there?")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, f.pusher.to(notify.AudienceAdmins))
}

func TestSendAdminMessageOpensThreadForUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.user(t, "ann", "lee")
	admin := f.globalAdmin(t, "mod@marketbook.test", false)

	ticket, err := f.support.SendAdminMessage(ctx, admin, a.ID, "Verify your shop", "Please upload a business document")
	require.NoError(t, err)
	require.Equal(t, a.ID, ticket.UserID)
	require.Equal(t, domain.SupportStatusOpen, ticket.Status)

	inbox := f.store.Notifications.ForUser(a.ID)
	require.Equal(t, "New Message from Admin", inbox[0].Title)
	require.Equal(t, "You have received a new message: Verify your shop", inbox[0].Message)
	require.Equal(t, ticket.ID, inbox[0].Data["ticketId"])

	view, err := f.support.Get(ctx, a, ticket.ID)
	require.NoError(t, err)
	require.Len(t, view.Messages, 1)
	require.Equal(t, domain.SupportSenderAdmin, view.Messages[0].Sender)

	_, err = f.support.Reply(ctx, a, ticket.ID, "Uploaded")
	require.NoError(t, err)

	_, err = f.support.SendAdminMessage(ctx, admin, "missing", "Hi", "Hello")
	requireCode(t, err, "NOT_FOUND", http.StatusNotFound)
	_, err = f.support.SendAdminMessage(ctx, admin, a.ID, "Hi", " ")
	requireCode(t, err, "VALIDATION_FAILED", http.StatusBadRequest)
}
