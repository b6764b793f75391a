package service

import (
	"fmt"

	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
)

type rendered struct {
	title   string
	message string
	level   domain.NotificationLevel
	data    map[string]any
}

// render builds the user-facing text for an event. Unknown events and
// payloads yield ok=false.
func render(event events.Event) (rendered, bool) {
	switch payload := event.Payload.(type) {
	case events.EscrowPayload:
		return renderEscrow(event, payload)
	case events.SupportPayload:
		return renderSupport(event, payload)
	case events.ItemPayload:
		return renderItem(event, payload)
	case events.AccountPayload:
		return renderModeration(event, payload)
	case events.AnnouncementPayload:
		if event.Type != events.EventAdminBroadcast {
			return rendered{}, false
		}
		return rendered{title: payload.Subject, message: payload.Message, level: domain.NotificationInfo}, true
	case nil:
		return renderAccount(event)
	}
	return rendered{}, false
}

func escrowData(event events.Event, action string) map[string]any {
	return map[string]any{"escrowTicketId": event.SubjectID, "action": action}
}

func renderEscrow(event events.Event, p events.EscrowPayload) (rendered, bool) {
	name := event.Actor.Name
	switch event.Type {
	case events.EventEscrowInvitation:
		data := escrowData(event, "escrow-invitation")
		data["initiatorName"] = name
		return rendered{
			title:   "New Escrow Invitation",
			message: fmt.Sprintf("%s has invited you to an escrow transaction: %s", name, p.Title),
			level:   domain.NotificationInfo,
			data:    data,
		}, true
	case events.EventEscrowResponded:
		if p.Accepted {
			return rendered{
				title:   "Escrow Invitation Accepted",
				message: fmt.Sprintf("%s has accepted your escrow invitation: %s", name, p.Title),
				level:   domain.NotificationSuccess,
				data:    escrowData(event, "escrow-accepted"),
			}, true
		}
		return rendered{
			title:   "Escrow Invitation Declined",
			message: fmt.Sprintf("%s has declined your escrow invitation: %s", name, p.Title),
			level:   domain.NotificationWarning,
			data:    escrowData(event, "escrow-declined"),
		}, true
	case events.EventEscrowMessage:
		if p.FromAdmin {
			return rendered{
				title:   "Admin Message in Escrow",
				message: "Global Admin has sent a message in your escrow ticket: " + p.Title,
				level:   domain.NotificationInfo,
				data:    escrowData(event, "admin-message"),
			}, true
		}
		return rendered{
			title:   "New Escrow Message",
			message: fmt.Sprintf("%s sent a message in escrow: %s", name, p.Title),
			level:   domain.NotificationInfo,
			data:    escrowData(event, "escrow-message"),
		}, true
	case events.EventEscrowClosed:
		return rendered{
			title:   "Escrow Ticket Closed",
			message: fmt.Sprintf("%s has closed the escrow ticket: %s", name, p.Title),
			level:   domain.NotificationInfo,
			data:    escrowData(event, "escrow-closed"),
		}, true
	case events.EventEscrowStatusChanged:
		return rendered{
			title:   "Escrow Status Updated",
			message: "Your escrow ticket status has been updated to: " + string(p.Status),
			level:   domain.NotificationInfo,
			data:    escrowData(event, "status-update"),
		}, true
	case events.EventEscrowReopened:
		return rendered{
			title:   "Escrow Ticket Reopened",
			message: "Your escrow ticket has been reopened by Global Admin: " + p.Title,
			level:   domain.NotificationInfo,
			data:    escrowData(event, "escrow-reopened"),
		}, true
	}
	return rendered{}, false
}

func renderSupport(event events.Event, p events.SupportPayload) (rendered, bool) {
	data := map[string]any{"ticketId": event.SubjectID}
	switch event.Type {
	case events.EventSupportAdminReplied:
		return rendered{
			title:   "Support Reply",
			message: "You have a new reply on your support ticket: " + p.Subject,
			level:   domain.NotificationInfo,
			data:    data,
		}, true
	case events.EventAdminDirectMessage:
		return rendered{
			title:   "New Message from Admin",
			message: "You have received a new message: " + p.Subject,
			level:   domain.NotificationInfo,
			data:    data,
		}, true
	case events.EventSupportStatusChanged:
		return rendered{
			title:   "Ticket Status Updated",
			message: "Your support ticket status has been updated to: " + string(p.Status),
			level:   domain.NotificationInfo,
			data:    data,
		}, true
	}
	return rendered{}, false
}

func renderItem(event events.Event, p events.ItemPayload) (rendered, bool) {
	switch event.Type {
	case events.EventItemCreated:
		return rendered{
			title:   "Item Added",
			message: fmt.Sprintf("Your item %q has been added successfully", p.ItemName),
			level:   domain.NotificationSuccess,
		}, true
	case events.EventItemUpdated:
		return rendered{
			title:   "Item Updated",
			message: fmt.Sprintf("Your item %q has been updated successfully", p.ItemName),
			level:   domain.NotificationInfo,
		}, true
	case events.EventItemDeleted:
		return rendered{
			title:   "Item Deleted",
			message: fmt.Sprintf("Your item %q has been deleted", p.ItemName),
			level:   domain.NotificationWarning,
		}, true
	case events.EventItemPaymentRequested:
		return rendered{
			title:   "Payment Confirmation Request",
			message: fmt.Sprintf("Someone has marked invoice %s as paid. Please review and approve.", p.InvoiceNumber),
			level:   domain.NotificationInfo,
			data: map[string]any{
				"itemId":        event.SubjectID,
				"invoiceNumber": p.InvoiceNumber,
				"action":        "payment-request",
			},
		}, true
	case events.EventItemPaymentReviewed:
		if p.Approved {
			return rendered{
				title:   "Payment Approved",
				message: fmt.Sprintf("Invoice %s payment has been approved and moved to paid items", p.InvoiceNumber),
				level:   domain.NotificationSuccess,
			}, true
		}
		return rendered{
			title:   "Payment Rejected",
			message: fmt.Sprintf("Invoice %s payment has been rejected", p.InvoiceNumber),
			level:   domain.NotificationWarning,
		}, true
	}
	return rendered{}, false
}

func renderAccount(event events.Event) (rendered, bool) {
	switch event.Type {
	case events.EventUserAdminEnabled:
		return rendered{
			title:   "Admin Access Created",
			message: "Your admin access has been set up successfully",
			level:   domain.NotificationSuccess,
		}, true
	case events.EventUserAdminPasswordChanged:
		return rendered{
			title:   "Admin Password Changed",
			message: "Your admin password has been changed successfully",
			level:   domain.NotificationSuccess,
		}, true
	}
	return rendered{}, false
}

func renderModeration(event events.Event, p events.AccountPayload) (rendered, bool) {
	switch event.Type {
	case events.EventUserStatusChanged:
		if p.Active {
			return rendered{
				title:   "Account Enabled",
				message: "Your account has been enabled by admin",
				level:   domain.NotificationSuccess,
			}, true
		}
		return rendered{
			title:   "Account Disabled",
			message: "Your account has been disabled by admin",
			level:   domain.NotificationWarning,
		}, true
	case events.EventUserRecovered:
		return rendered{
			title:   "Account Recovered",
			message: "Your account has been recovered by admin",
			level:   domain.NotificationSuccess,
		}, true
	}
	return rendered{}, false
}
