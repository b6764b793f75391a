package handlers

import (
	"github.com/marketbook/marketbook-api/internal/api/dto"
	"github.com/marketbook/marketbook-api/internal/domain"
	"github.com/marketbook/marketbook-api/internal/events"
	"github.com/marketbook/marketbook-api/internal/service"
)

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		ProfileImage:  user.ProfileImage,
		BusinessName:  user.BusinessName,
		IsRecommended: user.IsRecommended,
		AdminConfig:   dto.AdminFlag{IsAdmin: user.AdminConfigured()},
		LastLogin:     user.LastLogin,
	}
}

func profileResponse(profile *domain.UserProfile) *dto.UserProfileResponse {
	if profile == nil {
		return nil
	}
	return &dto.UserProfileResponse{
		ID:           profile.ID,
		FirstName:    profile.FirstName,
		LastName:     profile.LastName,
		Email:        profile.Email,
		ProfileImage: profile.ProfileImage,
	}
}

func searchResults(users []domain.User) []dto.UserSearchResult {
	out := make([]dto.UserSearchResult, 0, len(users))
	for i := range users {
		profile := users[i].Profile()
		out = append(out, dto.UserSearchResult{
			UserProfileResponse: *profileResponse(&profile),
			BusinessName:        users[i].BusinessName,
			IsRecommended:       users[i].IsRecommended,
		})
	}
	return out
}

func globalAdminResponse(admin *domain.GlobalAdmin) dto.GlobalAdminResponse {
	return dto.GlobalAdminResponse{
		ID:         admin.ID,
		Email:      admin.Email,
		IsOriginal: admin.IsOriginal,
		CreatedBy:  admin.CreatedBy,
		LastLogin:  admin.LastLogin,
		CreatedAt:  admin.CreatedAt,
	}
}

// escrowTicketResponse renders a ticket; viewer selects whose unread count
// is reported and is EscrowRoleNone for admins.
func escrowTicketResponse(ticket *domain.EscrowTicket, viewer domain.EscrowRole) dto.EscrowTicketResponse {
	messages := make([]dto.EscrowMessageResponse, 0, len(ticket.Messages))
	for _, msg := range ticket.Messages {
		messages = append(messages, dto.EscrowMessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			SenderID:  msg.SenderID,
			Message:   msg.Body,
			Timestamp: msg.Timestamp,
			Read:      msg.Read,
		})
	}
	resp := dto.EscrowTicketResponse{
		ID:                ticket.ID,
		Title:             ticket.Title,
		Description:       ticket.Description,
		Initiator:         profileResponse(ticket.Initiator),
		Recipient:         profileResponse(ticket.Recipient),
		Status:            ticket.Status,
		InvitationStatus:  ticket.InvitationStatus,
		TransactionAmount: ticket.TransactionAmount,
		Currency:          ticket.Currency,
		Category:          ticket.Category,
		Priority:          ticket.Priority,
		Messages:          messages,
		LastActivity:      ticket.LastActivity,
		InvitationSentAt:  ticket.InvitationSentAt,
		AcceptedAt:        ticket.AcceptedAt,
		ClosedAt:          ticket.ClosedAt,
		ClosedBy:          ticket.ClosedBy,
		DeletedAt:         ticket.DeletedAt,
		DeletedBy:         ticket.DeletedBy,
		Version:           ticket.Version,
		CreatedAt:         ticket.CreatedAt,
		UpdatedAt:         ticket.UpdatedAt,
	}
	if viewer != domain.EscrowRoleNone {
		resp.UnreadCount = ticket.UnreadFor(viewer)
	} else {
		resp.AdminNotes = ticket.AdminNotes
	}
	return resp
}

func escrowListResponse(page *service.EscrowPage, viewerID string) dto.EscrowListResponse {
	tickets := make([]dto.EscrowTicketResponse, 0, len(page.Tickets))
	for i := range page.Tickets {
		ticket := &page.Tickets[i]
		tickets = append(tickets, escrowTicketResponse(ticket, ticket.ResolveRole(viewerID)))
	}
	return dto.EscrowListResponse{
		Tickets:     tickets,
		Total:       page.Total,
		TotalPages:  page.TotalPages,
		CurrentPage: page.CurrentPage,
	}
}

func supportMessages(ticket *domain.SupportTicket) []dto.SupportMessageResponse {
	messages := make([]dto.SupportMessageResponse, 0, len(ticket.Messages))
	for _, msg := range ticket.Messages {
		messages = append(messages, dto.SupportMessageResponse{
			ID:        msg.ID,
			Sender:    msg.Sender,
			Message:   msg.Body,
			Timestamp: msg.Timestamp,
			Read:      msg.Read,
		})
	}
	return messages
}

func supportTicketResponse(ticket *domain.SupportTicket) dto.SupportTicketResponse {
	return dto.SupportTicketResponse{
		ID:          ticket.ID,
		User:        profileResponse(ticket.User),
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Status:      ticket.Status,
		Priority:    ticket.Priority,
		Category:    ticket.Category,
		Messages:    supportMessages(ticket),
		AssignedTo:  ticket.AssignedTo,
		LastReply:   ticket.LastReply,
		CreatedAt:   ticket.CreatedAt,
		UpdatedAt:   ticket.UpdatedAt,
	}
}

func inboxEntryResponse(entry service.SupportEntry) dto.InboxEntryResponse {
	if entry.Kind == domain.SupportKindPublic {
		p := entry.Public
		responses := make([]dto.PublicResponseResponse, 0, len(p.Responses))
		for _, r := range p.Responses {
			responses = append(responses, dto.PublicResponseResponse{
				ID:          r.ID,
				Message:     r.Message,
				RespondedBy: r.RespondedBy,
				RespondedAt: r.RespondedAt,
			})
		}
		return dto.InboxEntryResponse{
			ID:           p.ID,
			Type:         domain.SupportKindPublic,
			Subject:      "Public Support: " + events.Preview(p.Message, 50),
			Description:  p.Message,
			Status:       p.Status,
			Priority:     p.Priority,
			Category:     p.Category,
			DisplayName:  p.Name,
			DisplayEmail: p.Email,
			Responses:    responses,
			Source:       p.Source,
			LastReply:    p.LastReplyAt(),
			CreatedAt:    p.CreatedAt,
		}
	}

	t := entry.Ticket
	resp := dto.InboxEntryResponse{
		ID:          t.ID,
		Type:        domain.SupportKindUser,
		Subject:     t.Subject,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Category:    t.Category,
		Messages:    supportMessages(t),
		LastReply:   t.LastReply,
		CreatedAt:   t.CreatedAt,
	}
	if t.User != nil {
		resp.DisplayName = t.User.FirstName + " " + t.User.LastName
		resp.DisplayEmail = t.User.Email
	}
	return resp
}

func itemResponse(item *domain.Item) dto.ItemResponse {
	resp := dto.ItemResponse{
		ID:             item.ID,
		Name:           item.Name,
		Description:    item.Description,
		Price:          item.Price,
		Status:         item.Status,
		Image:          item.Image,
		Category:       item.Category,
		Tags:           item.Tags,
		InvoiceNumber:  item.InvoiceNumber,
		MarkedAsPaidBy: item.MarkedAsPaidBy,
		MarkedAsPaidAt: item.MarkedAsPaidAt,
		CreatedAt:      item.CreatedAt,
		UpdatedAt:      item.UpdatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if pr := item.PaymentRequest; pr != nil {
		resp.PaymentRequest = &dto.PaymentRequestResponse{
			Status:      pr.Status,
			RequestedAt: pr.RequestedAt,
			RejectedAt:  pr.RejectedAt,
		}
	}
	return resp
}

func notificationResponse(n *domain.Notification) dto.NotificationResponse {
	return dto.NotificationResponse{
		ID:        n.ID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      n.Level,
		Data:      n.Data,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}

func managedUserResponse(user *domain.User) dto.ManagedUserResponse {
	return dto.ManagedUserResponse{
		ID:            user.ID,
		FirstName:     user.FirstName,
		LastName:      user.LastName,
		Email:         user.Email,
		BusinessName:  user.BusinessName,
		IsActive:      user.IsActive,
		IsRecommended: user.IsRecommended,
		IsDeleted:     user.IsDeleted,
		DeletedAt:     user.DeletedAt,
		LastLogin:     user.LastLogin,
		CreatedAt:     user.CreatedAt,
	}
}
