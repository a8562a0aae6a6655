package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"chatbox/controllers/telegram"
	"chatbox/database"
	"chatbox/models"
	"chatbox/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type CreateTicketRequest struct {
	SessionToken string                 `json:"session_token"`
	IssueType    string                 `json:"issue_type"`
	SubIssue     string                 `json:"sub_issue"`
	Description  string                 `json:"description,omitempty"`
	Priority     string                 `json:"priority,omitempty"`
	UserData     map[string]interface{} `json:"user_data,omitempty"`
}

// CreateTicketHandler escalates a session into a support ticket. The ticket
// insert and the session's flip to "escalated" happen in one transaction:
// admin views rely on ticket-exists implying session-escalated.
func CreateTicketHandler(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.SessionToken) == "" || strings.TrimSpace(req.IssueType) == "" || strings.TrimSpace(req.SubIssue) == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "session_token, issue_type and sub_issue are required"})
		return
	}

	db := database.DB
	var session models.ChatSession
	if err := db.Where("session_token = ?", req.SessionToken).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Session not found"})
			return
		}
		log.Printf("[Ticket] Error resolving session: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create ticket"})
		return
	}

	description := req.Description
	if description == "" {
		userData, _ := json.Marshal(req.UserData)
		description = fmt.Sprintf("Support request: %s - %s. Collected data: %s", req.IssueType, req.SubIssue, string(userData))
	}
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}

	ticket := models.SupportTicket{
		SessionID:    session.ID,
		TicketNumber: utils.GenerateTicketNumber(),
		IssueType:    req.IssueType,
		SubIssue:     req.SubIssue,
		Description:  description,
		Status:       "open",
		Priority:     priority,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ticket).Error; err != nil {
			return err
		}
		return tx.Model(&session).Update("status", "escalated").Error
	})
	if err != nil {
		log.Printf("[Ticket] Error creating ticket for session %d: %v", session.ID, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create ticket"})
		return
	}

	go telegram.NotifyTicketCreated(ticket.TicketNumber, ticket.IssueType, ticket.SubIssue, session.ID)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Ticket created",
		Data: map[string]interface{}{
			"ticket_id":     ticket.ID,
			"ticket_number": ticket.TicketNumber,
		},
	})
}

type UpdateTicketRequest struct {
	Status     *string `json:"status,omitempty"`
	Priority   *string `json:"priority,omitempty"`
	AssignedTo *string `json:"assigned_to,omitempty"`
}

// UpdateTicketHandler partially updates a ticket: only supplied fields
// change. Both "no fields supplied" and "ticket not found" report
// success:false with their own message, matching what existing admin clients
// expect.
func UpdateTicketHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid ticket id"})
		return
	}

	var req UpdateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}

	updates := map[string]interface{}{}
	if req.Status != nil {
		updates["status"] = *req.Status
	}
	if req.Priority != nil {
		updates["priority"] = *req.Priority
	}
	if req.AssignedTo != nil {
		updates["assigned_to"] = *req.AssignedTo
	}
	if len(updates) == 0 {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: false, Message: "No fields to update"})
		return
	}

	db := database.DB
	var ticket models.SupportTicket
	if err := db.First(&ticket, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: false, Message: "Ticket not found"})
			return
		}
		log.Printf("[Ticket] Error loading ticket %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update ticket"})
		return
	}

	if err := db.Model(&ticket).Updates(updates).Error; err != nil {
		log.Printf("[Ticket] Error updating ticket %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update ticket"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Ticket updated"})
}
