package controllers

import (
	"net/http"
	"strconv"
	"strings"
	"testing"

	"chatbox/models"
)

func TestCreateTicketEscalatesSession(t *testing.T) {
	db := setupTestDB(t)
	session := seedSession(t, db, "sess_ticket")

	rec, envelope := doJSON(t, CreateTicketHandler, http.MethodPost, "/api/ticket/create", CreateTicketRequest{
		SessionToken: "sess_ticket",
		IssueType:    "Billing",
		SubIssue:     "Duplicate charge",
		UserData:     map[string]interface{}{"phone": "9000000001"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%v)", rec.Code, envelope)
	}
	data := dataField(t, envelope)
	ticketNumber, _ := data["ticket_number"].(string)
	if !strings.HasPrefix(ticketNumber, "TKT-") {
		t.Fatalf("unexpected ticket number %q", ticketNumber)
	}

	var ticket models.SupportTicket
	if err := db.Where("ticket_number = ?", ticketNumber).First(&ticket).Error; err != nil {
		t.Fatalf("ticket not persisted: %v", err)
	}
	if ticket.SessionID != session.ID || ticket.Status != "open" || ticket.Priority != "medium" {
		t.Fatalf("unexpected ticket: %+v", ticket)
	}
	if !strings.Contains(ticket.Description, "Billing - Duplicate charge") {
		t.Fatalf("default description not built: %q", ticket.Description)
	}

	db.First(&session, session.ID)
	if session.Status != "escalated" {
		t.Fatalf("session should be escalated, got %q", session.Status)
	}
}

func TestCreateTicketRollsBackSessionOnInsertFailure(t *testing.T) {
	db := setupTestDB(t)
	session := seedSession(t, db, "sess_rollback")

	// Sabotage the ticket insert so the transaction has to unwind.
	if err := db.Migrator().DropTable(&models.SupportTicket{}); err != nil {
		t.Fatalf("failed to drop table: %v", err)
	}

	rec, _ := doJSON(t, CreateTicketHandler, http.MethodPost, "/api/ticket/create", CreateTicketRequest{
		SessionToken: "sess_rollback",
		IssueType:    "Technical",
		SubIssue:     "Login failure",
	}, nil)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	db.First(&session, session.ID)
	if session.Status != "active" {
		t.Fatalf("session status must survive a failed ticket insert, got %q", session.Status)
	}
}

func TestCreateTicketValidation(t *testing.T) {
	setupTestDB(t)

	rec, _ := doJSON(t, CreateTicketHandler, http.MethodPost, "/api/ticket/create", CreateTicketRequest{
		SessionToken: "sess_whatever",
		IssueType:    "Billing",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing sub_issue, got %d", rec.Code)
	}

	rec, _ = doJSON(t, CreateTicketHandler, http.MethodPost, "/api/ticket/create", CreateTicketRequest{
		SessionToken: "sess_unknown",
		IssueType:    "Billing",
		SubIssue:     "Refund",
	}, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown session, got %d", rec.Code)
	}
}

func TestUpdateTicketPartialUpdate(t *testing.T) {
	db := setupTestDB(t)
	session := seedSession(t, db, "sess_update")
	ticket := models.SupportTicket{
		SessionID:    session.ID,
		TicketNumber: "TKT-000001001",
		IssueType:    "Billing",
		SubIssue:     "Refund",
		Status:       "open",
		Priority:     "medium",
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}

	status := "in_progress"
	assignee := "priya"
	rec, _ := doJSON(t, UpdateTicketHandler, http.MethodPut, "/api/ticket/1", UpdateTicketRequest{
		Status:     &status,
		AssignedTo: &assignee,
	}, map[string]string{"id": strconv.Itoa(int(ticket.ID))})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	db.First(&ticket, ticket.ID)
	if ticket.Status != "in_progress" || ticket.AssignedTo == nil || *ticket.AssignedTo != "priya" {
		t.Fatalf("partial update not applied: %+v", ticket)
	}
	if ticket.Priority != "medium" {
		t.Fatalf("untouched field changed: priority=%q", ticket.Priority)
	}
}

func TestUpdateTicketSoftFailures(t *testing.T) {
	db := setupTestDB(t)
	session := seedSession(t, db, "sess_soft")
	ticket := models.SupportTicket{
		SessionID:    session.ID,
		TicketNumber: "TKT-000002002",
		IssueType:    "Technical",
		SubIssue:     "Crash",
		Status:       "open",
		Priority:     "high",
	}
	if err := db.Create(&ticket).Error; err != nil {
		t.Fatalf("failed to seed ticket: %v", err)
	}

	rec, envelope := doJSON(t, UpdateTicketHandler, http.MethodPut, "/api/ticket/1",
		UpdateTicketRequest{}, map[string]string{"id": strconv.Itoa(int(ticket.ID))})
	if rec.Code != http.StatusOK || envelope["success"] != false || envelope["message"] != "No fields to update" {
		t.Fatalf("expected 200 success:false no-fields, got %d (%v)", rec.Code, envelope)
	}

	status := "closed"
	rec, envelope = doJSON(t, UpdateTicketHandler, http.MethodPut, "/api/ticket/9999",
		UpdateTicketRequest{Status: &status}, map[string]string{"id": "9999"})
	if rec.Code != http.StatusOK || envelope["success"] != false || envelope["message"] != "Ticket not found" {
		t.Fatalf("expected 200 success:false not-found, got %d (%v)", rec.Code, envelope)
	}
}
