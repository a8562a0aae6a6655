package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"chatbox/controllers/telegram"
	"chatbox/database"
	"chatbox/models"
	"chatbox/utils"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// departmentLabels maps the routing slug in the URL to the display label
// stored on the request and shown to the customer.
var departmentLabels = map[string]string{
	"billing":    "Billing",
	"technical":  "Technical Support",
	"accounts":   "Account Management",
	"compliance": "Compliance",
}

type RouteDepartmentRequest struct {
	SessionID uint            `json:"session_id"`
	ChatLogs  json.RawMessage `json:"chat_logs,omitempty"`
}

// RouteDepartmentHandler records a department-routing request carrying a
// snapshot of the conversation. The snapshot is also archived to object
// storage when R2 is configured, for the back-office audit trail.
func RouteDepartmentHandler(w http.ResponseWriter, r *http.Request) {
	dept := mux.Vars(r)["department"]
	label, ok := departmentLabels[dept]
	if !ok {
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Unknown department"})
		return
	}

	var req RouteDepartmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if req.SessionID == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "session_id is required"})
		return
	}

	chatLogs := req.ChatLogs
	if len(chatLogs) == 0 || !json.Valid(chatLogs) {
		chatLogs = json.RawMessage("[]")
	}

	message := fmt.Sprintf("Your request has been forwarded to the %s team. Someone will reach out shortly.", label)
	request := models.DepartmentRequest{
		SessionID:  req.SessionID,
		Department: dept,
		Status:     "pending",
		Message:    message,
		ChatLogs:   datatypes.JSON(chatLogs),
	}
	if err := database.DB.Create(&request).Error; err != nil {
		log.Printf("[Department] Error routing session %d to %s: %v", req.SessionID, dept, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to route request"})
		return
	}

	if utils.ArchiveEnabled() {
		go func(sessionID uint, dept string, logs []byte) {
			if key, err := utils.ArchiveChatLogs(sessionID, dept, logs); err != nil {
				log.Printf("[Department] Chat log archive failed for session %d: %v", sessionID, err)
			} else {
				log.Printf("[Department] Archived chat logs for session %d to %s", sessionID, key)
			}
		}(req.SessionID, dept, chatLogs)
	}
	go telegram.NotifyDepartmentRequest(label, req.SessionID)

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Request routed",
		Data: map[string]interface{}{
			"department": label,
			"status":     request.Status,
			"message":    message,
		},
	})
}

// ListDepartmentRequestsHandler returns all department requests, newest
// first, for the admin queue view.
func ListDepartmentRequestsHandler(w http.ResponseWriter, r *http.Request) {
	var requests []models.DepartmentRequest
	if err := database.DB.Order("created_at DESC").Find(&requests).Error; err != nil {
		log.Printf("[Department] Error listing requests: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to load department requests"})
		return
	}
	if requests == nil {
		requests = make([]models.DepartmentRequest, 0)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Department requests loaded", Data: requests})
}

// ResolveDepartmentRequestHandler marks a request resolved and, in the same
// transaction, resolves the parent chat session: a resolved request must
// never point at a still-open session. Unknown ids are a 404.
func ResolveDepartmentRequestHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request id"})
		return
	}

	db := database.DB
	err = db.Transaction(func(tx *gorm.DB) error {
		var request models.DepartmentRequest
		if err := tx.First(&request, uint(id)).Error; err != nil {
			return err
		}
		if err := tx.Model(&request).Update("status", "resolved").Error; err != nil {
			return err
		}
		return tx.Model(&models.ChatSession{}).
			Where("id = ?", request.SessionID).
			Update("status", "resolved").Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Department request not found"})
			return
		}
		log.Printf("[Department] Error resolving request %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to resolve department request"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Department request resolved"})
}
