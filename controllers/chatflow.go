package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"chatbox/database"
	"chatbox/models"
	"chatbox/utils"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FlowStepPayload carries one step of a flow on create/update. The four
// document fields are stored verbatim and interpreted only by the client.
type FlowStepPayload struct {
	StepKey         string          `json:"step_key"`
	StepType        string          `json:"step_type"`
	MessageText     string          `json:"message_text"`
	Options         json.RawMessage `json:"options"`
	ValidationRules json.RawMessage `json:"validation_rules"`
	NextStepMap     json.RawMessage `json:"next_step_map"`
	APIConfig       json.RawMessage `json:"api_config"`
	IsInitial       bool            `json:"is_initial"`
	SortOrder       int             `json:"sort_order"`
}

type FlowPayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	IsActive    bool              `json:"is_active"`
	Steps       []FlowStepPayload `json:"steps"`
}

// FlowSummary is the list view of a flow with a denormalized step count.
type FlowSummary struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	StepCount   int64  `json:"step_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// validateFlowPayload rejects a payload before any write happens, so a
// failed validation never leaves partial rows behind. Step keys must be
// unique within the flow; next_step_map values are deliberately not checked
// against existing keys (the client owns that graph).
func validateFlowPayload(req *FlowPayload) error {
	if strings.TrimSpace(req.Name) == "" {
		return errors.New("Flow name is required")
	}
	seen := make(map[string]bool, len(req.Steps))
	for i, step := range req.Steps {
		if strings.TrimSpace(step.StepKey) == "" {
			return fmt.Errorf("Step %d is missing step_key", i+1)
		}
		if strings.TrimSpace(step.MessageText) == "" {
			return fmt.Errorf("Step %q is missing message_text", step.StepKey)
		}
		if seen[step.StepKey] {
			return fmt.Errorf("Duplicate step_key %q", step.StepKey)
		}
		seen[step.StepKey] = true
	}
	return nil
}

// stepDoc normalizes an optional document field to stored JSON, falling back
// to the given empty default when absent or malformed.
func stepDoc(raw json.RawMessage, fallback string) datatypes.JSON {
	if len(raw) == 0 || !json.Valid(raw) {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(raw)
}

func buildFlowSteps(flowID uint, payload []FlowStepPayload) []models.ChatFlowStep {
	steps := make([]models.ChatFlowStep, 0, len(payload))
	for _, p := range payload {
		stepType := p.StepType
		if stepType == "" {
			stepType = "message"
		}
		steps = append(steps, models.ChatFlowStep{
			FlowID:          flowID,
			StepKey:         p.StepKey,
			StepType:        stepType,
			MessageText:     p.MessageText,
			Options:         stepDoc(p.Options, "[]"),
			ValidationRules: stepDoc(p.ValidationRules, "{}"),
			NextStepMap:     stepDoc(p.NextStepMap, "{}"),
			APIConfig:       stepDoc(p.APIConfig, "{}"),
			IsInitial:       p.IsInitial,
			SortOrder:       p.SortOrder,
		})
	}
	return steps
}

// sanitizeStepDocs replaces malformed stored documents with their empty
// defaults so a bad row degrades the step instead of failing the request.
func sanitizeStepDocs(steps []models.ChatFlowStep) {
	for i := range steps {
		if len(steps[i].Options) == 0 || !json.Valid(steps[i].Options) {
			steps[i].Options = datatypes.JSON("[]")
		}
		for _, doc := range []*datatypes.JSON{&steps[i].ValidationRules, &steps[i].NextStepMap, &steps[i].APIConfig} {
			if len(*doc) == 0 || !json.Valid(*doc) {
				*doc = datatypes.JSON("{}")
			}
		}
	}
}

// orderedSteps preloads a flow's steps in presentation order, ties broken by
// insertion order.
func orderedSteps(db *gorm.DB) *gorm.DB {
	return db.Order("sort_order ASC, id ASC")
}

// ListFlowsHandler returns all flows with their step counts.
func ListFlowsHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	var summaries []FlowSummary
	err := db.Model(&models.ChatFlow{}).
		Select("chat_flows.id, chat_flows.name, chat_flows.description, chat_flows.is_active, chat_flows.created_at, chat_flows.updated_at, COUNT(chat_flow_steps.id) AS step_count").
		Joins("LEFT JOIN chat_flow_steps ON chat_flow_steps.flow_id = chat_flows.id").
		Group("chat_flows.id").
		Order("chat_flows.updated_at DESC").
		Scan(&summaries).Error
	if err != nil {
		log.Printf("[ChatFlow] Error listing flows: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to load flows"})
		return
	}
	if summaries == nil {
		summaries = make([]FlowSummary, 0)
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Flows loaded", Data: summaries})
}

// GetActiveFlowHandler returns the single active flow with its ordered steps.
// If more than one flow is somehow active, the most recently updated wins.
func GetActiveFlowHandler(w http.ResponseWriter, r *http.Request) {
	db := database.DB
	var flow models.ChatFlow
	err := db.Where("is_active = ?", true).
		Order("updated_at DESC").
		Preload("Steps", orderedSteps).
		First(&flow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "No active flow"})
			return
		}
		log.Printf("[ChatFlow] Error loading active flow: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to load active flow"})
		return
	}
	sanitizeStepDocs(flow.Steps)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Active flow loaded", Data: flow})
}

// GetFlowHandler returns one flow by id with its ordered steps.
func GetFlowHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid flow id"})
		return
	}

	db := database.DB
	var flow models.ChatFlow
	if err := db.Preload("Steps", orderedSteps).First(&flow, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Flow not found"})
			return
		}
		log.Printf("[ChatFlow] Error loading flow %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to load flow"})
		return
	}
	sanitizeStepDocs(flow.Steps)
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Flow loaded", Data: flow})
}

// CreateFlowHandler creates a flow and all of its steps in one transaction.
func CreateFlowHandler(w http.ResponseWriter, r *http.Request) {
	var req FlowPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if err := validateFlowPayload(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
		return
	}

	db := database.DB
	flow := models.ChatFlow{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		IsActive:    req.IsActive,
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if req.IsActive {
			// exactly one active flow at a time
			if err := tx.Model(&models.ChatFlow{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		if err := tx.Create(&flow).Error; err != nil {
			return err
		}
		steps := buildFlowSteps(flow.ID, req.Steps)
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Printf("[ChatFlow] Error creating flow: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to create flow"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Flow created",
		Data:    map[string]interface{}{"flow_id": flow.ID},
	})
}

// UpdateFlowHandler replaces a flow's fields and its entire step set in one
// transaction. Old steps are discarded, ids and all; clients holding step ids
// across an update hold dangling references.
func UpdateFlowHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid flow id"})
		return
	}

	var req FlowPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if err := validateFlowPayload(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: err.Error()})
		return
	}

	db := database.DB
	err = db.Transaction(func(tx *gorm.DB) error {
		var flow models.ChatFlow
		if err := tx.First(&flow, uint(id)).Error; err != nil {
			return err
		}
		if req.IsActive && !flow.IsActive {
			if err := tx.Model(&models.ChatFlow{}).Where("is_active = ?", true).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		updates := map[string]interface{}{
			"name":        strings.TrimSpace(req.Name),
			"description": req.Description,
			"is_active":   req.IsActive,
		}
		if err := tx.Model(&flow).Updates(updates).Error; err != nil {
			return err
		}
		if err := tx.Where("flow_id = ?", flow.ID).Delete(&models.ChatFlowStep{}).Error; err != nil {
			return err
		}
		steps := buildFlowSteps(flow.ID, req.Steps)
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Flow not found"})
			return
		}
		log.Printf("[ChatFlow] Error updating flow %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update flow"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Flow updated"})
}

type FlowStatusPayload struct {
	IsActive bool `json:"is_active"`
}

// UpdateFlowStatusHandler flips a flow's active state. Activation deactivates
// every other flow inside the same transaction.
func UpdateFlowStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid flow id"})
		return
	}

	var req FlowStatusPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}

	db := database.DB
	err = db.Transaction(func(tx *gorm.DB) error {
		var flow models.ChatFlow
		if err := tx.First(&flow, uint(id)).Error; err != nil {
			return err
		}
		if req.IsActive {
			if err := tx.Model(&models.ChatFlow{}).Where("id <> ?", flow.ID).Update("is_active", false).Error; err != nil {
				return err
			}
		}
		return tx.Model(&flow).Update("is_active", req.IsActive).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Flow not found"})
			return
		}
		log.Printf("[ChatFlow] Error updating flow %d status: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update flow status"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Flow status updated"})
}

// DeleteFlowHandler removes a flow and its steps in one transaction.
func DeleteFlowHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid flow id"})
		return
	}

	db := database.DB
	err = db.Transaction(func(tx *gorm.DB) error {
		var flow models.ChatFlow
		if err := tx.First(&flow, uint(id)).Error; err != nil {
			return err
		}
		if err := tx.Where("flow_id = ?", flow.ID).Delete(&models.ChatFlowStep{}).Error; err != nil {
			return err
		}
		return tx.Delete(&flow).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Flow not found"})
			return
		}
		log.Printf("[ChatFlow] Error deleting flow %d: %v", id, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to delete flow"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Flow deleted"})
}
