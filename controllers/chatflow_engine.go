package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"chatbox/database"
	"chatbox/models"
	"chatbox/utils"

	"gorm.io/gorm"
)

type ExecuteStepRequest struct {
	StepKey   string                 `json:"step_key"`
	UserInput interface{}            `json:"user_input"`
	UserData  map[string]interface{} `json:"user_data"`
}

// ExecuteStepHandler records a customer's answer to a step by merging it into
// the accumulated user_data under the step key. Server-side step chaining is
// not implemented: next_step is always null and the client walks
// next_step_map itself.
func ExecuteStepHandler(w http.ResponseWriter, r *http.Request) {
	var req ExecuteStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.StepKey) == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "step_key is required"})
		return
	}

	merged := make(map[string]interface{}, len(req.UserData)+1)
	for k, v := range req.UserData {
		merged[k] = v
	}
	merged[req.StepKey] = req.UserInput

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Step executed",
		Data: map[string]interface{}{
			"user_data": merged,
			"next_step": nil,
		},
	})
}

type ValidateInputRequest struct {
	UserInput string `json:"user_input"`
}

// ValidatePhoneHandler checks a phone answer and reports whether it belongs
// to a known customer.
func ValidatePhoneHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}

	digits := utils.DigitsOnly(req.UserInput)
	if !utils.IsValidPhone(req.UserInput) {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
			Success: true,
			Message: "Phone number is invalid",
			Data:    map[string]interface{}{"valid": false},
		})
		return
	}

	data := map[string]interface{}{"valid": true, "is_existing_customer": false}
	var user models.User
	err := database.DB.Where("phone = ?", digits).First(&user).Error
	if err == nil {
		data["is_existing_customer"] = true
		data["customer_name"] = user.Username
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to validate phone"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Phone number is valid", Data: data})
}

// ValidateEmailHandler checks an email answer and reports whether it belongs
// to a known customer.
func ValidateEmailHandler(w http.ResponseWriter, r *http.Request) {
	var req ValidateInputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid request body"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.UserInput))
	if !utils.IsValidEmail(email) {
		utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
			Success: true,
			Message: "Email is invalid",
			Data:    map[string]interface{}{"valid": false},
		})
		return
	}

	data := map[string]interface{}{"valid": true, "is_existing_customer": false}
	var user models.User
	err := database.DB.Where("email = ?", email).First(&user).Error
	if err == nil {
		data["is_existing_customer"] = true
		data["customer_name"] = user.Username
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to validate email"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Email is valid", Data: data})
}
