package controllers

import (
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"testing"

	"chatbox/models"
)

func createFlow(t *testing.T, payload FlowPayload) uint {
	t.Helper()
	rec, envelope := doJSON(t, CreateFlowHandler, http.MethodPost, "/api/flows", payload, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("create flow: expected 200, got %d (%v)", rec.Code, envelope)
	}
	id, ok := dataField(t, envelope)["flow_id"].(float64)
	if !ok {
		t.Fatalf("create flow: missing flow_id in %v", envelope)
	}
	return uint(id)
}

func TestCreateFlowReturnsOrderedSteps(t *testing.T) {
	setupTestDB(t)

	flowID := createFlow(t, FlowPayload{
		Name: "Onboarding",
		Steps: []FlowStepPayload{
			{StepKey: "closing", MessageText: "Anything else?", SortOrder: 3},
			{StepKey: "greeting", MessageText: "Hello!", SortOrder: 1, IsInitial: true},
			{StepKey: "issue", MessageText: "What can we help with?", SortOrder: 2},
		},
	})

	rec, envelope := doJSON(t, GetFlowHandler, http.MethodGet, "/api/flows/1", nil,
		map[string]string{"id": strconv.Itoa(int(flowID))})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	steps := dataField(t, envelope)["steps"].([]interface{})
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps, got %d", len(steps))
	}
	wantOrder := []string{"greeting", "issue", "closing"}
	for i, raw := range steps {
		step := raw.(map[string]interface{})
		if step["step_key"] != wantOrder[i] {
			t.Fatalf("step %d: expected %q, got %v", i, wantOrder[i], step["step_key"])
		}
	}
}

func TestCreateFlowRoundTripsStepDocuments(t *testing.T) {
	setupTestDB(t)

	options := []interface{}{"Billing", "Technical", "Other"}
	nextStepMap := map[string]interface{}{"Billing": "billing_details", "Technical": "tech_details"}
	validation := map[string]interface{}{"required": true, "max_length": float64(50)}

	flowID := createFlow(t, FlowPayload{
		Name: "Routing",
		Steps: []FlowStepPayload{{
			StepKey:         "pick_topic",
			StepType:        "branch",
			MessageText:     "Pick a topic",
			Options:         mustJSON(t, options),
			NextStepMap:     mustJSON(t, nextStepMap),
			ValidationRules: mustJSON(t, validation),
		}},
	})

	_, envelope := doJSON(t, GetFlowHandler, http.MethodGet, "/api/flows/1", nil,
		map[string]string{"id": strconv.Itoa(int(flowID))})
	step := dataField(t, envelope)["steps"].([]interface{})[0].(map[string]interface{})

	if !reflect.DeepEqual(step["options"], options) {
		t.Fatalf("options did not round-trip: %v", step["options"])
	}
	if !reflect.DeepEqual(step["next_step_map"], nextStepMap) {
		t.Fatalf("next_step_map did not round-trip: %v", step["next_step_map"])
	}
	if !reflect.DeepEqual(step["validation_rules"], validation) {
		t.Fatalf("validation_rules did not round-trip: %v", step["validation_rules"])
	}
	// api_config was omitted and must come back as its empty default
	if !reflect.DeepEqual(step["api_config"], map[string]interface{}{}) {
		t.Fatalf("expected empty api_config, got %v", step["api_config"])
	}
}

func mustJSON(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestCreateFlowValidationLeavesNothingBehind(t *testing.T) {
	db := setupTestDB(t)

	rec, _ := doJSON(t, CreateFlowHandler, http.MethodPost, "/api/flows", FlowPayload{
		Name:  "",
		Steps: []FlowStepPayload{{StepKey: "a", MessageText: "hi"}},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rec.Code)
	}

	rec, _ = doJSON(t, CreateFlowHandler, http.MethodPost, "/api/flows", FlowPayload{
		Name:  "Broken",
		Steps: []FlowStepPayload{{StepKey: "a", MessageText: "hi"}, {StepKey: "b"}},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for step missing message_text, got %d", rec.Code)
	}

	rec, _ = doJSON(t, CreateFlowHandler, http.MethodPost, "/api/flows", FlowPayload{
		Name:  "Duped",
		Steps: []FlowStepPayload{{StepKey: "a", MessageText: "hi"}, {StepKey: "a", MessageText: "again"}},
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for duplicate step_key, got %d", rec.Code)
	}

	var flowCount, stepCount int64
	db.Model(&models.ChatFlow{}).Count(&flowCount)
	db.Model(&models.ChatFlowStep{}).Count(&stepCount)
	if flowCount != 0 || stepCount != 0 {
		t.Fatalf("rejected payloads persisted rows: flows=%d steps=%d", flowCount, stepCount)
	}
}

func TestActivationKeepsExactlyOneActiveFlow(t *testing.T) {
	db := setupTestDB(t)

	first := createFlow(t, FlowPayload{Name: "First", IsActive: true})
	second := createFlow(t, FlowPayload{Name: "Second"})

	rec, _ := doJSON(t, UpdateFlowStatusHandler, http.MethodPatch, "/api/flows/2/status",
		FlowStatusPayload{IsActive: true}, map[string]string{"id": strconv.Itoa(int(second))})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var active []models.ChatFlow
	db.Where("is_active = ?", true).Find(&active)
	if len(active) != 1 || active[0].ID != second {
		t.Fatalf("expected only flow %d active, got %v", second, active)
	}

	var firstFlow models.ChatFlow
	db.First(&firstFlow, first)
	if firstFlow.IsActive {
		t.Fatal("first flow should have been deactivated")
	}
}

func TestGetActiveFlow(t *testing.T) {
	setupTestDB(t)

	rec, _ := doJSON(t, GetActiveFlowHandler, http.MethodGet, "/api/flows/active", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with no active flow, got %d", rec.Code)
	}

	createFlow(t, FlowPayload{
		Name:     "Live",
		IsActive: true,
		Steps:    []FlowStepPayload{{StepKey: "greeting", MessageText: "Hello!", IsInitial: true}},
	})

	rec, envelope := doJSON(t, GetActiveFlowHandler, http.MethodGet, "/api/flows/active", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	data := dataField(t, envelope)
	if data["name"] != "Live" || data["is_active"] != true {
		t.Fatalf("unexpected active flow payload: %v", data)
	}
}

func TestUpdateFlowReplacesStepSet(t *testing.T) {
	db := setupTestDB(t)

	flowID := createFlow(t, FlowPayload{
		Name: "Rework",
		Steps: []FlowStepPayload{
			{StepKey: "old_one", MessageText: "old"},
			{StepKey: "old_two", MessageText: "old"},
		},
	})

	var oldIDs []uint
	db.Model(&models.ChatFlowStep{}).Where("flow_id = ?", flowID).Pluck("id", &oldIDs)
	if len(oldIDs) != 2 {
		t.Fatalf("expected 2 seeded steps, got %d", len(oldIDs))
	}

	rec, _ := doJSON(t, UpdateFlowHandler, http.MethodPut, "/api/flows/1", FlowPayload{
		Name:  "Reworked",
		Steps: []FlowStepPayload{{StepKey: "fresh", MessageText: "new"}},
	}, map[string]string{"id": strconv.Itoa(int(flowID))})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var steps []models.ChatFlowStep
	db.Where("flow_id = ?", flowID).Find(&steps)
	if len(steps) != 1 || steps[0].StepKey != "fresh" {
		t.Fatalf("expected single fresh step, got %v", steps)
	}
	for _, oldID := range oldIDs {
		if steps[0].ID == oldID {
			t.Fatalf("old step id %d survived the update", oldID)
		}
	}
}

func TestDeleteFlowRemovesSteps(t *testing.T) {
	db := setupTestDB(t)

	flowID := createFlow(t, FlowPayload{
		Name:  "Doomed",
		Steps: []FlowStepPayload{{StepKey: "only", MessageText: "bye"}},
	})

	rec, _ := doJSON(t, DeleteFlowHandler, http.MethodDelete, "/api/flows/1", nil,
		map[string]string{"id": strconv.Itoa(int(flowID))})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var flowCount, stepCount int64
	db.Model(&models.ChatFlow{}).Count(&flowCount)
	db.Model(&models.ChatFlowStep{}).Count(&stepCount)
	if flowCount != 0 || stepCount != 0 {
		t.Fatalf("delete left rows behind: flows=%d steps=%d", flowCount, stepCount)
	}

	rec, _ = doJSON(t, DeleteFlowHandler, http.MethodDelete, "/api/flows/1", nil,
		map[string]string{"id": strconv.Itoa(int(flowID))})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting a missing flow, got %d", rec.Code)
	}
}

func TestListFlowsIncludesStepCount(t *testing.T) {
	setupTestDB(t)

	createFlow(t, FlowPayload{
		Name: "Counted",
		Steps: []FlowStepPayload{
			{StepKey: "one", MessageText: "1"},
			{StepKey: "two", MessageText: "2"},
		},
	})
	createFlow(t, FlowPayload{Name: "Empty"})

	rec, envelope := doJSON(t, ListFlowsHandler, http.MethodGet, "/api/flows", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	flows := envelope["data"].([]interface{})
	if len(flows) != 2 {
		t.Fatalf("expected 2 flows, got %d", len(flows))
	}
	counts := map[string]float64{}
	for _, raw := range flows {
		f := raw.(map[string]interface{})
		counts[f["name"].(string)] = f["step_count"].(float64)
	}
	if counts["Counted"] != 2 || counts["Empty"] != 0 {
		t.Fatalf("unexpected step counts: %v", counts)
	}
}

func TestExecuteStepMergesInputAndLeavesChainingToClient(t *testing.T) {
	rec, envelope := doJSON(t, ExecuteStepHandler, http.MethodPost, "/api/execute-step", ExecuteStepRequest{
		StepKey:   "issue_type",
		UserInput: "Billing",
		UserData:  map[string]interface{}{"greeting": "hi"},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	data := dataField(t, envelope)
	userData := data["user_data"].(map[string]interface{})
	if userData["issue_type"] != "Billing" || userData["greeting"] != "hi" {
		t.Fatalf("user_data not merged: %v", userData)
	}
	next, present := data["next_step"]
	if !present || next != nil {
		t.Fatalf("expected next_step to be present and null, got %v", next)
	}

	rec, _ = doJSON(t, ExecuteStepHandler, http.MethodPost, "/api/execute-step",
		ExecuteStepRequest{UserInput: "x"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without step_key, got %d", rec.Code)
	}
}

func TestValidatePhoneAndEmailProbes(t *testing.T) {
	db := setupTestDB(t)
	seedUser(t, db, "meera", "meera@example.com", "9876543210")

	_, envelope := doJSON(t, ValidatePhoneHandler, http.MethodPost, "/api/validate-phone",
		ValidateInputRequest{UserInput: "(987) 654-3210"}, nil)
	data := dataField(t, envelope)
	if data["valid"] != true || data["is_existing_customer"] != true || data["customer_name"] != "meera" {
		t.Fatalf("unexpected phone probe result: %v", data)
	}

	_, envelope = doJSON(t, ValidatePhoneHandler, http.MethodPost, "/api/validate-phone",
		ValidateInputRequest{UserInput: "12345"}, nil)
	if dataField(t, envelope)["valid"] != false {
		t.Fatal("expected short number to be invalid")
	}

	_, envelope = doJSON(t, ValidateEmailHandler, http.MethodPost, "/api/validate-email",
		ValidateInputRequest{UserInput: "MEERA@example.com"}, nil)
	data = dataField(t, envelope)
	if data["valid"] != true || data["is_existing_customer"] != true {
		t.Fatalf("unexpected email probe result: %v", data)
	}

	_, envelope = doJSON(t, ValidateEmailHandler, http.MethodPost, "/api/validate-email",
		ValidateInputRequest{UserInput: "nobody@example.com"}, nil)
	data = dataField(t, envelope)
	if data["valid"] != true || data["is_existing_customer"] != false {
		t.Fatalf("unknown email should be valid but unmatched: %v", data)
	}
}
