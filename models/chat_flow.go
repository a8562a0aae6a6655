package models

import (
	"time"

	"gorm.io/datatypes"
)

// ChatFlow is an admin-authored conversation script. At most one flow is
// active at a time; activation deactivates every other flow.
type ChatFlow struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"size:150;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	IsActive    bool      `gorm:"column:is_active;default:false;index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Steps []ChatFlowStep `gorm:"foreignKey:FlowID" json:"steps,omitempty"`
}

func (ChatFlow) TableName() string {
	return "chat_flows"
}

// ChatFlowStep is one node of a flow's step graph. Options, ValidationRules,
// NextStepMap and APIConfig are opaque documents: the server stores and
// round-trips them, the client interprets them.
type ChatFlowStep struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	FlowID          uint           `gorm:"column:flow_id;not null;index" json:"flow_id"`
	StepKey         string         `gorm:"column:step_key;size:100;not null" json:"step_key"`
	StepType        string         `gorm:"column:step_type;size:50;default:message" json:"step_type"` // message, input, branch, api_call
	MessageText     string         `gorm:"column:message_text;type:text;not null" json:"message_text"`
	Options         datatypes.JSON `gorm:"column:options" json:"options"`
	ValidationRules datatypes.JSON `gorm:"column:validation_rules" json:"validation_rules"`
	NextStepMap     datatypes.JSON `gorm:"column:next_step_map" json:"next_step_map"`
	APIConfig       datatypes.JSON `gorm:"column:api_config" json:"api_config"`
	IsInitial       bool           `gorm:"column:is_initial;default:false" json:"is_initial"`
	SortOrder       int            `gorm:"column:sort_order;default:0" json:"sort_order"`

	Flow *ChatFlow `gorm:"foreignKey:FlowID" json:"flow,omitempty"`
}

func (ChatFlowStep) TableName() string {
	return "chat_flow_steps"
}
