package models

import "github.com/shopspring/decimal"

// Goal is a savings or spending target, optionally tracked against an account.
type Goal struct {
	ID             ID              `json:"id"`
	AccountID      ID              `json:"account_id,omitempty"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	Status         string          `json:"status"`
	TrackingStatus string          `json:"tracking_status"`
	TrackingType   string          `json:"tracking_type"`
	Frequency      string          `json:"frequency"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date,omitempty"`
}

// Key returns the cache key.
func (g Goal) Key() ID { return g.ID }

// GoalPeriod is one tracking interval of a goal.
type GoalPeriod struct {
	ID             ID              `json:"id"`
	GoalID         ID              `json:"goal_id"`
	StartDate      string          `json:"start_date"`
	EndDate        string          `json:"end_date"`
	TrackingStatus string          `json:"tracking_status"`
	CurrentAmount  decimal.Decimal `json:"current_amount"`
	TargetAmount   decimal.Decimal `json:"target_amount"`
}

// Key returns the cache key.
func (p GoalPeriod) Key() ID { return p.ID }

// GoalRequest is the body of goal create and update requests.
type GoalRequest struct {
	Name         string           `json:"name"`
	Description  string           `json:"description,omitempty"`
	AccountID    ID               `json:"account_id,omitempty"`
	Frequency    string           `json:"frequency,omitempty"`
	TrackingType string           `json:"tracking_type,omitempty"`
	TargetAmount *decimal.Decimal `json:"target_amount,omitempty"`
	StartDate    string           `json:"start_date,omitempty"`
	EndDate      string           `json:"end_date,omitempty"`
}
