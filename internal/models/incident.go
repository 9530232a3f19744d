package models

import "time"

type IssueType string

const (
	IssueDamage        IssueType = "damage"
	IssueDelay         IssueType = "delay"
	IssueMissingItem   IssueType = "missing_item"
	IssueAccessProblem IssueType = "access_problem"
	IssueOther         IssueType = "other"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueDamage, IssueDelay, IssueMissingItem, IssueAccessProblem, IssueOther:
		return true
	}
	return false
}

// IncidentReport is fire-and-forget: append-only, no lifecycle.
type IncidentReport struct {
	ID          string    `json:"id"`
	Job         JobRef    `json:"job"`
	SessionID   *string   `json:"sessionId,omitempty"`
	IssueType   IssueType `json:"issueType"`
	Description *string   `json:"description,omitempty"`
	ReportedAt  time.Time `json:"reportedAt"`
}
