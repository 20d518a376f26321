package model

import "time"

// Severity of an alert.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// AlertCategory classifies an alert.
type AlertCategory string

const (
	AlertPhishing         AlertCategory = "phishing"
	AlertMalware          AlertCategory = "malware"
	AlertSuspiciousDomain AlertCategory = "suspicious_domain"
	AlertDataBreach       AlertCategory = "data_breach"
	AlertVulnerability    AlertCategory = "vulnerability"
	AlertOther            AlertCategory = "other"
)

// Valid reports whether c is a known alert category.
func (c AlertCategory) Valid() bool {
	switch c {
	case AlertPhishing, AlertMalware, AlertSuspiciousDomain, AlertDataBreach, AlertVulnerability, AlertOther:
		return true
	}
	return false
}

// AlertSource is where an alert originated.
type AlertSource string

const (
	AlertSourceManual AlertSource = "manual"
	AlertSourceOSINT  AlertSource = "osint"
	AlertSourceAPI    AlertSource = "api"
	AlertSourceSystem AlertSource = "system"
)

// AlertStatus is the triage state of an alert.
type AlertStatus string

const (
	StatusNew           AlertStatus = "new"
	StatusInvestigating AlertStatus = "investigating"
	StatusResolved      AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

// Valid reports whether s is a known status.
func (s AlertStatus) Valid() bool {
	switch s {
	case StatusNew, StatusInvestigating, StatusResolved, StatusFalsePositive:
		return true
	}
	return false
}

// Evidence attached to an alert.
type Evidence struct {
	Type        string `json:"type" bson:"type" validate:"required,oneof=url screenshot log file other"`
	Value       string `json:"value" bson:"value" validate:"required"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
}

// Field limits enforced at the boundary.
const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 1000
	MaxResolutionLength  = 500
)

// Alert is a persisted security alert. CreatedBy is nil for system-generated
// alerts. ResolvedAt, ResolvedBy and Resolution are only ever set together
// by a resolve.
type Alert struct {
	ID          string        `json:"id" bson:"_id"`
	Title       string        `json:"title" bson:"title"`
	Description string        `json:"description" bson:"description"`
	Severity    Severity      `json:"severity" bson:"severity"`
	Category    AlertCategory `json:"category" bson:"category"`
	Source      AlertSource   `json:"source" bson:"source"`
	Domain      string        `json:"domain,omitempty" bson:"domain,omitempty"`
	IPAddress   string        `json:"ipAddress,omitempty" bson:"ipAddress,omitempty"`
	Status      AlertStatus   `json:"status" bson:"status"`
	Tags        []string      `json:"tags,omitempty" bson:"tags,omitempty"`
	Evidence    []Evidence    `json:"evidence,omitempty" bson:"evidence,omitempty"`
	AssignedTo  string        `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	CreatedBy   *string       `json:"createdBy" bson:"createdBy"`
	ResolvedAt  *time.Time    `json:"resolvedAt" bson:"resolvedAt"`
	ResolvedBy  string        `json:"resolvedBy,omitempty" bson:"resolvedBy,omitempty"`
	Resolution  string        `json:"resolution,omitempty" bson:"resolution,omitempty"`
	CreatedAt   time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// IsOwnedBy reports whether userID created the alert.
func (a *Alert) IsOwnedBy(userID string) bool {
	return a.CreatedBy != nil && *a.CreatedBy == userID
}

// Clone returns a deep copy of a.
func (a *Alert) Clone() *Alert {
	if a == nil {
		return nil
	}
	out := *a
	out.Tags = append([]string(nil), a.Tags...)
	out.Evidence = append([]Evidence(nil), a.Evidence...)
	if a.CreatedBy != nil {
		v := *a.CreatedBy
		out.CreatedBy = &v
	}
	if a.ResolvedAt != nil {
		v := *a.ResolvedAt
		out.ResolvedAt = &v
	}
	return &out
}

// SeverityForRiskLevel maps a domain risk level onto the severity of the
// alert raised when the domain is added manually.
func SeverityForRiskLevel(level RiskLevel) Severity {
	switch level {
	case RiskCritical:
		return SeverityCritical
	case RiskHigh:
		return SeverityHigh
	default:
		return SeverityMedium
	}
}
