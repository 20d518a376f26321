// Package model defines the persisted records of CyberGuard: suspicious domains,
// their risk indicators, and security alerts.
package model

import (
	"encoding/json"
	"time"
)

// RiskLevel is the discrete bucket derived from a 0-100 risk score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Risk level thresholds, inclusive lower bounds.
const (
	CriticalThreshold = 80
	HighThreshold     = 60
	MediumThreshold   = 40
)

// LevelForScore buckets a risk score into its RiskLevel.
func LevelForScore(score int) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskCritical
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Valid reports whether l is a known risk level.
func (l RiskLevel) Valid() bool {
	switch l {
	case RiskLow, RiskMedium, RiskHigh, RiskCritical:
		return true
	}
	return false
}

// DomainCategory classifies a suspicious domain.
type DomainCategory string

const (
	CategoryPhishing   DomainCategory = "phishing"
	CategoryMalware    DomainCategory = "malware"
	CategorySpam       DomainCategory = "spam"
	CategorySuspicious DomainCategory = "suspicious"
	CategoryUnknown    DomainCategory = "unknown"
)

// Valid reports whether c is a known domain category.
func (c DomainCategory) Valid() bool {
	switch c {
	case CategoryPhishing, CategoryMalware, CategorySpam, CategorySuspicious, CategoryUnknown:
		return true
	}
	return false
}

// DomainSource is the provenance of the most recent write to a domain record.
type DomainSource string

const (
	SourceManual    DomainSource = "manual"
	SourceOSINT     DomainSource = "osint"
	SourceAPI       DomainSource = "api"
	SourceHeuristic DomainSource = "heuristic"
)

// IndicatorType is the kind of evidence an Indicator carries.
type IndicatorType string

const (
	IndicatorTyposquatting      IndicatorType = "typosquatting"
	IndicatorSuspiciousTLD      IndicatorType = "suspicious_tld"
	IndicatorRecentRegistration IndicatorType = "recent_registration"
	IndicatorNoSSL              IndicatorType = "no_ssl"
	IndicatorSuspiciousContent  IndicatorType = "suspicious_content"
	IndicatorBlacklistedIP      IndicatorType = "blacklisted_ip"
	IndicatorOther              IndicatorType = "other"
)

// Valid reports whether t is a known indicator type.
func (t IndicatorType) Valid() bool {
	switch t {
	case IndicatorTyposquatting, IndicatorSuspiciousTLD, IndicatorRecentRegistration,
		IndicatorNoSSL, IndicatorSuspiciousContent, IndicatorBlacklistedIP, IndicatorOther:
		return true
	}
	return false
}

// DefaultIndicatorConfidence is used when an indicator carries no confidence.
const DefaultIndicatorConfidence = 50

// Indicator is one piece of evidence contributing to a domain's risk.
// A zero Confidence is treated as absent.
type Indicator struct {
	Type        IndicatorType `json:"type" bson:"type" validate:"required,indicator_type"`
	Description string        `json:"description" bson:"description" validate:"required,max=500"`
	Confidence  int           `json:"confidence,omitempty" bson:"confidence,omitempty" validate:"min=0,max=100"`
}

// EffectiveConfidence returns the confidence, defaulting when absent.
func (i Indicator) EffectiveConfidence() int {
	if i.Confidence == 0 {
		return DefaultIndicatorConfidence
	}
	return i.Confidence
}

// IPAddress is a resolved address observed for a domain.
type IPAddress struct {
	IP       string    `json:"ip" bson:"ip"`
	Country  string    `json:"country,omitempty" bson:"country,omitempty"`
	ISP      string    `json:"isp,omitempty" bson:"isp,omitempty"`
	LastSeen time.Time `json:"lastSeen" bson:"lastSeen"`
}

// Whois holds registration metadata.
type Whois struct {
	Registrar        string     `json:"registrar,omitempty" bson:"registrar,omitempty"`
	RegistrationDate *time.Time `json:"registrationDate,omitempty" bson:"registrationDate,omitempty"`
	ExpirationDate   *time.Time `json:"expirationDate,omitempty" bson:"expirationDate,omitempty"`
	NameServers      []string   `json:"nameServers,omitempty" bson:"nameServers,omitempty"`
	Country          string     `json:"country,omitempty" bson:"country,omitempty"`
}

// SSLInfo holds certificate metadata. A record without SSLInfo is treated
// as having no SSL.
type SSLInfo struct {
	HasSSL    bool       `json:"hasSSL" bson:"hasSSL"`
	Issuer    string     `json:"issuer,omitempty" bson:"issuer,omitempty"`
	ValidFrom *time.Time `json:"validFrom,omitempty" bson:"validFrom,omitempty"`
	ValidTo   *time.Time `json:"validTo,omitempty" bson:"validTo,omitempty"`
	IsExpired bool       `json:"isExpired" bson:"isExpired"`
}

// Reputation counts community checks against a domain.
type Reputation struct {
	TotalChecks    int `json:"totalChecks" bson:"totalChecks"`
	PositiveChecks int `json:"positiveChecks" bson:"positiveChecks"`
	NegativeChecks int `json:"negativeChecks" bson:"negativeChecks"`
}

// Percentage is the share of positive checks, rounded to the nearest integer.
func (r Reputation) Percentage() int {
	if r.TotalChecks == 0 {
		return 0
	}
	return (r.PositiveChecks*100 + r.TotalChecks/2) / r.TotalChecks
}

// MarshalJSON adds the derived percentage to the stored counters.
func (r Reputation) MarshalJSON() ([]byte, error) {
	type counters Reputation
	return json.Marshal(struct {
		counters
		Percentage int `json:"percentage"`
	}{counters(r), r.Percentage()})
}

// Note is an analyst annotation on a domain.
type Note struct {
	Text    string    `json:"text" bson:"text"`
	AddedBy string    `json:"addedBy,omitempty" bson:"addedBy,omitempty"`
	AddedAt time.Time `json:"addedAt" bson:"addedAt"`
}

// SuspiciousDomain is the persisted record of a domain under watch,
// unique by its normalized name.
type SuspiciousDomain struct {
	ID          string         `json:"id" bson:"_id"`
	Domain      string         `json:"domain" bson:"domain"`
	RiskScore   int            `json:"riskScore" bson:"riskScore"`
	RiskLevel   RiskLevel      `json:"riskLevel" bson:"riskLevel"`
	Category    DomainCategory `json:"category" bson:"category"`
	Source      DomainSource   `json:"source" bson:"source"`
	Indicators  []Indicator    `json:"indicators" bson:"indicators"`
	IPAddresses []IPAddress    `json:"ipAddresses,omitempty" bson:"ipAddresses,omitempty"`
	Whois       *Whois         `json:"whois,omitempty" bson:"whois,omitempty"`
	SSLInfo     *SSLInfo       `json:"sslInfo,omitempty" bson:"sslInfo,omitempty"`
	Tags        []string       `json:"tags,omitempty" bson:"tags,omitempty"`
	Notes       []Note         `json:"notes,omitempty" bson:"notes,omitempty"`
	Reputation  Reputation     `json:"reputation" bson:"reputation"`
	IsActive    bool           `json:"isActive" bson:"isActive"`
	FirstSeen   time.Time      `json:"firstSeen" bson:"firstSeen"`
	LastSeen    time.Time      `json:"lastSeen" bson:"lastSeen"`
	CreatedAt   time.Time      `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy of d so callers can mutate it without touching
// the stored value.
func (d *SuspiciousDomain) Clone() *SuspiciousDomain {
	if d == nil {
		return nil
	}
	out := *d
	out.Indicators = append([]Indicator(nil), d.Indicators...)
	out.IPAddresses = append([]IPAddress(nil), d.IPAddresses...)
	out.Tags = append([]string(nil), d.Tags...)
	out.Notes = append([]Note(nil), d.Notes...)
	if d.Whois != nil {
		w := *d.Whois
		w.NameServers = append([]string(nil), d.Whois.NameServers...)
		out.Whois = &w
	}
	if d.SSLInfo != nil {
		s := *d.SSLInfo
		out.SSLInfo = &s
	}
	return &out
}
