package scoring

import (
	"time"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// categoryFloor is the minimum score a record of each category can have.
var categoryFloor = map[model.DomainCategory]int{
	model.CategoryPhishing:   90,
	model.CategoryMalware:    95,
	model.CategorySpam:       60,
	model.CategorySuspicious: 40,
	model.CategoryUnknown:    30,
}

const (
	noSSLPenalty       = 20
	expiredSSLPenalty  = 15
	newDomainPenalty   = 25
	youngDomainPenalty = 15

	newDomainAge   = 30 * 24 * time.Hour
	youngDomainAge = 90 * 24 * time.Hour
)

// RecomputeRisk derives RiskScore and RiskLevel of d from its stored
// indicators, category, SSL and WHOIS metadata as of now. It returns the
// updated copy and leaves persistence to the caller. Every path that changes
// indicators, category or metadata must call it before writing the record.
func RecomputeRisk(d model.SuspiciousDomain, now time.Time) model.SuspiciousDomain {
	score := 0
	for _, ind := range d.Indicators {
		score += ind.EffectiveConfidence()
	}

	if floor := categoryFloor[d.Category]; score < floor {
		score = floor
	}

	if d.SSLInfo == nil || !d.SSLInfo.HasSSL {
		score += noSSLPenalty
	}
	if d.SSLInfo != nil && d.SSLInfo.IsExpired {
		score += expiredSSLPenalty
	}

	if d.Whois != nil && d.Whois.RegistrationDate != nil {
		age := now.Sub(*d.Whois.RegistrationDate)
		switch {
		case age < newDomainAge:
			score += newDomainPenalty
		case age < youngDomainAge:
			score += youngDomainPenalty
		}
	}

	d.RiskScore = clamp(score)
	d.RiskLevel = model.LevelForScore(d.RiskScore)
	return d
}
