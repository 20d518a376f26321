package scoring

import (
	"fmt"
	"strings"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// Heuristic weights. Each fired check adds its weight to the raw score and
// uses the same value as the indicator confidence.
const (
	typosquatWeight     = 80
	suspiciousTLDWeight = 60
	longNameWeight      = 40
	digitWeight         = 30
	hyphenWeight        = 25

	longNameThreshold = 30
	digitThreshold    = 3
	hyphenThreshold   = 2

	// SuspiciousThreshold is the raw score above which a domain is flagged.
	SuspiciousThreshold = 30
)

// referenceBrands are second-level names commonly impersonated.
var referenceBrands = []string{"google", "facebook", "amazon", "microsoft", "apple"}

var suspiciousTLDs = map[string]bool{
	".tk":       true,
	".ml":       true,
	".ga":       true,
	".cf":       true,
	".click":    true,
	".download": true,
}

// Assessment is the result of a heuristic check of a domain name.
type Assessment struct {
	Domain       string               `json:"domain"`
	IsSuspicious bool                 `json:"isSuspicious"`
	RiskScore    int                  `json:"riskScore"`
	RiskLevel    model.RiskLevel      `json:"riskLevel"`
	Category     model.DomainCategory `json:"category"`
	Indicators   []model.Indicator    `json:"indicators"`
}

// Assess scores a normalized domain name with string heuristics. All checks
// run independently; only the typosquatting check changes the category, and
// when several brands match the last one wins.
func Assess(domain string) Assessment {
	a := Assessment{
		Domain:     domain,
		Category:   model.CategorySuspicious,
		Indicators: []model.Indicator{},
	}
	raw := 0

	for _, brand := range referenceBrands {
		if strings.Contains(domain, brand) && domain != brand+".com" {
			a.Indicators = append(a.Indicators, model.Indicator{
				Type:        model.IndicatorTyposquatting,
				Description: fmt.Sprintf("Potential typosquatting of %s", brand),
				Confidence:  typosquatWeight,
			})
			raw += typosquatWeight
			a.Category = model.CategoryPhishing
		}
	}

	if tld := topLevelDomain(domain); suspiciousTLDs[tld] {
		a.Indicators = append(a.Indicators, model.Indicator{
			Type:        model.IndicatorSuspiciousTLD,
			Description: fmt.Sprintf("Suspicious TLD: %s", tld),
			Confidence:  suspiciousTLDWeight,
		})
		raw += suspiciousTLDWeight
	}

	if len(domain) > longNameThreshold {
		a.Indicators = append(a.Indicators, model.Indicator{
			Type:        model.IndicatorSuspiciousContent,
			Description: "Unusually long domain name",
			Confidence:  longNameWeight,
		})
		raw += longNameWeight
	}

	if countDigits(domain) > digitThreshold {
		a.Indicators = append(a.Indicators, model.Indicator{
			Type:        model.IndicatorSuspiciousContent,
			Description: "High number of digits in domain",
			Confidence:  digitWeight,
		})
		raw += digitWeight
	}

	if strings.Count(domain, "-") > hyphenThreshold {
		a.Indicators = append(a.Indicators, model.Indicator{
			Type:        model.IndicatorSuspiciousContent,
			Description: "Multiple hyphens in domain",
			Confidence:  hyphenWeight,
		})
		raw += hyphenWeight
	}

	a.IsSuspicious = raw > SuspiciousThreshold
	a.RiskScore = clamp(raw)
	a.RiskLevel = model.LevelForScore(a.RiskScore)
	return a
}

// topLevelDomain returns the suffix from the final dot, including the dot,
// or "" when there is none.
func topLevelDomain(domain string) string {
	i := strings.LastIndexByte(domain, '.')
	if i < 0 {
		return ""
	}
	return domain[i:]
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}

func clamp(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
