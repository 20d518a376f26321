package scoring

import (
	"testing"
	"time"

	"github.com/lvonguyen/cyberguard/internal/model"
)

// =============================================================================
// Normalizer Tests
// =============================================================================

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.Example.COM/", "example.com"},
		{"https://www.Example.COM", "example.com"},
		{"www.example.com/login?x=1", "example.com"},
		{"http://www.example.com", "example.com"},
		{"www.EXAMPLE.com", "example.com"},
		{"  Example.com  ", "example.com"},
		{"example.com", "example.com"},
		{"HTTPS://evil-site.tk", "evil-site.tk"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// TestNormalize_Idempotent verifies normalizing twice changes nothing.
func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"https://www.Example.COM", "google-secure.com", " WWW.a.tk ", "paypal-login.click"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

// =============================================================================
// Heuristic Scorer Tests
// =============================================================================

func TestAssess_Typosquatting(t *testing.T) {
	a := Assess(Normalize("GOOGLE-secure.com"))

	if a.Category != model.CategoryPhishing {
		t.Errorf("expected category phishing, got %s", a.Category)
	}
	if a.RiskScore < 80 {
		t.Errorf("expected score >= 80, got %d", a.RiskScore)
	}
	if !hasIndicator(a.Indicators, model.IndicatorTyposquatting) {
		t.Error("expected typosquatting indicator")
	}
	if !a.IsSuspicious {
		t.Error("expected domain to be suspicious")
	}
	if a.Indicators[0].Description != "Potential typosquatting of google" {
		t.Errorf("unexpected description %q", a.Indicators[0].Description)
	}
}

func TestAssess_ExactBrandIsNotTyposquat(t *testing.T) {
	for _, d := range []string{"google.com", "apple.com", "microsoft.com"} {
		a := Assess(d)
		if hasIndicator(a.Indicators, model.IndicatorTyposquatting) {
			t.Errorf("%s should not be flagged as typosquatting", d)
		}
		if a.Category != model.CategorySuspicious {
			t.Errorf("%s: expected default category, got %s", d, a.Category)
		}
	}
}

func TestAssess_SuspiciousTLD(t *testing.T) {
	a := Assess("a.tk")

	if a.RiskScore != 60 {
		t.Errorf("expected score 60, got %d", a.RiskScore)
	}
	if a.RiskLevel != model.RiskHigh {
		t.Errorf("expected high, got %s", a.RiskLevel)
	}
	if !hasIndicator(a.Indicators, model.IndicatorSuspiciousTLD) {
		t.Fatal("expected suspicious_tld indicator")
	}
	if a.Indicators[0].Description != "Suspicious TLD: .tk" {
		t.Errorf("unexpected description %q", a.Indicators[0].Description)
	}
	if a.Category != model.CategorySuspicious {
		t.Errorf("TLD check must not change category, got %s", a.Category)
	}
}

func TestAssess_Clean(t *testing.T) {
	a := Assess("example.com")

	if a.RiskScore != 0 || a.RiskLevel != model.RiskLow || a.IsSuspicious {
		t.Errorf("expected clean result, got %+v", a)
	}
	if a.Indicators == nil {
		t.Error("indicators should be an empty slice, not nil")
	}
}

func TestAssess_DigitBoundary(t *testing.T) {
	// Four digits fire the check but 30 is not above the suspicious threshold.
	a := Assess("a1234.com")
	if a.RiskScore != 30 {
		t.Errorf("expected score 30, got %d", a.RiskScore)
	}
	if a.IsSuspicious {
		t.Error("raw score of exactly 30 should not be suspicious")
	}

	b := Assess("abc123.com")
	if len(b.Indicators) != 0 {
		t.Errorf("three digits should not fire, got %v", b.Indicators)
	}
}

func TestAssess_LongAndHyphenated(t *testing.T) {
	a := Assess("this-is-a-very-long-domain-name-example.com")

	if a.RiskScore != 65 {
		t.Errorf("expected 40+25=65, got %d", a.RiskScore)
	}
	if a.RiskLevel != model.RiskHigh {
		t.Errorf("expected high, got %s", a.RiskLevel)
	}
	if len(a.Indicators) != 2 {
		t.Errorf("expected 2 indicators, got %d", len(a.Indicators))
	}
}

func TestAssess_ClampedScore(t *testing.T) {
	a := Assess("amazon-google-login-1234.tk")

	if a.RiskScore != 100 {
		t.Errorf("expected clamp to 100, got %d", a.RiskScore)
	}
	if a.RiskLevel != model.RiskCritical {
		t.Errorf("expected critical, got %s", a.RiskLevel)
	}
	if countType(a.Indicators, model.IndicatorTyposquatting) != 2 {
		t.Errorf("expected two typosquatting indicators")
	}
}

// TestAssess_ScoreRange checks the clamp and bucket for a spread of inputs.
func TestAssess_ScoreRange(t *testing.T) {
	inputs := []string{
		"example.com", "a.tk", "google-secure.com", "x-y-z-w.click",
		"microsoft-apple-amazon-facebook-google.download", "12345678.ml", "b.ga",
	}
	for _, d := range inputs {
		a := Assess(d)
		if a.RiskScore < 0 || a.RiskScore > 100 {
			t.Errorf("%s: score %d out of range", d, a.RiskScore)
		}
		if a.RiskLevel != model.LevelForScore(a.RiskScore) {
			t.Errorf("%s: level %s does not match score %d", d, a.RiskLevel, a.RiskScore)
		}
	}
}

// =============================================================================
// Risk Aggregator Tests
// =============================================================================

func TestRecomputeRisk_MalwareFloorNoSSL(t *testing.T) {
	d := model.SuspiciousDomain{Domain: "evil.tk", Category: model.CategoryMalware}

	got := RecomputeRisk(d, time.Now())

	if got.RiskScore != 100 {
		t.Errorf("expected 100, got %d", got.RiskScore)
	}
	if got.RiskLevel != model.RiskCritical {
		t.Errorf("expected critical, got %s", got.RiskLevel)
	}
}

func TestRecomputeRisk(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	withSSL := &model.SSLInfo{HasSSL: true}
	daysAgo := func(n int) *time.Time {
		ts := now.AddDate(0, 0, -n)
		return &ts
	}

	tests := []struct {
		name      string
		domain    model.SuspiciousDomain
		wantScore int
		wantLevel model.RiskLevel
	}{
		{
			name:      "unknown floor with ssl",
			domain:    model.SuspiciousDomain{Category: model.CategoryUnknown, SSLInfo: withSSL},
			wantScore: 30,
			wantLevel: model.RiskLow,
		},
		{
			name: "indicators below floor",
			domain: model.SuspiciousDomain{
				Category:   model.CategorySuspicious,
				SSLInfo:    withSSL,
				Indicators: []model.Indicator{{Type: model.IndicatorOther, Confidence: 20}},
			},
			wantScore: 40,
			wantLevel: model.RiskMedium,
		},
		{
			name: "missing confidence defaults to 50",
			domain: model.SuspiciousDomain{
				Category:   model.CategoryUnknown,
				SSLInfo:    withSSL,
				Indicators: []model.Indicator{{Type: model.IndicatorOther}},
			},
			wantScore: 50,
			wantLevel: model.RiskMedium,
		},
		{
			name:      "expired certificate",
			domain:    model.SuspiciousDomain{Category: model.CategoryUnknown, SSLInfo: &model.SSLInfo{HasSSL: true, IsExpired: true}},
			wantScore: 45,
			wantLevel: model.RiskMedium,
		},
		{
			name: "registered last week",
			domain: model.SuspiciousDomain{
				Category: model.CategoryUnknown,
				SSLInfo:  withSSL,
				Whois:    &model.Whois{RegistrationDate: daysAgo(7)},
			},
			wantScore: 55,
			wantLevel: model.RiskMedium,
		},
		{
			name: "registered two months ago",
			domain: model.SuspiciousDomain{
				Category: model.CategoryUnknown,
				SSLInfo:  withSSL,
				Whois:    &model.Whois{RegistrationDate: daysAgo(60)},
			},
			wantScore: 45,
			wantLevel: model.RiskMedium,
		},
		{
			name: "old registration",
			domain: model.SuspiciousDomain{
				Category: model.CategoryUnknown,
				SSLInfo:  withSSL,
				Whois:    &model.Whois{RegistrationDate: daysAgo(400)},
			},
			wantScore: 30,
			wantLevel: model.RiskLow,
		},
		{
			name:      "spam without ssl block",
			domain:    model.SuspiciousDomain{Category: model.CategorySpam},
			wantScore: 80,
			wantLevel: model.RiskCritical,
		},
		{
			name: "indicator sum above floor",
			domain: model.SuspiciousDomain{
				Category: model.CategorySuspicious,
				SSLInfo:  withSSL,
				Indicators: []model.Indicator{
					{Type: model.IndicatorSuspiciousTLD, Confidence: 60},
					{Type: model.IndicatorSuspiciousContent, Confidence: 25},
				},
			},
			wantScore: 85,
			wantLevel: model.RiskCritical,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecomputeRisk(tt.domain, now)
			if got.RiskScore != tt.wantScore {
				t.Errorf("score = %d, want %d", got.RiskScore, tt.wantScore)
			}
			if got.RiskLevel != tt.wantLevel {
				t.Errorf("level = %s, want %s", got.RiskLevel, tt.wantLevel)
			}
		})
	}
}

// TestRecomputeRisk_DoesNotMutateInput verifies the function is pure.
func TestRecomputeRisk_DoesNotMutateInput(t *testing.T) {
	d := model.SuspiciousDomain{Category: model.CategoryPhishing, RiskScore: 1, RiskLevel: model.RiskLow}
	_ = RecomputeRisk(d, time.Now())
	if d.RiskScore != 1 || d.RiskLevel != model.RiskLow {
		t.Errorf("input was mutated: %+v", d)
	}
}

func hasIndicator(inds []model.Indicator, typ model.IndicatorType) bool {
	return countType(inds, typ) > 0
}

func countType(inds []model.Indicator, typ model.IndicatorType) int {
	n := 0
	for _, i := range inds {
		if i.Type == typ {
			n++
		}
	}
	return n
}
