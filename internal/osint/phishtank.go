package osint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lvonguyen/cyberguard/internal/model"
)

const phishTankDefaultMax = 10

// PhishTank reads the PhishTank verified-online JSON feed.
type PhishTank struct {
	feed
}

type phishTankEntry struct {
	URL      string `json:"url"`
	Verified string `json:"verified"`
}

// NewPhishTank creates the PhishTank adapter.
func NewPhishTank(cfg SourceConfig) *PhishTank {
	return &PhishTank{feed: newFeed(KeyPhishTank, "PhishTank", cfg)}
}

// Parse streams the JSON array and stops after the per-cycle cap of raw
// entries. Only verified entries become findings.
func (p *PhishTank) Parse(r io.Reader) ([]Finding, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("phishtank payload: %w", err)
	}

	max := p.maxItems(phishTankDefaultMax)
	findings := []Finding{}
	for n := 0; n < max && dec.More(); n++ {
		var e phishTankEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("phishtank entry %d: %w", n, err)
		}
		if e.URL == "" || e.Verified != "yes" {
			continue
		}
		domain := ExtractHost(e.URL)
		findings = append(findings, Finding{
			Domain:   domain,
			URL:      e.URL,
			Category: model.CategoryPhishing,
			Indicator: model.Indicator{
				Type:        model.IndicatorSuspiciousContent,
				Description: "Reported as phishing site by PhishTank",
				Confidence:  95,
			},
			Alert: &AlertSpec{
				Title:       fmt.Sprintf("Phishing Site Detected: %s", domain),
				Description: fmt.Sprintf("Domain %s has been reported as a phishing site by PhishTank. URL: %s", domain, e.URL),
				Severity:    model.SeverityHigh,
				Category:    model.AlertPhishing,
				Tags:        []string{"phishing", "phishtank", "osint"},
			},
		})
	}
	return findings, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
