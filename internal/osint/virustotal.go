package osint

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/lvonguyen/cyberguard/internal/model"
)

const (
	virusTotalDefaultMax = 5
	// Detections above this raise a high severity alert.
	virusTotalHighDetections = 5
)

// VirusTotal reads a list of domain detection summaries.
type VirusTotal struct {
	feed
}

type virusTotalEntry struct {
	Domain     string `json:"domain"`
	Detections int    `json:"detections"`
}

// NewVirusTotal creates the VirusTotal adapter.
func NewVirusTotal(cfg SourceConfig) *VirusTotal {
	return &VirusTotal{feed: newFeed(KeyVirusTotal, "VirusTotal", cfg)}
}

// Parse reads up to the per-cycle cap of entries. Every entry with a domain
// becomes a finding; only entries with detections raise an alert.
func (v *VirusTotal) Parse(r io.Reader) ([]Finding, error) {
	dec := json.NewDecoder(r)
	if err := expectDelim(dec, '['); err != nil {
		return nil, fmt.Errorf("virustotal payload: %w", err)
	}

	max := v.maxItems(virusTotalDefaultMax)
	findings := []Finding{}
	for n := 0; n < max && dec.More(); n++ {
		var e virusTotalEntry
		if err := dec.Decode(&e); err != nil {
			return nil, fmt.Errorf("virustotal entry %d: %w", n, err)
		}
		if e.Domain == "" {
			continue
		}
		domain := ExtractHost(e.Domain)
		f := Finding{
			Domain:   domain,
			Category: model.CategorySuspicious,
			Indicator: model.Indicator{
				Type:        model.IndicatorSuspiciousContent,
				Description: "Flagged by VirusTotal analysis",
				Confidence:  30,
			},
		}
		if e.Detections > 0 {
			f.Indicator.Confidence = 80
			severity := model.SeverityMedium
			if e.Detections > virusTotalHighDetections {
				severity = model.SeverityHigh
			}
			f.Alert = &AlertSpec{
				Title:       fmt.Sprintf("Suspicious Domain Detected: %s", domain),
				Description: fmt.Sprintf("Domain %s has been flagged by %d security engines on VirusTotal.", domain, e.Detections),
				Severity:    severity,
				Category:    model.AlertSuspiciousDomain,
				Tags:        []string{"virustotal", "osint", "suspicious"},
			}
		}
		findings = append(findings, f)
	}
	return findings, nil
}
