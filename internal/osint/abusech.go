package osint

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/lvonguyen/cyberguard/internal/model"
)

const abuseChDefaultMax = 10

// AbuseCh reads the URLhaus tab-separated text feed. Lines that are blank
// or start with # are skipped; the URL is the second column.
type AbuseCh struct {
	feed
}

// NewAbuseCh creates the Abuse.ch adapter.
func NewAbuseCh(cfg SourceConfig) *AbuseCh {
	return &AbuseCh{feed: newFeed(KeyAbuseCh, "Abuse.ch", cfg)}
}

// Parse accepts the raw text feed or the same text encoded as a JSON string.
func (a *AbuseCh) Parse(r io.Reader) ([]Finding, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("abuse.ch payload: %w", err)
	}

	var text io.Reader = br
	if first == '"' {
		var s string
		if err := json.NewDecoder(br).Decode(&s); err != nil {
			return nil, fmt.Errorf("abuse.ch payload: %w", err)
		}
		text = strings.NewReader(s)
	}

	max := a.maxItems(abuseChDefaultMax)
	findings := []Finding{}
	sc := bufio.NewScanner(text)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for taken := 0; taken < max && sc.Scan(); {
		line := sc.Text()
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}
		taken++

		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			continue
		}
		rawURL := strings.TrimSpace(parts[1])
		domain := ExtractHost(rawURL)
		findings = append(findings, Finding{
			Domain:   domain,
			URL:      rawURL,
			Category: model.CategoryMalware,
			Indicator: model.Indicator{
				Type:        model.IndicatorSuspiciousContent,
				Description: "Reported as malicious URL by Abuse.ch",
				Confidence:  90,
			},
			Alert: &AlertSpec{
				Title:       fmt.Sprintf("Malicious URL Detected: %s", domain),
				Description: fmt.Sprintf("Domain %s has been reported as hosting malicious content by Abuse.ch. URL: %s", domain, rawURL),
				Severity:    model.SeverityHigh,
				Category:    model.AlertMalware,
				Tags:        []string{"malware", "abuse.ch", "osint"},
			},
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("abuse.ch payload: %w", err)
	}
	return findings, nil
}

// peekNonSpace discards leading whitespace and returns the next byte
// without consuming it.
func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.Peek(1)
		if err != nil {
			return 0, err
		}
		if !bytes.ContainsAny(b, " \t\r\n") {
			return b[0], nil
		}
		if _, err := br.Discard(1); err != nil {
			return 0, err
		}
	}
}
