package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/store"
)

var t0 = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

type fixture struct {
	store   *store.Memory
	clock   *clockwork.FakeClock
	alerts  *Alerts
	domains *Domains
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := store.NewMemory()
	clock := clockwork.NewFakeClockAt(t0)
	alerts := NewAlerts(mem.Alerts(), clock, nil)
	domains, err := NewDomains(mem.Domains(), alerts, clock, nil, 16)
	if err != nil {
		t.Fatalf("NewDomains failed: %v", err)
	}
	return &fixture{store: mem, clock: clock, alerts: alerts, domains: domains}
}

var (
	analyst = Actor{ID: "user-1", Role: "analyst"}
	other   = Actor{ID: "user-2", Role: "analyst"}
	admin   = Actor{ID: "admin-1", Role: RoleAdmin}
)

// =============================================================================
// Domain Service Tests
// =============================================================================

func TestDomains_Add(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, err := f.domains.Add(ctx, AddDomainInput{Domain: "https://www.Evil-Test123.tk", Notes: "seen in mail"}, analyst)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	if d.Domain != "evil-test123.tk" {
		t.Errorf("expected normalized name, got %q", d.Domain)
	}
	if d.Category != model.CategorySuspicious || d.Source != model.SourceManual {
		t.Errorf("unexpected defaults: category=%s source=%s", d.Category, d.Source)
	}
	// suspicious floor 40 + no SSL 20
	if d.RiskScore != 60 || d.RiskLevel != model.RiskHigh {
		t.Errorf("expected 60/high, got %d/%s", d.RiskScore, d.RiskLevel)
	}
	if len(d.Notes) != 1 || d.Notes[0].AddedBy != "user-1" {
		t.Errorf("expected note by actor, got %+v", d.Notes)
	}

	page, err := f.alerts.List(ctx, AlertListParams{})
	if err != nil {
		t.Fatalf("List alerts failed: %v", err)
	}
	if len(page.Alerts) != 1 {
		t.Fatalf("expected one side-effect alert, got %d", len(page.Alerts))
	}
	a := page.Alerts[0]
	if a.Title != "New Suspicious Domain Detected: evil-test123.tk" {
		t.Errorf("unexpected title %q", a.Title)
	}
	if a.Severity != model.SeverityHigh || a.Category != model.AlertSuspiciousDomain {
		t.Errorf("unexpected severity/category: %s/%s", a.Severity, a.Category)
	}
	if !a.IsOwnedBy("user-1") {
		t.Error("alert should be owned by the actor")
	}
	if !strings.HasSuffix(a.Description, "Risk Level: high") {
		t.Errorf("unexpected description %q", a.Description)
	}
}

func TestDomains_AddDuplicate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.domains.Add(ctx, AddDomainInput{Domain: "evil.tk"}, analyst); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	_, err := f.domains.Add(ctx, AddDomainInput{Domain: "WWW.EVIL.TK"}, analyst)
	if !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestDomains_AddValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		in   AddDomainInput
	}{
		{"missing domain", AddDomainInput{}},
		{"bad pattern", AddDomainInput{Domain: "not a domain"}},
		{"subdomain", AddDomainInput{Domain: "login.evil.tk"}},
		{"bad category", AddDomainInput{Domain: "evil.tk", Category: "ransomware"}},
		{"bad indicator", AddDomainInput{Domain: "evil.tk", Indicators: []model.Indicator{{Type: "weird", Description: "x"}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.domains.Add(ctx, tt.in, analyst)
			if !errors.Is(err, model.ErrValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestDomains_Check(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.domains.Check(ctx, "GOOGLE-secure.com")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Source != CheckSourceHeuristic || res.Category != model.CategoryPhishing || res.RiskScore < 80 {
		t.Errorf("unexpected heuristic result: %+v", res)
	}

	f.domains.Add(ctx, AddDomainInput{Domain: "google-secure.com", Category: model.CategoryMalware}, analyst)

	res, err = f.domains.Check(ctx, "https://google-secure.com")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Source != CheckSourceDatabase || !res.IsSuspicious || res.Category != model.CategoryMalware {
		t.Errorf("expected stored verdict, got %+v", res)
	}
	if res.FirstSeen == nil || !res.FirstSeen.Equal(t0) {
		t.Errorf("expected firstSeen from record, got %v", res.FirstSeen)
	}

	if _, err := f.domains.Check(ctx, "   "); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for blank input, got %v", err)
	}
}

func TestDomains_UpdateRecomputesRisk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, _ := f.domains.Add(ctx, AddDomainInput{Domain: "evil.tk"}, analyst)

	f.clock.Advance(time.Hour)
	hasSSL := &model.SSLInfo{HasSSL: true}
	updated, err := f.domains.Update(ctx, d.ID, UpdateDomainInput{SSLInfo: hasSSL})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated.RiskScore != 40 || updated.RiskLevel != model.RiskMedium {
		t.Errorf("expected 40/medium after SSL, got %d/%s", updated.RiskScore, updated.RiskLevel)
	}
	if !updated.UpdatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("updatedAt not touched: %v", updated.UpdatedAt)
	}

	phishing := model.CategoryPhishing
	updated, _ = f.domains.Update(ctx, d.ID, UpdateDomainInput{Category: &phishing})
	if updated.RiskScore != 90 || updated.RiskLevel != model.RiskCritical {
		t.Errorf("expected 90/critical for phishing, got %d/%s", updated.RiskScore, updated.RiskLevel)
	}

	if _, err := f.domains.Update(ctx, "missing", UpdateDomainInput{}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDomains_AddIndicator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, _ := f.domains.Add(ctx, AddDomainInput{Domain: "evil.tk"}, analyst)
	f.clock.Advance(time.Minute)

	got, err := f.domains.AddIndicator(ctx, d.ID, model.Indicator{Type: model.IndicatorBlacklistedIP, Description: "listed"})
	if err != nil {
		t.Fatalf("AddIndicator failed: %v", err)
	}
	if got.Indicators[0].Confidence != model.DefaultIndicatorConfidence {
		t.Errorf("expected default confidence, got %d", got.Indicators[0].Confidence)
	}
	// max(50, 40) + 20 no SSL
	if got.RiskScore != 70 {
		t.Errorf("expected 70, got %d", got.RiskScore)
	}
	if !got.LastSeen.Equal(t0.Add(time.Minute)) {
		t.Errorf("lastSeen not touched: %v", got.LastSeen)
	}
}

func TestDomains_DeleteIsSoft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	d, _ := f.domains.Add(ctx, AddDomainInput{Domain: "evil.tk"}, analyst)
	if err := f.domains.Delete(ctx, d.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	page, _ := f.domains.List(ctx, DomainListParams{})
	if page.Pagination.TotalItems != 0 {
		t.Errorf("deleted domain should not be listed")
	}
	got, err := f.domains.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("record should still exist: %v", err)
	}
	if got.IsActive {
		t.Error("expected isActive=false")
	}

	res, _ := f.domains.Check(ctx, "evil.tk")
	if res.Source != CheckSourceHeuristic {
		t.Errorf("deleted domain should fall back to heuristics, got %s", res.Source)
	}
}

func TestDomains_RecordObservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ind := []model.Indicator{{Type: model.IndicatorSuspiciousContent, Description: "Reported as malicious URL by Abuse.ch", Confidence: 90}}

	added, err := f.domains.RecordObservation(ctx, "evil.tk", model.CategoryMalware, ind)
	if err != nil || !added {
		t.Fatalf("expected new record, added=%v err=%v", added, err)
	}

	f.clock.Advance(time.Hour)
	added, err = f.domains.RecordObservation(ctx, "evil.tk", model.CategoryPhishing, ind)
	if err != nil || added {
		t.Fatalf("expected existing record, added=%v err=%v", added, err)
	}

	d, _ := f.store.Domains().FindByName(ctx, "evil.tk")
	if d.Source != model.SourceOSINT || d.Category != model.CategoryMalware {
		t.Errorf("existing record category must not change: %s/%s", d.Source, d.Category)
	}
	if len(d.Indicators) != 2 {
		t.Errorf("expected 2 indicators, got %d", len(d.Indicators))
	}
	if !d.LastSeen.Equal(t0.Add(time.Hour)) || !d.FirstSeen.Equal(t0) {
		t.Errorf("unexpected timestamps first=%v last=%v", d.FirstSeen, d.LastSeen)
	}
	if d.RiskScore != 100 || d.RiskLevel != model.RiskCritical {
		t.Errorf("expected 100/critical, got %d/%s", d.RiskScore, d.RiskLevel)
	}
}

// TestDomains_ConcurrentObservations verifies no appends are lost under the
// per-domain lock.
func TestDomains_ConcurrentObservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ind := []model.Indicator{{Type: model.IndicatorOther, Description: "x", Confidence: 10}}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.domains.RecordObservation(ctx, "race.tk", model.CategorySuspicious, ind)
		}()
	}
	wg.Wait()

	d, err := f.store.Domains().FindByName(ctx, "race.tk")
	if err != nil {
		t.Fatalf("FindByName failed: %v", err)
	}
	if len(d.Indicators) != 20 {
		t.Errorf("expected 20 indicators, got %d", len(d.Indicators))
	}
}

// failingUpserts fails every Upsert once armed.
type failingUpserts struct {
	store.DomainRepository
	armed bool
}

func (r *failingUpserts) Upsert(ctx context.Context, d *model.SuspiciousDomain) (*model.SuspiciousDomain, error) {
	if r.armed {
		return nil, errors.New("write failed")
	}
	return r.DomainRepository.Upsert(ctx, d)
}

func TestDomains_ObservationWriteFailure(t *testing.T) {
	mem := store.NewMemory()
	repo := &failingUpserts{DomainRepository: mem.Domains()}
	clock := clockwork.NewFakeClockAt(t0)
	domains, err := NewDomains(repo, NewAlerts(mem.Alerts(), clock, nil), clock, nil, 16)
	if err != nil {
		t.Fatalf("NewDomains failed: %v", err)
	}
	ctx := context.Background()
	ind := []model.Indicator{{Type: model.IndicatorSuspiciousContent, Description: "Reported as malicious URL by Abuse.ch", Confidence: 90}}

	if _, err := domains.RecordObservation(ctx, "evil.tk", model.CategorySuspicious, ind); err != nil {
		t.Fatalf("RecordObservation failed: %v", err)
	}
	before, _ := mem.Domains().FindByName(ctx, "evil.tk")

	repo.armed = true
	clock.Advance(time.Hour)
	if _, err := domains.RecordObservation(ctx, "evil.tk", model.CategorySuspicious, ind); err == nil {
		t.Fatal("expected write failure")
	}

	after, _ := mem.Domains().FindByName(ctx, "evil.tk")
	if len(after.Indicators) != 1 {
		t.Errorf("failed write left %d indicators stored", len(after.Indicators))
	}
	if after.RiskScore != before.RiskScore || !after.LastSeen.Equal(before.LastSeen) {
		t.Errorf("failed write changed record: score %d -> %d", before.RiskScore, after.RiskScore)
	}
}

func TestDomains_ListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.domains.Add(ctx, AddDomainInput{Domain: "phish-bank.tk", Category: model.CategoryPhishing}, analyst)
	f.clock.Advance(time.Minute)
	f.domains.Add(ctx, AddDomainInput{Domain: "spam-mail.ml", Category: model.CategorySpam}, analyst)
	f.clock.Advance(time.Minute)
	f.domains.Add(ctx, AddDomainInput{Domain: "odd-bank.ga"}, analyst)

	page, err := f.domains.List(ctx, DomainListParams{Search: "bank", Limit: 1})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if page.Pagination.TotalItems != 2 || page.Pagination.TotalPages != 2 || len(page.Domains) != 1 {
		t.Errorf("unexpected pagination %+v", page.Pagination)
	}
	if page.Domains[0].Domain != "phish-bank.tk" {
		t.Errorf("expected riskiest first, got %s", page.Domains[0].Domain)
	}

	if _, err := f.domains.List(ctx, DomainListParams{SortBy: "owner"}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for unknown sort field, got %v", err)
	}

	stats, err := f.domains.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	// phishing 100, spam 80, suspicious 60
	if stats.Overview.Total != 3 || stats.Overview.Critical != 2 || stats.Overview.High != 1 {
		t.Errorf("unexpected overview %+v", stats.Overview)
	}
	if stats.Overview.AvgRiskScore != 80 {
		t.Errorf("expected average 80, got %v", stats.Overview.AvgRiskScore)
	}
	if len(stats.RecentDomains) != 3 || stats.RecentDomains[0].Domain != "odd-bank.ga" {
		t.Errorf("expected newest first, got %+v", stats.RecentDomains)
	}
	if len(stats.CategoryBreakdown) != 3 {
		t.Errorf("expected three categories, got %+v", stats.CategoryBreakdown)
	}
}

// =============================================================================
// Alert Service Tests
// =============================================================================

func validAlert() CreateAlertInput {
	return CreateAlertInput{
		Title:       "Credential phishing kit",
		Description: "Kit observed on evil.tk",
		Severity:    model.SeverityHigh,
		Category:    model.AlertPhishing,
		Domain:      "evil.tk",
		IPAddress:   "203.0.113.7",
	}
}

func TestAlerts_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.alerts.Create(ctx, validAlert(), analyst)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.Status != model.StatusNew || a.Source != model.AlertSourceManual || !a.CreatedAt.Equal(t0) {
		t.Errorf("unexpected defaults: %+v", a)
	}

	tooLong := validAlert()
	tooLong.Title = strings.Repeat("x", model.MaxTitleLength+1)
	badIP := validAlert()
	badIP.IPAddress = "999.1.1.1"
	badSeverity := validAlert()
	badSeverity.Severity = "urgent"
	missing := validAlert()
	missing.Description = ""

	for name, in := range map[string]CreateAlertInput{
		"title too long": tooLong,
		"bad ip":         badIP,
		"bad severity":   badSeverity,
		"no description": missing,
	} {
		if _, err := f.alerts.Create(ctx, in, analyst); !errors.Is(err, model.ErrValidation) {
			t.Errorf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestAlerts_UpdateAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.alerts.Create(ctx, validAlert(), analyst)

	status := model.StatusInvestigating
	if _, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{Status: &status}, other); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden for non-owner, got %v", err)
	}

	got, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{Status: &status}, analyst)
	if err != nil {
		t.Fatalf("owner update failed: %v", err)
	}
	if got.Status != model.StatusInvestigating {
		t.Errorf("expected investigating, got %s", got.Status)
	}

	assignee := "user-9"
	if _, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{AssignedTo: &assignee}, admin); err != nil {
		t.Errorf("admin update failed: %v", err)
	}

	resolved := model.StatusResolved
	if _, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{Status: &resolved}, analyst); !errors.Is(err, model.ErrValidation) {
		t.Errorf("setting resolved through update should be rejected, got %v", err)
	}
}

func TestAlerts_SystemAlertOnlyAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.alerts.CreateIfAbsent(ctx, &model.Alert{Title: "Phishing Site Detected: evil.tk", Domain: "evil.tk", Source: model.AlertSourceOSINT}, 24*time.Hour)
	if err != nil || !created {
		t.Fatalf("CreateIfAbsent failed: created=%v err=%v", created, err)
	}
	page, _ := f.alerts.List(ctx, AlertListParams{})
	id := page.Alerts[0].ID

	if page.Alerts[0].CreatedBy != nil {
		t.Error("system alert must have no creator")
	}
	if err := f.alerts.Delete(ctx, id, analyst); !errors.Is(err, model.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err := f.alerts.Delete(ctx, id, admin); err != nil {
		t.Errorf("admin delete failed: %v", err)
	}
	if _, err := f.alerts.Get(ctx, id); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected hard delete, got %v", err)
	}
}

func TestAlerts_ResolveTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.alerts.Create(ctx, validAlert(), analyst)

	f.clock.Advance(time.Hour)
	first, err := f.alerts.Resolve(ctx, a.ID, ResolveAlertInput{Resolution: "blocked"}, analyst)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.Status != model.StatusResolved || first.ResolvedBy != "user-1" || first.Resolution != "blocked" {
		t.Errorf("resolution fields not set: %+v", first)
	}

	f.clock.Advance(time.Hour)
	_, err = f.alerts.Resolve(ctx, a.ID, ResolveAlertInput{Resolution: "again"}, admin)
	if !errors.Is(err, model.ErrAlreadyResolved) || !errors.Is(err, model.ErrConflict) {
		t.Fatalf("expected already resolved conflict, got %v", err)
	}

	got, _ := f.alerts.Get(ctx, a.ID)
	if !got.ResolvedAt.Equal(t0.Add(time.Hour)) || got.Resolution != "blocked" {
		t.Errorf("second resolve mutated alert: %+v", got)
	}

	long := ResolveAlertInput{Resolution: strings.Repeat("r", model.MaxResolutionLength+1)}
	if _, err := f.alerts.Resolve(ctx, a.ID, long, analyst); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAlerts_ResolvedStatusIsFinal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.alerts.Create(ctx, validAlert(), analyst)

	if _, err := f.alerts.Resolve(ctx, a.ID, ResolveAlertInput{Resolution: "first"}, analyst); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	reopen := model.StatusNew
	if _, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{Status: &reopen}, analyst); !errors.Is(err, model.ErrAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}

	title := "Renamed"
	got, err := f.alerts.Update(ctx, a.ID, UpdateAlertInput{Title: &title}, analyst)
	if err != nil {
		t.Fatalf("Update of other fields failed: %v", err)
	}
	if got.Status != model.StatusResolved || got.Resolution != "first" {
		t.Errorf("update touched resolution: %+v", got)
	}

	f.clock.Advance(time.Hour)
	if _, err := f.alerts.Resolve(ctx, a.ID, ResolveAlertInput{Resolution: "second"}, admin); !errors.Is(err, model.ErrAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	got, _ = f.alerts.Get(ctx, a.ID)
	if got.Resolution != "first" || !got.ResolvedAt.Equal(t0) {
		t.Errorf("resolution overwritten: %q at %v", got.Resolution, got.ResolvedAt)
	}
}

func TestAlerts_UpdateRacingResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		a, _ := f.alerts.Create(ctx, validAlert(), analyst)
		title := "Renamed"

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.alerts.Update(ctx, a.ID, UpdateAlertInput{Title: &title}, analyst)
		}()
		go func() {
			defer wg.Done()
			f.alerts.Resolve(ctx, a.ID, ResolveAlertInput{Resolution: "blocked"}, analyst)
		}()
		wg.Wait()

		got, _ := f.alerts.Get(ctx, a.ID)
		if got.Status != model.StatusResolved || got.Resolution != "blocked" || got.Title != "Renamed" {
			t.Fatalf("lost write: status=%s resolution=%q title=%q", got.Status, got.Resolution, got.Title)
		}
	}
}

func TestAlerts_CreateIfAbsentWindow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mk := func() *model.Alert {
		return &model.Alert{Title: "Malicious URL Detected: evil.tk", Domain: "evil.tk", Severity: model.SeverityHigh}
	}

	if ok, _ := f.alerts.CreateIfAbsent(ctx, mk(), 24*time.Hour); !ok {
		t.Fatal("first alert should be created")
	}
	f.clock.Advance(23 * time.Hour)
	if ok, _ := f.alerts.CreateIfAbsent(ctx, mk(), 24*time.Hour); ok {
		t.Error("duplicate within window should be skipped")
	}
	f.clock.Advance(2 * time.Hour)
	if ok, _ := f.alerts.CreateIfAbsent(ctx, mk(), 24*time.Hour); !ok {
		t.Error("alert outside window should be created")
	}
}

func TestAlerts_ListAndStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.alerts.Create(ctx, validAlert(), analyst)
		f.clock.Advance(time.Minute)
	}
	low := validAlert()
	low.Severity = model.SeverityLow
	low.Category = model.AlertMalware
	lowAlert, _ := f.alerts.Create(ctx, low, analyst)
	f.alerts.Resolve(ctx, lowAlert.ID, ResolveAlertInput{}, analyst)

	if _, err := f.alerts.List(ctx, AlertListParams{Limit: 101}); !errors.Is(err, model.ErrValidation) {
		t.Errorf("expected validation error for oversized page, got %v", err)
	}

	page, _ := f.alerts.List(ctx, AlertListParams{Severity: model.SeverityHigh, Limit: 2})
	if page.Pagination.TotalItems != 3 || len(page.Alerts) != 2 {
		t.Errorf("unexpected page %+v", page.Pagination)
	}

	stats, err := f.alerts.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	o := stats.Overview
	if o.Total != 4 || o.New != 3 || o.Resolved != 1 || o.High != 3 || o.Low != 1 {
		t.Errorf("unexpected overview %+v", o)
	}
	if len(stats.SeverityBreakdown) != 2 || stats.SeverityBreakdown[0].Key != "high" {
		t.Errorf("unexpected severity breakdown %+v", stats.SeverityBreakdown)
	}
}
