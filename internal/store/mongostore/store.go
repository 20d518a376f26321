// Package mongostore implements the store interfaces on MongoDB.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/lvonguyen/cyberguard/internal/model"
	"github.com/lvonguyen/cyberguard/internal/store"
)

const (
	domainsCollection = "suspiciousdomains"
	alertsCollection  = "alerts"
)

// Options configures the connection.
type Options struct {
	URI         string
	Database    string
	MaxPoolSize uint64
	Timeout     time.Duration
}

// Store holds the MongoDB client and both repositories.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	domains *domainRepo
	alerts  *alertRepo
	logger  *zap.Logger
}

// Connect dials MongoDB, verifies the connection with a ping and ensures
// indexes. A failure here is fatal for the caller.
func Connect(ctx context.Context, opts Options, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	clientOpts := options.Client().ApplyURI(opts.URI)
	if opts.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(opts.MaxPoolSize)
	}
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(opts.Database)
	s := &Store{
		client:  client,
		db:      db,
		domains: &domainRepo{coll: db.Collection(domainsCollection)},
		alerts:  &alertRepo{coll: db.Collection(alertsCollection)},
		logger:  logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Connected to MongoDB", zap.String("database", opts.Database))
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.domains.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "domain", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "riskLevel", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "isActive", Value: 1}, {Key: "riskScore", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create domain indexes: %w", err)
	}
	_, err = s.alerts.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "domain", Value: 1}, {Key: "title", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "severity", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create alert indexes: %w", err)
	}
	return nil
}

func (s *Store) Domains() store.DomainRepository { return s.domains }
func (s *Store) Alerts() store.AlertRepository   { return s.alerts }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// -----------------------------------------------------------------------------
// Domains
// -----------------------------------------------------------------------------

type domainRepo struct {
	coll *mongo.Collection
}

func (r *domainRepo) findOne(ctx context.Context, filter bson.M) (*model.SuspiciousDomain, error) {
	var d model.SuspiciousDomain
	if err := r.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrDomainNotFound
		}
		return nil, fmt.Errorf("failed to find domain: %w", err)
	}
	return &d, nil
}

func (r *domainRepo) FindByName(ctx context.Context, name string) (*model.SuspiciousDomain, error) {
	return r.findOne(ctx, bson.M{"domain": name})
}

func (r *domainRepo) FindByID(ctx context.Context, id string) (*model.SuspiciousDomain, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *domainRepo) Upsert(ctx context.Context, d *model.SuspiciousDomain) (*model.SuspiciousDomain, error) {
	doc := d.Clone()
	existing, err := r.FindByName(ctx, d.Domain)
	switch {
	case err == nil:
		doc.ID = existing.ID
	case !errors.Is(err, model.ErrNotFound):
		return nil, err
	}

	_, err = r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: domain %s", model.ErrConflict, d.Domain)
		}
		return nil, fmt.Errorf("failed to upsert domain: %w", err)
	}
	return doc, nil
}

func (r *domainRepo) List(ctx context.Context, f store.DomainFilter) ([]*model.SuspiciousDomain, int, error) {
	filter := domainQuery(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count domains: %w", err)
	}

	sortBy := f.Sort
	if sortBy.Field == "" {
		sortBy = store.Sort{Field: "riskScore", Desc: true}
	}
	cur, err := r.coll.Find(ctx, filter, findOptions(sortBy, f.Page, f.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list domains: %w", err)
	}
	defer cur.Close(ctx)

	out := []*model.SuspiciousDomain{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode domains: %w", err)
	}
	return out, int(total), nil
}

func domainQuery(f store.DomainFilter) bson.M {
	q := bson.M{}
	if !f.IncludeInactive {
		q["isActive"] = true
	}
	if f.RiskLevel != "" {
		q["riskLevel"] = f.RiskLevel
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		q["domain"] = containsInsensitive(f.Search)
	}
	return q
}

// -----------------------------------------------------------------------------
// Alerts
// -----------------------------------------------------------------------------

type alertRepo struct {
	coll *mongo.Collection
}

func (r *alertRepo) Create(ctx context.Context, a *model.Alert) error {
	if _, err := r.coll.InsertOne(ctx, a); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: alert %s", model.ErrConflict, a.ID)
		}
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

func (r *alertRepo) FindByID(ctx context.Context, id string) (*model.Alert, error) {
	var a model.Alert
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to find alert: %w", err)
	}
	return &a, nil
}

func (r *alertRepo) FindDuplicate(ctx context.Context, domain, title string, since time.Time) (*model.Alert, error) {
	filter := bson.M{
		"domain":    domain,
		"title":     title,
		"createdAt": bson.M{"$gte": since},
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	var a model.Alert
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&a); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to query duplicate alert: %w", err)
	}
	return &a, nil
}

func (r *alertRepo) Update(ctx context.Context, a *model.Alert) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": a.ID}, a)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if res.MatchedCount == 0 {
		return model.ErrAlertNotFound
	}
	return nil
}

func (r *alertRepo) Resolve(ctx context.Context, id, by, resolution string, at time.Time) (*model.Alert, error) {
	filter := bson.M{"_id": id, "status": bson.M{"$ne": model.StatusResolved}}
	update := bson.M{"$set": bson.M{
		"status":     model.StatusResolved,
		"resolvedAt": at,
		"resolvedBy": by,
		"resolution": resolution,
		"updatedAt":  at,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var a model.Alert
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&a)
	if err == nil {
		return &a, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to resolve alert: %w", err)
	}
	// Either missing or already resolved.
	if _, err := r.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return nil, model.ErrAlreadyResolved
}

func (r *alertRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if res.DeletedCount == 0 {
		return model.ErrAlertNotFound
	}
	return nil
}

func (r *alertRepo) List(ctx context.Context, f store.AlertFilter) ([]*model.Alert, int, error) {
	filter := alertQuery(f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	sortBy := f.Sort
	if sortBy.Field == "" {
		sortBy = store.Sort{Field: "createdAt", Desc: true}
	}
	cur, err := r.coll.Find(ctx, filter, findOptions(sortBy, f.Page, f.Limit))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer cur.Close(ctx)

	out := []*model.Alert{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("failed to decode alerts: %w", err)
	}
	return out, int(total), nil
}

func alertQuery(f store.AlertFilter) bson.M {
	q := bson.M{}
	if f.Severity != "" {
		q["severity"] = f.Severity
	}
	if f.Status != "" {
		q["status"] = f.Status
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.Search != "" {
		re := containsInsensitive(f.Search)
		q["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"domain": re},
		}
	}
	return q
}

// -----------------------------------------------------------------------------
// helpers
// -----------------------------------------------------------------------------

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

func findOptions(s store.Sort, page, limit int) *options.FindOptions {
	dir := 1
	if s.Desc {
		dir = -1
	}
	opts := options.Find().SetSort(bson.D{{Key: s.Field, Value: dir}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetSkip(int64(store.Offset(page, limit))).SetLimit(int64(limit))
	}
	return opts
}
