package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/connstring"

	"propvalue/server/internal/models"
)

const propertiesCollection = "properties"

// MongoStore is the MongoDB-backed PropertyStore.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	logger *logrus.Logger
	now    func() time.Time
}

var _ PropertyStore = (*MongoStore)(nil)

type propertyDocument struct {
	ID           primitive.ObjectID `bson:"_id"`
	Location     string             `bson:"location"`
	Size         float64            `bson:"size"`
	Price        float64            `bson:"price"`
	PropertyType string             `bson:"propertyType"`
	Bedrooms     float64            `bson:"bedrooms"`
	Bathrooms    float64            `bson:"bathrooms"`
	YearBuilt    *int               `bson:"yearBuilt,omitempty"`
	Analysis     *models.Analysis   `bson:"analysis,omitempty"`
	CreatedAt    time.Time          `bson:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt"`
}

func (d propertyDocument) toProperty() models.Property {
	p := models.Property{
		ID:           d.ID.Hex(),
		Location:     d.Location,
		Size:         d.Size,
		Price:        d.Price,
		PropertyType: d.PropertyType,
		Bedrooms:     d.Bedrooms,
		Bathrooms:    d.Bathrooms,
		YearBuilt:    d.YearBuilt,
		Analysis:     d.Analysis,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if p.Analysis != nil {
		p.Analysis.AnalyzedAt = p.Analysis.AnalyzedAt.UTC()
	}
	return p
}

func documentFromProperty(id primitive.ObjectID, p *models.Property) propertyDocument {
	return propertyDocument{
		ID:           id,
		Location:     p.Location,
		Size:         p.Size,
		Price:        p.Price,
		PropertyType: p.PropertyType,
		Bedrooms:     p.Bedrooms,
		Bathrooms:    p.Bathrooms,
		YearBuilt:    p.YearBuilt,
		Analysis:     p.Analysis,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

// NewMongoStore connects to uri and verifies the deployment answers a ping.
// The database named in the URI wins over fallbackDB.
func NewMongoStore(ctx context.Context, uri, fallbackDB string, logger *logrus.Logger) (*MongoStore, error) {
	cs, err := connstring.ParseAndValidate(uri)
	if err != nil {
		return nil, fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	dbName := cs.Database
	if dbName == "" {
		dbName = fallbackDB
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.WithField("database", dbName).Info("Connected to MongoDB")
	store := NewMongoStoreFromCollection(client.Database(dbName).Collection(propertiesCollection), logger)
	store.client = client
	return store, nil
}

// NewMongoStoreFromCollection wraps an existing collection. The store does
// not own the client and Close is a no-op.
func NewMongoStoreFromCollection(coll *mongo.Collection, logger *logrus.Logger) *MongoStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &MongoStore{coll: coll, logger: logger, now: defaultClock}
}

// SetClock replaces the time source used for createdAt/updatedAt.
func (s *MongoStore) SetClock(now func() time.Time) {
	s.now = now
}

// EnsureIndexes creates the index backing the newest-first listing.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("createdAt_desc"),
	})
	if err != nil {
		return fmt.Errorf("failed to create createdAt index: %w", err)
	}
	return nil
}

func (s *MongoStore) Create(ctx context.Context, in models.PropertyInput) (*models.Property, error) {
	id := primitive.NewObjectID()
	p, err := models.NewProperty(id.Hex(), in, s.now())
	if err != nil {
		return nil, err
	}

	if _, err := s.coll.InsertOne(ctx, documentFromProperty(id, p)); err != nil {
		return nil, storageErr("create", err)
	}

	s.logger.WithField("property_id", p.ID).Debug("Created property")
	return p, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Property, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrNotFound
	}

	var doc propertyDocument
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get", err)
	}

	p := doc.toProperty()
	return &p, nil
}

func (s *MongoStore) List(ctx context.Context) ([]models.Property, error) {
	return s.find(ctx, "list", bson.M{})
}

func (s *MongoStore) ListAnalyzed(ctx context.Context) ([]models.Property, error) {
	return s.find(ctx, "list analyzed", bson.M{"analysis.marketValue": bson.M{"$exists": true}})
}

func (s *MongoStore) find(ctx context.Context, op string, filter bson.M) ([]models.Property, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageErr(op, err)
	}
	defer cursor.Close(ctx)

	var docs []propertyDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr(op, err)
	}

	properties := make([]models.Property, 0, len(docs))
	for _, doc := range docs {
		properties = append(properties, doc.toProperty())
	}
	return properties, nil
}

func (s *MongoStore) Update(ctx context.Context, id string, patch models.PropertyPatch) (*models.Property, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p, err := current.Apply(patch, s.now())
	if err != nil {
		return nil, err
	}

	set := bson.M{
		"location":     p.Location,
		"size":         p.Size,
		"price":        p.Price,
		"propertyType": p.PropertyType,
		"bedrooms":     p.Bedrooms,
		"bathrooms":    p.Bathrooms,
		"updatedAt":    p.UpdatedAt,
	}
	if p.YearBuilt != nil {
		set["yearBuilt"] = *p.YearBuilt
	}

	if err := s.updateOne(ctx, "update", id, bson.M{"$set": set}); err != nil {
		return nil, err
	}

	s.logger.WithField("property_id", id).Debug("Updated property")
	return p, nil
}

func (s *MongoStore) SaveAnalysis(ctx context.Context, id string, analysis models.Analysis) (*models.Property, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	p := *current
	p.Analysis = &analysis
	p.UpdatedAt = models.Touch(p.UpdatedAt, s.now())

	update := bson.M{"$set": bson.M{"analysis": analysis, "updatedAt": p.UpdatedAt}}
	if err := s.updateOne(ctx, "save analysis", id, update); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *MongoStore) updateOne(ctx context.Context, op, id string, update bson.M) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, update)
	if err != nil {
		return storageErr(op, err)
	}
	if res.MatchedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrNotFound
	}

	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return storageErr("delete", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}

	s.logger.WithField("property_id", id).Debug("Deleted property")
	return nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
