package itinerary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

var _ Repository = (*MongoRepository)(nil)

// MongoRepository keeps each itinerary as one document, ids stored as strings.
type MongoRepository struct {
	logger *slog.Logger
	coll   *mongo.Collection
}

func NewMongoRepository(coll *mongo.Collection, logger *slog.Logger) *MongoRepository {
	return &MongoRepository{logger: logger, coll: coll}
}

// ConnectMongo opens a client and returns the itineraries collection.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Client, *mongo.Collection, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, client.Database(database).Collection("itineraries"), nil
}

type mongoDocument struct {
	ID        string            `bson:"_id"`
	UserID    *string           `bson:"userId"`
	Currency  string            `bson:"currency"`
	IsPublic  bool              `bson:"isPublic"`
	Status    string            `bson:"status"`
	ExpiresAt *time.Time        `bson:"expiresAt,omitempty"`
	Prefs     types.Preferences `bson:"prefs"`
	Days      []types.Day       `bson:"days"`
	CreatedAt time.Time         `bson:"createdAt"`
	UpdatedAt time.Time         `bson:"updatedAt"`
}

func toDocument(it *types.Itinerary) mongoDocument {
	doc := mongoDocument{
		ID:        it.ID.String(),
		Currency:  it.Currency,
		IsPublic:  it.IsPublic,
		Status:    string(it.Status),
		ExpiresAt: it.ExpiresAt,
		Prefs:     it.Prefs,
		Days:      it.Days,
		CreatedAt: it.CreatedAt,
		UpdatedAt: it.UpdatedAt,
	}
	if doc.Days == nil {
		doc.Days = []types.Day{}
	}
	if it.UserID != nil {
		s := it.UserID.String()
		doc.UserID = &s
	}
	return doc
}

func (d mongoDocument) itinerary() (*types.Itinerary, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid itinerary id %q: %w", d.ID, err)
	}
	it := &types.Itinerary{
		ID:        id,
		Currency:  d.Currency,
		IsPublic:  d.IsPublic,
		Status:    types.ItineraryStatus(d.Status),
		ExpiresAt: d.ExpiresAt,
		Prefs:     d.Prefs,
		Days:      d.Days,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.UserID != nil {
		owner, err := uuid.Parse(*d.UserID)
		if err != nil {
			return nil, fmt.Errorf("invalid owner id %q: %w", *d.UserID, err)
		}
		it.UserID = &owner
	}
	return it, nil
}

// ownerFilter matches the document only while it belongs to owner; a nil
// owner matches unclaimed documents.
func ownerFilter(id uuid.UUID, owner *uuid.UUID) bson.M {
	if owner == nil {
		return bson.M{"_id": id.String(), "userId": nil}
	}
	return bson.M{"_id": id.String(), "userId": owner.String()}
}

// EnsureIndexes creates the owner and expiry indexes used by listing and sweeping.
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expiresAt", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create itinerary indexes: %w", err)
	}
	return nil
}

func (r *MongoRepository) Create(ctx context.Context, it *types.Itinerary) error {
	if _, err := r.coll.InsertOne(ctx, toDocument(it)); err != nil {
		r.logger.ErrorContext(ctx, "Failed to create itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to create itinerary: %w", err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, id uuid.UUID) (*types.Itinerary, error) {
	var doc mongoDocument
	err := r.coll.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Failed to get itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to get itinerary: %w", err)
	}
	return doc.itinerary()
}

func (r *MongoRepository) Update(ctx context.Context, it *types.Itinerary) error {
	doc := toDocument(it)
	set := bson.M{
		"currency":  doc.Currency,
		"isPublic":  doc.IsPublic,
		"status":    doc.Status,
		"prefs":     doc.Prefs,
		"days":      doc.Days,
		"updatedAt": doc.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if doc.ExpiresAt != nil {
		set["expiresAt"] = *doc.ExpiresAt
	} else {
		update["$unset"] = bson.M{"expiresAt": ""}
	}

	res, err := r.coll.UpdateOne(ctx, ownerFilter(it.ID, it.UserID), update)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to update itinerary: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoRepository) Delete(ctx context.Context, id, owner uuid.UUID) error {
	res, err := r.coll.DeleteOne(ctx, ownerFilter(id, &owner))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete itinerary", slog.Any("error", err))
		return fmt.Errorf("failed to delete itinerary: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Claim relies on the userId: null filter of a single-document update.
func (r *MongoRepository) Claim(ctx context.Context, id, owner uuid.UUID, now time.Time) (*types.Itinerary, error) {
	l := r.logger.With(slog.String("method", "Claim"), slog.String("itinerary_id", id.String()))

	update := bson.M{
		"$set": bson.M{
			"userId":    owner.String(),
			"status":    string(types.StatusSaved),
			"updatedAt": now,
		},
		"$unset": bson.M{"expiresAt": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc mongoDocument
	err := r.coll.FindOneAndUpdate(ctx, ownerFilter(id, nil), update, opts).Decode(&doc)
	if err == nil {
		l.InfoContext(ctx, "Itinerary claimed", slog.String("user_id", owner.String()))
		return doc.itinerary()
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		l.ErrorContext(ctx, "Failed to claim itinerary", slog.Any("error", err))
		return nil, fmt.Errorf("failed to claim itinerary: %w", err)
	}

	err = r.coll.FindOne(ctx, bson.M{"_id": id.String()}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to check itinerary: %w", err)
	}
	l.WarnContext(ctx, "Claim rejected, itinerary already owned")
	return nil, ErrAlreadyClaimed
}

func (r *MongoRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*types.Itinerary, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"userId": owner.String()}, opts)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to list itineraries", slog.Any("error", err))
		return nil, fmt.Errorf("failed to list itineraries: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []mongoDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode itineraries: %w", err)
	}
	out := make([]*types.Itinerary, 0, len(docs))
	for _, d := range docs {
		it, err := d.itinerary()
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (r *MongoRepository) DeleteExpiredDrafts(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{
		"userId":    nil,
		"status":    string(types.StatusDraft),
		"expiresAt": bson.M{"$lt": now},
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to delete expired drafts", slog.Any("error", err))
		return 0, fmt.Errorf("failed to delete expired drafts: %w", err)
	}
	return res.DeletedCount, nil
}
