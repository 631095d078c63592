package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/staybooking/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoListingRepository struct {
	coll *mongo.Collection
}

func NewMongoListingRepository(db *mongo.Database) *MongoListingRepository {
	return &MongoListingRepository{coll: db.Collection(listingsCollection)}
}

func (r *MongoListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if listing.ID == "" {
		listing.ID = newDocumentID()
	}
	listing.CreatedAt = time.Now().UTC()

	if _, err := r.coll.InsertOne(ctx, listing); err != nil {
		return fmt.Errorf("failed to insert listing: %w", err)
	}
	return nil
}

func (r *MongoListingRepository) List(ctx context.Context) ([]domain.Listing, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer cursor.Close(ctx)

	listings := []domain.Listing{}
	if err := cursor.All(ctx, &listings); err != nil {
		return nil, fmt.Errorf("failed to decode listings: %w", err)
	}
	return listings, nil
}

func (r *MongoListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var l domain.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.NotFoundError{Resource: "listing", Err: err}
		}
		return nil, fmt.Errorf("failed to fetch listing %s: %w", id, err)
	}
	return &l, nil
}

var _ ListingRepository = (*MongoListingRepository)(nil)
