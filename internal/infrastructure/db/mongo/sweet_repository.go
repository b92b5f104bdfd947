package mongo

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

	"github.com/sweetshop/inventory-api/internal/core/domain"
	"github.com/sweetshop/inventory-api/internal/core/ports"
)

const sweetsCollection = "sweets"

type SweetRepository struct {
	coll *mongo.Collection
}

func NewSweetRepository(db *mongo.Database) *SweetRepository {
	return &SweetRepository{coll: db.Collection(sweetsCollection)}
}

type mongoSweet struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Name     string             `bson:"name"`
	Category string             `bson:"category"`
	Price    float64            `bson:"price"`
	Quantity int                `bson:"quantity"`
}

func (ms mongoSweet) toDomain() *domain.Sweet {
	return &domain.Sweet{
		ID:       ms.ID.Hex(),
		Name:     ms.Name,
		Category: ms.Category,
		Price:    ms.Price,
		Quantity: ms.Quantity,
	}
}

// parseID converts the external hex id. A malformed id can never match a
// stored document, so it reports not-found rather than a validation failure.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, domain.ErrSweetNotFound
	}
	return oid, nil
}

func (r *SweetRepository) Insert(ctx context.Context, s *domain.Sweet) (*domain.Sweet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := mongoSweet{
		Name:     s.Name,
		Category: s.Category,
		Price:    s.Price,
		Quantity: s.Quantity,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("insert sweet: %w", err)
	}

	created := *s
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *SweetRepository) FindByID(ctx context.Context, id string) (*domain.Sweet, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSweet
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&ms); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("find sweet: %w", err)
	}
	return ms.toDomain(), nil
}

func (r *SweetRepository) FindAll(ctx context.Context) ([]domain.Sweet, error) {
	return r.find(ctx, bson.M{})
}

// Search applies the filter criteria conjunctively. The name match is a
// case-insensitive substring match with regex metacharacters escaped, so user
// input is always treated literally.
func (r *SweetRepository) Search(ctx context.Context, f ports.SweetFilter) ([]domain.Sweet, error) {
	filter := bson.M{}
	if f.Name != "" {
		filter["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(f.Name), Options: "i"}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	price := bson.M{}
	if f.PriceMin != nil {
		price["$gte"] = *f.PriceMin
	}
	if f.PriceMax != nil {
		price["$lte"] = *f.PriceMax
	}
	if len(price) > 0 {
		filter["price"] = price
	}
	return r.find(ctx, filter)
}

func (r *SweetRepository) find(ctx context.Context, filter bson.M) ([]domain.Sweet, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sweets: %w", err)
	}
	defer cur.Close(ctx)

	out := []domain.Sweet{}
	for cur.Next(ctx) {
		var ms mongoSweet
		if err := cur.Decode(&ms); err != nil {
			return nil, fmt.Errorf("decode sweet: %w", err)
		}
		out = append(out, *ms.toDomain())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweets: %w", err)
	}
	return out, nil
}

func (r *SweetRepository) Update(ctx context.Context, id string, patch ports.SweetPatch) (*domain.Sweet, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Category != nil {
		set["category"] = *patch.Category
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Quantity != nil {
		set["quantity"] = *patch.Quantity
	}
	if len(set) == 0 {
		return r.FindByID(ctx, id)
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSweet
	err = r.coll.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ms)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("update sweet: %w", err)
	}
	return ms.toDomain(), nil
}

func (r *SweetRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete sweet: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrSweetNotFound
	}
	return nil
}

// AdjustQuantity applies a conditional increment in a single round trip. The
// filter only matches when the resulting quantity stays non-negative, so the
// stock count can never go below zero regardless of how many requests race.
// A miss is indistinguishable between "no such document" and "floor would be
// crossed"; callers that need to tell the two apart follow up with FindByID.
func (r *SweetRepository) AdjustQuantity(ctx context.Context, id string, delta int) (*domain.Sweet, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["quantity"] = bson.M{"$gte": -delta}
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var ms mongoSweet
	err = r.coll.FindOneAndUpdate(
		ctx,
		filter,
		bson.M{"$inc": bson.M{"quantity": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&ms)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrSweetNotFound
		}
		return nil, fmt.Errorf("adjust quantity: %w", err)
	}
	return ms.toDomain(), nil
}

// EnsureIndexes creates the indexes backing search.
func (r *SweetRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
	}

	_, err := r.coll.Indexes().CreateMany(ctx, indexes)
	return err
}
