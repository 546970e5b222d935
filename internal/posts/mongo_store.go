package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "posts"

type postDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Title       string        `bson:"title"`
	Category    string        `bson:"category"`
	Description string        `bson:"description"`
	Creator     bson.ObjectID `bson:"creator"`
	Thumbnail   string        `bson:"thumbnail"`
	CreatedAt   time.Time     `bson:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt"`
}

func (d *postDocument) toPost() *Post {
	return &Post{
		ID:          d.ID.Hex(),
		Title:       d.Title,
		Category:    Category(d.Category),
		Description: d.Description,
		Creator:     d.Creator.Hex(),
		Thumbnail:   d.Thumbnail,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// MongoStore は MongoDB の posts コレクションを使う Store です。
type MongoStore struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{coll: database.Collection(collectionName), now: time.Now}
}

// EnsureIndexes は一覧取得で使うインデックスを作成します。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}, {Key: "updatedAt", Value: -1}}},
		{Keys: bson.D{{Key: "creator", Value: 1}, {Key: "updatedAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create posts indexes: %w", err)
	}
	return nil
}

// Create は記事を作成します。作成日時と更新日時は同じ値になります。
func (s *MongoStore) Create(ctx context.Context, post *Post) (*Post, error) {
	creator, err := bson.ObjectIDFromHex(post.Creator)
	if err != nil {
		return nil, fmt.Errorf("invalid creator id %q: %w", post.Creator, err)
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	doc := postDocument{
		ID:          bson.NewObjectID(),
		Title:       post.Title,
		Category:    string(post.Category),
		Description: post.Description,
		Creator:     creator,
		Thumbnail:   post.Thumbnail,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return doc.toPost(), nil
}

// FindByID はIDで記事を検索します。ObjectID として不正なIDは ErrNotFound になります。
func (s *MongoStore) FindByID(ctx context.Context, id string) (*Post, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc postDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find post: %w", err)
	}
	return doc.toPost(), nil
}

// List は条件に合う記事を updatedAt の降順で返します。
func (s *MongoStore) List(ctx context.Context, filter Filter) ([]*Post, error) {
	query, ok := listQuery(filter)
	if !ok {
		return []*Post{}, nil
	}

	cur, err := s.coll.Find(ctx, query, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	var docs []postDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	out := make([]*Post, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toPost())
	}
	return out, nil
}

// Update は記事を更新し、更新後の記事を返します。
func (s *MongoStore) Update(ctx context.Context, id string, update PostUpdate) (*Post, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	fields := updateFields(update, s.now())

	var doc postDocument
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": fields},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}
	return doc.toPost(), nil
}

// Delete は記事を削除します。
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// listQuery は Filter をクエリに変換します。作成者IDが不正な場合は一致する記事が無いため false を返します。
func listQuery(filter Filter) (bson.M, bool) {
	query := bson.M{}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if filter.Creator != "" {
		creator, err := bson.ObjectIDFromHex(filter.Creator)
		if err != nil {
			return nil, false
		}
		query["creator"] = creator
	}
	return query, true
}

func updateFields(update PostUpdate, now time.Time) bson.M {
	fields := bson.M{
		"title":       update.Title,
		"category":    string(update.Category),
		"description": update.Description,
		"updatedAt":   now.UTC().Truncate(time.Millisecond),
	}
	if update.Thumbnail != "" {
		fields["thumbnail"] = update.Thumbnail
	}
	return fields
}
