package users

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const collectionName = "users"

type userDocument struct {
	ID       bson.ObjectID `bson:"_id,omitempty"`
	Name     string        `bson:"name"`
	Email    string        `bson:"email"`
	Password string        `bson:"password"`
	Avatar   string        `bson:"avatar,omitempty"`
	Posts    int           `bson:"posts"`
}

func (d *userDocument) toUser() *User {
	return &User{
		ID:           d.ID.Hex(),
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Avatar:       d.Avatar,
		Posts:        d.Posts,
	}
}

// MongoStore は MongoDB の users コレクションを使う Store です。
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore は MongoStore を作成します。
func NewMongoStore(database *mongo.Database) *MongoStore {
	return &MongoStore{coll: database.Collection(collectionName)}
}

// EnsureIndexes はメールアドレスの一意インデックスを作成します。
// 同一メールアドレスでの同時登録は、このインデックスによって2件目が失敗します。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("email_unique"),
	})
	if err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}
	return nil
}

// FindByEmail は正規化済みメールアドレスで利用者を検索します。
func (s *MongoStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

// FindByID はIDで利用者を検索します。ObjectID として不正なIDは ErrNotFound になります。
func (s *MongoStore) FindByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

// Create は投稿数0の利用者を作成します。メールアドレスの重複は一意インデックスで検出します。
func (s *MongoStore) Create(ctx context.Context, user *User) (*User, error) {
	doc := userDocument{
		ID:       bson.NewObjectID(),
		Name:     user.Name,
		Email:    user.Email,
		Password: user.PasswordHash,
		Avatar:   user.Avatar,
		Posts:    0,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, mapStoreError(err, "insert user")
	}
	return doc.toUser(), nil
}

// UpdatePassword はダイジェストのみを更新します。
func (s *MongoStore) UpdatePassword(ctx context.Context, id, hash string) error {
	return s.updateFields(ctx, id, bson.M{"password": hash})
}

// UpdateProfile は名前・メールアドレス（と指定があればダイジェスト）を1回の $set で更新します。
func (s *MongoStore) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var doc userDocument
	err = s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": profileFields(update)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		return nil, mapStoreError(err, "update profile")
	}
	return doc.toUser(), nil
}

// UpdateAvatar はアバターの保存名を更新します。
func (s *MongoStore) UpdateAvatar(ctx context.Context, id, avatar string) error {
	return s.updateFields(ctx, id, bson.M{"avatar": avatar})
}

// IncrementPostCount は $inc で投稿数を加減算します。減算で負になる場合は ErrNegativePostCount を返します。
func (s *MongoStore) IncrementPostCount(ctx context.Context, id string, delta int) (int, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return 0, ErrNotFound
	}

	var doc userDocument
	err = s.coll.FindOneAndUpdate(ctx,
		postCountFilter(oid, delta),
		bson.M{"$inc": bson.M{"posts": delta}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if delta >= 0 {
			return 0, ErrNotFound
		}
		n, countErr := s.coll.CountDocuments(ctx, bson.M{"_id": oid})
		if countErr != nil {
			return 0, fmt.Errorf("failed to check user: %w", countErr)
		}
		return 0, counterMissError(delta, n > 0)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to update post count: %w", err)
	}
	return doc.Posts, nil
}

// List は全利用者を返します。
func (s *MongoStore) List(ctx context.Context) ([]*User, error) {
	cur, err := s.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []userDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	out := make([]*User, 0, len(docs))
	for i := range docs {
		out = append(out, docs[i].toUser())
	}
	return out, nil
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*User, error) {
	var doc userDocument
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, mapStoreError(err, "find user")
	}
	return doc.toUser(), nil
}

func (s *MongoStore) updateFields(ctx context.Context, id string, fields bson.M) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// mapStoreError はドライバーのエラーを Store のエラーに変換します。
func mapStoreError(err error, op string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return ErrDuplicateEmail
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func profileFields(update ProfileUpdate) bson.M {
	fields := bson.M{"name": update.Name, "email": update.Email}
	if update.PasswordHash != "" {
		fields["password"] = update.PasswordHash
	}
	return fields
}

// postCountFilter は減算時に投稿数が負にならない条件を加えます。
func postCountFilter(oid bson.ObjectID, delta int) bson.M {
	filter := bson.M{"_id": oid}
	if delta < 0 {
		filter["posts"] = bson.M{"$gte": -delta}
	}
	return filter
}

// counterMissError は $inc が1件も更新しなかった理由を返します。
func counterMissError(delta int, exists bool) error {
	if !exists || delta >= 0 {
		return ErrNotFound
	}
	return ErrNegativePostCount
}
