package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"Underworld/internal/world/app/port"
	"Underworld/internal/world/entity"
	"Underworld/modules/kit/errx"
)

const (
	defaultCollectionName = "world"
	worldDocID            = "city"
)

// worldDoc 整个世界只有一条文档，payload 保存编码后的 JSON。
type worldDoc struct {
	ID      string    `bson:"_id"`
	Version uint64    `bson:"version"`
	SavedAt time.Time `bson:"saved_at"`
	Payload []byte    `bson:"payload"`
}

type WorldRepository struct {
	coll *mongo.Collection
}

func NewWorldRepository(db *mongo.Database) *WorldRepository {
	return &WorldRepository{
		coll: db.Collection(defaultCollectionName),
	}
}

func (r *WorldRepository) LoadWorld(ctx context.Context) ([]byte, error) {
	if r == nil || r.coll == nil {
		return nil, errors.New("mongodb world collection is nil")
	}

	var doc worldDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": worldDocID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, port.ErrWorldNotFound
	}
	if err != nil {
		return nil, errx.ErrPersistence.WithMsg("读取世界文档失败").WithCause(err)
	}
	return doc.Payload, nil
}

// Save 整条覆盖；写入顺序由上层的合并写保证。
func (r *WorldRepository) Save(ctx context.Context, s *entity.WorldPersistSnapshot) error {
	if s == nil {
		return nil
	}
	if r == nil || r.coll == nil {
		return errors.New("mongodb world collection is nil")
	}

	doc := worldDoc{
		ID:      worldDocID,
		Version: s.Version,
		SavedAt: s.SavedAt,
		Payload: s.Payload,
	}
	_, err := r.coll.ReplaceOne(
		ctx,
		bson.M{"_id": worldDocID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return errx.ErrPersistence.WithMsg("写入世界文档失败").WithCause(err)
	}
	return nil
}
