package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"whiteboard/internal/domain"
)

const (
	objectsCollection = "board_objects"
	historyCollection = "board_history"
)

// MongoStore implements ObjectSync and HistoryStore on MongoDB.
// Batch writes use multi-document transactions, so the server must run
// as a replica set.
type MongoStore struct {
	client  *mongo.Client
	objects *mongo.Collection
	history *mongo.Collection
}

var (
	_ domain.ObjectSync   = (*MongoStore)(nil)
	_ domain.HistoryStore = (*MongoStore)(nil)
)

type historyDoc struct {
	ID      string         `bson:"_id"`
	BoardID string         `bson:"boardId"`
	UserID  string         `bson:"userId"`
	History domain.History `bson:"history"`
	SavedAt time.Time      `bson:"savedAt"`
}

// OpenMongo connects to uri and prepares the collections in database.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:  client,
		objects: db.Collection(objectsCollection),
		history: db.Collection(historyCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.objects.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "boardId", Value: 1}, {Key: "updatedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create object index: %w", err)
	}
	_, err = s.history.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "savedAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create history index: %w", err)
	}
	return nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Snapshot(ctx context.Context, boardID string) ([]domain.BoardObject, error) {
	cur, err := s.objects.Find(ctx, bson.M{"boardId": boardID},
		options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", boardID, err)
	}
	var objs []domain.BoardObject
	if err := cur.All(ctx, &objs); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return objs, nil
}

func (s *MongoStore) maxOrder(ctx context.Context, boardID string) (int64, error) {
	var top domain.BoardObject
	err := s.objects.FindOne(ctx, bson.M{"boardId": boardID},
		options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})).Decode(&top)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max updatedAt: %w", err)
	}
	return top.UpdatedAt, nil
}

func (s *MongoStore) inTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

func (s *MongoStore) BatchUpdate(ctx context.Context, boardID, actor string, updates []domain.ObjectUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return s.inTransaction(ctx, func(ctx context.Context) error {
		next, err := s.maxOrder(ctx, boardID)
		if err != nil {
			return err
		}
		for _, u := range updates {
			filter := bson.M{"boardId": boardID, "_id": u.ID}
			var cur domain.BoardObject
			err := s.objects.FindOne(ctx, filter).Decode(&cur)
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("update object %s: %w", u.ID, domain.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("load object %s: %w", u.ID, err)
			}

			o := u.Patch.Apply(cur)
			next++
			o.UpdatedAt = next
			o.LastModifiedBy = actor
			if _, err := s.objects.ReplaceOne(ctx, filter, o); err != nil {
				return fmt.Errorf("update object %s: %w", u.ID, err)
			}
		}
		return nil
	})
}

func (s *MongoStore) CreateObject(ctx context.Context, boardID string, obj *domain.BoardObject) error {
	if err := obj.Validate(); err != nil {
		return err
	}
	obj.BoardID = boardID
	if obj.LastModifiedBy == "" {
		obj.LastModifiedBy = obj.CreatedBy
	}
	return s.inTransaction(ctx, func(ctx context.Context) error {
		max, err := s.maxOrder(ctx, boardID)
		if err != nil {
			return err
		}
		obj.UpdatedAt = max + 1
		if _, err := s.objects.InsertOne(ctx, obj); err != nil {
			return fmt.Errorf("insert object %s: %w", obj.ID, err)
		}
		return nil
	})
}

func (s *MongoStore) DeleteObjects(ctx context.Context, boardID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.objects.DeleteMany(ctx, bson.M{"boardId": boardID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("delete objects: %w", err)
	}
	return nil
}

func historyID(boardID, userID string) string {
	return boardID + "/" + userID
}

func (s *MongoStore) LoadHistory(ctx context.Context, boardID, userID string) (*domain.History, error) {
	var doc historyDoc
	err := s.history.FindOne(ctx, bson.M{"_id": historyID(boardID, userID)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return &doc.History, nil
}

func (s *MongoStore) SaveHistory(ctx context.Context, boardID, userID string, h domain.History) error {
	doc := historyDoc{
		ID:      historyID(boardID, userID),
		BoardID: boardID,
		UserID:  userID,
		History: h,
		SavedAt: time.Now(),
	}
	_, err := s.history.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func (s *MongoStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.history.DeleteMany(ctx, bson.M{"savedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.DeletedCount, nil
}
