package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pribylovaa/go-blog-forum/internal/models"
	"github.com/pribylovaa/go-blog-forum/internal/storage"
)

// commentDoc — представление комментария в коллекции.
// UUID хранятся строками: так их удобно читать из mongosh и индексировать.
type commentDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	PostID    string             `bson:"post_id"`
	Content   string             `bson:"content"`
	Owner     string             `bson:"owner"`
	Private   bool               `bson:"private"`
	CreatedAt time.Time          `bson:"created_at"`
}

func toDoc(c models.PostComment) commentDoc {
	return commentDoc{
		PostID:    c.PostID.String(),
		Content:   c.Content,
		Owner:     c.Owner.String(),
		Private:   c.Private,
		CreatedAt: c.CreatedAt,
	}
}

func (d commentDoc) model() models.PostComment {
	postID, _ := uuid.Parse(d.PostID)
	owner, _ := uuid.Parse(d.Owner)

	return models.PostComment{
		ID:        d.ID.Hex(),
		PostID:    postID,
		Content:   d.Content,
		Owner:     owner,
		Private:   d.Private,
		CreatedAt: d.CreatedAt.UTC(),
	}
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return primitive.NilObjectID, errBadID
	}

	return oid, nil
}

// CreateComment вставляет комментарий; время создания округляется до миллисекунд (точность BSON DateTime).
func (m *Mongo) CreateComment(ctx context.Context, comment models.PostComment) (*models.PostComment, error) {
	const op = "storage/mongo/comments/CreateComment"

	comment.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	doc := toDoc(comment)

	res, err := m.comments.InsertOne(ctx, doc)
	if err != nil {
		if mongodriver.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: insert: %w", op, err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected inserted id type %T", op, res.InsertedID)
	}

	doc.ID = oid
	out := doc.model()

	return &out, nil
}

// CommentByID возвращает комментарий по hex ObjectID.
func (m *Mongo) CommentByID(ctx context.Context, id string) (*models.PostComment, error) {
	const op = "storage/mongo/comments/CommentByID"

	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc commentDoc
	if err := m.comments.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc); err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.model()

	return &out, nil
}

// DeleteComment удаляет комментарий.
func (m *Mongo) DeleteComment(ctx context.Context, id string) error {
	const op = "storage/mongo/comments/DeleteComment"

	oid, err := objectID(id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	res, err := m.comments.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// SetPrivate меняет флаг приватности.
func (m *Mongo) SetPrivate(ctx context.Context, id string, private bool) (*models.PostComment, error) {
	const op = "storage/mongo/comments/SetPrivate"

	oid, err := objectID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	var doc commentDoc
	err = m.comments.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{{Key: "private", Value: private}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := doc.model()

	return &out, nil
}

// commentFilter строит фильтр выдачи:
//   - post_id обязателен;
//   - SearchText — регистронезависимая подстрока content (спецсимволы экранируются);
//   - не администратор видит публичные и свои приватные.
func commentFilter(f models.CommentFilter) bson.D {
	filter := bson.D{{Key: "post_id", Value: f.PostID.String()}}

	if text := strings.TrimSpace(f.SearchText); text != "" {
		filter = append(filter, bson.E{Key: "content", Value: primitive.Regex{
			Pattern: regexp.QuoteMeta(text),
			Options: "i",
		}})
	}

	if !f.ViewerIsAdmin {
		visible := bson.A{bson.D{{Key: "private", Value: false}}}
		if f.Viewer != uuid.Nil {
			visible = append(visible, bson.D{{Key: "owner", Value: f.Viewer.String()}})
		}

		filter = append(filter, bson.E{Key: "$or", Value: visible})
	}

	return filter
}

// ListComments возвращает страницу комментариев (created_at DESC, _id DESC).
func (m *Mongo) ListComments(ctx context.Context, f models.CommentFilter) ([]models.PostComment, error) {
	const op = "storage/mongo/comments/ListComments"

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Skip)).
		SetLimit(int64(f.Limit))

	cur, err := m.comments.Find(ctx, commentFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: find: %w", op, err)
	}
	defer cur.Close(ctx)

	out := make([]models.PostComment, 0, f.Limit)
	for cur.Next(ctx) {
		var doc commentDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("%s: decode: %w", op, err)
		}

		out = append(out, doc.model())
	}

	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("%s: cursor: %w", op, err)
	}

	return out, nil
}

// CountComments считает комментарии под тем же фильтром, что и ListComments.
func (m *Mongo) CountComments(ctx context.Context, f models.CommentFilter) (int64, error) {
	const op = "storage/mongo/comments/CountComments"

	n, err := m.comments.CountDocuments(ctx, commentFilter(f))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}
