// Package search maintains a Bluge full-text index over persisted
// messages and answers room-scoped queries from the REST surface.
package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/blugelabs/bluge"

	"chat-relay/domain"
)

// Index wraps a Bluge writer. Indexing is best-effort: the hub logs
// and continues when an Index call fails, so the chat log on Badger
// stays the source of truth.
type Index struct {
	writer *bluge.Writer
	log    *slog.Logger
}

// Hit is one search result.
type Hit struct {
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

func Open(path string, log *slog.Logger) (*Index, error) {
	writer, err := bluge.OpenWriter(bluge.DefaultConfig(path))
	if err != nil {
		return nil, err
	}
	return &Index{writer: writer, log: log}, nil
}

func (i *Index) Close() error {
	return i.writer.Close()
}

// Index adds one message to the search index. The room is a keyword
// field so queries can be scoped exactly; the content is analyzed text.
func (i *Index) Index(msg domain.Message) error {
	doc := bluge.NewDocument(msg.ID.String()).
		AddField(bluge.NewKeywordField("room", msg.Room).StoreValue()).
		AddField(bluge.NewKeywordField("author", msg.Author).StoreValue()).
		AddField(bluge.NewTextField("content", msg.Content).StoreValue()).
		AddField(bluge.NewKeywordField("created_at",
			msg.CreatedAt.Format(time.RFC3339Nano)).StoreValue())
	return i.writer.Update(doc.ID(), doc)
}

// Search runs a match query over message content, restricted to one
// room, and returns up to limit hits ordered by relevance.
func (i *Index) Search(ctx context.Context, room, terms string, limit int) ([]Hit, error) {
	reader, err := i.writer.Reader()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := reader.Close(); err != nil {
			i.log.Warn("closing index reader failed", "error", err)
		}
	}()

	query := bluge.NewBooleanQuery().
		AddMust(bluge.NewMatchQuery(terms).SetField("content")).
		AddMust(bluge.NewTermQuery(room).SetField("room"))

	iterator, err := reader.Search(ctx, bluge.NewTopNSearch(limit, query))
	if err != nil {
		return nil, err
	}

	var hits []Hit
	for {
		match, err := iterator.Next()
		if err != nil {
			return nil, err
		}
		if match == nil {
			break
		}
		var hit Hit
		err = match.VisitStoredFields(func(field string, value []byte) bool {
			switch field {
			case "author":
				hit.Author = string(value)
			case "content":
				hit.Content = string(value)
			case "created_at":
				if at, err := time.Parse(time.RFC3339Nano, string(value)); err == nil {
					hit.CreatedAt = at
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
