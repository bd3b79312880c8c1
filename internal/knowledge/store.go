package knowledge

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	qdrantclient "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// Store is a Qdrant-backed vector store for knowledge base chunks.
type Store struct {
	conn        *grpc.ClientConn
	collections qdrantclient.CollectionsClient
	points      qdrantclient.PointsClient
	collection  string
	embedder    Embedder
	logger      *slog.Logger
}

// Result is one search hit from the knowledge base.
type Result struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
}

// Connect opens a gRPC connection to Qdrant and returns a store bound
// to the named collection.
func Connect(addr, collection string, embedder Embedder, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant at %s: %w", addr, err)
	}

	logger.Info("qdrant connected", "addr", addr, "collection", collection)

	return &Store{
		conn:        conn,
		collections: qdrantclient.NewCollectionsClient(conn),
		points:      qdrantclient.NewPointsClient(conn),
		collection:  collection,
		embedder:    embedder,
		logger:      logger,
	}, nil
}

// Close releases the gRPC connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// EnsureCollection creates the collection if it does not exist. When
// recreate is true an existing collection is dropped first.
func (s *Store) EnsureCollection(ctx context.Context, vectorSize uint64, recreate bool) error {
	list, err := s.collections.List(ctx, &qdrantclient.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}

	exists := false
	for _, col := range list.GetCollections() {
		if col.GetName() == s.collection {
			exists = true
			break
		}
	}

	if exists && recreate {
		if _, err := s.collections.Delete(ctx, &qdrantclient.DeleteCollection{
			CollectionName: s.collection,
		}); err != nil {
			return fmt.Errorf("delete collection: %w", err)
		}
		exists = false
		s.logger.Info("collection dropped", "collection", s.collection)
	}

	if exists {
		return nil
	}

	_, err = s.collections.Create(ctx, &qdrantclient.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &qdrantclient.VectorsConfig{
			Config: &qdrantclient.VectorsConfig_Params{
				Params: &qdrantclient.VectorParams{
					Size:     vectorSize,
					Distance: qdrantclient.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	s.logger.Info("collection created", "collection", s.collection, "vector_size", vectorSize)
	return nil
}

// Upsert embeds and stores the given chunks. Point IDs are derived
// deterministically from chunk IDs so re-indexing the same document
// overwrites rather than duplicates.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	points := make([]*qdrantclient.PointStruct, 0, len(chunks))
	for _, chunk := range chunks {
		vector, err := s.embedder.Generate(ctx, chunk.Title+"\n"+chunk.Content)
		if err != nil {
			return fmt.Errorf("embed chunk %s: %w", chunk.ID, err)
		}

		pointID := uuid.NewSHA1(uuid.NameSpaceURL, []byte(chunk.ID)).String()
		points = append(points, &qdrantclient.PointStruct{
			Id: &qdrantclient.PointId{
				PointIdOptions: &qdrantclient.PointId_Uuid{Uuid: pointID},
			},
			Vectors: &qdrantclient.Vectors{
				VectorsOptions: &qdrantclient.Vectors_Vector{
					Vector: &qdrantclient.Vector{Data: vector},
				},
			},
			Payload: map[string]*qdrantclient.Value{
				"chunk":   {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.ID}},
				"title":   {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Title}},
				"content": {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Content}},
				"source":  {Kind: &qdrantclient.Value_StringValue{StringValue: chunk.Source}},
			},
		})
	}

	_, err := s.points.Upsert(ctx, &qdrantclient.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}

	s.logger.Debug("chunks upserted", "count", len(points))
	return nil
}

// Search embeds the query and returns the limit most similar chunks.
func (s *Store) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit < 1 {
		limit = 1
	}

	vector, err := s.embedder.Generate(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	resp, err := s.points.Search(ctx, &qdrantclient.SearchPoints{
		CollectionName: s.collection,
		Vector:         vector,
		Limit:          uint64(limit),
		WithPayload: &qdrantclient.WithPayloadSelector{
			SelectorOptions: &qdrantclient.WithPayloadSelector_Enable{Enable: true},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	results := make([]Result, 0, len(resp.GetResult()))
	for _, hit := range resp.GetResult() {
		payload := hit.GetPayload()
		results = append(results, Result{
			ID:      payload["chunk"].GetStringValue(),
			Title:   payload["title"].GetStringValue(),
			Content: payload["content"].GetStringValue(),
			Source:  payload["source"].GetStringValue(),
			Score:   float64(hit.GetScore()),
		})
	}

	s.logger.Debug("knowledge search", "query_len", len(query), "hits", len(results))
	return results, nil
}

// Count returns the number of points in the collection.
func (s *Store) Count(ctx context.Context) (uint64, error) {
	resp, err := s.points.Count(ctx, &qdrantclient.CountPoints{
		CollectionName: s.collection,
	})
	if err != nil {
		return 0, fmt.Errorf("count points: %w", err)
	}
	return resp.GetResult().GetCount(), nil
}
