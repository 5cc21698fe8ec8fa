package retrieval

import (
	"context"
	"fmt"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	wmodels "github.com/weaviate/weaviate/entities/models"

	"github.com/drona-ai/grading-api/internal/models"
)

// Searcher is the embedding+search collaborator boundary: given query
// text it returns the top-k most relevant reference passages, ranked.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error)
}

// WeaviateConfig configures the vector store connection.
type WeaviateConfig struct {
	Scheme    string
	Host      string
	ClassName string
}

// WeaviateSearcher performs nearText semantic search against a weaviate
// class holding indexed textbook chunks.
type WeaviateSearcher struct {
	client    *weaviate.Client
	className string
}

// NewWeaviateSearcher builds a searcher from the supplied configuration.
func NewWeaviateSearcher(cfg WeaviateConfig) (*WeaviateSearcher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("weaviate host is required")
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "http"
	}
	if cfg.ClassName == "" {
		cfg.ClassName = "TextbookChunk"
	}

	client, err := weaviate.NewClient(weaviate.Config{
		Scheme: cfg.Scheme,
		Host:   cfg.Host,
	})
	if err != nil {
		return nil, fmt.Errorf("create weaviate client: %w", err)
	}

	return &WeaviateSearcher{client: client, className: cfg.ClassName}, nil
}

// Search runs a nearText query and maps each match to a RetrievedChunk.
// The relevance reason carries the certainty reported by the vector
// store, rounded to four decimal places.
func (s *WeaviateSearcher) Search(ctx context.Context, query string, topK int) ([]models.RetrievedChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if topK < 1 {
		topK = 1
	}

	nearText := s.client.GraphQL().NearTextArgBuilder().
		WithConcepts([]string{query})

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "source"},
		{Name: "_additional { certainty }"},
	}

	result, err := s.client.GraphQL().Get().
		WithClassName(s.className).
		WithFields(fields...).
		WithNearText(nearText).
		WithLimit(topK).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	if len(result.Errors) > 0 {
		return nil, fmt.Errorf("search error: %s", result.Errors[0].Message)
	}

	return s.parseMatches(result), nil
}

func (s *WeaviateSearcher) parseMatches(result *wmodels.GraphQLResponse) []models.RetrievedChunk {
	data, ok := result.Data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}

	objects, ok := data[s.className].([]interface{})
	if !ok {
		return nil
	}

	chunks := make([]models.RetrievedChunk, 0, len(objects))
	for _, obj := range objects {
		m, ok := obj.(map[string]interface{})
		if !ok {
			continue
		}

		content, _ := m["content"].(string)
		if content == "" {
			continue
		}

		source, _ := m["source"].(string)
		if source == "" {
			source = "Textbook"
		}

		certainty := 0.0
		if additional, ok := m["_additional"].(map[string]interface{}); ok {
			if value, ok := additional["certainty"].(float64); ok {
				certainty = value
			}
		}

		chunks = append(chunks, models.RetrievedChunk{
			Content:         content,
			SourceMetadata:  source,
			RelevanceReason: fmt.Sprintf("Similarity: %.4f", certainty),
		})
	}

	return chunks
}
