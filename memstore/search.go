package memstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/myscheme/schemeapi/models"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// textFields are the scheme fields covered by free-text search, matching the
// MongoDB text index.
var textFields = []string{"name", "description", "tags", "benefits"}

// textIndex is an in-memory full-text index over schemes.
type textIndex struct {
	index bleve.Index
}

func buildSchemeMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()
	for _, field := range textFields {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		fm.Store = false
		docMapping.AddFieldMappingsAt(field, fm)
	}
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func newTextIndex() (*textIndex, error) {
	idx, err := bleve.NewMemOnly(buildSchemeMapping())
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &textIndex{index: idx}, nil
}

func (t *textIndex) put(s *models.Scheme) error {
	doc := map[string]any{
		"name":        s.Name,
		"description": s.Description,
		"tags":        strings.Join(s.Tags, " "),
		"benefits":    strings.Join(s.Benefits, " "),
	}
	if err := t.index.Index(s.Id.Hex(), doc); err != nil {
		return fmt.Errorf("index scheme %s: %w", s.Id.Hex(), err)
	}
	return nil
}

func (t *textIndex) remove(id bson.ObjectID) error {
	return t.index.Delete(id.Hex())
}

func (t *textIndex) reset(ids []bson.ObjectID) error {
	batch := t.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id.Hex())
	}
	return t.index.Batch(batch)
}

// search returns the relevance score of every scheme matching any term.
func (t *textIndex) search(ctx context.Context, term string) (map[bson.ObjectID]float64, error) {
	count, err := t.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("count indexed schemes: %w", err)
	}
	if count == 0 {
		return map[bson.ObjectID]float64{}, nil
	}

	fieldQueries := make([]blevequery.Query, 0, len(textFields))
	for _, field := range textFields {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(field)
		fieldQueries = append(fieldQueries, mq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(fieldQueries...), int(count), 0, false)
	res, err := t.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	scores := make(map[bson.ObjectID]float64, len(res.Hits))
	for _, hit := range res.Hits {
		id, err := bson.ObjectIDFromHex(hit.ID)
		if err != nil {
			continue
		}
		scores[id] = hit.Score
	}
	return scores, nil
}

func (t *textIndex) close() error {
	return t.index.Close()
}
