package activity

import (
	"fmt"
	"os"
	"time"

	"accountsec/internal/models"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const schemaVersion = "1"

var schemaVersionKey = []byte("schema_version")

const defaultSearchSize = 50

// outcomeEntry is the document shape indexed in bleve.
type outcomeEntry struct {
	Operation string    `json:"operation"`
	Status    string    `json:"status"`
	Channel   string    `json:"channel"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}

// BleveClient implements IActivityLogger on a bleve index.
type BleveClient struct {
	index bleve.Index
}

// NewBleveClient opens the index at the configured directory, creating it if needed. An empty directory
// keeps the index in memory. An index written with another schema version is discarded and recreated.
func NewBleveClient(config models.ActivityConfiguration) (*BleveClient, error) {
	if config.Directory == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory activity index: %w", err)
		}
		return &BleveClient{index: index}, nil
	}

	index, err := bleve.Open(config.Directory)
	if err == nil {
		version, versionErr := index.GetInternal(schemaVersionKey)
		if versionErr == nil && string(version) == schemaVersion {
			return &BleveClient{index: index}, nil
		}

		zap.L().Info("Activity index schema changed, recreating",
			zap.String("directory", config.Directory),
			zap.String("old_version", string(version)),
			zap.String("new_version", schemaVersion))
		_ = index.Close()
		if err = os.RemoveAll(config.Directory); err != nil {
			return nil, fmt.Errorf("failed to remove outdated activity index: %w", err)
		}
	}

	index, err = bleve.New(config.Directory, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create activity index: %w", err)
	}
	if err = index.SetInternal(schemaVersionKey, []byte(schemaVersion)); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to set schema version: %w", err)
	}
	return &BleveClient{index: index}, nil
}

func buildIndexMapping() *mapping.IndexMappingImpl {
	keywordMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("operation", keywordMapping)
	docMapping.AddFieldMappingsAt("status", keywordMapping)
	docMapping.AddFieldMappingsAt("channel", keywordMapping)
	docMapping.AddFieldMappingsAt("kind", keywordMapping)
	docMapping.AddFieldMappingsAt("message", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("at", bleve.NewDateTimeFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func (c *BleveClient) Send(outcome models.Outcome) error {
	id := outcome.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	at := outcome.At
	if at.IsZero() {
		at = time.Now()
	}

	entry := outcomeEntry{
		Operation: string(outcome.Operation),
		Status:    string(outcome.Status),
		Channel:   string(outcome.Channel),
		Kind:      outcome.Kind,
		Message:   outcome.Message,
		At:        at.UTC(),
	}
	if err := c.index.Index(id.String(), entry); err != nil {
		return fmt.Errorf("failed to index outcome: %w", err)
	}
	return nil
}

func (c *BleveClient) Search(criteria map[string][]string, limit int) ([]models.Outcome, error) {
	if limit <= 0 {
		limit = defaultSearchSize
	}

	searchRequest := bleve.NewSearchRequestOptions(buildBleveQuery(criteria), limit, 0, false)
	searchRequest.SortBy([]string{"-at"})
	searchRequest.Fields = []string{"*"}

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to search activity: %w", err)
	}

	outcomes := make([]models.Outcome, 0, len(result.Hits))
	for _, hit := range result.Hits {
		outcomes = append(outcomes, outcomeFromFields(hit.ID, hit.Fields))
	}
	return outcomes, nil
}

func (c *BleveClient) CountByStatus(criteria map[string][]string) (map[models.OutcomeStatus]int, error) {
	searchRequest := bleve.NewSearchRequestOptions(buildBleveQuery(criteria), 0, 0, false)
	searchRequest.AddFacet("statuses", bleve.NewFacetRequest("status", 10))

	result, err := c.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}

	counts := make(map[models.OutcomeStatus]int)
	facet, ok := result.Facets["statuses"]
	if !ok || facet.Terms == nil {
		return counts, nil
	}
	for _, term := range facet.Terms.Terms() {
		counts[models.OutcomeStatus(term.Term)] = term.Count
	}
	return counts, nil
}

func (c *BleveClient) Close() error {
	return c.index.Close()
}

func outcomeFromFields(id string, fields map[string]any) models.Outcome {
	operation, _ := fields["operation"].(string)
	status, _ := fields["status"].(string)
	channel, _ := fields["channel"].(string)
	kind, _ := fields["kind"].(string)
	message, _ := fields["message"].(string)

	outcome := models.Outcome{
		Operation: models.Operation(operation),
		Status:    models.OutcomeStatus(status),
		Channel:   models.Channel(channel),
		Kind:      kind,
		Message:   message,
	}
	if parsed, err := uuid.Parse(id); err == nil {
		outcome.ID = parsed
	}
	if at, ok := fields["at"].(string); ok {
		if t, err := time.Parse(time.RFC3339, at); err == nil {
			outcome.At = t
		}
	}
	return outcome
}

func buildBleveQuery(criteria map[string][]string) query.Query {
	var queries []query.Query

	for field, values := range criteria {
		var terms []query.Query
		for _, value := range values {
			term := bleve.NewTermQuery(value)
			term.SetField(field)
			terms = append(terms, term)
		}

		switch len(terms) {
		case 0:
		case 1:
			queries = append(queries, terms[0])
		default:
			disjunction := bleve.NewDisjunctionQuery(terms...)
			disjunction.SetMin(1)
			queries = append(queries, disjunction)
		}
	}

	switch len(queries) {
	case 0:
		return bleve.NewMatchAllQuery()
	case 1:
		return queries[0]
	default:
		return bleve.NewConjunctionQuery(queries...)
	}
}

var _ IActivityLogger = (*BleveClient)(nil)
