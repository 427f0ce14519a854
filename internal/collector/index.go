package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	opensearch "github.com/opensearch-project/opensearch-go/v2"
	opensearchapi "github.com/opensearch-project/opensearch-go/v2/opensearchapi"

	"github.com/shaveen-balasooriya/hive/internal/hiveerr"
	"github.com/shaveen-balasooriya/hive/internal/log"
	"github.com/shaveen-balasooriya/hive/internal/types"
)

// IndexName is the canonical search index name (spec.md §6.4).
const IndexName = "hive-logs"

// TemplateName covers the index pattern the canonical index matches.
const TemplateName = "hive-logs-template"

// indexMapping is spec.md §4.6.1's fixed mapping: one shard, zero
// replicas (single-node), with the geo_point location field.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "honeypot_type":      {"type": "keyword"},
      "attacker_ip":        {"type": "ip"},
      "attacker_port":      {"type": "integer"},
      "username":           {"type": "keyword"},
      "password":           {"type": "keyword"},
      "user-agent":         {"type": "keyword"},
      "time_of_entry":      {"type": "date"},
      "time_of_exit":       {"type": "date"},
      "commands_executed":  {"type": "keyword"},
      "duration_of_attack": {"type": "integer"},
      "location":           {"type": "geo_point"},
      "country":            {"type": "keyword"},
      "@timestamp":         {"type": "date"}
    }
  }
}`

// Index wraps the OpenSearch client with the canonical index's
// lifecycle and the single document-indexing call the collector makes
// per message.
type Index struct {
	client *opensearch.Client
}

// IndexConfig carries the connection inputs of spec.md §6.5.
type IndexConfig struct {
	Host     string
	Username string
	Password string
}

// NewIndex constructs the OpenSearch client. It does not touch the
// index itself — call Bootstrap once at collector startup.
func NewIndex(cfg IndexConfig) (*Index, error) {
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.Host},
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, hiveerr.HostResourceFailure("failed to construct search engine client", err)
	}
	return &Index{client: client}, nil
}

// Bootstrap implements spec.md §4.6 step 2: drop any pre-existing
// index with the canonical name, install the index template (pattern
// "<name>*") and the concrete index, both with the fixed mapping.
func (i *Index) Bootstrap(ctx context.Context) error {
	logger := log.WithComponent("collector.index")

	del := opensearchapi.IndicesDeleteRequest{Index: []string{IndexName}}
	delResp, err := del.Do(ctx, i.client)
	if err == nil && delResp != nil {
		delResp.Body.Close()
	}

	tmplReq := opensearchapi.IndicesPutTemplateRequest{
		Name: TemplateName,
		Body: strings.NewReader(fmt.Sprintf(
			`{"index_patterns": ["%s*"], %s`, IndexName, strings.TrimPrefix(indexMapping, "{"))),
	}
	tmplResp, err := tmplReq.Do(ctx, i.client)
	if err != nil {
		return hiveerr.New(hiveerr.KindHostResourceFailure, "failed to install index template", err)
	}
	defer tmplResp.Body.Close()
	if tmplResp.IsError() {
		return hiveerr.New(hiveerr.KindHostResourceFailure,
			fmt.Sprintf("index template install rejected: %s", tmplResp.Status()), nil)
	}

	createReq := opensearchapi.IndicesCreateRequest{
		Index: IndexName,
		Body:  strings.NewReader(indexMapping),
	}
	createResp, err := createReq.Do(ctx, i.client)
	if err != nil {
		return hiveerr.New(hiveerr.KindHostResourceFailure, "failed to create canonical index", err)
	}
	defer createResp.Body.Close()
	if createResp.IsError() {
		return hiveerr.New(hiveerr.KindHostResourceFailure,
			fmt.Sprintf("index create rejected: %s", createResp.Status()), nil)
	}

	logger.Info().Str("index", IndexName).Msg("search index bootstrapped")
	return nil
}

// Document indexes an enriched event (spec.md §4.6 step 5). Connection,
// authorization, and request-mapping errors are returned unsimplified
// so the caller can log the full error and withhold the ack.
func (i *Index) Document(ctx context.Context, event types.EnrichedEvent) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(event); err != nil {
		return fmt.Errorf("encode enriched event: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: IndexName,
		Body:  &buf,
	}
	resp, err := req.Do(ctx, i.client)
	if err != nil {
		return fmt.Errorf("index request: %w", err)
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("index request rejected: %s", resp.Status())
	}
	return nil
}
