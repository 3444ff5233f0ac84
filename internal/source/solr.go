package source

import (
	"context"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/jobsnprofiles/synccheck/internal/model"
	"github.com/jobsnprofiles/synccheck/pkg/solr"
)

// defaultFetchBatch keeps id:(...) queries well under Solr's boolean clause
// and URL length limits.
const defaultFetchBatch = 100

// indexFields is the field list requested from the index; everything the
// comparator looks at and nothing else.
var indexFields = []string{
	"id", "title", "company_name", "city_name", "state_name",
	"workmode", "remote", "ai_skills", "job_link",
}

// SolrSource fetches index documents for verification in id batches.
type SolrSource struct {
	client    solr.Client
	batchSize int
	log       *zap.Logger
}

func NewSolr(client solr.Client, batchSize int) *SolrSource {
	if batchSize <= 0 {
		batchSize = defaultFetchBatch
	}
	return &SolrSource{
		client:    client,
		batchSize: batchSize,
		log:       zap.L().With(zap.String("component", "solr_source")),
	}
}

func (s *SolrSource) FetchDocs(ctx context.Context, ids []int64) (map[int64]model.IndexRecord, error) {
	docs := make(map[int64]model.IndexRecord, len(ids))
	for start := 0; start < len(ids); start += s.batchSize {
		end := start + s.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		chunk := ids[start:end]

		resp, err := s.client.Select(ctx, idsQuery(chunk),
			solr.WithFields(indexFields...),
			solr.WithRows(len(chunk)),
		)
		if err != nil {
			return nil, eris.Wrapf(err, "index: fetch docs %d..%d", chunk[0], chunk[len(chunk)-1])
		}

		for _, doc := range resp.Response.Docs {
			rec, ok := docToIndexRecord(doc)
			if !ok {
				s.log.Warn("index document has no numeric id, skipping")
				continue
			}
			docs[rec.ID] = rec
		}
		s.log.Debug("fetched index batch",
			zap.Int("requested", len(chunk)),
			zap.Int("returned", len(resp.Response.Docs)),
		)
	}
	return docs, nil
}

// idsQuery builds an id:(a OR b OR ...) filter for one batch.
func idsQuery(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "id:(" + strings.Join(parts, " OR ") + ")"
}

// docToIndexRecord converts a raw index document, preserving which of the
// two work-mode fields the document actually carries.
func docToIndexRecord(doc solr.Document) (model.IndexRecord, bool) {
	id, ok := doc.Int64("id")
	if !ok {
		return model.IndexRecord{}, false
	}
	rec := model.IndexRecord{
		ID:          id,
		Title:       doc.String("title"),
		CompanyName: doc.String("company_name"),
		CityName:    doc.String("city_name"),
		StateName:   doc.String("state_name"),
		AISkills:    doc.Strings("ai_skills"),
		JobLink:     doc.String("job_link"),
	}
	if doc.Has("workmode") {
		rec.WorkMode = doc.String("workmode")
		rec.HasWorkMode = true
	}
	if doc.Has("remote") {
		rec.Remote = doc.String("remote")
		rec.HasRemote = true
	}
	return rec, true
}
