package rest

import (
	"context"

	"github.com/bwise1/querydesk/config"
	"github.com/bwise1/querydesk/internal/model"
	"github.com/bwise1/querydesk/internal/storage"
	"github.com/bwise1/querydesk/util/values"
)

// SearchQueriesHelper returns every query matching req, newest first.
//
// keywords is matched according to Config.SearchKeywordMode:
//   - title: title contains the keywords
//   - content_then_title: content matches when any query's content contains
//     the keywords, title matches otherwise
//   - any: title or content contains the keywords
//
// query_type then narrows the result to one category. Empty parameters are
// ignored; anything else, whitespace included, is matched as given.
func (api *API) SearchQueriesHelper(ctx context.Context, req model.SearchRequest) ([]model.Query, string, string, error) {
	keywords := req.Keywords
	queryType := req.QueryType

	var filter storage.QueryFilter
	if keywords != "" {
		switch api.Config.SearchKeywordMode {
		case config.KeywordModeAny:
			filter.AnyContains = keywords
		case config.KeywordModeContentThenTitle:
			n, err := api.Deps.Store.CountQueries(ctx, storage.QueryFilter{ContentContains: keywords})
			if err != nil {
				return nil, values.Error, "Error searching queries", err
			}
			if n > 0 {
				filter.ContentContains = keywords
			} else {
				filter.TitleContains = keywords
			}
		default:
			filter.TitleContains = keywords
		}
	}
	filter.QueryType = queryType

	queries, err := api.Deps.Store.ListQueries(ctx, filter, 0, 0)
	if err != nil {
		return nil, values.Error, "Error searching queries", err
	}
	return queries, values.Success, "Search completed", nil
}
