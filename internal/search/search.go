// Package search answers prefix-suggest and ranked word queries on top
// of the store's full-text index. It never writes.
package search

import (
	"strings"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/database/words"
	"github.com/mrlokans/wordflow/internal/entities"
)

// Service runs search queries against one wordbook at a time.
type Service struct {
	words *words.Repository
}

// NewService creates a search service.
func NewService(wordRepo *words.Repository) *Service {
	return &Service{words: wordRepo}
}

// Suggest returns up to limit distinct lemmas whose case- and
// diacritic-folded form starts with q.
func (s *Service) Suggest(wordbookID uint, q string, limit int) ([]string, error) {
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return s.words.SuggestLemmas(wordbookID, q, limit)
}

// Request narrows a ranked search.
type Request struct {
	Q       string
	Lesson  string
	CEFR    string
	Pos     string
	Page    int
	PerPage int
}

// Result is a page of matches.
type Result struct {
	Words   []entities.Word `json:"words"`
	Total   int64           `json:"total"`
	Page    int             `json:"page"`
	PerPage int             `json:"per_page"`
}

// Search runs a ranked query. Without a term, rows come back ordered
// by lesson then lemma. With a term, rows are ranked by bm25 over
// lemma and glosses; query syntax the index rejects falls back to a
// plain substring match.
func (s *Service) Search(wordbookID uint, req Request) (*Result, error) {
	filter := words.Filter{
		WordbookID: wordbookID,
		Lesson:     strings.TrimSpace(req.Lesson),
		CEFR:       strings.ToUpper(strings.TrimSpace(req.CEFR)),
		Pos:        strings.ToLower(strings.TrimSpace(req.Pos)),
		Page:       req.Page,
		PerPage:    req.PerPage,
	}

	q := strings.TrimSpace(req.Q)

	var (
		matched []entities.Word
		total   int64
		err     error
	)
	if q == "" {
		matched, total, err = s.words.Query(filter)
	} else {
		matched, total, err = s.words.MatchIndex(buildMatch(q), filter)
		if apperr.IsKind(err, apperr.BadInput) {
			matched, total, err = s.words.LikeFallback(stripOperators(q), filter)
		}
	}
	if err != nil {
		return nil, err
	}

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}
	if filter.PerPage > 100 {
		filter.PerPage = 100
	}
	return &Result{Words: matched, Total: total, Page: filter.Page, PerPage: filter.PerPage}, nil
}

// buildMatch translates the user query into an FTS expression:
// a quoted phrase matches the lemma column only, a trailing * on a
// token means prefix, and bare tokens are ANDed.
func buildMatch(q string) string {
	if phrase, ok := cutPhrase(q); ok {
		return `lemma: "` + escapePhrase(phrase) + `"`
	}

	tokens := strings.Fields(q)
	parts := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		prefix := strings.HasSuffix(tok, "*")
		tok = strings.Trim(tok, `*"'`)
		if tok == "" {
			continue
		}
		quoted := `"` + escapePhrase(tok) + `"`
		if prefix {
			quoted += "*"
		}
		parts = append(parts, quoted)
	}
	return strings.Join(parts, " AND ")
}

// cutPhrase detects a fully quoted query.
func cutPhrase(q string) (string, bool) {
	if len(q) >= 2 && strings.HasPrefix(q, `"`) && strings.HasSuffix(q, `"`) {
		return q[1 : len(q)-1], true
	}
	return "", false
}

// escapePhrase doubles embedded quotes, the FTS5 string escape.
func escapePhrase(s string) string {
	return strings.ReplaceAll(s, `"`, `""`)
}

// stripOperators reduces the query to a plain term for the LIKE
// fallback.
func stripOperators(q string) string {
	return strings.Trim(strings.TrimSpace(q), `*"'`)
}
