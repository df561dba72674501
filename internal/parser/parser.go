// Package parser decodes CSV, TSV and JSON vocabulary payloads into a
// stream of normalized word records.
//
// The parser never touches the database and never materializes the
// whole input as records: callers pull rows one at a time through
// Next() so the importer can batch inserts. Per-row problems are
// reported as *RowError values, not as stream failures.
package parser

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mrlokans/wordflow/internal/apperr"
	"github.com/mrlokans/wordflow/internal/textutil"
)

// Format of the input payload.
type Format string

const (
	FormatAuto Format = "auto"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
)

// Record is one normalized vocabulary row.
type Record struct {
	Row          int
	Lemma        string
	Pos          string
	Gender       string
	IPA          string
	MeaningText  string
	Translations map[string]string
	Lesson       string
	CEFR         string
	Tags         []string
	Hint         string
	Warnings     []string // tolerated drops, e.g. an invalid cefr value
}

// RowError reports a row that could not produce a record. The stream
// continues after it.
type RowError struct {
	Row     int
	Missing string
	Reason  string
}

func (e *RowError) Error() string {
	if e.Missing != "" {
		return fmt.Sprintf("row %d: missing %s", e.Row, e.Missing)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

// Stream is a lazy sequence of records. Next returns io.EOF when the
// input is exhausted.
type Stream interface {
	Next() (*Record, error)
	// TotalHint is the known record count, or -1 when the format
	// cannot tell without reading everything.
	TotalHint() int
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// emptyStream serves zero-byte and whitespace-only payloads.
type emptyStream struct{}

func (emptyStream) TotalHint() int { return 0 }

func (emptyStream) Next() (*Record, error) { return nil, io.EOF }

// New builds a stream over an in-memory payload. With FormatAuto the
// format is inferred from a content sniff, then the filename suffix,
// then a comma-vs-tab count over the first kilobyte.
func New(data []byte, filename string, format Format) (Stream, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		// An empty upload is a valid import of zero words, not an error.
		return emptyStream{}, nil
	}
	if format == "" || format == FormatAuto {
		format = sniff(data, filename)
	}

	switch format {
	case FormatJSON:
		return newJSONStream(data)
	case FormatCSV:
		return newDelimitedStream(data, ','), nil
	case FormatTSV:
		return newDelimitedStream(data, '\t'), nil
	default:
		return nil, apperr.Newf(apperr.BadInput, "unsupported format %q", format)
	}
}

func sniff(data []byte, filename string) Format {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return FormatJSON
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".json":
		return FormatJSON
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	}
	window := data
	if len(window) > 1024 {
		window = window[:1024]
	}
	if bytes.Count(window, []byte{'\t'}) > bytes.Count(window, []byte{','}) {
		return FormatTSV
	}
	return FormatCSV
}

// fieldTarget names a canonical record field.
type fieldTarget int

const (
	targetIgnore fieldTarget = iota
	targetLemma
	targetPos
	targetGender
	targetIPA
	targetLesson
	targetCEFR
	targetTags
	targetHint
	targetTranslation // with a language tag
)

// columnSpec is the resolved meaning of one source column.
type columnSpec struct {
	target fieldTarget
	lang   string // for targetTranslation
}

// resolveColumn maps a source column name to a canonical field.
// First match wins; unknown columns are ignored.
func resolveColumn(name string) columnSpec {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "lemma", "word", "term", "french":
		return columnSpec{target: targetLemma}
	case "meaning_zh", "meaning", "translation", "zh", "chinese":
		return columnSpec{target: targetTranslation, lang: "zh-cn"}
	case "meaning_en", "en", "english":
		return columnSpec{target: targetTranslation, lang: "en"}
	case "pos", "part_of_speech":
		return columnSpec{target: targetPos}
	case "gender", "genre":
		return columnSpec{target: targetGender}
	case "ipa", "phonetic":
		return columnSpec{target: targetIPA}
	case "lesson", "chapter", "unit":
		return columnSpec{target: targetLesson}
	case "cefr", "level":
		return columnSpec{target: targetCEFR}
	case "tags":
		return columnSpec{target: targetTags}
	case "hint":
		return columnSpec{target: targetHint}
	}
	if lang, ok := strings.CutPrefix(strings.ToLower(strings.TrimSpace(name)), "meaning_"); ok && lang != "" {
		return columnSpec{target: targetTranslation, lang: normalizeLang(lang)}
	}
	return columnSpec{target: targetIgnore}
}

func normalizeLang(lang string) string {
	lang = strings.ToLower(lang)
	if lang == "zh" {
		return "zh-cn"
	}
	return lang
}

var validCEFR = map[string]bool{"A1": true, "A2": true, "B1": true, "B2": true, "C1": true, "C2": true}

// assign writes one cell into the record, tolerating bad enum values.
func assign(rec *Record, spec columnSpec, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch spec.target {
	case targetLemma:
		rec.Lemma = textutil.NFC(value)
	case targetPos:
		rec.Pos = strings.ToLower(value)
	case targetGender:
		g := strings.ToLower(value)
		if g == "m" || g == "f" {
			rec.Gender = g
		} else {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("dropped invalid gender %q", value))
		}
	case targetIPA:
		rec.IPA = value
	case targetLesson:
		rec.Lesson = value
	case targetCEFR:
		level := strings.ToUpper(value)
		if validCEFR[level] {
			rec.CEFR = level
		} else {
			rec.Warnings = append(rec.Warnings, fmt.Sprintf("dropped invalid cefr %q", value))
		}
	case targetTags:
		rec.Tags = splitTags(value)
	case targetHint:
		rec.Hint = value
	case targetTranslation:
		if rec.Translations == nil {
			rec.Translations = map[string]string{}
		}
		rec.Translations[spec.lang] = value
	}
}

func splitTags(raw string) []string {
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ';' || r == ',' || r == '|'
	})
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			tags = append(tags, p)
		}
	}
	return tags
}

// finalize validates the assembled record and derives the primary
// gloss from the translations map.
func finalize(rec *Record) error {
	if rec.Lemma == "" {
		return &RowError{Row: rec.Row, Missing: "lemma"}
	}
	for _, lang := range []string{"zh-cn", "en"} {
		if v := rec.Translations[lang]; v != "" {
			rec.MeaningText = v
			break
		}
	}
	if rec.MeaningText == "" {
		for _, v := range rec.Translations {
			rec.MeaningText = v
			break
		}
	}
	return nil
}

// delimitedStream reads CSV or TSV rows. The header is row 1; data
// rows are numbered from 2 so diagnostics match what a spreadsheet
// shows.
type delimitedStream struct {
	reader  *csv.Reader
	columns []columnSpec
	row     int
	done    bool
}

func newDelimitedStream(data []byte, comma rune) *delimitedStream {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &delimitedStream{reader: r}
}

func (s *delimitedStream) TotalHint() int { return -1 }

func (s *delimitedStream) Next() (*Record, error) {
	if s.done {
		return nil, io.EOF
	}
	if s.columns == nil {
		header, err := s.reader.Read()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			s.done = true
			return nil, apperr.Wrap(apperr.BadInput, err, "cannot read header row")
		}
		s.row = 1
		s.columns = make([]columnSpec, len(header))
		hasLemma := false
		for i, name := range header {
			s.columns[i] = resolveColumn(name)
			if s.columns[i].target == targetLemma {
				hasLemma = true
			}
		}
		if !hasLemma {
			s.done = true
			return nil, apperr.New(apperr.BadInput, "no lemma column in header")
		}
	}

	cells, err := s.reader.Read()
	if err == io.EOF {
		s.done = true
		return nil, io.EOF
	}
	s.row++
	if err != nil {
		return nil, &RowError{Row: s.row, Reason: err.Error()}
	}

	rec := &Record{Row: s.row}
	for i, cell := range cells {
		if i >= len(s.columns) {
			break
		}
		assign(rec, s.columns[i], cell)
	}
	if err := finalize(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// jsonStream reads an array of objects, or a single object treated as
// a one-element array. Items are numbered from 1.
type jsonStream struct {
	items []map[string]json.RawMessage
	pos   int
}

func newJSONStream(data []byte) (*jsonStream, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	var items []map[string]json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var one map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, apperr.Wrap(apperr.BadInput, err, "invalid json payload")
		}
		items = []map[string]json.RawMessage{one}
	} else {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, apperr.Wrap(apperr.BadInput, err, "invalid json payload")
		}
	}
	return &jsonStream{items: items}, nil
}

func (s *jsonStream) TotalHint() int { return len(s.items) }

func (s *jsonStream) Next() (*Record, error) {
	if s.pos >= len(s.items) {
		return nil, io.EOF
	}
	item := s.items[s.pos]
	s.pos++
	row := s.pos

	rec := &Record{Row: row}
	for key, raw := range item {
		spec := resolveColumn(key)
		if spec.target == targetIgnore {
			continue
		}
		if spec.target == targetTags {
			// tags may come as a list or a delimited string
			var list []string
			if err := json.Unmarshal(raw, &list); err == nil {
				rec.Tags = list
				continue
			}
		}
		assign(rec, spec, scalarString(raw))
	}
	if err := finalize(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// scalarString renders a JSON scalar as text; lessons in particular
// arrive both as numbers and as strings.
func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
