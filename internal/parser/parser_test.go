package parser

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/wordflow/internal/apperr"
)

func drainAll(t *testing.T, s Stream) ([]*Record, []error) {
	t.Helper()
	var records []*Record
	var rowErrs []error
	for {
		rec, err := s.Next()
		if err == io.EOF {
			return records, rowErrs
		}
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		records = append(records, rec)
	}
}

func TestParseCSV(t *testing.T) {
	input := []byte("lemma,meaning_zh,meaning_en,pos,gender,ipa,lesson,cefr,tags,hint\n" +
		"bonjour,你好,hello,interj,,bɔ̃ʒuʁ,1,A1,greeting;basic,say it with a smile\n" +
		"pain,面包,bread,noun,m,pɛ̃,2,A1,food,\n")

	stream, err := New(input, "vocab.csv", FormatCSV)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 2)

	first := records[0]
	assert.Equal(t, 2, first.Row)
	assert.Equal(t, "bonjour", first.Lemma)
	assert.Equal(t, "你好", first.Translations["zh-cn"])
	assert.Equal(t, "hello", first.Translations["en"])
	assert.Equal(t, "你好", first.MeaningText)
	assert.Equal(t, "interj", first.Pos)
	assert.Equal(t, "bɔ̃ʒuʁ", first.IPA)
	assert.Equal(t, "1", first.Lesson)
	assert.Equal(t, "A1", first.CEFR)
	assert.Equal(t, []string{"greeting", "basic"}, first.Tags)
	assert.Equal(t, "say it with a smile", first.Hint)

	second := records[1]
	assert.Equal(t, 3, second.Row)
	assert.Equal(t, "m", second.Gender)
}

func TestParseTSV(t *testing.T) {
	input := []byte("word\ttranslation\tlesson\nfromage\t奶酪\t2\n")

	stream, err := New(input, "vocab.tsv", FormatAuto)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "fromage", records[0].Lemma)
	assert.Equal(t, "奶酪", records[0].Translations["zh-cn"])
	assert.Equal(t, "2", records[0].Lesson)
}

func TestParseJSONArray(t *testing.T) {
	input := []byte(`[
		{"lemma": "école", "meaning_zh": "学校", "lesson": 4, "cefr": "a1", "tags": ["school", "place"]},
		{"lemma": "livre", "meaning": "书", "tags": "object;school"}
	]`)

	stream, err := New(input, "vocab.json", FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, 2, stream.TotalHint())

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 2)

	assert.Equal(t, "école", records[0].Lemma)
	assert.Equal(t, "4", records[0].Lesson, "numeric lesson should come through as text")
	assert.Equal(t, "A1", records[0].CEFR, "cefr is uppercased")
	assert.Equal(t, []string{"school", "place"}, records[0].Tags)
	assert.Equal(t, []string{"object", "school"}, records[1].Tags, "string tags are split")
}

func TestParseJSONSingleObject(t *testing.T) {
	stream, err := New([]byte(`{"lemma": "merci", "meaning_zh": "谢谢"}`), "", FormatAuto)
	require.NoError(t, err)
	assert.Equal(t, 1, stream.TotalHint())

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "merci", records[0].Lemma)
}

func TestParseJSONInvalid(t *testing.T) {
	_, err := New([]byte(`{"lemma": `), "vocab.json", FormatJSON)
	assert.True(t, apperr.IsKind(err, apperr.BadInput))
}

func TestMissingLemmaRow(t *testing.T) {
	input := []byte("lemma,meaning_zh\nbonjour,你好\n,孤儿\nmerci,谢谢\n")

	stream, err := New(input, "vocab.csv", FormatCSV)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	assert.Len(t, records, 2, "rows around the bad one still parse")
	require.Len(t, rowErrs, 1)

	var rowErr *RowError
	require.ErrorAs(t, rowErrs[0], &rowErr)
	assert.Equal(t, 3, rowErr.Row)
	assert.Equal(t, "lemma", rowErr.Missing)
}

func TestHeaderWithoutLemmaColumn(t *testing.T) {
	stream, err := New([]byte("color,size\nred,big\n"), "vocab.csv", FormatCSV)
	require.NoError(t, err)

	_, err = stream.Next()
	assert.True(t, apperr.IsKind(err, apperr.BadInput))
	assert.Contains(t, err.Error(), "no lemma column")
}

func TestEmptyInput(t *testing.T) {
	for _, payload := range [][]byte{nil, []byte(""), []byte("  \n\t\n")} {
		stream, err := New(payload, "vocab.csv", FormatAuto)
		require.NoError(t, err)
		assert.Equal(t, 0, stream.TotalHint())

		_, err = stream.Next()
		assert.ErrorIs(t, err, io.EOF, "an empty upload is a zero-word import")
	}
}

func TestInvalidEnumsAreWarnings(t *testing.T) {
	input := []byte("lemma,gender,cefr\nchat,x,Z9\n")

	stream, err := New(input, "vocab.csv", FormatCSV)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Empty(t, rec.Gender)
	assert.Empty(t, rec.CEFR)
	assert.Len(t, rec.Warnings, 2)
}

func TestBOMStripped(t *testing.T) {
	input := append([]byte{0xEF, 0xBB, 0xBF}, []byte("lemma,meaning_zh\neau,水\n")...)

	stream, err := New(input, "vocab.csv", FormatAuto)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "eau", records[0].Lemma)
}

func TestGenericMeaningColumns(t *testing.T) {
	input := []byte("lemma,meaning_de,meaning_JA\nhallo,Hallo,こんにちは\n")

	stream, err := New(input, "vocab.csv", FormatCSV)
	require.NoError(t, err)

	records, rowErrs := drainAll(t, stream)
	require.Empty(t, rowErrs)
	require.Len(t, records, 1)
	assert.Equal(t, "Hallo", records[0].Translations["de"])
	assert.Equal(t, "こんにちは", records[0].Translations["ja"])
	assert.NotEmpty(t, records[0].MeaningText, "a gloss is derived even without zh/en")
}

func TestMeaningFallbackOrder(t *testing.T) {
	input := []byte("lemma,meaning_en,meaning_zh\nchien,dog,狗\n")

	stream, err := New(input, "vocab.csv", FormatCSV)
	require.NoError(t, err)

	records, _ := drainAll(t, stream)
	require.Len(t, records, 1)
	assert.Equal(t, "狗", records[0].MeaningText, "zh-cn wins over en")
}

func TestUnsupportedFormat(t *testing.T) {
	_, err := New([]byte("a,b\n"), "vocab.csv", Format("xml"))
	assert.True(t, apperr.IsKind(err, apperr.BadInput))
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		filename string
		expected Format
	}{
		{"json by leading bracket", `[{"lemma":"a"}]`, "data.txt", FormatJSON},
		{"json by extension", "lemma,zh\n", "data.json", FormatJSON},
		{"csv by extension", "lemma,zh\n", "data.csv", FormatCSV},
		{"tsv by extension", "lemma\tzh\n", "data.tsv", FormatTSV},
		{"tab majority", "lemma\tzh\na\tb\n", "data.txt", FormatTSV},
		{"comma default", "lemma,zh\na,b\n", "data.txt", FormatCSV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sniff([]byte(tt.data), tt.filename))
		})
	}
}

func TestResolveColumnAliases(t *testing.T) {
	assert.Equal(t, targetLemma, resolveColumn("French").target)
	assert.Equal(t, targetLemma, resolveColumn(" word ").target)
	assert.Equal(t, "zh-cn", resolveColumn("chinese").lang)
	assert.Equal(t, "en", resolveColumn("english").lang)
	assert.Equal(t, targetIgnore, resolveColumn("whatever").target)
	assert.Equal(t, targetIgnore, resolveColumn("meaning_").target)
}
