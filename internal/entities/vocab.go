package entities

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TranslationMap stores per-language glosses as a JSON text column,
// keyed by lowercase BCP-47 tags ("zh-cn", "en").
type TranslationMap map[string]string

func (m TranslationMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal translations: %w", err)
	}
	return string(data), nil
}

func (m *TranslationMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported translations column type %T", value)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	return json.Unmarshal(data, m)
}

// TagList stores tags as a comma-separated text column.
type TagList []string

func (l TagList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	return strings.Join(l, ","), nil
}

func (l *TagList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var raw string
	switch v := value.(type) {
	case []byte:
		raw = string(v)
	case string:
		raw = v
	default:
		return fmt.Errorf("unsupported tags column type %T", value)
	}
	*l = nil
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

// Contains reports whether the list carries the given tag.
func (l TagList) Contains(tag string) bool {
	for _, t := range l {
		if t == tag {
			return true
		}
	}
	return false
}

// Add appends the tag unless it is already present.
func (l TagList) Add(tag string) TagList {
	if l.Contains(tag) {
		return l
	}
	return append(l, tag)
}

// Wordbook is a named collection of words. At most one wordbook is
// active at any time; imports and study queries target the active one.
type Wordbook struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:200" json:"name"`
	Language    string    `gorm:"size:20" json:"language"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	Author      string    `gorm:"size:100" json:"author,omitempty"`
	Version     string    `gorm:"size:20" json:"version,omitempty"`
	TotalWords  int       `json:"total_words"`
	IsActive    bool      `gorm:"index" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Words []Word `gorm:"foreignKey:WordbookID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Wordbook) TableName() string {
	return "wordbooks"
}

// Word is a vocabulary entry. (wordbook_id, lemma, pos) is unique;
// LemmaFolded and SearchText are denormalized columns the store
// maintains for the suggest index and the FTS triggers.
type Word struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	WordbookID   uint           `gorm:"index;uniqueIndex:idx_words_identity,priority:1" json:"wordbook_id"`
	Lemma        string         `gorm:"size:200;index;uniqueIndex:idx_words_identity,priority:2" json:"lemma"`
	Pos          string         `gorm:"size:20;index;uniqueIndex:idx_words_identity,priority:3" json:"pos,omitempty"`
	Gender       string         `gorm:"size:1" json:"gender,omitempty"`
	IPA          string         `gorm:"size:200" json:"ipa,omitempty"`
	MeaningText  string         `gorm:"type:text" json:"meaning_text,omitempty"`
	Translations TranslationMap `gorm:"type:text" json:"translations,omitempty"`
	Lesson       string         `gorm:"size:20;index" json:"lesson,omitempty"`
	CEFR         string         `gorm:"size:2;index" json:"cefr,omitempty"`
	Tags         TagList        `gorm:"type:text;size:500" json:"tags,omitempty"`
	LemmaFolded  string         `gorm:"size:200;index" json:"-"`
	SearchText   string         `gorm:"type:text" json:"-"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	Cards []Card `gorm:"foreignKey:WordID;constraint:OnDelete:CASCADE" json:"cards,omitempty"`
}

func (Word) TableName() string {
	return "words"
}

// MeaningZh is the legacy single-language gloss, derived from the
// translations map with MeaningText as the last resort. New clients
// should read Translations directly.
func (w Word) MeaningZh() string {
	if v, ok := w.Translations["zh-cn"]; ok && v != "" {
		return v
	}
	if v, ok := w.Translations["zh"]; ok && v != "" {
		return v
	}
	return w.MeaningText
}

// MarshalJSON adds the derived meaning_zh alias to the wire form.
func (w Word) MarshalJSON() ([]byte, error) {
	type wordAlias Word
	return json.Marshal(struct {
		wordAlias
		MeaningZh string `json:"meaning_zh,omitempty"`
	}{wordAlias(w), w.MeaningZh()})
}

// Card templates.
const (
	CardTemplateBasic   = "basic"
	CardTemplateReverse = "reverse"
	CardTemplateCloze   = "cloze"
	CardTemplateChoice  = "choice"
)

// Card is a study unit derived from a word. Its lifetime is coupled to
// the word (cascade delete). The default import creates one basic card
// per word.
type Card struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	WordID    uint      `gorm:"index;uniqueIndex:idx_cards_identity,priority:1" json:"word_id"`
	Template  string    `gorm:"size:50;default:basic;uniqueIndex:idx_cards_identity,priority:2" json:"template"`
	Hint      string    `gorm:"type:text" json:"hint,omitempty"`
	Tags      TagList   `gorm:"type:text;size:500" json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Word     Word      `gorm:"foreignKey:WordID" json:"-"`
	SRSState *SRSState `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"srs_state,omitempty"`
	Reviews  []Review  `gorm:"foreignKey:CardID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Card) TableName() string {
	return "cards"
}
