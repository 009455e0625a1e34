package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionType 题型
type QuestionType string

const (
	QuestionMultipleChoice      QuestionType = "multiple_choice"
	QuestionPronunciation       QuestionType = "pronunciation"
	QuestionWordDefinition      QuestionType = "word_definition"
	QuestionSentenceTranslation QuestionType = "sentence_translation"
	QuestionFillBlank           QuestionType = "fill_blank"
)

// KnownQuestionType 判断题型是否受支持
func KnownQuestionType(t QuestionType) bool {
	switch t {
	case QuestionMultipleChoice, QuestionPronunciation, QuestionWordDefinition,
		QuestionSentenceTranslation, QuestionFillBlank:
		return true
	}
	return false
}

// QuestionContent 题目内容的和类型表示：Type 决定哪个分支有效，
// 其余分支必须为 nil。与题型无关的字段不在这里出现。
type QuestionContent struct {
	Type                QuestionType                `json:"type"`
	MultipleChoice      *MultipleChoiceContent      `json:"multiple_choice,omitempty"`
	Pronunciation       *PronunciationContent       `json:"pronunciation,omitempty"`
	WordDefinition      *WordDefinitionContent      `json:"word_definition,omitempty"`
	SentenceTranslation *SentenceTranslationContent `json:"sentence_translation,omitempty"`
	FillBlank           *FillBlankContent           `json:"fill_blank,omitempty"`
}

type MultipleChoiceContent struct {
	Prompt string `json:"prompt"`
}

type PronunciationContent struct {
	Word    string `json:"word"`
	Romaji  string `json:"romaji"`
	Meaning string `json:"meaning"`
}

type WordDefinitionPair struct {
	Word       string `json:"word"`
	Definition string `json:"definition"`
}

type WordDefinitionContent struct {
	Pairs []WordDefinitionPair `json:"pairs"`
}

type SentenceTranslationContent struct {
	Sentence string `json:"sentence"`
	Answer   string `json:"answer"`
}

type FillBlankContent struct {
	Text    string   `json:"text"`
	Answers []string `json:"answers"`
}

// Validate 检查内容是否足以入库。只校验当前题型需要的字段，
// 与题型无关的分支一律忽略。
func (c QuestionContent) Validate() error {
	switch c.Type {
	case QuestionMultipleChoice:
		if c.MultipleChoice == nil || strings.TrimSpace(c.MultipleChoice.Prompt) == "" {
			return fmt.Errorf("multiple_choice question requires a prompt")
		}
	case QuestionPronunciation:
		p := c.Pronunciation
		if p == nil {
			return fmt.Errorf("pronunciation question requires word, romaji and meaning")
		}
		if strings.TrimSpace(p.Word) == "" || strings.TrimSpace(p.Romaji) == "" || strings.TrimSpace(p.Meaning) == "" {
			return fmt.Errorf("pronunciation question requires word, romaji and meaning")
		}
	case QuestionWordDefinition:
		w := c.WordDefinition
		if w == nil || len(w.Pairs) == 0 {
			return fmt.Errorf("word_definition question requires at least one pair")
		}
		for _, pair := range w.Pairs {
			if strings.TrimSpace(pair.Word) == "" || strings.TrimSpace(pair.Definition) == "" {
				return fmt.Errorf("word_definition pair requires both word and definition")
			}
		}
	case QuestionSentenceTranslation:
		s := c.SentenceTranslation
		if s == nil || strings.TrimSpace(s.Sentence) == "" {
			return fmt.Errorf("sentence_translation question requires a sentence")
		}
	case QuestionFillBlank:
		f := c.FillBlank
		if f == nil || strings.TrimSpace(f.Text) == "" || len(f.Answers) == 0 {
			return fmt.Errorf("fill_blank question requires text and answers")
		}
	default:
		return fmt.Errorf("unknown question type %q", c.Type)
	}
	return nil
}

// Marshal 序列化为存储用的 JSON
func (c QuestionContent) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// ParseQuestionContent 从存储列还原
func ParseQuestionContent(data []byte) (QuestionContent, error) {
	var c QuestionContent
	if len(data) == 0 {
		return c, fmt.Errorf("empty question content")
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("parse question content: %w", err)
	}
	return c, nil
}
