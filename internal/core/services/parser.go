package services

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/compliance-engine/internal/core/domain"
)

// parseExcerptLimit bounds the raw text quoted in a parse failure.
const parseExcerptLimit = 500

// jsonObjectPattern is greedy so nested objects are captured whole.
var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// Field aliases accepted from model replies, first match wins.
var (
	statusKeys          = []string{"status", "overallStatus", "overall_status", "validation_status"}
	reasoningKeys       = []string{"reasoning", "explanation", "rationale"}
	mappedContentKeys   = []string{"mappedContent", "mapped_content", "evidence_found", "evidenceFound"}
	citationKeys        = []string{"citations", "doc_references", "docReferences"}
	smartQuestionKeys   = []string{"smartQuestion", "smart_question", "smart_questions", "practical_task", "assessment_question"}
	benchmarkAnswerKeys = []string{"benchmarkAnswer", "benchmark_answer", "model_answer"}
	recommendationKeys  = []string{"recommendations", "unmapped_content", "improvement_suggestions"}
)

// ResponseParser converts raw model output into a validation result.
// It never fails: unusable output becomes an Error record.
type ResponseParser struct{}

// NewResponseParser creates a parser.
func NewResponseParser() *ResponseParser {
	return &ResponseParser{}
}

// Parse tries the whole reply as JSON, then the outermost {...} block, then
// the first balanced {...} block, and otherwise returns an Error record quoting the start of the reply.
// Requirement fields always come from req.
func (p *ResponseParser) Parse(raw string, req domain.Requirement, docType domain.DocumentType) domain.ValidationResult {
	fields, ok := decodeObject(raw)
	if !ok {
		return domain.ErrorResult(0, req, docType, "Failed to parse model response: "+excerpt(raw, parseExcerptLimit))
	}

	return domain.ValidationResult{
		RequirementType:   req.Type,
		RequirementNumber: req.Number,
		RequirementText:   req.Text,
		Status:            domain.ParseResultStatus(lookup(fields, statusKeys)),
		Reasoning:         lookup(fields, reasoningKeys),
		MappedContent:     lookup(fields, mappedContentKeys),
		Citations:         lookup(fields, citationKeys),
		SmartQuestion:     lookup(fields, smartQuestionKeys),
		BenchmarkAnswer:   lookup(fields, benchmarkAnswerKeys),
		Recommendations:   lookup(fields, recommendationKeys),
		DocumentType:      docType,
	}
}

func decodeObject(raw string) (map[string]any, bool) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, false
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err == nil && fields != nil {
		return fields, true
	}

	block := jsonObjectPattern.FindString(text)
	if block == "" {
		return nil, false
	}
	fields = nil
	if err := json.Unmarshal([]byte(block), &fields); err == nil && fields != nil {
		return fields, true
	}

	block = firstObject(text)
	if block == "" {
		return nil, false
	}
	fields = nil
	if err := json.Unmarshal([]byte(block), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

// firstObject returns the brace-balanced block starting at the first '{'.
// Braces inside string literals are ignored.
func firstObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code fence.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	} else {
		text = strings.TrimPrefix(text, "```")
	}
	text = strings.TrimSpace(text)
	return strings.TrimSpace(strings.TrimSuffix(text, "```"))
}

func lookup(fields map[string]any, keys []string) string {
	for _, k := range keys {
		if v, ok := fields[k]; ok && v != nil {
			if s := fieldString(v); s != "" {
				return s
			}
		}
	}
	return ""
}

// fieldString renders scalars as text and arrays or objects as JSON.
func fieldString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case []any:
		if len(val) == 0 {
			return ""
		}
	case map[string]any:
		if len(val) == 0 {
			return ""
		}
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}

func excerpt(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit])
}
