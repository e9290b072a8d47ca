package formatters

import (
	"encoding/json"
	"fmt"
	"slices"

	"tendermatch/internal/types"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

const (
	typeAnalysis  = "AnalysisReport"
	typeRanking   = "RankingReport"
	typeTender    = "TenderRequirements"
	typeCandidate = "CandidateProfile"
)

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", typeAnalysis, &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", typeAnalysis, &AnalysisMarkdownFormatter{})
	registry.RegisterFormatter("text", typeRanking, &RankingTextFormatter{})
	registry.RegisterFormatter("markdown", typeRanking, &RankingMarkdownFormatter{})
	registry.RegisterFormatter("text", typeTender, &TenderTextFormatter{})
	registry.RegisterFormatter("markdown", typeTender, &TenderMarkdownFormatter{})
	registry.RegisterFormatter("text", typeCandidate, &CandidateTextFormatter{})
	registry.RegisterFormatter("markdown", typeCandidate, &CandidateMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisReport, *types.AnalysisReport:
		return typeAnalysis
	case types.RankingReport, *types.RankingReport:
		return typeRanking
	case types.TenderRequirements, *types.TenderRequirements:
		return typeTender
	case types.CandidateProfile, *types.CandidateProfile:
		return typeCandidate
	default:
		return "any"
	}
}

// as unwraps data into T, accepting both values and non-nil pointers
func as[T any](data any) (T, error) {
	switch v := data.(type) {
	case T:
		return v, nil
	case *T:
		if v != nil {
			return *v, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("expected %T, got %T", zero, data)
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// GlobalRegistry is the registry used by the CLI
var GlobalRegistry = NewFormatterRegistry()
