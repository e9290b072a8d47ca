package analysis

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"tendermatch/internal/errors"
	"tendermatch/internal/types"
)

// extractionSchema is deliberately loose: it only rejects values of the wrong
// shape. Key aliases are resolved after this check.
const extractionSchema = `{
  "type": "object",
  "properties": {
    "role":                     {"type": ["string", "null"]},
    "title":                    {"type": ["string", "null"]},
    "position":                 {"type": ["string", "null"]},
    "skills":                   {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "required_skills":          {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "experience_years":         {"type": ["integer", "number", "string", "null"]},
    "minimum_experience_years": {"type": ["integer", "number", "string", "null"]},
    "min_experience_years":     {"type": ["integer", "number", "string", "null"]},
    "certifications":           {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "required_certifications":  {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "sector":                   {"type": ["string", "null"]},
    "industry":                 {"type": ["string", "null"]},
    "constraints":              {"type": ["array", "string", "null"], "items": {"type": "string"}}
  }
}`

var (
	schemaLoader = gojsonschema.NewStringLoader(extractionSchema)
	validate     = validator.New()
	firstNumber  = regexp.MustCompile(`\d+`)
)

// rawExtraction mirrors every key spelling an extractor is known to return.
// Keys are matched after normalizeKey, so tags are lowercase without separators.
type rawExtraction struct {
	Role                   string   `mapstructure:"role"`
	Title                  string   `mapstructure:"title"`
	Position               string   `mapstructure:"position"`
	Skills                 []string `mapstructure:"skills"`
	RequiredSkills         []string `mapstructure:"requiredskills"`
	ExperienceYears        any      `mapstructure:"experienceyears"`
	MinimumExperienceYears any      `mapstructure:"minimumexperienceyears"`
	MinExperienceYears     any      `mapstructure:"minexperienceyears"`
	Certifications         []string `mapstructure:"certifications"`
	RequiredCertifications []string `mapstructure:"requiredcertifications"`
	Sector                 string   `mapstructure:"sector"`
	Industry               string   `mapstructure:"industry"`
	Constraints            []string `mapstructure:"constraints"`
}

// extractedTender is the normalized record checked before it replaces the regex path.
type extractedTender struct {
	Role            string   `validate:"required,max=200"`
	Skills          []string `validate:"max=100,dive,required,max=200"`
	ExperienceYears int      `validate:"gte=0,lte=70"`
	Certifications  []string `validate:"max=50,dive,required,max=200"`
	Sector          string   `validate:"required,max=200"`
	Constraints     []string `validate:"max=50,dive,required,max=500"`
}

// NormalizeExtraction turns an extractor's loosely shaped object into
// TenderRequirements. It resolves key aliases, accepts lists as arrays or
// comma separated strings and years as numbers or text. A result with neither
// a role nor any skill is rejected.
func NormalizeExtraction(raw map[string]any) (types.TenderRequirements, error) {
	if raw == nil {
		return types.TenderRequirements{}, invalidExtraction("extractor returned no object", nil)
	}

	keyed := make(map[string]any, len(raw))
	for k, v := range raw {
		keyed[normalizeKey(k)] = v
	}

	if err := checkSchema(raw); err != nil {
		return types.TenderRequirements{}, err
	}

	var r rawExtraction
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &r,
	})
	if err != nil {
		return types.TenderRequirements{}, invalidExtraction("failed to build decoder", err)
	}
	if err := decoder.Decode(keyed); err != nil {
		return types.TenderRequirements{}, invalidExtraction("extraction has unexpected field types", err)
	}

	years, err := firstYears(r.ExperienceYears, r.MinimumExperienceYears, r.MinExperienceYears)
	if err != nil {
		return types.TenderRequirements{}, invalidExtraction("experience years is not a number", err)
	}

	tender := extractedTender{
		Role:            orNotSpecified(firstString(r.Role, r.Title, r.Position)),
		Skills:          splitList(firstList(r.Skills, r.RequiredSkills)),
		ExperienceYears: years,
		Certifications:  splitList(firstList(r.Certifications, r.RequiredCertifications)),
		Sector:          orNotSpecified(firstString(r.Sector, r.Industry)),
		Constraints:     splitList(r.Constraints),
	}

	if err := validate.Struct(tender); err != nil {
		return types.TenderRequirements{}, invalidExtraction("extraction failed validation", err)
	}
	if tender.Role == types.NotSpecified && len(tender.Skills) == 0 {
		return types.TenderRequirements{}, invalidExtraction("extraction has neither role nor skills", nil)
	}

	return types.TenderRequirements(tender), nil
}

func checkSchema(raw map[string]any) error {
	// validate against snake_case spellings so camelCase or spaced keys are still checked
	canonical := make(map[string]any, len(raw))
	for k, v := range raw {
		canonical[snakeKey(k)] = v
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(canonical))
	if err != nil {
		return invalidExtraction("extraction could not be checked", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			msgs = append(msgs, desc.String())
		}
		return invalidExtraction("extraction has unexpected shape", fmt.Errorf("%s", strings.Join(msgs, "; ")))
	}
	return nil
}

func invalidExtraction(msg string, cause error) error {
	return errors.NewAIError(errors.ErrCodeAIResponseInvalid, msg, cause)
}

// normalizeKey folds "Minimum Experience Years", "minimumExperienceYears" and
// "minimum_experience_years" to the same key.
func normalizeKey(k string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(k) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// snakeKey converts camelCase and spaced keys to snake_case.
func snakeKey(k string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(k) {
		switch {
		case unicode.IsUpper(r):
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		case r == ' ' || r == '-':
			b.WriteByte('_')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(b.String(), "__", "_")
}

func firstString(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func firstList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}

// splitList trims items and splits any that still hold comma separated values.
func splitList(items []string) []string {
	out := []string{}
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// firstYears returns the first value that is set. Text such as "5+ years" yields its first number.
func firstYears(values ...any) (int, error) {
	for _, v := range values {
		switch n := v.(type) {
		case nil:
			continue
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			return int(n), nil
		case string:
			if strings.TrimSpace(n) == "" {
				continue
			}
			digits := firstNumber.FindString(n)
			if digits == "" {
				return 0, nil
			}
			return strconv.Atoi(digits)
		default:
			return 0, fmt.Errorf("unsupported type %T", v)
		}
	}
	return 0, nil
}

func orNotSpecified(v string) string {
	if v == "" {
		return types.NotSpecified
	}
	return v
}
