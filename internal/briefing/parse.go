package briefing

import (
	"encoding/json"
	"regexp"
	"strings"

	"snowbrief/internal/types"
)

// The model is instructed to answer with bare JSON, but models habitually
// wrap output in a markdown code fence anyway. Only a leading ```json fence
// (case-insensitive) and a trailing closing fence are removed; anything else
// must parse as-is.
var (
	openingFencePattern = regexp.MustCompile("(?i)^```json\\s*")
	closingFencePattern = regexp.MustCompile("\\s*```$")
)

// oraclePayload is the provisional shape parsed from the model's response
// before field-level validation.
type oraclePayload struct {
	Briefing                string          `json:"briefing"`
	Problems                []oracleProblem `json:"problems"`
	SourceURL               string          `json:"sourceUrl"`
	SourceCenter            string          `json:"sourceCenter"`
	Disclaimer              string          `json:"disclaimer"`
	FieldObservationPrompts []string        `json:"fieldObservationPrompts"`
}

type oracleProblem struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	Likelihood     string `json:"likelihood"`
	Size           string `json:"size"`
	OfficialSource bool   `json:"officialSource"`
}

// StripCodeFences removes an optional markdown code-fence wrapper from the
// model's response text.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = openingFencePattern.ReplaceAllString(text, "")
	text = closingFencePattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// ParseOracleResponse validates the model's raw response text against the
// briefing contract. Parse failures are fatal for the request and never
// retried: re-asking a non-deterministic model the same question risks
// inconsistent output and doubled cost, so the error is surfaced and a
// human-triggered regenerate is the recovery path.
//
// When requireLiability is set (the mentor contract), a missing disclaimer or
// source URL fails with ErrCodeAIResponseIncomplete.
func ParseOracleResponse(raw string, requireLiability bool) (*oraclePayload, error) {
	text := StripCodeFences(raw)

	var payload oraclePayload
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeAIResponseMalformed,
			"model response is not valid JSON",
			err,
		)
	}

	if strings.TrimSpace(payload.Briefing) == "" {
		return nil, types.NewAppError(
			types.ErrCodeAIResponseIncomplete,
			"model response is missing the briefing narrative",
			nil,
		)
	}

	if requireLiability {
		missing := make([]string, 0, 2)
		if strings.TrimSpace(payload.Disclaimer) == "" {
			missing = append(missing, "disclaimer")
		}
		if strings.TrimSpace(payload.SourceURL) == "" {
			missing = append(missing, "sourceUrl")
		}
		if len(missing) > 0 {
			return nil, types.NewAppErrorWithDetails(
				types.ErrCodeAIResponseIncomplete,
				"model response is missing mandatory liability fields",
				nil,
				map[string]any{"missing": missing},
			)
		}
	}

	return &payload, nil
}
