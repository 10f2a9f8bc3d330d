package recognition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrMalformedResponse is returned when a model reply does not match the declared shape.
var ErrMalformedResponse = errors.New("malformed recognition response")

type fieldType string

const (
	typeObject  fieldType = "object"
	typeBoolean fieldType = "boolean"
	typeNumber  fieldType = "number"
	typeString  fieldType = "string"
)

// schemaField is a provider-neutral description of the JSON reply we ask for.
// Each provider translates it into its own structured-output format.
type schemaField struct {
	Type        fieldType
	Description string
	Properties  map[string]*schemaField
	Order       []string // property order, also used for required fields
	Optional    map[string]bool
}

func (s *schemaField) required() []string {
	var out []string
	for _, name := range s.Order {
		if !s.Optional[name] {
			out = append(out, name)
		}
	}
	return out
}

// jsonSchema renders the field as a JSON Schema document.
func (s *schemaField) jsonSchema() map[string]any {
	m := map[string]any{"type": string(s.Type)}
	if s.Description != "" {
		m["description"] = s.Description
	}
	if s.Type == typeObject {
		props := make(map[string]any, len(s.Properties))
		for _, name := range s.Order {
			props[name] = s.Properties[name].jsonSchema()
		}
		m["properties"] = props
		m["required"] = s.required()
		m["additionalProperties"] = false
	}
	return m
}

var analysisSchema = &schemaField{
	Type: typeObject,
	Properties: map[string]*schemaField{
		"liveness":           {Type: typeBoolean, Description: "True if the subject is a live human"},
		"lighting":           {Type: typeString},
		"focus":              {Type: typeString},
		"landmarks_detected": {Type: typeBoolean},
		"risk_score":         {Type: typeNumber, Description: "Spoof risk 0 to 100, 0 is perfect"},
	},
	Order:    []string{"liveness", "lighting", "focus", "landmarks_detected", "risk_score"},
	Optional: map[string]bool{"landmarks_detected": true, "risk_score": true},
}

var enrollmentSchema = &schemaField{
	Type: typeObject,
	Properties: map[string]*schemaField{
		"match":      {Type: typeBoolean, Description: "True if face is valid for enrollment"},
		"confidence": {Type: typeNumber, Description: "Quality confidence 0 to 1"},
		"message":    {Type: typeString},
		"analysis":   analysisSchema,
	},
	Order: []string{"match", "confidence", "message", "analysis"},
}

var comparisonSchema = &schemaField{
	Type: typeObject,
	Properties: map[string]*schemaField{
		"match":      {Type: typeBoolean, Description: "True if both images show the same person"},
		"confidence": {Type: typeNumber, Description: "Identity confidence 0 to 1"},
		"message":    {Type: typeString},
	},
	Order: []string{"match", "confidence", "message"},
}

type wireAnalysis struct {
	Liveness          *bool    `json:"liveness"`
	Lighting          *string  `json:"lighting"`
	Focus             *string  `json:"focus"`
	LandmarksDetected *bool    `json:"landmarks_detected"`
	RiskScore         *float64 `json:"risk_score"`
}

type wireEnrollment struct {
	Match      *bool         `json:"match"`
	Confidence *float64      `json:"confidence"`
	Message    *string       `json:"message"`
	Analysis   *wireAnalysis `json:"analysis"`
}

type wireComparison struct {
	Match      *bool    `json:"match"`
	Confidence *float64 `json:"confidence"`
	Message    *string  `json:"message"`
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}

// decodeStrict decodes exactly one JSON object, rejecting unknown fields and trailing data.
func decodeStrict(content string, v any) error {
	if strings.TrimSpace(content) == "" {
		return malformed("empty response")
	}
	dec := json.NewDecoder(strings.NewReader(content))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return malformed("%v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return malformed("unexpected data after JSON object")
	}
	return nil
}

func checkCommon(match *bool, confidence *float64, message *string) error {
	switch {
	case match == nil:
		return malformed("missing field %q", "match")
	case confidence == nil:
		return malformed("missing field %q", "confidence")
	case message == nil:
		return malformed("missing field %q", "message")
	case *confidence < 0 || *confidence > 1:
		return malformed("confidence %v outside [0, 1]", *confidence)
	}
	return nil
}

// parseAnalysis validates an enrollment reply.
func parseAnalysis(content string) (*Result, error) {
	var w wireEnrollment
	if err := decodeStrict(content, &w); err != nil {
		return nil, err
	}
	if err := checkCommon(w.Match, w.Confidence, w.Message); err != nil {
		return nil, err
	}

	a := w.Analysis
	switch {
	case a == nil:
		return nil, malformed("missing field %q", "analysis")
	case a.Liveness == nil:
		return nil, malformed("missing field %q", "analysis.liveness")
	case a.Lighting == nil:
		return nil, malformed("missing field %q", "analysis.lighting")
	case a.Focus == nil:
		return nil, malformed("missing field %q", "analysis.focus")
	case a.RiskScore != nil && (*a.RiskScore < 0 || *a.RiskScore > 100):
		return nil, malformed("risk_score %v outside [0, 100]", *a.RiskScore)
	}

	return &Result{
		Match:      *w.Match,
		Confidence: *w.Confidence,
		Message:    *w.Message,
		Analysis: &Analysis{
			Liveness:          *a.Liveness,
			Lighting:          *a.Lighting,
			Focus:             *a.Focus,
			LandmarksDetected: a.LandmarksDetected,
			RiskScore:         a.RiskScore,
		},
	}, nil
}

// parseComparison validates an identity comparison reply.
func parseComparison(content string) (*Result, error) {
	var w wireComparison
	if err := decodeStrict(content, &w); err != nil {
		return nil, err
	}
	if err := checkCommon(w.Match, w.Confidence, w.Message); err != nil {
		return nil, err
	}
	return &Result{
		Match:      *w.Match,
		Confidence: *w.Confidence,
		Message:    *w.Message,
	}, nil
}

// extractJSON attempts to extract JSON from a response that may contain extra text
// such as markdown code fences. Local models do not always honor the format option.
func extractJSON(content string) string {
	start := strings.Index(content, "{")
	if start == -1 {
		return content
	}

	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1]
			}
		}
	}

	return content[start:]
}
