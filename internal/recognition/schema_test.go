package recognition

import (
	"errors"
	"testing"

	"google.golang.org/genai"
)

func TestParseAnalysis_Valid(t *testing.T) {
	content := `{"match": true, "confidence": 0.93, "message": "Good capture",
		"analysis": {"liveness": true, "lighting": "good", "focus": "sharp", "landmarks_detected": true, "risk_score": 4}}`

	res, err := parseAnalysis(content)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}
	if !res.Match || res.Confidence != 0.93 || res.Message != "Good capture" {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Analysis == nil || !res.Analysis.Liveness {
		t.Fatalf("expected analysis with liveness, got %+v", res.Analysis)
	}
	if res.Analysis.RiskScore == nil || *res.Analysis.RiskScore != 4 {
		t.Errorf("expected risk score 4, got %v", res.Analysis.RiskScore)
	}
}

func TestParseAnalysis_OptionalFieldsAbsent(t *testing.T) {
	content := `{"match": false, "confidence": 0.2, "message": "Too dark",
		"analysis": {"liveness": false, "lighting": "poor", "focus": "blurry"}}`

	res, err := parseAnalysis(content)
	if err != nil {
		t.Fatalf("parseAnalysis failed: %v", err)
	}
	if res.Analysis.LandmarksDetected != nil {
		t.Error("expected nil landmarks_detected")
	}
	if res.Analysis.RiskScore != nil {
		t.Error("expected nil risk_score")
	}
}

func TestParseAnalysis_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"not json", "I cannot help with that"},
		{"missing match", `{"confidence": 0.5, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b"}}`},
		{"missing analysis", `{"match": true, "confidence": 0.5, "message": "x"}`},
		{"missing liveness", `{"match": true, "confidence": 0.5, "message": "x", "analysis": {"lighting": "a", "focus": "b"}}`},
		{"wrong type", `{"match": "yes", "confidence": 0.5, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b"}}`},
		{"confidence above 1", `{"match": true, "confidence": 87, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b"}}`},
		{"negative confidence", `{"match": true, "confidence": -0.1, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b"}}`},
		{"risk out of range", `{"match": true, "confidence": 0.5, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b", "risk_score": 101}}`},
		{"unknown field", `{"match": true, "confidence": 0.5, "message": "x", "extra": 1, "analysis": {"liveness": true, "lighting": "a", "focus": "b"}}`},
		{"trailing data", `{"match": true, "confidence": 0.5, "message": "x", "analysis": {"liveness": true, "lighting": "a", "focus": "b"}} {}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnalysis(tt.content)
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("expected ErrMalformedResponse, got %v", err)
			}
		})
	}
}

func TestParseComparison(t *testing.T) {
	res, err := parseComparison(`{"match": true, "confidence": 0.91, "message": "Same person"}`)
	if err != nil {
		t.Fatalf("parseComparison failed: %v", err)
	}
	if !res.Match || res.Confidence != 0.91 {
		t.Errorf("unexpected result: %+v", res)
	}
	if res.Analysis != nil {
		t.Error("comparison result should not carry analysis")
	}

	if _, err := parseComparison(`{"match": true, "message": "no confidence"}`); !errors.Is(err, ErrMalformedResponse) {
		t.Errorf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`{"a": 1}`, `{"a": 1}`},
		{"```json\n{\"a\": {\"b\": 2}}\n```", `{"a": {"b": 2}}`},
		{`Here you go: {"a": 1} thanks`, `{"a": 1}`},
		{`no json`, `no json`},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.input); got != tt.expected {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestJSONSchema_RequiredFields(t *testing.T) {
	schema := enrollmentSchema.jsonSchema()

	required, ok := schema["required"].([]string)
	if !ok {
		t.Fatalf("expected required list, got %T", schema["required"])
	}
	if len(required) != 4 {
		t.Errorf("expected 4 required fields, got %v", required)
	}
	if schema["additionalProperties"] != false {
		t.Error("expected additionalProperties false")
	}

	props := schema["properties"].(map[string]any)
	analysis := props["analysis"].(map[string]any)
	analysisRequired := analysis["required"].([]string)
	for _, name := range analysisRequired {
		if name == "risk_score" || name == "landmarks_detected" {
			t.Errorf("%s should be optional", name)
		}
	}
}

func TestGeminiSchema(t *testing.T) {
	s := geminiSchema(comparisonSchema)

	if s.Type != genai.TypeObject {
		t.Errorf("expected object type, got %s", s.Type)
	}
	if len(s.PropertyOrdering) != 3 || s.PropertyOrdering[0] != "match" {
		t.Errorf("unexpected property ordering: %v", s.PropertyOrdering)
	}
	if s.Properties["confidence"].Type != genai.TypeNumber {
		t.Errorf("expected number for confidence, got %s", s.Properties["confidence"].Type)
	}
	if s.Properties["match"].Type != genai.TypeBoolean {
		t.Errorf("expected boolean for match, got %s", s.Properties["match"].Type)
	}
}
