package service

import (
	"strings"
	"testing"

	"github.com/thatlq1812/signature-system/internal/domain"
)

func TestConfirmationPhrase(t *testing.T) {
	tests := []struct {
		name      string
		firstName string
		lastName  string
		want      string
	}{
		{"Uppercase names", "MARIO", "ROSSI", "IO MARIO ROSSI CONFERMO"},
		{"Lowercase names", "mario", "rossi", "IO MARIO ROSSI CONFERMO"},
		{"Mixed case", "Mario", "Rossi", "IO MARIO ROSSI CONFERMO"},
		{"Padded names", " Mario ", " Rossi ", "IO MARIO ROSSI CONFERMO"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfirmationPhrase(tt.firstName, tt.lastName)
			if got != tt.want {
				t.Errorf("ConfirmationPhrase() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidateConfirmationPhrase(t *testing.T) {
	expected := "IO MARIO ROSSI CONFERMO"

	tests := []struct {
		name  string
		typed string
		want  bool
	}{
		{"Exact match", "IO MARIO ROSSI CONFERMO", true},
		{"Lowercase typed", "io mario rossi confermo", true},
		{"Whitespace runs collapsed", "io mario rossi   confermo", true},
		{"Leading and trailing spaces", "  IO MARIO ROSSI CONFERMO  ", true},
		{"Wrong name", "IO MARIA ROSSI CONFERMO", false},
		{"Missing word", "IO MARIO ROSSI", false},
		{"Extra word", "IO MARIO ROSSI CONFERMO OK", false},
		{"Empty typed", "", false},
		{"Whitespace only", "   ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateConfirmationPhrase(tt.typed, expected); got != tt.want {
				t.Errorf("ValidateConfirmationPhrase(%q) = %v, want %v", tt.typed, got, tt.want)
			}
		})
	}
}

func TestValidateReadingRequirements(t *testing.T) {
	tests := []struct {
		name       string
		metrics    domain.ReadingMetrics
		minSeconds int
		wantValid  bool
		wantErrors int
	}{
		{
			"All requirements met",
			domain.ReadingMetrics{ScrollPercentage: 100, TimeOnDocument: 45, PagesViewed: 3, TotalPages: 3},
			30, true, 0,
		},
		{
			"Reading time too short",
			domain.ReadingMetrics{ScrollPercentage: 100, TimeOnDocument: 10, PagesViewed: 3, TotalPages: 3},
			30, false, 1,
		},
		{
			"Scroll incomplete",
			domain.ReadingMetrics{ScrollPercentage: 80, TimeOnDocument: 45, PagesViewed: 3, TotalPages: 3},
			30, false, 1,
		},
		{
			"Pages missing",
			domain.ReadingMetrics{ScrollPercentage: 100, TimeOnDocument: 45, PagesViewed: 2, TotalPages: 3},
			30, false, 1,
		},
		{
			"Everything unmet",
			domain.ReadingMetrics{ScrollPercentage: 10, TimeOnDocument: 5, PagesViewed: 0, TotalPages: 3},
			30, false, 3,
		},
		{
			"Zero min falls back to default",
			domain.ReadingMetrics{ScrollPercentage: 100, TimeOnDocument: 29, PagesViewed: 1, TotalPages: 1},
			0, false, 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateReadingRequirements(tt.metrics, tt.minSeconds)
			if got.Valid != tt.wantValid {
				t.Errorf("ValidateReadingRequirements() valid = %v, want %v (errors: %v)", got.Valid, tt.wantValid, got.Errors)
			}
			if len(got.Errors) != tt.wantErrors {
				t.Errorf("ValidateReadingRequirements() errors = %v, want %d", got.Errors, tt.wantErrors)
			}
		})
	}
}

func TestValidateReadingRequirementsErrorDetail(t *testing.T) {
	got := ValidateReadingRequirements(domain.ReadingMetrics{
		ScrollPercentage: 100,
		TimeOnDocument:   10,
		PagesViewed:      3,
		TotalPages:       3,
	}, 30)

	if got.Valid {
		t.Fatal("expected validation to fail")
	}
	if len(got.Errors) != 1 || !strings.Contains(got.Errors[0], "30 seconds") {
		t.Errorf("expected exactly the reading-time violation, got %v", got.Errors)
	}
}
