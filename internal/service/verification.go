package service

import (
	"fmt"
	"strings"

	"github.com/thatlq1812/signature-system/internal/domain"
)

// ConfirmationPhrase derives the exact phrase the signer must type:
// "IO {FIRSTNAME} {LASTNAME} CONFERMO", uppercased.
func ConfirmationPhrase(firstName, lastName string) string {
	return normalizePhrase(fmt.Sprintf("IO %s %s CONFERMO", firstName, lastName))
}

// ValidateConfirmationPhrase compares the typed phrase against the expected
// one. Whitespace runs are collapsed and both sides uppercased before an
// exact match; no fuzzy or locale-aware comparison.
func ValidateConfirmationPhrase(typed, expected string) bool {
	if strings.TrimSpace(typed) == "" {
		return false
	}
	return normalizePhrase(typed) == normalizePhrase(expected)
}

func normalizePhrase(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

// ReadingValidation lists every unmet reading condition so the caller can
// present all outstanding requirements at once.
type ReadingValidation struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateReadingRequirements checks the reading-completion gate:
// full scroll, minimum time on document, and all pages viewed.
// minSeconds <= 0 falls back to the default of 30.
func ValidateReadingRequirements(ev domain.ReadingMetrics, minSeconds int) ReadingValidation {
	if minSeconds <= 0 {
		minSeconds = domain.DefaultMinReadingSeconds
	}

	errs := []string{}

	if ev.ScrollPercentage != 100 {
		errs = append(errs, fmt.Sprintf("document must be scrolled to 100%% (got %d%%)", ev.ScrollPercentage))
	}
	if ev.TimeOnDocument < minSeconds {
		errs = append(errs, fmt.Sprintf("document must be read for at least %d seconds (got %d)", minSeconds, ev.TimeOnDocument))
	}
	if ev.PagesViewed < ev.TotalPages {
		errs = append(errs, fmt.Sprintf("all pages must be viewed (%d of %d)", ev.PagesViewed, ev.TotalPages))
	}

	return ReadingValidation{Valid: len(errs) == 0, Errors: errs}
}

// GateError reports which verification gates blocked a signing attempt.
type GateError struct {
	Unmet []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("signing blocked by unmet gates: %s", strings.Join(e.Unmet, "; "))
}

func (e *GateError) Unwrap() error { return domain.ErrVerificationFailed }
