package errors

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/getsentry/sentry-go"
)

// TelemetryReporter receives every EnhancedError built while it is enabled.
type TelemetryReporter interface {
	ReportError(err *EnhancedError)
	IsEnabled() bool
}

// SentryReporter forwards errors to the Sentry hub configured by the
// telemetry package. Messages and string context values are scrubbed first.
type SentryReporter struct {
	enabled bool
}

// NewSentryReporter creates a new Sentry telemetry reporter.
func NewSentryReporter(enabled bool) *SentryReporter {
	return &SentryReporter{enabled: enabled}
}

func (sr *SentryReporter) IsEnabled() bool {
	return sr.enabled
}

// ReportError sends ee once; later calls for the same error are ignored.
func (sr *SentryReporter) ReportError(ee *EnhancedError) {
	if !sr.enabled || !ee.MarkReported() {
		return
	}

	title := errorTitle(ee)
	message := scrubMessageForPrivacy(fmt.Sprintf("[%s] %s", ee.Category, ee.Error()))
	level := sentryLevel(ee.Category)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("component", ee.GetComponent())
		scope.SetTag("category", string(ee.Category))
		scope.SetTag("error_title", title)
		scope.SetFingerprint([]string{title, ee.GetComponent(), string(ee.Category)})
		scope.SetLevel(level)

		for key, value := range ee.Context {
			if s, ok := value.(string); ok {
				value = scrubMessageForPrivacy(s)
			}
			scope.SetContext(key, map[string]any{"value": value})
		}

		event := sentry.NewEvent()
		event.Level = level
		event.Message = message
		event.Exception = []sentry.Exception{{Type: title, Value: message}}
		sentry.CaptureEvent(event)
	})
}

// categoryTitles names categories in Sentry issue titles.
var categoryTitles = map[ErrorCategory]string{
	CategoryValidation:    "Invalid Input",
	CategoryUnknownID:     "Unknown Identifier",
	CategoryNotFound:      "Not Found",
	CategoryConfiguration: "Configuration Error",
	CategoryProcessing:    "Processing Error",
	CategoryState:         "Stale Result",
	CategoryCancellation:  "Cancelled",
	CategoryFileIO:        "File I/O Error",
}

// errorTitle groups issues by component, category and, when recorded, the
// failing operation, e.g. "Pipeline Processing Error artifact".
func errorTitle(ee *EnhancedError) string {
	var parts []string
	if c := ee.GetComponent(); c != "" && c != ComponentUnknown {
		parts = append(parts, strings.ToUpper(c[:1])+c[1:])
	}
	if t, ok := categoryTitles[ee.Category]; ok {
		parts = append(parts, t)
	} else if ee.Category != "" {
		parts = append(parts, string(ee.Category))
	}
	if op, ok := ee.Context["operation"].(string); ok && op != "" {
		parts = append(parts, op)
	}

	if len(parts) == 0 {
		return fmt.Sprintf("%T", ee.Err)
	}
	return strings.Join(parts, " ")
}

// sentryLevel maps caller mistakes to warnings and supersession to info.
func sentryLevel(category ErrorCategory) sentry.Level {
	switch category {
	case CategoryValidation, CategoryUnknownID, CategoryNotFound:
		return sentry.LevelWarning
	case CategoryCancellation, CategoryState:
		return sentry.LevelInfo
	default:
		return sentry.LevelError
	}
}

var (
	telemetryMu sync.RWMutex
	reporter    TelemetryReporter
)

// SetTelemetryReporter installs the global reporter. Passing nil disables
// reporting.
func SetTelemetryReporter(r TelemetryReporter) {
	telemetryMu.Lock()
	defer telemetryMu.Unlock()
	reporter = r
	hasActiveReporting.Store(r != nil && r.IsEnabled())
}

// GetTelemetryReporter returns the installed reporter, or nil.
func GetTelemetryReporter() TelemetryReporter {
	telemetryMu.RLock()
	defer telemetryMu.RUnlock()
	return reporter
}

func reportToTelemetry(ee *EnhancedError) {
	if r := GetTelemetryReporter(); r != nil && r.IsEnabled() {
		r.ReportError(ee)
	}
}

var (
	dsnRegex        = regexp.MustCompile(`https?://[0-9a-fA-F]+@`)
	urlQueryRegex   = regexp.MustCompile(`(https?://[^?\s]+)\?\S*`)
	queryParamRegex = regexp.MustCompile(`[?&]([^=\s]+)=([^&\s]+)`)
	secretRegexes   = []*regexp.Regexp{
		regexp.MustCompile(`api[_-]?key[=:]\S+`),
		regexp.MustCompile(`token[=:]\S+`),
		regexp.MustCompile(`auth[=:]\S+`),
		regexp.MustCompile(`[0-9a-fA-F]{32,}`),
	}
)

// scrubMessageForPrivacy strips DSN keys, query strings and credentials.
func scrubMessageForPrivacy(message string) string {
	scrubbed := dsnRegex.ReplaceAllString(message, "https://[DSN_REDACTED]@")
	scrubbed = urlQueryRegex.ReplaceAllString(scrubbed, "$1?[REDACTED]")
	scrubbed = queryParamRegex.ReplaceAllString(scrubbed, "?[REDACTED]")
	for _, re := range secretRegexes {
		scrubbed = re.ReplaceAllString(scrubbed, "[API_KEY_REDACTED]")
	}
	return scrubbed
}
