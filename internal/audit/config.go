package audit

// Config is the audit surface every core component consumes. It is static
// for the lifetime of the process; classification must be a pure function
// of a descriptor and this configuration.
type Config struct {
	// Enabled gates the whole subsystem. When false, interceptors are
	// registered as no-ops and nothing is written.
	Enabled bool

	// RedactedValues are case-insensitive substrings matched against field
	// names in payloads and request/response bodies.
	RedactedValues []string

	// ExcludeEndpoints suppresses events originating from matching endpoints.
	// Entries match exactly, by prefix, or as "*" wildcard globs.
	ExcludeEndpoints []string

	// ExcludeContentTypes suppresses events for the listed entity-type UIDs.
	ExcludeContentTypes []string

	// TrackedEvents is the allowlist of canonical action names.
	TrackedEvents []string

	Deletion DeletionConfig
}

// RetentionFrequency selects which retention policy runs.
type RetentionFrequency string

const (
	FrequencyLogAge   RetentionFrequency = "logAge"
	FrequencyLogCount RetentionFrequency = "logCount"
)

// RetentionInterval is the age-policy unit.
type RetentionInterval string

const (
	IntervalDay   RetentionInterval = "day"
	IntervalWeek  RetentionInterval = "week"
	IntervalMonth RetentionInterval = "month"
	IntervalYear  RetentionInterval = "year"
)

// DeletionConfig bounds how many or how old audit records may persist.
type DeletionConfig struct {
	Enabled   bool
	Frequency RetentionFrequency

	// Value is a record count for logCount and an interval multiplier for
	// logAge. Zero means delete everything under either policy.
	Value int

	// Interval applies to the logAge policy only.
	Interval RetentionInterval
}
