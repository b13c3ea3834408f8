// Package audit defines the domain model shared by the capture pipeline:
// descriptors handed in by interceptors, the normalized events that travel
// through the dispatch queue, and the records the store persists.
package audit

import (
	"time"

	"chronicle/pkg/requestcontext"
)

// RecordUID is the content-type identifier of the audit record itself.
// Operations on this type are never auditable; every layer of the pipeline
// checks it independently so a misconfigured interceptor cannot start a
// write loop.
const RecordUID = "plugin::audit-logs.log"

// Operation is a raw mutation kind on the persistence layer.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Descriptor is the raw tuple an interceptor hands to the classifier:
// which entity type was touched, how, and under which HTTP request.
type Descriptor struct {
	// UID is the namespaced entity-type identifier, e.g. "api::article.article",
	// "plugin::upload.file", "admin::user".
	UID       string
	Operation Operation

	// Endpoint and Method describe the HTTP request the operation ran under,
	// when one exists. Empty for operations triggered outside a request.
	Endpoint string
	Method   string
}

// Event is a classified, not-yet-persisted audit event. Interceptors build
// these and enqueue them; the worker hands them to the writer.
type Event struct {
	Action string

	Payload      map[string]any
	RequestBody  map[string]any
	ResponseBody map[string]any

	Actor *requestcontext.Actor

	Endpoint   string
	Method     string
	StatusCode *int
	IPAddress  string
	UserAgent  string

	// Duration in milliseconds, currently only set for auth events.
	Duration *int64
}

// Record is the persisted audit entity. Immutable once written; retention
// only ever deletes whole records.
type Record struct {
	ID     int64     `json:"id"`
	Action string    `json:"action"`
	Date   time.Time `json:"date"`

	Payload map[string]any `json:"payload,omitempty"`

	UserID          *int64 `json:"userId,omitempty"`
	UserDisplayName string `json:"userDisplayName,omitempty"`
	UserEmail       string `json:"userEmail,omitempty"`

	Endpoint   string `json:"endpoint,omitempty"`
	Method     string `json:"method,omitempty"`
	StatusCode *int   `json:"statusCode,omitempty"`
	IPAddress  string `json:"ipAddress,omitempty"`
	UserAgent  string `json:"userAgent,omitempty"`

	RequestBody  map[string]any `json:"requestBody,omitempty"`
	ResponseBody map[string]any `json:"responseBody,omitempty"`

	Duration *int64 `json:"duration,omitempty"`
}
