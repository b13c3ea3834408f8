// Package classify maps raw operation descriptors to canonical action names,
// or vetoes them. Classification is a pure function of the descriptor and
// static configuration; a veto is an intentional no-op, not an error.
package classify

import (
	"regexp"
	"slices"
	"strings"

	"chronicle/internal/audit"
)

const (
	publishActionPath   = "/actions/publish"
	unpublishActionPath = "/actions/unpublish"
)

// Classifier decides, for any intercepted operation, which canonical action
// it produces. Construct once at startup; safe for concurrent use.
type Classifier struct {
	cfg               audit.Config
	excludedEndpoints []endpointMatcher
}

type endpointMatcher struct {
	pattern string
	glob    *regexp.Regexp // non-nil only for patterns containing "*"
}

// New compiles the excluded-endpoint patterns and returns a classifier.
// Invalid glob patterns are treated as literal prefixes rather than
// rejected, so one bad config entry cannot disable classification.
func New(cfg audit.Config) *Classifier {
	matchers := make([]endpointMatcher, 0, len(cfg.ExcludeEndpoints))
	for _, pattern := range cfg.ExcludeEndpoints {
		m := endpointMatcher{pattern: pattern}
		if strings.Contains(pattern, "*") {
			expr := strings.ReplaceAll(regexp.QuoteMeta(pattern), `\*`, ".*")
			if re, err := regexp.Compile(expr); err == nil {
				m.glob = re
			}
		}
		matchers = append(matchers, m)
	}
	return &Classifier{cfg: cfg, excludedEndpoints: matchers}
}

// Classify returns the canonical action for the descriptor, or ok=false when
// the event must be suppressed.
func (c *Classifier) Classify(d audit.Descriptor) (action string, ok bool) {
	// Anti-recursion: operations on the audit record type are never logged.
	if d.UID == audit.RecordUID {
		return "", false
	}

	if slices.Contains(c.cfg.ExcludeContentTypes, d.UID) {
		return "", false
	}

	action = c.actionFor(d)

	if !slices.Contains(c.cfg.TrackedEvents, action) {
		return "", false
	}

	if d.Endpoint != "" && c.endpointExcluded(d.Endpoint) {
		return "", false
	}

	return action, true
}

// EndpointExcluded reports whether events from the endpoint are suppressed.
// Exposed for the HTTP observer, which classifies some actions (auth,
// logout) without an entity descriptor.
func (c *Classifier) EndpointExcluded(endpoint string) bool {
	return endpoint != "" && c.endpointExcluded(endpoint)
}

// Tracked reports whether the canonical action is in the allowlist.
func (c *Classifier) Tracked(action string) bool {
	return slices.Contains(c.cfg.TrackedEvents, action)
}

// actionFor maps a descriptor to its action family. Publish/unpublish are a
// distinct action family detected from the endpoint, not an entry.update.
func (c *Classifier) actionFor(d audit.Descriptor) string {
	if strings.Contains(d.Endpoint, unpublishActionPath) {
		return audit.ActionEntryUnpublish
	}
	if strings.Contains(d.Endpoint, publishActionPath) {
		return audit.ActionEntryPublish
	}

	op := string(d.Operation)
	switch {
	case d.UID == "plugin::upload.file":
		return "media." + op
	case d.UID == "plugin::upload.folder":
		return "media-folder." + op
	case d.UID == "admin::user":
		return "user." + op
	case d.UID == "admin::role":
		return "role." + op
	case d.UID == "admin::permission":
		return "permission." + op
	case strings.HasPrefix(d.UID, "api::"):
		return "entry." + op
	case strings.Contains(d.UID, "component"):
		return "component." + op
	case strings.Contains(d.UID, "::"):
		return "content-type." + op
	default:
		return "entry." + op
	}
}

func (c *Classifier) endpointExcluded(endpoint string) bool {
	for _, m := range c.excludedEndpoints {
		if m.glob != nil {
			if m.glob.MatchString(endpoint) {
				return true
			}
			continue
		}
		if endpoint == m.pattern || strings.HasPrefix(endpoint, m.pattern) {
			return true
		}
	}
	return false
}
