package model

// OutcomeType tags the variant held by a FetchOutcome.
type OutcomeType int

const (
	// OutcomeSuccess is a fetched response with an HTML body.
	OutcomeSuccess OutcomeType = iota

	// OutcomeNonHTML is a fetched response whose content type is not HTML.
	OutcomeNonHTML

	// OutcomeExternalLink is a discovered link that is never fetched because
	// it leaves the crawl scope or uses an unsupported scheme.
	OutcomeExternalLink

	// OutcomeFailed is a fetch that produced no usable response.
	OutcomeFailed
)

// String returns the name of the outcome type.
func (t OutcomeType) String() string {
	switch t {
	case OutcomeSuccess:
		return "success"
	case OutcomeNonHTML:
		return "non-html"
	case OutcomeExternalLink:
		return "external"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrorKind classifies why a fetch failed.
type ErrorKind int

const (
	// ErrorKindNone is used for outcomes that did not fail.
	ErrorKindNone ErrorKind = iota

	// ErrorKindTimeout is a per-fetch deadline expiry.
	ErrorKindTimeout

	// ErrorKindDNS is a host name resolution failure.
	ErrorKindDNS

	// ErrorKindConnection is a refused or reset connection, or a TLS failure.
	ErrorKindConnection

	// ErrorKindRobots is a fetch refused because robots.txt disallows it.
	ErrorKindRobots

	// ErrorKindCanceled is a fetch abandoned because the session was cancelled.
	ErrorKindCanceled

	// ErrorKindOther is any other transport or body read failure.
	ErrorKindOther
)

// String returns the name of the error kind.
func (k ErrorKind) String() string {
	switch k {
	case ErrorKindNone:
		return "none"
	case ErrorKindTimeout:
		return "timeout"
	case ErrorKindDNS:
		return "dns"
	case ErrorKindConnection:
		return "connection"
	case ErrorKindRobots:
		return "robots"
	case ErrorKindCanceled:
		return "canceled"
	case ErrorKindOther:
		return "other"
	default:
		return "unknown"
	}
}

// Retryable reports whether a failure of this kind may be retried.
// Robots disallowance and cancellation are final.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTimeout, ErrorKindDNS, ErrorKindConnection, ErrorKindOther:
		return true
	default:
		return false
	}
}

// FetchOutcome is the result of dispatching one CrawlTarget.
// Exactly one of the variant-specific fields is meaningful for a given Type.
type FetchOutcome struct {
	// Type selects the variant.
	Type OutcomeType

	// Target is the dispatched (or rejected) target.
	Target CrawlTarget

	// Page is set for OutcomeSuccess and OutcomeNonHTML.
	Page *Page

	// ErrorKind is set for OutcomeFailed.
	ErrorKind ErrorKind

	// Message describes the failure or the reason a link was rejected.
	Message string

	// Attempts is the number of fetch attempts made, including retries.
	Attempts int
}

// NewSuccessOutcome wraps a fetched page, choosing OutcomeSuccess for HTML
// bodies and OutcomeNonHTML otherwise.
func NewSuccessOutcome(target CrawlTarget, page *Page) FetchOutcome {
	t := OutcomeNonHTML
	if page.IsHTML() {
		t = OutcomeSuccess
	}
	return FetchOutcome{Type: t, Target: target, Page: page, Attempts: 1}
}

// NewFailedOutcome builds an OutcomeFailed.
func NewFailedOutcome(target CrawlTarget, kind ErrorKind, message string) FetchOutcome {
	return FetchOutcome{Type: OutcomeFailed, Target: target, ErrorKind: kind, Message: message, Attempts: 1}
}

// NewExternalLinkOutcome builds an OutcomeExternalLink for a link that is never fetched.
func NewExternalLinkOutcome(target CrawlTarget, reason string) FetchOutcome {
	return FetchOutcome{Type: OutcomeExternalLink, Target: target, Message: reason}
}
