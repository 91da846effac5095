package crawler

import (
	"github.com/nao1215/seoaudit/internal/model"
)

// Disposition is what the engine does with one fetch outcome.
type Disposition int

const (
	// DispositionRecord emits Classification.Record as it is.
	DispositionRecord Disposition = iota

	// DispositionAudit runs the extractor and the duplicate detector on an
	// HTML page, then emits the completed record.
	DispositionAudit

	// DispositionSitemap parses a sitemap for discovery. No record is emitted.
	DispositionSitemap

	// DispositionDiscard drops the outcome. Used for fetches abandoned
	// because the session was canceled.
	DispositionDiscard
)

// String returns the disposition name.
func (d Disposition) String() string {
	switch d {
	case DispositionRecord:
		return "record"
	case DispositionAudit:
		return "audit"
	case DispositionSitemap:
		return "sitemap"
	case DispositionDiscard:
		return "discard"
	default:
		return "unknown"
	}
}

// Classification is the classifier's verdict for one outcome.
type Classification struct {
	Disposition Disposition

	// Record is the record to emit for DispositionRecord, and the partially
	// filled record (url and status) for DispositionAudit.
	Record model.PageRecord
}

// Classify labels a fetch outcome. It is the single place where outcome
// kinds are mapped to report rows:
//
//   - external or unsupported link: skipped, with the frontier's reason
//   - robots.txt disallowance: skipped, "blocked by robots.txt"
//   - any other fetch failure: failed, with the failure message
//   - the robots.txt target: its status and the first 5000 characters of its body
//   - a 2xx sitemap target: discovery only
//   - an HTML page: audited
//   - anything else: its status and "skipped non-HTML resource: <type>"
func Classify(outcome model.FetchOutcome) Classification {
	url := outcome.Target.URL

	switch outcome.Type {
	case model.OutcomeExternalLink:
		note := outcome.Message
		if note == "" {
			note = model.NoteExternalLink
		}
		return record(model.NewDegradedRecord(url, model.StatusSkipped, note))

	case model.OutcomeFailed:
		switch outcome.ErrorKind {
		case model.ErrorKindCanceled:
			return Classification{Disposition: DispositionDiscard}
		case model.ErrorKindRobots:
			return record(model.NewDegradedRecord(url, model.StatusSkipped, model.NoteRobotsBlocked))
		default:
			return record(model.NewDegradedRecord(url, model.StatusFailed, outcome.Message))
		}
	}

	page := outcome.Page
	if page == nil {
		return record(model.NewDegradedRecord(url, model.StatusFailed, "no response"))
	}
	status := model.StatusCode(page.StatusCode)

	switch outcome.Target.Kind {
	case model.KindRobots:
		note := ""
		if page.IsSuccess() {
			note = model.TruncateRunes(string(page.Body), model.MaxRobotsTextLength)
		}
		return record(model.NewDegradedRecord(url, status, note))

	case model.KindSitemap:
		if page.IsSuccess() {
			return Classification{Disposition: DispositionSitemap}
		}
		return record(model.NewDegradedRecord(url, status, ""))
	}

	if outcome.Type == model.OutcomeSuccess {
		return Classification{
			Disposition: DispositionAudit,
			Record:      model.PageRecord{URL: url, Status: status},
		}
	}

	mediaType := page.MediaType()
	if mediaType == "" {
		mediaType = "unknown"
	}
	return record(model.NewDegradedRecord(url, status, model.NoteNonHTMLPrefix+mediaType))
}

func record(r model.PageRecord) Classification {
	return Classification{Disposition: DispositionRecord, Record: r}
}
