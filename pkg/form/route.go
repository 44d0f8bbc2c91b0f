package form

import (
	"net/url"

	"fixforge-client/pkg/models"
)

type View string

const (
	// ViewAIProcess is the holding page shown while the backend works on a
	// report that has no id yet.
	ViewAIProcess        View = "ai-process"
	ViewRelatedSolutions View = "related-solutions"
	ViewRelated          View = "related"
	ViewAISuggested      View = "ai-suggested"
)

// ProcessState is carried along with ViewAIProcess.
type ProcessState struct {
	BugTitle       string `json:"bugTitle"`
	BugDescription string `json:"bugDescription"`
}

// Route is a navigation target in the frontend.
type Route struct {
	View  View
	BugID string
	State *ProcessState
}

// Path renders the frontend path, e.g. /related-solutions/42.
func (r Route) Path() string {
	if r.BugID == "" {
		return "/" + string(r.View)
	}
	return "/" + string(r.View) + "/" + url.PathEscape(r.BugID)
}

func (r Route) String() string { return r.Path() }

// ResolveRoute picks the single view to open after a submission.
// A duplicate with known solutions wins over related clusters, which win over
// the AI suggestion page.
func ResolveRoute(res models.SubmissionResult, hasRelated bool, draft models.BugReportDraft) Route {
	id := res.BugID.String()
	switch {
	case id == "":
		return Route{
			View: ViewAIProcess,
			State: &ProcessState{
				BugTitle:       draft.Title,
				BugDescription: draft.Description,
			},
		}
	case res.IsDuplicate && res.HasSolutions:
		return Route{View: ViewRelatedSolutions, BugID: id}
	case hasRelated:
		return Route{View: ViewRelated, BugID: id}
	default:
		return Route{View: ViewAISuggested, BugID: id}
	}
}
