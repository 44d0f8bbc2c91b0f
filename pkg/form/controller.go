// Package form holds the bug report draft and drives submission: validate,
// post, look up related clusters, pick one route, reset.
package form

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fixforge-client/pkg/codefile"
	"fixforge-client/pkg/models"

	"go.uber.org/zap"
)

const (
	StatusSubmitting = "Submitting..."
	StatusSubmitted  = "Bug submitted successfully!"
	StatusFailed     = "Submission failed"
)

var (
	ErrInvalidDraft     = errors.New("invalid draft")
	ErrSubmitInProgress = errors.New("a submission is already in progress")
)

// Backend is the part of the API client the controller needs.
type Backend interface {
	SubmitBug(ctx context.Context, d models.BugReportDraft) (*models.SubmissionResult, error)
	ClusterSuggestions(ctx context.Context, bugID string) (*models.ClusterSuggestion, error)
}

type Navigator interface {
	Navigate(ctx context.Context, r Route) error
}

// Publisher announces accepted reports. Optional.
type Publisher interface {
	PublishSubmitted(ctx context.Context, e models.SubmittedEvent) error
}

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is what a front end renders besides the draft itself.
type State struct {
	Phase          Phase
	Status         string
	Finding        bool
	ShowCodeEditor bool
}

type Controller struct {
	backend   Backend
	nav       Navigator
	publisher Publisher
	logger    *zap.Logger
	observers []func(State)
	now       func() time.Time

	mu             sync.Mutex
	draft          models.BugReportDraft
	phase          Phase
	status         string
	finding        bool
	showCodeEditor bool
}

type Option func(*Controller)

func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithObserver registers fn to be called after every state change. It is
// called without the controller lock held.
func WithObserver(fn func(State)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

func NewController(backend Backend, nav Navigator, opts ...Option) *Controller {
	c := &Controller{
		backend: backend,
		nav:     nav,
		logger:  zap.NewNop(),
		now:     time.Now,
		draft:   models.NewDraft(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Draft returns a copy of the current draft.
func (c *Controller) Draft() models.BugReportDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{
		Phase:          c.phase,
		Status:         c.status,
		Finding:        c.finding,
		ShowCodeEditor: c.showCodeEditor,
	}
}

// update applies fn under the lock and notifies observers afterwards.
func (c *Controller) update(fn func()) {
	c.mu.Lock()
	fn()
	s := c.stateLocked()
	c.mu.Unlock()

	for _, obs := range c.observers {
		obs(s)
	}
}

func (c *Controller) edit(fn func(d *models.BugReportDraft)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(&c.draft)
}

func (c *Controller) SetTitle(v string)       { c.edit(func(d *models.BugReportDraft) { d.Title = v }) }
func (c *Controller) SetDescription(v string) { c.edit(func(d *models.BugReportDraft) { d.Description = v }) }
func (c *Controller) SetTag(v models.Tag)     { c.edit(func(d *models.BugReportDraft) { d.Tag = v }) }
func (c *Controller) SetSeverity(v models.Severity) {
	c.edit(func(d *models.BugReportDraft) { d.Severity = v })
}
func (c *Controller) SetClientType(v models.ClientType) {
	c.edit(func(d *models.BugReportDraft) { d.ClientType = v })
}
func (c *Controller) SetCode(v string)         { c.edit(func(d *models.BugReportDraft) { d.Code = v }) }
func (c *Controller) SetCodeLanguage(v string) { c.edit(func(d *models.BugReportDraft) { d.CodeLanguage = v }) }
func (c *Controller) SetUserID(v string)       { c.edit(func(d *models.BugReportDraft) { d.UserID = v }) }

// HandleFileChange stores the screenshot. A nil file (dialog cancelled) is
// ignored.
func (c *Controller) HandleFileChange(s *models.Screenshot) {
	if s == nil {
		return
	}
	c.edit(func(d *models.BugReportDraft) { d.Screenshot = s })
}

func (c *Controller) RemoveScreenshot() {
	c.edit(func(d *models.BugReportDraft) { d.Screenshot = nil })
}

// HandleCodeFileUpload decodes an uploaded source file, infers its language
// from the file name and opens the code editor.
func (c *Controller) HandleCodeFileUpload(name string, data []byte) error {
	code, err := codefile.Decode(name, data)
	if err != nil {
		return err
	}
	c.update(func() {
		c.draft.Code = code.Text
		c.draft.CodeLanguage = code.Language
		c.showCodeEditor = true
	})
	c.logger.Debug("code file loaded",
		zap.String("file", name),
		zap.String("language", code.Language),
		zap.Int("bytes", len(data)))
	return nil
}

// OpenCodeEditor shows the editor for typing code by hand.
func (c *Controller) OpenCodeEditor() {
	c.update(func() { c.showCodeEditor = true })
}

// RemoveCode clears the snippet and hides the editor. The chosen language is
// kept.
func (c *Controller) RemoveCode() {
	c.update(func() {
		c.draft.Code = ""
		c.showCodeEditor = false
	})
}

// Submit sends the draft and navigates to exactly one route. On failure the
// draft is left untouched so the user can retry.
func (c *Controller) Submit(ctx context.Context) (Route, error) {
	var (
		draft   models.BugReportDraft
		gateErr error
	)
	c.update(func() {
		if c.phase == PhaseSubmitting {
			gateErr = ErrSubmitInProgress
			return
		}
		if err := c.draft.Validate(); err != nil {
			gateErr = fmt.Errorf("%w: %w", ErrInvalidDraft, err)
			return
		}
		draft = c.draft
		c.phase = PhaseSubmitting
		c.status = StatusSubmitting
	})
	if gateErr != nil {
		return Route{}, gateErr
	}

	res, err := c.backend.SubmitBug(ctx, draft)
	if err != nil {
		c.logger.Error("bug submission failed", zap.Error(err))
		c.update(func() {
			c.phase = PhaseIdle
			c.status = StatusFailed
		})
		return Route{}, err
	}
	c.update(func() { c.status = StatusSubmitted })

	bugID := res.BugID.String()
	hasRelated := false
	if bugID != "" {
		hasRelated = c.lookupClusters(ctx, bugID)
	}

	route := ResolveRoute(*res, hasRelated, draft)
	c.publish(ctx, draft, *res, hasRelated, route)

	navErr := c.nav.Navigate(ctx, route)
	if navErr != nil {
		c.logger.Warn("navigation failed", zap.String("route", route.Path()), zap.Error(navErr))
	}

	c.update(func() {
		userID := c.draft.UserID
		c.draft = models.NewDraft()
		c.draft.UserID = userID
		c.showCodeEditor = false
		c.phase = PhaseIdle
	})

	if navErr != nil {
		return route, fmt.Errorf("navigate to %s: %w", route.Path(), navErr)
	}
	return route, nil
}

// lookupClusters reports whether related clusters exist. Errors are logged
// and read as "none".
func (c *Controller) lookupClusters(ctx context.Context, bugID string) bool {
	c.update(func() { c.finding = true })
	defer c.update(func() { c.finding = false })

	s, err := c.backend.ClusterSuggestions(ctx, bugID)
	if err != nil {
		c.logger.Warn("cluster check failed", zap.String("bug_id", bugID), zap.Error(err))
		return false
	}
	return s != nil && s.HasRelated
}

func (c *Controller) publish(ctx context.Context, d models.BugReportDraft, res models.SubmissionResult, hasRelated bool, route Route) {
	if c.publisher == nil {
		return
	}
	event := models.SubmittedEvent{
		BugID:        res.BugID.String(),
		Title:        d.Title,
		Severity:     string(d.Severity),
		ClientType:   string(d.ClientType),
		Tag:          string(d.Tag),
		UserID:       d.UserID,
		IsDuplicate:  res.IsDuplicate,
		HasSolutions: res.HasSolutions,
		HasRelated:   hasRelated,
		Route:        route.Path(),
		CreatedAt:    c.now().UTC(),
	}
	if err := c.publisher.PublishSubmitted(ctx, event); err != nil {
		c.logger.Warn("report submitted but failed to publish event", zap.Error(err))
	}
}
