package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"fixforge-client/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	result     *models.SubmissionResult
	submitErr  error
	cluster    *models.ClusterSuggestion
	clusterErr error

	submitted  []models.BugReportDraft
	clusterIDs []string
	// onCluster runs while the cluster lookup is in flight.
	onCluster func()
}

func (f *fakeBackend) SubmitBug(_ context.Context, d models.BugReportDraft) (*models.SubmissionResult, error) {
	f.submitted = append(f.submitted, d)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return f.result, nil
}

func (f *fakeBackend) ClusterSuggestions(_ context.Context, bugID string) (*models.ClusterSuggestion, error) {
	f.clusterIDs = append(f.clusterIDs, bugID)
	if f.onCluster != nil {
		f.onCluster()
	}
	if f.clusterErr != nil {
		return nil, f.clusterErr
	}
	return f.cluster, nil
}

type recordingNavigator struct {
	routes []Route
	err    error
}

func (n *recordingNavigator) Navigate(_ context.Context, r Route) error {
	n.routes = append(n.routes, r)
	return n.err
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.SubmittedEvent
	err    error
}

func (p *recordingPublisher) PublishSubmitted(_ context.Context, e models.SubmittedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func fillDraft(c *Controller) {
	c.SetTitle("Login crash")
	c.SetDescription("App crashes on login")
	c.SetSeverity(models.SeverityHigh)
	c.SetClientType(models.ClientWeb)
}

func TestSubmitExample(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "42"},
		cluster: &models.ClusterSuggestion{HasRelated: false},
	}
	nav := &recordingNavigator{}
	c := NewController(backend, nav)
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/ai-suggested/42", route.Path())
	require.Len(t, nav.routes, 1, "exactly one navigation per submission")
	assert.Equal(t, route, nav.routes[0])

	require.Len(t, backend.submitted, 1)
	assert.Equal(t, "Login crash", backend.submitted[0].Title)
	assert.Equal(t, models.SeverityHigh, backend.submitted[0].Severity)
	assert.Equal(t, []string{"42"}, backend.clusterIDs)

	assert.Equal(t, models.NewDraft(), c.Draft())
	st := c.State()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, StatusSubmitted, st.Status)
	assert.False(t, st.Finding)
}

func TestSubmitDuplicateWithSolutions(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "7", IsDuplicate: true, HasSolutions: true},
		cluster: &models.ClusterSuggestion{HasRelated: true},
	}
	nav := &recordingNavigator{}
	c := NewController(backend, nav)
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Route{View: ViewRelatedSolutions, BugID: "7"}, route)
	assert.Len(t, nav.routes, 1)
}

func TestSubmitRelatedCluster(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "8"},
		cluster: &models.ClusterSuggestion{HasRelated: true},
	}
	c := NewController(backend, &recordingNavigator{})
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/related/8", route.Path())
}

func TestSubmitResetsEveryField(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "1"},
		cluster: &models.ClusterSuggestion{},
	}
	c := NewController(backend, &recordingNavigator{})
	fillDraft(c)
	c.SetTag(models.TagPerformance)
	c.SetClientType(models.ClientDesktop)
	c.SetUserID("user-1")
	c.HandleFileChange(&models.Screenshot{Name: "a.png", Data: []byte{1}})
	require.NoError(t, c.HandleCodeFileUpload("main.go", []byte("package main")))

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	want := models.NewDraft()
	want.UserID = "user-1"
	assert.Equal(t, want, c.Draft())
	assert.False(t, c.State().ShowCodeEditor)
}

func TestSubmitFailureKeepsDraft(t *testing.T) {
	backend := &fakeBackend{submitErr: errors.New("status 500")}
	nav := &recordingNavigator{}
	c := NewController(backend, nav)
	fillDraft(c)
	c.SetTag(models.TagAPI)
	before := c.Draft()

	_, err := c.Submit(context.Background())
	require.Error(t, err)

	assert.Equal(t, before, c.Draft())
	st := c.State()
	assert.Equal(t, StatusFailed, st.Status)
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Empty(t, nav.routes)
	assert.Empty(t, backend.clusterIDs)

	// Retry without re-entering anything.
	backend.submitErr = nil
	backend.result = &models.SubmissionResult{BugID: "3"}
	backend.cluster = &models.ClusterSuggestion{}
	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ai-suggested/3", route.Path())
	assert.Equal(t, "Login crash", backend.submitted[1].Title)
}

func TestSubmitRequiresTitleAndDescription(t *testing.T) {
	tests := []struct {
		name        string
		title, desc string
	}{
		{"empty", "", ""},
		{"no title", "", "d"},
		{"no description", "t", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{}
			c := NewController(backend, &recordingNavigator{})
			c.SetTitle(tt.title)
			c.SetDescription(tt.desc)

			_, err := c.Submit(context.Background())
			assert.ErrorIs(t, err, ErrInvalidDraft)
			assert.Empty(t, backend.submitted, "no POST for an invalid draft")
			assert.Equal(t, PhaseIdle, c.State().Phase)
		})
	}
}

func TestSubmitPostsWhitespaceTitle(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "5"},
		cluster: &models.ClusterSuggestion{},
	}
	c := NewController(backend, &recordingNavigator{})
	c.SetTitle("   ")
	c.SetDescription("d")

	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	require.Len(t, backend.submitted, 1)
	assert.Equal(t, "   ", backend.submitted[0].Title)
	assert.Equal(t, "/ai-suggested/5", route.Path())
}

func TestNilClusterSuggestion(t *testing.T) {
	backend := &fakeBackend{result: &models.SubmissionResult{BugID: "8"}}
	nav := &recordingNavigator{}
	c := NewController(backend, nav)
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "/ai-suggested/8", route.Path())
	assert.Len(t, nav.routes, 1)
}

func TestClusterFailureFallsBack(t *testing.T) {
	var findingDuringLookup bool
	backend := &fakeBackend{
		result:     &models.SubmissionResult{BugID: "42", IsDuplicate: true},
		clusterErr: errors.New("connection reset"),
	}
	c := NewController(backend, &recordingNavigator{})
	backend.onCluster = func() { findingDuringLookup = c.State().Finding }
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)

	assert.True(t, findingDuringLookup)
	assert.False(t, c.State().Finding)
	assert.Equal(t, Route{View: ViewAISuggested, BugID: "42"}, route)
}

func TestSubmitWithoutBugIDSkipsClusterLookup(t *testing.T) {
	backend := &fakeBackend{result: &models.SubmissionResult{}}
	c := NewController(backend, &recordingNavigator{})
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.Empty(t, backend.clusterIDs)
	assert.Equal(t, ViewAIProcess, route.View)
	require.NotNil(t, route.State)
	assert.Equal(t, "Login crash", route.State.BugTitle)
}

func TestObserverSeesTransitions(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "5"},
		cluster: &models.ClusterSuggestion{},
	}
	var states []State
	c := NewController(backend, &recordingNavigator{}, WithObserver(func(s State) {
		states = append(states, s)
	}))
	fillDraft(c)

	_, err := c.Submit(context.Background())
	require.NoError(t, err)

	var statuses []string
	var findings []bool
	for _, s := range states {
		if len(statuses) == 0 || statuses[len(statuses)-1] != s.Status {
			statuses = append(statuses, s.Status)
		}
		if len(findings) == 0 || findings[len(findings)-1] != s.Finding {
			findings = append(findings, s.Finding)
		}
	}
	assert.Equal(t, []string{StatusSubmitting, StatusSubmitted}, statuses)
	assert.Equal(t, []bool{false, true, false}, findings)
	assert.Equal(t, PhaseSubmitting, states[0].Phase)
	assert.Equal(t, PhaseIdle, states[len(states)-1].Phase)
}

func TestSubmitInProgress(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "5"},
		cluster: &models.ClusterSuggestion{},
	}
	c := NewController(backend, &recordingNavigator{})
	fillDraft(c)

	var nestedErr error
	backend.onCluster = func() { _, nestedErr = c.Submit(context.Background()) }

	_, err := c.Submit(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrSubmitInProgress)
	assert.Len(t, backend.submitted, 1)
}

func TestNavigationErrorStillResets(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "5"},
		cluster: &models.ClusterSuggestion{},
	}
	c := NewController(backend, &recordingNavigator{err: errors.New("closed pipe")})
	fillDraft(c)

	route, err := c.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "/ai-suggested/5", route.Path())
	assert.Equal(t, models.NewDraft(), c.Draft())
}

func TestPublishesSubmittedEvent(t *testing.T) {
	backend := &fakeBackend{
		result:  &models.SubmissionResult{BugID: "11", IsDuplicate: true, HasSolutions: true},
		cluster: &models.ClusterSuggestion{HasRelated: true},
	}
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewController(backend, &recordingNavigator{}, WithPublisher(pub))
	fillDraft(c)
	c.SetTag(models.TagUI)

	_, err := c.Submit(context.Background())
	require.NoError(t, err, "publish failures are not fatal")

	require.Len(t, pub.events, 1)
	e := pub.events[0]
	assert.Equal(t, "11", e.BugID)
	assert.Equal(t, "Login crash", e.Title)
	assert.Equal(t, "High", e.Severity)
	assert.Equal(t, "UI", e.Tag)
	assert.True(t, e.HasRelated)
	assert.Equal(t, "/related-solutions/11", e.Route)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestCodeEditor(t *testing.T) {
	c := NewController(&fakeBackend{}, &recordingNavigator{})
	assert.False(t, c.State().ShowCodeEditor)

	require.NoError(t, c.HandleCodeFileUpload("query.SQL", []byte("select 1")))
	assert.True(t, c.State().ShowCodeEditor)
	assert.Equal(t, "select 1", c.Draft().Code)
	assert.Equal(t, "sql", c.Draft().CodeLanguage)

	c.RemoveCode()
	assert.False(t, c.State().ShowCodeEditor)
	assert.Empty(t, c.Draft().Code)

	c.OpenCodeEditor()
	c.SetCodeLanguage("python")
	c.SetCode("print(1)")
	assert.True(t, c.State().ShowCodeEditor)
	assert.Equal(t, "python", c.Draft().CodeLanguage)

	require.NoError(t, c.HandleCodeFileUpload("README", []byte("x")))
	assert.Equal(t, "javascript", c.Draft().CodeLanguage)
}

func TestScreenshotHandling(t *testing.T) {
	c := NewController(&fakeBackend{}, &recordingNavigator{})
	c.HandleFileChange(nil)
	assert.Nil(t, c.Draft().Screenshot)

	// Not an image: accepted anyway.
	shot := &models.Screenshot{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hi")}
	c.HandleFileChange(shot)
	assert.Equal(t, shot, c.Draft().Screenshot)

	c.HandleFileChange(nil)
	assert.Equal(t, shot, c.Draft().Screenshot)

	c.RemoveScreenshot()
	assert.Nil(t, c.Draft().Screenshot)
}
