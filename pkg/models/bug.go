package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

type Severity string

const (
	SeverityLow      Severity = "Low"
	SeverityMedium   Severity = "Medium"
	SeverityHigh     Severity = "High"
	SeverityCritical Severity = "Critical"
)

var Severities = []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

type ClientType string

const (
	ClientWeb       ClientType = "Web"
	ClientExtension ClientType = "Extension"
	ClientDesktop   ClientType = "Desktop"
)

var ClientTypes = []ClientType{ClientWeb, ClientExtension, ClientDesktop}

// Tag is the bug category. The zero value means no category was picked.
type Tag string

const (
	TagNone        Tag = ""
	TagUI          Tag = "UI"
	TagAPI         Tag = "API"
	TagAuth        Tag = "Auth"
	TagDatabase    Tag = "Database"
	TagPerformance Tag = "Performance"
)

var Tags = []Tag{TagUI, TagAPI, TagAuth, TagDatabase, TagPerformance}

const DefaultCodeLanguage = "javascript"

var (
	ErrMissingTitle       = errors.New("title is required")
	ErrMissingDescription = errors.New("description is required")
)

// Screenshot is an image attached to a draft. Data is sent as-is; no type or
// size checks are applied.
type Screenshot struct {
	Name        string
	ContentType string
	Data        []byte
}

type BugReportDraft struct {
	Title        string
	Description  string
	Tag          Tag
	Severity     Severity
	ClientType   ClientType
	Code         string
	CodeLanguage string
	Screenshot   *Screenshot
	UserID       string
}

// NewDraft returns an empty draft with form defaults applied.
func NewDraft() BugReportDraft {
	return BugReportDraft{
		Severity:     SeverityLow,
		ClientType:   ClientWeb,
		CodeLanguage: DefaultCodeLanguage,
	}
}

// Validate checks the required fields. Like a browser's required check it
// only rejects empty values; whitespace counts as filled in.
func (d BugReportDraft) Validate() error {
	var errs []error
	if d.Title == "" {
		errs = append(errs, ErrMissingTitle)
	}
	if d.Description == "" {
		errs = append(errs, ErrMissingDescription)
	}
	return errors.Join(errs...)
}

// HasCode reports whether the code snippet should be sent.
func (d BugReportDraft) HasCode() bool {
	return strings.TrimSpace(d.Code) != ""
}

// Tags encodes the tag as a JSON array with zero or one element.
func (d BugReportDraft) Tags() string {
	tags := []string{}
	if d.Tag != TagNone {
		tags = append(tags, string(d.Tag))
	}
	b, _ := json.Marshal(tags)
	return string(b)
}

func ParseSeverity(s string) (Severity, error) {
	for _, v := range Severities {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid severity %q (want one of Low, Medium, High, Critical)", s)
}

func ParseClientType(s string) (ClientType, error) {
	for _, v := range ClientTypes {
		if strings.EqualFold(strings.TrimSpace(s), string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid client type %q (want one of Web, Extension, Desktop)", s)
}

// ParseTag accepts an empty string as "no tag".
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TagNone, nil
	}
	for _, v := range Tags {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", fmt.Errorf("invalid tag %q (want one of UI, API, Auth, Database, Performance)", s)
}

// BugID accepts both JSON strings and numbers.
type BugID string

func (id *BugID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = BugID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("bug_id: %w", err)
	}
	*id = BugID(n.String())
	return nil
}

func (id BugID) String() string { return string(id) }

type SubmissionResult struct {
	BugID        BugID `json:"bug_id"`
	IsDuplicate  bool  `json:"is_duplicate"`
	HasSolutions bool  `json:"has_solutions"`
}

type ClusterSuggestion struct {
	HasRelated bool `json:"has_related"`
}

// SubmittedEvent is published after the backend accepts a report.
type SubmittedEvent struct {
	BugID        string    `json:"bug_id"`
	Title        string    `json:"title"`
	Severity     string    `json:"severity"`
	ClientType   string    `json:"client_type"`
	Tag          string    `json:"tag,omitempty"`
	UserID       string    `json:"user_id,omitempty"`
	IsDuplicate  bool      `json:"is_duplicate"`
	HasSolutions bool      `json:"has_solutions"`
	HasRelated   bool      `json:"has_related"`
	Route        string    `json:"route"`
	CreatedAt    time.Time `json:"created_at"`
}
