package webhook

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"
)

var (
	// ErrMissingEventType is returned for requests without an X-GitHub-Event header.
	ErrMissingEventType = errors.New("missing X-GitHub-Event header")
	// ErrInvalidJSON is returned for bodies that are not JSON.
	ErrInvalidJSON = errors.New("invalid JSON payload")
	// ErrMalformedPayload is returned when a recognized event lacks a field its summary reads.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Event is a decoded webhook payload.
type Event interface {
	// Type returns the X-GitHub-Event value the payload was decoded for.
	Type() string
	// Summary returns the message and fields of the summary log line.
	Summary() (string, []zap.Field, error)
}

// kinds maps recognized event types to their payload variant.
var kinds = map[string]func() Event{
	"push":         func() Event { return new(PushEvent) },
	"issues":       func() Event { return new(IssuesEvent) },
	"member":       func() Event { return new(MemberEvent) },
	"repository":   func() Event { return new(RepositoryEvent) },
	"organization": func() Event { return new(OrganizationEvent) },
}

// Decode decodes body into the variant registered for eventType.
// Unrecognized types decode to UnknownEvent without reading the body.
func Decode(eventType string, body []byte) (Event, error) {
	newEvent, ok := kinds[eventType]
	if !ok {
		return UnknownEvent{Name: eventType}, nil
	}
	event := newEvent()
	if err := json.Unmarshal(body, event); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedPayload, eventType, err)
	}
	return event, nil
}

func missing(eventType, field string) error {
	return fmt.Errorf("%w: %s event has no %s", ErrMalformedPayload, eventType, field)
}

// PushEvent is pushed commits to a ref.
type PushEvent struct {
	Ref  *string                     `json:"ref,omitempty"`
	Repo *github.PushEventRepository `json:"repository,omitempty"`
}

func (*PushEvent) Type() string { return "push" }

func (e *PushEvent) Summary() (string, []zap.Field, error) {
	if e.Ref == nil {
		return "", nil, missing("push", "ref")
	}
	if e.Repo.GetFullName() == "" {
		return "", nil, missing("push", "repository.full_name")
	}
	return "Push event", []zap.Field{
		zap.String("ref", *e.Ref),
		zap.String("repository", e.Repo.GetFullName()),
	}, nil
}

// IssuesEvent is activity on an issue.
type IssuesEvent struct {
	Action *string            `json:"action,omitempty"`
	Issue  *github.Issue      `json:"issue,omitempty"`
	Repo   *github.Repository `json:"repository,omitempty"`
}

func (*IssuesEvent) Type() string { return "issues" }

func (e *IssuesEvent) Summary() (string, []zap.Field, error) {
	if e.Issue == nil || e.Issue.Title == nil {
		return "", nil, missing("issues", "issue.title")
	}
	if e.Repo.GetFullName() == "" {
		return "", nil, missing("issues", "repository.full_name")
	}
	return "Issue event", []zap.Field{
		zap.String("title", e.Issue.GetTitle()),
		zap.String("repository", e.Repo.GetFullName()),
	}, nil
}

// MemberEvent is a collaborator change on a repository.
type MemberEvent struct {
	Action *string              `json:"action,omitempty"`
	Member *github.User         `json:"member,omitempty"`
	Org    *github.Organization `json:"organization,omitempty"`
	Repo   *github.Repository   `json:"repository,omitempty"`
}

func (*MemberEvent) Type() string { return "member" }

func (e *MemberEvent) Summary() (string, []zap.Field, error) {
	if e.Member.GetLogin() == "" {
		return "", nil, missing("member", "member.login")
	}
	if e.Org.GetLogin() == "" {
		return "", nil, missing("member", "organization.login")
	}
	return "Member event", []zap.Field{
		zap.String("member", e.Member.GetLogin()),
		zap.String("organization", e.Org.GetLogin()),
	}, nil
}

// RepositoryEvent is a repository lifecycle change.
type RepositoryEvent struct {
	Action *string            `json:"action,omitempty"`
	Repo   *github.Repository `json:"repository,omitempty"`
}

func (*RepositoryEvent) Type() string { return "repository" }

func (e *RepositoryEvent) Summary() (string, []zap.Field, error) {
	if e.Repo.GetFullName() == "" {
		return "", nil, missing("repository", "repository.full_name")
	}
	if e.Action == nil {
		return "", nil, missing("repository", "action")
	}
	return "Repository event", []zap.Field{
		zap.String("repository", e.Repo.GetFullName()),
		zap.String("action", *e.Action),
	}, nil
}

// OrganizationEvent is an organization membership or lifecycle change.
type OrganizationEvent struct {
	Action       *string              `json:"action,omitempty"`
	Organization *github.Organization `json:"organization,omitempty"`
}

func (*OrganizationEvent) Type() string { return "organization" }

func (e *OrganizationEvent) Summary() (string, []zap.Field, error) {
	if e.Organization.GetLogin() == "" {
		return "", nil, missing("organization", "organization.login")
	}
	if e.Action == nil {
		return "", nil, missing("organization", "action")
	}
	return "Organization event", []zap.Field{
		zap.String("organization", e.Organization.GetLogin()),
		zap.String("action", *e.Action),
	}, nil
}

// UnknownEvent is any event type without a summary.
type UnknownEvent struct {
	Name string
}

func (e UnknownEvent) Type() string { return e.Name }

func (e UnknownEvent) Summary() (string, []zap.Field, error) {
	return "Unhandled event type", []zap.Field{zap.String("event", e.Name)}, nil
}
