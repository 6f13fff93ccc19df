package mailer

import (
	"context"
	"fmt"

	"github.com/yukikurage/workspace-api/internal/models"
)

// ContentBuilder renders the email announcing an invite.
type ContentBuilder interface {
	Build(ctx context.Context, invite models.ResourceInvite) (Message, error)
}

// InviteEmail holds everything an invite email mentions.
type InviteEmail struct {
	Locale        string
	To            string
	RecipientName string
	InviterName   string
	ResourceType  models.ResourceType
	ResourceName  string
	Role          models.Role
	Note          *string
	Link          string
}

// Render localizes the email for e.Locale.
func (e InviteEmail) Render() (Message, error) {
	p := Printer(e.Locale)

	var subject string
	switch e.ResourceType {
	case models.ResourceWorkspace:
		subject = p.Sprintf(KeyWorkspaceSubject, e.InviterName, e.ResourceName)
	case models.ResourceProject:
		subject = p.Sprintf(KeyProjectSubject, e.InviterName, e.ResourceName)
	case models.ResourceServer:
		subject = p.Sprintf(KeyServerSubject, e.InviterName, e.ResourceName)
	default:
		return Message{}, fmt.Errorf("unsupported invite resource %q", e.ResourceType)
	}

	recipient := e.RecipientName
	if recipient == "" {
		recipient = p.Sprintf(KeyGreetingFallback)
	}
	note := ""
	if e.Note != nil && *e.Note != "" {
		note = fmt.Sprintf("%q\n", *e.Note)
	}

	return Message{
		To:      e.To,
		Subject: subject,
		Body:    p.Sprintf(KeyInviteBody, recipient, e.InviterName, e.ResourceName, string(e.Role), note, e.Link),
	}, nil
}

// VerificationEmail renders the message asking a user to confirm an address.
func VerificationEmail(locale, to, name, link string) Message {
	p := Printer(locale)
	if name == "" {
		name = p.Sprintf(KeyGreetingFallback)
	}
	return Message{
		To:      to,
		Subject: p.Sprintf(KeyVerifySubject),
		Body:    p.Sprintf(KeyVerifyBody, name, to, link),
	}
}
