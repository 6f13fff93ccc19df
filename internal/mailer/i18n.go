package mailer

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. English text doubles as the key.
const (
	KeyWorkspaceSubject = "%s invited you to join the workspace %s"
	KeyProjectSubject   = "%s invited you to join the project %s"
	KeyServerSubject    = "%s invited you to join %s"
	KeyInviteBody       = "Hi %s,\n\n%s has invited you to %s as %s.\n\n%s\nAccept or decline the invite here: %s\n\nIf you weren't expecting this invite, you can ignore this email."
	KeyGreetingFallback = "there"
	KeyVerifySubject    = "Verify your email address"
	KeyVerifyBody       = "Hi %s,\n\nPlease confirm %s by opening this link: %s\n"
)

var supported = []language.Tag{language.English, language.German}

var matcher = language.NewMatcher(supported)

var messages = func() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	set := func(key, de string) {
		_ = b.SetString(language.English, key, key)
		_ = b.SetString(language.German, key, de)
	}
	set(KeyWorkspaceSubject, "%s hat dich in den Workspace %s eingeladen")
	set(KeyProjectSubject, "%s hat dich in das Projekt %s eingeladen")
	set(KeyServerSubject, "%s hat dich zu %s eingeladen")
	set(KeyInviteBody, "Hallo %s,\n\n%s hat dich zu %s als %s eingeladen.\n\n%s\nHier kannst du die Einladung annehmen oder ablehnen: %s\n\nFalls du diese Einladung nicht erwartet hast, kannst du diese E-Mail ignorieren.")
	set(KeyGreetingFallback, "zusammen")
	set(KeyVerifySubject, "Bestätige deine E-Mail-Adresse")
	set(KeyVerifyBody, "Hallo %s,\n\nbitte bestätige %s über diesen Link: %s\n")
	return b
}()

// Printer returns a printer for the closest supported locale.
func Printer(locale string) *message.Printer {
	tag, _ := language.MatchStrings(matcher, locale)
	base, _ := tag.Base()
	return message.NewPrinter(language.Make(base.String()), message.Catalog(messages))
}
