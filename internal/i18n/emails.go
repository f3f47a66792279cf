package i18n

import (
	"strconv"
	"strings"
)

type EmailContent struct {
	Subject string
	Text    string
	HTML    string
}

type emailStrings struct {
	VerificationSubject string
	VerificationText    string
	VerificationHTML    string

	PasswordResetSubject string
	PasswordResetText    string
	PasswordResetHTML    string

	FallbackName string
}

var emailTranslations = map[string]emailStrings{
	"en": {
		VerificationSubject: "Verify your email",
		VerificationText: "Hi {name},\n\nConfirm your email address by opening this link:\n{link}\n\n" +
			"The link expires in {days} day(s). If you did not sign up, ignore this email.",
		VerificationHTML: "<p>Hi {name},</p>" +
			"<p>Confirm your email address by clicking the link below.</p>" +
			"<p><a href=\"{link}\">Verify email</a></p>" +
			"<p>The link expires in {days} day(s). If you did not sign up, ignore this email.</p>",

		PasswordResetSubject: "Reset your password",
		PasswordResetText: "Hi {name},\n\nReset your password by opening this link:\n{link}\n\n" +
			"The link expires in {days} day(s). If you did not request this, ignore this email.",
		PasswordResetHTML: "<p>Hi {name},</p>" +
			"<p>Click the link below to reset your password.</p>" +
			"<p><a href=\"{link}\">Reset password</a></p>" +
			"<p>The link expires in {days} day(s). If you did not request this, ignore this email.</p>",

		FallbackName: "there",
	},
	"de": {
		VerificationSubject: "E-Mail verifizieren",
		VerificationText: "Hallo {name},\n\nBestätigen Sie Ihre E-Mail-Adresse über diesen Link:\n{link}\n\n" +
			"Der Link ist {days} Tag(e) gültig. Wenn Sie sich nicht registriert haben, ignorieren Sie diese E-Mail.",
		VerificationHTML: "<p>Hallo {name},</p>" +
			"<p>Bestätigen Sie Ihre E-Mail-Adresse über den untenstehenden Link.</p>" +
			"<p><a href=\"{link}\">E-Mail verifizieren</a></p>" +
			"<p>Der Link ist {days} Tag(e) gültig. Wenn Sie sich nicht registriert haben, ignorieren Sie diese E-Mail.</p>",

		PasswordResetSubject: "Passwort zurücksetzen",
		PasswordResetText: "Hallo {name},\n\nSetzen Sie Ihr Passwort über diesen Link zurück:\n{link}\n\n" +
			"Der Link ist {days} Tag(e) gültig. Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.",
		PasswordResetHTML: "<p>Hallo {name},</p>" +
			"<p>Klicken Sie auf den Link, um Ihr Passwort zurückzusetzen.</p>" +
			"<p><a href=\"{link}\">Passwort zurücksetzen</a></p>" +
			"<p>Der Link ist {days} Tag(e) gültig. Wenn Sie dies nicht angefordert haben, ignorieren Sie diese E-Mail.</p>",

		FallbackName: "dort",
	},
}

func emailStringsForLocale(locale string) emailStrings {
	key := NormalizeLocale(locale)
	if val, ok := emailTranslations[key]; ok {
		return val
	}
	return emailTranslations[DefaultLocale]
}

func renderTemplate(tmpl string, values map[string]string) string {
	if tmpl == "" || len(values) == 0 {
		return tmpl
	}

	replacements := make([]string, 0, len(values)*2)
	for key, value := range values {
		replacements = append(replacements, "{"+key+"}", value)
	}
	return strings.NewReplacer(replacements...).Replace(tmpl)
}

func VerificationEmail(locale, name, link string, days int) EmailContent {
	templates := emailStringsForLocale(locale)
	values := map[string]string{
		"name": displayName(name, templates),
		"link": link,
		"days": strconv.Itoa(days),
	}
	return EmailContent{
		Subject: templates.VerificationSubject,
		Text:    renderTemplate(templates.VerificationText, values),
		HTML:    renderTemplate(templates.VerificationHTML, values),
	}
}

func PasswordResetEmail(locale, name, link string, days int) EmailContent {
	templates := emailStringsForLocale(locale)
	values := map[string]string{
		"name": displayName(name, templates),
		"link": link,
		"days": strconv.Itoa(days),
	}
	return EmailContent{
		Subject: templates.PasswordResetSubject,
		Text:    renderTemplate(templates.PasswordResetText, values),
		HTML:    renderTemplate(templates.PasswordResetHTML, values),
	}
}

func displayName(name string, templates emailStrings) string {
	if strings.TrimSpace(name) == "" {
		return templates.FallbackName
	}
	return name
}
