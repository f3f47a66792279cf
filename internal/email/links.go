package email

import (
	"fmt"
	"net/url"
	"strings"
)

// Links builds the client-facing URLs embedded in notices. It satisfies the
// auth.LinkBuilder contract.
type Links struct {
	BaseURL string
}

func NewLinks(baseURL string) *Links {
	return &Links{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (l *Links) VerifyLink(accountID, token string) string {
	return fmt.Sprintf("%s/verify-email?account=%s&token=%s",
		l.BaseURL, url.QueryEscape(accountID), url.QueryEscape(token))
}

func (l *Links) ResetLink(accountID, token string) string {
	return fmt.Sprintf("%s/reset-password?account=%s&token=%s",
		l.BaseURL, url.QueryEscape(accountID), url.QueryEscape(token))
}
