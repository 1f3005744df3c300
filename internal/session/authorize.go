package session

import (
	"fmt"
	"net/url"
	"os/exec"
	"runtime"
	"strings"

	"github.com/johanforsgren/orgpulse/internal/provider/common"
	"golang.org/x/oauth2/github"
)

var ErrNoClientID = &common.Notice{
	Text:    "no GitHub client id configured",
	Message: "No GitHub client id configured. Set github.client_id or pass --client-id.",
}

// DefaultScopes are requested when none are configured.
var DefaultScopes = []string{"repo", "user"}

// Authorizer builds the redirect that starts the authorization-code flow.
// The code exchange happens server-side; the client only ever sees the
// resulting token.
type Authorizer struct {
	AuthURL  string
	ClientID string
	Scopes   []string
}

func NewAuthorizer(clientID string, scopes []string) Authorizer {
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	return Authorizer{
		AuthURL:  github.Endpoint.AuthURL,
		ClientID: clientID,
		Scopes:   scopes,
	}
}

// URL returns the authorization redirect. Scopes are joined with a bare
// comma, the form GitHub documents.
func (a Authorizer) URL() (string, error) {
	if a.ClientID == "" {
		return "", ErrNoClientID
	}
	base := a.AuthURL
	if base == "" {
		base = github.Endpoint.AuthURL
	}
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("invalid authorize url %q: %w", base, err)
	}

	scopes := a.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}
	escaped := make([]string, len(scopes))
	for i, s := range scopes {
		escaped[i] = url.QueryEscape(s)
	}

	return fmt.Sprintf("%s?client_id=%s&scope=%s", base, url.QueryEscape(a.ClientID), strings.Join(escaped, ",")), nil
}

// Opener shows a URL to the user.
type Opener func(url string) error

func OpenBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("open browser: %w", err)
	}
	go func() {
		_ = cmd.Wait()
	}()
	return nil
}

// CaptureCallback extracts the token from a callback URL. When one is
// present, root is the same origin at "/" with the query removed; otherwise
// root is u.
func CaptureCallback(u *url.URL) (token string, root *url.URL) {
	if u == nil {
		return "", nil
	}
	token = u.Query().Get("token")
	if token == "" {
		return "", u
	}

	stripped := *u
	stripped.Path = "/"
	stripped.RawPath = ""
	stripped.RawQuery = ""
	stripped.ForceQuery = false
	stripped.Fragment = ""
	stripped.RawFragment = ""
	return token, &stripped
}
