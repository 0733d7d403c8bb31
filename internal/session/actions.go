// File: internal/session/actions.go
package session

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/krellwind/tether/internal/statestore"
)

// refSelector renders an element reference as the daemon's selector syntax.
func refSelector(ref string) string { return "@" + ref }

// Launch starts (or re-binds) the browser in the requested mode. The
// headless flag is pinned for the daemon's lifetime.
func (c *Client) Launch(headless bool) (map[string]any, error) {
	return c.Send("launch", map[string]any{"headless": headless})
}

// Navigate loads a URL in the active page.
func (c *Client) Navigate(url string) error {
	_, err := c.Send("navigate", map[string]any{"url": url})
	return err
}

// Snapshot returns the accessibility-tree rendering of the active page.
func (c *Client) Snapshot(compact, interactive bool) (string, error) {
	data, err := c.Send("snapshot", map[string]any{
		"compact":     compact,
		"interactive": interactive,
	})
	if err != nil {
		return "", err
	}
	snap, _ := data["snapshot"].(string)
	return snap, nil
}

// Click clicks the element behind a snapshot ref.
func (c *Client) Click(ref string) error {
	_, err := c.Send("click", map[string]any{"selector": refSelector(ref)})
	return err
}

// Fill replaces an input's value wholesale.
func (c *Client) Fill(ref, value string) error {
	_, err := c.Send("fill", map[string]any{
		"selector": refSelector(ref),
		"value":    value,
	})
	return err
}

// Type sends individual keystrokes to an element, optionally submitting with
// Enter afterwards.
func (c *Client) Type(ref, text string, submit bool) error {
	if _, err := c.Send("type", map[string]any{
		"selector": refSelector(ref),
		"text":     text,
	}); err != nil {
		return err
	}
	if submit {
		return c.Press("Enter")
	}
	return nil
}

// Press sends a bare key press to the page.
func (c *Client) Press(key string) error {
	_, err := c.Send("press", map[string]any{"key": key})
	return err
}

// Wait pauses inside the daemon for the given duration.
func (c *Client) Wait(d time.Duration) error {
	_, err := c.Send("wait", map[string]any{"timeout": d.Milliseconds()})
	return err
}

// Evaluate runs a script in the page and returns its result.
func (c *Client) Evaluate(script string) (any, error) {
	data, err := c.Send("evaluate", map[string]any{"script": script})
	if err != nil {
		return nil, err
	}
	return data["result"], nil
}

// Cookies fetches cookies, optionally filtered to the given URLs.
func (c *Client) Cookies(urls ...string) ([]any, error) {
	params := map[string]any{}
	if len(urls) > 0 {
		params["urls"] = urls
	}
	data, err := c.Send("cookies_get", params)
	if err != nil {
		return nil, err
	}
	cookies, _ := data["cookies"].([]any)
	return cookies, nil
}

// SetCookies installs cookies in one batched command.
func (c *Client) SetCookies(cookies []statestore.Cookie) error {
	_, err := c.Send("cookies_set", map[string]any{"cookies": cookies})
	return err
}

// StorageGet reads one web-storage key from the current origin. Type is
// "local" or "session".
func (c *Client) StorageGet(storageType, key string) (string, error) {
	data, err := c.Send("storage_get", map[string]any{
		"type": storageType,
		"key":  key,
	})
	if err != nil {
		return "", err
	}
	value, _ := data["value"].(string)
	return value, nil
}

// StorageSet writes one web-storage key on the current origin.
func (c *Client) StorageSet(storageType, key, value string) error {
	_, err := c.Send("storage_set", map[string]any{
		"type":  storageType,
		"key":   key,
		"value": value,
	})
	return err
}

// Upload attaches files to a file input.
func (c *Client) Upload(ref string, paths ...string) error {
	_, err := c.Send("upload", map[string]any{
		"selector": refSelector(ref),
		"files":    paths,
	})
	return err
}

// URL returns the active page's URL.
func (c *Client) URL() (string, error) {
	data, err := c.Send("url", nil)
	if err != nil {
		return "", err
	}
	url, _ := data["url"].(string)
	return url, nil
}

var refPattern = regexp.MustCompile(`\[ref=([A-Za-z0-9_-]+)\]`)

// FindRefByRole scans a snapshot for the first element of a role whose line
// mentions hint (case-insensitive). An empty hint matches any element of the
// role.
func FindRefByRole(snapshot, role, hint string) (string, bool) {
	role = strings.ToLower(role)
	hint = strings.ToLower(hint)
	for _, line := range strings.Split(snapshot, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, role) {
			continue
		}
		if hint != "" && !strings.Contains(lower, hint) {
			continue
		}
		if m := refPattern.FindStringSubmatch(line); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// FindRefsByRole collects every ref on snapshot lines mentioning the role.
func FindRefsByRole(snapshot, role string) []string {
	role = strings.ToLower(role)
	var refs []string
	for _, line := range strings.Split(snapshot, "\n") {
		if !strings.Contains(strings.ToLower(line), role) {
			continue
		}
		if m := refPattern.FindStringSubmatch(line); m != nil {
			refs = append(refs, m[1])
		}
	}
	return refs
}

// loginFieldHints are phrases that, on an input element's line, mark a
// credential form. Plain page text mentioning "login" must not trigger.
var loginFieldHints = []string{"email", "phone", "password", "username", "sign in", "log in"}

// LooksLikeLogin reports whether a snapshot appears to show a credential
// prompt rather than an authenticated page.
func LooksLikeLogin(snapshot string) bool {
	for _, line := range strings.Split(snapshot, "\n") {
		lower := strings.ToLower(line)
		if strings.Contains(lower, "accounts.google.com") {
			return true
		}
		if !strings.Contains(lower, "textbox") && !strings.Contains(lower, "input") {
			continue
		}
		for _, hint := range loginFieldHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}

// ClickByRole is a snapshot-then-click convenience for the common "find the
// button and press it" flow.
func (c *Client) ClickByRole(role, hint string) error {
	snap, err := c.Snapshot(true, true)
	if err != nil {
		return err
	}
	ref, ok := FindRefByRole(snap, role, hint)
	if !ok {
		return fmt.Errorf("no %s matching %q in current page", role, hint)
	}
	return c.Click(ref)
}
