package screener

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ErrLoginFailed means the site rejected the credentials. It is fatal for the run.
var ErrLoginFailed = errors.New("login failed")

// Login authenticates the session. The login page is fetched first so the
// CSRF cookie and hidden form token are in place before the form is posted.
func (c *Client) Login(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password must be set", ErrLoginFailed)
	}

	loginURL, err := c.resolve(c.site.LoginPath)
	if err != nil {
		return err
	}

	page, err := c.get(ctx, loginURL, "text/html")
	if err != nil {
		return fmt.Errorf("failed to load login page: %w", err)
	}
	token := csrfToken(page)

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)
	if token != "" {
		form.Set("csrfmiddlewaretoken", token)
	}

	req, err := c.newRequest(ctx, http.MethodPost, loginURL, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", loginURL)

	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("%w: status %d", ErrLoginFailed, status)
	}
	if marker := c.site.LoginFailureMarker; marker != "" && bytes.Contains(body, []byte(marker)) {
		return fmt.Errorf("%w: %s", ErrLoginFailed, marker)
	}

	c.logger.Info("logged in", zap.String("user", username), zap.Bool("csrf", token != ""))
	return nil
}

// csrfToken returns the value of the csrfmiddlewaretoken hidden input, if any.
func csrfToken(page []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return ""
	}
	val, _ := doc.Find(`input[name="csrfmiddlewaretoken"]`).First().Attr("value")
	return val
}
