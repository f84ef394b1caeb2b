// Package googlecalendar is a minimal Google Calendar API client covering
// what the mirror and availability paths need: free/busy lookup, event
// insert/update/delete, and the OAuth token exchange/refresh flow. The
// credential is passed into every call; nothing is cached in the client.
package googlecalendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"slotbook/internal/domain"
)

const (
	defaultAPIBase  = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"

	calendarScope = "https://www.googleapis.com/auth/calendar"
)

// ErrUnavailable marks any network, auth, or server-side failure of the
// calendar provider. Callers treat it as non-fatal to the local operation.
var ErrUnavailable = errors.New("external calendar unavailable")

// Interval is one busy span reported by the provider.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Event is the provider-side representation of a mirrored reservation.
type Event struct {
	Summary     string
	Description string
	Start       time.Time
	End         time.Time
}

type Client struct {
	hc           *http.Client
	clientID     string
	clientSecret string
	redirectURI  string

	// Overridable for tests.
	apiBase  string
	tokenURL string
	authURL  string
}

func New(clientID, clientSecret, redirectURI string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		hc:           &http.Client{Timeout: timeout},
		clientID:     clientID,
		clientSecret: clientSecret,
		redirectURI:  redirectURI,
		apiBase:      defaultAPIBase,
		tokenURL:     defaultTokenURL,
		authURL:      defaultAuthURL,
	}
}

// AuthURL builds the consent URL. The tenant id travels in state so the
// completion callback knows which sync record to create.
func (c *Client) AuthURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.clientID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("response_type", "code")
	q.Set("scope", calendarScope)
	q.Set("access_type", "offline")
	q.Set("prompt", "consent")
	q.Set("state", state)
	return c.authURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a token pair.
func (c *Client) ExchangeCode(ctx context.Context, code string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("redirect_uri", c.redirectURI)
	return c.tokenRequest(ctx, form, "")
}

// RefreshCredential obtains a new access token. Google does not return the
// refresh token again, so the old one is carried over.
func (c *Client) RefreshCredential(ctx context.Context, refreshToken string) (domain.Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	return c.tokenRequest(ctx, form, refreshToken)
}

func (c *Client) tokenRequest(ctx context.Context, form url.Values, keepRefreshToken string) (domain.Credential, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.Credential{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.hc.Do(req)
	if err != nil {
		return domain.Credential{}, fmt.Errorf("%w: token request: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode >= 400 {
		return domain.Credential{}, fmt.Errorf("%w: token endpoint status=%d", ErrUnavailable, resp.StatusCode)
	}

	var tr struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.Credential{}, fmt.Errorf("%w: bad token response: %v", ErrUnavailable, err)
	}

	cred := domain.Credential{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		TokenExpiry:  time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = keepRefreshToken
	}
	return cred, nil
}

// PrimaryCalendar resolves the id of the account's primary calendar.
func (c *Client) PrimaryCalendar(ctx context.Context, cred domain.Credential) (string, error) {
	var list struct {
		Items []struct {
			ID      string `json:"id"`
			Primary bool   `json:"primary"`
		} `json:"items"`
	}
	if err := c.do(ctx, cred, http.MethodGet, "/users/me/calendarList", nil, &list); err != nil {
		return "", err
	}
	for _, item := range list.Items {
		if item.Primary {
			return item.ID, nil
		}
	}
	return "", fmt.Errorf("%w: no primary calendar in list", ErrUnavailable)
}

// ListBusyIntervals queries the free/busy endpoint for one calendar.
func (c *Client) ListBusyIntervals(ctx context.Context, cred domain.Credential, calendarID string, start, end time.Time) ([]Interval, error) {
	payload := map[string]any{
		"timeMin": start.Format(time.RFC3339),
		"timeMax": end.Format(time.RFC3339),
		"items":   []map[string]string{{"id": calendarID}},
	}

	var fb struct {
		Calendars map[string]struct {
			Busy []struct {
				Start time.Time `json:"start"`
				End   time.Time `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := c.do(ctx, cred, http.MethodPost, "/freeBusy", payload, &fb); err != nil {
		return nil, err
	}

	cal, ok := fb.Calendars[calendarID]
	if !ok {
		return nil, nil
	}
	out := make([]Interval, 0, len(cal.Busy))
	for _, b := range cal.Busy {
		out = append(out, Interval{Start: b.Start, End: b.End})
	}
	return out, nil
}

// InsertEvent creates the mirrored event and returns the provider's id.
func (c *Client) InsertEvent(ctx context.Context, cred domain.Credential, calendarID string, ev Event) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	if err := c.do(ctx, cred, http.MethodPost, path, eventBody(ev), &created); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("%w: event insert returned no id", ErrUnavailable)
	}
	return created.ID, nil
}

func (c *Client) UpdateEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string, ev Event) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	return c.do(ctx, cred, http.MethodPut, path, eventBody(ev), nil)
}

func (c *Client) DeleteEvent(ctx context.Context, cred domain.Credential, calendarID, eventID string) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	return c.do(ctx, cred, http.MethodDelete, path, nil, nil)
}

func eventBody(ev Event) map[string]any {
	return map[string]any{
		"summary":     ev.Summary,
		"description": ev.Description,
		"start":       map[string]string{"dateTime": ev.Start.Format(time.RFC3339)},
		"end":         map[string]string{"dateTime": ev.End.Format(time.RFC3339)},
	}
}

func (c *Client) do(ctx context.Context, cred domain.Credential, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrUnavailable, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		// 404 on delete means the event is already gone; not a failure
		// for a best-effort mirror.
		if method == http.MethodDelete && resp.StatusCode == http.StatusNotFound {
			return nil
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: %s %s status=%d body=%s", ErrUnavailable, method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: decode %s response: %v", ErrUnavailable, path, err)
		}
	}
	return nil
}
