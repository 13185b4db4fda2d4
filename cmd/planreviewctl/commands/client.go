package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/roasbeef/planreview/internal/review"
)

// apiError mirrors the {"error":"..."} wire shape the Control Plane
// returns on non-2xx responses.
type apiError struct {
	Error string `json:"error"`
}

// client is a thin wrapper over the Control Plane's REST surface.
type client struct {
	baseURL string
	http    *http.Client
}

func newClient() *client {
	return &client{baseURL: daemonAddr, http: http.DefaultClient}
}

func (c *client) do(method, path string, query url.Values, body any, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, u, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error != "" {
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *client) getReview(id string) (*review.Review, error) {
	var rev review.Review
	if err := c.do(http.MethodGet, "/api/reviews/"+id, nil, nil, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (c *client) listPending(project string) ([]*review.Review, error) {
	var reviews []*review.Review
	q := url.Values{}
	if project != "" {
		q.Set("project", project)
	}
	if err := c.do(http.MethodGet, "/api/reviews/pending", q, nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *client) approve(id, note string) (*review.Review, error) {
	var rev review.Review
	body := map[string]any{"note": note}
	if err := c.do(http.MethodPost, "/api/reviews/"+id+"/approve", nil, body, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

func (c *client) requestChanges(id string) (*review.Review, error) {
	var rev review.Review
	if err := c.do(http.MethodPost, "/api/reviews/"+id+"/request-changes", nil, nil, &rev); err != nil {
		return nil, err
	}
	return &rev, nil
}

// outputJSON prints v as indented JSON.
func outputJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
