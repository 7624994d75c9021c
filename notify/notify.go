// Package notify posts a short recommendation summary to a chat webhook so
// the household sees what to cook without opening the app.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pantrychef"
)

type doer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Client struct {
	webhookURL string
	httpClient doer
}

func NewClient(webhookURL string, httpClient doer) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: httpClient,
	}
}

// PostSummary renders the recipe list to one message and posts it.
func (c *Client) PostSummary(ctx context.Context, channel string, recipes []pantrychef.Recipe) error {
	payload, err := json.Marshal(map[string]any{
		"channel": channel,
		"text":    Summary(recipes),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to post message: %s", resp.Status)
	}

	return nil
}

// Summary renders one line per recipe: name, type, cooking time, and an
// urgency marker for recipes that consume expiring ingredients.
func Summary(recipes []pantrychef.Recipe) string {
	if len(recipes) == 0 {
		return "No recipes recommended today."
	}

	var b strings.Builder
	b.WriteString("Today's recommendations:\n")
	for _, r := range recipes {
		mark := ""
		if r.ExpirationPriority {
			mark = " ⏰"
		}
		fmt.Fprintf(&b, "• %s (%s, %s)%s\n", r.Name, r.Type, r.CookingTime, mark)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
