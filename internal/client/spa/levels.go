package spa

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

// Level is a loyalty tier. The cashback percent is read-only through the
// API; the backend assigns it per tier.
type Level struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	MinBonuses      int    `json:"min_bonuses"`
	CashbackPercent int    `json:"cashback_percent"`
	ColorStart      string `json:"color_start"`
	ColorEnd        string `json:"color_end"`
	Icon            string `json:"icon"`
	OrderIndex      int    `json:"order_index"`
}

// LevelCreate is the payload for creating a tier.
type LevelCreate struct {
	Name       string `json:"name"`
	MinBonuses int    `json:"min_bonuses"`
	ColorStart string `json:"color_start"`
	ColorEnd   string `json:"color_end"`
	Icon       string `json:"icon,omitempty"`
	OrderIndex int    `json:"order_index"`
}

// LevelUpdate is the payload for a partial tier update. Nil fields are
// left unchanged.
type LevelUpdate struct {
	Name       *string `json:"name,omitempty"`
	MinBonuses *int    `json:"min_bonuses,omitempty"`
	ColorStart *string `json:"color_start,omitempty"`
	ColorEnd   *string `json:"color_end,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
}

// ListLevels returns all loyalty tiers ordered as the backend presents
// them (order index, then threshold).
func (c *Client) ListLevels(ctx context.Context) ([]Level, error) {
	resp, err := c.http.Get(ctx, "/admin/loyalty/levels", c.requestOptions()...)
	if err != nil {
		return nil, err
	}
	var levels []Level
	if err := httpclient.DecodeJSON(resp, &levels); err != nil {
		return nil, errors.Wrap(err, "decode levels")
	}
	return levels, nil
}

// CreateLevel creates a loyalty tier.
func (c *Client) CreateLevel(ctx context.Context, payload LevelCreate) (*Level, error) {
	resp, err := c.http.Post(ctx, "/admin/loyalty/levels", payload, c.requestOptions()...)
	if err != nil {
		return nil, err
	}
	var level Level
	if err := httpclient.DecodeJSON(resp, &level); err != nil {
		return nil, errors.Wrap(err, "decode level")
	}
	return &level, nil
}

// UpdateLevel applies a partial update to a loyalty tier.
func (c *Client) UpdateLevel(ctx context.Context, levelID int64, payload LevelUpdate) (*Level, error) {
	path := fmt.Sprintf("/admin/loyalty/levels/%d", levelID)
	resp, err := c.http.Patch(ctx, path, payload, c.requestOptions()...)
	if err != nil {
		return nil, c.mapNotFound(err)
	}
	var level Level
	if err := httpclient.DecodeJSON(resp, &level); err != nil {
		return nil, errors.Wrap(err, "decode level")
	}
	return &level, nil
}

// DeleteLevel removes a loyalty tier.
func (c *Client) DeleteLevel(ctx context.Context, levelID int64) error {
	path := fmt.Sprintf("/admin/loyalty/levels/%d", levelID)
	resp, err := c.http.Delete(ctx, path, c.requestOptions()...)
	if err != nil {
		return c.mapNotFound(err)
	}
	return httpclient.DecodeJSON(resp, nil)
}

func (c *Client) mapNotFound(err error) error {
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) && httpErr.StatusCode == 404 {
		return wrapHTTPError(loyalty.ErrNotFound, httpErr)
	}
	return err
}
