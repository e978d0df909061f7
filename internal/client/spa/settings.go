package spa

import (
	"context"

	"github.com/pkg/errors"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
)

// Settings are the global loyalty program settings.
type Settings struct {
	LoyaltyEnabled  bool `json:"loyalty_enabled"`
	PointsPer100Rub int  `json:"points_per_100_rub"`
}

// SettingsUpdate changes the accrual rate.
type SettingsUpdate struct {
	PointsPer100Rub int `json:"points_per_100_rub"`
}

// GetSettings returns the current loyalty program settings.
func (c *Client) GetSettings(ctx context.Context) (*Settings, error) {
	resp, err := c.http.Get(ctx, "/admin/loyalty/settings", c.requestOptions()...)
	if err != nil {
		return nil, err
	}
	var settings Settings
	if err := httpclient.DecodeJSON(resp, &settings); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	return &settings, nil
}

// UpdateSettings changes the loyalty program settings.
func (c *Client) UpdateSettings(ctx context.Context, payload SettingsUpdate) (*Settings, error) {
	resp, err := c.http.Patch(ctx, "/admin/loyalty/settings", payload, c.requestOptions()...)
	if err != nil {
		return nil, err
	}
	var settings Settings
	if err := httpclient.DecodeJSON(resp, &settings); err != nil {
		return nil, errors.Wrap(err, "decode settings")
	}
	return &settings, nil
}
