package spa

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
	"github.com/priroda-spa/loyalty-console/internal/logger"
	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

// ApplyAdjustment submits one composed adjustment as a single atomic
// request and returns the server's authoritative result. It never retries:
// a failed submission is the operator's to resubmit.
//
// A 400 from this endpoint means the spend lost the race against another
// balance change; it maps to loyalty.ErrInsufficientBalance so the session
// can force a re-resolve. A 422 is a malformed payload.
func (c *Client) ApplyAdjustment(ctx context.Context, userID int64, adj *loyalty.Adjustment) (*loyalty.AdjustmentResult, error) {
	if adj == nil {
		return nil, loyalty.ErrEmptyAdjustment
	}

	path := fmt.Sprintf("/admin/loyalty/users/%d/adjust", userID)
	resp, err := c.http.Post(ctx, path, adj, c.requestOptions()...)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) {
			switch httpErr.StatusCode {
			case http.StatusBadRequest:
				return nil, wrapHTTPError(loyalty.ErrInsufficientBalance, httpErr)
			case http.StatusUnprocessableEntity:
				return nil, wrapHTTPError(loyalty.ErrValidation, httpErr)
			case http.StatusNotFound:
				return nil, wrapHTTPError(loyalty.ErrNotFound, httpErr)
			}
		}
		return nil, err
	}

	var result loyalty.AdjustmentResult
	if err := httpclient.DecodeJSON(resp, &result); err != nil {
		return nil, errors.Wrap(err, "decode adjustment result")
	}

	logger.Info("adjustment applied",
		zap.Int64("user_id", userID),
		zap.Int("bonuses_awarded", result.BonusesAwarded),
		zap.Int("bonuses_spent", result.BonusesSpent),
		zap.Int("current_bonuses", result.CurrentBonuses))

	return &result, nil
}
