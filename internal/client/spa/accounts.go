package spa

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	httpclient "github.com/priroda-spa/loyalty-console/internal/client/http"
	"github.com/priroda-spa/loyalty-console/internal/loyalty"
)

// ResolveByCode looks a loyalty account up by its short unique code. The
// code is canonicalized (trimmed, uppercased) before the request; an
// unknown or empty code yields loyalty.ErrNotFound. There is no retry on
// failure, the caller re-invokes manually.
func (c *Client) ResolveByCode(ctx context.Context, code string) (*loyalty.Account, error) {
	canonical := loyalty.CanonicalCode(code)
	if canonical == "" {
		return nil, errors.Wrap(loyalty.ErrNotFound, "empty code")
	}

	path := fmt.Sprintf("/admin/loyalty/users/by-code/%s", url.PathEscape(canonical))
	resp, err := c.http.Get(ctx, path, c.requestOptions()...)
	if err != nil {
		var httpErr *httpclient.HTTPError
		if errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound {
			return nil, wrapHTTPError(loyalty.ErrNotFound, httpErr)
		}
		return nil, err
	}

	var account loyalty.Account
	if err := httpclient.DecodeJSON(resp, &account); err != nil {
		return nil, errors.Wrap(err, "decode account")
	}
	return &account, nil
}

// UserListParams filters and pages the admin user listing.
type UserListParams struct {
	Search     string
	IsActive   *bool
	IsVerified *bool
	MinLoyalty *int
	SortBy     string
	SortDir    string
	Limit      int
	Offset     int
}

// UsersPage is one page of the admin user listing.
type UsersPage struct {
	Items []loyalty.Account `json:"items"`
	Total int               `json:"total"`
}

// ListUsers fetches a page of accounts, for operators who have a name or
// email rather than a short code.
func (c *Client) ListUsers(ctx context.Context, params UserListParams) (*UsersPage, error) {
	opts := c.requestOptions()
	if params.Search != "" {
		opts = append(opts, httpclient.WithQueryParam("search", params.Search))
	}
	if params.IsActive != nil {
		opts = append(opts, httpclient.WithQueryParam("is_active", fmt.Sprintf("%t", *params.IsActive)))
	}
	if params.IsVerified != nil {
		opts = append(opts, httpclient.WithQueryParam("is_verified", fmt.Sprintf("%t", *params.IsVerified)))
	}
	if params.MinLoyalty != nil {
		opts = append(opts, httpclient.WithQueryParam("min_loyalty", fmt.Sprintf("%d", *params.MinLoyalty)))
	}
	if params.SortBy != "" {
		opts = append(opts, httpclient.WithQueryParam("sort_by", params.SortBy))
	}
	if params.SortDir != "" {
		opts = append(opts, httpclient.WithQueryParam("sort_dir", params.SortDir))
	}
	if params.Limit > 0 {
		opts = append(opts, httpclient.WithQueryParam("limit", fmt.Sprintf("%d", params.Limit)))
	}
	if params.Offset > 0 {
		opts = append(opts, httpclient.WithQueryParam("offset", fmt.Sprintf("%d", params.Offset)))
	}

	resp, err := c.http.Get(ctx, "/admin/users", opts...)
	if err != nil {
		return nil, err
	}

	var page UsersPage
	if err := httpclient.DecodeJSON(resp, &page); err != nil {
		return nil, errors.Wrap(err, "decode user listing")
	}
	return &page, nil
}
