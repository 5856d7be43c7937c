package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/dukerupert/tandem/internal/model"
)

func (c *Client) Lists(ctx context.Context) ([]model.List, error) {
	var lists []model.List
	if err := c.do(ctx, http.MethodGet, "/rest/v1/lists", true, nil, &lists); err != nil {
		return nil, err
	}
	return lists, nil
}

func (c *Client) List(ctx context.Context, id string) (*model.List, error) {
	var l model.List
	if err := c.do(ctx, http.MethodGet, "/rest/v1/lists/"+url.PathEscape(id), true, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) CreateList(ctx context.Context, name string) (*model.List, error) {
	var l model.List
	if err := c.do(ctx, http.MethodPost, "/rest/v1/lists", true, map[string]string{"name": name}, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) UpdateList(ctx context.Context, id string, patch model.ListPatch) (*model.List, error) {
	var l model.List
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/lists/"+url.PathEscape(id), true, patch, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) DeleteList(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/lists/"+url.PathEscape(id), true, nil, nil)
}

// DeleteListsOwnedBy deletes every list created by userID, which must be the
// signed-in user.
func (c *Client) DeleteListsOwnedBy(ctx context.Context, userID string) error {
	q := url.Values{"created_by": {userID}}
	return c.do(ctx, http.MethodDelete, "/rest/v1/lists?"+q.Encode(), true, nil, nil)
}

// ListByShareToken resolves a share token. An unknown token is a 404 *Error.
func (c *Client) ListByShareToken(ctx context.Context, token string) (*model.ListRef, error) {
	var ref model.ListRef
	if err := c.do(ctx, http.MethodGet, "/rest/v1/shares/"+url.PathEscape(token), true, nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

// Membership returns userID's membership of listID, or nil when there is none.
func (c *Client) Membership(ctx context.Context, listID, userID string) (*model.ListMember, error) {
	var m model.ListMember
	err := c.do(ctx, http.MethodGet, "/rest/v1/lists/"+url.PathEscape(listID)+"/members/"+url.PathEscape(userID), true, nil, &m)
	if IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Join adds the signed-in user to a list. shareToken may be empty when the
// user holds an invitation for the list.
func (c *Client) Join(ctx context.Context, listID string, role model.Role, shareToken string) (*model.ListMember, error) {
	body := map[string]string{"role": string(role)}
	if shareToken != "" {
		body["share_token"] = shareToken
	}
	var m model.ListMember
	if err := c.do(ctx, http.MethodPost, "/rest/v1/lists/"+url.PathEscape(listID)+"/members", true, body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteMemberships(ctx context.Context, userID string) error {
	q := url.Values{"user_id": {userID}}
	return c.do(ctx, http.MethodDelete, "/rest/v1/members?"+q.Encode(), true, nil, nil)
}

func (c *Client) Items(ctx context.Context, listID string) ([]model.Item, error) {
	var items []model.Item
	if err := c.do(ctx, http.MethodGet, "/rest/v1/lists/"+url.PathEscape(listID)+"/items", true, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (c *Client) CreateItem(ctx context.Context, listID string, in model.NewItem) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPost, "/rest/v1/lists/"+url.PathEscape(listID)+"/items", true, in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error) {
	var item model.Item
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/items/"+url.PathEscape(id), true, patch, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/items/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) CreateInvite(ctx context.Context, listID, email string) (*model.ListInvite, error) {
	var inv model.ListInvite
	if err := c.do(ctx, http.MethodPost, "/rest/v1/lists/"+url.PathEscape(listID)+"/invites", true, map[string]string{"email": email}, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// PendingInvites returns the invitations addressed to the signed-in user.
func (c *Client) PendingInvites(ctx context.Context) ([]model.ListInvite, error) {
	var invites []model.ListInvite
	if err := c.do(ctx, http.MethodGet, "/rest/v1/invites", true, nil, &invites); err != nil {
		return nil, err
	}
	return invites, nil
}

func (c *Client) DeleteInvite(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/invites/"+url.PathEscape(id), true, nil, nil)
}

func (c *Client) Profile(ctx context.Context) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodGet, "/rest/v1/profile", true, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdateProfile(ctx context.Context, patch model.ProfilePatch) (*model.Profile, error) {
	var p model.Profile
	if err := c.do(ctx, http.MethodPatch, "/rest/v1/profile", true, patch, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeleteProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/rest/v1/profile", true, nil, nil)
}
