package sharefile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Share types accepted by CreateShare.
const (
	ShareTypeSend    = "Send"
	ShareTypeRequest = "Request"
)

// ErrNoShareRequest is returned by CreateShare when req is nil.
var ErrNoShareRequest = errors.New("sharefile: share request is nil")

// CreateShare creates a share. With notify the service emails the
// recipients.
func (c *Client) CreateShare(ctx context.Context, req *ShareRequest, notify bool) (*Share, error) {
	if req == nil {
		return nil, ErrNoShareRequest
	}

	c.logger.Info("creating share",
		slog.String("share_type", req.ShareType),
		slog.Int("items", len(req.Items)),
		slog.Bool("notify", notify),
	)

	q := new(Query).
		Set("notify", notify).
		Set("direct", true)

	return decodeInto[Share](c.post(ctx, withQuery("Shares", q), req))
}

// NewSendShare builds a request sharing itemIDs for download.
func NewSendShare(title string, itemIDs ...string) *ShareRequest {
	req := &ShareRequest{
		ShareType: ShareTypeSend,
		Title:     title,
		Items:     make([]ItemRef, 0, len(itemIDs)),
	}

	for _, id := range itemIDs {
		req.Items = append(req.Items, ItemRef{ID: id})
	}

	return req
}

// GetAccessControl returns userID's permissions on itemID.
func (c *Client) GetAccessControl(ctx context.Context, itemID, userID string) (*AccessControl, error) {
	c.logger.Debug("getting access control",
		slog.String("item_id", itemID),
		slog.String("user_id", userID),
	)

	return decodeInto[AccessControl](c.get(ctx,
		fmt.Sprintf("AccessControls(principalid=%s,itemid=%s)", userID, itemID)))
}

// ListAccessControls returns every access control on itemID.
func (c *Client) ListAccessControls(ctx context.Context, itemID string) ([]AccessControl, error) {
	c.logger.Debug("listing access controls", slog.String("item_id", itemID))

	f, err := decodeInto[feed[AccessControl]](c.get(ctx, fmt.Sprintf("Items(%s)/AccessControls", itemID)))
	if err != nil {
		return nil, err
	}

	return f.Value, nil
}
