package sharefile

import (
	"context"
	"fmt"
	"log/slog"
)

type createFolderRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// fetchItem runs a GET against endpoint and normalizes the item.
func (c *Client) fetchItem(ctx context.Context, endpoint string) (*Item, error) {
	ir, err := decodeInto[itemResponse](c.get(ctx, endpoint))
	if err != nil {
		return nil, err
	}

	item := ir.toItem(c.logger)

	return &item, nil
}

// GetUser returns the user with id, or the authenticated user when id is
// empty.
func (c *Client) GetUser(ctx context.Context, id string) (*User, error) {
	c.logger.Debug("getting user", slog.String("user_id", id))

	return decodeInto[User](c.get(ctx, fmt.Sprintf("Users(%s)", id)))
}

// UpdateUser patches the user with id.
func (c *Client) UpdateUser(ctx context.Context, id string, patch map[string]any) (*User, error) {
	c.logger.Info("updating user", slog.String("user_id", id))

	return decodeInto[User](c.patch(ctx, fmt.Sprintf("Users(%s)", id), patchPayload(patch)))
}

// GetItem retrieves an item by id, optionally expanding its children.
func (c *Client) GetItem(ctx context.Context, itemID string, withChildren bool) (*Item, error) {
	c.logger.Debug("getting item",
		slog.String("item_id", itemID),
		slog.Bool("children", withChildren),
	)

	endpoint := fmt.Sprintf("Items(%s)", itemID)
	if withChildren {
		endpoint += "?$expand=Children"
	}

	return c.fetchItem(ctx, endpoint)
}

// GetItemByPath retrieves an item by path, relative to rootID when given
// and to the account root otherwise.
func (c *Client) GetItemByPath(ctx context.Context, path, rootID string) (*Item, error) {
	c.logger.Debug("getting item by path",
		slog.String("path", path),
		slog.String("root_id", rootID),
	)

	if rootID == "" {
		return c.fetchItem(ctx, "Items/ByPath?Path="+encodePathSegments(path))
	}

	return c.fetchItem(ctx, fmt.Sprintf("Items(%s)/ByPath?Path=%s", rootID, encodePathSegments(path)))
}

// GetItemBreadcrumbs returns the chain of folders from the root down to the
// item's parent.
func (c *Client) GetItemBreadcrumbs(ctx context.Context, itemID string) ([]Item, error) {
	c.logger.Debug("getting breadcrumbs", slog.String("item_id", itemID))

	f, err := decodeInto[feed[itemResponse]](c.get(ctx, fmt.Sprintf("Items(%s)/Breadcrumbs", itemID)))
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(f.Value))
	for i := range f.Value {
		items = append(items, f.Value[i].toItem(c.logger))
	}

	return items, nil
}

// CreateFolder creates a folder under parentID.
func (c *Client) CreateFolder(
	ctx context.Context, parentID, name, description string, overwrite bool,
) (*Item, error) {
	c.logger.Info("creating folder",
		slog.String("parent_id", parentID),
		slog.String("name", name),
		slog.Bool("overwrite", overwrite),
	)

	q := new(Query).
		Set("overwrite", overwrite).
		Set("passthrough", false)

	ir, err := decodeInto[itemResponse](c.post(ctx,
		withQuery(fmt.Sprintf("Items(%s)/Folder", parentID), q),
		createFolderRequest{Name: name, Description: description},
	))
	if err != nil {
		return nil, err
	}

	item := ir.toItem(c.logger)

	return &item, nil
}

// CopyItem copies itemID into the folder targetID.
func (c *Client) CopyItem(ctx context.Context, targetID, itemID string, overwrite bool) (*Item, error) {
	c.logger.Info("copying item",
		slog.String("item_id", itemID),
		slog.String("target_id", targetID),
		slog.Bool("overwrite", overwrite),
	)

	q := new(Query).
		Set("targetid", targetID).
		Set("overwrite", overwrite)

	ir, err := decodeInto[itemResponse](c.post(ctx, withQuery(fmt.Sprintf("Items(%s)/Copy", itemID), q), nil))
	if err != nil {
		return nil, err
	}

	item := ir.toItem(c.logger)

	return &item, nil
}

// UpdateItem patches an item's properties (Name, FileName, Description,
// Parent, ...).
func (c *Client) UpdateItem(
	ctx context.Context, itemID string, patch map[string]any, forceSync, notify bool,
) (*Item, error) {
	c.logger.Info("updating item",
		slog.String("item_id", itemID),
		slog.Int("fields", len(patch)),
	)

	q := new(Query).
		Set("forceSync", forceSync).
		Set("notify", notify)

	endpoint := withQuery(fmt.Sprintf("Items(%s)", itemID), q)

	ir, err := decodeInto[itemResponse](c.patch(ctx, endpoint, patchPayload(patch)))
	if err != nil {
		return nil, err
	}

	item := ir.toItem(c.logger)

	return &item, nil
}

// DeleteItem deletes an item. singleVersion deletes only this version of a
// file instead of all versions with the same name.
func (c *Client) DeleteItem(ctx context.Context, itemID string, singleVersion, forceSync bool) error {
	c.logger.Info("deleting item",
		slog.String("item_id", itemID),
		slog.Bool("single_version", singleVersion),
	)

	q := new(Query).
		Set("singleversion", singleVersion).
		Set("forceSync", forceSync)

	_, err := c.del(ctx, withQuery(fmt.Sprintf("Items(%s)", itemID), q))

	return err
}

// GetThumbnailURL returns a redirection to the item's thumbnail. size is
// ThumbnailMedium or ThumbnailLarge.
func (c *Client) GetThumbnailURL(ctx context.Context, itemID string, size int) (*Redirection, error) {
	if size == 0 {
		size = ThumbnailMedium
	}

	c.logger.Debug("getting thumbnail url",
		slog.String("item_id", itemID),
		slog.Int("size", size),
	)

	q := new(Query).
		Set("size", size).
		Set("redirect", false)

	return decodeInto[Redirection](c.get(ctx, withQuery(fmt.Sprintf("Items(%s)/Thumbnail", itemID), q)))
}

// GetWebAppLink returns a browser link that opens the item in the web app.
func (c *Client) GetWebAppLink(ctx context.Context, itemID string) (*Redirection, error) {
	c.logger.Debug("getting web app link", slog.String("item_id", itemID))

	return decodeInto[Redirection](c.post(ctx, fmt.Sprintf("Items(%s)/WebAppLink", itemID), nil))
}

// patchPayload returns nil for an empty patch so the request goes out
// without a body.
func patchPayload(patch map[string]any) any {
	if len(patch) == 0 {
		return nil
	}

	return patch
}
