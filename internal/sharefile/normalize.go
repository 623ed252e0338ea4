package sharefile

import (
	"log/slog"
	"strings"
	"time"
)

// Timestamp validation bounds. Timestamps outside this range are dropped
// with a warning.
const (
	minValidYear = 1970
	maxValidYear = 2100
)

// itemResponse mirrors the ShareFile Item JSON. Unexported: callers use
// Item via toItem().
type itemResponse struct {
	ODataType     string         `json:"odata.type"`
	ID            string         `json:"Id"`
	Name          string         `json:"Name"`
	FileName      string         `json:"FileName"`
	Description   string         `json:"Description"`
	FileSizeBytes int64          `json:"FileSizeBytes"`
	Hash          string         `json:"Hash"`
	FileCount     int            `json:"FileCount"`
	CreationDate  string         `json:"CreationDate"`
	ProgenyEdit   string         `json:"ProgenyEditDate"`
	ClientModDate string         `json:"ClientModifiedDate"`
	CreatorName   string         `json:"CreatorNameShort"`
	Parent        *itemResponse  `json:"Parent"`
	Children      []itemResponse `json:"Children"`
}

// toItem normalizes an API item into Item.
func (r *itemResponse) toItem(logger *slog.Logger) Item {
	item := Item{
		ID:          r.ID,
		Type:        r.ODataType,
		Name:        r.Name,
		FileName:    r.FileName,
		Description: r.Description,
		Size:        r.FileSizeBytes,
		Hash:        strings.ToLower(r.Hash),
		IsFolder:    isFolderType(r.ODataType),
		FileCount:   r.FileCount,
		CreatorName: r.CreatorName,
	}

	if item.Name == "" {
		item.Name = r.FileName
	}

	if r.Parent != nil {
		item.ParentID = r.Parent.ID
	}

	item.CreatedAt = parseTimestamp(r.CreationDate, "CreationDate", r.ID, logger)

	modified := r.ClientModDate
	if modified == "" {
		modified = r.ProgenyEdit
	}

	item.ModifiedAt = parseTimestamp(modified, "ClientModifiedDate", r.ID, logger)

	if r.Children != nil {
		item.ChildrenKnown = true
		item.Children = make([]Item, 0, len(r.Children))

		for i := range r.Children {
			item.Children = append(item.Children, r.Children[i].toItem(logger))
		}
	}

	return item
}

// isFolderType reports whether an OData type names a folder (including the
// symbolic-link and share-folder variants).
func isFolderType(odataType string) bool {
	return strings.HasSuffix(odataType, ".Folder") ||
		strings.HasSuffix(odataType, ".SymbolicLink") ||
		strings.HasSuffix(odataType, ".Redirection")
}

// parseTimestamp parses an API timestamp. Empty values yield the zero
// time; malformed or out-of-range values are logged and dropped.
func parseTimestamp(raw, field, itemID string, logger *slog.Logger) time.Time {
	if raw == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		// The API omits the zone designator on some endpoints; those are UTC.
		t, err = time.ParseInLocation("2006-01-02T15:04:05.999999999", raw, time.UTC)
	}

	if err != nil {
		logger.Warn("invalid timestamp, ignoring",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
			slog.String("error", err.Error()),
		)

		return time.Time{}
	}

	if t.Year() < minValidYear || t.Year() > maxValidYear {
		logger.Warn("timestamp out of valid range, ignoring",
			slog.String("field", field),
			slog.String("item_id", itemID),
			slog.String("raw", raw),
		)

		return time.Time{}
	}

	return t
}
