package sharefile

import "time"

// Well-known folder aliases accepted wherever an item id is expected.
const (
	FolderTop       = "top"
	FolderHome      = "home"
	FolderFavorites = "favorites"
	FolderAllShared = "allshared"
)

// Thumbnail sizes supported by the Thumbnail endpoint.
const (
	ThumbnailMedium = 75
	ThumbnailLarge  = 600
)

// Item is a normalized file or folder.
type Item struct {
	ID            string
	Type          string // OData type, e.g. "ShareFile.Api.Models.Folder"
	Name          string
	FileName      string
	Description   string
	Size          int64
	Hash          string // MD5 of the file content, files only
	IsFolder      bool
	FileCount     int
	ParentID      string
	CreatedAt     time.Time
	ModifiedAt    time.Time
	CreatorName   string
	Children      []Item
	ChildrenKnown bool // Children was expanded in the response
}

// User is an account user.
type User struct {
	ID        string `json:"Id"`
	Type      string `json:"odata.type"`
	Email     string `json:"Email"`
	FullName  string `json:"FullName"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Company   string `json:"Company"`
	Username  string `json:"Username"`
}

// DownloadSpecification describes a prepared download.
type DownloadSpecification struct {
	DownloadToken         string `json:"DownloadToken"`
	DownloadURL           string `json:"DownloadUrl"`
	DownloadPrepStatusURL string `json:"DownloadPrepStatusURL"`
}

// UploadSpecification is issued by the Upload endpoint; every chunk of one
// upload is posted to ChunkURI.
type UploadSpecification struct {
	Method             string `json:"Method"`
	ChunkURI           string `json:"ChunkUri"`
	FinishURI          string `json:"FinishUri"`
	ProgressData       string `json:"ProgressData"`
	IsResume           bool   `json:"IsResume"`
	ResumeIndex        int64  `json:"ResumeIndex"`
	ResumeOffset       int64  `json:"ResumeOffset"`
	ResumeFileHash     string `json:"ResumeFileHash"`
	MaxNumberOfThreads int    `json:"MaxNumberOfThreads"`
}

// Redirection is returned by endpoints that hand out a URL (thumbnails, web
// app links).
type Redirection struct {
	Type string `json:"odata.type"`
	URI  string `json:"Uri"`
	Body string `json:"Body"`
}

// ItemRef references an item by id inside a request body.
type ItemRef struct {
	ID string `json:"Id"`
}

// ShareRequest is the body of a share creation.
type ShareRequest struct {
	ShareType        string    `json:"ShareType"` // "Send" or "Request"
	Title            string    `json:"Title,omitempty"`
	Items            []ItemRef `json:"Items,omitempty"`
	ExpirationDate   string    `json:"ExpirationDate,omitempty"`
	RequireLogin     bool      `json:"RequireLogin,omitempty"`
	RequireUserInfo  bool      `json:"RequireUserInfo,omitempty"`
	MaxDownloads     int       `json:"MaxDownloads,omitempty"`
	UsesStreamIDs    bool      `json:"UsesStreamIDs,omitempty"`
	IsViewOnly       bool      `json:"IsViewOnly,omitempty"`
	SendFrequency    int       `json:"SendFrequency,omitempty"`
	SendInterval     int       `json:"SendInterval,omitempty"`
	Parent           *ItemRef  `json:"Parent,omitempty"` // target folder of a Request share
}

// Share is a created share.
type Share struct {
	ID             string `json:"Id"`
	Type           string `json:"odata.type"`
	URI            string `json:"Uri"`
	ShareType      string `json:"ShareType"`
	Title          string `json:"Title"`
	ExpirationDate string `json:"ExpirationDate"`
}

// Principal is the user or group an access control applies to.
type Principal struct {
	ID    string `json:"Id"`
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

// AccessControl is one principal's permissions on an item.
type AccessControl struct {
	ID                   string     `json:"Id"`
	Principal            *Principal `json:"Principal"`
	CanUpload            bool       `json:"CanUpload"`
	CanDownload          bool       `json:"CanDownload"`
	CanView              bool       `json:"CanView"`
	CanDelete            bool       `json:"CanDelete"`
	CanManagePermissions bool       `json:"CanManagePermissions"`
	NotifyOnUpload       bool       `json:"NotifyOnUpload"`
	NotifyOnDownload     bool       `json:"NotifyOnDownload"`
	IsOwner              bool       `json:"IsOwner"`
}

// feed is the OData collection envelope.
type feed[T any] struct {
	Count int `json:"odata.count"`
	Value []T `json:"value"`
}
