package graph

import "time"

// Site is a SharePoint site.
type Site struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
}

// List is a SharePoint list or document library.
type List struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	WebURL      string `json:"webUrl"`
}

// Facet holds the type-specific settings of a column. A nil facet means the
// column is not of that type.
type Facet map[string]any

// Column describes one column of a list.
type Column struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ReadOnly    bool   `json:"readOnly"`
	Hidden      bool   `json:"hidden"`

	Text               Facet `json:"text,omitempty"`
	Number             Facet `json:"number,omitempty"`
	Currency           Facet `json:"currency,omitempty"`
	Choice             Facet `json:"choice,omitempty"`
	Lookup             Facet `json:"lookup,omitempty"`
	Boolean            Facet `json:"boolean,omitempty"`
	DateTime           Facet `json:"dateTime,omitempty"`
	PersonOrGroup      Facet `json:"personOrGroup,omitempty"`
	HyperlinkOrPicture Facet `json:"hyperlinkOrPicture,omitempty"`
}

// Item is a list row. Fields are keyed by column internal name.
type Item struct {
	ID                   string         `json:"id"`
	WebURL               string         `json:"webUrl,omitempty"`
	CreatedDateTime      time.Time      `json:"createdDateTime"`
	LastModifiedDateTime time.Time      `json:"lastModifiedDateTime"`
	Fields               map[string]any `json:"fields"`
}

// Drive is the storage behind a document library.
type Drive struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	DriveType string `json:"driveType"`
	WebURL    string `json:"webUrl"`
}

// DriveItem is an uploaded file.
type DriveItem struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	WebURL string `json:"webUrl"`
	Size   int64  `json:"size"`
	File   *struct {
		MimeType string `json:"mimeType"`
	} `json:"file,omitempty"`
}

type collection[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}
