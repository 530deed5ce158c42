package confluence

// Page is a wiki page with its optimistic-concurrency version token.
// The body is storage-format XHTML; Version must be presented on every
// write so the store can reject stale updates.
type Page struct {
	ID       string
	Title    string
	SpaceKey string
	Version  int
	URL      string
	Body     string
}

// Attachment is a named binary object on a page, versioned independently
// of the page body.
type Attachment struct {
	ID          string
	Title       string
	Filename    string
	MediaType   string
	Version     int
	DownloadURL string
}

// pageResponse mirrors the REST representation of a content item.
// API responses are decoded into these typed structs at the client
// boundary; loose maps never cross into the rest of the program.
type pageResponse struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Space struct {
		Key string `json:"key"`
	} `json:"space"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Body struct {
		Storage struct {
			Value string `json:"value"`
		} `json:"storage"`
	} `json:"body"`
	Links struct {
		WebUI string `json:"webui"`
	} `json:"_links"`
}

type contentListResponse struct {
	Results []pageResponse `json:"results"`
}

type attachmentResponse struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Version struct {
		Number int `json:"number"`
	} `json:"version"`
	Extensions struct {
		MediaType string `json:"mediaType"`
	} `json:"extensions"`
	Links struct {
		Download string `json:"download"`
	} `json:"_links"`
}

type attachmentListResponse struct {
	Results []attachmentResponse `json:"results"`
}

func (r pageResponse) toPage(baseURL string) *Page {
	url := ""
	if r.Links.WebUI != "" {
		url = baseURL + r.Links.WebUI
	}
	version := r.Version.Number
	if version == 0 {
		version = 1
	}
	return &Page{
		ID:       r.ID,
		Title:    r.Title,
		SpaceKey: r.Space.Key,
		Version:  version,
		URL:      url,
		Body:     r.Body.Storage.Value,
	}
}

func (r attachmentResponse) toAttachment() *Attachment {
	version := r.Version.Number
	if version == 0 {
		version = 1
	}
	mediaType := r.Extensions.MediaType
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return &Attachment{
		ID:          r.ID,
		Title:       r.Title,
		Filename:    r.Title,
		MediaType:   mediaType,
		Version:     version,
		DownloadURL: r.Links.Download,
	}
}
