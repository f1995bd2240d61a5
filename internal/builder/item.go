package builder

// Type classifies what a build item describes.
type Type string

const (
	TypePage         Type = "page"
	TypeRoute        Type = "route"
	TypeRedirect     Type = "redirect"
	TypeAsset        Type = "asset"
	TypeDir          Type = "dir"
	TypeFile         Type = "file"
	TypeRedirectsMap Type = "redirects-map"
)

// Status is the outcome of building one item.
type Status string

const (
	// StatusUnset marks an item that has not been classified yet.
	StatusUnset Status = ""
	// StatusGenerated means the output file was written in this run.
	StatusGenerated Status = "generated"
	// StatusOutdated means the existing output is older than its source.
	StatusOutdated Status = "outdated"
	// StatusUpToDate means the existing output is at least as new as its source.
	StatusUpToDate Status = "uptodate"
	// StatusMissing means no output exists for the item.
	StatusMissing Status = "missing"
	// StatusIgnore means the item was deliberately not built; Reason says why.
	StatusIgnore Status = "ignore"
	// StatusInvalid means the item could not be resolved, e.g. an unmatched route.
	StatusInvalid Status = "invalid"
	// StatusIncluded means the item is represented inside another artifact,
	// e.g. a redirect included in the redirect maps.
	StatusIncluded Status = "included"
	// StatusFailed means writing or copying the output failed.
	StatusFailed Status = "failed"
)

// Item is one structured record describing the outcome of attempting to
// build a single page, route, asset or redirect map. In write mode an item
// corresponds to at most one filesystem write; in report mode it corresponds
// to none.
type Item struct {
	Type     Type     `json:"type"`
	Status   Status   `json:"status"`
	Source   string   `json:"source,omitempty"`
	Dest     string   `json:"dest,omitempty"`
	URI      string   `json:"uri,omitempty"`
	Size     *int64   `json:"size"`
	Reason   string   `json:"reason,omitempty"`
	Title    string   `json:"title,omitempty"`
	Files    []string `json:"files,omitempty"`
	Redirect string   `json:"redirect,omitempty"`
	Code     int      `json:"code,omitempty"`
	Language string   `json:"language,omitempty"`
}

func sizeOf(n int64) *int64 { return &n }
