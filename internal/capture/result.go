package capture

import "time"

// Result is the flat record produced by a single capture. Failed captures
// carry Success=false and Error instead of the file fields.
type Result struct {
	Success    bool      `json:"success"`
	URL        string    `json:"url"`
	Output     string    `json:"output,omitempty"`
	Format     string    `json:"format,omitempty"`
	PageWidth  int       `json:"page_width,omitempty"`
	PageHeight int       `json:"page_height,omitempty"`
	Title      string    `json:"title,omitempty"`
	FileSize   int64     `json:"file_size,omitempty"`
	FileSizeMB float64   `json:"file_size_mb,omitempty"`
	Viewport   string    `json:"viewport,omitempty"`
	Mobile     bool      `json:"mobile"`
	Timestamp  time.Time `json:"timestamp"`
	Error      string    `json:"error,omitempty"`

	// SERP captures only.
	Query  string `json:"query,omitempty"`
	Engine string `json:"engine,omitempty"`
	Region string `json:"region,omitempty"`

	// Layout audit captures only.
	Breakpoint int `json:"breakpoint,omitempty"`

	// Monitoring snapshots only.
	Comparison *Comparison `json:"comparison,omitempty"`
}

// Comparison reports the size delta between a monitoring snapshot and the
// previous one.
type Comparison struct {
	PreviousFile      string  `json:"previous_file"`
	PreviousSize      int64   `json:"previous_size"`
	SizeDifference    int64   `json:"size_difference"`
	SizeDifferencePct float64 `json:"size_difference_percent"`
	Changed           bool    `json:"changed"`
}

// BothResult pairs the desktop and mobile captures of one URL.
type BothResult struct {
	URL       string    `json:"url"`
	Desktop   *Result   `json:"desktop"`
	Mobile    *Result   `json:"mobile,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// AuditResult is the outcome of a multi-URL screenshot audit.
type AuditResult struct {
	AuditDir  string        `json:"audit_dir"`
	URLs      []*BothResult `json:"urls"`
	Timestamp time.Time     `json:"timestamp"`
	Report    string        `json:"report,omitempty"`
}

// SERPBatchResult is the outcome of a batch of search results captures.
type SERPBatchResult struct {
	OutputDir string    `json:"output_dir"`
	Engine    string    `json:"engine"`
	Region    string    `json:"region,omitempty"`
	Queries   []*Result `json:"queries"`
	Timestamp time.Time `json:"timestamp"`
}

// LayoutResult is the outcome of a responsive layout audit.
type LayoutResult struct {
	URL         string    `json:"url"`
	OutputDir   string    `json:"output_dir"`
	Breakpoints []*Result `json:"breakpoints"`
	Timestamp   time.Time `json:"timestamp"`
	HTMLReport  string    `json:"html_report,omitempty"`
}

// VisualAuditResult is the outcome of a client-vs-competitors visual audit.
type VisualAuditResult struct {
	Timestamp   time.Time     `json:"timestamp"`
	Client      *BothResult   `json:"client"`
	Competitors []*BothResult `json:"competitors"`
	SERP        []*Result     `json:"serp,omitempty"`
	HTMLReport  string        `json:"html_report,omitempty"`
	JSONReport  string        `json:"json_report,omitempty"`
}
