package browser

import "context"

// Client defines the browser operations used by the capture service and
// the API handlers.
type Client interface {
	IsRunning() bool
	GetEndpoint() string
	Capture(ctx context.Context, url string, opts CaptureOptions) (*CaptureResult, error)
	GetPageInfo(ctx context.Context, url string, opts PageOptions) (*PageInfo, error)
}
