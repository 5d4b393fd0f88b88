package capture

import (
	"fmt"
	"net/url"
)

// Search engines supported for SERP captures.
const (
	EngineYandex = "yandex"
	EngineGoogle = "google"
)

// SERPURL builds the search results URL for a query. For Yandex the region
// is the lr parameter (213 is Moscow), for Google it is gl.
func SERPURL(query, engine, region string) (string, error) {
	encoded := url.QueryEscape(query)

	switch engine {
	case EngineYandex:
		u := "https://yandex.ru/search/?text=" + encoded
		if region != "" {
			u += "&lr=" + region
		}
		return u, nil
	case EngineGoogle:
		u := "https://www.google.com/search?q=" + encoded
		if region != "" {
			u += "&gl=" + region
		}
		return u, nil
	default:
		return "", fmt.Errorf("unknown engine: %s", engine)
	}
}
