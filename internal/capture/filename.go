package capture

import (
	"crypto/md5"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const timestampLayout = "20060102_150405"

// Letters and digits in any script stay, so Cyrillic domains and queries
// survive. Everything else becomes an underscore.
var (
	unsafeFileChars  = regexp.MustCompile(`[^\p{L}\p{N}\-_.]`)
	unsafeQueryChars = regexp.MustCompile(`[^\p{L}\p{N}\-_]`)
)

// SafeFilename derives a filesystem-safe name from a URL. The name is built
// from the domain (without www) and the first part of the path, truncated,
// then suffixed with a timestamp and the format extension.
func SafeFilename(rawURL, suffix string, now time.Time, format string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		parsed = &url.URL{}
	}

	domain := strings.Replace(parsed.Host, "www.", "", 1)
	path := truncate(strings.ReplaceAll(parsed.Path, "/", "_"), 30)

	safe := truncate(unsafeFileChars.ReplaceAllString(domain+path, "_"), 50)

	return safe + suffix + "_" + now.Format(timestampLayout) + "." + extension(format)
}

// SafeQuery derives a filesystem-safe fragment from a search query.
func SafeQuery(query string) string {
	return truncate(unsafeQueryChars.ReplaceAllString(query, "_"), 30)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) > max {
		return string(runes[:max])
	}
	return s
}

// SafeBaseName is SafeFilename without the extension, used when one URL
// produces several files sharing a common stem.
func SafeBaseName(rawURL string, now time.Time) string {
	name := SafeFilename(rawURL, "", now, FormatPNG)
	return strings.TrimSuffix(name, ".png")
}

// monitorBaseName derives the stable per-URL filename stem used by
// monitoring snapshots: no timestamp, so consecutive runs compare.
func monitorBaseName(rawURL string) string {
	hash := fmt.Sprintf("%x", md5.Sum([]byte(rawURL)))[:8]
	domain := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		domain = strings.Replace(parsed.Host, "www.", "", 1)
	}
	return domain + "_" + hash
}

func extension(format string) string {
	switch format {
	case FormatJPEG:
		return "jpeg"
	case FormatPDF:
		return "pdf"
	default:
		return "png"
	}
}
