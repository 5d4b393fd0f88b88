package nats

import (
	"archive/zip"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// serverVersion pins the nats-server release fetched on first run, so every
// snapvision deployment carries the same queue server.
const serverVersion = "2.10.24"

// releaseURL builds the GitHub release download URL for the running
// platform. Returns an error on platforms the project does not ship for.
func releaseURL() (string, error) {
	switch runtime.GOOS {
	case "linux", "darwin", "windows":
	default:
		return "", fmt.Errorf("unsupported OS: %s", runtime.GOOS)
	}

	switch runtime.GOARCH {
	case "amd64", "arm64":
	default:
		return "", fmt.Errorf("unsupported architecture: %s", runtime.GOARCH)
	}

	return fmt.Sprintf(
		"https://github.com/nats-io/nats-server/releases/download/v%s/nats-server-v%s-%s-%s.zip",
		serverVersion, serverVersion, runtime.GOOS, runtime.GOARCH,
	), nil
}

// EnsureServerBinary returns the path to a usable nats-server binary,
// downloading the pinned release when missing and autoDL permits.
func EnsureServerBinary(binPath string, autoDL bool) (string, error) {
	if _, err := os.Stat(binPath); err == nil {
		log.Printf("Queue server binary found at %s", binPath)
		return binPath, nil
	}

	if !autoDL {
		return "", fmt.Errorf("nats-server binary not found at %s and auto-download is disabled", binPath)
	}

	url, err := releaseURL()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(binPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create binary directory: %w", err)
	}

	archive, err := downloadRelease(url)
	if err != nil {
		return "", err
	}
	defer os.Remove(archive)

	if err := extractServerBinary(archive, binPath); err != nil {
		return "", fmt.Errorf("failed to extract nats-server: %w", err)
	}

	if err := os.Chmod(binPath, 0755); err != nil {
		return "", fmt.Errorf("failed to make nats-server executable: %w", err)
	}

	log.Printf("Queue server v%s installed at %s", serverVersion, binPath)
	return binPath, nil
}

// downloadRelease fetches the release archive into a temp file and returns
// its path. The caller removes the file.
func downloadRelease(url string) (string, error) {
	tmpFile, err := os.CreateTemp("", "nats-server-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer tmpFile.Close()

	log.Printf("Downloading queue server from %s", url)

	resp, err := http.Get(url)
	if err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to download nats-server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to download nats-server: HTTP %d", resp.StatusCode)
	}

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("failed to save nats-server archive: %w", err)
	}

	return tmpFile.Name(), nil
}

// extractServerBinary pulls the nats-server executable out of a release zip.
func extractServerBinary(zipPath, destPath string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	binaryName := "nats-server"
	if runtime.GOOS == "windows" {
		binaryName = "nats-server.exe"
	}

	for _, f := range r.File {
		if !strings.HasSuffix(f.Name, binaryName) {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return fmt.Errorf("failed to open archive entry: %w", err)
		}
		defer rc.Close()

		out, err := os.Create(destPath)
		if err != nil {
			return fmt.Errorf("failed to create binary file: %w", err)
		}
		defer out.Close()

		if _, err := io.Copy(out, rc); err != nil {
			return fmt.Errorf("failed to write binary: %w", err)
		}
		return nil
	}

	return fmt.Errorf("nats-server binary not found in archive")
}
