package browser

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/go-rod/rod/lib/launcher"
)

// InstallChrome downloads a Chromium build for the current OS/arch, first
// installing the shared libraries headless rendering needs.
func InstallChrome(ctx context.Context, revision int) (string, error) {
	if err := InstallChromeDependencies(ctx); err != nil {
		return "", err
	}

	downloader := launcher.NewBrowser()
	downloader.Context = ctx
	if revision > 0 {
		downloader.Revision = revision
	}

	path, err := downloader.Get()
	if err != nil {
		return "", fmt.Errorf("failed to download chrome: %w", err)
	}

	return path, nil
}

// packageManager describes how one Linux package manager installs the
// Chromium runtime libraries.
type packageManager struct {
	bin        string
	updateArgs []string // nil when no refresh step is needed
	installCmd []string
	packages   []string
}

// packageManagers is tried in order; the first one present on PATH wins.
var packageManagers = []packageManager{
	{
		bin:        "apt-get",
		updateArgs: []string{"update"},
		installCmd: []string{"install", "-y", "--no-install-recommends"},
		packages:   debianPackages,
	},
	{
		bin:        "dnf",
		installCmd: []string{"install", "-y"},
		packages:   fedoraPackages,
	},
	{
		bin:        "yum",
		installCmd: []string{"install", "-y"},
		packages:   fedoraPackages,
	},
	{
		bin:        "apk",
		installCmd: []string{"add", "--no-cache"},
		packages:   alpinePackages,
	},
}

// InstallChromeDependencies installs the OS packages Chromium links
// against. No-op outside Linux, where the rod download is self-contained.
func InstallChromeDependencies(ctx context.Context) error {
	if runtime.GOOS != "linux" {
		return nil
	}

	for _, pm := range packageManagers {
		path, err := exec.LookPath(pm.bin)
		if err != nil {
			continue
		}

		if pm.updateArgs != nil {
			if err := runCommand(ctx, path, pm.updateArgs...); err != nil {
				return err
			}
		}
		return runCommand(ctx, path, append(pm.installCmd, pm.packages...)...)
	}

	return fmt.Errorf("no supported package manager found for Chrome dependencies")
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v failed: %w\n%s", name, args, err, out.String())
	}
	return nil
}

var debianPackages = []string{
	"ca-certificates",
	"fonts-liberation",
	"libasound2",
	"libatk-bridge2.0-0",
	"libatk1.0-0",
	"libcups2",
	"libdbus-1-3",
	"libdrm2",
	"libgbm1",
	"libgtk-3-0",
	"libnspr4",
	"libnss3",
	"libx11-xcb1",
	"libxcomposite1",
	"libxdamage1",
	"libxfixes3",
	"libxrandr2",
	"libxshmfence1",
	"libxss1",
	"libxtst6",
	"libpango-1.0-0",
	"libpangocairo-1.0-0",
	"libxkbcommon0",
}

var fedoraPackages = []string{
	"alsa-lib",
	"atk",
	"cups-libs",
	"gtk3",
	"libX11",
	"libXcomposite",
	"libXdamage",
	"libXrandr",
	"libXfixes",
	"libX11-xcb",
	"libxcb",
	"libxkbcommon",
	"libxshmfence",
	"nss",
	"nspr",
	"pango",
	"mesa-libgbm",
	"libdrm",
}

var alpinePackages = []string{
	"ca-certificates",
	"freetype",
	"harfbuzz",
	"nss",
	"ttf-freefont",
	"alsa-lib",
	"atk",
	"at-spi2-atk",
	"cups-libs",
	"libxcomposite",
	"libxdamage",
	"libxrandr",
	"libxfixes",
	"libxkbcommon",
	"libx11",
	"libxrender",
	"libxext",
	"libxcb",
	"libdrm",
	"mesa-gbm",
	"gtk+3.0",
	"pango",
	"cairo",
	"gdk-pixbuf",
	"fontconfig",
	"libstdc++",
	"libgcc",
}
