package report

import (
	"encoding/base64"
	"fmt"
	"html/template"
	"os"
)

// LayoutItem is one breakpoint rendering in a layout comparison report.
type LayoutItem struct {
	Breakpoint int
	Image      string // filename relative to the report
	PageWidth  int
	PageHeight int
}

// LayoutData feeds the layout comparison template.
type LayoutData struct {
	URL       string
	Timestamp string
	Items     []LayoutItem
}

// WriteLayoutHTML renders the breakpoint comparison page to path.
func WriteLayoutHTML(path string, data LayoutData) error {
	return renderToFile(path, layoutTemplate, data)
}

// SiteScreenshots holds the desktop and mobile screenshots of one site.
type SiteScreenshots struct {
	URL           string
	DesktopImage  string // file path, embedded as base64
	DesktopWidth  int
	DesktopHeight int
	MobileImage   string
	MobileWidth   int
	MobileHeight  int
}

// SERPItem is one search results screenshot in a visual audit.
type SERPItem struct {
	Query  string
	Engine string
	Image  string
}

// VisualAuditData feeds the visual audit template. Images are embedded
// inline so the report is a single self-contained file.
type VisualAuditData struct {
	Date        string
	Client      SiteScreenshots
	Competitors []SiteScreenshots
	SERP        []SERPItem
}

// WriteVisualAuditHTML renders the client-vs-competitors audit page to path.
func WriteVisualAuditHTML(path string, data VisualAuditData) error {
	return renderToFile(path, visualAuditTemplate, data)
}

func renderToFile(path string, tmpl *template.Template, data interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer f.Close()

	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render report %s: %w", path, err)
	}

	return nil
}

// embedImage reads a file and returns it as an inline data URI. Missing
// files render as an empty src rather than failing the whole report.
func embedImage(path string) template.URL {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(data))
}

var layoutTemplate = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Layout Audit - {{.URL}}</title>
    <style>
        body { font-family: system-ui; margin: 20px; background: #f5f5f5; }
        h1 { color: #333; }
        .grid { display: flex; flex-wrap: wrap; gap: 20px; }
        .breakpoint {
            background: white;
            padding: 15px;
            border-radius: 8px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.1);
        }
        .breakpoint h3 { margin: 0 0 10px 0; color: #666; }
        .breakpoint img {
            max-width: 300px;
            height: auto;
            border: 1px solid #ddd;
            border-radius: 4px;
        }
        .breakpoint p { margin: 10px 0 0 0; color: #999; font-size: 12px; }
    </style>
</head>
<body>
    <h1>Layout Audit</h1>
    <p><strong>URL:</strong> {{.URL}}</p>
    <p><strong>Date:</strong> {{.Timestamp}}</p>
    <div class="grid">
        {{range .Items}}
        <div class="breakpoint">
            <h3>{{.Breakpoint}}px</h3>
            <img src="{{.Image}}" alt="{{.Breakpoint}}px">
            <p>{{.PageWidth}}x{{.PageHeight}}px</p>
        </div>
        {{end}}
    </div>
</body>
</html>
`))

var visualAuditTemplate = template.Must(template.New("visual_audit").Funcs(template.FuncMap{
	"embed": embedImage,
	"inc":   func(i int) int { return i + 1 },
}).Parse(`<!DOCTYPE html>
<html lang="ru">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>SEO Аудит - Визуальное сравнение</title>
    <style>
        :root {
            --primary: #2563eb;
            --bg: #f8fafc;
            --card-bg: #ffffff;
            --text: #1e293b;
            --text-muted: #64748b;
            --border: #e2e8f0;
        }

        * { box-sizing: border-box; margin: 0; padding: 0; }

        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            background: var(--bg);
            color: var(--text);
            line-height: 1.6;
            padding: 40px 20px;
        }

        .container {
            max-width: 1400px;
            margin: 0 auto;
        }

        header {
            text-align: center;
            margin-bottom: 50px;
        }

        header h1 {
            font-size: 2.5rem;
            margin-bottom: 10px;
        }

        header .meta {
            color: var(--text-muted);
        }

        .site-section {
            background: var(--card-bg);
            border-radius: 16px;
            padding: 30px;
            margin-bottom: 30px;
            box-shadow: 0 1px 3px rgba(0,0,0,0.1);
        }

        .site-section h2 {
            font-size: 1.5rem;
            margin-bottom: 10px;
        }

        .site-section .url {
            color: var(--text-muted);
            margin-bottom: 20px;
        }

        .site-section .url a {
            color: var(--primary);
            text-decoration: none;
        }

        .screenshots-row {
            display: flex;
            gap: 30px;
            flex-wrap: wrap;
        }

        .screenshot-card {
            flex: 1;
            min-width: 300px;
            text-align: center;
        }

        .screenshot-card.mobile {
            max-width: 250px;
        }

        .screenshot-card h4 {
            margin-bottom: 15px;
            color: var(--text-muted);
        }

        .screenshot-card img {
            max-width: 100%;
            height: auto;
            border: 1px solid var(--border);
            border-radius: 8px;
            box-shadow: 0 4px 6px rgba(0,0,0,0.05);
        }

        .screenshot-card .meta {
            margin-top: 10px;
            font-size: 0.85rem;
            color: var(--text-muted);
        }

        .client-section {
            border-left: 4px solid #10b981;
        }

        .competitor-section {
            border-left: 4px solid #f59e0b;
        }

        .serp-section {
            background: var(--card-bg);
            border-radius: 16px;
            padding: 30px;
            margin-bottom: 30px;
            box-shadow: 0 1px 3px rgba(0,0,0,0.1);
        }

        .serp-section h2 {
            margin-bottom: 20px;
        }

        .serp-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(400px, 1fr));
            gap: 20px;
        }

        .serp-card {
            text-align: center;
        }

        .serp-card h4 {
            margin-bottom: 10px;
            color: var(--text);
        }

        .serp-card img {
            max-width: 100%;
            height: auto;
            border: 1px solid var(--border);
            border-radius: 8px;
        }

        footer {
            text-align: center;
            margin-top: 50px;
            padding-top: 30px;
            border-top: 1px solid var(--border);
            color: var(--text-muted);
        }

        @media (max-width: 768px) {
            .screenshots-row {
                flex-direction: column;
            }

            .screenshot-card.mobile {
                max-width: 100%;
            }
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>📸 SEO Аудит</h1>
            <p class="meta">Визуальное сравнение сайтов</p>
            <p class="meta">Дата: {{.Date}}</p>
        </header>

        <section class="site-section client-section">
            <h2>🎯 Сайт клиента</h2>
            <p class="url"><a href="{{.Client.URL}}" target="_blank">{{.Client.URL}}</a></p>
            <div class="screenshots-row">
                <div class="screenshot-card">
                    <h4>Desktop</h4>
                    <img src="{{embed .Client.DesktopImage}}" alt="Desktop">
                    <p class="meta">{{.Client.DesktopWidth}}x{{.Client.DesktopHeight}}px</p>
                </div>
                <div class="screenshot-card mobile">
                    <h4>Mobile</h4>
                    <img src="{{embed .Client.MobileImage}}" alt="Mobile">
                    <p class="meta">{{.Client.MobileWidth}}x{{.Client.MobileHeight}}px</p>
                </div>
            </div>
        </section>

        {{range $i, $comp := .Competitors}}
        <section class="site-section competitor-section">
            <h2>🔍 Конкурент {{inc $i}}</h2>
            <p class="url"><a href="{{$comp.URL}}" target="_blank">{{$comp.URL}}</a></p>
            <div class="screenshots-row">
                <div class="screenshot-card">
                    <h4>Desktop</h4>
                    <img src="{{embed $comp.DesktopImage}}" alt="Desktop">
                    <p class="meta">{{$comp.DesktopWidth}}x{{$comp.DesktopHeight}}px</p>
                </div>
                <div class="screenshot-card mobile">
                    <h4>Mobile</h4>
                    <img src="{{embed $comp.MobileImage}}" alt="Mobile">
                    <p class="meta">{{$comp.MobileWidth}}x{{$comp.MobileHeight}}px</p>
                </div>
            </div>
        </section>
        {{end}}

        {{if .SERP}}
        <section class="serp-section">
            <h2>📊 Поисковая выдача</h2>
            <div class="serp-grid">
                {{range .SERP}}
                <div class="serp-card">
                    <h4>«{{.Query}}»</h4>
                    <img src="{{embed .Image}}" alt="SERP">
                    <p class="meta">{{.Engine}}</p>
                </div>
                {{end}}
            </div>
        </section>
        {{end}}

        <footer>
            <p>Создано с помощью Artvision Screenshot Service</p>
        </footer>
    </div>
</body>
</html>
`))
