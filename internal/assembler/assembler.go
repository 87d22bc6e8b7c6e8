// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package assembler turns a site record into a deployable static bundle.
// Assembly is a pure function of site state: no network calls, no
// persistence, and byte-identical output for the same input apart from
// a single generated-at comment line.
package assembler

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"siteforge/internal/models"
)

// File is one named file inside a bundle.
type File struct {
	Name    string
	Content []byte
}

// Bundle is the complete set of static files for one deployment.
// index.html always comes first, the hosting manifest last.
type Bundle struct {
	Files []File
}

// Get returns the content of the named file, or nil if absent.
func (b *Bundle) Get(name string) []byte {
	for _, f := range b.Files {
		if f.Name == name {
			return f.Content
		}
	}
	return nil
}

// Assembler builds bundles. The clock is injectable so tests can pin the
// generated-at line.
type Assembler struct {
	now func() time.Time
}

// New creates an Assembler using the system clock.
func New() *Assembler {
	return &Assembler{now: time.Now}
}

// NewWithClock creates an Assembler with a fixed clock, used in tests.
func NewWithClock(now func() time.Time) *Assembler {
	return &Assembler{now: now}
}

// templateData is what indexTemplate renders. Content fields are inserted
// verbatim: the stored markup and script are the page, not untrusted
// interpolation into it.
type templateData struct {
	Title             string
	Description       string
	Keywords          string
	OGImage           string
	CSS               string
	HTML              string
	JS                string
	SiteID            string
	FontFamily        string
	GoogleAnalyticsID string
	FacebookPixelID   string
	GeneratedAt       string
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<!-- generated-at: {{.GeneratedAt}} -->
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <meta name="description" content="{{.Description}}">
    <meta name="keywords" content="{{.Keywords}}">
{{- if .OGImage}}
    <meta property="og:image" content="{{.OGImage}}">
{{- end}}
    <style>
{{.CSS}}

        * {
            box-sizing: border-box;
            margin: 0;
            padding: 0;
        }

        body {
            font-family: {{.FontFamily}};
            line-height: 1.6;
            color: #333;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            padding: 0 20px;
        }

        @media (max-width: 768px) {
            .container {
                padding: 0 10px;
            }
        }
    </style>
{{- if .GoogleAnalyticsID}}
    <script async src="https://www.googletagmanager.com/gtag/js?id={{.GoogleAnalyticsID}}"></script>
    <script>
        window.dataLayer = window.dataLayer || [];
        function gtag(){dataLayer.push(arguments);}
        gtag('js', new Date());
        gtag('config', '{{.GoogleAnalyticsID}}');
    </script>
{{- end}}
{{- if .FacebookPixelID}}
    <script>
        !function(f,b,e,v,n,t,s)
        {if(f.fbq)return;n=f.fbq=function(){n.callMethod?
        n.callMethod.apply(n,arguments):n.queue.push(arguments)};
        if(!f._fbq)f._fbq=n;n.push=n;n.loaded=!0;n.version='2.0';
        n.queue=[];t=b.createElement(e);t.async=!0;
        t.src=v;s=b.getElementsByTagName(e)[0];
        s.parentNode.insertBefore(t,s)}(window, document,'script',
        'https://connect.facebook.net/en_US/fbevents.js');
        fbq('init', '{{.FacebookPixelID}}');
        fbq('track', 'PageView');
    </script>
{{- end}}
</head>
<body>
{{.HTML}}

    <script>
{{.JS}}

        document.addEventListener('DOMContentLoaded', function() {
            fetch('/api/sites/{{.SiteID}}/view', { method: 'POST' });
        });
    </script>
</body>
</html>
`))

// vercelManifest is the hosting-config manifest: all static files served
// with every route falling through to index.html.
type vercelManifest struct {
	Version int             `json:"version"`
	Builds  []manifestBuild `json:"builds"`
	Routes  []manifestRoute `json:"routes"`
}

type manifestBuild struct {
	Src string `json:"src"`
	Use string `json:"use"`
}

type manifestRoute struct {
	Src  string `json:"src"`
	Dest string `json:"dest"`
}

// Build assembles the deployable bundle for a site: index.html with the
// stored markup, inlined styles and script, SEO tags (falling back to
// site name and description), conditional analytics snippets, and the
// hosting manifest. CSS and JS also ship as standalone files when
// present so they remain individually fetchable.
func (a *Assembler) Build(site *models.Site) (*Bundle, error) {
	data := templateData{
		Title:             site.Settings.SEO.Title,
		Description:       site.Settings.SEO.Description,
		Keywords:          strings.Join(site.Settings.SEO.Keywords, ", "),
		OGImage:           site.Settings.SEO.OGImage,
		CSS:               site.Content.CSS,
		HTML:              site.Content.HTML,
		JS:                site.Content.JS,
		SiteID:            site.ID.String(),
		FontFamily:        site.Settings.Theme.FontFamily,
		GoogleAnalyticsID: site.Settings.Analytics.GoogleAnalyticsID,
		FacebookPixelID:   site.Settings.Analytics.FacebookPixelID,
		GeneratedAt:       a.now().UTC().Format(time.RFC3339),
	}
	if data.Title == "" {
		data.Title = site.Name
	}
	if data.Description == "" {
		data.Description = site.Description
	}
	if data.HTML == "" {
		data.HTML = "<h1>" + site.Name + "</h1>"
	}
	if data.FontFamily == "" {
		data.FontFamily = "'Segoe UI', Tahoma, Geneva, Verdana, sans-serif"
	}

	var index strings.Builder
	if err := indexTemplate.Execute(&index, data); err != nil {
		return nil, fmt.Errorf("render index: %w", err)
	}

	bundle := &Bundle{}
	bundle.Files = append(bundle.Files, File{Name: "index.html", Content: []byte(index.String())})

	if site.Content.CSS != "" {
		bundle.Files = append(bundle.Files, File{Name: "style.css", Content: []byte(site.Content.CSS)})
	}
	if site.Content.JS != "" {
		bundle.Files = append(bundle.Files, File{Name: "script.js", Content: []byte(site.Content.JS)})
	}

	manifest, err := json.MarshalIndent(vercelManifest{
		Version: 2,
		Builds: []manifestBuild{
			{Src: "*.html", Use: "@vercel/static"},
			{Src: "*.css", Use: "@vercel/static"},
			{Src: "*.js", Use: "@vercel/static"},
		},
		Routes: []manifestRoute{
			{Src: "/(.*)", Dest: "/index.html"},
		},
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	bundle.Files = append(bundle.Files, File{Name: "vercel.json", Content: manifest})

	return bundle, nil
}
