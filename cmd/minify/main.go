// minify builds assets/index.html from the template, inlining the
// minified CSS, JS and SVG logo.
package main

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"text/template"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

type PageData struct {
	CSS string
	JS  string
	SVG string
}

// minifyFile reads and minifies one asset source.
func minifyFile(m *minify.M, mediatype, path string) string {
	raw, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("error read %s: %v", path, err)
	}

	out, err := m.String(mediatype, string(raw))
	if err != nil {
		log.Fatalf("error minify %s: %v", path, err)
	}

	return out
}

func main() {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	data := PageData{
		CSS: minifyFile(m, "text/css", "assets/style.css"),
		JS:  minifyFile(m, "text/javascript", "assets/script.js"),
		SVG: minifyFile(m, "image/svg+xml", "assets/favicon.svg"),
	}

	htmlRaw, err := os.ReadFile("assets/index.html.tpl")
	if err != nil {
		log.Fatal("error read HTML:", err)
	}

	tmpl, err := template.New("index").Parse(string(htmlRaw))
	if err != nil {
		log.Fatal("error parse template:", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		log.Fatal("error execute template:", err)
	}

	finalHTML, err := m.String("text/html", buf.String())
	if err != nil {
		log.Fatal("error minify HTML:", err)
	}

	if err := os.WriteFile("assets/index.html", []byte(finalHTML), 0644); err != nil {
		log.Fatal(err)
	}

	fmt.Println("minify done")
}
