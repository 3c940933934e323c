package views

import (
	"embed"
	"io/fs"
	"net/http"
	"strconv"

	html "github.com/gofiber/template/html/v2"
)

//go:embed templates/*.html
var templates embed.FS

// Engine returns the HTML engine for the few server-rendered pages.
func Engine() *html.Engine {
	sub, err := fs.Sub(templates, "templates")
	if err != nil {
		panic(err)
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	engine.AddFunc("qty", func(q float64) string {
		return strconv.FormatFloat(q, 'f', -1, 64)
	})
	return engine
}
