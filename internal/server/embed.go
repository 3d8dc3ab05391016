package server

import (
	"embed"
	"io/fs"
	"log"
	"net/http"
)

//go:embed all:dist
var embedFS embed.FS

// GetStaticFS returns the static files filesystem
func GetStaticFS() http.FileSystem {
	// dist のサブディレクトリを取得
	staticFS, err := fs.Sub(embedFS, "dist")
	if err != nil {
		log.Fatalf("埋め込み静的ファイルシステムの作成に失敗: %v", err)
	}
	return http.FS(staticFS)
}

// getIndexHTML returns the index.html content as bytes
func getIndexHTML() []byte {
	data, err := embedFS.ReadFile("dist/index.html")
	if err != nil {
		log.Fatalf("埋め込みindex.htmlの読み込みに失敗: %v", err)
	}
	return data
}
