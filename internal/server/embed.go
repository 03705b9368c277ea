package server

import (
	_ "embed"
)

// indexHTML は撮影画面のHTML
//
//go:embed static/index.html
var indexHTML []byte

// getIndexHTML は撮影画面のHTMLを返す
func getIndexHTML() []byte {
	return indexHTML
}
