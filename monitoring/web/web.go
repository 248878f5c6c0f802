// Package web holds the dashboard page of the monitor.
package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
)

// AssetsDirEnv names the environment variable that points the monitor at a
// directory to serve the dashboard from instead of the embedded copy. It is
// meant for editing the page without rebuilding.
const AssetsDirEnv = "VMPAGER_MONITOR_ASSETS"

//go:embed dist/index.html
var dist embed.FS

// Assets returns the dashboard files.
func Assets() http.FileSystem {
	if dir := os.Getenv(AssetsDirEnv); dir != "" {
		fmt.Fprintf(os.Stderr, "Serving the monitor dashboard from %s\n", dir)
		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}
