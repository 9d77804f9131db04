// Package web holds the page the line monitor serves.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// EnvDevMode makes the monitor serve the page from the source tree, so that
// edits show up without rebuilding.
const EnvDevMode = "SMTLINE_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// Handler serves the monitor page.
func Handler() http.Handler {
	return http.FileServer(Assets(DevMode()))
}

// Assets returns the page files, read from disk in development mode and
// from the binary otherwise.
func Assets(dev bool) http.FileSystem {
	if dev {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate monitor page sources")
		}

		dir := filepath.Join(filepath.Dir(file), "dist")
		logrus.WithField("dir", dir).Info("serving monitor page from disk")

		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// DevMode reports whether EnvDevMode holds a true value.
func DevMode() bool {
	dev, err := strconv.ParseBool(os.Getenv(EnvDevMode))

	return err == nil && dev
}
