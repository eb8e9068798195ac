package web

import "embed"

// Content holds the embedded web frontend (a single page that plots and
// replays trajectories through the API).
//
//go:embed index.html
var Content embed.FS
