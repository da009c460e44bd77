package main

import (
	"io"

	gol "github.com/op/go-logging"
)

// logFormat prints time, file, level and sequence number, then the message.
const logFormat = `[%{time:15:04:05.000} %{shortfile} %{level:.4s} %{id:03x}] %{message}`

const logModule = "protocodec"

// newLogger returns a go-logging logger writing INFO and above to w, or
// DEBUG and above when verbose.
func newLogger(w io.Writer, verbose bool) *gol.Logger {
	backend := gol.NewBackendFormatter(gol.NewLogBackend(w, "", 0), gol.MustStringFormatter(logFormat))
	leveled := gol.AddModuleLevel(backend)
	level := gol.INFO
	if verbose {
		level = gol.DEBUG
	}
	leveled.SetLevel(level, logModule)

	log := gol.MustGetLogger(logModule)
	log.SetBackend(leveled)
	return log
}
