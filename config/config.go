// Package config reads the menu options from the host configuration store.
package config

import (
	"strconv"
	"strings"

	"github.com/odvcencio/furry-actions/host"
)

// Configuration keys.
const (
	KeyUseCursorLine  = "actions.useCursorLine"
	KeyShowActionKind = "actions.showActionKind"
	KeyHideCursor     = "actions.hideCursor"
	KeyTheme          = "actions.theme"
	KeyConfirm        = "actions.keys.confirm"
	KeyCancel         = "actions.keys.cancel"
	KeyNext           = "actions.keys.next"
	KeyPrev           = "actions.keys.prev"
)

// Keys are the surface-local key bindings, in editor notation. They are
// read on every open; changed notations replace the old bindings then.
type Keys struct {
	Confirm string
	Cancel  string
	Next    string
	Prev    string
}

// Options controls how the menu looks and behaves.
type Options struct {
	// UseCursorLine relies on the surface's own cursor line instead of a
	// painted highlight, and trims trailing padding from rows.
	UseCursorLine  bool
	ShowActionKind bool
	// HideCursor makes the cursor transparent while the menu is open.
	HideCursor bool
	// Theme is a chroma style name.
	Theme string
	Keys  Keys
}

// Defaults returns the built-in options.
func Defaults() Options {
	return Options{
		UseCursorLine:  false,
		ShowActionKind: true,
		HideCursor:     true,
		Theme:          "monokai",
		Keys: Keys{
			Confirm: "<CR>",
			Cancel:  "<Esc>",
			Next:    "<C-n>",
			Prev:    "<C-p>",
		},
	}
}

// Load reads options from store, falling back to Defaults for missing or
// malformed values. A nil store yields Defaults.
func Load(store host.Config) Options {
	opts := Defaults()
	if store == nil {
		return opts
	}
	opts.UseCursorLine = boolValue(store, KeyUseCursorLine, opts.UseCursorLine)
	opts.ShowActionKind = boolValue(store, KeyShowActionKind, opts.ShowActionKind)
	opts.HideCursor = boolValue(store, KeyHideCursor, opts.HideCursor)
	opts.Theme = stringValue(store, KeyTheme, opts.Theme)
	opts.Keys.Confirm = stringValue(store, KeyConfirm, opts.Keys.Confirm)
	opts.Keys.Cancel = stringValue(store, KeyCancel, opts.Keys.Cancel)
	opts.Keys.Next = stringValue(store, KeyNext, opts.Keys.Next)
	opts.Keys.Prev = stringValue(store, KeyPrev, opts.Keys.Prev)
	return opts
}

func boolValue(store host.Config, key string, fallback bool) bool {
	raw, ok := store.Get(key)
	if !ok {
		return fallback
	}
	switch v := raw.(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	case int:
		return v != 0
	}
	return fallback
}

func stringValue(store host.Config, key, fallback string) string {
	raw, ok := store.Get(key)
	if !ok {
		return fallback
	}
	if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
		return strings.TrimSpace(s)
	}
	return fallback
}
