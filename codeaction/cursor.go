package codeaction

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/odvcencio/furry-actions/host"
)

const (
	// OptionCursor is the host option holding the cursor shape.
	OptionCursor = "guicursor"
	// transparentCursor is appended to the cursor shape while the menu is
	// open.
	transparentCursor = "a:ver1-Cursor-blinkon250-CursorTransparent/lCursor"
)

var cursorConstraint = mustConstraint(">= 0.4.0")

func mustConstraint(expr string) *semver.Constraints {
	c, err := semver.NewConstraint(expr)
	if err != nil {
		panic(err)
	}
	return c
}

// SupportsCursorOverride reports whether a host at version can hide its
// cursor. Unparseable versions are treated as too old.
func SupportsCursorOverride(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return false
	}
	return cursorConstraint.Check(v)
}

// cursorOverride remembers the cursor shape replaced at open time.
type cursorOverride struct {
	saved  string
	active bool
}

func (o *cursorOverride) apply(ctx context.Context, editor host.Editor) error {
	if o.active {
		return nil
	}
	shape, err := editor.Option(ctx, OptionCursor)
	if err != nil {
		return fmt.Errorf("read %s: %w", OptionCursor, err)
	}
	override := transparentCursor
	if shape != "" {
		override = shape + "," + transparentCursor
	}
	if err := editor.SetOption(ctx, OptionCursor, override); err != nil {
		return fmt.Errorf("set %s: %w", OptionCursor, err)
	}
	o.saved, o.active = shape, true
	return nil
}

func (o *cursorOverride) restore(ctx context.Context, editor host.Editor) error {
	if !o.active {
		return nil
	}
	o.active = false
	if err := editor.SetOption(ctx, OptionCursor, o.saved); err != nil {
		return fmt.Errorf("restore %s: %w", OptionCursor, err)
	}
	return nil
}
