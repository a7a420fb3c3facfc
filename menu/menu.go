// Package menu lays out code action candidates and draws them into a
// surface.
package menu

import (
	"context"
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/config"
	"github.com/odvcencio/furry-actions/host"
)

// Highlight groups used for the menu body and the selected row.
const (
	GroupBody     = "Pmenu"
	GroupSelected = "PmenuSel"
)

// Plan is the computed shape of one menu.
type Plan struct {
	Lines []string
	// Width is the full row width including padding and the kind column.
	Width int
	// TitleWidth is the widest title; the title column is TitleWidth+2.
	TitleWidth int
	// KindWidth is the width of the "[kind]" column, 0 when hidden.
	KindWidth int
	Anchor    host.Anchor
	// Height is the room available on the chosen side of the cursor.
	Height int
	// Rows is the number of rows shown: min(Height, len(Lines)), at least 1.
	Rows int
}

// Layout formats candidates into rows and decides where the menu opens.
func Layout(candidates []actions.Candidate, geo host.Geometry, opts config.Options) Plan {
	plan := Plan{}
	for _, c := range candidates {
		plan.TitleWidth = max(plan.TitleWidth, runewidth.StringWidth(c.Title))
	}
	plan.Width = plan.TitleWidth + 2
	if opts.ShowActionKind {
		for _, c := range candidates {
			plan.KindWidth = max(plan.KindWidth, runewidth.StringWidth(kindLabel(c)))
		}
		plan.KindWidth += 2
		plan.Width += 1 + plan.KindWidth
	}

	plan.Lines = make([]string, 0, len(candidates))
	for _, c := range candidates {
		var sb strings.Builder
		sb.WriteByte(' ')
		sb.WriteString(runewidth.FillRight(c.Title, plan.TitleWidth))
		sb.WriteByte(' ')
		if opts.ShowActionKind {
			sb.WriteByte(' ')
			sb.WriteString(runewidth.FillLeft("["+kindLabel(c)+"]", plan.KindWidth))
		}
		row := sb.String()
		if opts.UseCursorLine {
			row = strings.TrimRight(row, " ")
		}
		plan.Lines = append(plan.Lines, row)
	}

	plan.Anchor, plan.Height = place(len(candidates), geo)
	plan.Rows = max(min(plan.Height, len(candidates)), 1)
	return plan
}

func kindLabel(c actions.Candidate) string {
	if c.Kind == "" {
		return "-"
	}
	return c.Kind
}

// place opens below the cursor unless the list does not fit there and less
// than half the screen lies below, in which case it opens above.
func place(count int, geo host.Geometry) (host.Anchor, int) {
	below := geo.ScreenHeight - geo.WindowRow - geo.CursorLine
	if geo.ScreenHeight > 0 && count > below && float64(below)/float64(geo.ScreenHeight) < 0.5 {
		return host.AnchorAbove, geo.ScreenHeight - below - 2
	}
	return host.AnchorBelow, below
}

// Placement converts plan into surface window settings.
func (p Plan) Placement(opts config.Options) host.Placement {
	return host.Placement{
		Anchor: p.Anchor,
		Width:  p.Width,
		Height: p.Rows,
		Options: host.WindowOptions{
			CursorLine:      opts.UseCursorLine,
			NormalGroup:     GroupBody,
			CursorLineGroup: GroupSelected,
		},
	}
}

// Render replaces the surface content with the plan rows and shows it.
func Render(ctx context.Context, plan Plan, surface host.Surface, opts config.Options) error {
	if err := surface.SetLines(ctx, plan.Lines); err != nil {
		return fmt.Errorf("set menu lines: %w", err)
	}
	if err := surface.Show(ctx, plan.Placement(opts)); err != nil {
		return fmt.Errorf("show menu: %w", err)
	}
	return nil
}
