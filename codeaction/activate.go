package codeaction

import (
	"context"
	"fmt"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
)

const (
	// CommandOpen is the trigger command. It takes optional
	// (selectionMode, line, column) string arguments.
	CommandOpen = "actions.open"
	// SupportedVariant is the only host flavour the menu runs on.
	SupportedVariant = "terminal"
)

// Extension is an activated menu: the manager plus its trigger command.
type Extension struct {
	Manager *Manager
	command host.Disposable
}

// Activate checks the host and registers the trigger command. On an
// unsupported host it shows a one-line warning and does nothing else.
func Activate(ctx context.Context, h host.Host, source *actions.Source, opts Options) (*Extension, error) {
	if h.Info.Variant != SupportedVariant {
		if h.Messenger != nil {
			h.Messenger.ShowMessage(host.LevelWarning, fmt.Sprintf("furry-actions: %q hosts are not supported", h.Info.Variant))
		}
		return nil, ErrUnsupportedHost
	}
	if h.Windows == nil {
		return nil, ErrNoSurface
	}
	if h.Commands == nil {
		return nil, fmt.Errorf("activate: host has no command registry")
	}

	m := NewManager(h, source, opts)
	cmd, err := h.Commands.Register(CommandOpen, func(ctx context.Context, args ...any) (any, error) {
		// Open reports its own failures.
		_ = m.Open(ctx, requestFromArgs(args))
		return nil, nil
	})
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", CommandOpen, err)
	}
	m.logger.Info("activated", "host", h.Info.Variant, "version", h.Info.Version)
	return &Extension{Manager: m, command: cmd}, nil
}

// Dispose unregisters the trigger command and tears the manager down.
func (e *Extension) Dispose(ctx context.Context) {
	if e == nil {
		return
	}
	if e.command != nil {
		e.command.Dispose()
		e.command = nil
	}
	e.Manager.Dispose(ctx)
}

func requestFromArgs(args []any) OpenRequest {
	arg := func(i int) string {
		if i >= len(args) || args[i] == nil {
			return ""
		}
		if s, ok := args[i].(string); ok {
			return s
		}
		return fmt.Sprint(args[i])
	}
	return OpenRequest{SelectionMode: arg(0), Line: arg(1), Column: arg(2)}
}
