// Package dispatch applies a confirmed code action: its edit first, then its
// command, locally when registered and otherwise on the provider's service.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
)

// MethodExecuteCommand is the remote request used for commands the local
// registry does not know.
const MethodExecuteCommand = "workspace/executeCommand"

// Dispatcher routes candidates. Failures are reported through the messenger
// and never returned.
type Dispatcher struct {
	workspace host.Workspace
	commands  host.Commands
	services  host.Services
	messenger host.Messenger
	logger    *slog.Logger

	inflight sync.WaitGroup
}

// New creates a dispatcher over the host registries. Nil collaborators
// disable the matching step.
func New(workspace host.Workspace, commands host.Commands, services host.Services, messenger host.Messenger, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		workspace: workspace,
		commands:  commands,
		services:  services,
		messenger: messenger,
		logger:    logger,
	}
}

// Apply runs c. The edit is awaited before the command is looked at; a
// failed edit skips the command. Remote commands are sent on their own
// goroutine and Apply returns without waiting for them.
func (d *Dispatcher) Apply(ctx context.Context, c actions.Candidate) {
	if d == nil {
		return
	}
	if c.Disabled != "" {
		d.report(host.LevelWarning, fmt.Sprintf("Action '%s' is disabled: %s", c.Title, c.Disabled))
		return
	}
	if c.Edit != nil && d.workspace != nil {
		if err := d.workspace.ApplyEdit(ctx, *c.Edit); err != nil {
			d.logger.Error("apply edit failed", "provider", c.ProviderID, "err", err)
			d.report(host.LevelError, fmt.Sprintf("Apply edit '%s' error: %v", c.Title, err))
			return
		}
	}
	if c.Command == nil || c.Command.Command == "" {
		return
	}
	id := c.Command.Command

	if d.commands != nil && d.commands.Has(id) {
		if _, err := d.commands.Execute(ctx, id, c.Command.Arguments...); err != nil {
			d.logger.Error("local command failed", "command", id, "err", err)
			d.report(host.LevelError, executeError(id, err))
		}
		return
	}

	if d.services == nil {
		return
	}
	client, ok := d.services.Service(c.ProviderID)
	if !ok || client == nil || !client.Running() {
		d.logger.Debug("no running service for command", "command", id, "provider", c.ProviderID)
		return
	}
	params := protocol.ExecuteCommandParams{
		Command:   id,
		Arguments: c.Command.Arguments,
	}
	remoteCtx := context.WithoutCancel(ctx)
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		if err := client.Call(remoteCtx, MethodExecuteCommand, params, nil); err != nil {
			d.logger.Error("remote command failed", "command", id, "provider", c.ProviderID, "err", err)
			d.report(host.LevelError, executeError(id, err))
		}
	}()
}

// Wait blocks until every remote command sent so far has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.inflight.Wait()
}

func executeError(id string, err error) string {
	return fmt.Sprintf("Execute '%s' error: %v", id, err)
}

func (d *Dispatcher) report(level host.Level, text string) {
	if d.messenger != nil {
		d.messenger.ShowMessage(level, text)
	}
}
