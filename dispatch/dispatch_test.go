package dispatch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/odvcencio/furry-actions/actions"
	"github.com/odvcencio/furry-actions/host"
	"github.com/odvcencio/furry-actions/host/hosttest"
)

func newDispatcher(f *hosttest.Fixture) *Dispatcher {
	return New(f.Workspace, f.Commands, f.Services, f.Messenger, nil)
}

func TestApply_EditBeforeLocalCommand(t *testing.T) {
	f := hosttest.New()
	var gotArgs []any
	if _, err := f.Commands.Register("editor.fix", func(_ context.Context, args ...any) (any, error) {
		gotArgs = args
		return nil, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		Title:   "Fix",
		Edit:    &protocol.WorkspaceEdit{},
		Command: &protocol.Command{Command: "editor.fix", Arguments: []any{"a", 1}},
	})

	if diff := cmp.Diff([]string{"applyedit", "execute editor.fix"}, f.Log.Entries()); diff != "" {
		t.Fatalf("log (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]any{"a", 1}, gotArgs); diff != "" {
		t.Fatalf("args (-want +got):\n%s", diff)
	}
}

func TestApply_EditFailureSkipsCommand(t *testing.T) {
	f := hosttest.New()
	f.Workspace.Err = errors.New("stale document")
	client := f.AddClient("gopls")

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		ProviderID: "gopls",
		Title:      "Fix",
		Edit:       &protocol.WorkspaceEdit{},
		Command:    &protocol.Command{Command: "gopls.fix"},
	})
	d.Wait()

	if len(client.Recorded()) != 0 {
		t.Fatalf("command sent after failed edit")
	}
	msgs := f.Messenger.Messages()
	if len(msgs) != 1 || msgs[0].Level != host.LevelError || msgs[0].Text != "Apply edit 'Fix' error: stale document" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestApply_RemoteCommandUsesProviderService(t *testing.T) {
	f := hosttest.New()
	f.AddClient("other")
	client := f.AddClient("gopls")

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		ProviderID: "gopls",
		Command:    &protocol.Command{Command: "gopls.tidy", Arguments: []any{"x"}},
	})
	d.Wait()

	calls := client.Recorded()
	if len(calls) != 1 || calls[0].Method != MethodExecuteCommand {
		t.Fatalf("calls = %+v", calls)
	}
	params, ok := calls[0].Params.(protocol.ExecuteCommandParams)
	if !ok || params.Command != "gopls.tidy" {
		t.Fatalf("params = %#v", calls[0].Params)
	}
	if diff := cmp.Diff([]any{"x"}, params.Arguments); diff != "" {
		t.Fatalf("arguments (-want +got):\n%s", diff)
	}
	if len(f.Services["other"].Recorded()) != 0 {
		t.Fatalf("command routed to the wrong service")
	}
}

func TestApply_RemoteFailureIsReported(t *testing.T) {
	f := hosttest.New()
	client := f.AddClient("gopls")
	client.Err = errors.New("boom")

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		ProviderID: "gopls",
		Command:    &protocol.Command{Command: "gopls.tidy"},
	})
	d.Wait()

	msgs := f.Messenger.Messages()
	if len(msgs) != 1 || msgs[0].Text != "Execute 'gopls.tidy' error: boom" || msgs[0].Level != host.LevelError {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestApply_ApplyDoesNotWaitForRemote(t *testing.T) {
	f := hosttest.New()
	client := f.AddClient("gopls")
	client.Release = make(chan struct{})

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		ProviderID: "gopls",
		Command:    &protocol.Command{Command: "gopls.slow"},
	})
	if len(client.Recorded()) != 0 {
		t.Fatalf("call finished before release")
	}
	close(client.Release)
	d.Wait()
	if len(client.Recorded()) != 1 {
		t.Fatalf("call not made")
	}
}

func TestApply_StoppedOrMissingServiceIsNoOp(t *testing.T) {
	f := hosttest.New()
	client := f.AddClient("gopls")
	client.Down = true

	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{ProviderID: "gopls", Command: &protocol.Command{Command: "a"}})
	d.Apply(context.Background(), actions.Candidate{ProviderID: "unknown", Command: &protocol.Command{Command: "b"}})
	d.Wait()

	if len(client.Recorded()) != 0 || len(f.Messenger.Messages()) != 0 {
		t.Fatalf("calls=%v messages=%v", client.Recorded(), f.Messenger.Messages())
	}
}

func TestApply_NoEditNoCommand(t *testing.T) {
	f := hosttest.New()
	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{Title: "Nothing"})
	d.Wait()
	if got := f.Log.Entries(); len(got) != 0 {
		t.Fatalf("log = %v", got)
	}
}

func TestApply_DisabledReportsReason(t *testing.T) {
	f := hosttest.New()
	d := newDispatcher(f)
	d.Apply(context.Background(), actions.Candidate{
		Title:    "Inline",
		Disabled: "no selection",
		Edit:     &protocol.WorkspaceEdit{},
	})
	if f.Log.Count("applyedit") != 0 {
		t.Fatalf("disabled action applied its edit")
	}
	msgs := f.Messenger.Messages()
	if len(msgs) != 1 || msgs[0].Level != host.LevelWarning || msgs[0].Text != "Action 'Inline' is disabled: no selection" {
		t.Fatalf("messages = %+v", msgs)
	}
}

func TestApply_NilDispatcher(t *testing.T) {
	var d *Dispatcher
	d.Apply(context.Background(), actions.Candidate{Command: &protocol.Command{Command: "x"}})
	d.Wait()
}
