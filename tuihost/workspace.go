package tuihost

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// URIFromPath returns the file URI of path.
func URIFromPath(path string) (protocol.DocumentUri, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// PathFromURI returns the local path of a file URI.
func PathFromURI(uri protocol.DocumentUri) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", err
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("tuihost: not a file uri: %s", uri)
	}
	return filepath.FromSlash(u.Path), nil
}

// ApplyEdit applies edit. Changes to the open document go to the view; any
// other document is rewritten on disk. Every document's result is computed
// before anything is written, so an edit that does not apply leaves all
// documents as they were.
func (h *Host) ApplyEdit(_ context.Context, edit protocol.WorkspaceEdit) error {
	changes, err := collectEdits(edit)
	if err != nil {
		return err
	}
	h.mu.Lock()
	current := h.doc.URI
	h.mu.Unlock()

	var files []fileEdit
	for _, uri := range slices.Sorted(maps.Keys(changes)) {
		edits := changes[uri]
		if uri == current {
			var viewErr error
			h.app.Inspect(func() {
				_, viewErr = ApplyTextEdits(h.view.Text(), edits)
			})
			if viewErr != nil {
				return fmt.Errorf("%s: %w", uri, viewErr)
			}
			continue
		}
		fe, err := prepareFile(uri, edits)
		if err != nil {
			return fmt.Errorf("%s: %w", uri, err)
		}
		files = append(files, fe)
	}

	for _, fe := range files {
		if err := os.WriteFile(fe.path, fe.data, fe.perm); err != nil {
			return fmt.Errorf("%s: %w", fe.uri, err)
		}
	}
	if edits, ok := changes[current]; ok {
		if err := h.editView(edits); err != nil {
			return fmt.Errorf("%s: %w", current, err)
		}
	}
	return nil
}

func (h *Host) editView(edits []protocol.TextEdit) error {
	var (
		text    string
		editErr error
	)
	h.app.Do(func() {
		next, err := ApplyTextEdits(h.view.Text(), edits)
		if err != nil {
			editErr = err
			return
		}
		c := h.view.Cursor()
		h.view.SetText(next)
		h.view.SetCursor(c.Line, c.Col)
		text = next
	})
	if editErr != nil {
		return editErr
	}
	h.mu.Lock()
	h.doc.Version++
	doc := h.doc
	h.mu.Unlock()
	h.logger.Debug("document edited", "uri", doc.URI, "version", doc.Version, "edits", len(edits))
	if h.onChange != nil {
		h.onChange(doc, text)
	}
	return nil
}

// fileEdit is the new content of a document on disk.
type fileEdit struct {
	uri  protocol.DocumentUri
	path string
	data []byte
	perm os.FileMode
}

func prepareFile(uri protocol.DocumentUri, edits []protocol.TextEdit) (fileEdit, error) {
	path, err := PathFromURI(uri)
	if err != nil {
		return fileEdit{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return fileEdit{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileEdit{}, err
	}
	next, err := ApplyTextEdits(string(data), edits)
	if err != nil {
		return fileEdit{}, err
	}
	return fileEdit{uri: uri, path: path, data: []byte(next), perm: info.Mode().Perm()}, nil
}

// documentChange is the union of the entries of
// WorkspaceEdit.DocumentChanges. Kind is set on file operations only.
type documentChange struct {
	Kind         string `json:"kind"`
	TextDocument struct {
		URI protocol.DocumentUri `json:"uri"`
	} `json:"textDocument"`
	Edits []protocol.TextEdit `json:"edits"`
}

// collectEdits groups every text edit by document. DocumentChanges entries
// are decoded through JSON since they may hold any of the union members.
func collectEdits(edit protocol.WorkspaceEdit) (map[protocol.DocumentUri][]protocol.TextEdit, error) {
	out := make(map[protocol.DocumentUri][]protocol.TextEdit)
	for uri, edits := range edit.Changes {
		out[uri] = append(out[uri], edits...)
	}
	for _, raw := range edit.DocumentChanges {
		data, err := json.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode document change: %w", err)
		}
		var change documentChange
		if err := json.Unmarshal(data, &change); err != nil {
			return nil, fmt.Errorf("decode document change: %w", err)
		}
		if change.Kind != "" {
			return nil, fmt.Errorf("unsupported resource operation %q", change.Kind)
		}
		if change.TextDocument.URI == "" {
			continue
		}
		out[change.TextDocument.URI] = append(out[change.TextDocument.URI], change.Edits...)
	}
	return out, nil
}

type span struct {
	start, end int
	text       string
	order      int
}

// ApplyTextEdits applies edits to text. Edits are applied from the end of
// the document backwards so earlier offsets stay valid; inserts at the
// same position keep their given order. Overlapping edits are an error.
func ApplyTextEdits(text string, edits []protocol.TextEdit) (string, error) {
	if len(edits) == 0 {
		return text, nil
	}
	lines := strings.SplitAfter(text, "\n")
	starts := make([]int, len(lines))
	for i, offset := 1, 0; i < len(lines); i++ {
		offset += len(lines[i-1])
		starts[i] = offset
	}
	offsetOf := func(pos protocol.Position) int {
		line := int(pos.Line)
		if line >= len(lines) {
			return len(text)
		}
		return starts[line] + byteOffset(strings.TrimSuffix(lines[line], "\n"), pos.Character)
	}

	spans := make([]span, 0, len(edits))
	for i, e := range edits {
		s := span{start: offsetOf(e.Range.Start), end: offsetOf(e.Range.End), text: e.NewText, order: i}
		if s.end < s.start {
			return "", fmt.Errorf("edit %d: range end before start", i)
		}
		spans = append(spans, s)
	}
	slices.SortFunc(spans, func(a, b span) int {
		if c := cmp.Compare(b.start, a.start); c != 0 {
			return c
		}
		return cmp.Compare(b.order, a.order)
	})

	out := text
	for i, s := range spans {
		if i > 0 && s.end > spans[i-1].start {
			return "", fmt.Errorf("edit %d overlaps edit %d", s.order, spans[i-1].order)
		}
		out = out[:s.start] + s.text + out[s.end:]
	}
	return out, nil
}
