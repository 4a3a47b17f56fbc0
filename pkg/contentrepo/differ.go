package contentrepo

import (
	"bytes"
	"fmt"

	"github.com/pmezard/go-difflib/difflib"
)

// TextDiffer compares name, parent and content. Content changes carry a
// unified diff of the two revisions.
type TextDiffer struct {
	// Context is the number of unchanged lines around each hunk
	Context int
}

// NewContentDiffer returns the default ContentDiffer
func NewContentDiffer() ContentDiffer {
	return &TextDiffer{Context: 3}
}

func (d *TextDiffer) Diff(update, existing Entity) ChangeSet {
	var changes []Change

	if update.Name() != existing.Name() {
		changes = append(changes, Change{
			Field: "name",
			Diff:  fmt.Sprintf("%q -> %q", existing.Name(), update.Name()),
		})
	}

	newParent, hasNew := update.Parent()
	oldParent, hasOld := existing.Parent()
	if hasNew != hasOld || newParent != oldParent {
		changes = append(changes, Change{
			Field: "parent",
			Diff:  fmt.Sprintf("%s -> %s", describeParent(oldParent, hasOld), describeParent(newParent, hasNew)),
		})
	}

	if !bytes.Equal(update.content, existing.content) {
		changes = append(changes, Change{
			Field: "content",
			Diff:  d.unified(existing.content, update.content),
		})
	}

	return NewChangeSet(changes...)
}

func (d *TextDiffer) unified(before, after []byte) string {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(before)),
		B:        difflib.SplitLines(string(after)),
		FromFile: "stored",
		ToFile:   "update",
		Context:  d.Context,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil || text == "" {
		// binary content or line-identical content with different bytes
		return fmt.Sprintf("%d bytes -> %d bytes", len(before), len(after))
	}
	return text
}

func describeParent(parent Identifier, ok bool) string {
	if !ok {
		return "none"
	}
	return parent.String()
}
