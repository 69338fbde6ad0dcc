package parser

import (
	"fmt"

	"github.com/mkoehler/duplexnum/core"
)

// Page is one leaf of the page tree in document order. MediaBox and
// Rotate carry inherited values already applied.
type Page struct {
	Number   int // 1-based position in the document
	Ref      core.Ref
	Dict     core.Dict
	MediaBox core.Rect
	Rotate   int64
}

// inherited carries the attributes a Pages node passes down to its kids.
type inherited struct {
	mediaBox core.Rect
	hasBox   bool
	rotate   int64
}

// Pages flattens the page tree into document order.
func (d *Document) Pages() ([]Page, error) {
	rootObj, ok := d.Trailer().Get("Root")
	if !ok {
		return nil, fmt.Errorf("trailer has no /Root")
	}
	catalog, err := d.ResolveDict(rootObj)
	if err != nil {
		return nil, fmt.Errorf("document catalog: %w", err)
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return nil, fmt.Errorf("catalog has no /Pages")
	}
	rootRef, _ := pagesObj.(core.Ref)
	rootDict, err := d.ResolveDict(pagesObj)
	if err != nil {
		return nil, fmt.Errorf("page tree root: %w", err)
	}

	var pages []Page
	visited := make(map[core.Ref]bool)
	if err := d.walkPages(rootRef, rootDict, inherited{}, visited, &pages); err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	return pages, nil
}

func (d *Document) walkPages(ref core.Ref, node core.Dict, inh inherited, visited map[core.Ref]bool, out *[]Page) error {
	if ref != (core.Ref{}) {
		if visited[ref] {
			return fmt.Errorf("page tree loop at object %d %d", ref.Num, ref.Gen)
		}
		visited[ref] = true
	}

	if mb, ok := node.GetArray("MediaBox"); ok {
		r, ok := core.RectFromArray(mb)
		if !ok {
			return fmt.Errorf("object %d %d: malformed /MediaBox", ref.Num, ref.Gen)
		}
		inh.mediaBox, inh.hasBox = r, true
	} else if mbRef, ok := node.GetRef("MediaBox"); ok {
		res, err := d.Get(mbRef)
		if err != nil {
			return err
		}
		arr, ok := res.(core.Array)
		if !ok {
			return fmt.Errorf("object %d %d: /MediaBox is not an array", ref.Num, ref.Gen)
		}
		r, ok := core.RectFromArray(arr)
		if !ok {
			return fmt.Errorf("object %d %d: malformed /MediaBox", ref.Num, ref.Gen)
		}
		inh.mediaBox, inh.hasBox = r, true
	}
	if rot, ok := node.GetInt("Rotate"); ok {
		inh.rotate = ((rot % 360) + 360) % 360
	}

	typ, _ := node.GetName("Type")
	isLeaf := typ == "Page" || (typ == "" && node["Kids"] == nil)
	if isLeaf {
		if !inh.hasBox {
			return fmt.Errorf("page object %d %d: no /MediaBox in scope", ref.Num, ref.Gen)
		}
		if inh.mediaBox.Width() <= 0 || inh.mediaBox.Height() <= 0 {
			return fmt.Errorf("page object %d %d: degenerate /MediaBox", ref.Num, ref.Gen)
		}
		*out = append(*out, Page{
			Number:   len(*out) + 1,
			Ref:      ref,
			Dict:     node,
			MediaBox: inh.mediaBox,
			Rotate:   inh.rotate,
		})
		return nil
	}

	kidsObj, ok := node.Get("Kids")
	if !ok {
		return fmt.Errorf("pages node %d %d: no /Kids", ref.Num, ref.Gen)
	}
	kidsRes, err := d.Resolve(kidsObj)
	if err != nil {
		return err
	}
	kids, ok := kidsRes.(core.Array)
	if !ok {
		return fmt.Errorf("pages node %d %d: /Kids is not an array", ref.Num, ref.Gen)
	}
	for _, kid := range kids {
		kidRef, ok := kid.(core.Ref)
		if !ok {
			return fmt.Errorf("pages node %d %d: kid is not a reference", ref.Num, ref.Gen)
		}
		kidDict, err := d.ResolveDict(kidRef)
		if err != nil {
			return fmt.Errorf("page tree kid %d %d: %w", kidRef.Num, kidRef.Gen, err)
		}
		if err := d.walkPages(kidRef, kidDict, inh, visited, out); err != nil {
			return err
		}
	}
	return nil
}
