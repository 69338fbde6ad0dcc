package writer

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/mkoehler/duplexnum/core"
)

// UpdateConfig describes the document being extended. The values come
// straight from the parsed original.
type UpdateConfig struct {
	Original         []byte    // full original file, written back verbatim
	Trailer          core.Dict // merged trailer of the original
	PrevOffset       int64     // startxref of the original's newest section
	UseXRefStream    bool      // original's newest section is an xref stream
	NextObjectNumber int       // first unused object number
}

type pendingObject struct {
	gen int
	obj core.Object
}

// Update accumulates new and replacement indirect objects, then writes
// the original bytes followed by one incremental-update section. The
// original is never modified, only appended to.
type Update struct {
	cfg     UpdateConfig
	next    int
	objects map[int]pendingObject
}

func NewUpdate(cfg UpdateConfig) *Update {
	next := cfg.NextObjectNumber
	if next < 1 {
		next = 1
	}
	return &Update{cfg: cfg, next: next, objects: make(map[int]pendingObject)}
}

// Alloc registers obj under a fresh object number and returns its
// reference.
func (u *Update) Alloc(obj core.Object) core.Ref {
	ref := core.Ref{Num: u.next, Gen: 0}
	u.next++
	u.objects[ref.Num] = pendingObject{gen: 0, obj: obj}
	return ref
}

// Replace registers obj as the new value of an existing indirect object.
func (u *Update) Replace(ref core.Ref, obj core.Object) {
	u.objects[ref.Num] = pendingObject{gen: ref.Gen, obj: obj}
	if ref.Num >= u.next {
		u.next = ref.Num + 1
	}
}

// Len reports how many objects the update section will carry.
func (u *Update) Len() int { return len(u.objects) }

// WriteTo emits the complete updated file.
func (u *Update) WriteTo(w io.Writer) (int64, error) {
	if len(u.objects) == 0 {
		return 0, fmt.Errorf("incremental update has no objects")
	}
	var buf bytes.Buffer
	buf.Write(u.cfg.Original)
	if n := len(u.cfg.Original); n == 0 || u.cfg.Original[n-1] != '\n' {
		buf.WriteByte('\n')
	}

	nums := make([]int, 0, len(u.objects))
	for num := range u.objects {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	offsets := make(map[int]int64, len(u.objects))
	for _, num := range nums {
		p := u.objects[num]
		offsets[num] = int64(buf.Len())
		fmt.Fprintf(&buf, "%d %d obj\n", num, p.gen)
		buf.Write(Serialize(p.obj))
		buf.WriteString("\nendobj\n")
	}

	var startXRef int64
	if u.cfg.UseXRefStream {
		sx, err := u.writeXRefStream(&buf, nums, offsets)
		if err != nil {
			return 0, err
		}
		startXRef = sx
	} else {
		startXRef = u.writeXRefTable(&buf, nums, offsets)
	}
	fmt.Fprintf(&buf, "startxref\n%d\n%%%%EOF\n", startXRef)

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// newTrailer builds the update's trailer entries, carrying /Root, /Info
// and /ID over from the original so the document identity is stable.
func (u *Update) newTrailer(size int) core.Dict {
	t := core.Dict{
		"Size": core.Integer(size),
		"Prev": core.Integer(u.cfg.PrevOffset),
	}
	for _, key := range []core.Name{"Root", "Info", "ID", "Encrypt"} {
		if v, ok := u.cfg.Trailer[key]; ok {
			t[key] = v
		}
	}
	return t
}

// writeXRefTable appends a classic cross-reference section and trailer.
// Consecutive object numbers share a subsection.
func (u *Update) writeXRefTable(buf *bytes.Buffer, nums []int, offsets map[int]int64) int64 {
	start := int64(buf.Len())
	buf.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(buf, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			fmt.Fprintf(buf, "%010d %05d n \n", offsets[nums[k]], u.objects[nums[k]].gen)
		}
		i = j + 1
	}
	size := u.sectionSize(nums[len(nums)-1])
	buf.WriteString("trailer\n")
	buf.Write(Serialize(u.newTrailer(size)))
	buf.WriteByte('\n')
	return start
}

// writeXRefStream appends the update's cross-reference data as an
// uncompressed xref stream, the form required when the original uses
// xref streams. The stream object indexes itself.
func (u *Update) writeXRefStream(buf *bytes.Buffer, nums []int, offsets map[int]int64) (int64, error) {
	streamNum := u.next
	u.next++
	start := int64(buf.Len())
	offsets[streamNum] = start
	nums = append(nums, streamNum)

	size := u.sectionSize(streamNum)

	// entry rows: 1-byte type, 4-byte offset, 2-byte generation
	var data bytes.Buffer
	var index core.Array
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		index = append(index, core.Integer(nums[i]), core.Integer(j-i+1))
		for k := i; k <= j; k++ {
			num := nums[k]
			gen := 0
			if p, ok := u.objects[num]; ok {
				gen = p.gen
			}
			off := offsets[num]
			if off > 0xFFFFFFFF {
				return 0, fmt.Errorf("object %d at offset %d exceeds the 4-byte entry width", num, off)
			}
			data.WriteByte(1)
			data.Write([]byte{byte(off >> 24), byte(off >> 16), byte(off >> 8), byte(off)})
			data.Write([]byte{byte(gen >> 8), byte(gen)})
		}
		i = j + 1
	}

	dict := u.newTrailer(size)
	dict["Type"] = core.Name("XRef")
	dict["W"] = core.Array{core.Integer(1), core.Integer(4), core.Integer(2)}
	dict["Index"] = index

	fmt.Fprintf(buf, "%d 0 obj\n", streamNum)
	buf.Write(Serialize(&core.Stream{Dict: dict, Raw: data.Bytes()}))
	buf.WriteString("\nendobj\n")
	return start, nil
}

// sectionSize is the /Size for the update: one past the highest object
// number the document now contains.
func (u *Update) sectionSize(highest int) int {
	size := highest + 1
	if orig, ok := u.cfg.Trailer.GetInt("Size"); ok && int(orig) > size {
		size = int(orig)
	}
	return size
}
