package interp

import (
	"io"
	"os"
	"strconv"

	"github.com/peshell/pesh/core/expand"
	"github.com/peshell/pesh/core/syntax"
)

// fdEntry is one slot of the interpreter's descriptor table. The recorded
// open flag carries the access mode that <& and >& duplication validates.
type fdEntry struct {
	r    io.Reader
	w    io.Writer
	flag int
	// owned is non-nil when this scope opened the handle and must close
	// it when the slot is released.
	owned io.Closer
}

func readEntry(r io.Reader) *fdEntry  { return &fdEntry{r: r, flag: os.O_RDONLY} }
func writeEntry(w io.Writer) *fdEntry { return &fdEntry{w: w, flag: os.O_WRONLY} }

// fdTable maps descriptor numbers to their current occupants. A missing
// slot models a closed descriptor.
type fdTable struct {
	slots map[int]*fdEntry
}

func newFdTable(stdin io.Reader, stdout, stderr io.Writer) *fdTable {
	t := &fdTable{slots: make(map[int]*fdEntry)}
	if stdin != nil {
		t.slots[0] = readEntry(stdin)
	}
	if stdout != nil {
		t.slots[1] = writeEntry(stdout)
	}
	if stderr != nil {
		t.slots[2] = writeEntry(stderr)
	}
	return t
}

// clone copies the table for a forked execution path. Ownership stays
// with the original scope so a clone never closes its parent's files.
func (t *fdTable) clone() *fdTable {
	out := &fdTable{slots: make(map[int]*fdEntry, len(t.slots))}
	for fd, e := range t.slots {
		copied := *e
		copied.owned = nil
		out.slots[fd] = &copied
	}
	return out
}

func (t *fdTable) set(fd int, e *fdEntry) { t.slots[fd] = e }

// replace installs a new occupant for fd and appends the inverse action:
// close anything this scope opened, then either put back the saved
// occupant or leave the descriptor closed again.
func (t *fdTable) replace(fd int, e *fdEntry, undo *[]func()) {
	prev, existed := t.slots[fd]
	if e == nil {
		delete(t.slots, fd)
	} else {
		t.slots[fd] = e
	}
	owned := e.ownedOrNil()
	*undo = append(*undo, func() {
		if owned != nil {
			owned.Close()
		}
		if existed {
			t.slots[fd] = prev
		} else {
			delete(t.slots, fd)
		}
	})
}

func (e *fdEntry) ownedOrNil() io.Closer {
	if e == nil {
		return nil
	}
	return e.owned
}

// applyRedirects opens every redirection in order and returns a single
// restore action that undoes them in reverse order. On error the
// already-applied redirections are restored before returning, so the
// caller never leaks a descriptor on either path.
func (in *Interp) applyRedirects(redirs []syntax.Redirect) (func(), error) {
	var undo []func()
	restore := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}
	for _, redir := range redirs {
		if err := in.applyRedirect(redir, &undo); err != nil {
			restore()
			return nil, err
		}
	}
	return restore, nil
}

func (in *Interp) applyRedirect(redir syntax.Redirect, undo *[]func()) error {
	target, err := expand.Literal(in.expandCfg(), redir.Target.Text)
	if err != nil {
		return err
	}

	switch redir.Op {
	case syntax.RedirDupIn, syntax.RedirDupOut:
		return in.dupFd(redir, target, undo)
	}

	var flag int
	switch redir.Op {
	case syntax.RedirIn:
		flag = os.O_RDONLY
	case syntax.RedirOut, syntax.RedirClobber:
		flag = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	case syntax.RedirAppend:
		flag = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	case syntax.RedirReadWrite:
		flag = os.O_RDWR | os.O_CREATE
	}

	path := in.resolvePath(target)
	f, err := in.fs.OpenFile(path, flag, os.FileMode(0666)&^in.env.Umask)
	if err != nil {
		return &RedirectionError{Target: target, Msg: openErrMsg(err)}
	}

	entry := &fdEntry{flag: flag, owned: f}
	if flag == os.O_RDONLY || flag&os.O_RDWR != 0 {
		entry.r = f
	}
	if flag&(os.O_WRONLY|os.O_RDWR) != 0 {
		entry.w = f
	}
	in.fds.replace(redir.Fd, entry, undo)
	return nil
}

// dupFd implements <& and >&. A numeric operand duplicates that
// descriptor after checking its access mode is compatible; "-" closes the
// target descriptor.
func (in *Interp) dupFd(redir syntax.Redirect, target string, undo *[]func()) error {
	if target == "-" {
		in.fds.replace(redir.Fd, nil, undo)
		return nil
	}

	src, err := strconv.Atoi(target)
	if err != nil {
		return &RedirectionError{Target: target, Msg: "ambiguous redirect"}
	}
	entry, ok := in.fds.slots[src]
	if !ok {
		return &RedirectionError{Target: target, Msg: "bad file descriptor"}
	}
	if redir.Op == syntax.RedirDupIn && entry.r == nil {
		return &RedirectionError{Target: target, Msg: "not open for reading"}
	}
	if redir.Op == syntax.RedirDupOut && entry.w == nil {
		return &RedirectionError{Target: target, Msg: "not open for writing"}
	}

	copied := *entry
	copied.owned = nil
	in.fds.replace(redir.Fd, &copied, undo)
	return nil
}

func openErrMsg(err error) string {
	if pe, ok := err.(*os.PathError); ok {
		return pe.Err.Error()
	}
	return err.Error()
}

// Descriptor accessors used by builtins and external launch. A closed
// standard stream degrades to a null device rather than a nil interface.

func (in *Interp) stdin() io.Reader {
	if e, ok := in.fds.slots[0]; ok && e.r != nil {
		return e.r
	}
	return eofReader{}
}

func (in *Interp) stdout() io.Writer {
	if e, ok := in.fds.slots[1]; ok && e.w != nil {
		return e.w
	}
	return io.Discard
}

func (in *Interp) stderr() io.Writer {
	if e, ok := in.fds.slots[2]; ok && e.w != nil {
		return e.w
	}
	return io.Discard
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
