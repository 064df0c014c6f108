package interp

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/peshell/pesh/core/expand"
	"github.com/peshell/pesh/core/state"
	"github.com/peshell/pesh/core/syntax"
)

// ErrNotFound is the error resulting if a path search failed to find an
// executable file.
var ErrNotFound = exec.ErrNotFound

func findExecutable(fsys fileStater, file string) error {
	d, err := fsys.Stat(file)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return err
	}
	if m := d.Mode(); !m.IsDir() && m&0111 != 0 {
		return nil
	}
	return fs.ErrPermission
}

type fileStater interface {
	Stat(name string) (os.FileInfo, error)
}

// LookPath searches for an executable named file in the directories named
// by the environment's PATH variable. If file contains a slash, it is
// tried directly relative to the working directory and the PATH is not
// consulted.
func LookPath(fsys fileStater, env *state.Environment, file string) (string, error) {
	cwd := env.Cwd
	if strings.Contains(file, "/") {
		resolved := file
		if !filepath.IsAbs(resolved) {
			resolved = filepath.Join(cwd, resolved)
		}
		if err := findExecutable(fsys, resolved); err != nil {
			return "", err
		}
		return resolved, nil
	}
	path, _ := env.Get("PATH")
	// A match that exists but is not executable is remembered so the
	// caller can report permission denied instead of not found.
	var firstErr error
	for _, dir := range filepath.SplitList(path) {
		if dir == "" {
			// Unix shell semantics: path element "" means "."
			dir = cwd
		}
		candidate := filepath.Join(dir, file)
		err := findExecutable(fsys, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, ErrNotFound) && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return "", firstErr
	}
	return "", ErrNotFound
}

// resolvePath makes a redirection or command path absolute relative to
// the interpreter's logical working directory.
func (in *Interp) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(in.env.Cwd, p)
}

// runExternal resolves and launches an external program. Launch-time
// failures surface as a CommandNotFoundError carrying the sentinel
// status; a started program's own exit status passes through unchanged.
func (in *Interp) runExternal(cmd *syntax.SimpleCommand, fields []string, cfg *expand.Config) (int, error) {
	path, err := LookPath(in.fs, in.env, fields[0])
	switch {
	case errors.Is(err, ErrNotFound):
		return StatusNotFound, &CommandNotFoundError{Name: fields[0], Status: StatusNotFound}
	case errors.Is(err, fs.ErrPermission):
		return StatusNotExecutable, &CommandNotFoundError{Name: fields[0], Status: StatusNotExecutable}
	case err != nil:
		return StatusUnknownFailure, &CommandNotFoundError{Name: fields[0], Status: StatusUnknownFailure}
	}

	restore, err := in.applyRedirects(cmd.Redirs)
	if err != nil {
		return 1, err
	}
	defer restore()

	// Assignments before an external command are child-scoped: they go
	// into the child's environment without touching the live one.
	childEnv := in.env.Environ()
	for _, assign := range cmd.Assigns {
		value, err := expand.Literal(cfg, assign.Value.Text)
		if err != nil {
			return 1, err
		}
		childEnv = append(childEnv, assign.Name+"="+value)
	}

	extra, closeExtra, waitExtra, err := in.extraFiles()
	if err != nil {
		return StatusUnknownFailure, &CommandNotFoundError{Name: fields[0], Status: StatusUnknownFailure}
	}

	proc := exec.Command(path, fields[1:]...)
	proc.Args = append([]string{fields[0]}, fields[1:]...)
	proc.Dir = in.env.Cwd
	proc.Env = childEnv
	proc.Stdin = in.stdin()
	proc.Stdout = in.stdout()
	proc.Stderr = in.stderr()
	proc.ExtraFiles = extra

	// The file-creation mask is process wide; pin it across Start so the
	// child inherits the interpreter's mask.
	oldMask := unix.Umask(int(in.env.Umask))
	err = proc.Start()
	unix.Umask(oldMask)
	closeExtra()
	if err != nil {
		waitExtra()
		status := StatusUnknownFailure
		if errors.Is(err, fs.ErrPermission) {
			status = StatusNotExecutable
		} else if errors.Is(err, fs.ErrNotExist) {
			status = StatusNotFound
		}
		return status, &CommandNotFoundError{Name: fields[0], Status: status}
	}

	// Wait retries internally until the status report is a termination,
	// so stop/continue notifications never surface here.
	err = proc.Wait()
	waitExtra()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, nil
		}
		if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
			return 128 + int(ws.Signal()), nil
		}
		return StatusUnknownFailure, nil
	}
	return StatusUnknownFailure, &CommandNotFoundError{Name: fields[0], Status: StatusUnknownFailure}
}

// extraFiles materializes descriptor table slots 3 and up for an
// external child. Entries backed by real files are inherited directly;
// anything else is bridged through a pipe. closeParent releases the
// pipe ends this call opened once the child holds its own copies, and
// wait blocks until the bridge copies drain.
func (in *Interp) extraFiles() (files []*os.File, closeParent, wait func(), err error) {
	maxFd := 2
	for fd := range in.fds.slots {
		if fd > maxFd {
			maxFd = fd
		}
	}

	var created []*os.File
	var wg sync.WaitGroup
	closeParent = func() {
		for _, f := range created {
			f.Close()
		}
	}
	wait = wg.Wait

	for fd := 3; fd <= maxFd; fd++ {
		entry, ok := in.fds.slots[fd]
		switch {
		case !ok:
			// The slot is closed but ExtraFiles cannot express a hole, so
			// the child gets the null device there instead.
			null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
			if err != nil {
				closeParent()
				return nil, nil, nil, err
			}
			created = append(created, null)
			files = append(files, null)

		case entry.r != nil:
			if f, ok := entry.r.(*os.File); ok {
				files = append(files, f)
				continue
			}
			pr, pw, err := os.Pipe()
			if err != nil {
				closeParent()
				return nil, nil, nil, err
			}
			src := entry.r
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer pw.Close()
				io.Copy(pw, src)
			}()
			created = append(created, pr)
			files = append(files, pr)

		default:
			if f, ok := entry.w.(*os.File); ok {
				files = append(files, f)
				continue
			}
			pr, pw, err := os.Pipe()
			if err != nil {
				closeParent()
				return nil, nil, nil, err
			}
			dst := entry.w
			wg.Add(1)
			go func() {
				defer wg.Done()
				io.Copy(dst, pr)
				pr.Close()
			}()
			created = append(created, pw)
			files = append(files, pw)
		}
	}
	return files, closeParent, wait, nil
}
