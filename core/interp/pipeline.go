package interp

import (
	"errors"
	"io"
	"sync"

	"github.com/peshell/pesh/core/syntax"
)

// runPipeline executes a pipeline. A single-stage pipeline runs in the
// current interpreter so builtins, assignments and function calls mutate
// the live environment. Multi-stage pipelines run every stage
// concurrently on an isolated clone, chained through pipes; the
// pipeline's status is the last stage's status, earlier statuses are
// deliberately discarded.
func (in *Interp) runPipeline(pipeline *syntax.Pipeline) (int, error) {
	if len(pipeline.Cmds) == 1 {
		return in.runCommand(pipeline.Cmds[0])
	}

	n := len(pipeline.Cmds)
	readers := make([]*io.PipeReader, n-1)
	writers := make([]*io.PipeWriter, n-1)
	for i := 0; i < n-1; i++ {
		readers[i], writers[i] = io.Pipe()
	}

	stages := make([]*Interp, n)
	for i := 0; i < n; i++ {
		stage := in.subshell()
		if i > 0 {
			stage.fds.set(0, readEntry(readers[i-1]))
		}
		if i < n-1 {
			stage.fds.set(1, writeEntry(writers[i]))
		}
		stages[i] = stage
	}

	// Every stage is awaited so no goroutine outlives the pipeline, but
	// only the final stage's status is reported.
	var wg sync.WaitGroup
	var lastStatus int
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := stages[i].runStage(pipeline.Cmds[i])
			// Closing the write end delivers EOF downstream; closing
			// the read end unblocks an upstream writer that is still
			// running after this stage exited.
			if i < n-1 {
				writers[i].Close()
			}
			if i > 0 {
				readers[i-1].Close()
			}
			if i == n-1 {
				lastStatus = status
			}
		}(i)
	}
	wg.Wait()
	return lastStatus, nil
}

// runStage runs one pipeline stage to completion the way a forked child
// would: errors are reported on the stage's own stderr and folded into
// its exit status, never propagated to the parent.
func (in *Interp) runStage(cmd syntax.Command) int {
	status, err := in.runCommand(cmd)
	if err != nil {
		var abort *abortError
		if errors.As(err, &abort) {
			return abort.status
		}
		in.report(err)
		return 1
	}
	return status
}
