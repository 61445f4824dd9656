// Package exchange connects an optimizer to direct analyses that live outside
// the process. The optimizer side writes a request file and runs a program
// (External); the analysis side answers request files as they appear in a
// directory (Processor, Watcher).
package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"

	"github.com/cwbudde/analysisexchange/internal/analysis"
	"github.com/cwbudde/analysisexchange/internal/protocol"
)

// File name suffixes of the two message kinds.
const (
	RequestSuffix = ".req"
	ResultSuffix  = ".res"
)

// External runs a program for every evaluation. The program is started as
//
//	Command Args... <request file> <result file>
//
// and must write a result message to the result file before exiting.
type External struct {
	Command string
	Args    []string

	// Dir receives the exchange files. A temporary directory is used when
	// empty.
	Dir string

	// ClientData is passed through the request message unchanged. It must not
	// contain braces.
	ClientData string

	// KeepFiles leaves the exchange files in Dir after each call.
	KeepFiles bool

	seq atomic.Int64
}

// Analyse implements opt.DirectAnalysis.
func (e *External) Analyse(ctx context.Context, r *analysis.Result) error {
	dir := e.Dir
	if dir == "" {
		tmp, err := os.MkdirTemp("", "analysisexchange-*")
		if err != nil {
			return fmt.Errorf("failed to create exchange directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		dir = tmp
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create exchange directory: %w", err)
	}

	base := filepath.Join(dir, "eval-"+strconv.FormatInt(e.seq.Add(1), 10))
	reqPath, resPath := base+RequestSuffix, base+ResultSuffix
	if !e.KeepFiles {
		defer os.Remove(reqPath)
		defer os.Remove(resPath)
	}

	if err := protocol.SaveRequestMath(reqPath, r, e.ClientData, false); err != nil {
		return err
	}

	args := append(append([]string(nil), e.Args...), reqPath, resPath)
	cmd := exec.CommandContext(ctx, e.Command, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("analysis command %s failed: %w: %s", e.Command, err, out)
	}
	slog.Debug("Analysis command finished", "command", e.Command, "request", reqPath, "output", string(out))

	return protocol.LoadMath(resPath, r)
}
