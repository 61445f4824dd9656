package exchange

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/cwbudde/analysisexchange/internal/analysis"
	"github.com/cwbudde/analysisexchange/internal/opt"
	"github.com/cwbudde/analysisexchange/internal/protocol"
)

// Processor answers request files with an in-process analysis.
type Processor struct {
	Analysis *opt.Analysis
}

// ResultPath returns the result file that answers the request file at path.
func ResultPath(requestPath string) string {
	return strings.TrimSuffix(requestPath, RequestSuffix) + ResultSuffix
}

// Answer evaluates the request held in req. Analysis failures are reported
// through the error code (-1) and the error string of the returned result as
// well as the returned error. Context cancellation gives no result.
func (p *Processor) Answer(ctx context.Context, req *analysis.Result) (*analysis.Result, error) {
	r, evalErr := p.Analysis.Evaluate(ctx, req.Parameters(), req.Requested())
	if r == nil {
		// nothing was evaluated; answer with the request data
		r = req
	}
	if evalErr != nil {
		if errors.Is(evalErr, context.Canceled) || errors.Is(evalErr, context.DeadlineExceeded) {
			return nil, evalErr
		}
		if !r.Failed() {
			r.SetErrorCode(-1)
		}
		r.SetErrorString(evalErr.Error())
	}
	return r, evalErr
}

// ProcessText answers a textual request with a textual result. A request that
// does not parse gives an empty result and a ParseFailure error.
func (p *Processor) ProcessText(ctx context.Context, request string) (string, error) {
	req, err := p.Analysis.NewResult()
	if err != nil {
		return "", err
	}
	client, err := protocol.ParseRequest(request, req)
	if err != nil {
		return "", err
	}
	r, evalErr := p.Answer(ctx, req)
	if r == nil {
		return "", evalErr
	}
	slog.Debug("Request answered", "client", client, "objective", r.Objective(), "errorCode", r.ErrorCode())
	return protocol.FormatResult(r), evalErr
}

// ProcessFile reads the request at requestPath, evaluates it and writes the
// result to resultPath. The result file is written even when the analysis
// fails, and it appears atomically.
func (p *Processor) ProcessFile(ctx context.Context, requestPath, resultPath string) error {
	req, err := p.Analysis.NewResult()
	if err != nil {
		return err
	}
	client, err := protocol.LoadRequestMath(requestPath, req)
	if err != nil {
		return err
	}

	r, evalErr := p.Answer(ctx, req)
	if r == nil {
		return evalErr
	}

	tmp := resultPath + ".tmp"
	if err := protocol.SaveMath(tmp, r, false); err != nil {
		return err
	}
	if err := os.Rename(tmp, resultPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Info("Request answered", "request", requestPath, "client", client,
		"objective", r.Objective(), "errorCode", r.ErrorCode())
	return evalErr
}

// upToDate reports whether the result for requestPath exists and is not older
// than the request.
func upToDate(requestPath string) bool {
	req, err := os.Stat(requestPath)
	if err != nil {
		return false
	}
	res, err := os.Stat(ResultPath(requestPath))
	if err != nil {
		return false
	}
	return !res.ModTime().Before(req.ModTime())
}

func isParseFailure(err error) bool {
	return errors.Is(err, analysis.ErrParseFailure)
}
