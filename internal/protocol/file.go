package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cwbudde/analysisexchange/internal/analysis"
)

// SaveRequestMath writes a request message for r to path. With appendTo set
// the message is added after the current contents instead of replacing them.
func SaveRequestMath(path string, r *analysis.Result, clientData string, appendTo bool) error {
	if err := writeMessage(path, FormatRequest(r, clientData), appendTo); err != nil {
		return err
	}
	slog.Debug("Request saved", "path", path, "parameters", r.NumParameters(), "append", appendTo)
	return nil
}

// LoadRequestMath reads a request message from path into r and returns the
// client data.
func LoadRequestMath(path string, r *analysis.Result) (string, error) {
	text, err := readMessage(path)
	if err != nil {
		return "", err
	}
	client, err := ParseRequest(text, r)
	if err != nil {
		return "", fmt.Errorf("failed to parse request %s: %w", path, err)
	}
	slog.Debug("Request loaded", "path", path, "parameters", r.NumParameters())
	return client, nil
}

// SaveMath writes a result message for r to path.
func SaveMath(path string, r *analysis.Result, appendTo bool) error {
	if err := writeMessage(path, FormatResult(r), appendTo); err != nil {
		return err
	}
	slog.Debug("Result saved", "path", path, "constraints", r.NumConstraints(), "append", appendTo)
	return nil
}

// LoadMath reads a result message from path into r. A file holding more than
// one appended message does not parse.
func LoadMath(path string, r *analysis.Result) error {
	text, err := readMessage(path)
	if err != nil {
		return err
	}
	if err := ParseResult(text, r); err != nil {
		return fmt.Errorf("failed to parse result %s: %w", path, err)
	}
	slog.Debug("Result loaded", "path", path, "objective", r.Objective(), "errorCode", r.ErrorCode())
	return nil
}

func writeMessage(path, text string, appendTo bool) (err error) {
	flags := os.O_CREATE | os.O_WRONLY
	if appendTo {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	file, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()

	w := bufio.NewWriter(file)
	if _, err := w.WriteString(text + "\n"); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func readMessage(path string) (text string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to close %s: %w", path, cerr))
		}
	}()

	data, err := io.ReadAll(bufio.NewReader(file))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}
