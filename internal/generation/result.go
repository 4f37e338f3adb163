package generation

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"pyshape/internal/core/errors"
	"pyshape/internal/shared/util"
)

// GeneratedFile is one file of a generation result. Only the base name of
// FilePath is used when the result is applied.
type GeneratedFile struct {
	FilePath string `json:"filepath"`
	Code     string `json:"code"`
}

type Result struct {
	Result []GeneratedFile `json:"result"`
}

// failure is the shape of a failed generation response.
type failure struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// ParseResult decodes {"result": [{"filepath": ..., "code": ...}]}. A
// recorded {"error": ..., "type": ...} response is returned as an error.
func ParseResult(data []byte) (*Result, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode generation result")
	}
	if _, ok := raw["result"]; !ok {
		var f failure
		if _, failed := raw["error"]; failed && json.Unmarshal(data, &f) == nil {
			return nil, errors.Newf(errors.CodeValidationError, "generation failed (%s): %s", f.Type, f.Error)
		}
		return nil, errors.New(errors.CodeValidationError, "generation result has no result list")
	}

	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode generation result")
	}
	for i, f := range res.Result {
		if !validFileName(f.FilePath) {
			err := errors.Newf(errors.CodeValidationError, "result entry has no usable file name: %q", f.FilePath)
			return nil, errors.AddContext(err, errors.CtxIndex, i)
		}
	}
	return &res, nil
}

func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "read generation result"), errors.CtxPath, path)
	}
	res, err := ParseResult(data)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return res, nil
}

// SaveResult stores a result as four-space indented JSON.
func SaveResult(res *Result, path string) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(res); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "encode generation result")
	}
	if err := util.WriteFile(path, buf.Bytes()); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "write generation result"), errors.CtxPath, path)
	}
	return nil
}

// ApplyResult writes each entry's code to dir/<base name of filepath> and
// returns the written paths in result order. Later entries with the same
// base name overwrite earlier ones.
func ApplyResult(res *Result, dir string) ([]string, error) {
	if res == nil {
		return nil, errors.New(errors.CodeValidationError, "result is required")
	}
	written := make([]string, 0, len(res.Result))
	for i, f := range res.Result {
		if !validFileName(f.FilePath) {
			err := errors.Newf(errors.CodeValidationError, "result entry has no usable file name: %q", f.FilePath)
			return written, errors.AddContext(err, errors.CtxIndex, i)
		}
		target := filepath.Join(dir, util.BaseName(f.FilePath))
		if err := util.WriteFile(target, []byte(f.Code)); err != nil {
			return written, errors.AddContext(errors.Wrap(err, errors.CodePermissionDenied, "write generated file"), errors.CtxPath, target)
		}
		written = append(written, target)
	}
	return written, nil
}

func validFileName(path string) bool {
	name := util.BaseName(strings.TrimSpace(path))
	return name != "" && name != "." && name != ".."
}
