package client

import (
	"context"
	"fmt"
	"os"

	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/lspext"
	"shader-lsp/src/utils"
	"shader-lsp/src/utils/filepattern"
)

// FileReader answers readFile requests
type FileReader interface {
	ReadFile(ctx context.Context, params lspext.ReadFileParams) (string, error)
}

// FileReaderFunc adapts a function to FileReader
type FileReaderFunc func(ctx context.Context, params lspext.ReadFileParams) (string, error)

func (f FileReaderFunc) ReadFile(ctx context.Context, params lspext.ReadFileParams) (string, error) {
	return f(ctx, params)
}

// OSFileReader reads files from the local file system. A relative filepath
// is resolved against the directory of the original document. Paths
// matching a Deny pattern are refused with PermissionDenied.
type OSFileReader struct {
	Deny []string
}

func (r *OSFileReader) ReadFile(ctx context.Context, params lspext.ReadFileParams) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := utils.ResolveRelative(string(params.Filepath.URI), string(params.Original.URI))
	if filepattern.MatchAny(path, r.Deny) {
		return "", errs.NewPermissionDeniedError(path, nil)
	}

	data, err := os.ReadFile(utils.LongPath(path))
	switch {
	case err == nil:
		return string(data), nil
	case os.IsNotExist(err):
		return "", errs.NewFileNotFoundError(path, err)
	case os.IsPermission(err):
		return "", errs.NewPermissionDeniedError(path, err)
	default:
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
}
