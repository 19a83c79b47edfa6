package server

import (
	"context"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"shader-lsp/src/analyzer"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/constants"
	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/lspext"
	"shader-lsp/src/utils"
)

// fullSource returns the preprocessed document with its imports expanded
func (ss *session) fullSource(ctx context.Context, params lspext.FullSourceParams) (string, error) {
	doc, err := ss.document(params.TextDocument)
	if err != nil {
		return "", err
	}

	settings := ss.currentSettings()
	r := newImportResolver(ss, settings)
	pre := analyzer.Preprocess(doc.Text, r.defs)
	out, err := r.expand(ctx, pre, params.TextDocument, nil)
	if err != nil {
		return "", err
	}
	if r.failures > 0 {
		ss.srv.logger.Debug("fullSource %s: %d unresolved import(s)", doc.URI, r.failures)
	}
	return out, nil
}

type importSource struct {
	text     string
	filepath protocol.TextDocumentIdentifier
	err      error
}

// importResolver fetches the imports of one fullSource request. Sources are
// remembered per (original, key) so a file imported twice is read once.
type importResolver struct {
	ss       *session
	defs     map[string]bool
	custom   map[string]string
	maxReads int64
	timeout  time.Duration

	mu       sync.Mutex
	sources  map[string]*importSource
	failures int
}

func newImportResolver(ss *session, settings config.Settings) *importResolver {
	maxReads := int64(ss.srv.cfg.Server.MaxConcurrentReads)
	if maxReads < 1 {
		maxReads = constants.DefaultMaxConcurrentReads
	}
	return &importResolver{
		ss:       ss,
		defs:     settings.DefSet(),
		custom:   settings.CustomImports,
		maxReads: maxReads,
		timeout:  ss.srv.cfg.Server.OutboundTimeout,
		sources:  make(map[string]*importSource),
	}
}

func sourceKey(original protocol.TextDocumentIdentifier, key string) string {
	return string(original.URI) + "\x00" + key
}

// expand resolves the imports of pre, read from the context of original,
// and renders it. chain holds the import keys being expanded above pre.
func (r *importResolver) expand(ctx context.Context, pre *analyzer.Preprocessed, original protocol.TextDocumentIdentifier, chain []string) (string, error) {
	if err := r.fetch(ctx, original, pre.ImportKeys()); err != nil {
		return "", err
	}

	var expandErr error
	out := pre.Expand(func(key string) (string, error) {
		if expandErr != nil {
			return "", expandErr
		}
		src := r.lookup(original, key)
		if src.err != nil {
			r.fail()
			return "", src.err
		}
		for _, k := range chain {
			if k == key {
				r.fail()
				return "", fmt.Errorf("import cycle: %s -> %s", strings.Join(chain, " -> "), key)
			}
		}
		if len(chain)+1 >= constants.MaxImportDepth {
			r.fail()
			return "", fmt.Errorf("imports nested deeper than %d", constants.MaxImportDepth)
		}

		child := analyzer.Preprocess(src.text, r.defs)
		next := append(chain[:len(chain):len(chain)], key)
		text, err := r.expand(ctx, child, src.filepath, next)
		if err != nil {
			expandErr = err
			return "", err
		}
		return text, nil
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// fetch resolves the keys not seen yet. Custom imports come from settings;
// everything else is read through the client, at most maxReads at a time. A
// failed read is recorded against its key; only cancellation of ctx fails
// the whole fetch.
func (r *importResolver) fetch(ctx context.Context, original protocol.TextDocumentIdentifier, keys []string) error {
	g, gctx := errgroup.WithContext(ctx)
	sem := semaphore.NewWeighted(r.maxReads)

	for _, key := range keys {
		sk := sourceKey(original, key)
		if r.has(sk) {
			continue
		}
		if text, ok := r.custom[key]; ok {
			r.store(sk, &importSource{text: text, filepath: original})
			continue
		}

		key := key
		g.Go(func() error {
			if err := sem.Acquire(gctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			src := r.readFile(gctx, original, key)
			if src.err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			r.store(sk, src)
			return nil
		})
	}
	return g.Wait()
}

func (r *importResolver) readFile(ctx context.Context, original protocol.TextDocumentIdentifier, key string) *importSource {
	params := lspext.ReadFileParams{
		Identifier: lspext.ReadFileID(uuid.NewString()),
		Filepath:   protocol.TextDocumentIdentifier{URI: uri.URI(key)},
		Original:   original,
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var result lspext.ReadFileResult
	if err := r.ss.call(callCtx, lspext.MethodReadFile, params, &result); err != nil {
		return &importSource{err: err}
	}
	if !result.Matches(params) {
		err := errs.NewProtocolError(fmt.Sprintf("readFile answer for %q carries identifier %q, expected %q",
			key, result.Identifier, params.Identifier), nil)
		return &importSource{err: errs.WithMethod(string(lspext.MethodReadFile), err)}
	}

	return &importSource{
		text:     result.Source,
		filepath: protocol.TextDocumentIdentifier{URI: uri.URI(resolveReference(key, string(original.URI)))},
	}
}

// resolveReference names the file key refers to from original, so that the
// imports of an imported file resolve relative to that file.
func resolveReference(key, original string) string {
	if utils.IsFileURI(original) {
		return utils.FilePathToURI(utils.ResolveRelative(key, original))
	}
	if utils.IsFileURI(key) || path.IsAbs(key) {
		return key
	}
	return path.Join(path.Dir(original), key)
}

func (r *importResolver) has(sk string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sources[sk]
	return ok
}

func (r *importResolver) store(sk string, src *importSource) {
	r.mu.Lock()
	r.sources[sk] = src
	r.mu.Unlock()
}

func (r *importResolver) lookup(original protocol.TextDocumentIdentifier, key string) *importSource {
	r.mu.Lock()
	defer r.mu.Unlock()
	if src, ok := r.sources[sourceKey(original, key)]; ok {
		return src
	}
	return &importSource{err: fmt.Errorf("import %q was not fetched", key)}
}

func (r *importResolver) fail() {
	r.mu.Lock()
	r.failures++
	r.mu.Unlock()
}
