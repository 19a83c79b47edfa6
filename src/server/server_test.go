package server

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"shader-lsp/src/client"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/constants"
	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/internal/types"
	"shader-lsp/src/lspext"
	"shader-lsp/src/server/documents"
	"shader-lsp/src/server/metrics"
	rpc "shader-lsp/src/server/protocol"
	"shader-lsp/src/utils/lspconv"
)

const mainShader = `fn add(a: f32, b: f32) -> f32 {
    return a + b;
}

fn main() {
    let x = 1.0;
    let y = add(x, 2.0);
    let n = 3u;
}
`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type settingsFunc func(ctx context.Context) (interface{}, error)

func (f settingsFunc) Settings(ctx context.Context) (interface{}, error) {
	return f(ctx)
}

type harness struct {
	srv     *Server
	client  *client.Client
	metrics *metrics.Metrics
	logs    *syncBuffer
	init    *protocol.InitializeResult
	applied chan config.Settings
}

type harnessOptions struct {
	cfg      *config.Config
	settings client.SettingsStore
	reader   client.FileReader
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()

	h := &harness{
		metrics: metrics.NewMetrics(),
		logs:    &syncBuffer{},
		applied: make(chan config.Settings, 16),
	}
	logger := common.NewSafeLoggerWithWriter("server", h.logs)
	logger.SetLevel(common.LogDebug)

	srv, err := NewServer(opts.cfg, WithMetrics(h.metrics), WithLogger(logger))
	require.NoError(t, err)
	srv.onSettings = func(s config.Settings) {
		select {
		case h.applied <- s:
		default:
		}
	}
	h.srv = srv

	if opts.settings == nil {
		opts.settings = client.NewMemorySettings(nil)
	}
	if opts.reader == nil {
		opts.reader = client.FileReaderFunc(func(_ context.Context, p lspext.ReadFileParams) (string, error) {
			return "", errs.NewFileNotFoundError(string(p.Filepath.URI), nil)
		})
	}

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, serverSide) }()

	h.client = client.New(clientSide, client.WithSettings(opts.settings), client.WithFileReader(opts.reader))
	h.client.Start(ctx)

	t.Cleanup(func() {
		cancel()
		_ = h.client.Close()
		<-served
		srv.Close()
	})

	h.init, err = h.client.Initialize(h.ctx(t), "")
	require.NoError(t, err)
	h.awaitSettings(t)
	return h
}

func (h *harness) ctx(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func (h *harness) awaitSettings(t *testing.T) config.Settings {
	t.Helper()
	select {
	case s := <-h.applied:
		return s
	case <-time.After(5 * time.Second):
		t.Fatal("settings were not applied")
		return config.Settings{}
	}
}

func (h *harness) open(t *testing.T, u uri.URI, text string) protocol.TextDocumentIdentifier {
	t.Helper()
	require.NoError(t, h.client.DidOpen(h.ctx(t), protocol.TextDocumentItem{URI: u, Version: 1, Text: text}))
	return protocol.TextDocumentIdentifier{URI: u}
}

func TestInitializeAdvertisesExtensions(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	require.NotNil(t, h.init.ServerInfo)
	assert.Equal(t, "shader-lsp", h.init.ServerInfo.Name)

	syncOptions, ok := h.init.Capabilities.TextDocumentSync.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(protocol.TextDocumentSyncKindFull), syncOptions["change"])
	assert.Equal(t, true, syncOptions["openClose"])

	experimental, ok := h.init.Capabilities.Experimental.(map[string]interface{})
	require.True(t, ok)
	for _, spec := range lspext.Catalog() {
		assert.Equal(t, true, experimental[string(spec.Method)], spec.Method)
	}
}

func TestSyntaxTreeWholeDocument(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "a.shader", "fn main() {}\n")

	tree, err := h.client.SyntaxTree(h.ctx(t), lspext.SyntaxTreeParams{TextDocument: doc})
	require.NoError(t, err)
	assert.NotEmpty(t, tree)
	assert.Contains(t, tree, "SOURCE_FILE")
	assert.Contains(t, tree, `IDENT@3..7 "main"`)
}

func TestSyntaxTreeRangeIsContainedInWholeTree(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "file:///w/main.wgsl", mainShader)
	ctx := h.ctx(t)

	whole, err := h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc})
	require.NoError(t, err)

	ranges := []protocol.Range{
		{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 0, Character: 6}},
		{Start: protocol.Position{Line: 5, Character: 4}, End: protocol.Position{Line: 6, Character: 10}},
		{Start: protocol.Position{Line: 7, Character: 2}, End: protocol.Position{Line: 7, Character: 2}},
		{Start: protocol.Position{Line: 0, Character: 0}, End: protocol.Position{Line: 9, Character: 0}},
	}
	for _, r := range ranges {
		r := r
		sub, err := h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc, Range: &r})
		require.NoError(t, err, lspconv.FormatPosition(r.Start))
		assert.True(t, strings.HasPrefix(sub, "SOURCE_FILE@"), "root is always included")
		for _, line := range strings.Split(strings.TrimRight(sub, "\n"), "\n") {
			assert.Contains(t, whole, line)
		}
	}
}

func TestSyntaxTreeErrors(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "a.shader", "fn main() {}\n")
	ctx := h.ctx(t)

	_, err := h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: protocol.TextDocumentIdentifier{URI: "missing.shader"}})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidDocument), "%v", err)

	outside := protocol.Range{End: protocol.Position{Line: 4, Character: 0}}
	_, err = h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc, Range: &outside})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidRange), "%v", err)

	inverted := protocol.Range{Start: protocol.Position{Character: 5}, End: protocol.Position{Character: 1}}
	_, err = h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc, Range: &inverted})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidRange), "%v", err)
}

func TestDebugCommand(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "a.shader", "fn main() {}")
	ctx := h.ctx(t)

	out, err := h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 0, Character: 4}})
	require.NoError(t, err)
	assert.Contains(t, out, `token: IDENT@3..7 "main"`)
	assert.Contains(t, out, "item: FUNCTION main")
	assert.Contains(t, out, "position: 0:4 (offset 4 of 12)")

	_, err = h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 0, Character: 12}})
	assert.NoError(t, err, "end of file is a valid position")

	for _, pos := range []protocol.Position{{Line: 0, Character: 13}, {Line: 1, Character: 0}, {Line: 40, Character: 2}} {
		_, err = h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: pos})
		assert.True(t, stderrors.Is(err, errs.ErrInvalidPosition), "%s: %v", lspconv.FormatPosition(pos), err)
	}
}

func TestCoordinatesPastLineEndAreRejected(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "file:///w/main.wgsl", mainShader)
	ctx := h.ctx(t)

	_, err := h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 0, Character: 999}})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidPosition), "%v", err)

	_, err = h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 5, Character: 17}})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidPosition), "%v", err)

	_, err = h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 5, Character: 16}})
	assert.NoError(t, err, "end of line is a valid position")

	overshoot := protocol.Range{Start: protocol.Position{Line: 0, Character: 500}, End: protocol.Position{Line: 1, Character: 700}}
	_, err = h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc, Range: &overshoot})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidRange), "%v", err)

	_, err = h.client.InlayHints(ctx, lspext.InlayHintsParams{TextDocument: doc, Range: overshoot})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidRange), "%v", err)
}

func TestFullSourceWithoutDirectivesIsIdempotent(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "file:///w/main.wgsl", mainShader)
	ctx := h.ctx(t)

	first, err := h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	second, err := h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)

	assert.Equal(t, mainShader, first)
	assert.Equal(t, first, second)
}

func TestFullSourceResolvesImports(t *testing.T) {
	var mu sync.Mutex
	var seen []lspext.ReadFileParams
	reader := client.FileReaderFunc(func(_ context.Context, p lspext.ReadFileParams) (string, error) {
		mu.Lock()
		seen = append(seen, p)
		mu.Unlock()
		if p.Filepath.URI == "utils.wgsl" {
			return "fn util() {}\n", nil
		}
		return "", errs.NewFileNotFoundError(string(p.Filepath.URI), nil)
	})
	settings := client.NewMemorySettings(map[string]interface{}{
		"customImports": map[string]interface{}{"custom": "fn custom() {}"},
		"shaderDefs":    []interface{}{"FOG"},
	})
	h := newHarness(t, harnessOptions{reader: reader, settings: settings})

	src := "#import utils.wgsl\n#import \"custom\"\n#ifdef FOG\nfn fog() {}\n#else\nfn clear() {}\n#endif\n#import gone.wgsl\nfn main() {}\n"
	doc := h.open(t, "main.wgsl", src)

	out, err := h.client.FullSource(h.ctx(t), lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "fn util() {}", lines[0])
	assert.Equal(t, "fn custom() {}", lines[1])
	assert.Equal(t, "fn fog() {}", lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "#import gone.wgsl // unresolved import: "), lines[3])
	assert.Contains(t, lines[3], "gone.wgsl")
	assert.Equal(t, "fn main() {}", lines[4])

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 2, "custom imports are not read from the client")
	for _, p := range seen {
		assert.Equal(t, doc, p.Original)
		_, err := uuid.Parse(string(p.Identifier))
		assert.NoError(t, err, "identifier %q", p.Identifier)
	}
	assert.NotEqual(t, seen[0].Identifier, seen[1].Identifier)
}

func TestFullSourceNestedImportCycle(t *testing.T) {
	files := map[string]string{
		"a.wgsl": "#import b.wgsl\nfn a() {}\n",
		"b.wgsl": "#import a.wgsl\nfn b() {}\n",
	}
	reader := client.FileReaderFunc(func(_ context.Context, p lspext.ReadFileParams) (string, error) {
		if src, ok := files[string(p.Filepath.URI)]; ok {
			return src, nil
		}
		return "", errs.NewFileNotFoundError(string(p.Filepath.URI), nil)
	})
	h := newHarness(t, harnessOptions{reader: reader})
	doc := h.open(t, "main.wgsl", "#import a.wgsl\nfn main() {}\n")

	out, err := h.client.FullSource(h.ctx(t), lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t,
		"#import a.wgsl // unresolved import: import cycle: a.wgsl -> b.wgsl -> a.wgsl\nfn b() {}\nfn a() {}\nfn main() {}\n",
		out)
}

func TestFullSourceConcurrentReadsAnsweredOutOfOrder(t *testing.T) {
	const n = 3
	arrived := make(chan string, n)
	release := make(chan struct{})
	reader := client.FileReaderFunc(func(ctx context.Context, p lspext.ReadFileParams) (string, error) {
		arrived <- string(p.Filepath.URI)
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		// later imports answer first
		if p.Filepath.URI == "f0.wgsl" {
			time.Sleep(30 * time.Millisecond)
		}
		return "// " + string(p.Filepath.URI) + "\n", nil
	})
	h := newHarness(t, harnessOptions{reader: reader})
	doc := h.open(t, "main.wgsl", "#import f0.wgsl\n#import f1.wgsl\n#import f2.wgsl\n")

	type result struct {
		out string
		err error
	}
	ctx := h.ctx(t)
	done := make(chan result, 1)
	go func() {
		out, err := h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
		done <- result{out, err}
	}()

	for i := 0; i < n; i++ {
		select {
		case <-arrived:
		case <-time.After(5 * time.Second):
			t.Fatalf("only %d of %d readFile requests were in flight together", i, n)
		}
	}
	close(release)

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "// f0.wgsl\n// f1.wgsl\n// f2.wgsl\n", res.out)
}

func TestFullSourceMaxConcurrentReads(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.MaxConcurrentReads = 1

	var mu sync.Mutex
	inFlight, peak := 0, 0
	reader := client.FileReaderFunc(func(_ context.Context, p lspext.ReadFileParams) (string, error) {
		mu.Lock()
		inFlight++
		if inFlight > peak {
			peak = inFlight
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return "", nil
	})
	h := newHarness(t, harnessOptions{cfg: cfg, reader: reader})
	doc := h.open(t, "main.wgsl", "#import a\n#import b\n#import c\n")

	_, err := h.client.FullSource(h.ctx(t), lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, peak)
}

func TestInlayHintsWithinRange(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "file:///w/main.wgsl", mainShader)
	ctx := h.ctx(t)

	all, err := h.client.InlayHints(ctx, lspext.InlayHintsParams{
		TextDocument: doc,
		Range:        protocol.Range{End: protocol.Position{Line: 9, Character: 0}},
	})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, protocol.Position{Line: 5, Character: 9}, all[0].Position)
	assert.Equal(t, ": f32", all[0].Label)
	assert.Equal(t, lspext.InlayHintKindType, all[0].Kind)

	r := protocol.Range{Start: protocol.Position{Line: 6, Character: 0}, End: protocol.Position{Line: 6, Character: 20}}
	hints, err := h.client.InlayHints(ctx, lspext.InlayHintsParams{TextDocument: doc, Range: r})
	require.NoError(t, err)
	require.Len(t, hints, 3)
	for i, hint := range hints {
		assert.True(t, lspconv.RangeContains(r, hint.Position), hint.Render())
		if i > 0 {
			assert.LessOrEqual(t, lspconv.ComparePositions(hints[i-1].Position, hint.Position), 0)
		}
	}
	assert.Equal(t, "a:", hints[1].Label)
	assert.Equal(t, "parameter", hints[1].Kind.String())
}

func TestInlayHintsDisabledBySettings(t *testing.T) {
	settings := client.NewMemorySettings(map[string]interface{}{
		"inlayHints": map[string]interface{}{"enabled": false},
	})
	h := newHarness(t, harnessOptions{settings: settings})
	doc := h.open(t, "file:///w/main.wgsl", mainShader)

	hints, err := h.client.InlayHints(h.ctx(t), lspext.InlayHintsParams{
		TextDocument: doc,
		Range:        protocol.Range{End: protocol.Position{Line: 9, Character: 0}},
	})
	require.NoError(t, err)
	assert.Empty(t, hints)
}

func TestEmptyConfigurationYieldsDefaults(t *testing.T) {
	settings := client.NewMemorySettings(nil)
	h := newHarness(t, harnessOptions{settings: settings})

	assert.Equal(t, 1, settings.Served())
	assert.Contains(t, h.logs.String(), "Applied settings")
	assert.NotContains(t, h.logs.String(), "keeping previous settings")
}

func TestConfigurationChangeAndFailure(t *testing.T) {
	var mu sync.Mutex
	answer := map[string]interface{}{"shaderDefs": []interface{}{"FOG"}}
	var failWith error
	store := settingsFunc(func(context.Context) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		if failWith != nil {
			return nil, failWith
		}
		return answer, nil
	})
	h := newHarness(t, harnessOptions{settings: store})
	doc := h.open(t, "main.wgsl", "#ifdef FOG\nfog\n#else\nclear\n#endif\n")
	ctx := h.ctx(t)

	out, err := h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t, "fog\n", out)

	mu.Lock()
	answer = map[string]interface{}{}
	mu.Unlock()
	require.NoError(t, h.client.DidChangeConfiguration(ctx))
	h.awaitSettings(t)

	out, err = h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t, "clear\n", out)

	mu.Lock()
	answer = map[string]interface{}{"shaderDefs": []interface{}{"FOG"}}
	failWith = stderrors.New("settings unavailable")
	mu.Unlock()
	require.NoError(t, h.client.DidChangeConfiguration(ctx))
	require.Eventually(t, func() bool {
		return strings.Contains(h.logs.String(), "keeping previous settings")
	}, 5*time.Second, 10*time.Millisecond)

	out, err = h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t, "clear\n", out, "failed refresh keeps previous settings")
}

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "a.shader", "fn a() {}")
	ctx := h.ctx(t)

	require.NoError(t, h.client.DidChange(ctx, protocol.VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: doc,
		Version:                2,
	}, documents.ContentChange{Text: "fn b() {}"}))

	tree, err := h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Contains(t, tree, `IDENT@3..4 "b"`)

	edit := protocol.Range{Start: protocol.Position{Character: 3}, End: protocol.Position{Character: 4}}
	require.NoError(t, h.client.DidChange(ctx, protocol.VersionedTextDocumentIdentifier{
		TextDocumentIdentifier: doc,
		Version:                3,
	}, documents.ContentChange{Range: &edit, Text: "main"}))

	out, err := h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Equal(t, "fn main() {}", out)
	assert.Equal(t, 1, h.srv.OpenDocuments())

	require.NoError(t, h.client.DidClose(ctx, doc.URI))
	_, err = h.client.FullSource(ctx, lspext.FullSourceParams{TextDocument: doc})
	assert.True(t, stderrors.Is(err, errs.ErrInvalidDocument), "%v", err)
	assert.Equal(t, 0, h.srv.OpenDocuments())
}

func TestMetricsRecorded(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	doc := h.open(t, "a.shader", "fn main() {}")
	ctx := h.ctx(t)

	_, err := h.client.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc})
	require.NoError(t, err)
	_, err = h.client.DebugCommand(ctx, lspext.DebugCommandParams{TextDocument: doc, Position: protocol.Position{Line: 9}})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(string(lspext.MethodSyntaxTree), metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(string(lspext.MethodDebugCommand), metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OutboundRequestsTotal.WithLabelValues(string(lspext.MethodRequestConfiguration), metrics.OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.OpenDocuments))
}

func TestUnsupportedMethods(t *testing.T) {
	h := newHarness(t, harnessOptions{})
	ctx := h.ctx(t)

	for _, method := range []string{"textDocument/hover", string(lspext.MethodReadFile), string(lspext.MethodRequestConfiguration)} {
		var raw json.RawMessage
		err := h.client.Call(ctx, method, map[string]interface{}{}, &raw)
		assert.True(t, errs.IsMethodNotFound(err), "%s: %v", method, err)
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(metrics.MethodOther, metrics.OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.RequestsTotal.WithLabelValues(string(lspext.MethodReadFile), metrics.OutcomeError)))

	var raw json.RawMessage
	err := h.client.Call(ctx, string(lspext.MethodReadFile), map[string]interface{}{}, &raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sent by the server to the client")
}

func TestSessionConnUsesConfiguredLateWindow(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Server.LateResponseWindow = 2 * time.Second
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	a, b := net.Pipe()
	defer b.Close()
	conn := srv.newConn(a, newSession(srv))
	defer conn.Close()
	assert.Equal(t, 2*time.Second, conn.LateResponseWindow())

	cfg.Server.LateResponseWindow = 0
	unset := srv.newConn(b, newSession(srv))
	defer unset.Close()
	assert.Equal(t, constants.LateResponseWindow, unset.LateResponseWindow())
}

func TestShutdownClosesSession(t *testing.T) {
	h := newHarness(t, harnessOptions{})

	require.NoError(t, h.client.Shutdown(h.ctx(t)))
	select {
	case <-h.client.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("session did not end after exit")
	}
}

// rawSession drives the server with a bare connection for checks the typed
// client cannot express.
func rawSession(t *testing.T, handler rpc.Handler) (*rpc.Conn, *syncBuffer) {
	t.Helper()
	logs := &syncBuffer{}
	logger := common.NewSafeLoggerWithWriter("server", logs)
	srv, err := NewServer(nil, WithLogger(logger))
	require.NoError(t, err)

	serverSide, clientSide := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ctx, serverSide) }()

	conn := rpc.NewConn("raw-client", clientSide, handler)
	conn.Go(ctx)
	t.Cleanup(func() {
		cancel()
		_ = conn.Close()
		<-served
		srv.Close()
	})
	return conn, logs
}

func TestRequestsBeforeInitialize(t *testing.T) {
	conn, _ := rawSession(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := conn.Call(ctx, string(lspext.MethodSyntaxTree), lspext.SyntaxTreeParams{}, nil)
	var rpcErr *jsonrpc2.Error
	require.True(t, stderrors.As(err, &rpcErr), "%v", err)
	assert.Equal(t, jsonrpc2.ServerNotInitialized, rpcErr.Code)
}

func TestReadFileIdentifierMismatch(t *testing.T) {
	handler := rpc.HandlerFuncs{
		Request: func(_ context.Context, method string, raw json.RawMessage) (interface{}, error) {
			switch lspext.Method(method) {
			case lspext.MethodRequestConfiguration:
				return map[string]interface{}{}, nil
			case lspext.MethodReadFile:
				var p lspext.ReadFileParams
				if err := json.Unmarshal(raw, &p); err != nil {
					return nil, err
				}
				res := p.Answer("fn wrong() {}")
				res.Identifier = "not-" + p.Identifier
				return res, nil
			}
			return nil, errs.NewMethodNotSupportedError("client", method, "")
		},
	}
	conn, _ := rawSession(t, handler)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, conn.Call(ctx, types.MethodInitialize, protocol.InitializeParams{}, nil))
	require.NoError(t, conn.Notify(ctx, types.MethodInitialized, protocol.InitializedParams{}))
	doc := protocol.TextDocumentIdentifier{URI: "main.wgsl"}
	require.NoError(t, conn.Notify(ctx, types.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: doc.URI, Version: 1, Text: "#import b.wgsl\nfn main() {}\n"},
	}))

	var out string
	require.NoError(t, conn.Call(ctx, string(lspext.MethodFullSource), lspext.FullSourceParams{TextDocument: doc}, &out))
	assert.True(t, strings.HasPrefix(out, "#import b.wgsl // unresolved import: "), out)
	assert.Contains(t, out, "protocol error")
	assert.NotContains(t, out, "fn wrong")
	assert.True(t, strings.HasSuffix(out, "\nfn main() {}\n"))
}

func TestServeListenerSessionsAreIndependent(t *testing.T) {
	srv, err := NewServer(nil, WithLogger(common.NewSafeLoggerWithWriter("server", &syncBuffer{})))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	served := make(chan error, 1)
	go func() { served <- srv.ServeListener(ctx, ln) }()

	dial := func() *client.Client {
		conn, err := net.Dial("tcp", ln.Addr().String())
		require.NoError(t, err)
		c := client.New(conn)
		c.Start(ctx)
		_, err = c.Initialize(ctx, "")
		require.NoError(t, err)
		return c
	}
	a, b := dial(), dial()

	doc := protocol.TextDocumentIdentifier{URI: "file:///shared.wgsl"}
	require.NoError(t, a.DidOpen(ctx, protocol.TextDocumentItem{URI: doc.URI, Version: 1, Text: mainShader}))

	tree, err := a.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc})
	require.NoError(t, err)
	assert.Contains(t, tree, "SOURCE_FILE")

	_, err = b.SyntaxTree(ctx, lspext.SyntaxTreeParams{TextDocument: doc})
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errs.ErrInvalidDocument), "%v", err)

	require.NoError(t, a.Shutdown(ctx))
	require.NoError(t, b.Shutdown(ctx))
	require.Eventually(t, func() bool { return srv.OpenDocuments() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-served)
	srv.Close()
}
