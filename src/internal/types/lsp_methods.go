package types

// LSP protocol lifecycle methods
const (
	// MethodInitialize is sent as the first request from client to server
	MethodInitialize = "initialize"
	// MethodInitialized is sent from client to server after the initialize response
	MethodInitialized = "initialized"
	// MethodShutdown is sent from client to server to shutdown the server
	MethodShutdown = "shutdown"
	// MethodExit is sent from client to server to exit the server process
	MethodExit = "exit"
	// MethodCancelRequest cancels an in-flight request in either direction
	MethodCancelRequest = "$/cancelRequest"
)

// LSP document synchronization methods
const (
	// MethodTextDocumentDidOpen is sent when a document is opened
	MethodTextDocumentDidOpen = "textDocument/didOpen"
	// MethodTextDocumentDidChange is sent when a document's content changes
	MethodTextDocumentDidChange = "textDocument/didChange"
	// MethodTextDocumentDidClose is sent when a document is closed
	MethodTextDocumentDidClose = "textDocument/didClose"
)

// LSP workspace methods
const (
	// MethodWorkspaceDidChangeConfiguration tells the server settings changed
	MethodWorkspaceDidChangeConfiguration = "workspace/didChangeConfiguration"
)
