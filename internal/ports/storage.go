package ports

import (
	"context"
)

// StorageResolver resolves opaque access tokens to readable file handles.
//
// It replaces process-wide token registries with an injected service that owns
// its own lifecycle. Tokens are minted when the user grants access to a path
// and stay valid for the life of the resolver (or until revoked), which lets
// persisted playlists re-open their resources after a restart.
type StorageResolver interface {
	// RegisterPath grants access to a file or folder and returns its token.
	// Registering the same path twice returns the same token.
	RegisterPath(path string) (token string, err error)

	// ResolveFile opens the file behind a token. Returns ErrStorageNotFound
	// if the token is unknown or the resource vanished.
	ResolveFile(ctx context.Context, token string) (File, error)

	// ResolveInFolder opens a named file inside the folder behind folderToken.
	// Used for audiobook parts, which are addressed as folder token + file
	// name. Returns ErrStorageNotFound if either cannot be resolved.
	ResolveInFolder(ctx context.Context, folderToken, name string) (File, error)

	// ListFolder returns the file names inside the folder behind folderToken,
	// in enumeration order. Returns ErrStorageNotFound for unknown tokens.
	ListFolder(ctx context.Context, folderToken string) ([]string, error)

	// PathFor returns the filesystem path behind a token, if known.
	PathFor(token string) (path string, ok bool)

	// Revoke invalidates a token. Revoking an unknown token is a no-op.
	Revoke(token string)
}
