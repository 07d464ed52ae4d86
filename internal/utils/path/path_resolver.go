package pathutils

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	tildeSymbolConstant             = "~"
	tildeForwardSlashPrefixConstant = "~/"
)

// HomeDirectoryProvider resolves the current user's home directory path.
type HomeDirectoryProvider func() (string, error)

// Resolver expands home shortcuts and anchors relative paths to a base directory.
type Resolver struct {
	baseDirectory         string
	homeDirectoryProvider HomeDirectoryProvider
	homeDirectory         string
	homeDirectoryError    error
	initializationGuard   sync.Once
}

// NewResolver constructs a Resolver anchored at baseDirectory using the operating system home lookup.
func NewResolver(baseDirectory string) *Resolver {
	return NewResolverWithProvider(baseDirectory, os.UserHomeDir)
}

// NewResolverWithProvider constructs a Resolver with a custom home directory provider.
func NewResolverWithProvider(baseDirectory string, provider HomeDirectoryProvider) *Resolver {
	if provider == nil {
		provider = os.UserHomeDir
	}
	return &Resolver{baseDirectory: baseDirectory, homeDirectoryProvider: provider}
}

// ExpandHome resolves a leading tilde to the user's home directory.
func (resolver *Resolver) ExpandHome(candidatePath string) string {
	if resolver == nil || !strings.HasPrefix(candidatePath, tildeSymbolConstant) {
		return candidatePath
	}

	resolvedHomeDirectory := resolver.resolveHomeDirectory()
	if len(resolvedHomeDirectory) == 0 {
		return candidatePath
	}

	if candidatePath == tildeSymbolConstant {
		return resolvedHomeDirectory
	}

	tildeWithPathSeparatorPrefix := tildeSymbolConstant + string(os.PathSeparator)
	for _, prefix := range []string{tildeForwardSlashPrefixConstant, tildeWithPathSeparatorPrefix} {
		if strings.HasPrefix(candidatePath, prefix) {
			return filepath.Join(resolvedHomeDirectory, strings.TrimPrefix(candidatePath, prefix))
		}
	}

	return candidatePath
}

// Resolve expands the home shortcut and joins relative paths onto the base directory.
// Empty input stays empty.
func (resolver *Resolver) Resolve(candidatePath string) string {
	trimmedPath := strings.TrimSpace(candidatePath)
	if len(trimmedPath) == 0 {
		return trimmedPath
	}

	expandedPath := resolver.ExpandHome(trimmedPath)
	if filepath.IsAbs(expandedPath) || resolver == nil || len(resolver.baseDirectory) == 0 {
		return filepath.Clean(expandedPath)
	}
	return filepath.Join(resolver.ExpandHome(resolver.baseDirectory), expandedPath)
}

func (resolver *Resolver) resolveHomeDirectory() string {
	resolver.initializationGuard.Do(func() {
		resolver.homeDirectory, resolver.homeDirectoryError = resolver.homeDirectoryProvider()
	})
	if resolver.homeDirectoryError != nil {
		return ""
	}
	return resolver.homeDirectory
}
