package main

import (
	"context"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
)

// LocalNode is an entry of the local tree. Every node points at the root,
// which owns the filesystem handle and the base directory.
type LocalNode struct {
	nodeInfo
	parent *LocalNode
	root   *LocalNode

	fs   billy.Filesystem
	base string
}

func NewLocalRoot(base string) *LocalNode {
	return NewLocalRootFS(osfs.New(base), base)
}

func NewLocalRootFS(fs billy.Filesystem, base string) *LocalNode {
	root := &LocalNode{
		nodeInfo: nodeInfo{isDirectory: true},
		fs:       fs,
		base:     base,
	}
	root.root = root
	return root
}

func (n *LocalNode) Parent() *LocalNode {
	return n.parent
}

// LocalPath is the path of the node on the host filesystem.
func (n *LocalNode) LocalPath() string {
	return filepath.Join(n.root.base, filepath.FromSlash(n.path))
}

func (n *LocalNode) fsPath() string {
	if n.path == "" {
		return "."
	}
	return n.path
}

// List scans the directory and stats every entry, following symlinks.
func (n *LocalNode) List(ctx context.Context) (map[string]Node, error) {
	if !n.isDirectory {
		return nil, &PreconditionError{Op: "list", Path: n.displayPath(), Reason: "not a directory"}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	fs := n.root.fs
	infos, readErr := fs.ReadDir(n.fsPath())
	if readErr != nil {
		return nil, &ListingError{Path: n.displayPath(), Err: &FileSystemError{Op: "readdir", Path: n.LocalPath(), Err: readErr}}
	}

	children := make(map[string]Node, len(infos))
	for _, info := range infos {
		childPath := joinPath(n.path, info.Name())
		stat, statErr := fs.Stat(childPath)
		if statErr != nil {
			return nil, &ListingError{Path: n.displayPath(), Err: &FileSystemError{Op: "stat", Path: filepath.Join(n.LocalPath(), info.Name()), Err: statErr}}
		}
		child := &LocalNode{
			nodeInfo: newNodeInfo(childPath, stat.ModTime(), stat.Size(), stat.IsDir()),
			parent:   n,
			root:     n.root,
		}
		children[child.name] = child
	}

	return children, nil
}

func (n *LocalNode) Find(ctx context.Context, relativePath string) (Node, error) {
	return findNode(ctx, n, relativePath)
}

func (n *LocalNode) Stat() (os.FileInfo, error) {
	return n.root.fs.Stat(n.fsPath())
}

func (n *LocalNode) Open() (SourceReader, error) {
	if n.isDirectory {
		return nil, &PreconditionError{Op: "open", Path: n.displayPath(), Reason: "is a directory"}
	}
	return n.root.fs.Open(n.path)
}
