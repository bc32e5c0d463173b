// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package slugfs mounts a slug as a read-only FUSE filesystem.
//
// Slug filenames are slash-separated paths; their directories are
// synthesized when the filesystem is mounted. Every file is served
// from memory with mode 0444 and the kernel page cache enabled, since
// slug contents never change. Any attempt to modify the tree fails
// with EROFS.
package slugfs

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	gofuse "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/bureau-foundation/slug/lib/slug"
)

// Options configures the FUSE mount.
type Options struct {
	// Mountpoint is the directory where the filesystem is mounted.
	// It is created if it does not exist.
	Mountpoint string

	// Slug is the bundle to expose. It must not be modified while
	// mounted.
	Slug *slug.Slug

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool

	// Logger receives diagnostic messages. If nil, a no-op logger
	// is used.
	Logger *slog.Logger
}

// Mount mounts the slug at the configured mountpoint. The caller must
// call Unmount on the returned Server when done.
func Mount(options Options) (*fuse.Server, error) {
	if options.Mountpoint == "" {
		return nil, fmt.Errorf("mountpoint is required")
	}
	if options.Slug == nil {
		return nil, fmt.Errorf("slug is required")
	}
	if options.Logger == nil {
		options.Logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(options.Mountpoint, 0o755); err != nil {
		return nil, fmt.Errorf("creating mountpoint %s: %w", options.Mountpoint, err)
	}

	tree, skipped := buildTree(options.Slug.Filenames())
	for _, filename := range skipped {
		options.Logger.Warn("slug filename cannot be mounted", "filename", filename)
	}

	root := &rootNode{tree: tree, source: options.Slug}

	timeout := time.Hour
	server, err := gofuse.Mount(options.Mountpoint, root, &gofuse.Options{
		EntryTimeout:    &timeout,
		AttrTimeout:     &timeout,
		NegativeTimeout: &timeout,
		MountOptions: fuse.MountOptions{
			FsName:     "ethers-slug",
			Name:       "slug",
			AllowOther: options.AllowOther,
			Options:    []string{"ro"},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("mounting FUSE filesystem at %s: %w", options.Mountpoint, err)
	}

	options.Logger.Info("slug mounted",
		"mountpoint", options.Mountpoint,
		"files", options.Slug.Len()-len(skipped),
	)
	return server, nil
}

// dirNode is a read-only directory. Its children are added when the
// tree is populated; lookup and listing use the Inode's child table.
type dirNode struct {
	gofuse.Inode
}

var _ gofuse.NodeGetattrer = (*dirNode)(nil)
var _ gofuse.NodeCreater = (*dirNode)(nil)
var _ gofuse.NodeMkdirer = (*dirNode)(nil)
var _ gofuse.NodeUnlinker = (*dirNode)(nil)
var _ gofuse.NodeRmdirer = (*dirNode)(nil)
var _ gofuse.NodeRenamer = (*dirNode)(nil)
var _ gofuse.NodeSetattrer = (*dirNode)(nil)

func (d *dirNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o555
	return 0
}

func (d *dirNode) Setattr(context.Context, gofuse.FileHandle, *fuse.SetAttrIn, *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Create(context.Context, string, uint32, uint32, *fuse.EntryOut) (*gofuse.Inode, gofuse.FileHandle, uint32, syscall.Errno) {
	return nil, nil, 0, syscall.EROFS
}

func (d *dirNode) Mkdir(context.Context, string, uint32, *fuse.EntryOut) (*gofuse.Inode, syscall.Errno) {
	return nil, syscall.EROFS
}

func (d *dirNode) Unlink(context.Context, string) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Rmdir(context.Context, string) syscall.Errno {
	return syscall.EROFS
}

func (d *dirNode) Rename(context.Context, string, gofuse.InodeEmbedder, string, uint32) syscall.Errno {
	return syscall.EROFS
}

// rootNode populates the whole tree once, when the mount starts.
type rootNode struct {
	dirNode
	tree   *directory
	source *slug.Slug
}

var _ gofuse.NodeOnAdder = (*rootNode)(nil)

func (r *rootNode) OnAdd(ctx context.Context) {
	r.populate(ctx, &r.Inode, r.tree)
}

func (r *rootNode) populate(ctx context.Context, parent *gofuse.Inode, dir *directory) {
	for name, child := range dir.dirs {
		inode := parent.NewPersistentInode(ctx, &dirNode{}, gofuse.StableAttr{Mode: syscall.S_IFDIR})
		parent.AddChild(name, inode, true)
		r.populate(ctx, inode, child)
	}
	for name, filename := range dir.files {
		node := &fileNode{data: r.source.Data(filename)}
		inode := parent.NewPersistentInode(ctx, node, gofuse.StableAttr{Mode: syscall.S_IFREG})
		parent.AddChild(name, inode, true)
	}
}

// fileNode serves one slug file from memory.
type fileNode struct {
	gofuse.Inode
	data []byte
}

var _ gofuse.NodeGetattrer = (*fileNode)(nil)
var _ gofuse.NodeSetattrer = (*fileNode)(nil)
var _ gofuse.NodeOpener = (*fileNode)(nil)
var _ gofuse.NodeReader = (*fileNode)(nil)

func (f *fileNode) Getattr(_ context.Context, _ gofuse.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o444
	out.Size = uint64(len(f.data))
	out.Blocks = (out.Size + 511) / 512
	return 0
}

func (f *fileNode) Setattr(context.Context, gofuse.FileHandle, *fuse.SetAttrIn, *fuse.AttrOut) syscall.Errno {
	return syscall.EROFS
}

func (f *fileNode) Open(_ context.Context, flags uint32) (gofuse.FileHandle, uint32, syscall.Errno) {
	if flags&(syscall.O_WRONLY|syscall.O_RDWR|syscall.O_TRUNC|syscall.O_APPEND) != 0 {
		return nil, 0, syscall.EROFS
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (f *fileNode) Read(_ context.Context, _ gofuse.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	if off >= int64(len(f.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(f.data)) {
		end = int64(len(f.data))
	}
	return fuse.ReadResultData(f.data[off:end]), 0
}
