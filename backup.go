package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const backupTimestampLayout = "2006-01-02 15:04"

// BackupCache maps a parent directory path to the backup directory already
// found or created for it during the current run.
type BackupCache struct {
	lock sync.Mutex
	dirs map[string]MutableNode
}

func NewBackupCache() *BackupCache {
	return &BackupCache{dirs: make(map[string]MutableNode)}
}

func (c *BackupCache) Get(parentPath string) (MutableNode, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	dir, ok := c.dirs[parentPath]
	return dir, ok
}

func (c *BackupCache) Set(parentPath string, dir MutableNode) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, ok := c.dirs[parentPath]; !ok {
		c.dirs[parentPath] = dir
	}
}

// Archiver moves replaced or removed entries into
// <parent>/<backupDirectoryName>/<run timestamp>/. All moves run on a serial
// queue so siblings never race to create the same backup directory.
type Archiver struct {
	backupDirectoryName string
	backupName          string
	cache               *BackupCache
	queue               *TaskQueue
	logger              *log.Entry
}

func NewArchiver(backupDirectoryName string, startedAt time.Time) *Archiver {
	return &Archiver{
		backupDirectoryName: backupDirectoryName,
		backupName:          startedAt.Format(backupTimestampLayout),
		cache:               NewBackupCache(),
		queue:               NewTaskQueue("backup", 1),
		logger:              log.NewEntry(log.StandardLogger()),
	}
}

func (a *Archiver) BackupName() string {
	return a.backupName
}

func (a *Archiver) Archive(ctx context.Context, node MutableNode) error {
	return a.queue.Do(ctx, func() error {
		return a.moveToBackup(ctx, node)
	})
}

func (a *Archiver) moveToBackup(ctx context.Context, node MutableNode) error {
	parent := node.ParentDirectory()
	if parent == nil {
		return &PreconditionError{Op: "archive", Path: node.Path(), Reason: "has no parent directory"}
	}

	if backupDir, ok := a.cache.Get(parent.Path()); ok {
		_, moveErr := node.MoveTo(ctx, backupDir)
		return moveErr
	}

	backupBase, baseErr := findOrCreateDirectory(ctx, parent, a.backupDirectoryName)
	if baseErr != nil {
		return baseErr
	}
	backupDir, dirErr := findOrCreateDirectory(ctx, backupBase, a.backupName)
	if dirErr != nil {
		return dirErr
	}
	a.logger.Debug(fmt.Sprintf("Backup directory for %s is %s", parent.Path(), backupDir.Path()))
	a.cache.Set(parent.Path(), backupDir)

	_, moveErr := node.MoveTo(ctx, backupDir)
	return moveErr
}

func findOrCreateDirectory(ctx context.Context, dir MutableNode, name string) (MutableNode, error) {
	found, findErr := dir.Find(ctx, name)
	if findErr != nil {
		return nil, findErr
	}
	if found == nil {
		return dir.NewDirectory(ctx, name)
	}
	existing, ok := found.(MutableNode)
	if !ok || !found.IsDirectory() {
		return nil, &PreconditionError{Op: "archive", Path: found.Path(), Reason: "exists and is not a directory"}
	}
	return existing, nil
}

func (a *Archiver) Close() {
	a.queue.Close()
}
