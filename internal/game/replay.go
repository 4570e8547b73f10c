package game

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

const replayVersion = 1

// Replay is the ordered audit log of a finished instance, with a cursor to
// step through it.
type Replay struct {
	InstanceID   int64
	Status       Status
	Users        []string
	Entries      []PassedAction
	CurrentIndex int
	mu           sync.RWMutex
}

// NewReplay captures the audit log of an instance.
func NewReplay(inst *Instance) *Replay {
	entries := make([]PassedAction, len(inst.Actions.Previous))
	copy(entries, inst.Actions.Previous)
	return &Replay{
		InstanceID: inst.ID,
		Status:     inst.Status,
		Users:      append([]string(nil), inst.Users...),
		Entries:    entries,
	}
}

// Start resets the cursor to the first entry.
func (r *Replay) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.CurrentIndex = 0
}

// Next returns the entry under the cursor and advances it.
func (r *Replay) Next() *PassedAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex < len(r.Entries) {
		entry := &r.Entries[r.CurrentIndex]
		r.CurrentIndex++
		return entry
	}
	return nil
}

// Previous steps the cursor back and returns that entry.
func (r *Replay) Previous() *PassedAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.CurrentIndex > 0 {
		r.CurrentIndex--
		return &r.Entries[r.CurrentIndex]
	}
	return nil
}

// Skip moves the cursor by count entries, clamped to the log.
func (r *Replay) Skip(count int) *PassedAction {
	r.mu.Lock()
	defer r.mu.Unlock()

	newIndex := r.CurrentIndex + count
	if newIndex >= len(r.Entries) {
		newIndex = len(r.Entries) - 1
	}
	if newIndex < 0 {
		newIndex = 0
	}

	r.CurrentIndex = newIndex
	if r.CurrentIndex < len(r.Entries) {
		return &r.Entries[r.CurrentIndex]
	}
	return nil
}

// Size returns the number of entries.
func (r *Replay) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.Entries)
}

// SaveToFile writes the replay as a gzipped gob stream named <id>.replay.
// A file that could not be written completely is removed.
func (r *Replay) SaveToFile(directory string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	filename := replayFilename(directory, r.InstanceID)
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if err := r.writeTo(file); err != nil {
		file.Close()
		os.Remove(filename)
		return "", err
	}
	if err := file.Close(); err != nil {
		os.Remove(filename)
		return "", fmt.Errorf("failed to close file: %w", err)
	}
	return filename, nil
}

// writeTo encodes the metadata and entries and flushes the gzip stream.
func (r *Replay) writeTo(w io.Writer) error {
	gzipWriter := gzip.NewWriter(w)
	encoder := gob.NewEncoder(gzipWriter)

	metadata := replayMetadata{
		InstanceID: r.InstanceID,
		Status:     r.Status,
		Users:      r.Users,
		Timestamp:  time.Now(),
		Version:    replayVersion,
		EntryCount: len(r.Entries),
	}
	if err := encoder.Encode(&metadata); err != nil {
		gzipWriter.Close()
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	for i := range r.Entries {
		if err := encoder.Encode(&r.Entries[i]); err != nil {
			gzipWriter.Close()
			return fmt.Errorf("failed to encode entry %d: %w", i, err)
		}
	}

	if err := gzipWriter.Close(); err != nil {
		return fmt.Errorf("failed to flush replay: %w", err)
	}
	return nil
}

// LoadReplayFromFile reads a replay written by SaveToFile.
func LoadReplayFromFile(directory string, instanceID int64) (*Replay, error) {
	file, err := os.Open(replayFilename(directory, instanceID))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	gzipReader, err := gzip.NewReader(file)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gzipReader.Close()

	decoder := gob.NewDecoder(gzipReader)

	var metadata replayMetadata
	if err := decoder.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	if metadata.Version != replayVersion {
		return nil, fmt.Errorf("unsupported replay version: %d", metadata.Version)
	}

	replay := &Replay{
		InstanceID: metadata.InstanceID,
		Status:     metadata.Status,
		Users:      metadata.Users,
		Entries:    make([]PassedAction, 0, metadata.EntryCount),
	}
	for i := 0; i < metadata.EntryCount; i++ {
		var entry PassedAction
		if err := decoder.Decode(&entry); err != nil {
			return nil, fmt.Errorf("failed to decode entry %d: %w", i, err)
		}
		replay.Entries = append(replay.Entries, entry)
	}

	return replay, nil
}

func replayFilename(directory string, instanceID int64) string {
	return filepath.Join(directory, fmt.Sprintf("%d.replay", instanceID))
}

type replayMetadata struct {
	InstanceID int64
	Status     Status
	Users      []string
	Timestamp  time.Time
	Version    int
	EntryCount int
}

// Archiver writes the audit log of instances leaving the hot set. A zero
// directory disables it.
type Archiver struct {
	logger  *zap.Logger
	saveDir string
}

// NewArchiver creates an archiver writing into saveDir.
func NewArchiver(logger *zap.Logger, saveDir string) *Archiver {
	return &Archiver{logger: logger, saveDir: saveDir}
}

// Enabled reports whether archives are written.
func (a *Archiver) Enabled() bool {
	return a != nil && a.saveDir != ""
}

// Archive saves the replay of a finished instance.
func (a *Archiver) Archive(inst *Instance) error {
	if !a.Enabled() {
		return nil
	}
	replay := NewReplay(inst)
	filename, err := replay.SaveToFile(a.saveDir)
	if err != nil {
		return fmt.Errorf("failed to archive instance %d: %w", inst.ID, err)
	}

	if a.logger != nil {
		a.logger.Info("archived instance",
			zap.Int64("instance_id", inst.ID),
			zap.String("status", string(inst.Status)),
			zap.Int("entry_count", replay.Size()),
			zap.String("file", filename),
		)
	}
	return nil
}
