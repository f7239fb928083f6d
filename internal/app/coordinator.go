package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"savekeep/internal/config"
	"savekeep/internal/database"
	"savekeep/internal/encryption"
	"savekeep/internal/fs"
	"savekeep/internal/keep"
)

var (
	ErrNoSource          = errors.New("no source file selected")
	ErrNoBackupDir       = errors.New("no backup folder set")
	ErrNoBackup          = errors.New("no backup file selected")
	ErrNoTarget          = errors.New("no restore target selected")
	ErrSealNotConfigured = errors.New("seal keys not set up, run `savekeep seal init`")
	ErrNoPassphrase      = errors.New("backup is sealed and no passphrase was given")
	ErrClosed            = errors.New("coordinator is closed")
)

// subscriberBuffer is how many events a slow subscriber may fall behind
// before new events are dropped for it.
const subscriberBuffer = 64

// PassphraseFunc supplies the passphrase for unsealing, asked only when a
// sealed backup is restored.
type PassphraseFunc func() (string, error)

// Session is the coordinator's current selection of paths.
type Session struct {
	Source        string
	BackupDir     string
	Backup        string // backup chosen for restore
	RestoreTarget string
	Watching      bool
}

// Coordinator is the application layer between the user interfaces and the
// keep core. It owns the current path selection and the watch session, and
// turns every outcome into a keep.Event that is logged, journaled and sent
// to subscribers.
type Coordinator struct {
	cfg     *config.Config
	keeper  *keep.Keeper
	journal keep.Journal
	sealer  keep.Sealer
	logger  *slog.Logger
	clock   keep.Clock
	op      *Operation
	logFile *os.File
	started time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	session Session
	watch   *keep.WatchSession

	subMu  sync.Mutex
	subs   []chan keep.Event
	closed bool
}

// NewCoordinator creates a fully wired Coordinator from the given config.
// command identifies the CLI command being run (e.g. "backup", "ui") and args
// its main argument. Log lines also go to logOut when it is non-nil.
// The caller must call Close when done.
func NewCoordinator(cfg *config.Config, command, args string, logOut io.Writer) (*Coordinator, error) {
	journal, err := database.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	sealer, err := encryption.NewSealerFromConfig(cfg.Seal)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("creating sealer: %w", err)
	}

	runID := uuid.New().String()
	logger, logFile, err := newLogger(cfg.LogDir, runID, logOut)
	if err != nil {
		journal.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	clock := keep.RealClock{}
	keeper := keep.NewKeeper(fs.NewOSFilesystemManager(), &slogAdapter{l: logger}, clock, keep.UUIDGenerator{})

	c := newCoordinator(cfg, keeper, journal, sealer, logger, clock, NewOperation(runID, command, args))
	c.logFile = logFile
	return c, nil
}

func newCoordinator(cfg *config.Config, keeper *keep.Keeper, journal keep.Journal, sealer keep.Sealer, logger *slog.Logger, clock keep.Clock, op *Operation) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:     cfg,
		keeper:  keeper,
		journal: journal,
		sealer:  sealer,
		logger:  logger,
		clock:   clock,
		op:      op,
		started: clock.Now(),
		ctx:     ctx,
		cancel:  cancel,
	}

	c.session.Source = absPath(cfg.Source)
	c.session.BackupDir = absPath(cfg.BackupDir)
	c.session.RestoreTarget = absPath(cfg.RestoreTarget)
	if c.session.BackupDir == "" && c.session.Source != "" {
		c.session.BackupDir = DefaultBackupDir(c.session.Source)
	}
	if c.session.RestoreTarget == "" {
		c.session.RestoreTarget = c.session.Source
	}

	logger.Info("run started", "command", op.Command, "args", op.Args)
	return c
}

func absPath(p string) string {
	if p == "" {
		return ""
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// Keeper returns the core used by this coordinator.
func (c *Coordinator) Keeper() *keep.Keeper {
	return c.keeper
}

// WatchEnabled reports whether choosing a source should start watching it.
func (c *Coordinator) WatchEnabled() bool {
	return c.cfg.Watch
}

// Session returns a copy of the current selection.
func (c *Coordinator) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.session
	s.Watching = c.liveWatch() != nil
	return s
}

// ChooseSource selects a new source the way picking a file in the UI does:
// the source and restore target are set, a backup folder is derived when
// none is set, and watching starts if the config enables it.
func (c *Coordinator) ChooseSource(path string) error {
	c.SetSource(path)
	if !c.cfg.Watch || c.Watching() {
		return nil
	}
	_, err := c.StartWatch()
	return err
}

// SetSource sets the file to back up. The restore target follows the source,
// and a missing backup folder defaults to backup_history next to it. A
// running watch is restarted on the new source.
func (c *Coordinator) SetSource(path string) {
	path = absPath(path)

	c.mu.Lock()
	c.session.Source = path
	c.session.RestoreTarget = path
	if c.session.BackupDir == "" && path != "" {
		c.session.BackupDir = DefaultBackupDir(path)
	}
	w := c.liveWatch()
	restart := w != nil && w.Source != path
	c.mu.Unlock()

	c.logger.Info("source selected", "path", path)
	if restart {
		c.StopWatch()
		if _, err := c.StartWatch(); err != nil {
			c.logger.Warn("watch not restarted", "source", path, "error", err)
		}
	}
}

// SetBackupDir sets the folder backups are written to.
func (c *Coordinator) SetBackupDir(dir string) {
	dir = absPath(dir)
	c.mu.Lock()
	c.session.BackupDir = dir
	c.mu.Unlock()
	c.logger.Info("backup folder selected", "dir", dir)
}

// SetRestoreTarget sets the file a restore overwrites.
func (c *Coordinator) SetRestoreTarget(path string) {
	path = absPath(path)
	c.mu.Lock()
	c.session.RestoreTarget = path
	c.mu.Unlock()
	c.logger.Info("restore target selected", "path", path)
}

// SelectBackup chooses the backup to restore. When no restore target is set,
// the source file the backup was taken from is suggested if it exists.
func (c *Coordinator) SelectBackup(path string) {
	path = absPath(path)

	c.mu.Lock()
	c.session.Backup = path
	needTarget := c.session.RestoreTarget == ""
	c.mu.Unlock()

	if !needTarget {
		return
	}
	if target, ok := c.keeper.SuggestTarget(path); ok {
		c.mu.Lock()
		if c.session.RestoreTarget == "" {
			c.session.RestoreTarget = target
		}
		c.mu.Unlock()
		c.logger.Info("restore target suggested", "backup", path, "target", target)
	}
}

// BackupNow backs up the current source into the current backup folder.
func (c *Coordinator) BackupNow() (string, error) {
	s := c.Session()
	if s.Source == "" {
		return "", c.fail("backup", "", ErrNoSource)
	}
	if s.BackupDir == "" {
		s.BackupDir = DefaultBackupDir(s.Source)
		c.SetBackupDir(s.BackupDir)
	}

	dest, err := c.keeper.Backup(s.Source, s.BackupDir)
	if err != nil {
		return "", c.fail("backup", s.Source, err)
	}
	if dest == "" {
		return "", c.fail("backup", s.Source, &keep.OpError{Op: "backup", Path: s.Source, Kind: keep.ErrNotFound})
	}

	c.emit(keep.Event{Kind: keep.EventBackupCreated, Path: dest})
	return dest, nil
}

// StartWatch starts watching the current source. If a watch is already
// running it is returned unchanged.
func (c *Coordinator) StartWatch() (*keep.WatchSession, error) {
	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	if w := c.liveWatch(); w != nil {
		c.mu.Unlock()
		return w, nil
	}
	source := c.session.Source
	if source == "" {
		c.mu.Unlock()
		return nil, c.fail("watch", "", ErrNoSource)
	}
	if c.session.BackupDir == "" {
		c.session.BackupDir = DefaultBackupDir(source)
	}
	dir := c.session.BackupDir

	w, err := c.keeper.Watch(c.ctx, source, dir, c.emit)
	if err != nil {
		c.mu.Unlock()
		return nil, c.fail("watch", source, err)
	}
	c.watch = w
	c.mu.Unlock()

	c.emit(keep.Event{Kind: keep.EventWatchStarted, SessionID: w.ID, Path: source})
	return w, nil
}

// StopWatch stops the running watch, if any, without waiting for it.
func (c *Coordinator) StopWatch() {
	c.mu.Lock()
	w := c.watch
	c.watch = nil
	c.mu.Unlock()

	if w == nil {
		return
	}
	w.Stop()
	c.emit(keep.Event{Kind: keep.EventWatchStopped, SessionID: w.ID, Path: w.Source})
}

// ToggleWatch starts watching if stopped and stops if running. It returns
// whether a watch is running afterwards.
func (c *Coordinator) ToggleWatch() (bool, error) {
	if c.Watching() {
		c.StopWatch()
		return false, nil
	}
	if _, err := c.StartWatch(); err != nil {
		return false, err
	}
	return true, nil
}

// Watching reports whether a watch session is running.
func (c *Coordinator) Watching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveWatch() != nil
}

// liveWatch returns the running watch session, forgetting one that has
// already exited. c.mu must be held.
func (c *Coordinator) liveWatch() *keep.WatchSession {
	if c.watch == nil {
		return nil
	}
	select {
	case <-c.watch.Done():
		c.watch = nil
	default:
	}
	return c.watch
}

// Restore overwrites target with backup. A sealed backup is unlocked with the
// passphrase from passphrase, which is not called for plain backups. It
// returns false with an ErrNotFound error when the backup does not exist.
func (c *Coordinator) Restore(backup, target string, passphrase PassphraseFunc) (bool, error) {
	switch {
	case backup == "":
		return false, c.fail("restore", "", ErrNoBackup)
	case target == "":
		return false, c.fail("restore", backup, ErrNoTarget)
	}

	var ok bool
	var err error
	if keep.IsSealed(backup) {
		ok, err = c.restoreSealed(backup, target, passphrase)
	} else {
		ok, err = c.keeper.Restore(backup, target)
	}
	if err != nil {
		return false, c.fail("restore", target, err)
	}
	if !ok {
		return false, c.fail("restore", backup, &keep.OpError{Op: "restore", Path: backup, Kind: keep.ErrNotFound})
	}

	c.emit(keep.Event{Kind: keep.EventRestored, Path: target})
	return true, nil
}

func (c *Coordinator) restoreSealed(backup, target string, passphrase PassphraseFunc) (bool, error) {
	if !c.sealer.IsConfigured() {
		return false, ErrSealNotConfigured
	}
	if passphrase == nil {
		return false, ErrNoPassphrase
	}
	pass, err := passphrase()
	if err != nil {
		return false, fmt.Errorf("reading passphrase: %w", err)
	}
	u, err := c.sealer.Unlock(pass)
	if err != nil {
		return false, fmt.Errorf("unlocking seal key: %w", err)
	}
	return c.keeper.RestoreSealed(backup, target, u)
}

// RestoreSelected restores the selected backup over the selected target.
func (c *Coordinator) RestoreSelected(passphrase PassphraseFunc) (bool, error) {
	s := c.Session()
	return c.Restore(s.Backup, s.RestoreTarget, passphrase)
}

// Cleanup deletes every file in the current backup folder once confirm
// agrees. A declined cleanup returns keep.ErrDeclined and reports nothing.
func (c *Coordinator) Cleanup(confirm keep.ConfirmFunc) (int, error) {
	dir := c.Session().BackupDir
	if dir == "" {
		return 0, c.fail("cleanup", "", ErrNoBackupDir)
	}

	n, err := c.keeper.Cleanup(dir, confirm)
	if errors.Is(err, keep.ErrDeclined) {
		c.logger.Info("cleanup declined", "dir", dir)
		return 0, err
	}
	if err != nil {
		return n, c.fail("cleanup", dir, err)
	}

	c.emit(keep.Event{Kind: keep.EventCleanedUp, Path: dir, Count: n})
	return n, nil
}

// SetupSeal generates the seal key pair protected by passphrase.
func (c *Coordinator) SetupSeal(passphrase string) error {
	if err := c.sealer.Setup(passphrase); err != nil {
		return c.fail("seal", c.cfg.Seal.PrivateKeyPath, err)
	}
	c.logger.Info("seal keys created", "public", c.cfg.Seal.PublicKeyPath, "private", c.cfg.Seal.PrivateKeyPath)
	return nil
}

// Seal writes an encrypted copy of backup next to it.
func (c *Coordinator) Seal(backup string) (string, error) {
	if !c.sealer.IsConfigured() {
		return "", c.fail("seal", backup, ErrSealNotConfigured)
	}
	dest, err := c.keeper.Seal(absPath(backup), c.sealer)
	if err != nil {
		return "", c.fail("seal", backup, err)
	}
	c.emit(keep.Event{Kind: keep.EventSealed, Path: dest})
	return dest, nil
}

// Backups lists the current backup folder, newest first. A folder that does
// not exist yet has no backups.
func (c *Coordinator) Backups() ([]*keep.BackupRecord, error) {
	dir := c.Session().BackupDir
	if dir == "" {
		return nil, ErrNoBackupDir
	}
	records, err := c.keeper.ListBackups(dir)
	if errors.Is(err, keep.ErrNotFound) {
		return nil, nil
	}
	return records, err
}

// Status compares the current source with its newest backup.
func (c *Coordinator) Status() (*keep.SourceStatus, error) {
	s := c.Session()
	if s.Source == "" {
		return nil, ErrNoSource
	}
	return c.keeper.Status(s.Source, s.BackupDir)
}

// History returns the most recent journal entries, newest first.
func (c *Coordinator) History(limit int) ([]*keep.JournalEntry, error) {
	return c.journal.List(limit)
}

// FollowBackups calls fn for each new backup that appears in the current
// backup folder until ctx is cancelled.
func (c *Coordinator) FollowBackups(ctx context.Context, fn func(*keep.BackupRecord)) error {
	dir := c.Session().BackupDir
	if dir == "" {
		return ErrNoBackupDir
	}
	return fs.Follow(ctx, dir, func(path string) {
		rec, ok := keep.ParseBackupName(filepath.Base(path))
		if !ok {
			return
		}
		rec.Path = path
		if info, err := os.Stat(path); err == nil {
			rec.Size = info.Size()
		}
		fn(rec)
	})
}

// Subscribe returns a channel that receives every event from now on. The
// channel is closed by Close. Events are dropped for a subscriber whose
// buffer is full.
func (c *Coordinator) Subscribe() <-chan keep.Event {
	ch := make(chan keep.Event, subscriberBuffer)
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// fail reports err as an error event for op and returns it.
func (c *Coordinator) fail(op, path string, err error) error {
	c.emit(keep.Event{Kind: keep.EventError, Op: op, Path: path, Err: err})
	return err
}

// emit stamps, logs, journals and fans out an event. It is also the sink of
// the watch session and runs on the watch goroutine for auto-backups.
func (c *Coordinator) emit(e keep.Event) {
	if e.Time.IsZero() {
		e.Time = c.clock.Now()
	}

	if e.Failed() {
		c.op.Fail()
		c.logger.Error(e.Status(), "kind", string(e.Kind), "path", e.Path, "session", e.SessionID)
	} else {
		c.logger.Info(e.Message(), "kind", string(e.Kind), "session", e.SessionID)
	}

	if err := c.journal.Record(keep.EntryFromEvent(c.op.RunID, e)); err != nil {
		c.logger.Warn("journal write failed", "error", err)
	}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.closed {
		return
	}
	for _, ch := range c.subs {
		select {
		case ch <- e:
		default:
			c.logger.Debug("subscriber behind, event dropped", "kind", string(e.Kind))
		}
	}
}

// Close stops the watch, waiting at most one poll interval for it to exit,
// records the run in the journal and releases every resource.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	w := c.watch
	c.watch = nil
	c.mu.Unlock()

	c.cancel()
	if w != nil {
		ctx, cancel := context.WithTimeout(context.Background(), keep.PollInterval)
		if err := w.Wait(ctx); err != nil {
			c.logger.Warn("watch did not stop in time", "session", w.ID)
		}
		cancel()
	}

	var firstErr error
	if c.op.Journaled() {
		if err := c.journal.Record(c.op.Entry(c.clock.Now())); err != nil {
			firstErr = fmt.Errorf("recording run: %w", err)
		}
	}
	c.logger.Info("run finished", "command", c.op.Command, "status", c.op.Status(), "duration", c.clock.Now().Sub(c.started).Round(time.Millisecond))

	if err := c.journal.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing journal: %w", err)
	}

	c.subMu.Lock()
	if !c.closed {
		c.closed = true
		for _, ch := range c.subs {
			close(ch)
		}
		c.subs = nil
	}
	c.subMu.Unlock()

	if c.logFile != nil {
		c.logFile.Close()
	}
	return firstErr
}
