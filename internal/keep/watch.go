package keep

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// WatchState is the state of a watch session.
type WatchState int32

const (
	WatchStopped WatchState = iota
	WatchRunning
)

func (s WatchState) String() string {
	if s == WatchRunning {
		return "running"
	}
	return "stopped"
}

// WatchSession is one background polling activity, from Watch to Stop.
// The source and backup directory are fixed when the session starts.
type WatchSession struct {
	ID        string
	Source    string
	BackupDir string

	keeper *Keeper
	sink   EventSink
	cancel context.CancelFunc
	done   chan struct{}
	state  atomic.Int32
	last   Signature
}

// Watch starts polling source every PollInterval and backs it up into
// backupDir whenever its signature changes.
//
// If source does not exist, Watch returns ErrNotFound and no session is
// started. Once running, a missing source only skips that poll, and backup
// failures are logged and sent to sink but never stop the loop. The session
// ends when Stop is called or ctx is cancelled.
func (k *Keeper) Watch(ctx context.Context, source, backupDir string, sink EventSink) (*WatchSession, error) {
	sig, err := k.Signature(source)
	if err != nil {
		return nil, err
	}
	if sink == nil {
		sink = func(Event) {}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &WatchSession{
		ID:        k.idgen.New(),
		Source:    source,
		BackupDir: backupDir,
		keeper:    k,
		sink:      sink,
		cancel:    cancel,
		done:      make(chan struct{}),
		last:      sig,
	}
	s.state.Store(int32(WatchRunning))

	k.logger.Info("watch started", "session", s.ID, "source", source, "dir", backupDir, "signature", sig.String())
	go s.run(ctx)
	return s, nil
}

// State returns the current state of the session.
func (s *WatchSession) State() WatchState {
	return WatchState(s.state.Load())
}

// Stop signals the loop to exit and returns immediately. The loop observes
// the signal within one poll interval. Calling Stop more than once is safe.
func (s *WatchSession) Stop() {
	s.cancel()
}

// Done is closed once the loop has exited.
func (s *WatchSession) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the loop has exited or ctx is done, whichever is first.
func (s *WatchSession) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WatchSession) run(ctx context.Context) {
	defer close(s.done)
	defer s.state.Store(int32(WatchStopped))

	ticker := time.NewTicker(s.keeper.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.keeper.logger.Info("watch stopped", "session", s.ID)
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			s.keeper.logger.Info("watch stopped", "session", s.ID)
			return
		}
		s.poll()
	}
}

// poll runs one tick. Every failure, including a panic, is logged and
// reported as an event so the loop keeps going.
func (s *WatchSession) poll() {
	k := s.keeper
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("poll panicked: %v", r)
			k.logger.Error("watch poll failed", "session", s.ID, "error", err)
			s.emit(Event{Kind: EventError, Op: "watch", Path: s.Source, Err: err})
		}
	}()

	info, err := k.fsmgr.Stat(s.Source)
	if err != nil {
		if isNotExist(err) {
			k.logger.Debug("source missing, skipping poll", "session", s.ID, "path", s.Source)
			return
		}
		k.logger.Warn("stat failed", "session", s.ID, "path", s.Source, "error", err)
		s.emit(Event{Kind: EventError, Op: "watch", Path: s.Source, Err: newOpError("signature", s.Source, ErrNotFound, err)})
		return
	}
	if !info.Mode().IsRegular() {
		k.logger.Debug("source is not a regular file, skipping poll", "session", s.ID, "path", s.Source)
		return
	}

	sig := SignatureOf(info)
	if sig.Equal(s.last) {
		return
	}
	k.logger.Debug("change detected", "session", s.ID, "old", s.last.String(), "new", sig.String())
	s.last = sig

	dest, err := k.Backup(s.Source, s.BackupDir)
	if err != nil {
		k.logger.Error("auto-backup failed", "session", s.ID, "error", err)
		s.emit(Event{Kind: EventError, Op: "auto-backup", Path: s.Source, Err: err})
		return
	}
	if dest == "" {
		return
	}
	s.emit(Event{Kind: EventAutoBackup, Path: dest})
}

func (s *WatchSession) emit(e Event) {
	e.Time = s.keeper.clock.Now()
	e.SessionID = s.ID
	defer func() {
		if r := recover(); r != nil {
			s.keeper.logger.Error("event sink panicked", "session", s.ID, "panic", r)
		}
	}()
	s.sink(e)
}
