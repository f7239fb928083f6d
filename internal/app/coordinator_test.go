package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"savekeep/internal/config"
	"savekeep/internal/encryption"
	"savekeep/internal/fs"
	"savekeep/internal/keep"
	"savekeep/internal/testutil"
)

const (
	testSource = "/saves/slot1.sav"
	testDir    = "/saves/backup_history"
)

// syncBuffer is a bytes.Buffer safe for the watch goroutine and the test to share.
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

type coordFixture struct {
	coord   *Coordinator
	fsmgr   *testutil.MockFilesystemManager
	clock   *testutil.StubClock
	journal keep.Journal
	sealer  *encryption.TestSealer
	logs    *syncBuffer
}

func newCoordFixture(t *testing.T, cfg *config.Config, command string) *coordFixture {
	t.Helper()
	fsmgr := testutil.NewMockFilesystemManager()
	clock := testutil.FixedClock()
	journal := testutil.NewTestJournal(t)
	sealer := encryption.NewTestSealer()
	logs := &syncBuffer{}
	logger := slog.New(newLogHandler(logs, "run-test"))

	keeper := keep.NewKeeper(fsmgr, &slogAdapter{l: logger}, clock, testutil.NewStubIDGenerator())
	coord := newCoordinator(cfg, keeper, journal, sealer, logger, clock, NewOperation("run-test", command, ""))
	t.Cleanup(func() { coord.Close() })

	return &coordFixture{coord: coord, fsmgr: fsmgr, clock: clock, journal: journal, sealer: sealer, logs: logs}
}

func manualConfig() *config.Config {
	cfg := config.NewConfig("/base")
	cfg.Watch = false
	return cfg
}

func nextEvent(t *testing.T, ch <-chan keep.Event) keep.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
		return keep.Event{}
	}
}

func TestNewCoordinator_SessionFromConfig(t *testing.T) {
	t.Run("backup dir and target default from source", func(t *testing.T) {
		cfg := manualConfig()
		cfg.Source = testSource
		f := newCoordFixture(t, cfg, "ui")

		s := f.coord.Session()
		if s.Source != testSource {
			t.Errorf("Source = %q, want %q", s.Source, testSource)
		}
		if s.BackupDir != testDir {
			t.Errorf("BackupDir = %q, want %q", s.BackupDir, testDir)
		}
		if s.RestoreTarget != testSource {
			t.Errorf("RestoreTarget = %q, want %q", s.RestoreTarget, testSource)
		}
		if s.Watching {
			t.Error("Watching = true before any watch started")
		}
	})

	t.Run("explicit values are kept", func(t *testing.T) {
		cfg := manualConfig()
		cfg.Source = testSource
		cfg.BackupDir = "/elsewhere"
		cfg.RestoreTarget = "/saves/slot2.sav"
		f := newCoordFixture(t, cfg, "ui")

		s := f.coord.Session()
		if s.BackupDir != "/elsewhere" || s.RestoreTarget != "/saves/slot2.sav" {
			t.Errorf("Session() = %+v", s)
		}
	})
}

func TestCoordinator_SetSource(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "ui")

	f.coord.SetSource(testSource)
	s := f.coord.Session()
	if s.RestoreTarget != testSource {
		t.Errorf("RestoreTarget = %q, want %q", s.RestoreTarget, testSource)
	}
	if s.BackupDir != testDir {
		t.Errorf("BackupDir = %q, want %q", s.BackupDir, testDir)
	}

	// A chosen backup folder survives a new source.
	f.coord.SetBackupDir("/custom")
	f.coord.SetSource("/saves/slot2.sav")
	if got := f.coord.Session().BackupDir; got != "/custom" {
		t.Errorf("BackupDir = %q, want %q", got, "/custom")
	}
}

func TestCoordinator_ChooseSource(t *testing.T) {
	t.Run("starts watching when enabled", func(t *testing.T) {
		cfg := manualConfig()
		cfg.Watch = true
		f := newCoordFixture(t, cfg, "ui")
		f.fsmgr.AddFile(testSource, []byte("save"))

		if err := f.coord.ChooseSource(testSource); err != nil {
			t.Fatalf("ChooseSource() error = %v", err)
		}
		if !f.coord.Watching() {
			t.Error("Watching() = false, want true")
		}
	})

	t.Run("does not watch when disabled", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "ui")
		f.fsmgr.AddFile(testSource, []byte("save"))

		if err := f.coord.ChooseSource(testSource); err != nil {
			t.Fatalf("ChooseSource() error = %v", err)
		}
		if f.coord.Watching() {
			t.Error("Watching() = true, want false")
		}
	})

	t.Run("missing source reports not found", func(t *testing.T) {
		cfg := manualConfig()
		cfg.Watch = true
		f := newCoordFixture(t, cfg, "ui")

		err := f.coord.ChooseSource(testSource)
		if !errors.Is(err, keep.ErrNotFound) {
			t.Errorf("ChooseSource() error = %v, want ErrNotFound", err)
		}
		if got := f.coord.Session().Source; got != testSource {
			t.Errorf("Source = %q, want it set even when watching fails", got)
		}
	})
}

func TestCoordinator_SelectBackup(t *testing.T) {
	backup := filepath.Join(testDir, "slot1_20240115_103000.sav")

	t.Run("suggests target when none set", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "ui")
		f.fsmgr.AddFile(testSource, []byte("save"))
		f.fsmgr.AddFile(backup, []byte("old"))

		f.coord.SelectBackup(backup)
		s := f.coord.Session()
		if s.Backup != backup {
			t.Errorf("Backup = %q, want %q", s.Backup, backup)
		}
		if s.RestoreTarget != testSource {
			t.Errorf("RestoreTarget = %q, want %q", s.RestoreTarget, testSource)
		}
	})

	t.Run("keeps an existing target", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "ui")
		f.fsmgr.AddFile(testSource, []byte("save"))
		f.fsmgr.AddFile(backup, []byte("old"))
		f.coord.SetRestoreTarget("/other/slot.sav")

		f.coord.SelectBackup(backup)
		if got := f.coord.Session().RestoreTarget; got != "/other/slot.sav" {
			t.Errorf("RestoreTarget = %q, want %q", got, "/other/slot.sav")
		}
	})
}

func TestCoordinator_BackupNow(t *testing.T) {
	t.Run("creates backup and reports it", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "backup")
		f.fsmgr.AddFile(testSource, []byte("progress"))
		f.coord.SetSource(testSource)
		events := f.coord.Subscribe()

		dest, err := f.coord.BackupNow()
		if err != nil {
			t.Fatalf("BackupNow() error = %v", err)
		}
		want := filepath.Join(testDir, "slot1_20240115_103000.sav")
		if dest != want {
			t.Errorf("BackupNow() = %q, want %q", dest, want)
		}

		e := nextEvent(t, events)
		if e.Kind != keep.EventBackupCreated || e.Status() != "Backup created: slot1_20240115_103000.sav" {
			t.Errorf("event = %+v (%q)", e, e.Status())
		}
		if !e.Time.Equal(f.clock.Now()) {
			t.Errorf("event time = %v, want clock time", e.Time)
		}

		entries, err := f.coord.History(0)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(entries) != 1 || entries[0].Kind != "backup" || entries[0].Status != "success" {
			t.Errorf("History() = %+v", entries)
		}
	})

	t.Run("no source selected", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "backup")
		events := f.coord.Subscribe()

		if _, err := f.coord.BackupNow(); !errors.Is(err, ErrNoSource) {
			t.Errorf("BackupNow() error = %v, want ErrNoSource", err)
		}
		if e := nextEvent(t, events); !e.Failed() || e.Op != "backup" {
			t.Errorf("event = %+v, want backup error", e)
		}
		if f.coord.op.Status() != "error" {
			t.Errorf("run status = %q, want error", f.coord.op.Status())
		}
	})

	t.Run("missing source file", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "backup")
		f.coord.SetSource(testSource)

		_, err := f.coord.BackupNow()
		if !errors.Is(err, keep.ErrNotFound) {
			t.Errorf("BackupNow() error = %v, want ErrNotFound", err)
		}
		if f.fsmgr.Exists(testDir) {
			t.Error("backup dir created for a missing source")
		}
	})
}

func TestCoordinator_Watch(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "watch")
	f.fsmgr.AddFile(testSource, []byte("save"))
	f.coord.SetSource(testSource)
	events := f.coord.Subscribe()

	w, err := f.coord.StartWatch()
	if err != nil {
		t.Fatalf("StartWatch() error = %v", err)
	}
	if e := nextEvent(t, events); e.Kind != keep.EventWatchStarted || e.SessionID != w.ID {
		t.Errorf("event = %+v, want watch-start for %s", e, w.ID)
	}

	again, err := f.coord.StartWatch()
	if err != nil || again != w {
		t.Errorf("second StartWatch() = (%v, %v), want the running session", again, err)
	}

	watching, err := f.coord.ToggleWatch()
	if err != nil || watching {
		t.Fatalf("ToggleWatch() = (%v, %v), want (false, nil)", watching, err)
	}
	if e := nextEvent(t, events); e.Kind != keep.EventWatchStopped {
		t.Errorf("event = %+v, want watch-stop", e)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Wait(ctx); err != nil {
		t.Errorf("watch did not exit after stop: %v", err)
	}

	watching, err = f.coord.ToggleWatch()
	if err != nil || !watching {
		t.Errorf("ToggleWatch() = (%v, %v), want (true, nil)", watching, err)
	}
}

func TestCoordinator_WatchAfterExit(t *testing.T) {
	t.Run("exited session is not reported as watching", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "watch")
		f.fsmgr.AddFile(testSource, []byte("save"))
		f.coord.SetSource(testSource)

		w, err := f.coord.StartWatch()
		if err != nil {
			t.Fatalf("StartWatch() error = %v", err)
		}
		f.coord.cancel()
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := w.Wait(ctx); err != nil {
			t.Fatalf("watch did not exit: %v", err)
		}

		if f.coord.Watching() {
			t.Error("Watching() = true for an exited session")
		}
		if f.coord.Session().Watching {
			t.Error("Session().Watching = true for an exited session")
		}
	})

	t.Run("start after close", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "watch")
		f.fsmgr.AddFile(testSource, []byte("save"))
		f.coord.SetSource(testSource)
		f.coord.Close()

		if _, err := f.coord.StartWatch(); !errors.Is(err, ErrClosed) {
			t.Errorf("StartWatch() error = %v, want ErrClosed", err)
		}
		if f.coord.Watching() {
			t.Error("Watching() = true after Close")
		}
	})
}

func TestCoordinator_SetSourceRestartsWatch(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "ui")
	f.fsmgr.AddFile(testSource, []byte("a"))
	f.fsmgr.AddFile("/saves/slot2.sav", []byte("b"))
	f.coord.SetSource(testSource)

	first, err := f.coord.StartWatch()
	if err != nil {
		t.Fatalf("StartWatch() error = %v", err)
	}

	f.coord.SetSource("/saves/slot2.sav")

	second, err := f.coord.StartWatch()
	if err != nil {
		t.Fatalf("StartWatch() error = %v", err)
	}
	if second == first || second.Source != "/saves/slot2.sav" {
		t.Errorf("watch session = %+v, want a new session on the new source", second)
	}
	if first.State() == keep.WatchRunning {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := first.Wait(ctx); err != nil {
			t.Errorf("old session still running: %v", err)
		}
	}
}

func TestCoordinator_Restore(t *testing.T) {
	backup := filepath.Join(testDir, "slot1_20240115_103000.sav")

	t.Run("plain backup", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		f.fsmgr.AddFile(backup, []byte("old"))
		f.fsmgr.AddFile(testSource, []byte("broken"))
		events := f.coord.Subscribe()

		called := false
		ok, err := f.coord.Restore(backup, testSource, func() (string, error) {
			called = true
			return "", nil
		})
		if err != nil || !ok {
			t.Fatalf("Restore() = (%v, %v), want (true, nil)", ok, err)
		}
		if called {
			t.Error("passphrase asked for a plain backup")
		}
		got, _ := f.fsmgr.File(testSource)
		if string(got.Content) != "old" {
			t.Errorf("target = %q, want %q", got.Content, "old")
		}
		if e := nextEvent(t, events); e.Status() != "Restored: "+testSource {
			t.Errorf("status = %q", e.Status())
		}
	})

	t.Run("missing backup", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		f.fsmgr.AddFile(testSource, []byte("keep me"))

		ok, err := f.coord.Restore(backup, testSource, nil)
		if ok || !errors.Is(err, keep.ErrNotFound) {
			t.Errorf("Restore() = (%v, %v), want (false, ErrNotFound)", ok, err)
		}
		got, _ := f.fsmgr.File(testSource)
		if string(got.Content) != "keep me" {
			t.Error("target modified by failed restore")
		}
	})

	t.Run("requires backup and target", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		if _, err := f.coord.Restore("", testSource, nil); !errors.Is(err, ErrNoBackup) {
			t.Errorf("Restore() error = %v, want ErrNoBackup", err)
		}
		if _, err := f.coord.Restore(backup, "", nil); !errors.Is(err, ErrNoTarget) {
			t.Errorf("Restore() error = %v, want ErrNoTarget", err)
		}
	})

	t.Run("sealed backup", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		f.fsmgr.AddFile(backup, []byte("secret progress"))
		if err := f.coord.SetupSeal("pw"); err != nil {
			t.Fatalf("SetupSeal() error = %v", err)
		}
		sealed, err := f.coord.Seal(backup)
		if err != nil {
			t.Fatalf("Seal() error = %v", err)
		}

		if _, err := f.coord.Restore(sealed, testSource, func() (string, error) { return "wrong", nil }); err == nil {
			t.Error("Restore() with wrong passphrase succeeded")
		}
		if f.fsmgr.Exists(testSource) {
			t.Error("target written with wrong passphrase")
		}

		ok, err := f.coord.Restore(sealed, testSource, func() (string, error) { return "pw", nil })
		if err != nil || !ok {
			t.Fatalf("Restore() = (%v, %v), want (true, nil)", ok, err)
		}
		got, _ := f.fsmgr.File(testSource)
		if string(got.Content) != "secret progress" {
			t.Errorf("target = %q, want %q", got.Content, "secret progress")
		}
	})

	t.Run("sealed backup without keys", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		sealed := backup + keep.SealedExt
		f.fsmgr.AddFile(sealed, []byte("x"))

		if _, err := f.coord.Restore(sealed, testSource, nil); !errors.Is(err, ErrSealNotConfigured) {
			t.Errorf("Restore() error = %v, want ErrSealNotConfigured", err)
		}
	})

	t.Run("restore selected", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "restore")
		f.fsmgr.AddFile(testSource, []byte("now"))
		f.fsmgr.AddFile(backup, []byte("then"))
		f.coord.SetSource(testSource)
		f.coord.SelectBackup(backup)

		ok, err := f.coord.RestoreSelected(nil)
		if err != nil || !ok {
			t.Fatalf("RestoreSelected() = (%v, %v)", ok, err)
		}
		got, _ := f.fsmgr.File(testSource)
		if string(got.Content) != "then" {
			t.Errorf("target = %q, want %q", got.Content, "then")
		}
	})
}

func TestCoordinator_Cleanup(t *testing.T) {
	yes := func(string, int) bool { return true }
	no := func(string, int) bool { return false }

	t.Run("removes files after confirmation", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "cleanup")
		f.fsmgr.AddFile(filepath.Join(testDir, "slot1_20240115_103000.sav"), []byte("a"))
		f.fsmgr.AddFile(filepath.Join(testDir, "notes.txt"), []byte("b"))
		f.coord.SetBackupDir(testDir)
		events := f.coord.Subscribe()

		n, err := f.coord.Cleanup(yes)
		if err != nil || n != 2 {
			t.Fatalf("Cleanup() = (%d, %v), want (2, nil)", n, err)
		}
		if e := nextEvent(t, events); e.Status() != "Cleaned up 2 file(s) in backup folder." {
			t.Errorf("status = %q", e.Status())
		}
	})

	t.Run("declined reports nothing", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "cleanup")
		f.fsmgr.AddFile(filepath.Join(testDir, "slot1_20240115_103000.sav"), []byte("a"))
		f.coord.SetBackupDir(testDir)
		events := f.coord.Subscribe()

		n, err := f.coord.Cleanup(no)
		if n != 0 || !errors.Is(err, keep.ErrDeclined) {
			t.Errorf("Cleanup() = (%d, %v), want (0, ErrDeclined)", n, err)
		}
		select {
		case e := <-events:
			t.Errorf("unexpected event %+v", e)
		default:
		}
		if f.coord.op.Status() != "success" {
			t.Error("declined cleanup marked the run failed")
		}
	})

	t.Run("empty folder", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "cleanup")
		f.fsmgr.AddDirectory(testDir)
		f.coord.SetBackupDir(testDir)
		events := f.coord.Subscribe()

		n, err := f.coord.Cleanup(no)
		if err != nil || n != 0 {
			t.Fatalf("Cleanup() = (%d, %v), want (0, nil)", n, err)
		}
		if e := nextEvent(t, events); e.Status() != "Backup folder is already empty." {
			t.Errorf("status = %q", e.Status())
		}
	})

	t.Run("no folder selected", func(t *testing.T) {
		f := newCoordFixture(t, manualConfig(), "cleanup")
		if _, err := f.coord.Cleanup(yes); !errors.Is(err, ErrNoBackupDir) {
			t.Errorf("Cleanup() error = %v, want ErrNoBackupDir", err)
		}
	})
}

func TestCoordinator_BackupsAndStatus(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "status")
	f.coord.SetSource(testSource)

	records, err := f.coord.Backups()
	if err != nil || len(records) != 0 {
		t.Errorf("Backups() on missing folder = (%v, %v), want empty", records, err)
	}

	f.fsmgr.AddFile(testSource, []byte("v1"))
	if _, err := f.coord.BackupNow(); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Minute)
	f.fsmgr.AddFile(testSource, []byte("v2 longer"))
	if _, err := f.coord.BackupNow(); err != nil {
		t.Fatal(err)
	}

	records, err = f.coord.Backups()
	if err != nil {
		t.Fatalf("Backups() error = %v", err)
	}
	if len(records) != 2 || records[0].Name() != "slot1_20240115_103100.sav" {
		t.Errorf("Backups() = %v, want newest first", records)
	}

	st, err := f.coord.Status()
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if !st.Exists || st.BackupCount != 2 || !st.IsBackedUp {
		t.Errorf("Status() = %+v", st)
	}
}

func TestCoordinator_SubscribersAndClose(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "backup")
	f.fsmgr.AddFile(testSource, []byte("save"))
	f.coord.SetSource(testSource)

	a := f.coord.Subscribe()
	b := f.coord.Subscribe()
	if _, err := f.coord.BackupNow(); err != nil {
		t.Fatal(err)
	}
	if nextEvent(t, a).Kind != keep.EventBackupCreated || nextEvent(t, b).Kind != keep.EventBackupCreated {
		t.Error("every subscriber should receive the event")
	}

	// Close must also stop the watch.
	if _, err := f.coord.StartWatch(); err != nil {
		t.Fatal(err)
	}
	nextEvent(t, a)
	nextEvent(t, b)

	if err := f.coord.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if f.coord.Watching() {
		t.Error("Watching() = true after Close")
	}
	if _, ok := <-a; ok {
		t.Error("subscriber channel not closed")
	}
	if _, ok := <-f.coord.Subscribe(); ok {
		t.Error("Subscribe() after Close should return a closed channel")
	}

	logs := f.logs.String()
	if !strings.Contains(logs, "run finished\tcommand=backup\tstatus=success") {
		t.Errorf("missing run summary in log:\n%s", logs)
	}
}

func TestCoordinator_SlowSubscriberDoesNotBlock(t *testing.T) {
	f := newCoordFixture(t, manualConfig(), "ui")
	f.coord.Subscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer+10; i++ {
			f.coord.emit(keep.Event{Kind: keep.EventWatchStopped})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("emit blocked on a full subscriber")
	}
}

func TestNewCoordinator(t *testing.T) {
	base := t.TempDir()
	cfg := config.NewConfig(base)
	cfg.Watch = false
	cfg.Journal.Type = "sqlite"
	cfg.Seal.Type = "test"
	source := filepath.Join(base, "saves", "slot1.sav")
	testutil.WriteFile(t, source, []byte("progress"), time.Time{})
	cfg.Source = source

	var out syncBuffer
	coord, err := NewCoordinator(cfg, "backup", source, &out)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}

	dest, err := coord.BackupNow()
	if err != nil {
		t.Fatalf("BackupNow() error = %v", err)
	}
	if got := string(testutil.ReadFile(t, dest)); got != "progress" {
		t.Errorf("backup content = %q", got)
	}
	if err := coord.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	logData := string(testutil.ReadFile(t, filepath.Join(cfg.LogDir, LogFile)))
	if !strings.Contains(logData, "backup created") {
		t.Errorf("log file missing backup line:\n%s", logData)
	}
	if out.String() != logData {
		t.Error("extra log writer should mirror the log file")
	}

	// The run and its backup were journaled; a second run can read them.
	again, err := NewCoordinator(cfg, "history", "", io.Discard)
	if err != nil {
		t.Fatalf("NewCoordinator() error = %v", err)
	}
	defer again.Close()
	entries, err := again.History(0)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("History() = %d entries, want 2", len(entries))
	}
	kinds := map[string]bool{}
	for _, e := range entries {
		kinds[e.Kind] = true
	}
	if !kinds["run"] || !kinds["backup"] {
		t.Errorf("History() kinds = %v, want run and backup", kinds)
	}
}

func TestCoordinator_FollowBackups(t *testing.T) {
	dir := t.TempDir()
	cfg := manualConfig()
	cfg.BackupDir = dir
	logger := slog.New(newLogHandler(io.Discard, "run-test"))
	keeper := keep.NewKeeper(fs.NewOSFilesystemManager(), &slogAdapter{l: logger}, keep.RealClock{}, testutil.NewStubIDGenerator())
	coord := newCoordinator(cfg, keeper, keep.NopJournal{}, encryption.NewTestSealer(), logger, keep.RealClock{}, NewOperation("run-test", "list", ""))
	defer coord.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	seen := make(chan *keep.BackupRecord, 4)
	go coord.FollowBackups(ctx, func(r *keep.BackupRecord) { seen <- r })
	time.Sleep(100 * time.Millisecond)

	testutil.WriteFile(t, filepath.Join(dir, "notes.txt"), []byte("skip"), time.Time{})
	testutil.WriteFile(t, filepath.Join(dir, "slot1_20250101_120000.sav"), []byte("data"), time.Time{})

	select {
	case r := <-seen:
		if r.Name() != "slot1_20250101_120000.sav" || r.SourceName() != "slot1.sav" {
			t.Errorf("FollowBackups() reported %+v", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("FollowBackups() did not report the new backup")
	}
}
