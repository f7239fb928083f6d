package keep_test

import (
	"testing"

	"savekeep/internal/keep"
	"savekeep/internal/testutil"
)

type fixture struct {
	keeper *keep.Keeper
	fsmgr  *testutil.MockFilesystemManager
	clock  *testutil.StubClock
	logger *testutil.RecordingLogger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fsmgr := testutil.NewMockFilesystemManager()
	clock := testutil.FixedClock()
	logger := testutil.NewRecordingLogger()
	return &fixture{
		keeper: keep.NewKeeper(fsmgr, logger, clock, testutil.NewStubIDGenerator()),
		fsmgr:  fsmgr,
		clock:  clock,
		logger: logger,
	}
}
