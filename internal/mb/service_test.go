package mb_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"mbk-go/internal/compare"
	"mbk-go/internal/mb"
	"mbk-go/internal/testutil"
	"mbk-go/internal/vault"
)

type serviceFixture struct {
	svc   *mb.BackupService
	store mb.Store
	vault *vault.MemoryVault
	spool interface{ Active() int }
	clock *testutil.StubClock
}

func newServiceFixture(t *testing.T, v *vault.MemoryVault) *serviceFixture {
	t.Helper()
	store := newStore(t)
	spool := testutil.NewTestSpool()
	clock := testutil.FixedClock()
	svc := mb.NewBackupService(store, v, spool, testutil.NewTestKeyStore(), nil, nil, clock, testutil.NewStubIDGenerator())
	return &serviceFixture{svc: svc, store: store, vault: v, spool: spool, clock: clock}
}

func TestBackupService_ExportImport(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shared := testutil.NewTestVault()

	src := newServiceFixture(t, shared)
	mustImportSample(t, src.store, testutil.StreamKeys(t))

	record, err := src.svc.ExportToVault(ctx)
	if err != nil {
		t.Fatalf("ExportToVault() error = %v", err)
	}
	if want := "20260301T091500Z-00000001.mbk"; record.Name != want {
		t.Errorf("record.Name = %q, want %q", record.Name, want)
	}
	if size, _ := shared.BackupSize(ctx, record.Name); size != record.Size {
		t.Errorf("vault size = %d, record.Size = %d", size, record.Size)
	}
	if src.spool.Active() != 0 {
		t.Errorf("spool files left after export = %d", src.spool.Active())
	}

	summary, err := src.svc.Verify(ctx, record.Name)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if summary.Total() != record.Summary.Total() {
		t.Errorf("Verify() Total = %d, want %d", summary.Total(), record.Summary.Total())
	}

	dst := newServiceFixture(t, shared)
	if _, err := dst.svc.ImportFromVault(ctx, record.Name, testutil.SampleSelf()); err != nil {
		t.Fatalf("ImportFromVault() error = %v", err)
	}
	assertState(t, dst.store, testutil.StreamKeys(t), testutil.SampleFrames())

	_, frames, err := dst.svc.ReadBackup(ctx, record.Name)
	if err != nil {
		t.Fatalf("ReadBackup() error = %v", err)
	}
	if ok, err := compare.Equivalent(testutil.SampleFrames(), frames); err != nil || !ok {
		t.Errorf("ReadBackup() frames equivalent = %v, %v, want true", ok, err)
	}
}

func TestBackupService_ListBackups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(t, testutil.NewTestVault())
	mustImportSample(t, f.store, testutil.StreamKeys(t))

	first, err := f.svc.ExportToVault(ctx)
	if err != nil {
		t.Fatalf("ExportToVault() error = %v", err)
	}
	f.clock.Advance(90 * time.Minute)
	second, err := f.svc.ExportToVault(ctx)
	if err != nil {
		t.Fatalf("ExportToVault() error = %v", err)
	}

	list, err := f.svc.ListBackups(ctx)
	if err != nil {
		t.Fatalf("ListBackups() error = %v", err)
	}
	if len(list) != 2 || list[0].Name != first.Name || list[1].Name != second.Name {
		t.Errorf("ListBackups() = %v, want [%s %s]", list, first.Name, second.Name)
	}
}

func TestBackupService_VerifyTampered(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(t, testutil.NewTestVault())
	mustImportSample(t, f.store, testutil.StreamKeys(t))

	record, err := f.svc.ExportToVault(ctx)
	if err != nil {
		t.Fatalf("ExportToVault() error = %v", err)
	}
	if err := f.vault.Corrupt(record.Name, record.Size/2); err != nil {
		t.Fatalf("Corrupt() error = %v", err)
	}

	_, err = f.svc.Verify(ctx, record.Name)
	if got := mb.Classify(err); got != mb.FailureTampered {
		t.Errorf("Classify(Verify()) = %v, want %v", got, mb.FailureTampered)
	}
	_, err = f.svc.ImportFromVault(ctx, record.Name, testutil.SampleSelf())
	if got := mb.Classify(err); got != mb.FailureTampered {
		t.Errorf("Classify(ImportFromVault()) = %v, want %v", got, mb.FailureTampered)
	}
	assertState(t, f.store, testutil.StreamKeys(t), testutil.SampleFrames())
}

func TestBackupService_MissingBackup(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, testutil.NewTestVault())

	_, err := f.svc.ImportFromVault(context.Background(), "nope.mbk", testutil.SampleSelf())
	if !errors.Is(err, mb.ErrBackupNotFound) {
		t.Errorf("ImportFromVault() error = %v, want ErrBackupNotFound", err)
	}
	if _, err := f.svc.Verify(context.Background(), "nope.mbk"); !errors.Is(err, mb.ErrBackupNotFound) {
		t.Errorf("Verify() error = %v, want ErrBackupNotFound", err)
	}
}

func TestBackupService_EmptyStore(t *testing.T) {
	t.Parallel()
	f := newServiceFixture(t, testutil.NewTestVault())

	_, err := f.svc.ExportToVault(context.Background())
	if !errors.Is(err, mb.ErrNoSelfRecipient) {
		t.Errorf("ExportToVault() error = %v, want ErrNoSelfRecipient", err)
	}
	if list, _ := f.vault.ListBackups(context.Background()); len(list) != 0 {
		t.Errorf("vault has %d backups after failed export, want 0", len(list))
	}
	if f.spool.Active() != 0 {
		t.Errorf("spool files left after failed export = %d", f.spool.Active())
	}
}

func TestBackupService_SpoolLimit(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	mustImportSample(t, store, testutil.StreamKeys(t))

	svc := mb.NewBackupService(store, testutil.NewTestVault(), testutil.NewTestSpoolWithSize(64),
		testutil.NewTestKeyStore(), nil, nil, testutil.FixedClock(), testutil.NewStubIDGenerator())
	_, err := svc.ExportToVault(context.Background())
	if err == nil || !strings.Contains(err.Error(), "staging area full") {
		t.Errorf("ExportToVault() error = %v, want staging area full", err)
	}
}

func TestBackupService_Busy(t *testing.T) {
	t.Parallel()
	coord := mb.NewCoordinator(nil)
	release, err := coord.BeginImport()
	if err != nil {
		t.Fatalf("BeginImport() error = %v", err)
	}
	defer release()

	store := newStore(t)
	svc := mb.NewBackupService(store, testutil.NewTestVault(), testutil.NewTestSpool(),
		testutil.NewTestKeyStore(), coord, nil, testutil.FixedClock(), testutil.NewStubIDGenerator())

	if _, err := svc.ExportToVault(context.Background()); !errors.Is(err, mb.ErrBusy) {
		t.Errorf("ExportToVault() error = %v, want ErrBusy", err)
	}
	if _, err := svc.ImportFromVault(context.Background(), "x.mbk", testutil.SampleSelf()); !errors.Is(err, mb.ErrBusy) {
		t.Errorf("ImportFromVault() error = %v, want ErrBusy", err)
	}
}

func TestBackupService_GetHistory(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	f := newServiceFixture(t, testutil.NewTestVault())

	for _, op := range []string{"export", "import"} {
		rec, err := f.store.CreateBackupOperation(ctx, op, "[]")
		if err != nil {
			t.Fatalf("CreateBackupOperation() error = %v", err)
		}
		if err := f.store.FinishBackupOperation(ctx, rec.ID, "success"); err != nil {
			t.Fatalf("FinishBackupOperation() error = %v", err)
		}
	}

	ops, err := f.svc.GetHistory(ctx, 1)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(ops) != 1 || ops[0].Operation != "import" {
		t.Errorf("GetHistory(1) = %v, want the import", ops)
	}
}

func TestBackupService_DefaultClockAndIDs(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	mustImportSample(t, store, testutil.StreamKeys(t))
	svc := mb.NewBackupService(store, testutil.NewTestVault(), testutil.NewTestSpool(), testutil.NewTestKeyStore(), nil, nil, nil, nil)
	before := time.Now().UTC().Truncate(time.Second)
	record, err := svc.ExportToVault(context.Background())
	if err != nil {
		t.Fatalf("ExportToVault() error = %v", err)
	}
	if !regexp.MustCompile(`^\d{8}T\d{6}Z-[0-9a-f]{8}\.mbk$`).MatchString(record.Name) {
		t.Fatalf("ExportToVault() name = %q", record.Name)
	}
	stamp, err := time.Parse("20060102T150405Z", record.Name[:16])
	if err != nil {
		t.Fatalf("time.Parse() error = %v", err)
	}
	if stamp.Before(before) {
		t.Errorf("backup stamped %v, before export started at %v", stamp, before)
	}
}
