package mb_test

import (
	"testing"

	"mbk-go/internal/frame"
	"mbk-go/internal/testutil"
)

func TestImportExport_RoundTrip(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	keys := testutil.StreamKeys(t)

	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), testutil.SampleFrames())
	im, summary, err := importBytes(t, store, keys, data)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if im.State().String() != "done" {
		t.Errorf("State() = %v, want done", im.State())
	}

	wantCounts := map[frame.Kind]int{
		frame.KindAccount:     1,
		frame.KindRecipient:   6,
		frame.KindChat:        3,
		frame.KindChatItem:    5,
		frame.KindCall:        2,
		frame.KindStickerPack: 1,
	}
	for k, n := range wantCounts {
		if summary.Counts[k] != n {
			t.Errorf("summary.Counts[%s] = %d, want %d", k, summary.Counts[k], n)
		}
	}
	if summary.Header.BackupTimeMs != testutil.SampleHeader().BackupTimeMs {
		t.Errorf("summary.Header.BackupTimeMs = %d, want %d", summary.Header.BackupTimeMs, testutil.SampleHeader().BackupTimeMs)
	}

	header, _ := exportFrames(t, store, keys)
	if want := uint64(testutil.FixedClock().Now().UnixMilli()); header.BackupTimeMs != want {
		t.Errorf("export header BackupTimeMs = %d, want %d", header.BackupTimeMs, want)
	}
	assertState(t, store, keys, testutil.SampleFrames())
}

func TestImportExport_ExportIsImportable(t *testing.T) {
	t.Parallel()
	keys := testutil.StreamKeys(t)

	first := newStore(t)
	mustImportSample(t, first, keys)
	_, exported := exportFrames(t, first, keys)

	// Restoring the export on a second device yields the same state.
	second := newStore(t)
	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), exported)
	if _, _, err := importBytes(t, second, keys, data); err != nil {
		t.Fatalf("Import() of exported stream error = %v", err)
	}
	assertState(t, second, keys, testutil.SampleFrames())

	// And restoring again over existing state replaces rather than merges.
	if _, _, err := importBytes(t, second, keys, data); err != nil {
		t.Fatalf("second Import() error = %v", err)
	}
	assertState(t, second, keys, testutil.SampleFrames())
}

func TestImport_OrderingIndependence(t *testing.T) {
	t.Parallel()
	keys := testutil.StreamKeys(t)

	// Same content in a different but still reference-respecting order:
	// sticker packs first, recipients reversed with the list after its
	// members, account last.
	frames := testutil.SampleFrames()
	var packs, recipients, rest []*frame.Frame
	var account *frame.Frame
	for _, f := range frames {
		switch f.Kind() {
		case frame.KindStickerPack:
			packs = append(packs, f)
		case frame.KindRecipient:
			recipients = append([]*frame.Frame{f}, recipients...)
		case frame.KindAccount:
			account = f
		default:
			rest = append(rest, f)
		}
	}
	var list *frame.Frame
	var ordered []*frame.Frame
	for _, f := range recipients {
		if f.Recipient.DistributionList != nil {
			list = f
			continue
		}
		ordered = append(ordered, f)
	}
	reordered := append(packs, ordered...)
	reordered = append(reordered, list)
	reordered = append(reordered, rest...)
	reordered = append(reordered, account)

	store := newStore(t)
	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), reordered)
	if _, _, err := importBytes(t, store, keys, data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	assertState(t, store, keys, testutil.SampleFrames())
}

func TestImport_ReactionEmojiOrder(t *testing.T) {
	t.Parallel()
	keys := testutil.StreamKeys(t)
	store := newStore(t)

	account := testutil.SampleAccount()
	account.AccountSettings.PreferredReactionEmoji = []string{"a", "b", "c"}
	frames := []*frame.Frame{
		{Recipient: &frame.Recipient{ID: 7, Self: &frame.Self{}}},
		{Account: account},
	}
	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), frames)
	if _, _, err := importBytes(t, store, keys, data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	_, got := exportFrames(t, store, keys)
	var emoji []string
	for _, f := range got {
		if f.Account != nil {
			emoji = f.Account.AccountSettings.PreferredReactionEmoji
		}
	}
	if len(emoji) != 3 || emoji[0] != "a" || emoji[1] != "b" || emoji[2] != "c" {
		t.Errorf("PreferredReactionEmoji = %v, want [a b c]", emoji)
	}
}

func TestImport_PinnedArchivedChat(t *testing.T) {
	t.Parallel()
	keys := testutil.StreamKeys(t)
	store := newStore(t)

	frames := []*frame.Frame{
		{Recipient: &frame.Recipient{ID: 1, Self: &frame.Self{}}},
		{Recipient: &frame.Recipient{ID: 2, Contact: &frame.Contact{E164: 15550000009}}},
		{Chat: &frame.Chat{ID: 3, RecipientID: 2, PinnedOrder: 5, Archived: true}},
	}
	data := testutil.WriteBackup(t, keys, testutil.SampleHeader(), frames)
	if _, _, err := importBytes(t, store, keys, data); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	_, got := exportFrames(t, store, keys)
	var chats []*frame.Chat
	for _, f := range got {
		if f.Chat != nil {
			chats = append(chats, f.Chat)
		}
	}
	if len(chats) != 1 {
		t.Fatalf("exported %d chats, want 1", len(chats))
	}
	if chats[0].PinnedOrder != 5 || !chats[0].Archived {
		t.Errorf("chat = pinned %d archived %v, want pinned 5 archived true", chats[0].PinnedOrder, chats[0].Archived)
	}
}
