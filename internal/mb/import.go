package mb

import (
	"context"
	"fmt"
	"io"
	"sync"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/model"
	"mbk-go/internal/stream"
)

// ImportState is the phase an Importer is in.
type ImportState int

const (
	ImportIdle ImportState = iota
	ImportClearing
	ImportStreaming
	ImportCommitting
	ImportDone
	ImportAborted
)

func (s ImportState) String() string {
	switch s {
	case ImportIdle:
		return "idle"
	case ImportClearing:
		return "clearing"
	case ImportStreaming:
		return "streaming"
	case ImportCommitting:
		return "committing"
	case ImportDone:
		return "done"
	case ImportAborted:
		return "aborted"
	default:
		return fmt.Sprintf("ImportState(%d)", int(s))
	}
}

// SourceFactory opens the backup stream from the beginning.
type SourceFactory func() (io.ReadCloser, error)

// Importer replaces local state with the contents of a backup stream. The
// whole run happens inside one RestoreTx, so a failure at any point leaves
// local state as it was.
type Importer struct {
	store  Store
	keys   *stream.Keys
	logger Logger

	mu    sync.Mutex
	state ImportState
}

func NewImporter(store Store, keys *stream.Keys, logger Logger) *Importer {
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Importer{store: store, keys: keys, logger: logger}
}

// State returns the current phase.
func (im *Importer) State() ImportState {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.state
}

func (im *Importer) setState(s ImportState) {
	im.mu.Lock()
	im.state = s
	im.mu.Unlock()
}

// Import reads the stream produced by open, of declared total length, and
// restores it. self is the identity the restored self recipient keeps.
func (im *Importer) Import(ctx context.Context, length int64, open SourceFactory, self model.SelfIdentity) (_ *Summary, err error) {
	tx, err := im.store.BeginRestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning restore: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		im.setState(ImportAborted)
		if rerr := tx.Rollback(); rerr != nil {
			im.logger.Warn("rollback failed", "error", rerr)
		}
		im.logger.Info("import aborted", "error", err)
	}()

	im.setState(ImportClearing)
	selfID, err := tx.ClearForRestore(ctx, self)
	if err != nil {
		return nil, fmt.Errorf("clearing local state: %w", err)
	}

	im.setState(ImportStreaming)
	src, err := open()
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer src.Close()

	r, err := backup.NewReader(src, im.keys, length)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	rm := newRemap(selfID)
	summary := newSummary(r.Header())
	for r.HasNext() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		if err := rm.apply(ctx, tx, f); err != nil {
			return nil, distrust(ctx, r, fmt.Errorf("frame %d (%s): %w", r.Frames(), f.Kind(), err))
		}
		summary.Counts[f.Kind()]++
	}
	if err := rm.finish(); err != nil {
		return nil, distrust(ctx, r, err)
	}

	im.setState(ImportCommitting)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing restore: %w", err)
	}
	committed = true
	im.setState(ImportDone)
	im.logger.Info("import committed", "frames", summary.Total())
	return summary, nil
}

// distrust reports a rejected frame. A ciphertext that fails to
// authenticate can decode into well-formed but inconsistent frames, so the
// rest of the stream is verified first and a failing tag wins.
func distrust(ctx context.Context, r *backup.Reader, err error) error {
	if ctx.Err() != nil {
		return err
	}
	if verr := r.Verify(); verr != nil {
		return fmt.Errorf("%w (rejected content: %v)", verr, err)
	}
	return err
}

func violationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, fmt.Sprintf(format, args...))
}

// remap translates stream-local ids into the local ids assigned on insert.
// Entries are only ever added.
type remap struct {
	selfID     int64
	recipients map[uint64]int64
	chats      map[uint64]int64
	chatOf     map[int64]bool
	calls      map[uint64]bool
	packs      map[string]bool
	account    bool
	self       bool
}

func newRemap(selfID int64) *remap {
	return &remap{
		selfID:     selfID,
		recipients: make(map[uint64]int64),
		chats:      make(map[uint64]int64),
		chatOf:     make(map[int64]bool),
		calls:      make(map[uint64]bool),
		packs:      make(map[string]bool),
	}
}

func (m *remap) recipient(id uint64) (int64, error) {
	local, ok := m.recipients[id]
	if !ok {
		return 0, violationf("unknown recipient %d", id)
	}
	return local, nil
}

func (m *remap) apply(ctx context.Context, tx RestoreTx, f *frame.Frame) error {
	switch {
	case f.Account != nil:
		if m.account {
			return violationf("second account frame")
		}
		m.account = true
		return tx.SetAccount(ctx, accountFromFrame(f.Account))
	case f.Recipient != nil:
		return m.applyRecipient(ctx, tx, f.Recipient)
	case f.Chat != nil:
		return m.applyChat(ctx, tx, f.Chat)
	case f.ChatItem != nil:
		return m.applyChatItem(ctx, tx, f.ChatItem)
	case f.Call != nil:
		return m.applyCall(ctx, tx, f.Call)
	case f.StickerPack != nil:
		return m.applyStickerPack(ctx, tx, f.StickerPack)
	}
	return violationf("empty frame")
}

func (m *remap) applyRecipient(ctx context.Context, tx RestoreTx, r *frame.Recipient) error {
	if _, dup := m.recipients[r.ID]; dup {
		return violationf("duplicate recipient id %d", r.ID)
	}
	if r.Self != nil {
		if m.self {
			return violationf("second self recipient")
		}
		m.self = true
		m.recipients[r.ID] = m.selfID
		return nil
	}

	var members []int64
	if d := r.DistributionList; d != nil {
		for _, id := range d.MemberRecipientIDs {
			local, err := m.recipient(id)
			if err != nil {
				return fmt.Errorf("distribution list member: %w", err)
			}
			members = append(members, local)
		}
	}
	rec, err := recipientFromFrame(r, members)
	if err != nil {
		return err
	}
	local, err := tx.InsertRecipient(ctx, rec)
	if err != nil {
		return fmt.Errorf("inserting recipient %d: %w", r.ID, err)
	}
	m.recipients[r.ID] = local
	return nil
}

func (m *remap) applyChat(ctx context.Context, tx RestoreTx, c *frame.Chat) error {
	if _, dup := m.chats[c.ID]; dup {
		return violationf("duplicate chat id %d", c.ID)
	}
	recipientID, err := m.recipient(c.RecipientID)
	if err != nil {
		return err
	}
	if m.chatOf[recipientID] {
		return violationf("second chat for recipient %d", c.RecipientID)
	}
	local, err := tx.InsertConversation(ctx, conversationFromFrame(c, recipientID))
	if err != nil {
		return fmt.Errorf("inserting chat %d: %w", c.ID, err)
	}
	m.chats[c.ID] = local
	m.chatOf[recipientID] = true
	return nil
}

func (m *remap) applyChatItem(ctx context.Context, tx RestoreTx, c *frame.ChatItem) error {
	threadID, ok := m.chats[c.ChatID]
	if !ok {
		return violationf("unknown chat %d", c.ChatID)
	}
	authorID, err := m.recipient(c.AuthorID)
	if err != nil {
		return fmt.Errorf("author: %w", err)
	}
	msg, err := chatItemFromFrame(c, threadID, authorID, m.recipient)
	if err != nil {
		return err
	}
	if _, err := tx.InsertMessage(ctx, msg); err != nil {
		return fmt.Errorf("inserting chat item: %w", err)
	}
	return nil
}

func (m *remap) applyCall(ctx context.Context, tx RestoreTx, c *frame.Call) error {
	if m.calls[c.CallID] {
		return violationf("duplicate call id %d", c.CallID)
	}
	peerID, err := m.recipient(c.ConversationRecipientID)
	if err != nil {
		return fmt.Errorf("call peer: %w", err)
	}
	var ringerID int64
	if c.RingerRecipientID != 0 {
		if ringerID, err = m.recipient(c.RingerRecipientID); err != nil {
			return fmt.Errorf("call ringer: %w", err)
		}
	}
	if err := tx.InsertCall(ctx, callFromFrame(c, peerID, ringerID)); err != nil {
		return fmt.Errorf("inserting call %d: %w", c.CallID, err)
	}
	m.calls[c.CallID] = true
	return nil
}

func (m *remap) applyStickerPack(ctx context.Context, tx RestoreTx, p *frame.StickerPack) error {
	key := string(p.PackID)
	if m.packs[key] {
		return violationf("duplicate sticker pack %x", p.PackID)
	}
	if err := tx.InsertStickerPack(ctx, stickerPackFromFrame(p)); err != nil {
		return fmt.Errorf("inserting sticker pack %x: %w", p.PackID, err)
	}
	m.packs[key] = true
	return nil
}

func (m *remap) finish() error {
	if !m.self {
		return violationf("backup has no self recipient")
	}
	return nil
}

// VerifyStream decodes a whole stream without touching storage and returns
// its frame counts once the tag has verified.
func VerifyStream(src io.Reader, keys *stream.Keys, length int64) (*Summary, error) {
	r, err := backup.NewReader(src, keys, length)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	summary := newSummary(r.Header())
	for r.HasNext() {
		f, err := r.Next()
		if err != nil {
			return nil, err
		}
		summary.Counts[f.Kind()]++
	}
	return summary, nil
}
