package mb

import (
	"context"
	"iter"

	"mbk-go/internal/model"
)

// ExportSnapshot is a consistent read view of local state. Each source
// yields lazily and may be ranged over more than once. The snapshot must be
// closed.
type ExportSnapshot interface {
	// Account returns the account row, or an empty Account if none exists.
	Account(ctx context.Context) (*model.Account, error)

	// Recipients yields the self recipient first and distribution lists
	// last, so list members are always yielded before the list.
	Recipients(ctx context.Context) iter.Seq2[*model.Recipient, error]

	// Conversations yields active threads with their chat preferences.
	Conversations(ctx context.Context) iter.Seq2[*model.Conversation, error]

	// Messages yields the current version of every message in an active
	// thread, with revisions and child rows attached.
	Messages(ctx context.Context) iter.Seq2[*model.Message, error]

	Calls(ctx context.Context) iter.Seq2[*model.Call, error]
	StickerPacks(ctx context.Context) iter.Seq2[*model.StickerPack, error]

	Close() error
}

// RestoreTx is a single storage transaction that replaces local state.
// Nothing is visible to other readers until Commit.
type RestoreTx interface {
	// ClearForRestore deletes all restorable state except the self
	// recipient, resets id sequences, and makes sure the self recipient
	// exists with the given identity. It returns the self recipient id.
	ClearForRestore(ctx context.Context, self model.SelfIdentity) (int64, error)

	// SetAccount overwrites the account singleton and the self recipient's
	// profile fields.
	SetAccount(ctx context.Context, account *model.Account) error

	InsertRecipient(ctx context.Context, r *model.Recipient) (int64, error)

	// InsertConversation inserts the thread and writes the chat
	// preferences onto the thread's recipient.
	InsertConversation(ctx context.Context, c *model.Conversation) (int64, error)

	InsertMessage(ctx context.Context, m *model.Message) (int64, error)
	InsertCall(ctx context.Context, c *model.Call) error
	InsertStickerPack(ctx context.Context, p *model.StickerPack) error

	Commit() error
	Rollback() error
}

// Store is the local persistence layer.
type Store interface {
	// Snapshot opens a read snapshot for export.
	Snapshot(ctx context.Context) (ExportSnapshot, error)

	// BeginRestore starts the transaction an import runs in.
	BeginRestore(ctx context.Context) (RestoreTx, error)

	// SelfIdentity returns the stored self identity, or nil if there is no
	// self recipient yet.
	SelfIdentity(ctx context.Context) (*model.SelfIdentity, error)

	CreateBackupOperation(ctx context.Context, operation, parameters string) (*model.BackupOperation, error)
	FinishBackupOperation(ctx context.Context, id int64, status string) error
	ListBackupOperations(ctx context.Context, limit int) ([]*model.BackupOperation, error)

	Close() error
}
