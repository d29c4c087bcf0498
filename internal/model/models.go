package model

import (
	"time"

	"github.com/google/uuid"
)

// SelfIdentity identifies the account owner on this device. It survives an
// import: the restored self recipient always carries these values.
type SelfIdentity struct {
	ACI        uuid.UUID
	PNI        uuid.NullUUID
	E164       uint64
	ProfileKey []byte
}

// Account is the singleton account row.
type Account struct {
	ProfileKey                    []byte
	Username                      string
	UsernameLink                  *UsernameLink
	GivenName                     string
	FamilyName                    string
	AvatarURLPath                 string
	SubscriberID                  []byte
	SubscriberCurrencyCode        string
	SubscriptionManuallyCancelled bool
	Settings                      AccountSettings
}

// UsernameLink is the stored username link.
type UsernameLink struct {
	Entropy  []byte
	ServerID []byte
	Color    int32
}

// AccountSettings are the account-wide preferences. PreferredReactionEmoji
// is kept in order.
type AccountSettings struct {
	ReadReceipts                    bool
	SealedSenderIndicators          bool
	TypingIndicators                bool
	LinkPreviews                    bool
	NotDiscoverableByPhoneNumber    bool
	PreferContactAvatars            bool
	UniversalExpireTimerSeconds     uint32
	PreferredReactionEmoji          []string
	DisplayBadgesOnProfile          bool
	KeepMutedChatsArchived          bool
	HasSetMyStoriesPrivacy          bool
	HasViewedOnboardingStory        bool
	StoriesDisabled                 bool
	StoryViewReceiptsEnabled        bool
	HasSeenGroupStoryEducationSheet bool
	HasCompletedUsernameOnboarding  bool
	PhoneNumberSharingMode          int32
}

// RecipientKind says which columns of a Recipient are meaningful.
type RecipientKind int

const (
	RecipientSelf RecipientKind = iota + 1
	RecipientContact
	RecipientGroup
	RecipientDistributionList
	RecipientCallLink
)

// Recipient is one row of the recipients table. It holds every kind of
// addressable party; Kind selects the relevant columns.
type Recipient struct {
	ID   int64
	Kind RecipientKind

	// Self and contacts.
	ACI                   uuid.NullUUID
	PNI                   uuid.NullUUID
	E164                  uint64
	Username              string
	Blocked               bool
	Hidden                bool
	Registration          int32
	UnregisteredTimestamp int64
	ProfileKey            []byte
	ProfileSharing        bool
	GivenName             string
	FamilyName            string
	HideStory             bool

	// Groups.
	GroupMasterKey []byte
	StorySendMode  int32

	// Distribution lists. Members are local recipient ids, in order.
	DistributionID    uuid.NullUUID
	DistributionName  string
	AllowReplies      bool
	PrivacyMode       int32
	DeletionTimestamp int64
	Members           []int64

	// Call links.
	CallLinkRootKey      []byte
	CallLinkAdminKey     []byte
	CallLinkName         string
	CallLinkRestrictions int32
	CallLinkExpiration   int64
}

// ReadStatus is the thread read state.
type ReadStatus int

const (
	ReadStatusRead ReadStatus = iota
	ReadStatusUnread
	ReadStatusForcedUnread
)

// MentionSetting controls mention notifications in a muted chat.
type MentionSetting int

const (
	MentionAlwaysNotify MentionSetting = iota
	MentionDoNotNotify
)

// ChatStyleKind is how a chat's bubble color is chosen.
type ChatStyleKind int

const (
	ChatStyleNone ChatStyleKind = iota
	ChatStyleAuto
	ChatStylePreset
)

// Thread is one row of the threads table.
type Thread struct {
	ID          int64
	RecipientID int64
	Pinned      int
	Archived    bool
	Read        ReadStatus
	Active      bool
}

// ChatPreferences are the per-conversation settings stored on the
// recipient row rather than the thread.
type ChatPreferences struct {
	MentionSetting MentionSetting
	MuteUntil      int64
	ExpiresInMs    int64
	ExpiresVersion int32
	Style          ChatStyleKind
	ColorPreset    int32
	DimWallpaper   bool
}

// Conversation is a thread joined with its recipient's chat preferences.
type Conversation struct {
	Thread      Thread
	Preferences ChatPreferences
}

// Direction is whether a message was received, sent, or neither.
type Direction int

const (
	DirectionIncoming Direction = iota + 1
	DirectionOutgoing
	DirectionNone
)

// MessageKind is the content shape of a message.
type MessageKind int

const (
	MessageStandard MessageKind = iota + 1
	MessageRemoteDeleted
	MessageUpdate
)

// Message is one row of the messages table with its child rows.
// Revisions are earlier versions of an edited message, oldest first.
type Message struct {
	ID            int64
	ThreadID      int64
	AuthorID      int64
	DateSent      int64
	DateReceived  int64
	DateServer    int64
	ExpireStarted int64
	ExpiresIn     int64
	Read          bool
	SealedSender  bool
	SMS           bool
	Direction     Direction
	Kind          MessageKind
	Body          string
	UpdateType    int32
	SendStatuses  []SendStatus
	Reactions     []Reaction
	Revisions     []*Message
}

// SendStatus is the delivery state of an outgoing message to one recipient.
type SendStatus struct {
	RecipientID         int64
	Status              int32
	NetworkFailure      bool
	IdentityKeyMismatch bool
	SealedSender        bool
	UpdatedAt           int64
}

// Reaction is an emoji reaction on a message.
type Reaction struct {
	AuthorID  int64
	Emoji     string
	SentAt    int64
	SortOrder int64
}

// Call is one row of the call log.
type Call struct {
	CallID    uint64
	PeerID    int64
	Type      int32
	Outgoing  bool
	Timestamp int64
	RingerID  int64
	Event     int32
}

// StickerPack is an installed sticker pack.
type StickerPack struct {
	PackID   []byte
	PackKey  []byte
	Title    string
	Author   string
	Stickers []Sticker
}

// Sticker is one sticker in a pack.
type Sticker struct {
	ID    uint32
	Emoji string
}

// BackupOperation records one export or import run.
type BackupOperation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string
	StartedAt  time.Time
	FinishedAt *time.Time
}
