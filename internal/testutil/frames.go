package testutil

import (
	"bytes"
	"testing"

	"github.com/google/uuid"

	"mbk-go/internal/backup"
	"mbk-go/internal/frame"
	"mbk-go/internal/model"
	"mbk-go/internal/stream"
)

var (
	SelfACI  = uuid.MustParse("5a8d2b36-7d0e-4a4e-9f3c-0b6c8f1e2d01")
	SelfPNI  = uuid.MustParse("8c1f6e52-3b9a-4c7d-a2e0-6d4b5f7a9c02")
	AliceACI = uuid.MustParse("0f2e4d6c-8b0a-4f1e-8d3c-5b7a9e1f3d03")
	BobACI   = uuid.MustParse("7e9c1a3b-5d7f-4e2a-9c4b-6d8f0a2c4e04")
	ListID   = uuid.MustParse("c3e5a7b9-1d3f-4a6c-8e0b-2d4f6a8c0e05")
)

// Sample stream-local ids used by SampleFrames.
const (
	SelfID     = 1
	AliceID    = 2
	BobID      = 3
	GroupID    = 4
	ListRecID  = 5
	CallLinkID = 6

	AliceChatID = 10
	GroupChatID = 11
	NoteChatID  = 12
)

// Bytes returns n bytes counting up from seed.
func Bytes(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = seed + byte(i)
	}
	return b
}

func uuidSlice(u uuid.UUID) []byte {
	return bytes.Clone(u[:])
}

// SampleSelf is the identity a restore keeps for the self recipient.
func SampleSelf() model.SelfIdentity {
	return model.SelfIdentity{
		ACI:        SelfACI,
		PNI:        uuid.NullUUID{UUID: SelfPNI, Valid: true},
		E164:       15550000001,
		ProfileKey: Bytes(32, 0x40),
	}
}

// SampleHeader is the header WriteBackup uses.
func SampleHeader() *frame.BackupInfo {
	return &frame.BackupInfo{Version: frame.Version, BackupTimeMs: 1772356500000}
}

// SampleAccount returns a fully populated account frame.
func SampleAccount() *frame.AccountData {
	return &frame.AccountData{
		ProfileKey: Bytes(32, 0x40),
		Username:   "sam.42",
		UsernameLink: &frame.UsernameLink{
			Entropy:  Bytes(32, 0x60),
			ServerID: Bytes(16, 0x80),
			Color:    frame.UsernameLinkColorOlive,
		},
		GivenName:              "Sam",
		FamilyName:             "Sample",
		AvatarURLPath:          "avatars/sam",
		SubscriberID:           Bytes(32, 0x90),
		SubscriberCurrencyCode: "EUR",
		AccountSettings: &frame.AccountSettings{
			ReadReceipts:                true,
			SealedSenderIndicators:      true,
			TypingIndicators:            true,
			LinkPreviews:                true,
			UniversalExpireTimerSeconds: 86400,
			PreferredReactionEmoji:      []string{"a", "b", "c"},
			DisplayBadgesOnProfile:      true,
			KeepMutedChatsArchived:      true,
			HasViewedOnboardingStory:    true,
			StoryViewReceiptsEnabled:    true,
			PhoneNumberSharingMode:      frame.PhoneNumberSharingNobody,
		},
	}
}

// SampleRecipients returns one recipient of every kind, self first and the
// distribution list after its members.
func SampleRecipients() []*frame.Recipient {
	return []*frame.Recipient{
		{ID: SelfID, Self: &frame.Self{}},
		{ID: AliceID, Contact: &frame.Contact{
			ACI:               uuidSlice(AliceACI),
			Username:          "alice.01",
			E164:              15550000002,
			Registration:      frame.RegistrationRegistered,
			ProfileKey:        Bytes(32, 0x10),
			ProfileSharing:    true,
			ProfileGivenName:  "Alice",
			ProfileFamilyName: "Example",
		}},
		{ID: BobID, Contact: &frame.Contact{
			ACI:                   uuidSlice(BobACI),
			E164:                  15550000003,
			Blocked:               true,
			Registration:          frame.RegistrationNotRegistered,
			UnregisteredTimestamp: 1700000000000,
			HideStory:             true,
		}},
		{ID: GroupID, Group: &frame.Group{
			MasterKey:     Bytes(32, 0x20),
			Whitelisted:   true,
			StorySendMode: frame.StorySendModeEnabled,
		}},
		{ID: CallLinkID, CallLink: &frame.CallLink{
			RootKey:      Bytes(16, 0x30),
			AdminKey:     Bytes(32, 0x50),
			Name:         "standup",
			Restrictions: frame.CallLinkRestrictionsAdminApproval,
			ExpirationMs: 1800000000000,
		}},
		{ID: ListRecID, DistributionList: &frame.DistributionList{
			DistributionID:     uuidSlice(ListID),
			Name:               "Close friends",
			AllowReplies:       true,
			PrivacyMode:        frame.PrivacyModeOnlyWith,
			MemberRecipientIDs: []uint64{BobID, AliceID},
		}},
	}
}

// SampleChats returns a pinned styled chat, an archived muted group chat
// and a note-to-self chat.
func SampleChats() []*frame.Chat {
	return []*frame.Chat{
		{
			ID:                 AliceChatID,
			RecipientID:        AliceID,
			PinnedOrder:        1,
			ExpirationTimerMs:  604800000,
			ExpireTimerVersion: 3,
			Style: &frame.ChatStyle{
				BubbleColor: frame.BubbleColorUsePreset,
				Preset:      frame.BubbleColorPresetGradientSea,
			},
		},
		{
			ID:                           GroupChatID,
			RecipientID:                  GroupID,
			Archived:                     true,
			MuteUntilMs:                  1900000000000,
			MarkedUnread:                 true,
			DontNotifyForMentionsIfMuted: true,
			Style:                        &frame.ChatStyle{BubbleColor: frame.BubbleColorAuto, DimWallpaperInDarkMode: true},
		},
		{ID: NoteChatID, RecipientID: SelfID},
	}
}

// SampleChatItems covers every direction and item kind, reactions, send
// statuses and an edit history.
func SampleChatItems() []*frame.ChatItem {
	return []*frame.ChatItem{
		{
			ChatID:   AliceChatID,
			AuthorID: AliceID,
			DateSent: 1772000000000,
			Incoming: &frame.IncomingMessageDetails{
				DateReceived:   1772000000500,
				DateServerSent: 1772000000200,
				Read:           true,
				SealedSender:   true,
			},
			StandardMessage: &frame.StandardMessage{
				Text: "see you at 8",
				Reactions: []*frame.Reaction{
					{Emoji: "b", AuthorID: SelfID, SentTimestamp: 1772000001000, SortOrder: 1},
					{Emoji: "a", AuthorID: AliceID, SentTimestamp: 1772000002000, SortOrder: 2},
				},
			},
			Revisions: []*frame.ChatItem{{
				ChatID:          AliceChatID,
				AuthorID:        AliceID,
				DateSent:        1771999990000,
				Incoming:        &frame.IncomingMessageDetails{DateReceived: 1771999990500, Read: true},
				StandardMessage: &frame.StandardMessage{Text: "see you at 7"},
			}},
		},
		{
			ChatID:          AliceChatID,
			AuthorID:        SelfID,
			DateSent:        1772000003000,
			ExpireStartDate: 1772000003000,
			ExpiresInMs:     604800000,
			Outgoing: &frame.OutgoingMessageDetails{SendStatus: []*frame.SendStatus{{
				RecipientID:               AliceID,
				Status:                    frame.DeliveryStatusRead,
				SealedSender:              true,
				LastStatusUpdateTimestamp: 1772000004000,
			}}},
			StandardMessage: &frame.StandardMessage{Text: "ok"},
		},
		{
			ChatID:   GroupChatID,
			AuthorID: BobID,
			DateSent: 1772000005000,
			Incoming: &frame.IncomingMessageDetails{DateReceived: 1772000005100},
			RemoteDeletedMessage: &frame.RemoteDeletedMessage{},
		},
		{
			ChatID:        GroupChatID,
			AuthorID:      SelfID,
			DateSent:      1772000006000,
			Directionless: &frame.DirectionlessMessageDetails{},
			UpdateMessage: &frame.ChatUpdateMessage{SimpleUpdate: &frame.SimpleChatUpdate{Type: frame.SimpleUpdateIdentityUpdate}},
		},
		{
			ChatID:   NoteChatID,
			AuthorID: SelfID,
			DateSent: 1772000007000,
			Outgoing: &frame.OutgoingMessageDetails{},
			StandardMessage: &frame.StandardMessage{Text: "buy milk"},
		},
	}
}

func SampleCalls() []*frame.Call {
	return []*frame.Call{
		{CallID: 1000, ConversationRecipientID: AliceID, Type: frame.CallTypeVideo, Outgoing: true, Timestamp: 1772000008000, Event: frame.CallEventAccepted},
		{CallID: 18446744073709551615, ConversationRecipientID: GroupID, Type: frame.CallTypeGroup, Timestamp: 1772000009000, RingerRecipientID: BobID, Event: frame.CallEventMissed},
	}
}

func SampleStickerPacks() []*frame.StickerPack {
	return []*frame.StickerPack{{
		PackID:  Bytes(16, 0xa0),
		PackKey: Bytes(32, 0xb0),
		Title:   "Cats",
		Author:  "Alice",
		Stickers: []*frame.PackSticker{
			{ID: 2, Emoji: "b"},
			{ID: 0, Emoji: "a"},
		},
	}}
}

// SampleFrames returns a complete, valid frame sequence in emission order.
// Each call returns fresh values.
func SampleFrames() []*frame.Frame {
	frames := []*frame.Frame{{Account: SampleAccount()}}
	for _, r := range SampleRecipients() {
		frames = append(frames, &frame.Frame{Recipient: r})
	}
	for _, c := range SampleChats() {
		frames = append(frames, &frame.Frame{Chat: c})
	}
	for _, c := range SampleChatItems() {
		frames = append(frames, &frame.Frame{ChatItem: c})
	}
	for _, c := range SampleCalls() {
		frames = append(frames, &frame.Frame{Call: c})
	}
	for _, p := range SampleStickerPacks() {
		frames = append(frames, &frame.Frame{StickerPack: p})
	}
	return frames
}

// WriteBackup encodes header and frames into a complete encrypted stream.
func WriteBackup(t *testing.T, keys *stream.Keys, header *frame.BackupInfo, frames []*frame.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := backup.NewWriter(&buf, keys)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if err := w.WriteHeader(header); err != nil {
		t.Fatalf("WriteHeader() error = %v", err)
	}
	for i, f := range frames {
		if err := w.WriteFrame(f); err != nil {
			t.Fatalf("WriteFrame(%d) error = %v", i, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}
