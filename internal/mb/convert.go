package mb

import (
	"fmt"

	"github.com/google/uuid"

	"mbk-go/internal/frame"
	"mbk-go/internal/model"
)

func uuidBytes(u uuid.NullUUID) []byte {
	if !u.Valid {
		return nil
	}
	b := u.UUID
	return b[:]
}

func nullUUID(name string, b []byte) (uuid.NullUUID, error) {
	if len(b) == 0 {
		return uuid.NullUUID{}, nil
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return uuid.NullUUID{}, fmt.Errorf("%w: %s: %v", ErrSchemaViolation, name, err)
	}
	return uuid.NullUUID{UUID: u, Valid: true}, nil
}

func accountToFrame(a *model.Account) *frame.AccountData {
	s := a.Settings
	out := &frame.AccountData{
		ProfileKey:                    a.ProfileKey,
		Username:                      a.Username,
		GivenName:                     a.GivenName,
		FamilyName:                    a.FamilyName,
		AvatarURLPath:                 a.AvatarURLPath,
		SubscriberID:                  a.SubscriberID,
		SubscriberCurrencyCode:        a.SubscriberCurrencyCode,
		SubscriptionManuallyCancelled: a.SubscriptionManuallyCancelled,
		AccountSettings: &frame.AccountSettings{
			ReadReceipts:                    s.ReadReceipts,
			SealedSenderIndicators:          s.SealedSenderIndicators,
			TypingIndicators:                s.TypingIndicators,
			LinkPreviews:                    s.LinkPreviews,
			NotDiscoverableByPhoneNumber:    s.NotDiscoverableByPhoneNumber,
			PreferContactAvatars:            s.PreferContactAvatars,
			UniversalExpireTimerSeconds:     s.UniversalExpireTimerSeconds,
			PreferredReactionEmoji:          s.PreferredReactionEmoji,
			DisplayBadgesOnProfile:          s.DisplayBadgesOnProfile,
			KeepMutedChatsArchived:          s.KeepMutedChatsArchived,
			HasSetMyStoriesPrivacy:          s.HasSetMyStoriesPrivacy,
			HasViewedOnboardingStory:        s.HasViewedOnboardingStory,
			StoriesDisabled:                 s.StoriesDisabled,
			StoryViewReceiptsEnabled:        s.StoryViewReceiptsEnabled,
			HasSeenGroupStoryEducationSheet: s.HasSeenGroupStoryEducationSheet,
			HasCompletedUsernameOnboarding:  s.HasCompletedUsernameOnboarding,
			PhoneNumberSharingMode:          frame.PhoneNumberSharingMode(s.PhoneNumberSharingMode),
		},
	}
	if a.UsernameLink != nil {
		out.UsernameLink = &frame.UsernameLink{
			Entropy:  a.UsernameLink.Entropy,
			ServerID: a.UsernameLink.ServerID,
			Color:    frame.UsernameLinkColor(a.UsernameLink.Color),
		}
	}
	return out
}

func accountFromFrame(a *frame.AccountData) *model.Account {
	out := &model.Account{
		ProfileKey:                    a.ProfileKey,
		Username:                      a.Username,
		GivenName:                     a.GivenName,
		FamilyName:                    a.FamilyName,
		AvatarURLPath:                 a.AvatarURLPath,
		SubscriberID:                  a.SubscriberID,
		SubscriberCurrencyCode:        a.SubscriberCurrencyCode,
		SubscriptionManuallyCancelled: a.SubscriptionManuallyCancelled,
	}
	if l := a.UsernameLink; l != nil {
		out.UsernameLink = &model.UsernameLink{Entropy: l.Entropy, ServerID: l.ServerID, Color: int32(l.Color)}
	}
	if s := a.AccountSettings; s != nil {
		out.Settings = model.AccountSettings{
			ReadReceipts:                    s.ReadReceipts,
			SealedSenderIndicators:          s.SealedSenderIndicators,
			TypingIndicators:                s.TypingIndicators,
			LinkPreviews:                    s.LinkPreviews,
			NotDiscoverableByPhoneNumber:    s.NotDiscoverableByPhoneNumber,
			PreferContactAvatars:            s.PreferContactAvatars,
			UniversalExpireTimerSeconds:     s.UniversalExpireTimerSeconds,
			PreferredReactionEmoji:          s.PreferredReactionEmoji,
			DisplayBadgesOnProfile:          s.DisplayBadgesOnProfile,
			KeepMutedChatsArchived:          s.KeepMutedChatsArchived,
			HasSetMyStoriesPrivacy:          s.HasSetMyStoriesPrivacy,
			HasViewedOnboardingStory:        s.HasViewedOnboardingStory,
			StoriesDisabled:                 s.StoriesDisabled,
			StoryViewReceiptsEnabled:        s.StoryViewReceiptsEnabled,
			HasSeenGroupStoryEducationSheet: s.HasSeenGroupStoryEducationSheet,
			HasCompletedUsernameOnboarding:  s.HasCompletedUsernameOnboarding,
			PhoneNumberSharingMode:          int32(s.PhoneNumberSharingMode),
		}
	}
	return out
}

// recipientToFrame uses local row ids as stream-local ids.
func recipientToFrame(r *model.Recipient) (*frame.Recipient, error) {
	out := &frame.Recipient{ID: uint64(r.ID)}
	switch r.Kind {
	case model.RecipientSelf:
		out.Self = &frame.Self{}
	case model.RecipientContact:
		out.Contact = &frame.Contact{
			ACI:                   uuidBytes(r.ACI),
			PNI:                   uuidBytes(r.PNI),
			Username:              r.Username,
			E164:                  r.E164,
			Blocked:               r.Blocked,
			Hidden:                r.Hidden,
			Registration:          frame.Registration(r.Registration),
			UnregisteredTimestamp: uint64(r.UnregisteredTimestamp),
			ProfileKey:            r.ProfileKey,
			ProfileSharing:        r.ProfileSharing,
			ProfileGivenName:      r.GivenName,
			ProfileFamilyName:     r.FamilyName,
			HideStory:             r.HideStory,
		}
	case model.RecipientGroup:
		out.Group = &frame.Group{
			MasterKey:     r.GroupMasterKey,
			Whitelisted:   r.ProfileSharing,
			HideStory:     r.HideStory,
			StorySendMode: frame.StorySendMode(r.StorySendMode),
		}
	case model.RecipientDistributionList:
		var members []uint64
		for _, m := range r.Members {
			members = append(members, uint64(m))
		}
		out.DistributionList = &frame.DistributionList{
			DistributionID:     uuidBytes(r.DistributionID),
			Name:               r.DistributionName,
			AllowReplies:       r.AllowReplies,
			PrivacyMode:        frame.PrivacyMode(r.PrivacyMode),
			MemberRecipientIDs: members,
			DeletionTimestamp:  uint64(r.DeletionTimestamp),
		}
	case model.RecipientCallLink:
		out.CallLink = &frame.CallLink{
			RootKey:      r.CallLinkRootKey,
			AdminKey:     r.CallLinkAdminKey,
			Name:         r.CallLinkName,
			Restrictions: frame.CallLinkRestrictions(r.CallLinkRestrictions),
			ExpirationMs: uint64(r.CallLinkExpiration),
		}
	default:
		return nil, fmt.Errorf("recipient %d has unknown kind %d", r.ID, r.Kind)
	}
	return out, nil
}

// recipientFromFrame converts a non-self recipient. members are the already
// remapped local ids of a distribution list.
func recipientFromFrame(r *frame.Recipient, members []int64) (*model.Recipient, error) {
	out := &model.Recipient{}
	var err error
	switch {
	case r.Contact != nil:
		c := r.Contact
		out.Kind = model.RecipientContact
		if out.ACI, err = nullUUID("contact aci", c.ACI); err != nil {
			return nil, err
		}
		if out.PNI, err = nullUUID("contact pni", c.PNI); err != nil {
			return nil, err
		}
		out.E164 = c.E164
		out.Username = c.Username
		out.Blocked = c.Blocked
		out.Hidden = c.Hidden
		out.Registration = int32(c.Registration)
		out.UnregisteredTimestamp = int64(c.UnregisteredTimestamp)
		out.ProfileKey = c.ProfileKey
		out.ProfileSharing = c.ProfileSharing
		out.GivenName = c.ProfileGivenName
		out.FamilyName = c.ProfileFamilyName
		out.HideStory = c.HideStory
	case r.Group != nil:
		out.Kind = model.RecipientGroup
		out.GroupMasterKey = r.Group.MasterKey
		out.ProfileSharing = r.Group.Whitelisted
		out.HideStory = r.Group.HideStory
		out.StorySendMode = int32(r.Group.StorySendMode)
	case r.DistributionList != nil:
		d := r.DistributionList
		out.Kind = model.RecipientDistributionList
		if out.DistributionID, err = nullUUID("distribution id", d.DistributionID); err != nil {
			return nil, err
		}
		out.DistributionName = d.Name
		out.AllowReplies = d.AllowReplies
		out.PrivacyMode = int32(d.PrivacyMode)
		out.DeletionTimestamp = int64(d.DeletionTimestamp)
		out.Members = members
	case r.CallLink != nil:
		l := r.CallLink
		out.Kind = model.RecipientCallLink
		out.CallLinkRootKey = l.RootKey
		out.CallLinkAdminKey = l.AdminKey
		out.CallLinkName = l.Name
		out.CallLinkRestrictions = int32(l.Restrictions)
		out.CallLinkExpiration = int64(l.ExpirationMs)
	default:
		return nil, fmt.Errorf("%w: recipient %d has no storable destination", ErrSchemaViolation, r.ID)
	}
	return out, nil
}

func chatToFrame(c *model.Conversation) *frame.Chat {
	t, p := c.Thread, c.Preferences
	out := &frame.Chat{
		ID:                           uint64(t.ID),
		RecipientID:                  uint64(t.RecipientID),
		Archived:                     t.Archived,
		PinnedOrder:                  uint32(t.Pinned),
		ExpirationTimerMs:            uint64(p.ExpiresInMs),
		ExpireTimerVersion:           uint32(p.ExpiresVersion),
		MuteUntilMs:                  uint64(p.MuteUntil),
		MarkedUnread:                 t.Read == model.ReadStatusForcedUnread,
		DontNotifyForMentionsIfMuted: p.MentionSetting == model.MentionDoNotNotify,
	}
	if p.Style != model.ChatStyleNone || p.DimWallpaper {
		out.Style = &frame.ChatStyle{DimWallpaperInDarkMode: p.DimWallpaper}
		switch p.Style {
		case model.ChatStyleAuto:
			out.Style.BubbleColor = frame.BubbleColorAuto
		case model.ChatStylePreset:
			out.Style.BubbleColor = frame.BubbleColorUsePreset
			out.Style.Preset = frame.BubbleColorPreset(p.ColorPreset)
		}
	}
	return out
}

func conversationFromFrame(c *frame.Chat, recipientID int64) *model.Conversation {
	out := &model.Conversation{
		Thread: model.Thread{
			RecipientID: recipientID,
			Pinned:      int(c.PinnedOrder),
			Archived:    c.Archived,
			Read:        model.ReadStatusRead,
			Active:      true,
		},
		Preferences: model.ChatPreferences{
			MuteUntil:      int64(c.MuteUntilMs),
			ExpiresInMs:    int64(c.ExpirationTimerMs),
			ExpiresVersion: int32(c.ExpireTimerVersion),
		},
	}
	if c.MarkedUnread {
		out.Thread.Read = model.ReadStatusForcedUnread
	}
	if c.DontNotifyForMentionsIfMuted {
		out.Preferences.MentionSetting = model.MentionDoNotNotify
	}
	if s := c.Style; s != nil {
		out.Preferences.DimWallpaper = s.DimWallpaperInDarkMode
		switch s.BubbleColor {
		case frame.BubbleColorAuto:
			out.Preferences.Style = model.ChatStyleAuto
		case frame.BubbleColorUsePreset:
			out.Preferences.Style = model.ChatStylePreset
			out.Preferences.ColorPreset = int32(s.Preset)
		}
	}
	return out
}

func chatItemToFrame(m *model.Message) (*frame.ChatItem, error) {
	out := &frame.ChatItem{
		ChatID:          uint64(m.ThreadID),
		AuthorID:        uint64(m.AuthorID),
		DateSent:        uint64(m.DateSent),
		ExpireStartDate: uint64(m.ExpireStarted),
		ExpiresInMs:     uint64(m.ExpiresIn),
		SMS:             m.SMS,
	}

	switch m.Direction {
	case model.DirectionIncoming:
		out.Incoming = &frame.IncomingMessageDetails{
			DateReceived:   uint64(m.DateReceived),
			DateServerSent: uint64(m.DateServer),
			Read:           m.Read,
			SealedSender:   m.SealedSender,
		}
	case model.DirectionOutgoing:
		out.Outgoing = &frame.OutgoingMessageDetails{}
		for _, s := range m.SendStatuses {
			out.Outgoing.SendStatus = append(out.Outgoing.SendStatus, &frame.SendStatus{
				RecipientID:               uint64(s.RecipientID),
				Status:                    frame.DeliveryStatus(s.Status),
				NetworkFailure:            s.NetworkFailure,
				IdentityKeyMismatch:       s.IdentityKeyMismatch,
				SealedSender:              s.SealedSender,
				LastStatusUpdateTimestamp: uint64(s.UpdatedAt),
			})
		}
	case model.DirectionNone:
		out.Directionless = &frame.DirectionlessMessageDetails{}
	default:
		return nil, fmt.Errorf("message %d has unknown direction %d", m.ID, m.Direction)
	}

	switch m.Kind {
	case model.MessageStandard:
		out.StandardMessage = &frame.StandardMessage{Text: m.Body}
		for _, r := range m.Reactions {
			out.StandardMessage.Reactions = append(out.StandardMessage.Reactions, &frame.Reaction{
				Emoji:         r.Emoji,
				AuthorID:      uint64(r.AuthorID),
				SentTimestamp: uint64(r.SentAt),
				SortOrder:     uint64(r.SortOrder),
			})
		}
	case model.MessageRemoteDeleted:
		out.RemoteDeletedMessage = &frame.RemoteDeletedMessage{}
	case model.MessageUpdate:
		out.UpdateMessage = &frame.ChatUpdateMessage{
			SimpleUpdate: &frame.SimpleChatUpdate{Type: frame.SimpleUpdateType(m.UpdateType)},
		}
	default:
		return nil, fmt.Errorf("message %d has unknown kind %d", m.ID, m.Kind)
	}

	for _, rev := range m.Revisions {
		r, err := chatItemToFrame(rev)
		if err != nil {
			return nil, err
		}
		out.Revisions = append(out.Revisions, r)
	}
	return out, nil
}

// chatItemFromFrame converts a chat item whose chat and author have already
// been resolved. recipient resolves the stream-local ids nested inside it.
func chatItemFromFrame(c *frame.ChatItem, threadID, authorID int64, recipient func(uint64) (int64, error)) (*model.Message, error) {
	out := &model.Message{
		ThreadID:      threadID,
		AuthorID:      authorID,
		DateSent:      int64(c.DateSent),
		ExpireStarted: int64(c.ExpireStartDate),
		ExpiresIn:     int64(c.ExpiresInMs),
		SMS:           c.SMS,
	}

	switch {
	case c.Incoming != nil:
		out.Direction = model.DirectionIncoming
		out.DateReceived = int64(c.Incoming.DateReceived)
		out.DateServer = int64(c.Incoming.DateServerSent)
		out.Read = c.Incoming.Read
		out.SealedSender = c.Incoming.SealedSender
	case c.Outgoing != nil:
		out.Direction = model.DirectionOutgoing
		for _, s := range c.Outgoing.SendStatus {
			id, err := recipient(s.RecipientID)
			if err != nil {
				return nil, fmt.Errorf("send status: %w", err)
			}
			out.SendStatuses = append(out.SendStatuses, model.SendStatus{
				RecipientID:         id,
				Status:              int32(s.Status),
				NetworkFailure:      s.NetworkFailure,
				IdentityKeyMismatch: s.IdentityKeyMismatch,
				SealedSender:        s.SealedSender,
				UpdatedAt:           int64(s.LastStatusUpdateTimestamp),
			})
		}
	default:
		out.Direction = model.DirectionNone
	}

	switch {
	case c.StandardMessage != nil:
		out.Kind = model.MessageStandard
		out.Body = c.StandardMessage.Text
		for _, r := range c.StandardMessage.Reactions {
			id, err := recipient(r.AuthorID)
			if err != nil {
				return nil, fmt.Errorf("reaction: %w", err)
			}
			out.Reactions = append(out.Reactions, model.Reaction{
				AuthorID:  id,
				Emoji:     r.Emoji,
				SentAt:    int64(r.SentTimestamp),
				SortOrder: int64(r.SortOrder),
			})
		}
	case c.RemoteDeletedMessage != nil:
		out.Kind = model.MessageRemoteDeleted
	default:
		out.Kind = model.MessageUpdate
		out.UpdateType = int32(c.UpdateMessage.SimpleUpdate.Type)
	}

	for _, rev := range c.Revisions {
		r, err := chatItemFromFrame(rev, threadID, authorID, recipient)
		if err != nil {
			return nil, fmt.Errorf("revision: %w", err)
		}
		out.Revisions = append(out.Revisions, r)
	}
	return out, nil
}

func callToFrame(c *model.Call) *frame.Call {
	return &frame.Call{
		CallID:                  c.CallID,
		ConversationRecipientID: uint64(c.PeerID),
		Type:                    frame.CallType(c.Type),
		Outgoing:                c.Outgoing,
		Timestamp:               uint64(c.Timestamp),
		RingerRecipientID:       uint64(c.RingerID),
		Event:                   frame.CallEvent(c.Event),
	}
}

func callFromFrame(c *frame.Call, peerID, ringerID int64) *model.Call {
	return &model.Call{
		CallID:    c.CallID,
		PeerID:    peerID,
		Type:      int32(c.Type),
		Outgoing:  c.Outgoing,
		Timestamp: int64(c.Timestamp),
		RingerID:  ringerID,
		Event:     int32(c.Event),
	}
}

func stickerPackToFrame(p *model.StickerPack) *frame.StickerPack {
	out := &frame.StickerPack{PackID: p.PackID, PackKey: p.PackKey, Title: p.Title, Author: p.Author}
	for _, s := range p.Stickers {
		out.Stickers = append(out.Stickers, &frame.PackSticker{ID: s.ID, Emoji: s.Emoji})
	}
	return out
}

func stickerPackFromFrame(p *frame.StickerPack) *model.StickerPack {
	out := &model.StickerPack{PackID: p.PackID, PackKey: p.PackKey, Title: p.Title, Author: p.Author}
	for _, s := range p.Stickers {
		out.Stickers = append(out.Stickers, model.Sticker{ID: s.ID, Emoji: s.Emoji})
	}
	return out
}
