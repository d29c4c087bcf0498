package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"

	"mbk-go/internal/mb"
	"mbk-go/internal/model"
)

// snapshot reads through one transaction so every source sees the same
// state.
type snapshot struct {
	tx *sql.Tx
}

var _ mb.ExportSnapshot = (*snapshot)(nil)

func (s *snapshot) Account(ctx context.Context) (*model.Account, error) {
	var (
		a       model.Account
		st      = &a.Settings
		hasLink bool
		link    model.UsernameLink
	)
	err := s.tx.QueryRowContext(ctx, `
		SELECT profile_key, username, has_username_link, username_link_entropy, username_link_server_id,
			username_link_color, given_name, family_name, avatar_url_path, subscriber_id,
			subscriber_currency_code, subscription_manually_cancelled,
			read_receipts, sealed_sender_indicators, typing_indicators, link_previews,
			not_discoverable_by_phone_number, prefer_contact_avatars, universal_expire_timer_seconds,
			display_badges_on_profile, keep_muted_chats_archived, has_set_my_stories_privacy,
			has_viewed_onboarding_story, stories_disabled, story_view_receipts_enabled,
			has_seen_group_story_education_sheet, has_completed_username_onboarding,
			phone_number_sharing_mode
		FROM account WHERE id = 1`,
	).Scan(
		&a.ProfileKey, &a.Username, &hasLink, &link.Entropy, &link.ServerID,
		&link.Color, &a.GivenName, &a.FamilyName, &a.AvatarURLPath, &a.SubscriberID,
		&a.SubscriberCurrencyCode, &a.SubscriptionManuallyCancelled,
		&st.ReadReceipts, &st.SealedSenderIndicators, &st.TypingIndicators, &st.LinkPreviews,
		&st.NotDiscoverableByPhoneNumber, &st.PreferContactAvatars, &st.UniversalExpireTimerSeconds,
		&st.DisplayBadgesOnProfile, &st.KeepMutedChatsArchived, &st.HasSetMyStoriesPrivacy,
		&st.HasViewedOnboardingStory, &st.StoriesDisabled, &st.StoryViewReceiptsEnabled,
		&st.HasSeenGroupStoryEducationSheet, &st.HasCompletedUsernameOnboarding,
		&st.PhoneNumberSharingMode,
	)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("reading account: %w", err)
	}
	if hasLink {
		a.UsernameLink = &link
	}

	emoji, err := queryList(ctx, s.tx,
		`SELECT emoji FROM preferred_reaction_emoji ORDER BY position`,
		func(sc rowScanner) (string, error) {
			var e string
			return e, sc.Scan(&e)
		})
	if err != nil {
		return nil, fmt.Errorf("reading preferred reaction emoji: %w", err)
	}
	st.PreferredReactionEmoji = emoji
	return &a, nil
}

func (s *snapshot) Recipients(ctx context.Context) iter.Seq2[*model.Recipient, error] {
	scan := func(sc rowScanner) (*model.Recipient, int64, error) {
		r, err := scanRecipient(sc)
		if err != nil {
			return nil, 0, err
		}
		return r, r.ID, nil
	}
	query := func(cond string) string {
		return `SELECT ` + recipientColumns + ` FROM recipients WHERE ` + cond + ` AND id > ? ORDER BY id LIMIT ?`
	}
	selfCond := fmt.Sprintf("kind = %d", model.RecipientSelf)
	otherCond := fmt.Sprintf("kind NOT IN (%d, %d)", model.RecipientSelf, model.RecipientDistributionList)
	listCond := fmt.Sprintf("kind = %d", model.RecipientDistributionList)

	seq := func(yield func(*model.Recipient, error) bool) {
		for _, part := range []iter.Seq2[*model.Recipient, error]{
			paged(ctx, s.tx, query(selfCond), scan, nil),
			paged(ctx, s.tx, query(otherCond), scan, nil),
			paged(ctx, s.tx, query(listCond), scan, s.attachMembers),
		} {
			for r, err := range part {
				if !yield(r, err) || err != nil {
					return
				}
			}
		}
	}
	return wrapSeq("recipients", seq)
}

func (s *snapshot) attachMembers(ctx context.Context, r *model.Recipient, id int64) error {
	members, err := queryList(ctx, s.tx,
		`SELECT member_id FROM distribution_list_members WHERE list_id = ? ORDER BY position`,
		func(sc rowScanner) (int64, error) {
			var m int64
			return m, sc.Scan(&m)
		}, id)
	if err != nil {
		return fmt.Errorf("reading members of list %d: %w", id, err)
	}
	r.Members = members
	return nil
}

func (s *snapshot) Conversations(ctx context.Context) iter.Seq2[*model.Conversation, error] {
	scan := func(sc rowScanner) (*model.Conversation, int64, error) {
		var (
			c model.Conversation
			t = &c.Thread
			p = &c.Preferences
		)
		err := sc.Scan(
			&t.ID, &t.RecipientID, &t.Pinned, &t.Archived, &t.Read, &t.Active,
			&p.MentionSetting, &p.MuteUntil, &p.ExpiresInMs, &p.ExpiresVersion,
			&p.Style, &p.ColorPreset, &p.DimWallpaper,
		)
		if err != nil {
			return nil, 0, err
		}
		return &c, t.ID, nil
	}
	return wrapSeq("conversations", paged(ctx, s.tx, `
		SELECT t.id, t.recipient_id, t.pinned, t.archived, t.read_status, t.active,
			r.mention_setting, r.mute_until, r.expires_in_ms, r.expires_version,
			r.chat_style, r.color_preset, r.dim_wallpaper
		FROM threads t JOIN recipients r ON r.id = t.recipient_id
		WHERE t.active = 1 AND t.id > ? ORDER BY t.id LIMIT ?`,
		scan, nil))
}

func (s *snapshot) Messages(ctx context.Context) iter.Seq2[*model.Message, error] {
	scan := func(sc rowScanner) (*model.Message, int64, error) {
		m, err := scanMessage(sc)
		if err != nil {
			return nil, 0, err
		}
		return m, m.ID, nil
	}
	return wrapSeq("messages", paged(ctx, s.tx, `
		SELECT `+messageColumns+`
		FROM messages m JOIN threads t ON t.id = m.thread_id
		WHERE t.active = 1 AND m.latest_revision_id IS NULL AND m.id > ?
		ORDER BY m.id LIMIT ?`,
		scan, s.attachMessage))
}

func (s *snapshot) attachMessage(ctx context.Context, m *model.Message, id int64) error {
	if err := s.attachChildren(ctx, m); err != nil {
		return err
	}
	revs, err := queryList(ctx, s.tx,
		`SELECT `+messageColumns+` FROM messages m WHERE m.latest_revision_id = ? ORDER BY m.id`,
		scanMessage, id)
	if err != nil {
		return fmt.Errorf("reading revisions of message %d: %w", id, err)
	}
	for _, rev := range revs {
		if err := s.attachChildren(ctx, rev); err != nil {
			return err
		}
	}
	m.Revisions = revs
	return nil
}

func (s *snapshot) attachChildren(ctx context.Context, m *model.Message) error {
	statuses, err := queryList(ctx, s.tx, `
		SELECT recipient_id, status, network_failure, identity_key_mismatch, sealed_sender, updated_at
		FROM message_send_status WHERE message_id = ? ORDER BY position`,
		func(sc rowScanner) (model.SendStatus, error) {
			var st model.SendStatus
			err := sc.Scan(&st.RecipientID, &st.Status, &st.NetworkFailure, &st.IdentityKeyMismatch, &st.SealedSender, &st.UpdatedAt)
			return st, err
		}, m.ID)
	if err != nil {
		return fmt.Errorf("reading send status of message %d: %w", m.ID, err)
	}
	reactions, err := queryList(ctx, s.tx, `
		SELECT author_id, emoji, sent_at, sort_order
		FROM reactions WHERE message_id = ? ORDER BY position`,
		func(sc rowScanner) (model.Reaction, error) {
			var r model.Reaction
			err := sc.Scan(&r.AuthorID, &r.Emoji, &r.SentAt, &r.SortOrder)
			return r, err
		}, m.ID)
	if err != nil {
		return fmt.Errorf("reading reactions of message %d: %w", m.ID, err)
	}
	m.SendStatuses = statuses
	m.Reactions = reactions
	return nil
}

func (s *snapshot) Calls(ctx context.Context) iter.Seq2[*model.Call, error] {
	scan := func(sc rowScanner) (*model.Call, int64, error) {
		var (
			c      model.Call
			id     int64
			callID int64
			ringer sql.NullInt64
		)
		if err := sc.Scan(&id, &callID, &c.PeerID, &c.Type, &c.Outgoing, &c.Timestamp, &ringer, &c.Event); err != nil {
			return nil, 0, err
		}
		c.CallID = uint64(callID)
		c.RingerID = ringer.Int64
		return &c, id, nil
	}
	return wrapSeq("calls", paged(ctx, s.tx, `
		SELECT id, call_id, peer_id, type, outgoing, timestamp, ringer_id, event
		FROM calls WHERE id > ? ORDER BY id LIMIT ?`,
		scan, nil))
}

func (s *snapshot) StickerPacks(ctx context.Context) iter.Seq2[*model.StickerPack, error] {
	scan := func(sc rowScanner) (*model.StickerPack, int64, error) {
		var (
			p  model.StickerPack
			id int64
		)
		if err := sc.Scan(&id, &p.PackID, &p.PackKey, &p.Title, &p.Author); err != nil {
			return nil, 0, err
		}
		return &p, id, nil
	}
	attach := func(ctx context.Context, p *model.StickerPack, id int64) error {
		stickers, err := queryList(ctx, s.tx,
			`SELECT sticker_id, emoji FROM stickers WHERE pack_row_id = ? ORDER BY position`,
			func(sc rowScanner) (model.Sticker, error) {
				var st model.Sticker
				err := sc.Scan(&st.ID, &st.Emoji)
				return st, err
			}, id)
		if err != nil {
			return fmt.Errorf("reading stickers of pack %x: %w", p.PackID, err)
		}
		p.Stickers = stickers
		return nil
	}
	return wrapSeq("sticker packs", paged(ctx, s.tx, `
		SELECT id, pack_id, pack_key, title, author
		FROM sticker_packs WHERE id > ? ORDER BY id LIMIT ?`,
		scan, attach))
}

// Close ends the read transaction.
func (s *snapshot) Close() error {
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
