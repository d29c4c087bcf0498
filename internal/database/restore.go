package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"mbk-go/internal/mb"
	"mbk-go/internal/model"
)

// restoreTx applies an import inside one write transaction.
type restoreTx struct {
	tx *sql.Tx
}

var _ mb.RestoreTx = (*restoreTx)(nil)

// clearStatements run in dependency order. The self recipient and the
// operation log survive.
var clearStatements = []string{
	`DELETE FROM reactions`,
	`DELETE FROM message_send_status`,
	`DELETE FROM messages`,
	`DELETE FROM threads`,
	`DELETE FROM distribution_list_members`,
	`DELETE FROM calls`,
	`DELETE FROM stickers`,
	`DELETE FROM sticker_packs`,
	`DELETE FROM preferred_reaction_emoji`,
	`DELETE FROM account`,
}

func (r *restoreTx) ClearForRestore(ctx context.Context, self model.SelfIdentity) (int64, error) {
	for _, stmt := range clearStatements {
		if _, err := r.tx.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("clearing: %w", err)
		}
	}

	var selfID int64
	err := r.tx.QueryRowContext(ctx,
		`SELECT id FROM recipients WHERE kind = ? ORDER BY id LIMIT 1`, model.RecipientSelf,
	).Scan(&selfID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("finding self recipient: %w", err)
	}
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM recipients WHERE id != ?`, selfID); err != nil {
		return 0, fmt.Errorf("clearing recipients: %w", err)
	}

	// The self recipient is the only row left; give it id 1 so restored
	// ids start from a clean sequence.
	if selfID == 0 {
		_, err = r.tx.ExecContext(ctx, `INSERT INTO recipients (id, kind) VALUES (1, ?)`, model.RecipientSelf)
	} else if selfID != 1 {
		_, err = r.tx.ExecContext(ctx, `UPDATE recipients SET id = 1 WHERE id = ?`, selfID)
	}
	if err != nil {
		return 0, fmt.Errorf("placing self recipient: %w", err)
	}
	if _, err := r.tx.ExecContext(ctx, `DELETE FROM sqlite_sequence WHERE name != 'backup_operations'`); err != nil {
		return 0, fmt.Errorf("resetting sequences: %w", err)
	}

	_, err = r.tx.ExecContext(ctx, `
		UPDATE recipients SET
			aci = ?, pni = ?, e164 = ?, profile_key = ?,
			mention_setting = 0, mute_until = 0, expires_in_ms = 0, expires_version = 0,
			chat_style = 0, color_preset = 0, dim_wallpaper = 0
		WHERE id = 1`,
		uuid.NullUUID{UUID: self.ACI, Valid: true}, self.PNI, int64(self.E164), self.ProfileKey,
	)
	if err != nil {
		return 0, fmt.Errorf("updating self recipient: %w", err)
	}
	return 1, nil
}

func (r *restoreTx) SetAccount(ctx context.Context, a *model.Account) error {
	var link model.UsernameLink
	if a.UsernameLink != nil {
		link = *a.UsernameLink
	}
	st := a.Settings
	_, err := r.tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO account (
			id, profile_key, username, has_username_link, username_link_entropy, username_link_server_id,
			username_link_color, given_name, family_name, avatar_url_path, subscriber_id,
			subscriber_currency_code, subscription_manually_cancelled,
			read_receipts, sealed_sender_indicators, typing_indicators, link_previews,
			not_discoverable_by_phone_number, prefer_contact_avatars, universal_expire_timer_seconds,
			display_badges_on_profile, keep_muted_chats_archived, has_set_my_stories_privacy,
			has_viewed_onboarding_story, stories_disabled, story_view_receipts_enabled,
			has_seen_group_story_education_sheet, has_completed_username_onboarding,
			phone_number_sharing_mode
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ProfileKey, a.Username, a.UsernameLink != nil, link.Entropy, link.ServerID,
		link.Color, a.GivenName, a.FamilyName, a.AvatarURLPath, a.SubscriberID,
		a.SubscriberCurrencyCode, a.SubscriptionManuallyCancelled,
		st.ReadReceipts, st.SealedSenderIndicators, st.TypingIndicators, st.LinkPreviews,
		st.NotDiscoverableByPhoneNumber, st.PreferContactAvatars, st.UniversalExpireTimerSeconds,
		st.DisplayBadgesOnProfile, st.KeepMutedChatsArchived, st.HasSetMyStoriesPrivacy,
		st.HasViewedOnboardingStory, st.StoriesDisabled, st.StoryViewReceiptsEnabled,
		st.HasSeenGroupStoryEducationSheet, st.HasCompletedUsernameOnboarding,
		st.PhoneNumberSharingMode,
	)
	if err != nil {
		return fmt.Errorf("writing account: %w", err)
	}

	if _, err := r.tx.ExecContext(ctx, `DELETE FROM preferred_reaction_emoji`); err != nil {
		return fmt.Errorf("clearing preferred reaction emoji: %w", err)
	}
	for i, e := range st.PreferredReactionEmoji {
		if _, err := r.tx.ExecContext(ctx,
			`INSERT INTO preferred_reaction_emoji (position, emoji) VALUES (?, ?)`, i, e,
		); err != nil {
			return fmt.Errorf("writing preferred reaction emoji: %w", err)
		}
	}

	_, err = r.tx.ExecContext(ctx, `
		UPDATE recipients SET profile_key = ?, username = ?, given_name = ?, family_name = ?
		WHERE kind = ?`,
		a.ProfileKey, a.Username, a.GivenName, a.FamilyName, model.RecipientSelf,
	)
	if err != nil {
		return fmt.Errorf("updating self profile: %w", err)
	}
	return nil
}

func (r *restoreTx) InsertRecipient(ctx context.Context, rec *model.Recipient) (int64, error) {
	if rec.Kind == model.RecipientSelf {
		return 0, errors.New("self recipient is created by ClearForRestore")
	}
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO recipients (
			kind, aci, pni, e164, username, blocked, hidden, registration,
			unregistered_timestamp, profile_key, profile_sharing, given_name, family_name, hide_story,
			group_master_key, story_send_mode,
			distribution_id, distribution_name, allow_replies, privacy_mode, deletion_timestamp,
			call_link_root_key, call_link_admin_key, call_link_name, call_link_restrictions, call_link_expiration
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Kind, rec.ACI, rec.PNI, int64(rec.E164), rec.Username, rec.Blocked, rec.Hidden, rec.Registration,
		rec.UnregisteredTimestamp, rec.ProfileKey, rec.ProfileSharing, rec.GivenName, rec.FamilyName, rec.HideStory,
		rec.GroupMasterKey, rec.StorySendMode,
		rec.DistributionID, rec.DistributionName, rec.AllowReplies, rec.PrivacyMode, rec.DeletionTimestamp,
		rec.CallLinkRootKey, rec.CallLinkAdminKey, rec.CallLinkName, rec.CallLinkRestrictions, rec.CallLinkExpiration,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, m := range rec.Members {
		if _, err := r.tx.ExecContext(ctx,
			`INSERT INTO distribution_list_members (list_id, position, member_id) VALUES (?, ?, ?)`, id, i, m,
		); err != nil {
			return 0, fmt.Errorf("adding list member: %w", err)
		}
	}
	return id, nil
}

func (r *restoreTx) InsertConversation(ctx context.Context, c *model.Conversation) (int64, error) {
	t, p := c.Thread, c.Preferences
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO threads (recipient_id, pinned, archived, read_status, active) VALUES (?, ?, ?, ?, ?)`,
		t.RecipientID, t.Pinned, t.Archived, t.Read, t.Active,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = r.tx.ExecContext(ctx, `
		UPDATE recipients SET
			mention_setting = ?, mute_until = ?, expires_in_ms = ?, expires_version = ?,
			chat_style = ?, color_preset = ?, dim_wallpaper = ?
		WHERE id = ?`,
		p.MentionSetting, p.MuteUntil, p.ExpiresInMs, p.ExpiresVersion,
		p.Style, p.ColorPreset, p.DimWallpaper, t.RecipientID,
	)
	if err != nil {
		return 0, fmt.Errorf("writing chat preferences: %w", err)
	}
	return id, nil
}

func (r *restoreTx) InsertMessage(ctx context.Context, m *model.Message) (int64, error) {
	id, err := r.insertMessageRow(ctx, m, sql.NullInt64{})
	if err != nil {
		return 0, err
	}
	for _, rev := range m.Revisions {
		if _, err := r.insertMessageRow(ctx, rev, sql.NullInt64{Int64: id, Valid: true}); err != nil {
			return 0, fmt.Errorf("inserting revision: %w", err)
		}
	}
	return id, nil
}

func (r *restoreTx) insertMessageRow(ctx context.Context, m *model.Message, latest sql.NullInt64) (int64, error) {
	res, err := r.tx.ExecContext(ctx, `
		INSERT INTO messages (
			thread_id, author_id, date_sent, date_received, date_server, expire_started, expires_in,
			read, sealed_sender, sms, direction, kind, body, update_type, latest_revision_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ThreadID, m.AuthorID, m.DateSent, m.DateReceived, m.DateServer, m.ExpireStarted, m.ExpiresIn,
		m.Read, m.SealedSender, m.SMS, m.Direction, m.Kind, m.Body, m.UpdateType, latest,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, s := range m.SendStatuses {
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO message_send_status (
				message_id, position, recipient_id, status, network_failure, identity_key_mismatch, sealed_sender, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, i, s.RecipientID, s.Status, s.NetworkFailure, s.IdentityKeyMismatch, s.SealedSender, s.UpdatedAt,
		); err != nil {
			return 0, fmt.Errorf("inserting send status: %w", err)
		}
	}
	for i, rx := range m.Reactions {
		if _, err := r.tx.ExecContext(ctx, `
			INSERT INTO reactions (message_id, position, author_id, emoji, sent_at, sort_order)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, i, rx.AuthorID, rx.Emoji, rx.SentAt, rx.SortOrder,
		); err != nil {
			return 0, fmt.Errorf("inserting reaction: %w", err)
		}
	}
	return id, nil
}

func (r *restoreTx) InsertCall(ctx context.Context, c *model.Call) error {
	ringer := sql.NullInt64{Int64: c.RingerID, Valid: c.RingerID != 0}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO calls (call_id, peer_id, type, outgoing, timestamp, ringer_id, event)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(c.CallID), c.PeerID, c.Type, c.Outgoing, c.Timestamp, ringer, c.Event,
	)
	return err
}

func (r *restoreTx) InsertStickerPack(ctx context.Context, p *model.StickerPack) error {
	res, err := r.tx.ExecContext(ctx,
		`INSERT INTO sticker_packs (pack_id, pack_key, title, author) VALUES (?, ?, ?, ?)`,
		p.PackID, p.PackKey, p.Title, p.Author,
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	for i, s := range p.Stickers {
		if _, err := r.tx.ExecContext(ctx,
			`INSERT INTO stickers (pack_row_id, position, sticker_id, emoji) VALUES (?, ?, ?, ?)`,
			id, i, s.ID, s.Emoji,
		); err != nil {
			return fmt.Errorf("inserting sticker: %w", err)
		}
	}
	return nil
}

func (r *restoreTx) Commit() error {
	return r.tx.Commit()
}

func (r *restoreTx) Rollback() error {
	if err := r.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
