package database

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	"mbk-go/internal/model"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

const recipientColumns = `id, kind, aci, pni, e164, username, blocked, hidden, registration,
	unregistered_timestamp, profile_key, profile_sharing, given_name, family_name, hide_story,
	group_master_key, story_send_mode,
	distribution_id, distribution_name, allow_replies, privacy_mode, deletion_timestamp,
	call_link_root_key, call_link_admin_key, call_link_name, call_link_restrictions, call_link_expiration`

func scanRecipient(sc rowScanner) (*model.Recipient, error) {
	var (
		r    model.Recipient
		e164 int64
	)
	err := sc.Scan(
		&r.ID, &r.Kind, &r.ACI, &r.PNI, &e164, &r.Username, &r.Blocked, &r.Hidden, &r.Registration,
		&r.UnregisteredTimestamp, &r.ProfileKey, &r.ProfileSharing, &r.GivenName, &r.FamilyName, &r.HideStory,
		&r.GroupMasterKey, &r.StorySendMode,
		&r.DistributionID, &r.DistributionName, &r.AllowReplies, &r.PrivacyMode, &r.DeletionTimestamp,
		&r.CallLinkRootKey, &r.CallLinkAdminKey, &r.CallLinkName, &r.CallLinkRestrictions, &r.CallLinkExpiration,
	)
	if err != nil {
		return nil, err
	}
	r.E164 = uint64(e164)
	return &r, nil
}

const messageColumns = `m.id, m.thread_id, m.author_id, m.date_sent, m.date_received, m.date_server,
	m.expire_started, m.expires_in, m.read, m.sealed_sender, m.sms, m.direction, m.kind, m.body, m.update_type`

func scanMessage(sc rowScanner) (*model.Message, error) {
	var m model.Message
	err := sc.Scan(
		&m.ID, &m.ThreadID, &m.AuthorID, &m.DateSent, &m.DateReceived, &m.DateServer,
		&m.ExpireStarted, &m.ExpiresIn, &m.Read, &m.SealedSender, &m.SMS, &m.Direction, &m.Kind, &m.Body, &m.UpdateType,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// pageSize bounds how many rows a snapshot reads per query. Child rows are
// loaded between pages so no two cursors are open at once.
const pageSize = 256

// paged yields the rows of query one page at a time. query must end in
// "id > ? ORDER BY id LIMIT ?" on the paging key; scan returns each row's
// key. attach, if set, loads child rows before the value is yielded.
func paged[T any](
	ctx context.Context,
	q querier,
	query string,
	scan func(rowScanner) (T, int64, error),
	attach func(ctx context.Context, v T, key int64) error,
) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		after := int64(0)
		for {
			vals, keys, err := loadPage(ctx, q, query, after, scan)
			if err != nil {
				yield(zero, err)
				return
			}
			for i, v := range vals {
				if attach != nil {
					if err := attach(ctx, v, keys[i]); err != nil {
						yield(zero, err)
						return
					}
				}
				if !yield(v, nil) {
					return
				}
			}
			if len(vals) < pageSize {
				return
			}
			after = keys[len(keys)-1]
		}
	}
}

func loadPage[T any](ctx context.Context, q querier, query string, after int64, scan func(rowScanner) (T, int64, error)) ([]T, []int64, error) {
	rows, err := q.QueryContext(ctx, query, after, pageSize)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var (
		vals []T
		keys []int64
	)
	for rows.Next() {
		v, key, err := scan(rows)
		if err != nil {
			return nil, nil, err
		}
		vals = append(vals, v)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return vals, keys, nil
}

// queryList runs query and collects one scanned value per row.
func queryList[T any](ctx context.Context, q querier, query string, scan func(rowScanner) (T, error), args ...any) ([]T, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func wrapSeq[T any](what string, seq iter.Seq2[T, error]) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for v, err := range seq {
			if err != nil {
				yield(v, fmt.Errorf("reading %s: %w", what, err))
				return
			}
			if !yield(v, nil) {
				return
			}
		}
	}
}
