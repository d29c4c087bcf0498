// Package compare decides whether two sets of backup frames describe the
// same account state. Stream-local ids and frame order are not part of
// that state, so both sides are rewritten into a canonical form first.
package compare

import (
	"bytes"
	"cmp"
	"encoding/hex"
	"fmt"
	"slices"
	"strconv"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"mbk-go/internal/frame"
)

// Canonical is a frame set with ids renumbered from content and every
// collection in a fixed order.
type Canonical struct {
	Account      *frame.AccountData
	Recipients   []*frame.Recipient
	Chats        []*frame.Chat
	ChatItems    []*frame.ChatItem
	Calls        []*frame.Call
	StickerPacks []*frame.StickerPack
}

// RecipientKey identifies a recipient independently of its stream id.
func RecipientKey(r *frame.Recipient) string {
	switch {
	case r.Self != nil:
		return "self"
	case r.Contact != nil:
		c := r.Contact
		switch {
		case len(c.ACI) > 0:
			return "contact:aci:" + hex.EncodeToString(c.ACI)
		case len(c.PNI) > 0:
			return "contact:pni:" + hex.EncodeToString(c.PNI)
		default:
			return "contact:e164:" + strconv.FormatUint(c.E164, 10)
		}
	case r.Group != nil:
		return "group:" + hex.EncodeToString(r.Group.MasterKey)
	case r.DistributionList != nil:
		return "list:" + hex.EncodeToString(r.DistributionList.DistributionID)
	case r.CallLink != nil:
		return "link:" + hex.EncodeToString(r.CallLink.RootKey)
	default:
		return ""
	}
}

// Canonicalize rewrites frames into canonical form. The input is not
// modified. It fails on references to unknown ids and on two recipients
// with the same identity.
func Canonicalize(frames []*frame.Frame) (*Canonical, error) {
	c := &Canonical{}
	var chats []*frame.Chat
	var items []*frame.ChatItem

	type keyed struct {
		key string
		r   *frame.Recipient
	}
	var recipients []keyed

	for i, f := range frames {
		f, err := clone(f)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		switch f.Kind() {
		case frame.KindAccount:
			if c.Account != nil {
				return nil, fmt.Errorf("frame %d: second account frame", i)
			}
			c.Account = f.Account
		case frame.KindRecipient:
			recipients = append(recipients, keyed{RecipientKey(f.Recipient), f.Recipient})
		case frame.KindChat:
			chats = append(chats, f.Chat)
		case frame.KindChatItem:
			items = append(items, f.ChatItem)
		case frame.KindCall:
			c.Calls = append(c.Calls, f.Call)
		case frame.KindStickerPack:
			c.StickerPacks = append(c.StickerPacks, f.StickerPack)
		}
	}

	slices.SortFunc(recipients, func(a, b keyed) int { return cmp.Compare(a.key, b.key) })
	rid := make(map[uint64]uint64, len(recipients))
	for i, k := range recipients {
		if i > 0 && recipients[i-1].key == k.key {
			return nil, fmt.Errorf("two recipients share identity %s", k.key)
		}
		if _, dup := rid[k.r.ID]; dup {
			return nil, fmt.Errorf("duplicate recipient id %d", k.r.ID)
		}
		rid[k.r.ID] = uint64(i + 1)
	}
	recipient := func(what string, id uint64) (uint64, error) {
		n, ok := rid[id]
		if !ok {
			return 0, fmt.Errorf("%s references unknown recipient %d", what, id)
		}
		return n, nil
	}

	var err error
	for _, k := range recipients {
		k.r.ID = rid[k.r.ID]
		if dl := k.r.DistributionList; dl != nil {
			for j, m := range dl.MemberRecipientIDs {
				if dl.MemberRecipientIDs[j], err = recipient("distribution list", m); err != nil {
					return nil, err
				}
			}
		}
		c.Recipients = append(c.Recipients, k.r)
	}

	for _, ch := range chats {
		if ch.RecipientID, err = recipient("chat", ch.RecipientID); err != nil {
			return nil, err
		}
	}
	slices.SortFunc(chats, func(a, b *frame.Chat) int { return cmp.Compare(a.RecipientID, b.RecipientID) })
	cid := make(map[uint64]uint64, len(chats))
	for i, ch := range chats {
		if _, dup := cid[ch.ID]; dup {
			return nil, fmt.Errorf("duplicate chat id %d", ch.ID)
		}
		cid[ch.ID] = uint64(i + 1)
		ch.ID = uint64(i + 1)
	}
	c.Chats = chats

	for _, it := range items {
		n, ok := cid[it.ChatID]
		if !ok {
			return nil, fmt.Errorf("chat item references unknown chat %d", it.ChatID)
		}
		if err := remapItem(it, n, recipient); err != nil {
			return nil, err
		}
	}
	slices.SortStableFunc(items, compareItems)
	c.ChatItems = items

	for _, call := range c.Calls {
		if call.ConversationRecipientID, err = recipient("call", call.ConversationRecipientID); err != nil {
			return nil, err
		}
		if call.RingerRecipientID != 0 {
			if call.RingerRecipientID, err = recipient("call ringer", call.RingerRecipientID); err != nil {
				return nil, err
			}
		}
	}
	slices.SortFunc(c.Calls, func(a, b *frame.Call) int { return cmp.Compare(a.CallID, b.CallID) })
	slices.SortFunc(c.StickerPacks, func(a, b *frame.StickerPack) int { return bytes.Compare(a.PackID, b.PackID) })

	return c, nil
}

func remapItem(it *frame.ChatItem, chatID uint64, recipient func(string, uint64) (uint64, error)) error {
	var err error
	it.ChatID = chatID
	if it.AuthorID, err = recipient("chat item author", it.AuthorID); err != nil {
		return err
	}
	if out := it.Outgoing; out != nil {
		for _, s := range out.SendStatus {
			if s.RecipientID, err = recipient("send status", s.RecipientID); err != nil {
				return err
			}
		}
	}
	if std := it.StandardMessage; std != nil {
		for _, r := range std.Reactions {
			if r.AuthorID, err = recipient("reaction", r.AuthorID); err != nil {
				return err
			}
		}
	}
	for _, rev := range it.Revisions {
		if err := remapItem(rev, chatID, recipient); err != nil {
			return err
		}
	}
	return nil
}

func compareItems(a, b *frame.ChatItem) int {
	return cmp.Or(
		cmp.Compare(a.ChatID, b.ChatID),
		cmp.Compare(a.DateSent, b.DateSent),
		cmp.Compare(a.AuthorID, b.AuthorID),
	)
}

// clone deep-copies a frame through its wire encoding.
func clone(f *frame.Frame) (*frame.Frame, error) {
	b, err := frame.Marshal(f)
	if err != nil {
		return nil, err
	}
	return frame.Unmarshal(b)
}

// Diff returns a human-readable difference between two frame sets, or ""
// when they are equivalent.
func Diff(want, got []*frame.Frame) (string, error) {
	cw, err := Canonicalize(want)
	if err != nil {
		return "", fmt.Errorf("canonicalizing first set: %w", err)
	}
	cg, err := Canonicalize(got)
	if err != nil {
		return "", fmt.Errorf("canonicalizing second set: %w", err)
	}
	return gocmp.Diff(cw, cg, cmpopts.EquateEmpty()), nil
}

// Equivalent reports whether two frame sets describe the same state.
func Equivalent(a, b []*frame.Frame) (bool, error) {
	d, err := Diff(a, b)
	if err != nil {
		return false, err
	}
	return d == "", nil
}
