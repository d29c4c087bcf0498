// Package frame defines the backup content schema and its protobuf wire
// encoding. A backup stream carries one BackupInfo header followed by any
// number of Frames.
package frame

// Version is the only backup format version this package reads and writes.
const Version = 1

// BackupInfo is the stream header. It is not a Frame.
type BackupInfo struct {
	Version      uint64
	BackupTimeMs uint64
}

// Kind names the populated variant of a Frame.
type Kind int

const (
	KindUnknown Kind = iota
	KindAccount
	KindRecipient
	KindChat
	KindChatItem
	KindCall
	KindStickerPack
)

var kindNames = []string{"unknown", "account", "recipient", "chat", "chatItem", "call", "stickerPack"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[0]
	}
	return kindNames[k]
}

// Frame is one unit of backup content. Exactly one field must be set.
type Frame struct {
	Account     *AccountData
	Recipient   *Recipient
	Chat        *Chat
	ChatItem    *ChatItem
	Call        *Call
	StickerPack *StickerPack
}

// Kind reports which variant is populated. It returns KindUnknown when the
// frame does not hold exactly one variant.
func (f *Frame) Kind() Kind {
	if f.variants() != 1 {
		return KindUnknown
	}
	switch {
	case f.Account != nil:
		return KindAccount
	case f.Recipient != nil:
		return KindRecipient
	case f.Chat != nil:
		return KindChat
	case f.ChatItem != nil:
		return KindChatItem
	case f.Call != nil:
		return KindCall
	default:
		return KindStickerPack
	}
}

func (f *Frame) variants() int {
	return countSet(f.Account != nil, f.Recipient != nil, f.Chat != nil,
		f.ChatItem != nil, f.Call != nil, f.StickerPack != nil)
}

// Validate checks the oneof discipline and required fields of the frame and
// everything nested in it.
func (f *Frame) Validate() error {
	switch n := f.variants(); {
	case n == 0:
		return violation("frame has no populated variant")
	case n > 1:
		return violation("frame has %d populated variants", n)
	}
	switch f.Kind() {
	case KindAccount:
		return f.Account.validate()
	case KindRecipient:
		return f.Recipient.validate()
	case KindChat:
		return f.Chat.validate()
	case KindChatItem:
		return f.ChatItem.validate()
	case KindCall:
		return f.Call.validate()
	default:
		return f.StickerPack.validate()
	}
}

// Marshal validates f and returns its wire encoding.
func Marshal(f *Frame) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var e encoder
	switch f.Kind() {
	case KindAccount:
		e.message(1, f.Account.encode)
	case KindRecipient:
		e.message(2, f.Recipient.encode)
	case KindChat:
		e.message(3, f.Chat.encode)
	case KindChatItem:
		e.message(4, f.ChatItem.encode)
	case KindCall:
		e.message(5, f.Call.encode)
	case KindStickerPack:
		e.message(6, f.StickerPack.encode)
	}
	return e.buf, nil
}

// Unmarshal decodes and validates a frame. Any deviation from the schema is
// reported as ErrSchemaViolation.
func Unmarshal(b []byte) (*Frame, error) {
	f := &Frame{}
	seen := 0
	err := parse("Frame", b, func(fl field) error {
		var dec interface{ decode([]byte) error }
		switch fl.num {
		case 1:
			f.Account = &AccountData{}
			dec = f.Account
		case 2:
			f.Recipient = &Recipient{}
			dec = f.Recipient
		case 3:
			f.Chat = &Chat{}
			dec = f.Chat
		case 4:
			f.ChatItem = &ChatItem{}
			dec = f.ChatItem
		case 5:
			f.Call = &Call{}
			dec = f.Call
		case 6:
			f.StickerPack = &StickerPack{}
			dec = f.StickerPack
		default:
			return nil
		}
		seen++
		msg, err := fl.message()
		if err != nil {
			return err
		}
		return dec.decode(msg)
	})
	if err != nil {
		return nil, err
	}
	if seen > 1 {
		return nil, violation("frame has %d populated variants", seen)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// MarshalBackupInfo returns the wire encoding of a header.
func MarshalBackupInfo(info *BackupInfo) []byte {
	var e encoder
	e.uint64(1, info.Version)
	e.uint64(2, info.BackupTimeMs)
	return e.buf
}

// UnmarshalBackupInfo decodes a header. A missing version is a schema
// violation; version support is checked by the caller.
func UnmarshalBackupInfo(b []byte) (*BackupInfo, error) {
	info := &BackupInfo{}
	err := parse("BackupInfo", b, func(f field) (err error) {
		switch f.num {
		case 1:
			info.Version, err = f.uint64()
		case 2:
			info.BackupTimeMs, err = f.uint64()
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if info.Version == 0 {
		return nil, violation("backup info: version is required")
	}
	return info, nil
}
