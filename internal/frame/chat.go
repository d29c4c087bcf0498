package frame

// Chat is a conversation with one recipient. ID and RecipientID are
// stream-local.
type Chat struct {
	ID                           uint64
	RecipientID                  uint64
	Archived                     bool
	PinnedOrder                  uint32
	ExpirationTimerMs            uint64
	MuteUntilMs                  uint64
	MarkedUnread                 bool
	DontNotifyForMentionsIfMuted bool
	Style                        *ChatStyle
	ExpireTimerVersion           uint32
}

// BubbleColor selects how a chat's bubble color is chosen.
type BubbleColor int

const (
	BubbleColorNone BubbleColor = iota
	BubbleColorAuto
	BubbleColorUsePreset
)

// ChatStyle is the per-chat appearance. Preset is only meaningful when
// BubbleColor is BubbleColorUsePreset.
type ChatStyle struct {
	BubbleColor            BubbleColor
	Preset                 BubbleColorPreset
	DimWallpaperInDarkMode bool
}

func (c *Chat) validate() error {
	if c.ID == 0 {
		return violation("chat id is required")
	}
	if c.RecipientID == 0 {
		return violation("chat %d: recipient id is required", c.ID)
	}
	return nil
}

func (c *Chat) encode(e *encoder) {
	e.uint64(1, c.ID)
	e.uint64(2, c.RecipientID)
	e.bool(3, c.Archived)
	e.uint32(4, c.PinnedOrder)
	e.uint64(5, c.ExpirationTimerMs)
	e.uint64(6, c.MuteUntilMs)
	e.bool(7, c.MarkedUnread)
	e.bool(8, c.DontNotifyForMentionsIfMuted)
	if c.Style != nil {
		e.message(9, c.Style.encode)
	}
	e.uint32(10, c.ExpireTimerVersion)
}

func (c *Chat) decode(b []byte) error {
	return parse("Chat", b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.ID, err = f.uint64()
		case 2:
			c.RecipientID, err = f.uint64()
		case 3:
			c.Archived, err = f.bool()
		case 4:
			c.PinnedOrder, err = f.uint32()
		case 5:
			c.ExpirationTimerMs, err = f.uint64()
		case 6:
			c.MuteUntilMs, err = f.uint64()
		case 7:
			c.MarkedUnread, err = f.bool()
		case 8:
			c.DontNotifyForMentionsIfMuted, err = f.bool()
		case 9:
			var msg []byte
			if msg, err = f.message(); err == nil {
				c.Style = &ChatStyle{}
				err = c.Style.decode(msg)
			}
		case 10:
			c.ExpireTimerVersion, err = f.uint32()
		}
		return err
	})
}

func (s *ChatStyle) encode(e *encoder) {
	switch s.BubbleColor {
	case BubbleColorAuto:
		e.message(2, func(*encoder) {})
	case BubbleColorUsePreset:
		// The preset carries presence, so zero is written too.
		e.buf = appendVarint(e.buf, 3, uint64(int64(s.Preset)))
	}
	e.bool(7, s.DimWallpaperInDarkMode)
}

func (s *ChatStyle) decode(b []byte) error {
	seen := 0
	err := parse("ChatStyle", b, func(f field) (err error) {
		switch f.num {
		case 2:
			seen++
			s.BubbleColor = BubbleColorAuto
			_, err = f.message()
		case 3:
			seen++
			var v int32
			v, err = f.enum()
			s.BubbleColor = BubbleColorUsePreset
			s.Preset = BubbleColorPreset(v)
		case 7:
			s.DimWallpaperInDarkMode, err = f.bool()
		}
		return err
	})
	if err != nil {
		return err
	}
	if seen > 1 {
		return violation("chat style has %d bubble colors", seen)
	}
	return nil
}
