package frame

// ChatItem is one message in a chat. ChatID and AuthorID are stream-local.
// Exactly one direction and exactly one item field must be set. Revisions
// hold earlier versions of an edited message, oldest first.
type ChatItem struct {
	ChatID          uint64
	AuthorID        uint64
	DateSent        uint64
	ExpireStartDate uint64
	ExpiresInMs     uint64
	Revisions       []*ChatItem
	SMS             bool

	Incoming      *IncomingMessageDetails
	Outgoing      *OutgoingMessageDetails
	Directionless *DirectionlessMessageDetails

	StandardMessage      *StandardMessage
	RemoteDeletedMessage *RemoteDeletedMessage
	UpdateMessage        *ChatUpdateMessage
}

// IncomingMessageDetails describes a received message.
type IncomingMessageDetails struct {
	DateReceived   uint64
	DateServerSent uint64
	Read           bool
	SealedSender   bool
}

// OutgoingMessageDetails describes a sent message.
type OutgoingMessageDetails struct {
	SendStatus []*SendStatus
}

// SendStatus is the delivery state of an outgoing message to one recipient.
type SendStatus struct {
	RecipientID               uint64
	Status                    DeliveryStatus
	NetworkFailure            bool
	IdentityKeyMismatch       bool
	SealedSender              bool
	LastStatusUpdateTimestamp uint64
}

// DirectionlessMessageDetails marks a local-only item such as an update.
type DirectionlessMessageDetails struct{}

// StandardMessage is a text message with its reactions.
type StandardMessage struct {
	Text      string
	Reactions []*Reaction
}

// Reaction is an emoji reaction by one recipient.
type Reaction struct {
	Emoji         string
	AuthorID      uint64
	SentTimestamp uint64
	SortOrder     uint64
}

// RemoteDeletedMessage replaces a message deleted for everyone.
type RemoteDeletedMessage struct{}

// ChatUpdateMessage is a chat event rendered inline.
type ChatUpdateMessage struct {
	SimpleUpdate *SimpleChatUpdate
}

// SimpleChatUpdate is an update without payload.
type SimpleChatUpdate struct {
	Type SimpleUpdateType
}

func (c *ChatItem) directions() int {
	return countSet(c.Incoming != nil, c.Outgoing != nil, c.Directionless != nil)
}

func (c *ChatItem) items() int {
	return countSet(c.StandardMessage != nil, c.RemoteDeletedMessage != nil, c.UpdateMessage != nil)
}

func (c *ChatItem) validate() error {
	return c.validateAt(false)
}

func (c *ChatItem) validateAt(revision bool) error {
	if c.ChatID == 0 {
		return violation("chat item: chat id is required")
	}
	if c.AuthorID == 0 {
		return violation("chat item: author id is required")
	}
	switch n := c.directions(); {
	case n == 0:
		return violation("chat item has no direction")
	case n > 1:
		return violation("chat item has %d directions", n)
	}
	switch n := c.items(); {
	case n == 0:
		return violation("chat item has no item")
	case n > 1:
		return violation("chat item has %d items", n)
	}
	if c.Outgoing != nil {
		for _, s := range c.Outgoing.SendStatus {
			if s == nil || s.RecipientID == 0 {
				return violation("send status: recipient id is required")
			}
		}
	}
	if c.StandardMessage != nil {
		for _, r := range c.StandardMessage.Reactions {
			if r == nil || r.AuthorID == 0 {
				return violation("reaction: author id is required")
			}
			if r.Emoji == "" {
				return violation("reaction: emoji is required")
			}
		}
	}
	if c.UpdateMessage != nil && c.UpdateMessage.SimpleUpdate == nil {
		return violation("update message has no update")
	}
	if revision {
		if len(c.Revisions) > 0 {
			return violation("revision has nested revisions")
		}
		return nil
	}
	for _, rev := range c.Revisions {
		if rev == nil {
			return violation("nil revision")
		}
		if rev.ChatID != c.ChatID || rev.AuthorID != c.AuthorID {
			return violation("revision does not belong to its chat item")
		}
		if rev.StandardMessage == nil {
			return violation("revision must be a standard message")
		}
		if err := rev.validateAt(true); err != nil {
			return err
		}
	}
	return nil
}

func (c *ChatItem) encode(e *encoder) {
	e.uint64(1, c.ChatID)
	e.uint64(2, c.AuthorID)
	e.uint64(3, c.DateSent)
	e.uint64(4, c.ExpireStartDate)
	e.uint64(5, c.ExpiresInMs)
	for _, rev := range c.Revisions {
		e.message(6, rev.encode)
	}
	e.bool(7, c.SMS)

	switch {
	case c.Incoming != nil:
		e.message(8, c.Incoming.encode)
	case c.Outgoing != nil:
		e.message(9, c.Outgoing.encode)
	case c.Directionless != nil:
		e.message(10, func(*encoder) {})
	}

	switch {
	case c.StandardMessage != nil:
		e.message(11, c.StandardMessage.encode)
	case c.RemoteDeletedMessage != nil:
		e.message(12, func(*encoder) {})
	case c.UpdateMessage != nil:
		e.message(13, c.UpdateMessage.encode)
	}
}

func (c *ChatItem) decode(b []byte) error {
	directions, items := 0, 0
	err := parse("ChatItem", b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.ChatID, err = f.uint64()
			return err
		case 2:
			c.AuthorID, err = f.uint64()
			return err
		case 3:
			c.DateSent, err = f.uint64()
			return err
		case 4:
			c.ExpireStartDate, err = f.uint64()
			return err
		case 5:
			c.ExpiresInMs, err = f.uint64()
			return err
		case 7:
			c.SMS, err = f.bool()
			return err
		case 8, 9, 10:
			directions++
		case 11, 12, 13:
			items++
		case 6:
		default:
			return nil
		}

		msg, err := f.message()
		if err != nil {
			return err
		}
		switch f.num {
		case 6:
			rev := &ChatItem{}
			if err := rev.decode(msg); err != nil {
				return err
			}
			c.Revisions = append(c.Revisions, rev)
		case 8:
			c.Incoming = &IncomingMessageDetails{}
			return c.Incoming.decode(msg)
		case 9:
			c.Outgoing = &OutgoingMessageDetails{}
			return c.Outgoing.decode(msg)
		case 10:
			c.Directionless = &DirectionlessMessageDetails{}
		case 11:
			c.StandardMessage = &StandardMessage{}
			return c.StandardMessage.decode(msg)
		case 12:
			c.RemoteDeletedMessage = &RemoteDeletedMessage{}
		case 13:
			c.UpdateMessage = &ChatUpdateMessage{}
			return c.UpdateMessage.decode(msg)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if directions > 1 {
		return violation("chat item has %d directions", directions)
	}
	if items > 1 {
		return violation("chat item has %d items", items)
	}
	return nil
}

func (d *IncomingMessageDetails) encode(e *encoder) {
	e.uint64(1, d.DateReceived)
	e.uint64(2, d.DateServerSent)
	e.bool(3, d.Read)
	e.bool(4, d.SealedSender)
}

func (d *IncomingMessageDetails) decode(b []byte) error {
	return parse("IncomingMessageDetails", b, func(f field) (err error) {
		switch f.num {
		case 1:
			d.DateReceived, err = f.uint64()
		case 2:
			d.DateServerSent, err = f.uint64()
		case 3:
			d.Read, err = f.bool()
		case 4:
			d.SealedSender, err = f.bool()
		}
		return err
	})
}

func (d *OutgoingMessageDetails) encode(e *encoder) {
	for _, s := range d.SendStatus {
		e.message(1, s.encode)
	}
}

func (d *OutgoingMessageDetails) decode(b []byte) error {
	return parse("OutgoingMessageDetails", b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		msg, err := f.message()
		if err != nil {
			return err
		}
		s := &SendStatus{}
		if err := s.decode(msg); err != nil {
			return err
		}
		d.SendStatus = append(d.SendStatus, s)
		return nil
	})
}

func (s *SendStatus) encode(e *encoder) {
	e.uint64(1, s.RecipientID)
	e.enum(2, int32(s.Status))
	e.bool(3, s.NetworkFailure)
	e.bool(4, s.IdentityKeyMismatch)
	e.bool(5, s.SealedSender)
	e.uint64(6, s.LastStatusUpdateTimestamp)
}

func (s *SendStatus) decode(b []byte) error {
	return parse("SendStatus", b, func(f field) (err error) {
		switch f.num {
		case 1:
			s.RecipientID, err = f.uint64()
		case 2:
			var v int32
			v, err = f.enum()
			s.Status = DeliveryStatus(v)
		case 3:
			s.NetworkFailure, err = f.bool()
		case 4:
			s.IdentityKeyMismatch, err = f.bool()
		case 5:
			s.SealedSender, err = f.bool()
		case 6:
			s.LastStatusUpdateTimestamp, err = f.uint64()
		}
		return err
	})
}

func (m *StandardMessage) encode(e *encoder) {
	e.string(1, m.Text)
	for _, r := range m.Reactions {
		e.message(2, r.encode)
	}
}

func (m *StandardMessage) decode(b []byte) error {
	return parse("StandardMessage", b, func(f field) (err error) {
		switch f.num {
		case 1:
			m.Text, err = f.string()
		case 2:
			var msg []byte
			if msg, err = f.message(); err != nil {
				return err
			}
			r := &Reaction{}
			if err = r.decode(msg); err == nil {
				m.Reactions = append(m.Reactions, r)
			}
		}
		return err
	})
}

func (r *Reaction) encode(e *encoder) {
	e.string(1, r.Emoji)
	e.uint64(2, r.AuthorID)
	e.uint64(3, r.SentTimestamp)
	e.uint64(4, r.SortOrder)
}

func (r *Reaction) decode(b []byte) error {
	return parse("Reaction", b, func(f field) (err error) {
		switch f.num {
		case 1:
			r.Emoji, err = f.string()
		case 2:
			r.AuthorID, err = f.uint64()
		case 3:
			r.SentTimestamp, err = f.uint64()
		case 4:
			r.SortOrder, err = f.uint64()
		}
		return err
	})
}

func (m *ChatUpdateMessage) encode(e *encoder) {
	if m.SimpleUpdate != nil {
		e.message(1, func(e *encoder) {
			e.enum(1, int32(m.SimpleUpdate.Type))
		})
	}
}

func (m *ChatUpdateMessage) decode(b []byte) error {
	return parse("ChatUpdateMessage", b, func(f field) error {
		if f.num != 1 {
			return nil
		}
		msg, err := f.message()
		if err != nil {
			return err
		}
		m.SimpleUpdate = &SimpleChatUpdate{}
		return parse("SimpleChatUpdate", msg, func(f field) (err error) {
			if f.num == 1 {
				var v int32
				v, err = f.enum()
				m.SimpleUpdate.Type = SimpleUpdateType(v)
			}
			return err
		})
	})
}
