package frame

// Call is an entry in the call log. CallID is global; the recipient ids are
// stream-local. RingerRecipientID is zero when nobody rang.
type Call struct {
	CallID                  uint64
	ConversationRecipientID uint64
	Type                    CallType
	Outgoing                bool
	Timestamp               uint64
	RingerRecipientID       uint64
	Event                   CallEvent
}

func (c *Call) validate() error {
	if c.CallID == 0 {
		return violation("call id is required")
	}
	if c.ConversationRecipientID == 0 {
		return violation("call %d: conversation recipient id is required", c.CallID)
	}
	return nil
}

func (c *Call) encode(e *encoder) {
	e.uint64(1, c.CallID)
	e.uint64(2, c.ConversationRecipientID)
	e.enum(3, int32(c.Type))
	e.bool(4, c.Outgoing)
	e.uint64(5, c.Timestamp)
	e.uint64(6, c.RingerRecipientID)
	e.enum(7, int32(c.Event))
}

func (c *Call) decode(b []byte) error {
	return parse("Call", b, func(f field) (err error) {
		var v int32
		switch f.num {
		case 1:
			c.CallID, err = f.uint64()
		case 2:
			c.ConversationRecipientID, err = f.uint64()
		case 3:
			v, err = f.enum()
			c.Type = CallType(v)
		case 4:
			c.Outgoing, err = f.bool()
		case 5:
			c.Timestamp, err = f.uint64()
		case 6:
			c.RingerRecipientID, err = f.uint64()
		case 7:
			v, err = f.enum()
			c.Event = CallEvent(v)
		}
		return err
	})
}
