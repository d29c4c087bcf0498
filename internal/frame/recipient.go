package frame

// Recipient is an addressable party. ID is stream-local: it is only
// meaningful for references within the same stream. Exactly one destination
// field must be set.
type Recipient struct {
	ID               uint64
	Contact          *Contact
	Group            *Group
	DistributionList *DistributionList
	Self             *Self
	CallLink         *CallLink
}

// Self marks the account owner's own recipient.
type Self struct{}

// Contact is another account.
type Contact struct {
	ACI                   []byte
	PNI                   []byte
	Username              string
	E164                  uint64
	Blocked               bool
	Hidden                bool
	Registration          Registration
	UnregisteredTimestamp uint64
	ProfileKey            []byte
	ProfileSharing        bool
	ProfileGivenName      string
	ProfileFamilyName     string
	HideStory             bool
}

// Group is a group conversation, identified by its master key.
type Group struct {
	MasterKey     []byte
	Whitelisted   bool
	HideStory     bool
	StorySendMode StorySendMode
}

// DistributionList is a story audience. MemberRecipientIDs are stream-local
// recipient ids.
type DistributionList struct {
	DistributionID     []byte
	Name               string
	AllowReplies       bool
	PrivacyMode        PrivacyMode
	MemberRecipientIDs []uint64
	DeletionTimestamp  uint64
}

// CallLink is a reusable call link.
type CallLink struct {
	RootKey      []byte
	AdminKey     []byte
	Name         string
	Restrictions CallLinkRestrictions
	ExpirationMs uint64
}

const (
	serviceIDSize      = 16
	masterKeySize      = 32
	distributionIDSize = 16
)

func (r *Recipient) destinations() int {
	return countSet(r.Contact != nil, r.Group != nil, r.DistributionList != nil,
		r.Self != nil, r.CallLink != nil)
}

func (r *Recipient) validate() error {
	if r.ID == 0 {
		return violation("recipient id is required")
	}
	switch n := r.destinations(); {
	case n == 0:
		return violation("recipient %d has no destination", r.ID)
	case n > 1:
		return violation("recipient %d has %d destinations", r.ID, n)
	}
	switch {
	case r.Contact != nil:
		c := r.Contact
		if len(c.ACI) == 0 && len(c.PNI) == 0 && c.E164 == 0 {
			return violation("contact %d has no aci, pni or e164", r.ID)
		}
		if err := checkLen("contact aci", c.ACI, serviceIDSize, false); err != nil {
			return err
		}
		if err := checkLen("contact pni", c.PNI, serviceIDSize, false); err != nil {
			return err
		}
		return checkLen("contact profile key", c.ProfileKey, profileKeySize, false)
	case r.Group != nil:
		return checkLen("group master key", r.Group.MasterKey, masterKeySize, true)
	case r.DistributionList != nil:
		return checkLen("distribution id", r.DistributionList.DistributionID, distributionIDSize, true)
	case r.CallLink != nil:
		if len(r.CallLink.RootKey) == 0 {
			return violation("call link root key is required")
		}
	}
	return nil
}

func (r *Recipient) encode(e *encoder) {
	e.uint64(1, r.ID)
	switch {
	case r.Contact != nil:
		e.message(2, r.Contact.encode)
	case r.Group != nil:
		e.message(3, r.Group.encode)
	case r.DistributionList != nil:
		e.message(4, r.DistributionList.encode)
	case r.Self != nil:
		e.message(5, func(*encoder) {})
	case r.CallLink != nil:
		e.message(7, r.CallLink.encode)
	}
}

func (r *Recipient) decode(b []byte) error {
	seen := 0
	err := parse("Recipient", b, func(f field) (err error) {
		var msg []byte
		switch f.num {
		case 1:
			r.ID, err = f.uint64()
			return err
		case 2, 3, 4, 5, 7:
			seen++
			if msg, err = f.message(); err != nil {
				return err
			}
		default:
			return nil
		}
		switch f.num {
		case 2:
			r.Contact = &Contact{}
			return r.Contact.decode(msg)
		case 3:
			r.Group = &Group{}
			return r.Group.decode(msg)
		case 4:
			r.DistributionList = &DistributionList{}
			return r.DistributionList.decode(msg)
		case 5:
			r.Self = &Self{}
			return nil
		default:
			r.CallLink = &CallLink{}
			return r.CallLink.decode(msg)
		}
	})
	if err != nil {
		return err
	}
	if seen > 1 {
		return violation("recipient %d has %d destinations", r.ID, seen)
	}
	return nil
}

func (c *Contact) encode(e *encoder) {
	e.bytes(1, c.ACI)
	e.bytes(2, c.PNI)
	e.string(3, c.Username)
	e.uint64(4, c.E164)
	e.bool(5, c.Blocked)
	e.bool(6, c.Hidden)
	e.enum(7, int32(c.Registration))
	e.uint64(8, c.UnregisteredTimestamp)
	e.bytes(9, c.ProfileKey)
	e.bool(10, c.ProfileSharing)
	e.string(11, c.ProfileGivenName)
	e.string(12, c.ProfileFamilyName)
	e.bool(13, c.HideStory)
}

func (c *Contact) decode(b []byte) error {
	return parse("Contact", b, func(f field) (err error) {
		switch f.num {
		case 1:
			c.ACI, err = f.bytes()
		case 2:
			c.PNI, err = f.bytes()
		case 3:
			c.Username, err = f.string()
		case 4:
			c.E164, err = f.uint64()
		case 5:
			c.Blocked, err = f.bool()
		case 6:
			c.Hidden, err = f.bool()
		case 7:
			var v int32
			v, err = f.enum()
			c.Registration = Registration(v)
		case 8:
			c.UnregisteredTimestamp, err = f.uint64()
		case 9:
			c.ProfileKey, err = f.bytes()
		case 10:
			c.ProfileSharing, err = f.bool()
		case 11:
			c.ProfileGivenName, err = f.string()
		case 12:
			c.ProfileFamilyName, err = f.string()
		case 13:
			c.HideStory, err = f.bool()
		}
		return err
	})
}

func (g *Group) encode(e *encoder) {
	e.bytes(1, g.MasterKey)
	e.bool(2, g.Whitelisted)
	e.bool(3, g.HideStory)
	e.enum(4, int32(g.StorySendMode))
}

func (g *Group) decode(b []byte) error {
	return parse("Group", b, func(f field) (err error) {
		switch f.num {
		case 1:
			g.MasterKey, err = f.bytes()
		case 2:
			g.Whitelisted, err = f.bool()
		case 3:
			g.HideStory, err = f.bool()
		case 4:
			var v int32
			v, err = f.enum()
			g.StorySendMode = StorySendMode(v)
		}
		return err
	})
}

func (d *DistributionList) encode(e *encoder) {
	e.bytes(1, d.DistributionID)
	e.string(2, d.Name)
	e.bool(3, d.AllowReplies)
	e.enum(4, int32(d.PrivacyMode))
	e.packed(5, d.MemberRecipientIDs)
	e.uint64(6, d.DeletionTimestamp)
}

func (d *DistributionList) decode(b []byte) error {
	return parse("DistributionList", b, func(f field) (err error) {
		switch f.num {
		case 1:
			d.DistributionID, err = f.bytes()
		case 2:
			d.Name, err = f.string()
		case 3:
			d.AllowReplies, err = f.bool()
		case 4:
			var v int32
			v, err = f.enum()
			d.PrivacyMode = PrivacyMode(v)
		case 5:
			var ids []uint64
			if ids, err = f.packed(); err == nil {
				d.MemberRecipientIDs = append(d.MemberRecipientIDs, ids...)
			}
		case 6:
			d.DeletionTimestamp, err = f.uint64()
		}
		return err
	})
}

func (l *CallLink) encode(e *encoder) {
	e.bytes(1, l.RootKey)
	e.bytes(2, l.AdminKey)
	e.string(3, l.Name)
	e.enum(4, int32(l.Restrictions))
	e.uint64(5, l.ExpirationMs)
}

func (l *CallLink) decode(b []byte) error {
	return parse("CallLink", b, func(f field) (err error) {
		switch f.num {
		case 1:
			l.RootKey, err = f.bytes()
		case 2:
			l.AdminKey, err = f.bytes()
		case 3:
			l.Name, err = f.string()
		case 4:
			var v int32
			v, err = f.enum()
			l.Restrictions = CallLinkRestrictions(v)
		case 5:
			l.ExpirationMs, err = f.uint64()
		}
		return err
	})
}
