package frame

// AccountData is the singleton account frame.
type AccountData struct {
	ProfileKey                    []byte
	Username                      string
	UsernameLink                  *UsernameLink
	GivenName                     string
	FamilyName                    string
	AvatarURLPath                 string
	SubscriberID                  []byte
	SubscriberCurrencyCode        string
	SubscriptionManuallyCancelled bool
	AccountSettings               *AccountSettings
}

// UsernameLink is the shareable link for the account's username.
type UsernameLink struct {
	Entropy  []byte
	ServerID []byte
	Color    UsernameLinkColor
}

// AccountSettings holds the account-wide preferences.
type AccountSettings struct {
	ReadReceipts                    bool
	SealedSenderIndicators          bool
	TypingIndicators                bool
	LinkPreviews                    bool
	NotDiscoverableByPhoneNumber    bool
	PreferContactAvatars            bool
	UniversalExpireTimerSeconds     uint32
	PreferredReactionEmoji          []string
	DisplayBadgesOnProfile          bool
	KeepMutedChatsArchived          bool
	HasSetMyStoriesPrivacy          bool
	HasViewedOnboardingStory        bool
	StoriesDisabled                 bool
	StoryViewReceiptsEnabled        bool
	HasSeenGroupStoryEducationSheet bool
	HasCompletedUsernameOnboarding  bool
	PhoneNumberSharingMode          PhoneNumberSharingMode
}

const profileKeySize = 32

func (a *AccountData) validate() error {
	return checkLen("account profile key", a.ProfileKey, profileKeySize, false)
}

func (a *AccountData) encode(e *encoder) {
	e.bytes(1, a.ProfileKey)
	e.string(2, a.Username)
	if a.UsernameLink != nil {
		e.message(3, a.UsernameLink.encode)
	}
	e.string(4, a.GivenName)
	e.string(5, a.FamilyName)
	e.string(6, a.AvatarURLPath)
	e.bytes(7, a.SubscriberID)
	e.string(8, a.SubscriberCurrencyCode)
	e.bool(9, a.SubscriptionManuallyCancelled)
	if a.AccountSettings != nil {
		e.message(10, a.AccountSettings.encode)
	}
}

func (a *AccountData) decode(b []byte) error {
	return parse("AccountData", b, func(f field) (err error) {
		switch f.num {
		case 1:
			a.ProfileKey, err = f.bytes()
		case 2:
			a.Username, err = f.string()
		case 3:
			var msg []byte
			if msg, err = f.message(); err == nil {
				a.UsernameLink = &UsernameLink{}
				err = a.UsernameLink.decode(msg)
			}
		case 4:
			a.GivenName, err = f.string()
		case 5:
			a.FamilyName, err = f.string()
		case 6:
			a.AvatarURLPath, err = f.string()
		case 7:
			a.SubscriberID, err = f.bytes()
		case 8:
			a.SubscriberCurrencyCode, err = f.string()
		case 9:
			a.SubscriptionManuallyCancelled, err = f.bool()
		case 10:
			var msg []byte
			if msg, err = f.message(); err == nil {
				a.AccountSettings = &AccountSettings{}
				err = a.AccountSettings.decode(msg)
			}
		}
		return err
	})
}

func (l *UsernameLink) encode(e *encoder) {
	e.bytes(1, l.Entropy)
	e.bytes(2, l.ServerID)
	e.enum(3, int32(l.Color))
}

func (l *UsernameLink) decode(b []byte) error {
	return parse("UsernameLink", b, func(f field) (err error) {
		switch f.num {
		case 1:
			l.Entropy, err = f.bytes()
		case 2:
			l.ServerID, err = f.bytes()
		case 3:
			var v int32
			v, err = f.enum()
			l.Color = UsernameLinkColor(v)
		}
		return err
	})
}

func (s *AccountSettings) encode(e *encoder) {
	e.bool(1, s.ReadReceipts)
	e.bool(2, s.SealedSenderIndicators)
	e.bool(3, s.TypingIndicators)
	e.bool(4, s.LinkPreviews)
	e.bool(5, s.NotDiscoverableByPhoneNumber)
	e.bool(6, s.PreferContactAvatars)
	e.uint32(7, s.UniversalExpireTimerSeconds)
	for _, emoji := range s.PreferredReactionEmoji {
		// Repeated strings keep empty entries so positions survive.
		e.buf = appendString(e.buf, 8, emoji)
	}
	e.bool(9, s.DisplayBadgesOnProfile)
	e.bool(10, s.KeepMutedChatsArchived)
	e.bool(11, s.HasSetMyStoriesPrivacy)
	e.bool(12, s.HasViewedOnboardingStory)
	e.bool(13, s.StoriesDisabled)
	e.bool(14, s.StoryViewReceiptsEnabled)
	e.bool(15, s.HasSeenGroupStoryEducationSheet)
	e.bool(16, s.HasCompletedUsernameOnboarding)
	e.enum(17, int32(s.PhoneNumberSharingMode))
}

func (s *AccountSettings) decode(b []byte) error {
	return parse("AccountSettings", b, func(f field) (err error) {
		switch f.num {
		case 1:
			s.ReadReceipts, err = f.bool()
		case 2:
			s.SealedSenderIndicators, err = f.bool()
		case 3:
			s.TypingIndicators, err = f.bool()
		case 4:
			s.LinkPreviews, err = f.bool()
		case 5:
			s.NotDiscoverableByPhoneNumber, err = f.bool()
		case 6:
			s.PreferContactAvatars, err = f.bool()
		case 7:
			s.UniversalExpireTimerSeconds, err = f.uint32()
		case 8:
			var emoji string
			if emoji, err = f.string(); err == nil {
				s.PreferredReactionEmoji = append(s.PreferredReactionEmoji, emoji)
			}
		case 9:
			s.DisplayBadgesOnProfile, err = f.bool()
		case 10:
			s.KeepMutedChatsArchived, err = f.bool()
		case 11:
			s.HasSetMyStoriesPrivacy, err = f.bool()
		case 12:
			s.HasViewedOnboardingStory, err = f.bool()
		case 13:
			s.StoriesDisabled, err = f.bool()
		case 14:
			s.StoryViewReceiptsEnabled, err = f.bool()
		case 15:
			s.HasSeenGroupStoryEducationSheet, err = f.bool()
		case 16:
			s.HasCompletedUsernameOnboarding, err = f.bool()
		case 17:
			var v int32
			v, err = f.enum()
			s.PhoneNumberSharingMode = PhoneNumberSharingMode(v)
		}
		return err
	})
}
