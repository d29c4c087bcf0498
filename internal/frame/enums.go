package frame

import "fmt"

// Enum values outside the known range are kept as their numeric value so a
// newer writer's data survives a round trip; String reports them as UNKNOWN.

func enumName[E ~int32](names []string, v E) string {
	if enumKnown(names, v) {
		return names[v]
	}
	return fmt.Sprintf("UNKNOWN(%d)", int32(v))
}

func enumKnown[E ~int32](names []string, v E) bool {
	return v >= 0 && int(v) < len(names)
}

// PhoneNumberSharingMode controls who can see the account's phone number.
type PhoneNumberSharingMode int32

const (
	PhoneNumberSharingUnknown PhoneNumberSharingMode = iota
	PhoneNumberSharingEverybody
	PhoneNumberSharingNobody
)

var phoneNumberSharingNames = []string{"UNKNOWN", "EVERYBODY", "NOBODY"}

func (m PhoneNumberSharingMode) String() string { return enumName(phoneNumberSharingNames, m) }
func (m PhoneNumberSharingMode) Known() bool    { return enumKnown(phoneNumberSharingNames, m) }

// UsernameLinkColor is the QR code color of a username link.
type UsernameLinkColor int32

const (
	UsernameLinkColorUnknown UsernameLinkColor = iota
	UsernameLinkColorBlue
	UsernameLinkColorWhite
	UsernameLinkColorGrey
	UsernameLinkColorOlive
	UsernameLinkColorGreen
	UsernameLinkColorOrange
	UsernameLinkColorPink
	UsernameLinkColorPurple
)

var usernameLinkColorNames = []string{"UNKNOWN", "BLUE", "WHITE", "GREY", "OLIVE", "GREEN", "ORANGE", "PINK", "PURPLE"}

func (c UsernameLinkColor) String() string { return enumName(usernameLinkColorNames, c) }
func (c UsernameLinkColor) Known() bool    { return enumKnown(usernameLinkColorNames, c) }

// Registration is a contact's registration state.
type Registration int32

const (
	RegistrationUnknown Registration = iota
	RegistrationRegistered
	RegistrationNotRegistered
)

var registrationNames = []string{"UNKNOWN", "REGISTERED", "NOT_REGISTERED"}

func (r Registration) String() string { return enumName(registrationNames, r) }
func (r Registration) Known() bool    { return enumKnown(registrationNames, r) }

// StorySendMode controls whether a group receives stories.
type StorySendMode int32

const (
	StorySendModeDefault StorySendMode = iota
	StorySendModeDisabled
	StorySendModeEnabled
)

var storySendModeNames = []string{"DEFAULT", "DISABLED", "ENABLED"}

func (m StorySendMode) String() string { return enumName(storySendModeNames, m) }
func (m StorySendMode) Known() bool    { return enumKnown(storySendModeNames, m) }

// PrivacyMode is the audience rule of a distribution list.
type PrivacyMode int32

const (
	PrivacyModeUnknown PrivacyMode = iota
	PrivacyModeOnlyWith
	PrivacyModeAllExcept
	PrivacyModeAll
)

var privacyModeNames = []string{"UNKNOWN", "ONLY_WITH", "ALL_EXCEPT", "ALL"}

func (m PrivacyMode) String() string { return enumName(privacyModeNames, m) }
func (m PrivacyMode) Known() bool    { return enumKnown(privacyModeNames, m) }

// CallLinkRestrictions is the join policy of a call link.
type CallLinkRestrictions int32

const (
	CallLinkRestrictionsUnknown CallLinkRestrictions = iota
	CallLinkRestrictionsNone
	CallLinkRestrictionsAdminApproval
)

var callLinkRestrictionsNames = []string{"UNKNOWN", "NONE", "ADMIN_APPROVAL"}

func (r CallLinkRestrictions) String() string { return enumName(callLinkRestrictionsNames, r) }
func (r CallLinkRestrictions) Known() bool    { return enumKnown(callLinkRestrictionsNames, r) }

// BubbleColorPreset is a built-in chat bubble color.
type BubbleColorPreset int32

const (
	BubbleColorPresetUnknown BubbleColorPreset = iota
	BubbleColorPresetSolidUltramarine
	BubbleColorPresetSolidCrimson
	BubbleColorPresetSolidVermilion
	BubbleColorPresetSolidBurlap
	BubbleColorPresetSolidForest
	BubbleColorPresetSolidWintergreen
	BubbleColorPresetSolidTeal
	BubbleColorPresetSolidBlue
	BubbleColorPresetSolidIndigo
	BubbleColorPresetSolidViolet
	BubbleColorPresetSolidPlum
	BubbleColorPresetSolidTaupe
	BubbleColorPresetSolidSteel
	BubbleColorPresetGradientEmber
	BubbleColorPresetGradientMidnight
	BubbleColorPresetGradientInfrared
	BubbleColorPresetGradientLagoon
	BubbleColorPresetGradientFluorescent
	BubbleColorPresetGradientBasil
	BubbleColorPresetGradientSublime
	BubbleColorPresetGradientSea
	BubbleColorPresetGradientTangerine
)

var bubbleColorPresetNames = []string{
	"UNKNOWN", "SOLID_ULTRAMARINE", "SOLID_CRIMSON", "SOLID_VERMILION", "SOLID_BURLAP",
	"SOLID_FOREST", "SOLID_WINTERGREEN", "SOLID_TEAL", "SOLID_BLUE", "SOLID_INDIGO",
	"SOLID_VIOLET", "SOLID_PLUM", "SOLID_TAUPE", "SOLID_STEEL", "GRADIENT_EMBER",
	"GRADIENT_MIDNIGHT", "GRADIENT_INFRARED", "GRADIENT_LAGOON", "GRADIENT_FLUORESCENT",
	"GRADIENT_BASIL", "GRADIENT_SUBLIME", "GRADIENT_SEA", "GRADIENT_TANGERINE",
}

func (p BubbleColorPreset) String() string { return enumName(bubbleColorPresetNames, p) }
func (p BubbleColorPreset) Known() bool    { return enumKnown(bubbleColorPresetNames, p) }

// DeliveryStatus is the per-recipient delivery state of an outgoing message.
type DeliveryStatus int32

const (
	DeliveryStatusUnknown DeliveryStatus = iota
	DeliveryStatusFailed
	DeliveryStatusPending
	DeliveryStatusSent
	DeliveryStatusDelivered
	DeliveryStatusRead
	DeliveryStatusViewed
	DeliveryStatusSkipped
)

var deliveryStatusNames = []string{"UNKNOWN", "FAILED", "PENDING", "SENT", "DELIVERED", "READ", "VIEWED", "SKIPPED"}

func (s DeliveryStatus) String() string { return enumName(deliveryStatusNames, s) }
func (s DeliveryStatus) Known() bool    { return enumKnown(deliveryStatusNames, s) }

// SimpleUpdateType identifies a chat update that carries no payload.
type SimpleUpdateType int32

const (
	SimpleUpdateUnknown SimpleUpdateType = iota
	SimpleUpdateJoinedSignal
	SimpleUpdateIdentityUpdate
	SimpleUpdateIdentityVerified
	SimpleUpdateIdentityDefault
	SimpleUpdateChangeNumber
	SimpleUpdateBoostRequest
	SimpleUpdateEndSession
	SimpleUpdateChatSessionRefresh
	SimpleUpdateBadDecrypt
	SimpleUpdatePaymentsActivated
	SimpleUpdatePaymentActivationRequest
)

var simpleUpdateNames = []string{
	"UNKNOWN", "JOINED_SIGNAL", "IDENTITY_UPDATE", "IDENTITY_VERIFIED", "IDENTITY_DEFAULT",
	"CHANGE_NUMBER", "BOOST_REQUEST", "END_SESSION", "CHAT_SESSION_REFRESH", "BAD_DECRYPT",
	"PAYMENTS_ACTIVATED", "PAYMENT_ACTIVATION_REQUEST",
}

func (t SimpleUpdateType) String() string { return enumName(simpleUpdateNames, t) }
func (t SimpleUpdateType) Known() bool    { return enumKnown(simpleUpdateNames, t) }

// CallType is the media kind of a call.
type CallType int32

const (
	CallTypeUnknown CallType = iota
	CallTypeAudio
	CallTypeVideo
	CallTypeGroup
	CallTypeAdHoc
)

var callTypeNames = []string{"UNKNOWN_TYPE", "AUDIO_CALL", "VIDEO_CALL", "GROUP_CALL", "AD_HOC_CALL"}

func (t CallType) String() string { return enumName(callTypeNames, t) }
func (t CallType) Known() bool    { return enumKnown(callTypeNames, t) }

// CallEvent is the last known state of a call.
type CallEvent int32

const (
	CallEventUnknown CallEvent = iota
	CallEventOutgoing
	CallEventAccepted
	CallEventNotAccepted
	CallEventMissed
	CallEventDelete
	CallEventGenericGroupCall
	CallEventJoined
	CallEventRinging
	CallEventDeclined
	CallEventOutgoingRing
	CallEventOngoing
)

var callEventNames = []string{
	"UNKNOWN_EVENT", "OUTGOING", "ACCEPTED", "NOT_ACCEPTED", "MISSED", "DELETE",
	"GENERIC_GROUP_CALL", "JOINED", "RINGING", "DECLINED", "OUTGOING_RING", "ONGOING",
}

func (e CallEvent) String() string { return enumName(callEventNames, e) }
func (e CallEvent) Known() bool    { return enumKnown(callEventNames, e) }
