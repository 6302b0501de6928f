package access

type AccessState string

const (
	AccessNone    AccessState = "none"
	AccessPending AccessState = "pending"
	AccessActive  AccessState = "active"
	AccessLapsed  AccessState = "lapsed"
)

type Capability string

const (
	CapBookClasses      Capability = "book_classes"
	CapOnlineClasses    Capability = "online_classes"
	CapPremiumContent   Capability = "premium_content"
	CapPersonalCoaching Capability = "personal_coaching"
	CapManageClasses    Capability = "manage_classes"
	CapManageContent    Capability = "manage_content"
	CapModerate         Capability = "moderate"
)

// Actor is the authenticated caller as read from the session token.
type Actor struct {
	UserID uint
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == "admin" }
