package domain

type PresenceKind int

const (
	PresencePlaceholder PresenceKind = iota
	PresenceVideo
	PresenceRemoved
)

func (k PresenceKind) String() string {
	switch k {
	case PresenceVideo:
		return "video"
	case PresencePlaceholder:
		return "placeholder"
	case PresenceRemoved:
		return "removed"
	default:
		return "unknown"
	}
}
