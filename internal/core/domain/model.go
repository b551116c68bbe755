package domain

type ChatKind int

const (
	Direct ChatKind = iota
	Group
)

func (k ChatKind) String() string {
	if k == Group {
		return "group"
	}
	return "direct"
}

type Chat struct {
	ID      string
	Kind    ChatKind
	GuildID string
}

func (c Chat) IsGroup() bool {
	return c.Kind == Group
}

type Actor struct {
	ID   string
	Name string
	// Permissions holds the effective permissions of the actor in the chat the event came from.
	// It is only populated when a command requires permissions.
	Permissions Permission
}

type Message struct {
	ID     string
	Chat   Chat
	Author Actor
	Text   string
}

// MessageRef identifies a single message on the platform. It is comparable and used as a map key.
type MessageRef struct {
	ChatID    string
	MessageID string
}

func (r MessageRef) String() string {
	return r.ChatID + "/" + r.MessageID
}

// Content is the platform-neutral rendering of a reply, mapped to an embed or a formatted text by the adapters.
type Content struct {
	Title       string
	Description string
	Footer      string
	URL         string
	Author      string
}

func TextContent(text string) Content {
	return Content{Description: text}
}

type Direction int

const (
	First Direction = iota
	Prev
	Next
	Last
)

func (d Direction) String() string {
	switch d {
	case First:
		return "first"
	case Prev:
		return "prev"
	case Next:
		return "next"
	case Last:
		return "last"
	default:
		return "unknown"
	}
}

// ParseDirection maps the callback payload used by the adapters back to a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch s {
	case "first":
		return First, true
	case "prev":
		return Prev, true
	case "next":
		return Next, true
	case "last":
		return Last, true
	default:
		return 0, false
	}
}

type NavigationEvent struct {
	Message   MessageRef
	Actor     Actor
	Direction Direction
}
