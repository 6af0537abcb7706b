package chat

// Phase is the stage of the current exchange.
type Phase int

const (
	Idle Phase = iota
	Sending
	AwaitingReply
	Typing
)

func (p Phase) String() string {
	switch p {
	case Sending:
		return "sending"
	case AwaitingReply:
		return "awaiting_reply"
	case Typing:
		return "typing"
	default:
		return "idle"
	}
}
