package service

const (
	RoomAdmin = "admin"

	MessageNewEvent        = "new-event"
	MessageEventUpdated    = "event-updated"
	MessageNewRegistration = "new-registration"
)

// Notifier pushes messages to connected real-time listeners. Delivery is best
// effort: implementations drop messages rather than block the caller.
type Notifier interface {
	Broadcast(msgType string, payload interface{})
	SendToRoom(room, msgType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Broadcast(string, interface{})          {}
func (nopNotifier) SendToRoom(string, string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}
