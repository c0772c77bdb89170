package contact

// AlertKind classifies an alert for the banner colour.
type AlertKind string

const (
	KindUnspecified AlertKind = ""
	KindSuccess     AlertKind = "success"
	KindError       AlertKind = "error"
)

// Alert texts shown by the form.
const (
	MsgThankYou      = "Thank you. I will get back to you as soon as possible."
	MsgFailed        = "Something went wrong"
	MsgFillAllFields = "Please fill in all fields."
)

// Alert is the single transient banner.  An empty Message means no alert.
type Alert struct {
	Message string    `json:"message"`
	Kind    AlertKind `json:"kind"`
}

// Active reports whether an alert is showing.
func (a Alert) Active() bool { return a.Message != "" }
