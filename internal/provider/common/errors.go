package common

import "errors"

// FallbackErrorMessage is shown when an error carries nothing presentable.
const FallbackErrorMessage = "An error has occurred!"

// UserMessenger is implemented by errors that know what to tell the user.
type UserMessenger interface {
	UserMessage() string
}

// Notice is an error with a fixed user-facing message.
type Notice struct {
	Text    string
	Message string
}

func (n *Notice) Error() string {
	return n.Text
}

func (n *Notice) UserMessage() string {
	return n.Message
}

// UserMessage returns the text to surface for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var um UserMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}

	return FallbackErrorMessage
}
