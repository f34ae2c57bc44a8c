package model

// ConversationState is the single active state of a user's conversation.
// Idle is both the initial and the rest state; there is no terminal state.
type ConversationState string

const (
	StateIdle              ConversationState = "idle"
	StateWaitingForPhoto   ConversationState = "waiting_for_photo"
	StateChoosingStyle     ConversationState = "choosing_style"
	StateWaitingForPayment ConversationState = "waiting_for_payment"
)

func (s ConversationState) Valid() bool {
	switch s {
	case StateIdle, StateWaitingForPhoto, StateChoosingStyle, StateWaitingForPayment:
		return true
	}
	return false
}
