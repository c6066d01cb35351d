package chat

import "errors"

var (
	ErrAuthRequired       = errors.New("chat requires an authenticated admin")
	ErrThreadUnavailable  = errors.New("chat thread is not open")
	ErrSendFailed         = errors.New("failed to send message")
	ErrInvalidAttachment  = errors.New("attachment is not an image")
	ErrAttachmentTooLarge = errors.New("attachment exceeds the size limit")
	ErrClearNotConfirmed  = errors.New("clearing the chat requires confirmation")
)
