package app

import "errors"

var (
	ErrSessionNotFound      = errors.New("Session not found.")
	ErrSessionIDRequired    = errors.New("sessionId is required.")
	ErrSessionIDInvalid     = errors.New("A valid sessionId is required.")
	ErrDocumentTypeRequired = errors.New("documentType is required.")
	ErrFileRequired         = errors.New("file is required.")
	ErrFileTooLarge         = errors.New("File is too large. Maximum upload size is 25 MB.")
	ErrPromptRequired       = errors.New("sessionId and prompt are required.")
	ErrApplicationRequired  = errors.New("sessionId and application are required.")
)
