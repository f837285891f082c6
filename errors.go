package assistant

import (
	stderrors "errors"

	"github.com/goliatone/go-errors"
)

const (
	ErrCodeUnknownComponent        = "UNKNOWN_COMPONENT"
	ErrCodeInvalidComponent        = "INVALID_COMPONENT"
	ErrCodeRenderDepthExceeded     = "RENDER_DEPTH_EXCEEDED"
	ErrCodeInvalidProps            = "INVALID_PROPS"
	ErrCodeScriptNotFound          = "SCRIPT_NOT_FOUND"
	ErrCodeInvalidScript           = "INVALID_SCRIPT"
	ErrCodeCollaboratorUnavailable = "COLLABORATOR_UNAVAILABLE"
	ErrCodeWorkflowNotActive       = "WORKFLOW_NOT_ACTIVE"
	ErrCodeSessionNotFound         = "SESSION_NOT_FOUND"
	ErrCodeStoreClosed             = "STORE_CLOSED"
)

var (
	ErrUnknownComponent = errors.New("unknown component type", errors.CategoryBadInput).
				WithTextCode(ErrCodeUnknownComponent)
	ErrInvalidComponent = errors.New("invalid component descriptor", errors.CategoryValidation).
				WithTextCode(ErrCodeInvalidComponent)
	ErrRenderDepthExceeded = errors.New("descriptor nesting exceeds render depth", errors.CategoryBadInput).
				WithTextCode(ErrCodeRenderDepthExceeded)
	ErrInvalidProps = errors.New("component props failed validation", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidProps)
	ErrScriptNotFound = errors.New("script not found", errors.CategoryBadInput).
				WithTextCode(ErrCodeScriptNotFound)
	ErrInvalidScript = errors.New("invalid script", errors.CategoryValidation).
			WithTextCode(ErrCodeInvalidScript)
	ErrCollaboratorUnavailable = errors.New("chat collaborator unavailable", errors.CategoryExternal).
					WithTextCode(ErrCodeCollaboratorUnavailable)
	ErrWorkflowNotActive = errors.New("workflow not active", errors.CategoryConflict).
				WithTextCode(ErrCodeWorkflowNotActive)
	ErrSessionNotFound = errors.New("session not found", errors.CategoryBadInput).
				WithTextCode(ErrCodeSessionNotFound)
	ErrStoreClosed = errors.New("workflow store closed", errors.CategoryConflict).
			WithTextCode(ErrCodeStoreClosed)
)

// NewError clones a sentinel, replacing the message and attaching metadata.
func NewError(base *errors.Error, message string, source error, metadata map[string]any) *errors.Error {
	if base == nil {
		base = ErrInvalidComponent
	}
	err := base.Clone()
	if message != "" {
		err.Message = message
	}
	if source != nil {
		err.Source = source
	}
	if len(metadata) > 0 {
		err = err.WithMetadata(metadata)
	}
	return err
}

// ErrorCode extracts the text code of a go-errors error, or "".
func ErrorCode(err error) string {
	var ge *errors.Error
	if stderrors.As(err, &ge) {
		return ge.TextCode
	}
	return ""
}

// HasCode reports whether err, or any error it wraps, carries the given
// text code.
func HasCode(err error, code string) bool {
	for err != nil {
		var ge *errors.Error
		if !stderrors.As(err, &ge) {
			return false
		}
		if ge.TextCode == code {
			return true
		}
		err = ge.Unwrap()
	}
	return false
}
