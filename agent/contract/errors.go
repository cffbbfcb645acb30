package contract

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrInvalidRequest     = errors.New("invalid summarize request")
	ErrMissingCredential  = errors.New("api key is not configured")
	ErrSettingsFault      = errors.New("settings store failed")
	ErrUpstreamHTTP       = errors.New("upstream http error")
	ErrTransportFault     = errors.New("transport fault")
	ErrEmptyResult        = errors.New("no content produced")
	ErrBusy               = errors.New("a summarize operation is already running")
	ErrIdleTimeout        = errors.New("stream idle timeout")
	ErrContextInvalidated = errors.New("operation context invalidated")
)
