package source

import (
	"errors"
	"fmt"

	"github.com/dbsmedya/godelegate/internal/types"
)

// ErrConnectionUnavailable means the remote endpoint could not be reached at all.
var ErrConnectionUnavailable = errors.New("connection unavailable")

// ErrCapabilityUnsupported signals that a chain does not offer a discovery
// mechanism. It is a no-op signal, not a failure of the chain.
var ErrCapabilityUnsupported = errors.New("capability unsupported")

// RemoteQueryError is a failed remote query for one chain.
type RemoteQueryError struct {
	Chain  types.ChainID
	Source string
	Cause  error
}

func (e *RemoteQueryError) Error() string {
	return fmt.Sprintf("%s query on %s failed: %v", e.Source, e.Chain, e.Cause)
}

func (e *RemoteQueryError) Unwrap() error {
	return e.Cause
}

// DecodingError is a remote answer that could not be decoded.
type DecodingError struct {
	Chain  types.ChainID
	Source string
	Cause  error
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("decoding %s response for %s: %v", e.Source, e.Chain, e.Cause)
}

func (e *DecodingError) Unwrap() error {
	return e.Cause
}

// wrapQueryError tags err with chain and source unless it already carries a
// classification.
func wrapQueryError(chain types.ChainID, source string, err error) error {
	if err == nil {
		return nil
	}
	var rq *RemoteQueryError
	var de *DecodingError
	if errors.As(err, &rq) || errors.As(err, &de) {
		return err
	}
	return &RemoteQueryError{Chain: chain, Source: source, Cause: err}
}
