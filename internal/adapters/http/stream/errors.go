package stream

import "errors"

var ErrClosed = errors.New("stream: hub closed")
