package smoothing

import "errors"

var ErrInvalidConfig = errors.New("smoothing: invalid config")
