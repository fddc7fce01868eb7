package feed

import "errors"

var ErrUnknownFilter = errors.New("unknown feed filter")
var ErrMissingSubject = errors.New("feed filter requires a subject id")
