package config

import "errors"

var ErrLatencyBand = errors.New("wire latency band is invalid")
