package config

import "errors"

var (
	ErrValidation = errors.New("invalid configuration")
)
