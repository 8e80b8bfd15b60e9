package domain

import "errors"

var (
	ErrDecisionNotFound = errors.New("decision not found")
)
