package service

import "fmt"

// Origin tells which layer produced a service error.
type Origin int

const (
	OriginRepository Origin = iota + 1
	OriginDomain
)

func (o Origin) String() string {
	switch o {
	case OriginRepository:
		return "repository"
	case OriginDomain:
		return "domain"
	default:
		return "unknown"
	}
}

// Error wraps a failure from a service operation with the layer it came from.
type Error struct {
	Op     string
	Origin Origin
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s error: %v", e.Op, e.Origin, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func repositoryError(op string, err error) error {
	return &Error{Op: op, Origin: OriginRepository, Err: err}
}

func domainError(op string, err error) error {
	return &Error{Op: op, Origin: OriginDomain, Err: err}
}
