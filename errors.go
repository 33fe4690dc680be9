package inspector

import "errors"

var (
	// ErrMissingComponent is returned when an entity lacks a component an
	// operation needs, e.g. WorldPose on an entity without a pose.
	ErrMissingComponent = errors.New("missing component")
	// ErrNotFound covers unresolvable scoped names and renderer names.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTargetKind is reported when an overlay target is neither a
	// model nor a link.
	ErrInvalidTargetKind = errors.New("invalid target kind")
	// ErrIdSpaceExhausted means no free renderer object id was found below
	// the probe ceiling.
	ErrIdSpaceExhausted = errors.New("renderer id space exhausted")
	// ErrUnsupportedGeometry is returned for geometry kinds the factory
	// cannot translate.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")
)
