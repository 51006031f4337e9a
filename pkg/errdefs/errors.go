package errdefs

import "errors"

var (
	// ErrNotFound signals that the requested object doesn't exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParameter signals that the user input is invalid.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrConflict signals that some internal state conflicts with the requested action
	// and can't be performed. A change in state should be able to clear this error.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is used to signify that the user is not authorized to perform a
	// specific action
	ErrUnauthorized = errors.New("unauthorized")

	// ErrUnavailable signals that the requested action/subsystem is not available.
	ErrUnavailable = errors.New("unavailable")

	// ErrForbidden signals that the requested action cannot be performed under any circumstances.
	// When a ErrForbidden is returned, the caller should never retry the action.
	ErrForbidden = errors.New("forbidden")

	// ErrSystem signals that some internal error occurred.
	// An example of this would be a failed mount request.
	ErrSystem = errors.New("system error")

	// ErrNotImplemented signals that the requested action/feature is not implemented on the system as configured.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnknown signals that the kind of error that occurred is not known.
	ErrUnknown = errors.New("unknown error")

	// ErrCanceled signals that the action was canceled.
	ErrCanceled = errors.New("canceled")

	// ErrDeadlineExceeded signals that the deadline was reached before the action completed.
	ErrDeadlineExceeded = errors.New("deadline exceeded")

	// ErrDataLoss indicates that data was lost or there is data corruption.
	ErrDataLoss = errors.New("data loss")

	// ErrAlreadyExists signals that resources is already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnsupported indicates that the action was not supported.
	ErrUnsupported = errors.New("unsupported")

	// ErrUnsupportedVersion indicates that target version was not supported.
	ErrUnsupportedVersion = errors.New("unsupported version")

	// ErrMissingClaim signals that a Manifest was used before a Claim was attached to it.
	ErrMissingClaim = errors.New("manifest has no claim")

	// ErrMissingSignature signals that a Manifest was used before a Signature was attached to it.
	ErrMissingSignature = errors.New("manifest has no signature")

	// ErrMissingInstanceID signals that a Claim was built without an instanceID.
	ErrMissingInstanceID = errors.New("claim is missing instanceID")

	// ErrMissingAlgorithm signals that an assertion or claim was emitted without a digest algorithm.
	ErrMissingAlgorithm = errors.New("missing digest algorithm")

	// ErrMissingFormat signals that a V1 claim was built without the mandatory dc:format field.
	ErrMissingFormat = errors.New("v1 claim is missing dc:format")

	// ErrInsufficientPadding signals that a signature or hash-binding assertion grew past
	// the space reserved for it and the caller must retry with a larger reservation.
	ErrInsufficientPadding = errors.New("insufficient padding reserved for in-place update")

	// ErrTreeBuilt signals an attempt to mutate a MerkleTree after build() has been called.
	ErrTreeBuilt = errors.New("merkle tree is already built")

	// ErrTreeEmpty signals an attempt to build a MerkleTree with zero leaves.
	ErrTreeEmpty = errors.New("merkle tree has no leaves")

	// ErrOverlappingExclusions signals that a DataHash or BMFFHash assertion's exclusion
	// ranges overlap once sorted by start offset.
	ErrOverlappingExclusions = errors.New("overlapping exclusions")
)
