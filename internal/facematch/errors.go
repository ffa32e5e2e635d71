package facematch

import "errors"

var (
	// ErrNoFaceDetected means a required image contained zero detectable
	// faces. Distinct from extraction transport failures: callers map
	// this to a client error, not a server one.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrReferenceNotFound means the reference descriptor id does not
	// resolve to a stored FaceDescriptor.
	ErrReferenceNotFound = errors.New("reference descriptor not found")
)
