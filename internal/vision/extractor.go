package vision

import (
	"context"
	"encoding/json"
	"fmt"
)

// Face is one detected face: an L2-normalised embedding usable as a
// similarity key, the detector's confidence that the region is a face,
// and the raw annotation payload (bounding box, landmarks, whatever the
// backend produced) carried opaquely.
type Face struct {
	Embedding  []float32
	Confidence float32
	Raw        json.RawMessage
}

// Extractor turns one image into zero or more faces, ordered by
// descending detection confidence. An image without faces is a normal
// empty result, not an error; transport and decode failures return
// *ExtractionError. Downstream consumers use only the first face when
// several are present.
type Extractor interface {
	Extract(ctx context.Context, imageData []byte) ([]Face, error)
}

// ExtractionError marks a hard extraction failure (unreachable backend,
// malformed image), as opposed to a clean zero-face result.
type ExtractionError struct {
	Stage string
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}
