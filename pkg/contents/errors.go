package contents

import "errors"

var (
	// ErrStreamDecode indicates the decompressed index is not valid UTF-8 text.
	// It aborts the whole parse pass.
	ErrStreamDecode = errors.New("contents index is not valid UTF-8")
	// ErrFinalized indicates an attempt to mutate stats that were already finalized.
	ErrFinalized = errors.New("package stats already finalized")
)
