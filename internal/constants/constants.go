package constants

import "time"

// MessagePageSize is the number of messages fetched per history page.
// Matches the default page size served by the reference backend.
const MessagePageSize = 20

// OptimisticMatchWindow bounds the timestamp distance between a pending
// outbound message and a stream echo for the two to be considered the same
// send. Echoes outside the window append as new messages instead.
const OptimisticMatchWindow = 5 * time.Second

// ComposerCharLimit caps the length of a single outgoing message.
const ComposerCharLimit = 4000

// PreviewMaxChars limits conversation preview text shown in the inbox list.
const PreviewMaxChars = 80

// PreviewEllipsis is appended when truncating long previews.
const PreviewEllipsis = "..."

// SendRequestTimeout caps a single message send round trip.
const SendRequestTimeout = 15 * time.Second

// FetchRequestTimeout caps conversation and history page fetches.
const FetchRequestTimeout = 30 * time.Second

// StreamInitialBackoff is the first reconnect delay after a dropped stream.
const StreamInitialBackoff = 500 * time.Millisecond

// StreamMaxBackoff caps the reconnect delay between stream attempts.
const StreamMaxBackoff = 30 * time.Second

// MinEventBusBufferSize is the minimum buffer per subscriber channel. The
// bus feeds a single TUI subscriber; the largest burst is a full load
// followed by a page prepend and a handful of stream events, so a small
// buffer absorbs it with room to spare.
const MinEventBusBufferSize = 64
