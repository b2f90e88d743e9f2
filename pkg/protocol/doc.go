// Package protocol implements the fixed-frame wire protocol spoken between
// the catalog server and its clients.
//
// # Frames
//
// Every message travels in a 4096 byte block, NUL padded. The receiver
// answers each frame with a 32 byte block holding the text "ACK"; Send does
// not return until that acknowledgment has been read. Partial reads and
// writes are retried until the whole block is transferred.
//
// # Messages
//
//	SEARCH:<query>\n     client asks for matching records
//	COUNT:<n>            server announces n FOOD frames
//	FOOD:<record>        one serialized record, in either direction
//
// A search is answered with one COUNT frame followed by that many FOOD
// frames. An appended record (client FOOD frame) gets no reply beyond the
// frame acknowledgment.
package protocol
