// Package message decodes the command channel between the host application
// and the offline layer.
//
// Commands arrive as a small JSON envelope: a type string plus an optional
// URL list. Decode rejects only malformed envelopes; a well-formed command
// of an unknown type decodes cleanly so newer hosts can talk to older
// workers (the worker ignores types it does not recognize).
package message
