// Package errors provides structured error types for better observability
// and programmatic error handling across the catalog server and client.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeTransport,
//	    "failed to read frame",
//	    cause,
//	    map[string]any{
//	        "remote": conn.RemoteAddr().String(),
//	        "connID": id,
//	    },
//	)
package errors
