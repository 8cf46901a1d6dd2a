// Package album loads third-party album documents, applies the textual
// quirk fixes they need to parse, and resolves them into the internal
// manifest and slide model the rest of the pipeline consumes.
package album
