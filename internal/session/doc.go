// Package session runs stream requests.
//
// A Controller parses the request arguments, classifies the request into
// a route and runs the matching pipeline on the request's own goroutine.
// Every event it produces is posted to a Dispatcher, which delivers the
// events of all sessions bound to it to their sinks from one goroutine, in
// post order. Each session ends with exactly one end-of-stream event,
// whatever happened before it.
package session
