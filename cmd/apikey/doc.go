// Command apikey manages the API key that protects the imagestream HTTP API.
//
// Usage:
//
//	apikey <command>
//
// Commands:
//
//	set       Prompt for a key twice and store its bcrypt hash, replacing
//	          any previous key. When stdin is not a terminal the key and its
//	          confirmation are read as two lines.
//
//	generate  Store a random 48 character key and print it. The key is not
//	          shown again.
//
//	status    Display whether a key is configured.
//
//	clear     Remove the key. The server then accepts unauthenticated requests.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//
// A running server picks up a new or cleared key on the next request. Keys it
// has already accepted stay valid until it restarts, so restart the server
// after replacing a key.
package main
