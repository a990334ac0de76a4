// Package cli implements the any2json command-line client.
//
// Each invocation runs one command:
//
//	any2json [-a url] [-f session] register [email]
//	any2json login [email]
//	any2json logout
//	any2json balance
//	any2json networks
//	any2json address <network>
//	any2json rotate-key
//	any2json 2fa-setup
//	any2json 2fa-verify <code>
//	any2json 2fa-disable <code>
//	any2json convert [-type t] [-max-tokens n] [-expand id,...] <input>
//
// register and login store the session token in the session file; the
// other account commands read it from there.
package cli
