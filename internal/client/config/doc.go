// Package config loads runtime configuration for the any2json CLI and keeps
// the saved login session.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string     base URL of the server (e.g. "http://127.0.0.1:8080")
//	-f string     session file
//	-t duration   request timeout
//
// # JSON schema
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "session_file": "/home/me/.any2json/config.json",
//	  "timeout": "30s"
//	}
//
// The session file is written with 0600 permissions after register or login.
package config
