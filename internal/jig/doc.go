// Package jig persists provisioned jigs and their ordered module lists in
// SQLite. Creation is all-or-nothing, updates are conditional (equal values
// never touch updated_at), and missing cover or ending modules are
// materialised as empty design pages so no jig is ever observed with fewer
// than two modules.
package jig
