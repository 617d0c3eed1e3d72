// Package script runs step work written in Lua.
//
// A script directory holds one file per task kind (frontend.lua,
// backend.lua, ...) and optionally default.lua for every other kind. Each
// file defines a global function
//
//	function step(label, index, input, params) -- index is 1-based
//	    log("info", "working on " .. label)
//	    return true
//	end
//
// Returning false (optionally followed by a message) or raising error()
// fails the step. Scripts run in a sandbox with only the base, table,
// string and math libraries; dofile, loadfile, load and loadstring are
// removed, and print writes to the log store.
package script
