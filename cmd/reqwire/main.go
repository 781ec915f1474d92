// Reqwire: filesystem-backed requirements management.
//
// Requirements live as JSON files under a root directory, one directory per
// document, with revision-gated edits, cross-document trace links, and
// traceability matrix reporting. The same store is exposed two ways:
//
//	reqwire serve     # MCP server over stdio for AI tooling
//	reqwire <cmd>     # direct CLI access (list, show, add, link, trace, ...)
package main

func main() {
	Execute()
}
