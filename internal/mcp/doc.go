// Package mcp exposes the document chat pipeline as an MCP server over
// stdio.
//
// Tools:
//
//	index_all       - fetch, chunk, embed, and index every source document
//	chat            - answer a question grounded in the indexed documents
//	reindex         - rebuild the index from scratch
//	clear_index     - discard the current index
//	list_documents  - list the documents visible in the source
//	get_status      - report index and conversation state
//
// Handlers translate classified pipeline errors into MCP errors whose
// data payload carries a remediation message the client can surface
// directly to the user.
package mcp
