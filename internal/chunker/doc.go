// Package chunker splits raw document text into overlapping fixed-size
// passages for embedding and retrieval.
//
// The chunker slides a fixed window over rune offsets: each chunk starts
// size-overlap runes after the previous one, so consecutive chunks of a
// document share exactly overlap runes, and the final chunk is truncated to
// the remaining text. Concatenating the first chunk with every later
// chunk's non-overlapping suffix reconstructs the document exactly.
package chunker
