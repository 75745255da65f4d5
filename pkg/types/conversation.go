package types

import "time"

// Turn is one completed question/answer exchange in a conversation.
type Turn struct {
	Question          string
	RewrittenQuestion string
	Answer            string
	CitedTitles       []string
	Timestamp         time.Time
}
