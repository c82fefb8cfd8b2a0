package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// FlashcardProgressKey returns the cache key for a player's saved flashcard deck
func (r *CacheKeyStruct) FlashcardProgressKey(playerID int, definitionKey string) string {
	return fmt.Sprintf("player:%d:flashcards:%s:progress", playerID, definitionKey)
}

// GameDefinitionKey returns the cache key for a stored game definition
func (r *CacheKeyStruct) GameDefinitionKey(gameID string) string {
	return fmt.Sprintf("game:%s:definition", gameID)
}

var CacheKey = NewCacheKeyStruct()
