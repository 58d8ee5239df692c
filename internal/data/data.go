package data

import (
	"github.com/glowreach/reply-engine/internal/biz/repo"
)

// Repositories contains all repositories.
type Repositories struct {
	Account      repo.AccountRepo
	Rule         repo.RuleRepo
	Conversation repo.ConversationRepo
	Message      repo.MessageRepo
	Context      repo.ContextRepo
	Scheduled    repo.ScheduledPostRepo
	LLM          repo.LLMRepo
	Publisher    repo.PublisherRepo

	store *Store
}

// NewRepositories opens the database and creates all repositories. LLM is
// nil when no API key is configured.
func NewRepositories(dbPath, platformBaseURL string, llm LLMConfig) (*Repositories, error) {
	store, err := OpenStore(dbPath)
	if err != nil {
		return nil, err
	}
	return &Repositories{
		Account:      NewAccountRepo(store),
		Rule:         NewRuleRepo(store),
		Conversation: NewConversationRepo(store),
		Message:      NewMessageRepo(store),
		Context:      NewContextRepo(store),
		Scheduled:    NewScheduledPostRepo(store),
		LLM:          NewLLMRepo(llm),
		Publisher:    NewPlatformRepo(platformBaseURL),
		store:        store,
	}, nil
}

// Close releases the underlying database.
func (r *Repositories) Close() error {
	return r.store.Close()
}
