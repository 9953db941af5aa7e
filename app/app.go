package app

import (
	"github.com/go-chi/oauth"
	"github.com/mbolis/quick-form/assistant"
	"github.com/mbolis/quick-form/config"
	"github.com/mbolis/quick-form/store"
)

type App struct {
	store.Store
	*oauth.BearerServer
	Config config.Config
	// Assistant is nil when conversational sessions are disabled.
	Assistant assistant.Assistant
}
