package app

import (
	"canvass/config"
	"canvass/session"
	"canvass/survey"
)

// App bundles the long-lived objects every handler needs. The store is
// owned by the repository; handlers never reach around it.
type App struct {
	Repo     *survey.Repository
	Sessions *session.Manager
	config.Config
}
