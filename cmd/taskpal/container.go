package main

import (
	"fmt"

	"taskpal/internal/api"
	"taskpal/internal/chat"
	"taskpal/internal/config"
	"taskpal/internal/httpclient"
	"taskpal/internal/logging"
	"taskpal/internal/notification"
	"taskpal/internal/session"
	"taskpal/internal/session/filestore"
	"taskpal/internal/task"
)

// Container wires the client stack: config, logging, the instrumented HTTP
// client, the typed API client and the stores over it.
type Container struct {
	Config        config.Config
	API           *api.Client
	Session       *session.Store
	Tasks         *task.Store
	Chat          *chat.Store
	Notifications *notification.Store
	Gate          *httpclient.AuthGate

	rootLogger *logging.FileLogger
}

func buildContainer() (*Container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	rootLogger, err := logging.NewFileLogger(cfg.LogPath(), logging.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	c := &Container{Config: cfg, rootLogger: rootLogger}

	// The bearer transport reads the token through a late-bound closure:
	// the session store needs the API client, and the API client's transport
	// needs the session store's token.
	c.Gate = httpclient.NewAuthGate(func() {
		if c.Session != nil {
			c.Session.ForceLogout()
		}
	})

	httpClient := httpclient.New(cfg.HTTPTimeout, rootLogger.Component("http"))
	transport := httpclient.WrapWithBearer(httpClient.Transport, httpclient.TokenFunc(func() string {
		if c.Session == nil {
			return ""
		}
		return c.Session.Token()
	}))
	httpClient.Transport = httpclient.WrapWithAuthGate(transport, c.Gate)

	c.API = api.NewClient(cfg.APIBaseURL, httpClient, rootLogger.Component("api"))

	c.Session = session.NewStore(
		c.API,
		filestore.New(cfg.CredentialsPath()),
		rootLogger.Component("SessionStore"),
		session.WithAuthenticatedHook(c.Gate.Arm),
		// A conversation belongs to one signed-in session: the transcript
		// and adopted conversation id are dropped when it ends.
		session.WithLogoutHook(func() {
			if c.Chat != nil {
				c.Chat.Reset()
			}
		}),
	)
	c.Tasks = task.NewStore(c.API, rootLogger.Component("TaskStore"))
	c.Chat = chat.NewStore(c.API, func() string { return c.Session.Snapshot().User.ID }, rootLogger.Component("ChatStore"))
	c.Notifications = notification.NewStore(c.API, rootLogger.Component("NotificationStore"))

	return c, nil
}

// Cleanup releases resources held by the container.
func (c *Container) Cleanup() error {
	if c.rootLogger != nil {
		return c.rootLogger.Close()
	}
	return nil
}
