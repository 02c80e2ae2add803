package main

import (
	sitechathttp "github.com/fwojciec/sitechat/http"
)

// Run executes the serve command. It serves until the context is cancelled.
func (c *ServeCmd) Run(deps *Dependencies) error {
	s := sitechathttp.NewServer()
	s.Addr = c.Addr
	s.Version = version
	s.AllowedOrigins = c.CORSOrigins
	s.IngestService = deps.Ingest
	s.ChatService = deps.Chat
	s.SessionService = deps.Sessions
	s.Logger = deps.Logger

	return s.ListenAndServe(deps.Ctx)
}
