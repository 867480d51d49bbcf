package main

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/bethyw/pkg/api"
)

type McpCmd struct {
	importFlags
}

func (c *McpCmd) Run(rc *runContext) error {
	// stdout carries the protocol.
	c.Quiet = true
	as, loaded, err := c.load(rc)
	if err != nil {
		return err
	}

	srv := server.NewMCPServer("bethyw", version, server.WithToolCapabilities(false))
	api.RegisterMCPTools(srv, &api.Service{
		Areas:    as,
		Registry: rc.registry,
		Catalog:  rc.catalog,
		Loaded:   loaded,
	})

	rc.logger.Info("serving MCP over stdio", "areas", as.Size())
	return server.ServeStdio(srv)
}
