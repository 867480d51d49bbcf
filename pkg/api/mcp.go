package api

import (
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/bethyw/pkg/kit"
)

// RegisterMCPTools registers the query tools on the server.
func RegisterMCPTools(srv *server.MCPServer, svc *Service) {
	eps := newEndpoints(svc)
	registerQueryAreas(srv, eps)
	registerGetArea(srv, eps)
	registerGetMeasure(srv, eps)
	registerListDatasets(srv, eps)
}

func registerQueryAreas(srv *server.MCPServer, eps *endpoints) {
	tool := mcp.NewTool("query_areas",
		mcp.WithDescription("Return Welsh local authorities with their names and yearly statistics, optionally filtered."),
		mcp.WithString("areas", mcp.Description("Comma-separated authority codes (e.g. W06000011,W06000023); empty or 'all' for every area")),
		mcp.WithString("measures", mcp.Description("Comma-separated measure codes (e.g. pop,dens); empty or 'all' for every measure")),
		mcp.WithString("years", mcp.Description("A year (2015) or inclusive range (2010-2018); empty or 0 for all years")),
	)

	kit.RegisterMCPTool(srv, tool, eps.queryAreas, func(req mcp.CallToolRequest) (any, error) {
		return &queryAreasReq{
			Areas:    splitList(kit.StringArg(req, "areas")),
			Measures: splitList(kit.StringArg(req, "measures")),
			Years:    kit.StringArg(req, "years"),
		}, nil
	})
}

func registerGetArea(srv *server.MCPServer, eps *endpoints) {
	tool := mcp.NewTool("get_area",
		mcp.WithDescription("Return one Welsh local authority with its names and every imported measure."),
		mcp.WithString("code", mcp.Required(), mcp.Description("Authority code, e.g. W06000023")),
	)

	kit.RegisterMCPTool(srv, tool, eps.getArea, func(req mcp.CallToolRequest) (any, error) {
		code := kit.StringArg(req, "code")
		if code == "" {
			return nil, errors.New("code is required")
		}
		return &areaReq{Code: code}, nil
	})
}

func registerGetMeasure(srv *server.MCPServer, eps *endpoints) {
	tool := mcp.NewTool("get_measure",
		mcp.WithDescription("Return one measure of one area with its yearly values and summary statistics (average, difference, min, max)."),
		mcp.WithString("area", mcp.Required(), mcp.Description("Authority code, e.g. W06000023")),
		mcp.WithString("measure", mcp.Required(), mcp.Description("Measure code, e.g. pop")),
	)

	kit.RegisterMCPTool(srv, tool, eps.getMeasure, func(req mcp.CallToolRequest) (any, error) {
		area, measure := kit.StringArg(req, "area"), kit.StringArg(req, "measure")
		if area == "" || measure == "" {
			return nil, errors.New("area and measure are required")
		}
		return &measureReq{Area: area, Measure: measure}, nil
	})
}

func registerListDatasets(srv *server.MCPServer, eps *endpoints) {
	tool := mcp.NewTool("list_datasets",
		mcp.WithDescription("List the known datasets, their files and whether they are loaded."),
	)

	kit.RegisterMCPTool(srv, tool, eps.listDatasets, func(mcp.CallToolRequest) (any, error) {
		return nil, nil
	})
}
