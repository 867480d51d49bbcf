package api

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/hazyhaar/bethyw/pkg/areas"
	"github.com/hazyhaar/bethyw/pkg/datasets"
	"github.com/hazyhaar/bethyw/pkg/importer"
	"github.com/hazyhaar/bethyw/pkg/kit"
	"github.com/hazyhaar/bethyw/pkg/stats"
)

// Service is the read-only state served over HTTP and MCP. The collection
// must be fully loaded before the service is exposed.
type Service struct {
	Areas    *areas.Areas
	Registry *datasets.Registry
	// Catalog is optional; without it datasets carry no import history.
	Catalog *datasets.Catalog
	// Loaded lists the dataset codes imported into Areas.
	Loaded []string
}

// Shared request/response types used by both HTTP and MCP transports.

type queryAreasReq struct {
	Areas    []string
	Measures []string
	Years    string
}

type areaReq struct {
	Code string
}

type measureReq struct {
	Area    string
	Measure string
}

type areasResponse struct {
	Count int                         `json:"count"`
	Areas map[string]areas.AreaExport `json:"areas"`
}

type areaResponse struct {
	Code string `json:"code"`
	Name string `json:"name"`
	areas.AreaExport
}

type measureResponse struct {
	Area     string             `json:"area"`
	AreaName string             `json:"area_name"`
	Codename string             `json:"codename"`
	Label    string             `json:"label"`
	Values   map[string]float64 `json:"values"`
	Summary  stats.Summary      `json:"summary"`
}

type datasetInfo struct {
	Code   string        `json:"code"`
	Name   string        `json:"name"`
	Layout string        `json:"layout"`
	Files  []string      `json:"files"`
	Loaded bool          `json:"loaded"`
	Last   *datasets.Run `json:"last_run,omitempty"`
}

type datasetsResponse struct {
	Datasets []datasetInfo `json:"datasets"`
}

type endpoints struct {
	queryAreas   kit.Endpoint
	getArea      kit.Endpoint
	getMeasure   kit.Endpoint
	listDatasets kit.Endpoint
}

func newEndpoints(svc *Service) *endpoints {
	return &endpoints{
		queryAreas:   kit.Logging("query_areas")(queryAreasEndpoint(svc)),
		getArea:      kit.Logging("get_area")(getAreaEndpoint(svc)),
		getMeasure:   kit.Logging("get_measure")(getMeasureEndpoint(svc)),
		listDatasets: kit.Logging("list_datasets")(listDatasetsEndpoint(svc)),
	}
}

func queryAreasEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*queryAreasReq)
		years, err := importer.ParseYearRange(req.Years)
		if err != nil {
			return nil, err
		}
		filters := &importer.Filters{
			Areas:    importer.ParseStringFilter(req.Areas),
			Measures: importer.ParseStringFilter(req.Measures),
			Years:    years,
		}
		selected, err := selectAreas(svc.Areas, filters)
		if err != nil {
			return nil, err
		}
		return areasResponse{Count: selected.Size(), Areas: selected.Export()}, nil
	}
}

func getAreaEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*areaReq)
		a, err := svc.Areas.Area(req.Code)
		if err != nil {
			return nil, err
		}
		return areaResponse{Code: a.Code(), Name: a.DisplayName(), AreaExport: a.Export()}, nil
	}
}

func getMeasureEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, request any) (any, error) {
		req := request.(*measureReq)
		a, err := svc.Areas.Area(req.Area)
		if err != nil {
			return nil, err
		}
		m, err := a.Measure(req.Measure)
		if err != nil {
			return nil, err
		}
		values := make(map[string]float64, m.Size())
		for year, v := range m.Values() {
			values[strconv.Itoa(year)] = v
		}
		return measureResponse{
			Area:     a.Code(),
			AreaName: a.DisplayName(),
			Codename: m.Codename(),
			Label:    m.Label(),
			Values:   values,
			Summary:  m.Summary(),
		}, nil
	}
}

func listDatasetsEndpoint(svc *Service) kit.Endpoint {
	return func(_ context.Context, _ any) (any, error) {
		loaded := importer.NewStringFilter(svc.Loaded...)
		sources := append([]*datasets.Source{&svc.Registry.Areas}, svc.Registry.All()...)

		resp := datasetsResponse{Datasets: make([]datasetInfo, 0, len(sources))}
		for _, src := range sources {
			info := datasetInfo{
				Code:   src.Code,
				Name:   src.Name,
				Layout: src.Layout.String(),
				Loaded: loaded.Contains(src.Code),
			}
			for _, f := range src.Files {
				info.Files = append(info.Files, f.Name)
			}
			if svc.Catalog != nil {
				runs, err := svc.Catalog.Runs(src.Code, 1)
				if err != nil {
					return nil, err
				}
				if len(runs) > 0 {
					info.Last = &runs[0]
				}
			}
			resp.Datasets = append(resp.Datasets, info)
		}
		return resp, nil
	}
}

// selectAreas copies the part of as accepted by f. Measures left without any
// year are dropped; areas are kept even when none of their measures survive.
func selectAreas(as *areas.Areas, f *importer.Filters) (*areas.Areas, error) {
	out := areas.New()
	for _, a := range as.All() {
		if !f.AcceptArea(a.Code()) {
			continue
		}
		if err := out.Merge(a.Code(), a.Names(), nil); err != nil {
			return nil, err
		}
		for code, m := range a.Measures() {
			if !f.AcceptMeasure(code) {
				continue
			}
			sub := areas.NewMeasure(code, m.Label())
			for year, v := range m.Values() {
				if f.AcceptYear(year) {
					sub.SetValue(year, v)
				}
			}
			if sub.Size() == 0 {
				continue
			}
			if err := out.Merge(a.Code(), nil, sub); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// splitList splits a comma-separated parameter, dropping blanks.
func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// isClientError reports whether err was caused by the request rather than the server.
func isClientError(err error) bool {
	return errors.Is(err, areas.ErrInvalidFormat)
}
