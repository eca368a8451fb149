package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"
	"github.com/paulmach/orb"

	"github.com/NB11/air-pollution-poster-fair/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lon": &graphql.Field{Type: graphql.Float},
			"lat": &graphql.Field{Type: graphql.Float},
		},
	})

	scaleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "PollutantScale",
		Fields: graphql.Fields{
			"name":     &graphql.Field{Type: graphql.String},
			"vmin":     &graphql.Field{Type: graphql.Float},
			"vmax":     &graphql.Field{Type: graphql.Float},
			"colormap": &graphql.Field{Type: graphql.String},
			"unit":     &graphql.Field{Type: graphql.String},
		},
	})

	layerKeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LayerKey",
		Fields: graphql.Fields{
			"city":      &graphql.Field{Type: graphql.String},
			"pollutant": &graphql.Field{Type: graphql.String},
			"year":      &graphql.Field{Type: graphql.String},
			"month":     &graphql.Field{Type: graphql.String},
		},
	})

	sliderType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SliderRange",
		Fields: graphql.Fields{
			"min": &graphql.Field{Type: graphql.Int},
			"max": &graphql.Field{Type: graphql.Int},
		},
	})

	viewStateType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ViewState",
		Fields: graphql.Fields{
			"loaded":            &graphql.Field{Type: layerKeyType},
			"opacity":           &graphql.Field{Type: graphql.Float},
			"opacity_control":   &graphql.Field{Type: graphql.Boolean},
			"show_all_stations": &graphql.Field{Type: graphql.Boolean},
			"slider":            &graphql.Field{Type: sliderType},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"city":       &graphql.Field{Type: graphql.String},
			"year":       &graphql.Field{Type: graphql.String},
			"corners":    &graphql.Field{Type: graphql.NewList(geoPointType)},
			"pollutants": &graphql.Field{Type: graphql.NewList(scaleType)},
		},
	})

	stationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Station",
		Fields: graphql.Fields{
			"station_id":    &graphql.Field{Type: graphql.String},
			"location":      &graphql.Field{Type: geoPointType},
			"period_key":    &graphql.Field{Type: graphql.String},
			"ground_truth":  &graphql.Field{Type: graphql.Float},
			"predicted":     &graphql.Field{Type: graphql.Float},
			"display_value": &graphql.Field{Type: graphql.Float},
			"display_unit":  &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"cities": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Selectable cities",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Config.View.Cities, nil
				},
			},
			"years": &graphql.Field{
				Type:        graphql.NewList(graphql.String),
				Description: "Selectable years",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Config.View.Years, nil
				},
			},
			"pollutants": &graphql.Field{
				Type:        graphql.NewList(scaleType),
				Description: "Displayable pollutants with fallback scales",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var out []map[string]interface{}
					for _, pol := range domain.Pollutants {
						s := pol.DefaultScale()
						out = append(out, map[string]interface{}{
							"name":     string(pol),
							"vmin":     s.VMin,
							"vmax":     s.VMax,
							"colormap": s.Colormap,
							"unit":     pol.DisplayUnit(),
						})
					}
					return out, nil
				},
			},
			"viewState": &graphql.Field{
				Type:        viewStateType,
				Description: "Current view state",
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					state := deps.Layers.State()
					m := map[string]interface{}{
						"opacity":           state.Opacity,
						"opacity_control":   state.OpacityControl,
						"show_all_stations": state.ShowAllStations,
						"slider": map[string]interface{}{
							"min": state.Slider.Min,
							"max": state.Slider.Max,
						},
					}
					if state.Loaded != nil {
						m["loaded"] = map[string]interface{}{
							"city":      state.Loaded.City,
							"pollutant": string(state.Loaded.Pollutant),
							"year":      state.Loaded.Year,
							"month":     state.Loaded.Month,
						}
					}
					return m, nil
				},
			},
			"bounds": &graphql.Field{
				Type:        boundsType,
				Description: "Resolved placement and scales for a city and year",
				Args: graphql.FieldConfigArgument{
					"city": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"year": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					city := p.Args["city"].(string)
					year := p.Args["year"].(string)
					corners, desc, err := deps.Bounds.Resolve(p.Context, city, year)
					if err != nil {
						return nil, err
					}
					cs := make([]map[string]interface{}, 4)
					for i, c := range corners {
						cs[i] = map[string]interface{}{"lon": c.Lon, "lat": c.Lat}
					}
					var scales []map[string]interface{}
					for name, s := range desc.Pollutants {
						scales = append(scales, map[string]interface{}{
							"name":     name,
							"vmin":     s.VMin,
							"vmax":     s.VMax,
							"colormap": s.Colormap,
						})
					}
					return map[string]interface{}{
						"city":       desc.City,
						"year":       desc.Year,
						"corners":    cs,
						"pollutants": scales,
					}, nil
				},
			},
			"stations": &graphql.Field{
				Type:        graphql.NewList(stationType),
				Description: "Station observations for a city, pollutant, and period",
				Args: graphql.FieldConfigArgument{
					"city":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"pollutant": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"year":      &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"month":     &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					city := p.Args["city"].(string)
					pol := domain.Pollutant(p.Args["pollutant"].(string))
					year := p.Args["year"].(string)
					month, err := normalizeMonth(p.Args["month"].(string))
					if err != nil {
						return nil, err
					}

					fc, err := deps.Stations.FetchPredictions(p.Context, city, pol, year, month)
					if err != nil {
						all, cErr := deps.Stations.FetchConsolidated(p.Context, pol)
						if cErr != nil {
							return []map[string]interface{}{}, nil
						}
						fc = geojsonFilterPeriod(all, year+"-"+month)
					}

					var out []map[string]interface{}
					for _, f := range fc.Features {
						pt, ok := f.Geometry.(orb.Point)
						if !ok {
							continue
						}
						m := map[string]interface{}{
							"station_id":   domain.StationID(f),
							"location":     map[string]interface{}{"lon": pt[0], "lat": pt[1]},
							"period_key":   domain.FeaturePeriod(f),
							"display_unit": pol.DisplayUnit(),
						}
						if v, ok := domain.GroundTruth(f); ok {
							m["ground_truth"] = v
							m["display_value"] = pol.DisplayValue(v)
						}
						if v, ok := domain.Predicted(f); ok {
							m["predicted"] = v
						}
						out = append(out, m)
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
