// Package chart builds the dashboard's figures as Plotly {data, layout}
// descriptors. Nothing is rendered here; the client draws the JSON as is.
package chart

import (
	"encoding/json"
	"time"

	"github.com/couchcryptid/mdf-dashboard/internal/adapter/boundaries"
	"github.com/couchcryptid/mdf-dashboard/internal/domain"
)

// Figure names served by the dashboard.
const (
	Casualties = "casualties"
	Cumulative = "cumulative"
	Choropleth = "choropleth"
	Density    = "density"
)

// Names lists every figure in display order.
var Names = []string{Casualties, Cumulative, Choropleth, Density}

const (
	figureWidth  = 1000
	barHeight    = 600
	mapHeight    = 800
	background   = "#F0F0F0"
	densityStyle = "open-street-map"
)

// mapCenter is the geographic centre of metropolitan France.
var mapCenter = LatLon{Lat: 46.603354, Lon: 1.888334}

// barColorScale runs from near black for the quietest week to red for the
// deadliest.
var barColorScale = [][2]any{{0, "rgb(20, 20, 30)"}, {1, "rgb(200, 0, 0)"}}

// Figure is a Plotly figure.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace holds the fields of the bar, choropleth and densitymapbox traces.
// Fields a trace type does not use are left empty and omitted.
type Trace struct {
	Type string `json:"type"`

	X      []string `json:"x,omitempty"`
	Y      []int    `json:"y,omitempty"`
	Marker *Marker  `json:"marker,omitempty"`

	GeoJSON      json.RawMessage `json:"geojson,omitempty"`
	FeatureIDKey string          `json:"featureidkey,omitempty"`
	Locations    []string        `json:"locations,omitempty"`

	Lat    []float64 `json:"lat,omitempty"`
	Lon    []float64 `json:"lon,omitempty"`
	Text   []string  `json:"text,omitempty"`
	Radius int       `json:"radius,omitempty"`

	Z          []int  `json:"z,omitempty"`
	ColorScale any    `json:"colorscale,omitempty"`
	ColorBar   *Title `json:"colorbar,omitempty"`
}

// Marker colours bars by their normalized height.
type Marker struct {
	Color      []float64 `json:"color"`
	ColorScale any       `json:"colorscale"`
	ShowScale  bool      `json:"showscale"`
	CMin       float64   `json:"cmin"`
	CMax       float64   `json:"cmax"`
}

// Layout is the subset of the Plotly layout the figures set.
type Layout struct {
	Title        *Title        `json:"title,omitempty"`
	XAxis        *Axis         `json:"xaxis,omitempty"`
	YAxis        *Axis         `json:"yaxis,omitempty"`
	BarGap       float64       `json:"bargap,omitempty"`
	Width        int           `json:"width,omitempty"`
	Height       int           `json:"height,omitempty"`
	PlotBGColor  string        `json:"plot_bgcolor,omitempty"`
	PaperBGColor string        `json:"paper_bgcolor,omitempty"`
	Margin       *Margin       `json:"margin,omitempty"`
	Geo          *Geo          `json:"geo,omitempty"`
	Mapbox       *MapboxLayout `json:"mapbox,omitempty"`
	ShowLegend   *bool         `json:"showlegend,omitempty"`
}

type Title struct {
	Text string `json:"text"`
}

type Axis struct {
	Title      *Title `json:"title,omitempty"`
	TickAngle  int    `json:"tickangle,omitempty"`
	AutoMargin bool   `json:"automargin,omitempty"`
}

type Margin struct {
	R int `json:"r"`
	T int `json:"t"`
	L int `json:"l"`
	B int `json:"b"`
}

type Geo struct {
	FitBounds  string      `json:"fitbounds"`
	Visible    bool        `json:"visible"`
	Projection *Projection `json:"projection,omitempty"`
}

type Projection struct {
	Type string `json:"type"`
}

type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type MapboxLayout struct {
	Style  string `json:"style"`
	Center LatLon `json:"center"`
	Zoom   int    `json:"zoom"`
}

// CasualtiesBar plots the number of deaths per week.
func CasualtiesBar(series []domain.WeekCount) Figure {
	counts := make([]int, len(series))
	for i, w := range series {
		counts[i] = w.Count
	}
	return weeklyBar(series, counts, "Weekly French Casualties", "Number of Casualties")
}

// CumulativeBar plots the running total of deaths.
func CumulativeBar(series []domain.WeekCount) Figure {
	totals := make([]int, len(series))
	for i, w := range series {
		totals[i] = w.Cumulative
	}
	return weeklyBar(series, totals, "Cumulative Sum of Casualties", "Cumulative Sum of Casualties")
}

func weeklyBar(series []domain.WeekCount, values []int, title, yTitle string) Figure {
	weeks := make([]string, len(series))
	for i, w := range series {
		weeks[i] = w.Week.Format(time.DateOnly)
	}
	return Figure{
		Data: []Trace{{
			Type: "bar",
			X:    weeks,
			Y:    values,
			Marker: &Marker{
				Color:      normalize(values),
				ColorScale: barColorScale,
				ShowScale:  true,
				CMin:       0,
				CMax:       1,
			},
		}},
		Layout: Layout{
			Title:        &Title{Text: title},
			XAxis:        &Axis{TickAngle: 45, AutoMargin: true},
			YAxis:        &Axis{Title: &Title{Text: yTitle}},
			BarGap:       0.2,
			Width:        figureWidth,
			Height:       barHeight,
			PlotBGColor:  background,
			PaperBGColor: background,
		},
	}
}

// normalize scales values to [0, 1] by min-max. A flat series maps to 0.
func normalize(values []int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	if hi == lo {
		return out
	}
	for i, v := range values {
		out[i] = float64(v-lo) / float64(hi-lo)
	}
	return out
}

// RegionChoropleth shades each region by its casualty count. Regions are
// matched to shapes by name through boundaries.FeatureIDKey.
func RegionChoropleth(tally []domain.RegionCount, shapes boundaries.Shapes) Figure {
	locations := make([]string, len(tally))
	counts := make([]int, len(tally))
	for i, r := range tally {
		locations[i] = r.Region
		counts[i] = r.Count
	}
	return Figure{
		Data: []Trace{{
			Type:         "choropleth",
			GeoJSON:      shapes.GeoJSON,
			FeatureIDKey: boundaries.FeatureIDKey,
			Locations:    locations,
			Z:            counts,
			ColorScale:   "Greys",
			ColorBar:     &Title{Text: "casualties"},
		}},
		Layout: Layout{
			Margin: &Margin{},
			Width:  figureWidth,
			Height: mapHeight,
			Geo: &Geo{
				FitBounds:  "locations",
				Visible:    false,
				Projection: &Projection{Type: "mercator"},
			},
		},
	}
}

// PlaceDensity draws a heat map of deaths over the geocoded places.
func PlaceDensity(places []domain.PlaceCount) Figure {
	lat := make([]float64, len(places))
	lon := make([]float64, len(places))
	z := make([]int, len(places))
	text := make([]string, len(places))
	for i, p := range places {
		lat[i] = p.Coordinates.Lat
		lon[i] = p.Coordinates.Lon
		z[i] = p.Count
		text[i] = p.Place
	}
	hidden := false
	return Figure{
		Data: []Trace{{
			Type:   "densitymapbox",
			Lat:    lat,
			Lon:    lon,
			Z:      z,
			Text:   text,
			Radius: 10,
		}},
		Layout: Layout{
			Width:  figureWidth,
			Height: mapHeight,
			Mapbox: &MapboxLayout{
				Style:  densityStyle,
				Center: mapCenter,
				Zoom:   5,
			},
			ShowLegend: &hidden,
		},
	}
}
