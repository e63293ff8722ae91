package domain

// LegendBin is one colour band of an overlay legend.
type LegendBin struct {
	Color string
	Label string
}

// Legend describes the colour scale of a preset.
type Legend struct {
	Title string
	Bins  []LegendBin
}

// COLegend matches the RASTER/CO_VISUALIZED style over 0-0.12 mol/m².
var COLegend = Legend{
	Title: "CO Column (mol/m²)",
	Bins: []LegendBin{
		{Color: "#2b08a8", Label: "0.00-0.02"},
		{Color: "#1b4df0", Label: "0.02-0.04"},
		{Color: "#00a8f0", Label: "0.04-0.06"},
		{Color: "#00f0a8", Label: "0.06-0.08"},
		{Color: "#a8f000", Label: "0.08-0.10"},
		{Color: "#f0a800", Label: "0.10-0.12"},
		{Color: "#f00008", Label: ">0.12"},
	},
}

// NO2Legend matches the RASTER/NO2_VISUALIZED style over 0-0.0003 mol/m².
var NO2Legend = Legend{
	Title: "NO2 Column (mol/m²)",
	Bins: []LegendBin{
		{Color: "#000080", Label: "0-0.00005"},
		{Color: "#0000ff", Label: "0.00005-0.0001"},
		{Color: "#00ffff", Label: "0.0001-0.00015"},
		{Color: "#ffff00", Label: "0.00015-0.0002"},
		{Color: "#ff0000", Label: "0.0002-0.0003"},
		{Color: "#800000", Label: ">0.0003"},
	},
}
