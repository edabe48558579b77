package style

// Shadow is one text-shadow layer.
type Shadow struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Blur    float64 `json:"blur"`
	Color   Color   `json:"color"`
}

// Border describes polygon outlines.
type Border struct {
	Color          Color
	Weight         float64
	Opacity        float64
	SelectedColor  Color
	SelectedWeight float64
}

// Fill describes fixed polygon fills. The light theme paints default and
// hover from the choropleth ramp instead.
type Fill struct {
	Default  Color
	Hover    Color
	Selected Color
}

// LabelColors describes label text in both states.
type LabelColors struct {
	Color          Color
	Shadow         []Shadow
	SelectedColor  Color
	SelectedShadow []Shadow
}

// Dim holds the factors applied to every non-selected district while a
// selection exists.
type Dim struct {
	LabelOpacity  float64
	BorderOpacity float64
	FillOpacity   float64
}

// Table is the complete style table of one theme.
type Table struct {
	Border        Border
	Fill          Fill
	Label         LabelColors
	Dim           Dim
	UseChoropleth bool
}

var (
	darkShadow = []Shadow{
		{OffsetY: 1, Blur: 3, Color: MustParse("rgba(0,0,0,0.8)")},
		{Blur: 8, Color: MustParse("rgba(0,0,0,0.5)")},
	}
	lightShadow = []Shadow{
		{Blur: 4, Color: MustParse("rgba(255,255,255,0.9)")},
		{Blur: 2, Color: MustParse("rgba(255,255,255,0.9)")},
	}
	lightSelectedShadow = []Shadow{
		{OffsetY: 1, Blur: 3, Color: MustParse("rgba(0,0,0,0.4)")},
	}

	lightTable = Table{
		Border: Border{
			Color:          MustParse("#FFFFFF"),
			Weight:         1.5,
			Opacity:        0.8,
			SelectedColor:  MustParse("#2563eb"),
			SelectedWeight: 2,
		},
		Fill: Fill{
			Default:  Transparent,
			Hover:    Transparent,
			Selected: MustParse("#2D4B5F"),
		},
		Label: LabelColors{
			Color:          MustParse("#1E3A50"),
			Shadow:         lightShadow,
			SelectedColor:  MustParse("#FFFFFF"),
			SelectedShadow: lightSelectedShadow,
		},
		Dim:           defaultDim,
		UseChoropleth: true,
	}

	darkTable = Table{
		Border: Border{
			Color:          MustParse("rgba(255,255,255,0.15)"),
			Weight:         1,
			Opacity:        1,
			SelectedColor:  MustParse("#3b82f6"),
			SelectedWeight: 2,
		},
		Fill: Fill{
			Default:  MustParse("rgba(59,130,246,0.05)"),
			Hover:    MustParse("rgba(59,130,246,0.12)"),
			Selected: MustParse("rgba(59,130,246,0.2)"),
		},
		Label: LabelColors{
			Color:          MustParse("#f1f5f9"),
			Shadow:         darkShadow,
			SelectedColor:  MustParse("#3b82f6"),
			SelectedShadow: darkShadow,
		},
		Dim:           defaultDim,
		UseChoropleth: false,
	}

	defaultDim = Dim{LabelOpacity: 0.5, BorderOpacity: 0.3, FillOpacity: 0.2}
)

// ThemeStyles returns the style table for the dark or light theme. The
// returned table shares its shadow slices with the package tables; treat it as
// read-only.
func ThemeStyles(dark bool) Table {
	if dark {
		return darkTable
	}
	return lightTable
}
