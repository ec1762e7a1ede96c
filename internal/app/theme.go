package app

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"

	"biodash/pkg/colorutil"
)

// Theme is the dashboard theme: teal accents on the default palette and
// larger text in headings.
type Theme struct{}

var _ fyne.Theme = (*Theme)(nil)

func (t *Theme) Color(name fyne.ThemeColorName, variant fyne.ThemeVariant) color.Color {
	switch name {
	case theme.ColorNamePrimary, theme.ColorNameFocus:
		return colorutil.Accent
	case theme.ColorNameSelection:
		return colorutil.WithAlpha(colorutil.Accent, 0.25)
	case theme.ColorNameHyperlink:
		return colorutil.SeriesBlue
	case theme.ColorNameError:
		return colorutil.SeriesRed
	default:
		return theme.DefaultTheme().Color(name, variant)
	}
}

func (t *Theme) Font(style fyne.TextStyle) fyne.Resource {
	return theme.DefaultTheme().Font(style)
}

func (t *Theme) Icon(name fyne.ThemeIconName) fyne.Resource {
	return theme.DefaultTheme().Icon(name)
}

func (t *Theme) Size(name fyne.ThemeSizeName) float32 {
	switch name {
	case theme.SizeNameHeadingText:
		return 26
	case theme.SizeNameSubHeadingText:
		return 19
	default:
		return theme.DefaultTheme().Size(name)
	}
}
